// Package app is the widget-tree runtime: a single dispatcher goroutine owns
// the ECS world and applies every mutation, while widgets run on their own
// goroutines and talk to it through fragments.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/l1jgo/fragments/internal/core/ecs"
	"github.com/l1jgo/fragments/internal/core/event"
	"github.com/l1jgo/fragments/internal/core/system"
	"go.uber.org/zap"
)

// App owns the world and the dispatcher. An App runs once.
type App struct {
	log     *zap.Logger
	world   *ecs.World
	queue   *event.Queue
	effects *Effects
	nodes   *nodeTable
	runner  *system.Runner
	handle  *Handle
	done    chan struct{}
}

// Option configures an App.
type Option func(*App)

// WithSystem registers a system that runs after every dispatcher batch.
func WithSystem(s system.System) Option {
	return func(a *App) { a.runner.Register(s) }
}

// WithChangeTracking records every component change so PhasePersist systems
// can read them from World.Changes.
func WithChangeTracking() Option {
	return func(a *App) { a.world.TrackChanges(true) }
}

func New(log *zap.Logger, opts ...Option) *App {
	a := &App{
		log:     log.With(zap.String("component", "dispatcher")),
		world:   ecs.NewWorld(),
		queue:   event.NewQueue(),
		effects: NewEffects(),
		nodes:   newNodeTable(),
		runner:  system.NewRunner(),
		done:    make(chan struct{}),
	}
	a.handle = &Handle{
		queue:   a.queue,
		effects: a.effects,
		nodes:   a.nodes,
		done:    a.done,
		log:     log,
	}
	a.runner.Register(system.Func{At: system.PhaseNotify, Fn: func(w *ecs.World) {
		w.FlushNotifications()
	}})
	a.runner.Register(system.Func{At: system.PhaseCleanup, Fn: func(w *ecs.World) {
		w.ClearChanges()
	}})
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register adds a system after construction, for systems that need the
// app's Handle. It must be called before Run.
func (a *App) Register(s system.System) { a.runner.Register(s) }

// Handle returns the cheap, shareable handle used to talk to the dispatcher.
func (a *App) Handle() *Handle { return a.handle }

// World exposes the store. It is only safe to use after Run has returned.
func (a *App) World() *ecs.World { return a.world }

// Run mounts root into a new root fragment and drives the app until the root
// widget returns or an Exit event is processed, whichever happens first.
// The root widget's error, or a fatal dispatcher error, is returned.
func Run[O any](ctx context.Context, a *App, root Widget[O]) (O, error) {
	var zero O
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.nodes.setBase(ctx)
	dispatched := make(chan error, 1)
	go func() { dispatched <- a.dispatch(ctx) }()

	frag, err := a.handle.spawn(ctx, 0)
	if err != nil {
		cancel()
		<-dispatched
		return zero, fmt.Errorf("spawn root: %w", err)
	}
	a.log.Debug("root mounted", zap.Stringer("entity", frag.ID()))
	fut := mount(frag, root)

	select {
	case <-fut.Done():
		out, err := fut.result()
		exitErr := a.handle.Exit()
		derr := <-dispatched
		if errors.Is(exitErr, ErrClosed) {
			// The dispatcher stopped first; the root only returned because
			// its context was cancelled.
			if derr == nil {
				return zero, ErrExited
			}
			return zero, derr
		}
		if err == nil && derr != nil && !errors.Is(derr, context.Canceled) {
			err = derr
		}
		return out, err
	case derr := <-dispatched:
		if derr == nil {
			return zero, ErrExited
		}
		return zero, derr
	}
}
