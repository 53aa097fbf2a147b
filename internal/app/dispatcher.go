package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/l1jgo/fragments/internal/core/ecs"
	"github.com/l1jgo/fragments/internal/core/event"
	"go.uber.org/zap"
)

// dispatch is the only code that touches the world. Each iteration waits for
// the queue to become non-empty, drains everything queued so far, applies it
// in FIFO order and then runs the registered systems once.
func (a *App) dispatch(ctx context.Context) error {
	defer a.shutdown()
	for {
		if err := a.queue.Wait(ctx); err != nil {
			return err
		}
		batch := a.queue.Swap()
		a.log.Debug("batch", zap.Int("events", len(batch)))

		exit := false
		for _, ev := range batch {
			if _, ok := ev.(event.Exit); ok {
				exit = true
				break
			}
			if err := a.apply(ev); err != nil {
				return err
			}
		}
		if err := a.runSystems(); err != nil {
			return err
		}
		if exit {
			a.log.Debug("exit requested")
			return nil
		}
	}
}

// apply runs one event. Store inconsistencies are logged and swallowed; only
// a panic is fatal.
func (a *App) apply(ev event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("panic applying event", zap.String("event", fmt.Sprintf("%T", ev)), zap.Any("panic", r))
			err = fmt.Errorf("%w: %T: %v", ErrEffectPanic, ev, r)
		}
	}()

	switch ev := ev.(type) {
	case event.RunEffect:
		ran, err := a.effects.Run(a.world, ev.Key)
		if !ran {
			a.log.Debug("stale effect", zap.Stringer("key", ev.Key))
		}
		a.logInconsistency("run effect", err)
	case event.RunShared:
		ev.Fn(a.world)
	case event.SpawnEntity:
		id, err := a.spawn(ev.Parent)
		ev.Reply <- event.SpawnResult{ID: id, Err: err}
	case event.Despawn:
		_, err := a.handle.despawnNow(a.world, ev.Entity)
		a.logInconsistency("despawn", err)
	}
	return nil
}

func (a *App) spawn(parent ecs.EntityID) (ecs.EntityID, error) {
	if !parent.IsZero() && !a.world.Alive(parent) {
		return 0, fmt.Errorf("spawn under %s: %w", parent, ErrDespawned)
	}
	id := a.world.Spawn()
	if err := ecs.Set(a.world, id, ecs.WidgetTag, struct{}{}); err != nil {
		return 0, err
	}
	if !parent.IsZero() {
		if err := ecs.Set(a.world, id, ecs.ChildOf, parent); err != nil {
			_, _ = a.world.Despawn(id)
			return 0, err
		}
	}
	a.nodes.add(id, parent)
	return id, nil
}

func (a *App) runSystems() (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("panic in system", zap.Any("panic", r))
			err = fmt.Errorf("%w: system: %v", ErrEffectPanic, r)
		}
	}()
	a.runner.Run(a.world)
	return nil
}

func (a *App) logInconsistency(op string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, ecs.ErrNotFound) {
		a.log.Debug(op+" on missing entity", zap.Error(err))
		return
	}
	a.log.Warn(op+" failed", zap.Error(err))
}

// shutdown closes the queue so further enqueues fail, wakes everything
// waiting on the dispatcher and cancels every live widget.
func (a *App) shutdown() {
	a.queue.Close()
	close(a.done)
	for _, id := range a.nodes.ids() {
		a.nodes.release(id)
	}
}
