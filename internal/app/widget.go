package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/l1jgo/fragments/internal/core/ecs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Widget is a unit of UI logic. Mount takes ownership of the fragment, may
// write to it, attach children and block for as long as it likes. ctx is
// cancelled when the fragment is despawned; widgets must return promptly
// once it is.
type Widget[O any] interface {
	Mount(ctx context.Context, f *Fragment) (O, error)
}

// WidgetFunc adapts a function into a Widget.
type WidgetFunc[O any] func(ctx context.Context, f *Fragment) (O, error)

func (fn WidgetFunc[O]) Mount(ctx context.Context, f *Fragment) (O, error) {
	return fn(ctx, f)
}

// WidgetFuture tracks a widget mounted into a child fragment.
type WidgetFuture[O any] struct {
	frag *Fragment
	done chan struct{}
	out  O
	err  error
}

// ID returns the child's entity.
func (fut *WidgetFuture[O]) ID() ecs.EntityID { return fut.frag.id }

// Fragment returns the child fragment.
func (fut *WidgetFuture[O]) Fragment() *Fragment { return fut.frag }

// Done is closed when the widget's Mount has returned.
func (fut *WidgetFuture[O]) Done() <-chan struct{} { return fut.done }

// Await waits for the widget's output.
func (fut *WidgetFuture[O]) Await(ctx context.Context) (O, error) {
	select {
	case <-fut.done:
		return fut.out, fut.err
	case <-ctx.Done():
		var zero O
		return zero, ctx.Err()
	}
}

// Cancel despawns the child subtree if the widget has not finished yet, which
// cancels the widget's context. A finished widget's content stays mounted.
func (fut *WidgetFuture[O]) Cancel() {
	select {
	case <-fut.done:
	default:
		_ = fut.frag.Despawn()
	}
}

func (fut *WidgetFuture[O]) result() (O, error) {
	<-fut.done
	return fut.out, fut.err
}

// Attach spawns a child of parent and mounts w into it on its own goroutine.
// The child's context derives from the parent's, so despawning the parent
// cancels the child. The child is also cancelled when the widget mounted on
// parent returns while the child is still running, whether or not the
// future was kept.
func Attach[O any](ctx context.Context, parent *Fragment, w Widget[O]) (*WidgetFuture[O], error) {
	if err := parent.alive(); err != nil {
		return nil, err
	}
	child, err := parent.h.spawn(ctx, parent.id)
	if err != nil {
		return nil, fmt.Errorf("attach to %s: %w", parent.id, err)
	}
	fut := mount(child, w)
	parent.scope.add(fut)
	return fut, nil
}

// Put clears the fragment's children and content, keeping its identity and
// widget tag, and mounts w into the same fragment on the calling goroutine.
func Put[O any](ctx context.Context, f *Fragment, w Widget[O]) (O, error) {
	var zero O
	if err := f.alive(); err != nil {
		return zero, err
	}
	if err := f.clear(ctx); err != nil {
		return zero, err
	}
	return w.Mount(ctx, f)
}

// mount runs w on its own goroutine. A widget that fails, panics or is
// cancelled takes its subtree with it; one that returns cleanly cancels the
// children it left running.
func mount[O any](f *Fragment, w Widget[O]) *WidgetFuture[O] {
	fut := &WidgetFuture[O]{frag: f, done: make(chan struct{})}
	f.node.advance(StateActive)
	go func() {
		defer close(fut.done)
		defer func() {
			if r := recover(); r != nil {
				fut.err = fmt.Errorf("%w: %v", ErrWidgetPanic, r)
				f.h.log.Error("widget panicked", zap.Stringer("entity", f.id), zap.Any("panic", r))
			}
			if fut.err != nil || f.node.ctx.Err() != nil {
				if err := f.Despawn(); err != nil && !errors.Is(err, ErrClosed) {
					f.h.log.Debug("despawn after widget exit", zap.Error(err))
				}
				return
			}
			if n := f.scope.release(); n > 0 {
				f.h.log.Debug("cancelled unfinished children", zap.Stringer("entity", f.id), zap.Int("children", n))
			}
		}()
		fut.out, fut.err = w.Mount(f.node.ctx, f)
	}()
	return fut
}

// AttachAll attaches every widget to parent, stopping at the first error.
// Children attached before the error are cancelled.
func AttachAll[O any](ctx context.Context, parent *Fragment, widgets ...Widget[O]) ([]*WidgetFuture[O], error) {
	futs := make([]*WidgetFuture[O], 0, len(widgets))
	for _, w := range widgets {
		fut, err := Attach(ctx, parent, w)
		if err != nil {
			for _, f := range futs {
				f.Cancel()
			}
			return nil, err
		}
		futs = append(futs, fut)
	}
	return futs, nil
}

// AwaitAll waits for every future in any completion order. The first failure
// is returned once all futures have been collected or ctx ends.
func AwaitAll[O any](ctx context.Context, futs []*WidgetFuture[O]) ([]O, error) {
	outs := make([]O, len(futs))
	g, gctx := errgroup.WithContext(ctx)
	for i, fut := range futs {
		g.Go(func() error {
			out, err := fut.Await(gctx)
			outs[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return outs, err
	}
	return outs, nil
}
