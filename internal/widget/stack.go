package widget

import (
	"context"
	"errors"

	"github.com/l1jgo/fragments/internal/app"
	"github.com/l1jgo/fragments/internal/core/ecs"
	"golang.org/x/sync/errgroup"
)

// Axis is the direction a Stack lays out its children.
type Axis uint8

const (
	Horizontal Axis = iota
	Vertical
)

func (a Axis) String() string {
	if a == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// Stack attaches its children and keeps them laid out one after another
// along Axis, re-running the layout whenever a child's extent changes.
// It returns once every child has returned.
type Stack struct {
	Axis     Axis
	Gap      int
	Children []app.Widget[struct{}]
}

// Row lays children out left to right.
func Row(gap int, children ...app.Widget[struct{}]) Stack {
	return Stack{Axis: Horizontal, Gap: gap, Children: children}
}

// Column lays children out top to bottom.
func Column(gap int, children ...app.Widget[struct{}]) Stack {
	return Stack{Axis: Vertical, Gap: gap, Children: children}
}

func (s Stack) Mount(ctx context.Context, f *app.Fragment) (struct{}, error) {
	h := f.Handle()
	// Subscribe before attaching so no child extent is missed.
	sig, sub, err := h.Watch(ctx, ecs.ChildrenOf(f.ID()), Extent.ID())
	if err != nil {
		return struct{}{}, err
	}
	defer func() { _ = h.Unwatch(sub) }()

	futs, err := app.AttachAll(ctx, f, s.Children...)
	if err != nil {
		return struct{}{}, err
	}

	relayout := func() error {
		if err := h.Schedule(s.layout(f.ID())); err != nil && !errors.Is(err, app.ErrClosed) {
			return err
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	settled := make(chan struct{})
	g.Go(func() error {
		defer close(settled)
		_, err := app.AwaitAll(gctx, futs)
		return err
	})
	g.Go(func() error {
		for {
			if err := relayout(); err != nil {
				return err
			}
			select {
			case <-sig.C():
			case <-settled:
				return relayout()
			case <-gctx.Done():
				return nil
			}
		}
	})
	return struct{}{}, g.Wait()
}

// layout positions the children of id and sets id's own extent. It runs on
// the dispatcher, so the whole layout lands in one batch.
func (s Stack) layout(id ecs.EntityID) func(w *ecs.World) {
	return func(w *ecs.World) {
		if !w.Alive(id) {
			return
		}
		var main, cross int
		children := w.Children(id)
		for i, c := range children {
			if i > 0 {
				main += s.Gap
			}
			sz, _ := ecs.Get(w, c, Extent)
			p := Point{X: main}
			if s.Axis == Vertical {
				p = Point{Y: main}
				main += sz.H
				cross = max(cross, sz.W)
			} else {
				main += sz.W
				cross = max(cross, sz.H)
			}
			setIfChanged(w, c, Position, p)
		}
		total := Size{W: main, H: cross}
		if s.Axis == Vertical {
			total = Size{W: cross, H: main}
		}
		setIfChanged(w, id, Extent, total)
	}
}

func setIfChanged[T comparable](w *ecs.World, id ecs.EntityID, c ecs.Component[T], v T) {
	if cur, ok := ecs.Get(w, id, c); ok && cur == v {
		return
	}
	_ = ecs.Set(w, id, c, v)
}
