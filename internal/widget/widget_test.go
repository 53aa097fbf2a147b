package widget

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/l1jgo/fragments/internal/app"
	"github.com/l1jgo/fragments/internal/core/ecs"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func newApp(t *testing.T) *app.App {
	t.Helper()
	return app.New(zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel)))
}

func TestTextNormalisesAndMeasures(t *testing.T) {
	type observed struct {
		Content string
		Extent  Size
	}
	a := newApp(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := app.Run(ctx, a, app.WidgetFunc[observed](func(ctx context.Context, f *app.Fragment) (observed, error) {
		if _, err := app.Put(ctx, f, Text{Value: "cafe\u0301\n日本"}); err != nil {
			return observed{}, err
		}
		var o observed
		err := f.Read(ctx, func(r app.ReadGuard) {
			o.Content, _ = app.Value(r, Content)
			o.Extent, _ = app.Value(r, Extent)
		})
		return o, err
	}))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := observed{Content: "caf\u00e9\n日本", Extent: Size{W: 4, H: 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("text mismatch (-want +got):\n%s", diff)
	}
}

func TestStackLaysOutChildren(t *testing.T) {
	type placed struct {
		Positions []Point
		Extent    Size
	}
	tests := []struct {
		name  string
		stack Stack
		want  placed
	}{
		{
			name:  "row",
			stack: Row(1, Text{Value: "ab"}, Text{Value: "cde"}, Text{Value: "f\ng"}),
			want:  placed{Positions: []Point{{0, 0}, {3, 0}, {7, 0}}, Extent: Size{W: 8, H: 2}},
		},
		{
			name:  "column",
			stack: Column(0, Text{Value: "ab"}, Text{Value: "cde"}),
			want:  placed{Positions: []Point{{0, 0}, {0, 1}}, Extent: Size{W: 3, H: 2}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			got, err := app.Run(ctx, newApp(t), app.WidgetFunc[placed](func(ctx context.Context, f *app.Fragment) (placed, error) {
				if _, err := app.Put(ctx, f, tt.stack); err != nil {
					return placed{}, err
				}
				var p placed
				err := f.Read(ctx, func(r app.ReadGuard) {
					for _, c := range r.Children() {
						pos, _ := app.ValueOf(r, c, Position)
						p.Positions = append(p.Positions, pos)
					}
					p.Extent, _ = app.Value(r, Extent)
				})
				return p, err
			}))
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("layout mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStackFailsWithChild(t *testing.T) {
	boom := errors.New("boom")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := app.Run(ctx, newApp(t), Row(0,
		Text{Value: "ok"},
		app.WidgetFunc[struct{}](func(context.Context, *app.Fragment) (struct{}, error) { return struct{}{}, boom }),
	))
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestClockEndToEnd(t *testing.T) {
	clock := Clock{Interval: 500 * time.Millisecond}

	type observed struct {
		Name        string
		Seen        []string
		ClockAlive  bool
		WorldLength int
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a := newApp(t)
	got, err := app.Run(ctx, a, app.WidgetFunc[observed](func(rootCtx context.Context, root *app.Fragment) (observed, error) {
		var o observed
		h := root.Handle()
		if err := root.Set(ecs.Name.With("Application")); err != nil {
			return o, err
		}
		fut, err := app.Attach(rootCtx, root, app.Widget[struct{}](clock))
		if err != nil {
			return o, err
		}
		sig, _, err := h.Watch(ctx, ecs.OnEntity(fut.ID()), Content.ID())
		if err != nil {
			return o, err
		}

		deadline := time.After(1200 * time.Millisecond)
	watch:
		for {
			var content string
			err := h.Read(ctx, func(w *ecs.World) { content, _ = ecs.Get(w, fut.ID(), Content) })
			if err != nil {
				return o, err
			}
			if content != "" && (len(o.Seen) == 0 || o.Seen[len(o.Seen)-1] != content) {
				o.Seen = append(o.Seen, content)
			}
			select {
			case <-sig.C():
			case <-deadline:
				break watch
			}
		}

		if err := h.Read(ctx, func(w *ecs.World) { o.Name, _ = ecs.Get(w, root.ID(), ecs.Name) }); err != nil {
			return o, err
		}
		if err := root.Despawn(); err != nil {
			return o, err
		}
		<-fut.Done()
		// ctx, not rootCtx: the root's own context is cancelled by now.
		err = h.Read(ctx, func(w *ecs.World) {
			o.ClockAlive = w.Alive(fut.ID())
			o.WorldLength = w.Len()
		})
		return o, err
	}))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got.Name != "Application" {
		t.Fatalf("expected root name Application, got %q", got.Name)
	}
	if len(got.Seen) < 2 {
		t.Fatalf("expected at least two clock updates, saw %v", got.Seen)
	}
	var prev time.Duration = -1
	for _, v := range got.Seen {
		d, err := time.ParseDuration(strings.TrimPrefix(v, DefaultClockLabel))
		if err != nil {
			t.Fatalf("clock content %q: %v", v, err)
		}
		if d <= prev {
			t.Fatalf("elapsed time did not increase: %v", got.Seen)
		}
		prev = d
	}
	if got.ClockAlive || got.WorldLength != 0 {
		t.Fatalf("despawning the root left entities: %+v", got)
	}
}

func TestClockKeepsAssignedPosition(t *testing.T) {
	at := Point{X: 5, Y: 1}
	type observed struct {
		Content string
		Pos     Point
		HasPos  bool
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := app.Run(ctx, newApp(t), app.WidgetFunc[observed](func(ctx context.Context, root *app.Fragment) (observed, error) {
		var o observed
		h := root.Handle()
		fut, err := app.Attach(ctx, root, app.Widget[struct{}](Clock{Interval: 10 * time.Millisecond}))
		if err != nil {
			return o, err
		}
		sig, _, err := h.Watch(ctx, ecs.OnEntity(fut.ID()), Content.ID())
		if err != nil {
			return o, err
		}
		read := func() error {
			return h.Read(ctx, func(w *ecs.World) {
				o.Content, _ = ecs.Get(w, fut.ID(), Content)
				o.Pos, o.HasPos = ecs.Get(w, fut.ID(), Position)
			})
		}
		for {
			if err := read(); err != nil {
				return o, err
			}
			if o.Content != "" {
				break
			}
			if err := sig.Wait(ctx); err != nil {
				return o, err
			}
		}
		// Place the started clock the way a parent stack would, then let it
		// tick.
		if err := h.Read(ctx, func(w *ecs.World) { _ = ecs.Set(w, fut.ID(), Position, at) }); err != nil {
			return o, err
		}
		for changes := 0; changes < 2; {
			before := o.Content
			if err := sig.Wait(ctx); err != nil {
				return o, err
			}
			if err := read(); err != nil {
				return o, err
			}
			if o.Content != before {
				changes++
			}
		}
		return o, nil
	}))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !got.HasPos || got.Pos != at {
		t.Fatalf("tick dropped the assigned position: %+v", got)
	}
	if !strings.HasPrefix(got.Content, DefaultClockLabel) {
		t.Fatalf("unexpected clock content %q", got.Content)
	}
}
