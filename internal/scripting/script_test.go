package scripting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/l1jgo/fragments/internal/app"
	"github.com/l1jgo/fragments/internal/core/ecs"
	"github.com/l1jgo/fragments/internal/widget"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func newEngine(t *testing.T, scripts map[string]string) *Engine {
	t.Helper()
	dir := t.TempDir()
	for name, src := range scripts {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	e, err := NewEngine(dir, zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel)))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func run[O any](t *testing.T, root app.WidgetFunc[O]) (O, error) {
	t.Helper()
	a := app.New(zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel)))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return app.Run(ctx, a, root)
}

func TestEngineLoadsDirectory(t *testing.T) {
	e := newEngine(t, map[string]string{
		"a.lua":      `set("a")`,
		"b.lua":      `set("b")`,
		"readme.txt": `not lua`,
	})
	if diff := cmp.Diff([]string{"a.lua", "b.lua"}, e.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if _, err := e.Widget("c.lua"); !errors.Is(err, ErrUnknownScript) {
		t.Fatalf("expected ErrUnknownScript, got %v", err)
	}
}

func TestEngineRejectsSyntaxErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.lua"), []byte("set(("), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewEngine(dir, zaptest.NewLogger(t))
	if err == nil || !strings.Contains(err.Error(), "bad.lua") {
		t.Fatalf("expected parse error naming bad.lua, got %v", err)
	}
}

func TestScriptWritesFragment(t *testing.T) {
	e := newEngine(t, map[string]string{
		"status.lua": `
name("status")
set("ready v" .. API_VERSION)
log("status set")
`,
	})
	w, err := e.Widget("status.lua")
	if err != nil {
		t.Fatal(err)
	}
	type observed struct{ Name, Content string }
	got, err := run(t, func(ctx context.Context, f *app.Fragment) (observed, error) {
		if _, err := app.Put(ctx, f, w); err != nil {
			return observed{}, err
		}
		var o observed
		err := f.Read(ctx, func(r app.ReadGuard) {
			o.Name, _ = app.Value(r, ecs.Name)
			o.Content, _ = app.Value(r, widget.Content)
		})
		return o, err
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff(observed{Name: "status", Content: "ready v1"}, got); diff != "" {
		t.Fatalf("fragment mismatch (-want +got):\n%s", diff)
	}
}

func TestScriptLibraries(t *testing.T) {
	e := newEngine(t, map[string]string{
		"libs.lua": `
if os ~= nil or io ~= nil or package ~= nil then error("host access") end
set(string.upper("ok") .. " " .. math.max(1, 2) .. " " .. table.concat({"a", "b"}, ","))
`,
	})
	w, err := e.Widget("libs.lua")
	if err != nil {
		t.Fatal(err)
	}
	got, err := run(t, func(ctx context.Context, f *app.Fragment) (string, error) {
		if _, err := app.Put(ctx, f, w); err != nil {
			return "", err
		}
		var content string
		err := f.Read(ctx, func(r app.ReadGuard) { content, _ = app.Value(r, widget.Content) })
		return content, err
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got != "OK 2 a,b" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestScriptRuntimeErrorFailsWidget(t *testing.T) {
	e := newEngine(t, map[string]string{"bad.lua": `error("no luck")`})
	w, err := e.Widget("bad.lua")
	if err != nil {
		t.Fatal(err)
	}
	_, err = run(t, func(ctx context.Context, f *app.Fragment) (struct{}, error) {
		fut, err := app.Attach(ctx, f, w)
		if err != nil {
			return struct{}{}, err
		}
		return fut.Await(ctx)
	})
	if err == nil || !strings.Contains(err.Error(), "no luck") {
		t.Fatalf("expected script error, got %v", err)
	}
}

func TestCancelStopsScript(t *testing.T) {
	e := newEngine(t, map[string]string{
		"sleepy.lua": `
set("waiting")
while true do sleep(0.01) end
`,
		"busy.lua": `
set("spinning")
local n = 0
while true do n = n + 1 end
`,
	})
	for _, name := range []string{"sleepy.lua", "busy.lua"} {
		t.Run(name, func(t *testing.T) {
			w, err := e.Widget(name)
			if err != nil {
				t.Fatal(err)
			}
			alive, err := run(t, func(ctx context.Context, f *app.Fragment) (bool, error) {
				sig, _, err := f.Handle().Watch(ctx, ecs.ChildrenOf(f.ID()), widget.Content.ID())
				if err != nil {
					return false, err
				}
				fut, err := app.Attach(ctx, f, w)
				if err != nil {
					return false, err
				}
				if err := sig.Wait(ctx); err != nil {
					return false, err
				}
				fut.Cancel()
				if _, err := fut.Await(ctx); !errors.Is(err, context.Canceled) {
					return false, fmt.Errorf("expected cancellation, got %v", err)
				}
				var alive bool
				err = f.Read(ctx, func(r app.ReadGuard) { alive = r.World().Alive(fut.ID()) })
				return alive, err
			})
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if alive {
				t.Fatal("cancelled script fragment still alive")
			}
		})
	}
}
