package layout

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/l1jgo/fragments/internal/app"
	"github.com/l1jgo/fragments/internal/widget"
)

const demo = `
name: Application
root:
  row:
    gap: 2
    children:
      - text: "hello"
      - clock:
          interval: 250ms
          label: "up "
      - named:
          name: status
          child:
            script: status.lua
`

func TestParseBuildsTree(t *testing.T) {
	l, err := Parse([]byte(demo))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	status := app.WidgetFunc[struct{}](func(context.Context, *app.Fragment) (struct{}, error) { return struct{}{}, nil })
	var asked []string
	w, err := l.Widget(func(name string) (app.Widget[struct{}], error) {
		asked = append(asked, name)
		return status, nil
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	root, ok := w.(widget.Named)
	if !ok || root.Name != "Application" {
		t.Fatalf("expected named root, got %#v", w)
	}
	row, ok := root.Child.(widget.Stack)
	if !ok {
		t.Fatalf("expected stack, got %T", root.Child)
	}
	if row.Axis != widget.Horizontal || row.Gap != 2 || len(row.Children) != 3 {
		t.Fatalf("unexpected row: %+v", row)
	}
	if diff := cmp.Diff(widget.Text{Value: "hello"}, row.Children[0]); diff != "" {
		t.Fatalf("text mismatch (-want +got):\n%s", diff)
	}
	clock, ok := row.Children[1].(widget.Clock)
	if !ok || clock.Interval != 250*time.Millisecond || clock.Label != "up " {
		t.Fatalf("unexpected clock: %#v", row.Children[1])
	}
	if diff := cmp.Diff([]string{"status.lua"}, asked); diff != "" {
		t.Fatalf("script lookups mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty node", "root: {}", "exactly one widget kind, got 0"},
		{"two kinds", "root:\n  text: a\n  clock: {}", "exactly one widget kind, got 2"},
		{"nested", "root:\n  column:\n    children:\n      - {}", "root.column[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := Parse([]byte(tt.body))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			_, err = l.Widget(nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestScriptWithoutResolver(t *testing.T) {
	l, err := Parse([]byte("root:\n  script: x.lua"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := l.Widget(nil); !errors.Is(err, ErrNoScripts) {
		t.Fatalf("expected ErrNoScripts, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	if err := os.WriteFile(path, []byte(demo), 0o644); err != nil {
		t.Fatal(err)
	}
	l, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if l.Name != "Application" || l.Root.Row == nil {
		t.Fatalf("unexpected layout: %+v", l)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
