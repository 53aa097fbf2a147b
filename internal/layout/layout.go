// Package layout builds widget trees from YAML descriptions.
package layout

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/l1jgo/fragments/internal/app"
	"github.com/l1jgo/fragments/internal/widget"
	"gopkg.in/yaml.v3"
)

// ErrNoScripts is returned when a layout uses a script node but no resolver
// was given.
var ErrNoScripts = errors.New("layout uses scripts but none are available")

// Layout is a parsed layout file.
type Layout struct {
	Name string `yaml:"name"`
	Root Node   `yaml:"root"`
}

// Node describes one widget. Exactly one field must be set.
type Node struct {
	Text   *string    `yaml:"text"`
	Clock  *ClockNode `yaml:"clock"`
	Row    *StackNode `yaml:"row"`
	Column *StackNode `yaml:"column"`
	Named  *NamedNode `yaml:"named"`
	Script *string    `yaml:"script"`
}

type ClockNode struct {
	Interval time.Duration `yaml:"interval"`
	Label    string        `yaml:"label"`
}

type StackNode struct {
	Gap      int    `yaml:"gap"`
	Children []Node `yaml:"children"`
}

type NamedNode struct {
	Name  string `yaml:"name"`
	Child Node   `yaml:"child"`
}

// ScriptFunc resolves a script node's file name into a widget.
type ScriptFunc func(name string) (app.Widget[struct{}], error)

// Load reads and parses a layout file.
func Load(path string) (*Layout, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	l, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", path, err)
	}
	return l, nil
}

func Parse(raw []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	return &l, nil
}

// Widget builds the widget tree. When the layout has a name the tree is
// wrapped in a widget.Named.
func (l *Layout) Widget(scripts ScriptFunc) (app.Widget[struct{}], error) {
	w, err := build(l.Root, "root", scripts)
	if err != nil {
		return nil, err
	}
	if l.Name != "" {
		w = widget.Named{Name: l.Name, Child: w}
	}
	return w, nil
}

func build(n Node, path string, scripts ScriptFunc) (app.Widget[struct{}], error) {
	if set := n.kinds(); set != 1 {
		return nil, fmt.Errorf("node %s: expected exactly one widget kind, got %d", path, set)
	}
	switch {
	case n.Text != nil:
		return widget.Text{Value: *n.Text}, nil
	case n.Clock != nil:
		return widget.Clock{Interval: n.Clock.Interval, Label: n.Clock.Label}, nil
	case n.Row != nil:
		return buildStack(widget.Horizontal, *n.Row, path+".row", scripts)
	case n.Column != nil:
		return buildStack(widget.Vertical, *n.Column, path+".column", scripts)
	case n.Named != nil:
		child, err := build(n.Named.Child, path+".named", scripts)
		if err != nil {
			return nil, err
		}
		return widget.Named{Name: n.Named.Name, Child: child}, nil
	default:
		if scripts == nil {
			return nil, fmt.Errorf("node %s: %w", path, ErrNoScripts)
		}
		w, err := scripts(*n.Script)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", path, err)
		}
		return w, nil
	}
}

func buildStack(axis widget.Axis, s StackNode, path string, scripts ScriptFunc) (app.Widget[struct{}], error) {
	children := make([]app.Widget[struct{}], 0, len(s.Children))
	for i, c := range s.Children {
		w, err := build(c, fmt.Sprintf("%s[%d]", path, i), scripts)
		if err != nil {
			return nil, err
		}
		children = append(children, w)
	}
	return widget.Stack{Axis: axis, Gap: s.Gap, Children: children}, nil
}

func (n Node) kinds() int {
	var c int
	for _, set := range []bool{n.Text != nil, n.Clock != nil, n.Row != nil, n.Column != nil, n.Named != nil, n.Script != nil} {
		if set {
			c++
		}
	}
	return c
}
