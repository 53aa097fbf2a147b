// Package widget holds the stock widgets: text, a clock, stacks and a named
// wrapper. They only talk to the runtime through their fragment.
package widget

import (
	"fmt"

	"github.com/l1jgo/fragments/internal/core/ecs"
)

// Size is a cell extent.
type Size struct {
	W, H int
}

// Point is a cell offset relative to the parent's origin.
type Point struct {
	X, Y int
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

var (
	// Content is the text a fragment displays.
	Content = ecs.NewComponent[string]("content")
	// Extent is the space a fragment occupies, in cells.
	Extent = ecs.NewComponent[Size]("extent")
	// Position places a fragment relative to its parent.
	Position = ecs.NewComponent[Point]("position")
)
