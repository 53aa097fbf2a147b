// Package render draws the widget tree onto a tcell screen and feeds key
// input back into it.
package render

import (
	"sort"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/l1jgo/fragments/internal/app"
	"github.com/l1jgo/fragments/internal/core/ecs"
	"github.com/l1jgo/fragments/internal/core/system"
	"github.com/l1jgo/fragments/internal/widget"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"
)

// Renderer is an output-phase system. It redraws the screen after any batch
// that changed content or placement, at most once per MinInterval.
//
// Every field is owned by the dispatcher goroutine.
type Renderer struct {
	screen      tcell.Screen
	h           *app.Handle
	log         *zap.Logger
	minInterval time.Duration

	sub     ecs.SubscriptionID
	dirty   bool
	pending bool
	last    time.Time
	frames  int
}

// NewRenderer creates a renderer for screen. h may be nil, in which case a
// frame skipped by the interval limit waits for the next batch.
func NewRenderer(screen tcell.Screen, h *app.Handle, log *zap.Logger, minInterval time.Duration) *Renderer {
	return &Renderer{
		screen:      screen,
		h:           h,
		log:         log.With(zap.String("component", "render")),
		minInterval: minInterval,
		dirty:       true,
	}
}

func (r *Renderer) Phase() system.Phase { return system.PhaseOutput }

// Wake marks the screen stale. It is called by the notify phase.
func (r *Renderer) Wake() { r.dirty = true }

// Frames returns how many frames have been drawn.
func (r *Renderer) Frames() int { return r.frames }

func (r *Renderer) Update(w *ecs.World) {
	if r.sub == 0 {
		r.sub = ecs.Subscribe(w, r, ecs.AnyEntity(), widget.Content.ID(), widget.Position.ID())
	}
	if !r.dirty {
		return
	}
	now := time.Now()
	if wait := r.minInterval - now.Sub(r.last); wait > 0 {
		r.deferFrame(wait)
		return
	}
	r.Draw(w)
	r.dirty, r.pending, r.last = false, false, now
}

// deferFrame queues an empty batch for when the interval has passed, so the
// last change of a burst is not left undrawn.
func (r *Renderer) deferFrame(wait time.Duration) {
	if r.pending || r.h == nil {
		return
	}
	r.pending = true
	h := r.h
	time.AfterFunc(wait, func() { _ = h.Schedule(func(*ecs.World) {}) })
}

type placed struct {
	id   ecs.EntityID
	at   widget.Point
	text string
}

// Draw paints every entity with content at its absolute position, in entity
// order so later widgets draw over earlier ones.
func (r *Renderer) Draw(w *ecs.World) {
	var items []placed
	ecs.Each(w, widget.Content, func(id ecs.EntityID, text string) {
		items = append(items, placed{id: id, at: absolute(w, id), text: text})
	})
	sort.Slice(items, func(i, j int) bool { return items[i].id.Index() < items[j].id.Index() })

	r.screen.Clear()
	style := tcell.StyleDefault
	for _, it := range items {
		for dy, line := range strings.Split(it.text, "\n") {
			putString(r.screen, it.at.X, it.at.Y+dy, line, style)
		}
	}
	r.screen.Show()
	r.frames++
	r.log.Debug("frame", zap.Int("items", len(items)), zap.Int("frame", r.frames))
}

// absolute sums positions from id up to its root.
func absolute(w *ecs.World, id ecs.EntityID) widget.Point {
	var p widget.Point
	for cur, ok := id, true; ok; cur, ok = w.Parent(cur) {
		off, _ := ecs.Get(w, cur, widget.Position)
		p = p.Add(off)
	}
	return p
}

// putString draws s starting at (x, y), advancing by each rune's cell width.
func putString(s tcell.Screen, x, y int, str string, style tcell.Style) {
	for _, c := range str {
		cw := runewidth.RuneWidth(c)
		if cw == 0 {
			continue
		}
		s.SetContent(x, y, c, nil, style)
		if cw == 2 {
			// Fill the second column to avoid rendering artifacts.
			s.SetContent(x+1, y, ' ', nil, style)
		}
		x += cw
	}
}
