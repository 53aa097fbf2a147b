package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/l1jgo/fragments/internal/app"
	"github.com/l1jgo/fragments/internal/core/ecs"
	"github.com/l1jgo/fragments/internal/widget"
	"go.uber.org/zap"
)

// Key is the event broadcast to hooked fragments for every key press.
type Key struct {
	Key  tcell.Key
	Rune rune
	Mod  tcell.ModMask
}

func (k Key) String() string {
	if k.Key == tcell.KeyRune {
		return string(k.Rune)
	}
	return tcell.NewEventKey(k.Key, k.Rune, k.Mod).Name()
}

// Resize is broadcast when the terminal changes size.
type Resize struct {
	W, H int
}

// IsQuit reports whether ev should stop the app: q, Escape or Ctrl-C.
func IsQuit(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q' || ev.Rune() == 'Q'
	}
	return false
}

// Input pumps terminal events into the app until it is cancelled. Quit keys
// request Exit; every other key is broadcast as a Key.
type Input struct {
	Screen tcell.Screen
	Quit   func(*tcell.EventKey) bool
}

func (in Input) Mount(ctx context.Context, f *app.Fragment) (struct{}, error) {
	quit := in.Quit
	if quit == nil {
		quit = IsQuit
	}
	h := f.Handle()
	log := h.Logger().With(zap.String("component", "input"))

	events := make(chan tcell.Event, 32)
	stop := make(chan struct{})
	defer close(stop)
	go in.Screen.ChannelEvents(events, stop)

	for {
		var ev tcell.Event
		select {
		case <-ctx.Done():
			return struct{}{}, ctx.Err()
		case ev = <-events:
		}
		if ev == nil {
			return struct{}{}, nil // screen finalised
		}
		var err error
		switch ev := ev.(type) {
		case *tcell.EventResize:
			in.Screen.Sync()
			w, hgt := ev.Size()
			err = h.Broadcast(Resize{W: w, H: hgt})
		case *tcell.EventKey:
			if quit(ev) {
				log.Info("quit requested", zap.String("key", ev.Name()))
				err = h.Exit()
			} else {
				err = h.Broadcast(Key{Key: ev.Key(), Rune: ev.Rune(), Mod: ev.Modifiers()})
			}
		}
		if errors.Is(err, app.ErrClosed) {
			return struct{}{}, nil
		}
		if err != nil {
			return struct{}{}, fmt.Errorf("pump input: %w", err)
		}
	}
}

// LastKey shows the most recent key press. Its content is written by an
// event hook on the dispatcher, so it needs no goroutine of its own once
// mounted.
type LastKey struct {
	Prompt string
}

func (lk LastKey) Mount(ctx context.Context, f *app.Fragment) (struct{}, error) {
	text := func(s string) string { return lk.Prompt + s }
	return struct{}{}, f.Update(func(g *app.WriteGuard) {
		g.Set(widget.Content.With(text("")), widget.Extent.With(widget.Measure(text(""))))
		g.OnEvent(func(id ecs.EntityID, w *ecs.World, ev any) {
			k, ok := ev.(Key)
			if !ok {
				return
			}
			v := text(k.String())
			_ = ecs.Set(w, id, widget.Content, v)
			_ = ecs.Set(w, id, widget.Extent, widget.Measure(v))
		})
	})
}
