package app

import (
	"errors"

	"github.com/l1jgo/fragments/internal/core/event"
)

var (
	// ErrClosed is returned when the dispatcher has already exited.
	ErrClosed = event.ErrClosed
	// ErrDespawned is returned by every fragment operation once the fragment
	// has started despawning.
	ErrDespawned = errors.New("fragment despawned")
	// ErrExited is returned by Run when an Exit event ends the app before the
	// root widget produced its output.
	ErrExited = errors.New("app exited")
	// ErrEffectPanic wraps a panic raised while the dispatcher applied an event.
	ErrEffectPanic = errors.New("panic in dispatcher")
	// ErrWidgetPanic wraps a panic raised by a widget's Mount.
	ErrWidgetPanic = errors.New("panic in widget")
)
