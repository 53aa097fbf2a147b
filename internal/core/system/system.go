package system

import "github.com/l1jgo/fragments/internal/core/ecs"

// Phase defines execution ordering within a single dispatcher batch.
type Phase int

const (
	PhaseNotify  Phase = iota // 0: wake change watchers
	PhaseOutput               // 1: draw to a render backend
	PhasePersist              // 2: journal the batch's changes
	PhaseCleanup              // 3: reset per-batch state
)

func (p Phase) String() string {
	switch p {
	case PhaseNotify:
		return "notify"
	case PhaseOutput:
		return "output"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System runs on the dispatcher goroutine after every applied batch, with
// exclusive access to the world.
type System interface {
	Phase() Phase
	Update(w *ecs.World)
}

// Func adapts a plain function into a System.
type Func struct {
	At Phase
	Fn func(w *ecs.World)
}

func (f Func) Phase() Phase        { return f.At }
func (f Func) Update(w *ecs.World) { f.Fn(w) }
