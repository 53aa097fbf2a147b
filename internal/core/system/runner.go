package system

import (
	"sort"

	"github.com/l1jgo/fragments/internal/core/ecs"
)

// Runner executes systems in phase order once per batch.
type Runner struct {
	systems []System
	sorted  bool
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 8),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

func (r *Runner) Run(w *ecs.World) {
	r.ensureSorted()
	for _, s := range r.systems {
		s.Update(w)
	}
}

// RunPhase only runs the systems registered for phase.
func (r *Runner) RunPhase(phase Phase, w *ecs.World) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(w)
		}
	}
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		// Stable so systems sharing a phase keep registration order.
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
