package system

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/l1jgo/fragments/internal/core/ecs"
)

func TestRunnerOrdersByPhase(t *testing.T) {
	var got []string
	record := func(name string, p Phase) System {
		return Func{At: p, Fn: func(*ecs.World) { got = append(got, name) }}
	}
	r := NewRunner()
	r.Register(record("cleanup", PhaseCleanup))
	r.Register(record("notify", PhaseNotify))
	r.Register(record("persist", PhasePersist))
	r.Register(record("notify2", PhaseNotify))

	r.Run(ecs.NewWorld())
	want := []string{"notify", "notify2", "persist", "cleanup"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}

	got = nil
	r.RunPhase(PhasePersist, ecs.NewWorld())
	if diff := cmp.Diff([]string{"persist"}, got); diff != "" {
		t.Fatalf("phase filter mismatch (-want +got):\n%s", diff)
	}
}
