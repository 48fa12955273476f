package systems

import (
	"testing"

	"github.com/pthm-cable/boids/telemetry"
)

func TestRegistryMatchesPerfPhases(t *testing.T) {
	reg := NewSystemRegistry()
	ids := reg.IDs()
	if len(ids) != len(telemetry.Phases) {
		t.Fatalf("registry has %d stages, perf tracks %d", len(ids), len(telemetry.Phases))
	}
	for i, id := range ids {
		if id != telemetry.Phases[i] {
			t.Errorf("stage %d = %q, perf phase = %q", i, id, telemetry.Phases[i])
		}
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := NewSystemRegistry()
	if got := reg.GetName(StageAvoidance); got != "Obstacle Avoidance" {
		t.Errorf("GetName = %q", got)
	}
	if got := reg.GetName("unknown"); got != "unknown" {
		t.Errorf("GetName fallback = %q", got)
	}
	if _, ok := reg.Get("unknown"); ok {
		t.Error("Get should miss unknown IDs")
	}
	if n := len(reg.ByCategory("steering")); n != 7 {
		t.Errorf("steering stages = %d, want 7", n)
	}
	want := []string{"core", "steering", "physics", "lifecycle", "internal"}
	cats := reg.Categories()
	if len(cats) != len(want) {
		t.Fatalf("Categories = %v", cats)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Errorf("Categories = %v, want %v", cats, want)
			break
		}
	}
}
