package telemetry

import (
	"math"
	"testing"
)

func TestLifetimeTracker(t *testing.T) {
	lt := NewLifetimeTracker()
	lt.Register(1, 0)
	lt.Register(2, 64)
	lt.Register(3, 64)

	lt.RecordCapture(2)
	lt.RecordCapture(2)
	lt.RecordCapture(3)
	lt.RecordCapture(99) // unknown agents are ignored
	lt.RecordTick(1, 2.5, true, false)
	lt.RecordTick(1, 2.5, true, true)
	lt.RecordTick(3, 1, false, true)
	lt.UpdateAges(128, 1.0/64)

	s := lt.Get(1)
	if s == nil || s.AvoidTicks != 2 || s.ChaseTicks != 1 || s.Distance != 5 {
		t.Fatalf("agent 1 = %+v", s)
	}
	if math.Abs(s.AgeSec-2) > 1e-12 || math.Abs(lt.Get(2).AgeSec-1) > 1e-12 {
		t.Errorf("ages = %v, %v", s.AgeSec, lt.Get(2).AgeSec)
	}

	top := lt.Top(2)
	if len(top) != 2 || top[0].AgentID != 2 || top[1].AgentID != 3 {
		t.Errorf("Top(2) = %+v", top)
	}

	if removed := lt.Remove(2); removed == nil || removed.Captures != 2 {
		t.Errorf("Remove = %+v", removed)
	}
	if lt.Count() != 2 || lt.Get(2) != nil {
		t.Error("agent 2 should be gone")
	}
}
