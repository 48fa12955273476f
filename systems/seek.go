package systems

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/physics"
)

// NearestTarget returns the closest perceived target of the given kind.
// Ties keep the first one encountered.
func NearestTarget(targets []TargetSighting, kind components.TargetKind) (TargetSighting, bool) {
	var best TargetSighting
	found := false
	for _, t := range targets {
		if t.Kind != kind {
			continue
		}
		if !found || t.DistSq < best.DistSq {
			best = t
			found = true
		}
	}
	return best, found
}

// Seek steers toward the nearest seek target.
// The second result reports whether a target was perceived; it drives the
// agent's Chasing flag.
func Seek(self AgentState, targets []TargetSighting, maxSpeed, strength float64) (r2.Vec, bool) {
	t, ok := NearestTarget(targets, components.TargetSeek)
	if !ok {
		return r2.Vec{}, false
	}
	desired := r2.Scale(maxSpeed, physics.Normalize(t.Offset))
	return r2.Scale(strength, physics.Normalize(r2.Sub(desired, self.Vel))), true
}

// Flee steers away from the nearest flee target.
func Flee(self AgentState, targets []TargetSighting, maxSpeed, strength float64) (r2.Vec, bool) {
	t, ok := NearestTarget(targets, components.TargetFlee)
	if !ok {
		return r2.Vec{}, false
	}
	away, ok := physics.SafeNormalize(r2.Scale(-1, t.Offset))
	if !ok {
		// Sitting on the target: any direction away will do, keep going forward.
		away = self.Forward()
	}
	desired := r2.Scale(maxSpeed, away)
	return r2.Scale(strength, physics.Normalize(r2.Sub(desired, self.Vel))), true
}
