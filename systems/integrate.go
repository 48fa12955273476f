package systems

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/physics"
)

// Orient derives the heading from the current velocity.
// An agent at rest keeps its previous heading.
func Orient(vel r2.Vec, heading float64) float64 {
	if r2.Norm(vel) < physics.Epsilon {
		return heading
	}
	return physics.Angle(vel)
}

// Steer applies the accumulated force (mass 1) to the velocity.
// The force is clamped to maxForce and the result to maxSpeed.
func Steer(acc, vel r2.Vec, maxForce, maxSpeed float64) r2.Vec {
	a := physics.ClampLengthMax(acc, maxForce)
	return physics.ClampLengthMax(r2.Add(vel, a), maxSpeed)
}

// Bounds describes the world rectangle positions live in.
type Bounds struct {
	Width, Height float64
	Wrap          bool
}

// Advance moves a position by vel over dt, wrapping when the world does.
func Advance(pos, vel r2.Vec, dt float64, b Bounds) r2.Vec {
	next := r2.Add(pos, r2.Scale(dt, vel))
	if b.Wrap {
		next = physics.Wrap(next, b.Width, b.Height)
	}
	return next
}
