// Package components defines ECS components for the simulation.
package components

import "gonum.org/v1/gonum/spatial/r2"

// Position represents an entity's world position.
type Position struct {
	X, Y float64
}

// Vec returns the position as a vector.
func (p Position) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// Set overwrites the position from a vector.
func (p *Position) Set(v r2.Vec) { p.X, p.Y = v.X, v.Y }

// Velocity represents an entity's velocity in world units per second.
type Velocity struct {
	X, Y float64
}

// Vec returns the velocity as a vector.
func (v Velocity) Vec() r2.Vec { return r2.Vec{X: v.X, Y: v.Y} }

// Set overwrites the velocity from a vector.
func (v *Velocity) Set(w r2.Vec) { v.X, v.Y = w.X, w.Y }

// Rotation represents an entity's facing.
// For agents it is derived from velocity every tick and lags it by one tick.
type Rotation struct {
	Heading float64 // radians, +X is zero
}

// Steering is the per-agent force accumulator.
// Behaviours add to it; integration reads it. It is only cleared when
// simulation.reset_accumulator is on.
type Steering struct {
	X, Y float64
}

// Vec returns the accumulated force.
func (s Steering) Vec() r2.Vec { return r2.Vec{X: s.X, Y: s.Y} }

// Add accumulates a force contribution.
func (s *Steering) Add(f r2.Vec) {
	s.X += f.X
	s.Y += f.Y
}

// Reset zeroes the accumulator.
func (s *Steering) Reset() { s.X, s.Y = 0, 0 }

// AvoidObstacle marks agents whose forward ray currently hits an obstacle.
// Presence is the state; there is no boolean form.
type AvoidObstacle struct{}
