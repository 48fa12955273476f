// Package physics holds the geometry helpers and the collision services the
// steering pipeline consumes: box2d ray casts and an R-tree broad phase.
package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Epsilon is the smallest length treated as non-zero.
const Epsilon = 1e-6

// Normalize returns v scaled to unit length, or the zero vector when v is
// shorter than Epsilon.
func Normalize(v r2.Vec) r2.Vec {
	n, _ := SafeNormalize(v)
	return n
}

// SafeNormalize is Normalize that also reports whether v had a direction.
func SafeNormalize(v r2.Vec) (r2.Vec, bool) {
	l := r2.Norm(v)
	if l < Epsilon || math.IsNaN(l) || math.IsInf(l, 0) {
		return r2.Vec{}, false
	}
	return r2.Scale(1/l, v), true
}

// ClampLengthMax scales v down so its length does not exceed max.
func ClampLengthMax(v r2.Vec, max float64) r2.Vec {
	if max <= 0 {
		return r2.Vec{}
	}
	l := r2.Norm(v)
	if l > max {
		return r2.Scale(max/l, v)
	}
	return v
}

// ClampLengthMin scales v up so its length is at least min.
// A vector without direction is returned unchanged.
func ClampLengthMin(v r2.Vec, min float64) r2.Vec {
	l := r2.Norm(v)
	if l < Epsilon || l >= min {
		return v
	}
	return r2.Scale(min/l, v)
}

// FromAngle returns the unit vector at angle a (radians, +X is zero).
func FromAngle(a float64) r2.Vec {
	return r2.Vec{X: math.Cos(a), Y: math.Sin(a)}
}

// Angle returns the direction of v in radians.
func Angle(v r2.Vec) float64 {
	return math.Atan2(v.Y, v.X)
}

// Rotate turns v by a radians counter-clockwise.
func Rotate(v r2.Vec, a float64) r2.Vec {
	s, c := math.Sincos(a)
	return r2.Vec{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c}
}

// Wrap maps v into [0,w) x [0,h).
func Wrap(v r2.Vec, w, h float64) r2.Vec {
	return r2.Vec{X: mod(v.X, w), Y: mod(v.Y, h)}
}

// ToroidalDelta returns the shortest offset from a to b on a w x h torus.
func ToroidalDelta(a, b r2.Vec, w, h float64) r2.Vec {
	d := r2.Sub(b, a)
	if d.X > w/2 {
		d.X -= w
	} else if d.X < -w/2 {
		d.X += w
	}
	if d.Y > h/2 {
		d.Y -= h
	} else if d.Y < -h/2 {
		d.Y += h
	}
	return d
}

func mod(a, b float64) float64 {
	r := math.Mod(a, b)
	if r < 0 {
		r += b
	}
	return r
}
