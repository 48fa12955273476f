package config

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Derived holds the absolute values the systems read each tick.
// It is recomputed whenever the simulation section changes.
type Derived struct {
	MaxSpeed       float64
	MaxForce       float64
	VisionRadius   float64
	DetectionRange float64

	// StepAngle is the angular spacing between avoidance rays.
	StepAngle float64
	// RayFan holds unit directions in the agent's local frame (+X forward),
	// ordered right then left with increasing deflection.
	RayFan []r2.Vec
}

// ComputeDerived converts the relative simulation parameters into absolute ones.
func ComputeDerived(s SimulationConfig) Derived {
	d := Derived{
		MaxSpeed:     s.MaxSpeed,
		MaxForce:     s.MaxSpeed * s.MaxForce,
		VisionRadius: s.MaxSpeed * s.VisionRadiusFactor,
	}
	d.DetectionRange = d.VisionRadius * s.ObstacleDetectionRadiusRel
	d.StepAngle, d.RayFan = RayFan(s.ObstacleDetectionDensity)
	return d
}

// RayFan builds 2*density directions spread over the forward half plane.
// The i-th pair sits at ±i*step where step = 2π / (2(density+1)),
// so the widest rays stop short of pointing straight back.
func RayFan(density int) (float64, []r2.Vec) {
	if density < 0 {
		density = 0
	}
	step := 2 * math.Pi / float64(2*(density+1))
	fan := make([]r2.Vec, 0, 2*density)
	for i := 1; i <= density; i++ {
		a := float64(i) * step
		fan = append(fan,
			r2.Vec{X: math.Cos(-a), Y: math.Sin(-a)},
			r2.Vec{X: math.Cos(a), Y: math.Sin(a)},
		)
	}
	return step, fan
}
