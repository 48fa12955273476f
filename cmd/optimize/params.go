// Package main provides CMA-ES tuning of the boids steering weights.
package main

import (
	"github.com/pthm-cable/boids/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
// max_speed and the detection geometry stay fixed so runs remain comparable.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Flocking
			{Name: "separation", Path: "simulation.separation_strength", Min: 0.1, Max: 5.0, Default: 1.05},
			{Name: "cohesion", Path: "simulation.cohesion_strength", Min: 0.0, Max: 5.0, Default: 1.0},
			{Name: "alignment", Path: "simulation.alignment_strength", Min: 0.0, Max: 2.0, Default: 0.2},
			// Targets
			{Name: "seek", Path: "simulation.seek_strength", Min: 0.0, Max: 2.0, Default: 0.1},
			{Name: "flee", Path: "simulation.flee_strength", Min: 0.0, Max: 2.0, Default: 0.1},
			// Obstacles
			{Name: "avoidance", Path: "simulation.obstacle_avoidance_strength", Min: 0.1, Max: 10.0, Default: 2.0},
			// Limits
			{Name: "max_force", Path: "simulation.max_force", Min: 0.1, Max: 3.0, Default: 0.75},
			{Name: "vision_factor", Path: "simulation.vision_radius_factor", Min: 0.5, Max: 4.0, Default: 1.5},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes parameter values into cfg.Simulation and refreshes
// the derived values. Order must match Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	c := pv.Clamp(values)
	sim := &cfg.Simulation

	sim.SeparationStrength = c[0]
	sim.CohesionStrength = c[1]
	sim.AlignmentStrength = c[2]
	sim.SeekStrength = c[3]
	sim.FleeStrength = c[4]
	sim.ObstacleAvoidanceStrength = c[5]
	sim.MaxForce = c[6]
	sim.VisionRadiusFactor = c[7]

	cfg.Derived = config.ComputeDerived(*sim)
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	sim := cfg.Simulation
	return []float64{
		sim.SeparationStrength,
		sim.CohesionStrength,
		sim.AlignmentStrength,
		sim.SeekStrength,
		sim.FleeStrength,
		sim.ObstacleAvoidanceStrength,
		sim.MaxForce,
		sim.VisionRadiusFactor,
	}
}
