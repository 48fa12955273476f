package components

import "github.com/pthm-cable/boids/traits"

// Agent bundles identity and behaviour participation for a boid.
type Agent struct {
	ID      uint32
	Caps    traits.Capability // behaviours this agent takes part in
	Special bool              // privileged debug agent
	Chasing bool              // a seek target is currently perceived
}
