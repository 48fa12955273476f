package components

import "github.com/mlange-42/ark/ecs"

// VisionRegion is the perception circle of an agent, stored on its own entity.
// The region follows its owner; Owner must always be alive.
type VisionRegion struct {
	Owner  ecs.Entity
	Radius float64
}
