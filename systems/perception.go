package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/physics"
	"github.com/pthm-cable/boids/traits"
)

// AgentState is the read-only view of an agent the behaviours work from.
type AgentState struct {
	Pos     r2.Vec
	Vel     r2.Vec
	Heading float64
	Caps    traits.Capability
}

// Forward returns the unit direction of travel, falling back to the heading
// when the agent is at rest.
func (s AgentState) Forward() r2.Vec {
	if dir, ok := physics.SafeNormalize(s.Vel); ok {
		return dir
	}
	return physics.FromAngle(s.Heading)
}

// AgentSighting is another agent inside the perception region.
type AgentSighting struct {
	E      ecs.Entity
	Offset r2.Vec // other.Pos - self.Pos
	Vel    r2.Vec
	Caps   traits.Capability
	DistSq float64
}

// TargetSighting is a target inside the perception region.
type TargetSighting struct {
	E      ecs.Entity
	Offset r2.Vec
	Kind   components.TargetKind
	DistSq float64
}

// Percept is everything one agent perceives in a tick.
type Percept struct {
	Agents    []AgentSighting
	Targets   []TargetSighting
	Obstacles []ecs.Entity
}

// Reset empties the percept, keeping its buffers.
func (p *Percept) Reset() {
	p.Agents = p.Agents[:0]
	p.Targets = p.Targets[:0]
	p.Obstacles = p.Obstacles[:0]
}

// PerceptionMaps bundles the component access perception needs.
type PerceptionMaps struct {
	Pos    *ecs.Map[components.Position]
	Vel    *ecs.Map[components.Velocity]
	Agent  *ecs.Map[components.Agent]
	Body   *ecs.Map[components.Body]
	Target *ecs.Map[components.Target]
}

// Perceiver answers overlap queries for perception regions.
// Agents and targets are found through grids, obstacles through the R-tree.
type Perceiver struct {
	Agents    *SpatialGrid
	Targets   *SpatialGrid
	Obstacles *physics.ObstacleIndex
	Maps      PerceptionMaps

	// MaxBodyRadius widens the agent grid query so every body that could
	// touch the region is considered before the exact test.
	MaxBodyRadius float64
}

// Perceive fills dst with what a region of the given radius centred on the
// owner sees. scratch is reused between calls and returned.
func (p *Perceiver) Perceive(dst *Percept, owner ecs.Entity, center r2.Vec, radius float64, scratch []Neighbor) []Neighbor {
	dst.Reset()
	if radius < 0 {
		radius = 0
	}

	scratch = p.Agents.QueryRadiusInto(scratch[:0], center.X, center.Y, radius+p.MaxBodyRadius, owner, p.Maps.Pos)
	for _, n := range scratch {
		if !p.Maps.Agent.Has(n.E) {
			continue
		}
		var body float64
		if p.Maps.Body.Has(n.E) {
			body = p.Maps.Body.Get(n.E).Radius
		}
		if reach := radius + body; n.DistSq > reach*reach {
			continue
		}
		var vel r2.Vec
		if p.Maps.Vel.Has(n.E) {
			vel = p.Maps.Vel.Get(n.E).Vec()
		}
		dst.Agents = append(dst.Agents, AgentSighting{
			E:      n.E,
			Offset: n.Offset,
			Vel:    vel,
			Caps:   p.Maps.Agent.Get(n.E).Caps,
			DistSq: n.DistSq,
		})
	}

	scratch = p.Targets.QueryRadiusInto(scratch[:0], center.X, center.Y, radius+components.MaxTargetRadius(), owner, p.Maps.Pos)
	for _, n := range scratch {
		if !p.Maps.Target.Has(n.E) {
			continue
		}
		kind := p.Maps.Target.Get(n.E).Kind
		if reach := radius + kind.Info().Radius; n.DistSq > reach*reach {
			continue
		}
		dst.Targets = append(dst.Targets, TargetSighting{E: n.E, Offset: n.Offset, Kind: kind, DistSq: n.DistSq})
	}

	if p.Obstacles != nil {
		dst.Obstacles = p.Obstacles.QueryCircleInto(dst.Obstacles, center, radius)
	}
	return scratch
}
