package game

import (
	"fmt"
	"log/slog"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/physics"
	"github.com/pthm-cable/boids/telemetry"
	"github.com/pthm-cable/boids/traits"
)

// AgentSpawn describes a new agent.
type AgentSpawn struct {
	Pos     r2.Vec
	Vel     r2.Vec
	Angle   float64 // initial heading, radians
	Special bool
	Caps    traits.Capability // zero uses agent.capabilities from the config
}

// ObstacleSpawn describes a new static obstacle.
type ObstacleSpawn struct {
	Shape physics.Shape
	Pos   r2.Vec
	Angle float64
	Color *components.Color // nil uses the default obstacle color
}

// SpawnAgent creates an agent and its perception region.
func (g *Game) SpawnAgent(req AgentSpawn) ecs.Entity {
	id := g.nextID
	g.nextID++
	return g.spawnAgentWithID(id, req, components.Steering{})
}

func (g *Game) spawnAgentWithID(id uint32, req AgentSpawn, steer components.Steering) ecs.Entity {
	caps := req.Caps
	if caps == 0 {
		caps = g.defaultCaps
	}

	pos := components.Position{X: req.Pos.X, Y: req.Pos.Y}
	vel := components.Velocity{X: req.Vel.X, Y: req.Vel.Y}
	rot := components.Rotation{Heading: req.Angle}
	body := components.Body{Radius: g.cfg.Agent.BodyRadius}
	agent := components.Agent{ID: id, Caps: caps, Special: req.Special}

	entity := g.agentMapper.NewEntity(&pos, &vel, &rot, &steer, &body, &agent)

	// The region starts at the owner's position with the current radius.
	regionPos := pos
	region := components.VisionRegion{Owner: entity, Radius: g.derived.VisionRadius}
	g.regions[entity] = g.regionMapper.NewEntity(&regionPos, &region)

	g.lifetimeTracker.Register(id, g.tick)
	g.recordEvent(telemetry.NewAgentEvent(g.tick, id, true))
	g.agentsDirty = true

	return entity
}

// DespawnAgent removes an agent together with its perception region.
func (g *Game) DespawnAgent(e ecs.Entity) bool {
	if !g.world.Alive(e) || !g.agentMap.Has(e) {
		return false
	}
	id := g.agentMap.Get(e).ID

	if region, ok := g.regions[e]; ok {
		if g.world.Alive(region) {
			g.world.RemoveEntity(region)
		}
		delete(g.regions, e)
	}
	g.world.RemoveEntity(e)

	if stats := g.lifetimeTracker.Remove(id); stats != nil && g.logStats {
		slog.Debug("agent despawned", "id", id, "captures", stats.Captures, "distance", stats.Distance)
	}
	g.recordEvent(telemetry.NewAgentEvent(g.tick, id, false))
	g.agentsDirty = true
	return true
}

// SpawnTarget creates a target of the given kind.
func (g *Game) SpawnTarget(pos r2.Vec, kind components.TargetKind) ecs.Entity {
	p := components.Position{X: pos.X, Y: pos.Y}
	body := components.Body{Radius: kind.Info().Radius}
	target := components.Target{Kind: kind}

	entity := g.targetMapper.NewEntity(&p, &body, &target)
	g.recordEvent(telemetry.NewTargetSpawnEvent(g.tick, kind))
	g.targetsDirty = true
	return entity
}

// DespawnTarget removes a target.
func (g *Game) DespawnTarget(e ecs.Entity) bool {
	if !g.world.Alive(e) || !g.targetMap.Has(e) {
		return false
	}
	g.world.RemoveEntity(e)
	g.targetsDirty = true
	return true
}

// SpawnObstacle creates a static obstacle and registers it with the ray-cast
// world and the perception broad phase.
func (g *Game) SpawnObstacle(req ObstacleSpawn) (ecs.Entity, error) {
	switch req.Shape.Kind {
	case physics.ShapeCircle:
		if !(req.Shape.Radius > 0) {
			return ecs.Entity{}, fmt.Errorf("circle obstacle radius must be positive, got %v", req.Shape.Radius)
		}
	case physics.ShapeRectangle:
		if !(req.Shape.Width > 0) || !(req.Shape.Height > 0) {
			return ecs.Entity{}, fmt.Errorf("rectangle obstacle size must be positive, got %vx%v", req.Shape.Width, req.Shape.Height)
		}
	default:
		return ecs.Entity{}, fmt.Errorf("unknown obstacle shape %v", req.Shape.Kind)
	}

	pos := components.Position{X: req.Pos.X, Y: req.Pos.Y}
	rot := components.Rotation{Heading: req.Angle}
	obstacle := components.Obstacle{Shape: req.Shape, Color: components.DefaultObstacleColor}
	if req.Color != nil {
		obstacle.Color = *req.Color
	}

	entity := g.obstacleMapper.NewEntity(&pos, &rot, &obstacle)

	if err := g.rayWorld.Add(entity, req.Shape, req.Pos, req.Angle, physics.LayerObstacles); err != nil {
		g.world.RemoveEntity(entity)
		return ecs.Entity{}, fmt.Errorf("registering obstacle collider: %w", err)
	}
	if err := g.obstacleIndex.Insert(entity, req.Shape, req.Pos, req.Angle); err != nil {
		g.rayWorld.Remove(entity)
		g.world.RemoveEntity(entity)
		return ecs.Entity{}, fmt.Errorf("indexing obstacle: %w", err)
	}

	return entity, nil
}

// DespawnObstacle removes an obstacle from the world and both spatial services.
func (g *Game) DespawnObstacle(e ecs.Entity) bool {
	if !g.world.Alive(e) || !g.obstacleMap.Has(e) {
		return false
	}
	g.rayWorld.Remove(e)
	g.obstacleIndex.Remove(e)
	g.world.RemoveEntity(e)
	return true
}
