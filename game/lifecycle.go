package game

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/physics"
	"github.com/pthm-cable/boids/telemetry"
	"github.com/pthm-cable/boids/traits"
)

// spawnScenario creates the starting grid of agents plus the configured
// obstacles and targets.
func (g *Game) spawnScenario() error {
	sc := g.cfg.Scenario

	for row := 0; row < sc.Rows; row++ {
		for col := 0; col < sc.Columns; col++ {
			heading := g.rng.Float64() * 2 * math.Pi
			pos := r2.Vec{
				X: sc.OriginX + float64(col)*sc.Spacing,
				Y: sc.OriginY + float64(row)*sc.Spacing,
			}
			if g.bounds.Wrap {
				pos = physics.Wrap(pos, g.bounds.Width, g.bounds.Height)
			}
			g.SpawnAgent(AgentSpawn{
				Pos:     pos,
				Vel:     r2.Scale(g.cfg.Agent.InitialSpeed, physics.FromAngle(heading)),
				Angle:   heading,
				Special: sc.SpecialFirst && row == 0 && col == 0,
			})
		}
	}

	for i, oc := range sc.Obstacles {
		req, err := obstacleFromConfig(oc)
		if err != nil {
			return fmt.Errorf("obstacle %d: %w", i, err)
		}
		if _, err := g.SpawnObstacle(req); err != nil {
			return fmt.Errorf("obstacle %d: %w", i, err)
		}
	}

	for i, tc := range sc.Targets {
		kind, err := components.ParseTargetKind(tc.Kind)
		if err != nil {
			return fmt.Errorf("target %d: %w", i, err)
		}
		g.SpawnTarget(r2.Vec{X: tc.X, Y: tc.Y}, kind)
	}

	slog.Info("scenario spawned",
		"agents", g.AgentCount(),
		"obstacles", g.ObstacleCount(),
		"targets", len(sc.Targets),
	)
	return nil
}

func obstacleFromConfig(oc config.ObstacleConfig) (ObstacleSpawn, error) {
	shape, err := parseShape(oc.Shape, oc.Radius, oc.Width, oc.Height)
	if err != nil {
		return ObstacleSpawn{}, err
	}
	color, err := components.ParseColor(oc.Color)
	if err != nil {
		return ObstacleSpawn{}, err
	}
	return ObstacleSpawn{
		Shape: shape,
		Pos:   r2.Vec{X: oc.X, Y: oc.Y},
		Angle: oc.Angle,
		Color: &color,
	}, nil
}

func parseShape(name string, radius, width, height float64) (physics.Shape, error) {
	switch name {
	case "circle":
		return physics.Circle(radius), nil
	case "rectangle":
		return physics.Rectangle(width, height), nil
	default:
		return physics.Shape{}, fmt.Errorf("unknown obstacle shape %q", name)
	}
}

// restoreSnapshot rebuilds the world from a saved snapshot.
// Steering parameters from the snapshot replace the store's.
func (g *Game) restoreSnapshot(s *telemetry.Snapshot) error {
	if s.WorldWidth != g.bounds.Width || s.WorldHeight != g.bounds.Height {
		slog.Warn("snapshot world size differs from config",
			"snapshot_w", s.WorldWidth, "snapshot_h", s.WorldHeight,
			"config_w", g.bounds.Width, "config_h", g.bounds.Height,
		)
	}

	g.store.Replace(s.Simulation)
	g.derived, _, _ = g.store.BeginTick()
	g.sim = g.store.Snapshot()
	g.tick = s.Tick

	for _, rec := range s.Obstacles {
		shape, err := parseShape(rec.Shape, rec.Radius, rec.Width, rec.Height)
		if err != nil {
			return err
		}
		color, err := components.ParseColor(rec.Color)
		if err != nil {
			return err
		}
		if _, err := g.SpawnObstacle(ObstacleSpawn{
			Shape: shape,
			Pos:   r2.Vec{X: rec.X, Y: rec.Y},
			Angle: rec.Angle,
			Color: &color,
		}); err != nil {
			return err
		}
	}

	for _, rec := range s.Targets {
		kind, err := components.ParseTargetKind(rec.Kind)
		if err != nil {
			return err
		}
		g.SpawnTarget(r2.Vec{X: rec.X, Y: rec.Y}, kind)
	}

	for _, rec := range s.Agents {
		caps, err := traits.Parse(rec.Capabilities)
		if err != nil {
			return fmt.Errorf("agent %d: %w", rec.ID, err)
		}
		e := g.spawnAgentWithID(rec.ID, AgentSpawn{
			Pos:     r2.Vec{X: rec.X, Y: rec.Y},
			Vel:     r2.Vec{X: rec.VelX, Y: rec.VelY},
			Angle:   rec.Heading,
			Special: rec.Special,
			Caps:    caps,
		}, components.Steering{X: rec.SteerX, Y: rec.SteerY})

		g.agentMap.Get(e).Chasing = rec.Chasing
		if rec.Avoiding {
			g.avoidMap.Add(e, &components.AvoidObstacle{})
		}
		if rec.Lifetime != nil {
			if ls := g.lifetimeTracker.Get(rec.ID); ls != nil {
				*ls = *rec.Lifetime
				ls.AgentID = rec.ID
			}
		}
		if rec.ID >= g.nextID {
			g.nextID = rec.ID + 1
		}
	}

	// Restored spawns are not window events.
	g.collector.StartAt(g.tick)

	slog.Info("snapshot restored",
		"tick", s.Tick,
		"agents", len(s.Agents),
		"targets", len(s.Targets),
		"obstacles", len(s.Obstacles),
	)
	return nil
}

// updateCaptures despawns every target overlapped by an agent body.
// Targets are collected first and removed after the query completes.
func (g *Game) updateCaptures() {
	type capture struct {
		target ecs.Entity
		kind   components.TargetKind
		agent  ecs.Entity
	}
	var captured []capture

	query := g.targetFilter.Query()
	for query.Next() {
		e := query.Entity()
		pos, body, target := query.Get()

		var agent ecs.Entity
		var ok bool
		agent, ok, g.scratch = g.perceiver.Capturer(e, pos.Vec(), body.Radius, g.scratch)
		if ok {
			captured = append(captured, capture{target: e, kind: target.Kind, agent: agent})
		}
	}

	for _, c := range captured {
		id := g.agentMap.Get(c.agent).ID
		g.DespawnTarget(c.target)
		g.lifetimeTracker.RecordCapture(id)
		g.recordEvent(telemetry.NewCaptureEvent(g.tick, id, c.kind))
	}
	if len(captured) > 0 {
		g.syncGrids()
	}
}

// updateTargetSpawning drops a seek target at a random position every
// targets.spawn_interval seconds, up to targets.max_active.
func (g *Game) updateTargetSpawning() {
	interval := g.cfg.Targets.SpawnInterval
	if interval <= 0 {
		return
	}

	g.spawnTimer += g.cfg.Physics.DT
	for g.spawnTimer >= interval {
		g.spawnTimer -= interval
		if limit := g.cfg.Targets.MaxActive; limit > 0 && g.TargetCount() >= limit {
			continue
		}
		pos := r2.Vec{
			X: g.rng.Float64() * g.bounds.Width,
			Y: g.rng.Float64() * g.bounds.Height,
		}
		g.SpawnTarget(pos, components.TargetSeek)
	}
}
