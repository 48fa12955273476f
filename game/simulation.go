package game

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/systems"
	"github.com/pthm-cable/boids/telemetry"
	"github.com/pthm-cable/boids/traits"
)

// Step runs a single tick of the simulation.
func (g *Game) Step() {
	start := time.Now()
	g.perfCollector.StartTick()

	// 1. Config changes and accumulator reset
	g.perfCollector.StartPhase(systems.StageConfig)
	derived, changed, prevVision := g.store.BeginTick()
	g.derived = derived
	if changed {
		g.sim = g.store.Snapshot()
	}
	if g.sim.ResetAccumulator {
		g.resetAccumulators()
	}

	// 2. Perception snapshot, taken before regions pick up a new radius
	g.perfCollector.StartPhase(systems.StagePerception)
	g.syncGrids()
	g.collectFrame()
	g.perceive()
	if changed && derived.VisionRadius != prevVision {
		g.resizeRegions(derived.VisionRadius)
	}

	// 3. Seek and flee
	g.perfCollector.StartPhase(systems.StageSeek)
	g.updateSeek()
	g.perfCollector.StartPhase(systems.StageFlee)
	g.updateFlee()

	// 4. Obstacle detection and avoidance
	g.perfCollector.StartPhase(systems.StageDetection)
	g.updateDetection()
	g.perfCollector.StartPhase(systems.StageAvoidance)
	g.updateAvoidance()

	// 5. Flocking
	g.perfCollector.StartPhase(systems.StageSeparation)
	g.runFlocking(traits.Separation, g.sim.SeparationStrength, systems.Separation)
	g.perfCollector.StartPhase(systems.StageCohesion)
	g.runFlocking(traits.Cohesion, g.sim.CohesionStrength, systems.Cohesion)
	g.perfCollector.StartPhase(systems.StageAlignment)
	g.runFlocking(traits.Alignment, g.sim.AlignmentStrength, systems.Alignment)

	// 6. Orient and steer
	g.perfCollector.StartPhase(systems.StageIntegrate)
	g.integrate()

	// 7. Move, wrap and re-index
	g.perfCollector.StartPhase(systems.StageAdvance)
	g.advance()

	// 8. Captures and timed spawning
	g.perfCollector.StartPhase(systems.StageTargets)
	g.updateCaptures()
	g.updateTargetSpawning()

	g.tick++

	// 9. Telemetry
	g.perfCollector.StartPhase(systems.StageTelemetry)
	g.flushTelemetry()
	g.perfCollector.EndTick()

	g.metrics.ObserveTick(time.Since(start), g.tickGauges())
}

// Run steps the simulation n times.
func (g *Game) Run(n int) {
	for i := 0; i < n; i++ {
		g.Step()
	}
}

func (g *Game) resetAccumulators() {
	query := g.agentFilter.Query()
	for query.Next() {
		_, _, _, steer, _, _ := query.Get()
		steer.Reset()
	}
}

// syncGrids rebuilds the neighbour grids that changed since the last rebuild.
func (g *Game) syncGrids() {
	if g.agentsDirty {
		g.agentGrid.Clear()
		query := g.agentFilter.Query()
		for query.Next() {
			pos, _, _, _, _, _ := query.Get()
			g.agentGrid.Insert(query.Entity(), pos.X, pos.Y)
		}
		g.agentsDirty = false
	}
	if g.targetsDirty {
		g.targetGrid.Clear()
		query := g.targetFilter.Query()
		for query.Next() {
			pos, _, _ := query.Get()
			g.targetGrid.Insert(query.Entity(), pos.X, pos.Y)
		}
		g.targetsDirty = false
	}
}

// collectFrame snapshots every agent into a frame slot.
// Percept buffers are kept between ticks.
func (g *Game) collectFrame() {
	n := 0
	query := g.agentFilter.Query()
	for query.Next() {
		e := query.Entity()
		pos, vel, rot, _, _, agent := query.Get()

		if n == len(g.frame) {
			g.frame = append(g.frame, agentSlot{})
		}
		slot := &g.frame[n]
		slot.e = e
		slot.id = agent.ID
		slot.state = systems.AgentState{
			Pos:     pos.Vec(),
			Vel:     vel.Vec(),
			Heading: rot.Heading,
			Caps:    agent.Caps,
		}
		slot.avoiding = g.avoidMap.Has(e)
		slot.chasing = agent.Chasing
		n++
	}
	g.frame = g.frame[:n]

	for i := range g.frame {
		slot := &g.frame[i]
		region, ok := g.regions[slot.e]
		if !ok || !g.regionMap.Has(region) {
			panic(fmt.Sprintf("game: agent %d has no perception region", slot.id))
		}
		slot.region = region
		slot.radius = g.regionMap.Get(region).Radius
	}
}

// perceive fills every slot's percept from its region.
// A region whose owner is gone is an internal consistency failure.
func (g *Game) perceive() {
	query := g.regionFilter.Query()
	for query.Next() {
		_, region := query.Get()
		if !g.world.Alive(region.Owner) || !g.agentMap.Has(region.Owner) {
			e := query.Entity()
			query.Close()
			panic(fmt.Sprintf("game: perception region %v has no owner", e))
		}
	}

	g.parallel.run(len(g.frame), func(start, end int, s *workerScratch) {
		for i := start; i < end; i++ {
			slot := &g.frame[i]
			center := g.posMap.Get(slot.region).Vec()
			s.Neighbors = g.perceiver.Perceive(&slot.percept, slot.e, center, slot.radius, s.Neighbors)
		}
	})
}

// resizeRegions pushes a new vision radius onto every live region.
func (g *Game) resizeRegions(radius float64) {
	if radius < 0 {
		radius = 0
	}
	query := g.regionFilter.Query()
	for query.Next() {
		_, region := query.Get()
		region.Radius = radius
	}
}

// applyIntents adds every active slot's force to its accumulator.
func (g *Game) applyIntents() {
	for i := range g.frame {
		slot := &g.frame[i]
		if !slot.active {
			continue
		}
		g.steerMap.Get(slot.e).Add(slot.force)
	}
}

func (g *Game) updateSeek() {
	maxSpeed, strength := g.derived.MaxSpeed, g.sim.SeekStrength
	g.parallel.run(len(g.frame), func(start, end int, _ *workerScratch) {
		for i := start; i < end; i++ {
			slot := &g.frame[i]
			slot.active = false
			if !slot.state.Caps.Has(traits.Seek) {
				slot.chasing = false
				continue
			}
			slot.force, slot.active = systems.Seek(slot.state, slot.percept.Targets, maxSpeed, strength)
			slot.chasing = slot.active
		}
	})
	g.applyIntents()

	for i := range g.frame {
		slot := &g.frame[i]
		g.agentMap.Get(slot.e).Chasing = slot.chasing
	}
}

func (g *Game) updateFlee() {
	maxSpeed, strength := g.derived.MaxSpeed, g.sim.FleeStrength
	g.parallel.run(len(g.frame), func(start, end int, _ *workerScratch) {
		for i := start; i < end; i++ {
			slot := &g.frame[i]
			slot.active = false
			if !slot.state.Caps.Has(traits.Flee) {
				continue
			}
			slot.force, slot.active = systems.Flee(slot.state, slot.percept.Targets, maxSpeed, strength)
		}
	})
	g.applyIntents()
}

// updateDetection toggles the avoid tag. Clear agents cast only while their
// region overlaps an obstacle; avoiding agents always cast again so they
// clear once the obstacle is gone or out of sight.
// Ray casts run serially; tag changes are applied after the sweep.
func (g *Game) updateDetection() {
	rangeDist := g.derived.DetectionRange

	type transition struct {
		slot    int
		entered bool
	}
	var changes []transition

	g.parallel.runSerial(len(g.frame), func(start, end int, _ *workerScratch) {
		for i := start; i < end; i++ {
			slot := &g.frame[i]
			capable := slot.state.Caps.Has(traits.ObstacleAvoidance)
			if !slot.avoiding && (!capable || len(slot.percept.Obstacles) == 0) {
				continue
			}
			hit := capable && systems.DetectObstacle(g.rayWorld, slot.state, rangeDist)
			if hit != slot.avoiding {
				changes = append(changes, transition{slot: i, entered: hit})
			}
		}
	})

	for _, c := range changes {
		slot := &g.frame[c.slot]
		if c.entered {
			g.avoidMap.Add(slot.e, &components.AvoidObstacle{})
		} else {
			g.avoidMap.Remove(slot.e)
		}
		slot.avoiding = c.entered
		g.recordEvent(telemetry.NewAvoidEvent(g.tick, slot.id, c.entered))
	}
}

func (g *Game) updateAvoidance() {
	fan, maxDist, strength := g.derived.RayFan, g.derived.VisionRadius, g.sim.ObstacleAvoidanceStrength
	g.parallel.runSerial(len(g.frame), func(start, end int, _ *workerScratch) {
		for i := start; i < end; i++ {
			slot := &g.frame[i]
			slot.active = slot.avoiding
			if !slot.active {
				continue
			}
			slot.force = systems.Avoid(g.rayWorld, slot.state, fan, maxDist, strength).Force
		}
	})
	g.applyIntents()
}

type flockingRule func(self systems.AgentState, neighbours []systems.AgentSighting, strength float64) (r2.Vec, bool)

// runFlocking evaluates one flocking rule for every agent carrying capability.
func (g *Game) runFlocking(capability traits.Capability, strength float64, rule flockingRule) {
	g.parallel.run(len(g.frame), func(start, end int, _ *workerScratch) {
		for i := start; i < end; i++ {
			slot := &g.frame[i]
			slot.active = false
			if !slot.state.Caps.Has(capability) || len(slot.percept.Agents) == 0 {
				continue
			}
			slot.force, slot.active = rule(slot.state, slot.percept.Agents, strength)
		}
	})
	g.applyIntents()
}

// integrate orients every agent from its pre-steer velocity, then applies
// the clamped accumulator.
func (g *Game) integrate() {
	maxForce, maxSpeed := g.derived.MaxForce, g.derived.MaxSpeed
	query := g.agentFilter.Query()
	for query.Next() {
		_, vel, rot, steer, _, _ := query.Get()
		rot.Heading = systems.Orient(vel.Vec(), rot.Heading)
		vel.Set(systems.Steer(steer.Vec(), vel.Vec(), maxForce, maxSpeed))
	}
}

// advance moves agents, keeps their regions on top of them and re-indexes.
func (g *Game) advance() {
	dt := g.cfg.Physics.DT
	for i := range g.frame {
		slot := &g.frame[i]
		pos := g.posMap.Get(slot.e)
		vel := g.velMap.Get(slot.e).Vec()

		pos.Set(systems.Advance(pos.Vec(), vel, dt, g.bounds))
		g.posMap.Get(slot.region).Set(pos.Vec())

		g.lifetimeTracker.RecordTick(slot.id, r2.Norm(vel)*dt, slot.avoiding, slot.chasing)
	}
	g.agentsDirty = true
	g.syncGrids()
}
