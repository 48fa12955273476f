package game

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/telemetry"
)

// recordEvent feeds one event to the window collector and the metrics.
func (g *Game) recordEvent(ev telemetry.Event) {
	g.collector.Record(ev)
	g.metrics.ObserveEvent(ev)
}

// tickGauges reads the per-tick population from the current frame.
func (g *Game) tickGauges() telemetry.TickGauges {
	if g.metrics == nil {
		return telemetry.TickGauges{}
	}
	tg := telemetry.TickGauges{
		Agents:        len(g.frame),
		Targets:       g.TargetCount(),
		ConfigVersion: g.store.Version(),
	}
	for i := range g.frame {
		if g.frame[i].avoiding {
			tg.Avoiding++
		}
		if g.frame[i].chasing {
			tg.Chasing++
		}
	}
	return tg
}

// writeRunHeader saves the manifest and the effective config at startup.
func (g *Game) writeRunHeader() error {
	if err := g.outputManager.WriteManifest(telemetry.Manifest{
		StartedAt: time.Now().UTC(),
		Seed:      g.seed,
		Agents:    g.AgentCount(),
		Obstacles: g.ObstacleCount(),
	}); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	// Record the parameters actually in effect, which may come from a snapshot.
	effective := *g.cfg
	effective.Simulation = g.store.Snapshot()
	if err := g.outputManager.WriteConfig(&effective); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Game) flushTelemetry() {
	if every := g.cfg.Telemetry.SnapshotEvery; every > 0 && g.snapshotDir != "" && g.tick%int32(every) == 0 {
		g.saveSnapshot(nil)
	}

	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	stats := g.collector.Flush(g.tick, g.sampleFlock())
	perfStats := g.perfCollector.Stats()

	g.lifetimeTracker.UpdateAges(g.tick, g.cfg.Physics.DT)
	g.metrics.ObserveWindow(stats)

	// Call stats callback if provided
	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	// Log stats if enabled (console output)
	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	// Write to CSV if output manager is enabled
	if g.outputManager != nil {
		if err := g.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	// Check for bookmarks
	bookmarks := g.bookmarkDetector.Check(stats)
	for _, bm := range bookmarks {
		if g.logStats {
			bm.LogBookmark()
		}

		if g.outputManager != nil {
			if err := g.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}

		// Save snapshot on bookmark
		if g.snapshotDir != "" {
			g.saveSnapshot(&bm)
		}
	}
}

// sampleFlock reads the window-end flock state from the current frame.
func (g *Game) sampleFlock() telemetry.FlockSample {
	sample := telemetry.FlockSample{
		Agents:     len(g.frame),
		Targets:    g.TargetCount(),
		Obstacles:  g.ObstacleCount(),
		Velocities: make([]r2.Vec, 0, len(g.frame)),
		Neighbours: make([]float64, 0, len(g.frame)),
	}

	for i := range g.frame {
		slot := &g.frame[i]
		if slot.avoiding {
			sample.Avoiding++
		}
		if slot.chasing {
			sample.Chasing++
		}
		sample.Velocities = append(sample.Velocities, g.velMap.Get(slot.e).Vec())
		sample.Neighbours = append(sample.Neighbours, float64(len(slot.percept.Agents)))
	}

	return sample
}

// saveSnapshot creates and saves a snapshot to disk.
func (g *Game) saveSnapshot(bookmark *telemetry.Bookmark) {
	snapshot := g.Snapshot()
	snapshot.Bookmark = bookmark

	path, err := telemetry.SaveSnapshot(snapshot, g.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}

	slog.Info("snapshot saved", "path", path, "tick", g.tick)
}

// Snapshot captures the complete world state.
func (g *Game) Snapshot() *telemetry.Snapshot {
	snapshot := &telemetry.Snapshot{
		Version:       telemetry.SnapshotVersion,
		RunID:         g.outputManager.RunID(),
		RNGSeed:       g.seed,
		WorldWidth:    g.bounds.Width,
		WorldHeight:   g.bounds.Height,
		Wrap:          g.bounds.Wrap,
		Tick:          g.tick,
		ConfigVersion: g.store.Version(),
		Simulation:    g.store.Snapshot(),
	}

	// Collect agent states
	query := g.agentFilter.Query()
	for query.Next() {
		e := query.Entity()
		pos, vel, rot, steer, _, agent := query.Get()

		var lifetime *telemetry.LifetimeStats
		if ls := g.lifetimeTracker.Get(agent.ID); ls != nil {
			cp := *ls
			lifetime = &cp
		}

		snapshot.Agents = append(snapshot.Agents, telemetry.AgentRecord{
			ID:           agent.ID,
			X:            pos.X,
			Y:            pos.Y,
			VelX:         vel.X,
			VelY:         vel.Y,
			Heading:      rot.Heading,
			SteerX:       steer.X,
			SteerY:       steer.Y,
			Capabilities: agent.Caps.Names(),
			Special:      agent.Special,
			Chasing:      agent.Chasing,
			Avoiding:     g.avoidMap.Has(e),
			Lifetime:     lifetime,
		})
	}

	tq := g.targetFilter.Query()
	for tq.Next() {
		pos, _, target := tq.Get()
		snapshot.Targets = append(snapshot.Targets, telemetry.TargetRecord{
			Kind: target.Kind.String(),
			X:    pos.X,
			Y:    pos.Y,
		})
	}

	oq := g.obstacleFilter.Query()
	for oq.Next() {
		pos, rot, obstacle := oq.Get()
		snapshot.Obstacles = append(snapshot.Obstacles, telemetry.ObstacleRecord{
			Shape:  obstacle.Shape.Kind.String(),
			X:      pos.X,
			Y:      pos.Y,
			Angle:  rot.Heading,
			Radius: obstacle.Shape.Radius,
			Width:  obstacle.Shape.Width,
			Height: obstacle.Shape.Height,
			Color:  obstacle.Color.Hex(),
		})
	}

	return snapshot
}

// Penetrations counts agents whose body currently overlaps an obstacle.
func (g *Game) Penetrations() int {
	var hits []ecs.Entity
	n := 0
	query := g.agentFilter.Query()
	for query.Next() {
		pos, _, _, _, body, _ := query.Get()
		c := pos.Vec()
		hits = g.obstacleIndex.QueryCircleInto(hits[:0], c, body.Radius)
		if len(hits) > 0 {
			n++
		}
	}
	return n
}
