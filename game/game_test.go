package game

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/physics"
	"github.com/pthm-cable/boids/telemetry"
	"github.com/pthm-cable/boids/traits"
)

// newTestGame builds an empty, non-wrapping world from the defaults.
func newTestGame(t *testing.T, mutate func(cfg *config.Config), opts ...func(*Options)) *Game {
	t.Helper()
	cfg := config.Default()
	cfg.World.Wrap = false
	if mutate != nil {
		mutate(cfg)
	}
	o := Options{Config: cfg, SkipScenario: true, Seed: 1}
	for _, fn := range opts {
		fn(&o)
	}
	g, err := NewGameWithOptions(o)
	require.NoError(t, err)
	t.Cleanup(g.Unload)
	return g
}

func agentView(t *testing.T, g *Game, e ecs.Entity) AgentView {
	t.Helper()
	v, ok := g.Agent(e)
	require.True(t, ok, "agent %v not found", e)
	return v
}

func TestTwoAgentSeparation(t *testing.T) {
	g := newTestGame(t, func(cfg *config.Config) {
		cfg.Simulation.SeparationStrength = 100
	})

	a := g.SpawnAgent(AgentSpawn{Pos: r2.Vec{X: 100, Y: 100}, Caps: traits.Separation})
	b := g.SpawnAgent(AgentSpawn{Pos: r2.Vec{X: 110, Y: 100}, Caps: traits.Separation})

	g.Step()

	va, vb := agentView(t, g, a), agentView(t, g, b)
	assert.InDelta(t, 100, r2.Norm(va.Steering), 1e-9)
	assert.InDelta(t, 100, r2.Norm(vb.Steering), 1e-9)
	assert.Less(t, va.Steering.X, 0.0, "a is pushed away from b")
	assert.Greater(t, vb.Steering.X, 0.0, "b is pushed away from a")
	assert.InDelta(t, 0, va.Steering.X+vb.Steering.X, 1e-9)
}

func TestSingleAgentSeek(t *testing.T) {
	g := newTestGame(t, nil)

	a := g.SpawnAgent(AgentSpawn{Pos: r2.Vec{X: 100, Y: 100}, Angle: math.Pi / 2, Caps: traits.Seek})
	g.SpawnTarget(r2.Vec{X: 200, Y: 100}, components.TargetSeek)

	g.Step()
	v := agentView(t, g, a)
	assert.Greater(t, v.Vel.X, 0.0)
	assert.InDelta(t, 0, v.Vel.Y, 1e-12)
	assert.True(t, v.Chasing)
	// Heading lags velocity by one tick.
	assert.InDelta(t, math.Pi/2, v.Heading, 1e-12)

	g.Step()
	v = agentView(t, g, a)
	assert.InDelta(t, 0, v.Heading, 1e-9)
	assert.Equal(t, 1, g.TargetCount())
}

func TestChasingClearsWithoutTarget(t *testing.T) {
	g := newTestGame(t, nil)
	a := g.SpawnAgent(AgentSpawn{Pos: r2.Vec{X: 100, Y: 100}, Caps: traits.Seek})
	target := g.SpawnTarget(r2.Vec{X: 200, Y: 100}, components.TargetSeek)

	g.Step()
	require.True(t, agentView(t, g, a).Chasing)

	require.True(t, g.DespawnTarget(target))
	g.Step()
	assert.False(t, agentView(t, g, a).Chasing)
}

func TestEmptyNeighbourhoodLeavesAccumulator(t *testing.T) {
	g := newTestGame(t, nil)
	a := g.SpawnAgent(AgentSpawn{Pos: r2.Vec{X: 100, Y: 100}, Caps: traits.Flocking})
	g.SetSteering(a, r2.Vec{X: 1, Y: 2})

	g.Step()

	assert.Equal(t, r2.Vec{X: 1, Y: 2}, agentView(t, g, a).Steering)
}

func TestAccumulatorResetModes(t *testing.T) {
	for _, tc := range []struct {
		name  string
		reset bool
		want  float64
	}{
		{"carried", false, 0.2},
		{"reset", true, 0.1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGame(t, func(cfg *config.Config) {
				cfg.Simulation.ResetAccumulator = tc.reset
			})
			a := g.SpawnAgent(AgentSpawn{Pos: r2.Vec{X: 100, Y: 100}, Caps: traits.Seek})
			g.SpawnTarget(r2.Vec{X: 300, Y: 100}, components.TargetSeek)

			g.Run(2)

			assert.InDelta(t, tc.want, agentView(t, g, a).Steering.X, 1e-9)
		})
	}
}

func TestIntegrationNeverExceedsMaxSpeed(t *testing.T) {
	g := newTestGame(t, nil)
	a := g.SpawnAgent(AgentSpawn{Pos: r2.Vec{X: 600, Y: 300}, Caps: traits.Seek})
	g.SetSteering(a, r2.Vec{X: 1e9, Y: -1e9})

	g.Run(5)

	maxSpeed := g.Store().Derived().MaxSpeed
	assert.LessOrEqual(t, r2.Norm(agentView(t, g, a).Vel), maxSpeed+1e-9)
}

func TestVisionRadiusResyncsNextTick(t *testing.T) {
	g := newTestGame(t, func(cfg *config.Config) {
		cfg.Simulation.SeparationStrength = 1
	})
	a := g.SpawnAgent(AgentSpawn{Pos: r2.Vec{X: 100, Y: 100}, Caps: traits.Separation})
	g.SpawnAgent(AgentSpawn{Pos: r2.Vec{X: 350, Y: 100}, Caps: traits.Separation})

	before, ok := g.RegionRadius(a)
	require.True(t, ok)
	assert.InDelta(t, 225, before, 1e-9)

	require.NoError(t, g.Store().Set("vision_radius_factor", 2))
	g.Step()

	after, _ := g.RegionRadius(a)
	assert.InDelta(t, 300, after, 1e-9)
	assert.Equal(t, r2.Vec{}, agentView(t, g, a).Steering, "this tick still perceived with the old radius")

	g.Step()
	assert.Less(t, agentView(t, g, a).Steering.X, 0.0, "the neighbour is perceived once the region grew")
}

func TestCaptureDespawnsTarget(t *testing.T) {
	var windows []telemetry.WindowStats
	g := newTestGame(t, func(cfg *config.Config) {
		cfg.Telemetry.StatsWindow = cfg.Physics.DT
	}, func(o *Options) {
		o.StatsCallback = func(s telemetry.WindowStats) { windows = append(windows, s) }
	})
	g.SpawnAgent(AgentSpawn{Pos: r2.Vec{X: 100, Y: 100}, Caps: traits.Seek})
	g.SpawnTarget(r2.Vec{X: 105, Y: 100}, components.TargetFlee)

	g.Step()

	assert.Equal(t, 0, g.TargetCount())
	require.Len(t, windows, 1)
	assert.Equal(t, 1, windows[0].FleeCaptures)

	snap := g.Snapshot()
	require.Len(t, snap.Agents, 1)
	require.NotNil(t, snap.Agents[0].Lifetime)
	assert.Equal(t, 1, snap.Agents[0].Lifetime.Captures)
}

func TestObstacleDetectionTogglesTag(t *testing.T) {
	g := newTestGame(t, nil)
	a := g.SpawnAgent(AgentSpawn{
		Pos:  r2.Vec{X: 100, Y: 100},
		Vel:  r2.Vec{X: 50},
		Caps: traits.ObstacleAvoidance,
	})
	_, err := g.SpawnObstacle(ObstacleSpawn{Shape: physics.Circle(20), Pos: r2.Vec{X: 150, Y: 100}})
	require.NoError(t, err)

	g.Step()

	assert.True(t, agentView(t, g, a).Avoiding)
}

func TestObstacleDetectionRemovesTag(t *testing.T) {
	snap := &telemetry.Snapshot{
		Version:     telemetry.SnapshotVersion,
		WorldWidth:  1280,
		WorldHeight: 720,
		Simulation:  config.Default().Simulation,
		Agents: []telemetry.AgentRecord{{
			ID: 7, X: 100, Y: 100, VelX: 50,
			Capabilities: []string{"obstacle_avoidance"},
			Avoiding:     true,
		}, {
			ID: 8, X: 900, Y: 600, VelX: 50,
			Capabilities: []string{"obstacle_avoidance"},
			Avoiding:     true,
		}},
		// Beside the first agent's path, far from the second.
		Obstacles: []telemetry.ObstacleRecord{{Shape: "circle", X: 100, Y: 160, Radius: 20}},
	}
	g := newTestGame(t, nil, func(o *Options) { o.Snapshot = snap })

	g.Step()

	byID := map[uint32]AgentView{}
	for _, e := range g.Agents() {
		v, _ := g.Agent(e)
		byID[v.ID] = v
	}
	assert.False(t, byID[7].Avoiding, "a clear forward ray removes the tag")
	assert.False(t, byID[8].Avoiding, "avoiding agents are re-checked with no obstacle in sight")
}

func TestObstacleDetectionClearsWhenObstacleDespawned(t *testing.T) {
	g := newTestGame(t, nil)
	a := g.SpawnAgent(AgentSpawn{
		Pos:  r2.Vec{X: 100, Y: 100},
		Vel:  r2.Vec{X: 50},
		Caps: traits.ObstacleAvoidance,
	})
	o, err := g.SpawnObstacle(ObstacleSpawn{Shape: physics.Circle(20), Pos: r2.Vec{X: 150, Y: 100}})
	require.NoError(t, err)

	g.Step()
	require.True(t, agentView(t, g, a).Avoiding)

	require.True(t, g.DespawnObstacle(o))
	g.Step()

	assert.False(t, agentView(t, g, a).Avoiding)
}

func TestObstacleDetectionFromInsideObstacle(t *testing.T) {
	g := newTestGame(t, nil)
	a := g.SpawnAgent(AgentSpawn{
		Pos:  r2.Vec{X: 110, Y: 100},
		Vel:  r2.Vec{X: 50},
		Caps: traits.ObstacleAvoidance,
	})
	_, err := g.SpawnObstacle(ObstacleSpawn{Shape: physics.Circle(50), Pos: r2.Vec{X: 100, Y: 100}})
	require.NoError(t, err)

	g.Step()

	assert.True(t, agentView(t, g, a).Avoiding)
}

func TestDespawnAgentRemovesRegion(t *testing.T) {
	g := newTestGame(t, nil)
	a := g.SpawnAgent(AgentSpawn{Pos: r2.Vec{X: 100, Y: 100}})
	region, ok := g.Region(a)
	require.True(t, ok)

	require.True(t, g.DespawnAgent(a))

	assert.False(t, g.world.Alive(a))
	assert.False(t, g.world.Alive(region))
	assert.Equal(t, 0, g.AgentCount())
	assert.False(t, g.DespawnAgent(a), "second despawn is a no-op")

	g.Step()
}

func TestSpawnAgentDefaultsCapabilities(t *testing.T) {
	g := newTestGame(t, nil)
	a := g.SpawnAgent(AgentSpawn{Pos: r2.Vec{X: 10, Y: 10}, Special: true})

	v := agentView(t, g, a)
	assert.Equal(t, traits.Default, v.Caps)
	assert.True(t, v.Special)
}

func TestSpawnObstacleRejectsBadShape(t *testing.T) {
	g := newTestGame(t, nil)
	_, err := g.SpawnObstacle(ObstacleSpawn{Shape: physics.Circle(0)})
	assert.Error(t, err)
	_, err = g.SpawnObstacle(ObstacleSpawn{Shape: physics.Rectangle(10, -1)})
	assert.Error(t, err)
	assert.Equal(t, 0, g.ObstacleCount())

	e, err := g.SpawnObstacle(ObstacleSpawn{Shape: physics.Rectangle(10, 20), Pos: r2.Vec{X: 50, Y: 50}})
	require.NoError(t, err)
	assert.Equal(t, 1, g.ObstacleCount())
	assert.True(t, g.DespawnObstacle(e))
	assert.Equal(t, 0, g.ObstacleCount())
}

func TestSpawnObstacleColor(t *testing.T) {
	g := newTestGame(t, nil)

	plain, err := g.SpawnObstacle(ObstacleSpawn{Shape: physics.Circle(10)})
	require.NoError(t, err)
	assert.Equal(t, components.DefaultObstacleColor, g.obstacleMap.Get(plain).Color)

	black := components.Color{A: 255}
	dark, err := g.SpawnObstacle(ObstacleSpawn{Shape: physics.Circle(10), Color: &black})
	require.NoError(t, err)
	assert.Equal(t, black, g.obstacleMap.Get(dark).Color)

	zero := components.Color{}
	transparent, err := g.SpawnObstacle(ObstacleSpawn{Shape: physics.Circle(10), Color: &zero})
	require.NoError(t, err)
	assert.Equal(t, zero, g.obstacleMap.Get(transparent).Color)
}

func TestTimedTargetSpawning(t *testing.T) {
	g := newTestGame(t, func(cfg *config.Config) {
		cfg.Targets.SpawnInterval = 10 * cfg.Physics.DT
		cfg.Targets.MaxActive = 2
	})

	g.Run(9)
	assert.Equal(t, 0, g.TargetCount())
	g.Run(1)
	assert.Equal(t, 1, g.TargetCount())
	g.Run(100)
	assert.Equal(t, 2, g.TargetCount())
}

func TestDefaultScenario(t *testing.T) {
	g, err := NewGameWithOptions(Options{Seed: 42})
	require.NoError(t, err)
	t.Cleanup(g.Unload)

	assert.Equal(t, 60, g.AgentCount())
	assert.Equal(t, 2, g.ObstacleCount())
	assert.Equal(t, 1, g.TargetCount())

	special := 0
	for _, e := range g.Agents() {
		v, _ := g.Agent(e)
		if v.Special {
			special++
		}
	}
	assert.Equal(t, 1, special)

	g.Run(200)

	maxSpeed := g.Store().Derived().MaxSpeed
	cfg := g.Config()
	for _, e := range g.Agents() {
		v, _ := g.Agent(e)
		assert.LessOrEqual(t, r2.Norm(v.Vel), maxSpeed+1e-9)
		assert.True(t, v.Pos.X >= 0 && v.Pos.X < cfg.World.Width && v.Pos.Y >= 0 && v.Pos.Y < cfg.World.Height,
			"wrapped position %v", v.Pos)
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	run := func(workers int) *telemetry.Snapshot {
		cfg := config.Default()
		cfg.Scenario.Columns = 12
		cfg.Scenario.Rows = 8 // above the parallel threshold
		cfg.Scenario.Spacing = 20
		g, err := NewGameWithOptions(Options{Config: cfg, Seed: 3, Workers: workers})
		require.NoError(t, err)
		defer g.Unload()
		g.Run(30)
		return g.Snapshot()
	}

	serial, parallel := run(1), run(4)
	require.Len(t, parallel.Agents, len(serial.Agents))
	for i := range serial.Agents {
		s, p := serial.Agents[i], parallel.Agents[i]
		s.Lifetime, p.Lifetime = nil, nil
		assert.Equal(t, s, p)
	}
}

func TestSnapshotRestore(t *testing.T) {
	g, err := NewGameWithOptions(Options{Seed: 5})
	require.NoError(t, err)
	defer g.Unload()
	require.NoError(t, g.Store().Set("cohesion_strength", 3))
	g.Run(20)

	snap := g.Snapshot()
	restored, err := NewGameWithOptions(Options{Snapshot: snap})
	require.NoError(t, err)
	defer restored.Unload()

	assert.Equal(t, g.Tick(), restored.Tick())
	assert.Equal(t, g.AgentCount(), restored.AgentCount())
	assert.Equal(t, g.TargetCount(), restored.TargetCount())
	assert.Equal(t, g.ObstacleCount(), restored.ObstacleCount())
	v, _ := restored.Store().Get("cohesion_strength")
	assert.Equal(t, 3.0, v)

	again := restored.Snapshot()
	again.RunID, again.ConfigVersion = snap.RunID, snap.ConfigVersion
	assert.Equal(t, snap, again)

	// Both worlds continue identically.
	g.Run(10)
	restored.Run(10)
	a, b := g.Snapshot(), restored.Snapshot()
	require.Len(t, b.Agents, len(a.Agents))
	for i := range a.Agents {
		assert.InDelta(t, a.Agents[i].X, b.Agents[i].X, 1e-9)
		assert.InDelta(t, a.Agents[i].Y, b.Agents[i].Y, 1e-9)
	}
}

func TestOutputAndSnapshots(t *testing.T) {
	dir := t.TempDir()
	snapDir := filepath.Join(dir, "snapshots")
	cfg := config.Default()
	cfg.Telemetry.StatsWindow = 8 * cfg.Physics.DT
	cfg.Telemetry.SnapshotEvery = 10

	g, err := NewGameWithOptions(Options{
		Config:      cfg,
		Seed:        9,
		OutputDir:   dir,
		SnapshotDir: snapDir,
		Metrics:     telemetry.NewMetrics(),
	})
	require.NoError(t, err)
	g.Run(20)
	g.Unload()

	for _, name := range []string{"manifest.json", "config.yaml", "telemetry.csv", "perf.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	loaded, err := telemetry.LoadSnapshot(filepath.Join(snapDir, "snapshot_10.json"))
	require.NoError(t, err)
	assert.Equal(t, int32(10), loaded.Tick)
	assert.Len(t, loaded.Agents, 60)
	assert.NotEmpty(t, g.RunID())
	assert.Equal(t, g.RunID(), loaded.RunID)
}

func TestPenetrations(t *testing.T) {
	g := newTestGame(t, nil)
	g.SpawnAgent(AgentSpawn{Pos: r2.Vec{X: 100, Y: 100}})
	g.SpawnAgent(AgentSpawn{Pos: r2.Vec{X: 400, Y: 400}})
	_, err := g.SpawnObstacle(ObstacleSpawn{Shape: physics.Rectangle(40, 40), Pos: r2.Vec{X: 125, Y: 100}})
	require.NoError(t, err)

	assert.Equal(t, 1, g.Penetrations())
}
