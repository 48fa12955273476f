// Package game owns the ECS world and runs the boids tick pipeline.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/physics"
	"github.com/pthm-cable/boids/systems"
	"github.com/pthm-cable/boids/telemetry"
	"github.com/pthm-cable/boids/traits"
)

// Options configures game creation.
type Options struct {
	// Config supplies the structural sections (world, physics, agent,
	// scenario, telemetry). Nil uses config.Default().
	Config *config.Config
	// Store supplies the live steering parameters. Nil creates one seeded
	// from Config.Simulation.
	Store *config.Store

	Seed          int64  // RNG seed for headings and timed targets
	OutputDir     string // directory for CSV/JSON output (empty = disabled)
	SnapshotDir   string // directory for JSON snapshots (empty = disabled)
	LogStats      bool   // emit windowed stats through slog
	Workers       int    // worker pool size (0 = GOMAXPROCS)
	SkipScenario  bool   // start with an empty world
	Metrics       *telemetry.Metrics
	StatsCallback func(telemetry.WindowStats)

	// Snapshot restores a saved world instead of bootstrapping the scenario.
	Snapshot *telemetry.Snapshot
}

// agentSlot is one agent's view for the current tick.
// Stages compute into slots in parallel and apply serially.
type agentSlot struct {
	e       ecs.Entity
	id      uint32
	region  ecs.Entity
	radius  float64
	state   systems.AgentState
	percept systems.Percept

	avoiding bool
	chasing  bool

	// Per-stage intent
	force  r2.Vec
	active bool
}

// Game holds the complete simulation state.
type Game struct {
	world *ecs.World
	cfg   *config.Config
	store *config.Store
	rng   *rand.Rand
	seed  int64

	// Archetype mappers
	agentMapper *ecs.Map6[
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Steering,
		components.Body,
		components.Agent,
	]
	agentFilter *ecs.Filter6[
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Steering,
		components.Body,
		components.Agent,
	]
	regionMapper   *ecs.Map2[components.Position, components.VisionRegion]
	regionFilter   *ecs.Filter2[components.Position, components.VisionRegion]
	targetMapper   *ecs.Map3[components.Position, components.Body, components.Target]
	targetFilter   *ecs.Filter3[components.Position, components.Body, components.Target]
	obstacleMapper *ecs.Map3[components.Position, components.Rotation, components.Obstacle]
	obstacleFilter *ecs.Filter3[components.Position, components.Rotation, components.Obstacle]

	// Individual component mappers for lookups
	posMap      *ecs.Map[components.Position]
	velMap      *ecs.Map[components.Velocity]
	rotMap      *ecs.Map[components.Rotation]
	steerMap    *ecs.Map[components.Steering]
	bodyMap     *ecs.Map[components.Body]
	agentMap    *ecs.Map[components.Agent]
	regionMap   *ecs.Map[components.VisionRegion]
	targetMap   *ecs.Map[components.Target]
	obstacleMap *ecs.Map[components.Obstacle]
	avoidMap    *ecs.Map[components.AvoidObstacle]

	// Agent -> perception region
	regions map[ecs.Entity]ecs.Entity

	// Spatial services
	rayWorld      *physics.RayWorld
	obstacleIndex *physics.ObstacleIndex
	agentGrid     *systems.SpatialGrid
	targetGrid    *systems.SpatialGrid
	perceiver     *systems.Perceiver
	agentsDirty   bool
	targetsDirty  bool

	// Per-tick state
	frame    []agentSlot
	parallel *parallelState
	derived  config.Derived
	sim      config.SimulationConfig
	bounds   systems.Bounds
	scratch  []systems.Neighbor

	// State
	tick        int32
	nextID      uint32
	spawnTimer  float64
	defaultCaps traits.Capability

	// Telemetry
	collector        *telemetry.Collector
	perfCollector    *telemetry.PerfCollector
	bookmarkDetector *telemetry.BookmarkDetector
	lifetimeTracker  *telemetry.LifetimeTracker
	outputManager    *telemetry.OutputManager
	metrics          *telemetry.Metrics
	statsCallback    func(telemetry.WindowStats)
	logStats         bool
	snapshotDir      string
	registry         *systems.SystemRegistry
}

// NewGame creates a game from the embedded defaults.
func NewGame() *Game {
	g, err := NewGameWithOptions(Options{})
	if err != nil {
		panic(fmt.Sprintf("game: default setup failed: %v", err))
	}
	return g
}

// NewGameWithOptions creates a new game instance with the given options.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	store := opts.Store
	if store == nil {
		store = config.NewStore(cfg.Simulation)
	}

	caps, err := traits.Parse(cfg.Agent.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("agent capabilities: %w", err)
	}

	seed := opts.Seed
	if opts.Snapshot != nil && seed == 0 {
		seed = opts.Snapshot.RNGSeed
	}

	world := ecs.NewWorld()

	g := &Game{
		world:       world,
		cfg:         cfg,
		store:       store,
		rng:         rand.New(rand.NewSource(seed)),
		seed:        seed,
		regions:     make(map[ecs.Entity]ecs.Entity),
		defaultCaps: caps,
		bounds: systems.Bounds{
			Width:  cfg.World.Width,
			Height: cfg.World.Height,
			Wrap:   cfg.World.Wrap,
		},
		agentMapper: ecs.NewMap6[
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Steering,
			components.Body,
			components.Agent,
		](world),
		agentFilter: ecs.NewFilter6[
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Steering,
			components.Body,
			components.Agent,
		](world),
		regionMapper:   ecs.NewMap2[components.Position, components.VisionRegion](world),
		regionFilter:   ecs.NewFilter2[components.Position, components.VisionRegion](world),
		targetMapper:   ecs.NewMap3[components.Position, components.Body, components.Target](world),
		targetFilter:   ecs.NewFilter3[components.Position, components.Body, components.Target](world),
		obstacleMapper: ecs.NewMap3[components.Position, components.Rotation, components.Obstacle](world),
		obstacleFilter: ecs.NewFilter3[components.Position, components.Rotation, components.Obstacle](world),
		posMap:         ecs.NewMap[components.Position](world),
		velMap:         ecs.NewMap[components.Velocity](world),
		rotMap:         ecs.NewMap[components.Rotation](world),
		steerMap:       ecs.NewMap[components.Steering](world),
		bodyMap:        ecs.NewMap[components.Body](world),
		agentMap:       ecs.NewMap[components.Agent](world),
		regionMap:      ecs.NewMap[components.VisionRegion](world),
		targetMap:      ecs.NewMap[components.Target](world),
		obstacleMap:    ecs.NewMap[components.Obstacle](world),
		avoidMap:       ecs.NewMap[components.AvoidObstacle](world),

		parallel: newParallelState(opts.Workers),
		scratch:  make([]systems.Neighbor, 0, 64),

		collector:        telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Physics.DT),
		perfCollector:    telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		lifetimeTracker:  telemetry.NewLifetimeTracker(),
		metrics:          opts.Metrics,
		statsCallback:    opts.StatsCallback,
		logStats:         opts.LogStats,
		snapshotDir:      opts.SnapshotDir,
		registry:         systems.NewSystemRegistry(),
	}

	// Spatial services
	g.rayWorld = physics.NewRayWorld()
	g.obstacleIndex = physics.NewObstacleIndex()
	g.agentGrid = systems.NewSpatialGrid(cfg.World.Width, cfg.World.Height, cfg.Physics.GridCellSize, cfg.World.Wrap)
	g.targetGrid = systems.NewSpatialGrid(cfg.World.Width, cfg.World.Height, cfg.Physics.GridCellSize, cfg.World.Wrap)
	g.perceiver = &systems.Perceiver{
		Agents:    g.agentGrid,
		Targets:   g.targetGrid,
		Obstacles: g.obstacleIndex,
		Maps: systems.PerceptionMaps{
			Pos:    g.posMap,
			Vel:    g.velMap,
			Agent:  g.agentMap,
			Body:   g.bodyMap,
			Target: g.targetMap,
		},
		MaxBodyRadius: cfg.Agent.BodyRadius,
	}

	g.derived = store.Derived()
	g.sim = store.Snapshot()

	outputManager, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating output manager: %w", err)
	}
	g.outputManager = outputManager

	switch {
	case opts.Snapshot != nil:
		if err := g.restoreSnapshot(opts.Snapshot); err != nil {
			g.Unload()
			return nil, fmt.Errorf("restoring snapshot: %w", err)
		}
	case !opts.SkipScenario:
		if err := g.spawnScenario(); err != nil {
			g.Unload()
			return nil, fmt.Errorf("spawning scenario: %w", err)
		}
	}

	if g.outputManager != nil {
		if err := g.writeRunHeader(); err != nil {
			g.Unload()
			return nil, err
		}
	}

	return g, nil
}

// Unload stops the worker pool and flushes output files.
func (g *Game) Unload() {
	g.parallel.stopWorkers()
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}

// Tick returns the number of completed ticks.
func (g *Game) Tick() int32 { return g.tick }

// Store returns the live parameter store.
func (g *Game) Store() *config.Store { return g.store }

// Config returns the structural configuration.
func (g *Game) Config() *config.Config { return g.cfg }

// Registry returns the pipeline stage registry.
func (g *Game) Registry() *systems.SystemRegistry { return g.registry }

// PerfStats returns the rolling per-stage timings.
func (g *Game) PerfStats() telemetry.PerfStats { return g.perfCollector.Stats() }

// RunID returns the output run id, empty when output is disabled.
func (g *Game) RunID() string { return g.outputManager.RunID() }

// AgentCount returns the number of live agents.
func (g *Game) AgentCount() int { return len(g.regions) }

// TargetCount returns the number of live targets.
func (g *Game) TargetCount() int {
	n := 0
	query := g.targetFilter.Query()
	for query.Next() {
		n++
	}
	return n
}

// ObstacleCount returns the number of live obstacles.
func (g *Game) ObstacleCount() int { return g.obstacleIndex.Len() }

// AgentView is a read-only copy of one agent's state.
type AgentView struct {
	ID       uint32
	Pos      r2.Vec
	Vel      r2.Vec
	Heading  float64
	Steering r2.Vec
	Caps     traits.Capability
	Special  bool
	Chasing  bool
	Avoiding bool
}

// Agent returns the current state of an agent.
func (g *Game) Agent(e ecs.Entity) (AgentView, bool) {
	if !g.world.Alive(e) || !g.agentMap.Has(e) {
		return AgentView{}, false
	}
	a := g.agentMap.Get(e)
	return AgentView{
		ID:       a.ID,
		Pos:      g.posMap.Get(e).Vec(),
		Vel:      g.velMap.Get(e).Vec(),
		Heading:  g.rotMap.Get(e).Heading,
		Steering: g.steerMap.Get(e).Vec(),
		Caps:     a.Caps,
		Special:  a.Special,
		Chasing:  a.Chasing,
		Avoiding: g.avoidMap.Has(e),
	}, true
}

// Agents returns every live agent entity in query order.
func (g *Game) Agents() []ecs.Entity {
	var out []ecs.Entity
	query := g.agentFilter.Query()
	for query.Next() {
		out = append(out, query.Entity())
	}
	return out
}

// Region returns the perception region of an agent.
func (g *Game) Region(agent ecs.Entity) (ecs.Entity, bool) {
	r, ok := g.regions[agent]
	return r, ok
}

// RegionRadius returns the current radius of an agent's perception region.
func (g *Game) RegionRadius(agent ecs.Entity) (float64, bool) {
	r, ok := g.regions[agent]
	if !ok || !g.regionMap.Has(r) {
		return 0, false
	}
	return g.regionMap.Get(r).Radius, true
}

// SetSteering overwrites an agent's accumulator.
func (g *Game) SetSteering(e ecs.Entity, v r2.Vec) {
	if g.steerMap.Has(e) {
		s := g.steerMap.Get(e)
		s.X, s.Y = v.X, v.Y
	}
}
