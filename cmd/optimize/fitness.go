package main

import (
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/game"
	"github.com/pthm-cable/boids/telemetry"
)

// Fitness weights. Lower fitness is better.
const (
	captureWeight      = 1.0  // per capture per simulated minute
	polarizationWeight = 2.0  // mean polarization in [0, 1]
	penetrationWeight  = 10.0 // mean fraction of agents inside an obstacle

	penetrationEvery = 16 // ticks between penetration samples
	warmupWindows    = 1  // windows skipped when averaging polarization

	// Spawn interval used when the base config has timed spawning off,
	// so seek strength has something to act on.
	fallbackSpawnInterval = 2.0
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int32
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	bestFitness float64
	lastResult  Summary // aggregate of the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// Summary is the per-run score breakdown, averaged across seeds by Evaluate.
type Summary struct {
	CapturesPerMin   float64
	Polarization     float64
	PenetrationRatio float64
}

// Fitness folds a summary into the scalar the optimizer minimizes.
func (s Summary) Fitness() float64 {
	return -(captureWeight*s.CapturesPerMin + polarizationWeight*s.Polarization) +
		penetrationWeight*s.PenetrationRatio
}

// LastSummary returns the averaged breakdown from the most recent evaluation.
func (fe *FitnessEvaluator) LastSummary() Summary {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastResult
}

// BestFitness returns the lowest fitness seen so far.
func (fe *FitnessEvaluator) BestFitness() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestFitness
}

// runResult holds the results from a single simulation run.
type runResult struct {
	windowStats       []telemetry.WindowStats // collected via StatsCallback each window
	penetrationSum    float64
	penetrationSample int
	ticks             int32
	dt                float64
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Seeds run concurrently; a failed run scores +Inf.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	summaries := make([]Summary, len(fe.seeds))

	var eg errgroup.Group
	for i, seed := range fe.seeds {
		eg.Go(func() error {
			result, err := fe.runSimulation(x, seed)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			summaries[i] = summarize(result)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		fmt.Printf("evaluation failed: %v\n", err)
		return math.Inf(1)
	}

	var avg Summary
	for _, s := range summaries {
		avg.CapturesPerMin += s.CapturesPerMin
		avg.Polarization += s.Polarization
		avg.PenetrationRatio += s.PenetrationRatio
	}
	n := float64(len(summaries))
	avg.CapturesPerMin /= n
	avg.Polarization /= n
	avg.PenetrationRatio /= n

	fitness := avg.Fitness()

	fe.mu.Lock()
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
	}
	fe.lastResult = avg
	fe.mu.Unlock()

	return fitness
}

// runSimulation executes a single headless simulation run.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) (*runResult, error) {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	result := &runResult{dt: cfg.Physics.DT}

	g, err := game.NewGameWithOptions(game.Options{
		Config:  cfg,
		Seed:    seed,
		Workers: 1, // seeds already run in parallel
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		return nil, err
	}
	defer g.Unload()

	for g.Tick() < fe.maxTicks {
		g.Step()
		if g.Tick()%penetrationEvery == 0 {
			if agents := g.AgentCount(); agents > 0 {
				result.penetrationSum += float64(g.Penetrations()) / float64(agents)
			}
			result.penetrationSample++
		}
	}
	result.ticks = g.Tick()
	return result, nil
}

// copyConfig returns a config that one run may mutate freely.
// Scenario slices are shared but only read by the game.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	if cfg.Targets.SpawnInterval <= 0 {
		cfg.Targets.SpawnInterval = fallbackSpawnInterval
	}
	return &cfg
}

// summarize reduces one run to its score components.
func summarize(r *runResult) Summary {
	var s Summary

	var captures int
	for _, w := range r.windowStats {
		captures += w.Captures()
	}
	if minutes := float64(r.ticks) * r.dt / 60; minutes > 0 {
		s.CapturesPerMin = float64(captures) / minutes
	}

	if len(r.windowStats) > warmupWindows {
		valid := r.windowStats[warmupWindows:]
		for _, w := range valid {
			s.Polarization += w.Polarization
		}
		s.Polarization /= float64(len(valid))
	}

	if r.penetrationSample > 0 {
		s.PenetrationRatio = r.penetrationSum / float64(r.penetrationSample)
	}
	return s
}
