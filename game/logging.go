package game

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/telemetry"
)

// LogPerf logs the rolling per-stage timings in pipeline order.
func (g *Game) LogPerf() {
	stats := g.perfCollector.Stats()
	slog.Info("perf",
		"tick", g.tick,
		"avg_tick", stats.AvgTickDuration.Round(time.Microsecond),
		"ticks_per_sec", stats.TicksPerSecond,
	)
	for _, info := range g.registry.All() {
		avg, ok := stats.PhaseAvg[info.ID]
		if !ok {
			continue
		}
		slog.Debug("stage",
			"name", info.Name,
			"category", info.Category,
			"avg", avg.Round(time.Microsecond),
			"pct", stats.PhasePct[info.ID],
		)
	}
}

// LogWorldState logs a one-line summary of the world.
func (g *Game) LogWorldState() {
	var avoiding, chasing, special int
	var speedSum float64
	vels := make([]r2.Vec, 0, len(g.regions))

	query := g.agentFilter.Query()
	for query.Next() {
		e := query.Entity()
		_, vel, _, _, _, agent := query.Get()

		if g.avoidMap.Has(e) {
			avoiding++
		}
		if agent.Chasing {
			chasing++
		}
		if agent.Special {
			special++
		}
		v := vel.Vec()
		speedSum += r2.Norm(v)
		vels = append(vels, v)
	}

	var meanSpeed float64
	if len(vels) > 0 {
		meanSpeed = speedSum / float64(len(vels))
	}

	slog.Info("world",
		"tick", g.tick,
		"agents", len(vels),
		"special", special,
		"avoiding", avoiding,
		"chasing", chasing,
		"targets", g.TargetCount(),
		"obstacles", g.ObstacleCount(),
		"mean_speed", meanSpeed,
		"polarization", telemetry.Polarization(vels),
		"config_version", g.store.Version(),
	)
}
