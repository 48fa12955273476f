package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports live simulation gauges and counters to Prometheus.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ticks          prometheus.Counter
	tickDuration   prometheus.Histogram
	agents         prometheus.Gauge
	avoiding       prometheus.Gauge
	chasing        prometheus.Gauge
	targets        prometheus.Gauge
	captures       *prometheus.CounterVec
	targetsSpawned prometheus.Counter
	configVersion  prometheus.Gauge
	polarization   prometheus.Gauge
}

// NewMetrics registers the simulation metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "boids_ticks_total",
			Help: "Simulation ticks executed.",
		}),
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "boids_tick_duration_seconds",
			Help:    "Wall time spent per simulation tick.",
			Buckets: prometheus.ExponentialBuckets(50e-6, 2, 12),
		}),
		agents: f.NewGauge(prometheus.GaugeOpts{
			Name: "boids_agents",
			Help: "Live agents.",
		}),
		avoiding: f.NewGauge(prometheus.GaugeOpts{
			Name: "boids_agents_avoiding",
			Help: "Agents currently tagged to avoid an obstacle.",
		}),
		chasing: f.NewGauge(prometheus.GaugeOpts{
			Name: "boids_agents_chasing",
			Help: "Agents currently perceiving a seek target.",
		}),
		targets: f.NewGauge(prometheus.GaugeOpts{
			Name: "boids_targets",
			Help: "Live targets.",
		}),
		captures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "boids_captures_total",
			Help: "Targets consumed by agents.",
		}, []string{"kind"}),
		targetsSpawned: f.NewCounter(prometheus.CounterOpts{
			Name: "boids_targets_spawned_total",
			Help: "Targets spawned by the timer.",
		}),
		configVersion: f.NewGauge(prometheus.GaugeOpts{
			Name: "boids_config_version",
			Help: "Version counter of the steering parameter store.",
		}),
		polarization: f.NewGauge(prometheus.GaugeOpts{
			Name: "boids_polarization",
			Help: "Length of the mean unit velocity at the last stats window.",
		}),
	}
}

// TickGauges are the per-tick population readings.
type TickGauges struct {
	Agents        int
	Avoiding      int
	Chasing       int
	Targets       int
	ConfigVersion uint64
}

// ObserveTick records one finished tick.
func (m *Metrics) ObserveTick(d time.Duration, g TickGauges) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
	m.agents.Set(float64(g.Agents))
	m.avoiding.Set(float64(g.Avoiding))
	m.chasing.Set(float64(g.Chasing))
	m.targets.Set(float64(g.Targets))
	m.configVersion.Set(float64(g.ConfigVersion))
}

// ObserveEvent counts capture and spawn events.
func (m *Metrics) ObserveEvent(ev Event) {
	if m == nil {
		return
	}
	switch ev.Type {
	case EventCapture:
		m.captures.WithLabelValues(ev.Kind.String()).Inc()
	case EventTargetSpawn:
		m.targetsSpawned.Inc()
	}
}

// ObserveWindow records window-level flock shape.
func (m *Metrics) ObserveWindow(s WindowStats) {
	if m == nil {
		return
	}
	m.polarization.Set(s.Polarization)
}

// Handler returns the HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
