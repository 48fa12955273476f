package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/boids/components"
)

func TestMetricsObserve(t *testing.T) {
	m := NewMetrics()

	m.ObserveTick(2*time.Millisecond, TickGauges{Agents: 60, Avoiding: 4, Chasing: 9, Targets: 1, ConfigVersion: 3})
	m.ObserveTick(time.Millisecond, TickGauges{Agents: 59, Avoiding: 2})
	m.ObserveEvent(NewCaptureEvent(10, 1, components.TargetSeek))
	m.ObserveEvent(NewCaptureEvent(11, 2, components.TargetFlee))
	m.ObserveEvent(NewCaptureEvent(12, 3, components.TargetFlee))
	m.ObserveEvent(NewTargetSpawnEvent(12, components.TargetSeek))
	m.ObserveEvent(NewAvoidEvent(12, 3, true))
	m.ObserveWindow(WindowStats{Polarization: 0.75})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticks))
	assert.Equal(t, 59.0, testutil.ToFloat64(m.agents))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.avoiding))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.captures.WithLabelValues("seek")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.captures.WithLabelValues("flee")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.targetsSpawned))
	assert.Equal(t, 0.75, testutil.ToFloat64(m.polarization))
}

func TestMetricsNilIsNoOp(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTick(time.Millisecond, TickGauges{Agents: 1})
		m.ObserveEvent(NewTargetSpawnEvent(1, components.TargetSeek))
		m.ObserveWindow(WindowStats{})
	})
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.ObserveTick(time.Millisecond, TickGauges{Agents: 12})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(string(body), "boids_agents 12"), "body:\n%s", body)
	assert.Contains(t, string(body), "boids_tick_duration_seconds_bucket")
}
