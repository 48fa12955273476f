package telemetry

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
)

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeDistribution(t *testing.T) {
	values := []float64{150, 10, 90, 30, 70, 50, 110, 130, 20, 40}
	mean, std, p10, p50, p90 := ComputeDistribution(values)

	if math.Abs(mean-70) > 1e-9 {
		t.Errorf("mean = %v, want 70", mean)
	}
	// Population std of the values above
	if math.Abs(std-45.83) > 0.01 {
		t.Errorf("std = %v, want ~45.83", std)
	}
	if math.Abs(p10-19) > 0.01 || math.Abs(p50-60) > 0.01 || math.Abs(p90-132) > 0.01 {
		t.Errorf("percentiles = %v, %v, %v", p10, p50, p90)
	}
	// Input must stay unsorted.
	if values[0] != 150 {
		t.Error("ComputeDistribution sorted its input")
	}
}

func TestComputeDistributionEmpty(t *testing.T) {
	mean, std, p10, p50, p90 := ComputeDistribution(nil)
	if mean != 0 || std != 0 || p10 != 0 || p50 != 0 || p90 != 0 {
		t.Error("empty slice should return all zeros")
	}
}

func TestPolarization(t *testing.T) {
	tests := []struct {
		name string
		vels []r2.Vec
		want float64
	}{
		{"empty", nil, 0},
		{"aligned", []r2.Vec{{X: 1}, {X: 150}, {X: 3}}, 1},
		{"opposed", []r2.Vec{{X: 5}, {X: -5}}, 0},
		{"right angle", []r2.Vec{{X: 2}, {Y: 7}}, math.Sqrt2 / 2},
		{"resting skipped", []r2.Vec{{}, {Y: -4}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Polarization(tt.vels); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Polarization = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCollectorFlush(t *testing.T) {
	c := NewCollector(1.0, 1.0/64)
	if c.WindowDurationTicks() != 64 {
		t.Fatalf("ticks per window = %d, want 64", c.WindowDurationTicks())
	}

	c.Record(NewCaptureEvent(3, 1, components.TargetSeek))
	c.Record(NewCaptureEvent(4, 2, components.TargetSeek))
	c.Record(NewCaptureEvent(5, 2, components.TargetFlee))
	c.Record(NewTargetSpawnEvent(6, components.TargetSeek))
	c.Record(NewAvoidEvent(7, 1, true))
	c.Record(NewAvoidEvent(9, 1, false))
	c.Record(NewAgentEvent(9, 3, true))

	if c.ShouldFlush(63) {
		t.Error("window should not be full at tick 63")
	}
	if !c.ShouldFlush(64) {
		t.Fatal("window should be full at tick 64")
	}

	stats := c.Flush(64, FlockSample{
		Agents:     2,
		Avoiding:   1,
		Velocities: []r2.Vec{{X: 3, Y: 4}, {X: 5}},
		Neighbours: []float64{1, 3},
	})

	if stats.SeekCaptures != 2 || stats.FleeCaptures != 1 || stats.Captures() != 3 {
		t.Errorf("captures = %d seek, %d flee", stats.SeekCaptures, stats.FleeCaptures)
	}
	if stats.TargetsSpawned != 1 || stats.AvoidEntered != 1 || stats.AvoidExited != 1 {
		t.Errorf("events = %+v", stats)
	}
	if stats.SpeedMean != 5 || stats.SpeedStd != 0 {
		t.Errorf("speed = %v ± %v, want 5 ± 0", stats.SpeedMean, stats.SpeedStd)
	}
	if stats.MeanNeighbours != 2 {
		t.Errorf("mean neighbours = %v, want 2", stats.MeanNeighbours)
	}
	if math.Abs(stats.SimTimeSec-1) > 1e-12 {
		t.Errorf("sim time = %v, want 1", stats.SimTimeSec)
	}

	// Counters reset, window restarts at the flush tick.
	next := c.Flush(128, FlockSample{})
	if next.Captures() != 0 || next.WindowStartTick != 64 {
		t.Errorf("second window = %+v", next)
	}
}
