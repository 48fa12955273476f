package telemetry

import (
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/boids/components"
)

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	seekCaptures   int
	fleeCaptures   int
	targetsSpawned int
	avoidEntered   int
	avoidExited    int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// Record counts an event in the current window.
func (c *Collector) Record(ev Event) {
	switch ev.Type {
	case EventCapture:
		if ev.Kind == components.TargetFlee {
			c.fleeCaptures++
		} else {
			c.seekCaptures++
		}
	case EventTargetSpawn:
		c.targetsSpawned++
	case EventAvoidEnter:
		c.avoidEntered++
	case EventAvoidExit:
		c.avoidExited++
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32, sample FlockSample) WindowStats {
	speedMean, speedStd, p10, p50, p90 := ComputeDistribution(Speeds(sample.Velocities))

	var meanNeighbours float64
	if len(sample.Neighbours) > 0 {
		meanNeighbours = stat.Mean(sample.Neighbours, nil)
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Agents:    sample.Agents,
		Targets:   sample.Targets,
		Obstacles: sample.Obstacles,
		Avoiding:  sample.Avoiding,
		Chasing:   sample.Chasing,

		SeekCaptures:   c.seekCaptures,
		FleeCaptures:   c.fleeCaptures,
		TargetsSpawned: c.targetsSpawned,
		AvoidEntered:   c.avoidEntered,
		AvoidExited:    c.avoidExited,

		SpeedMean: speedMean,
		SpeedStd:  speedStd,
		SpeedP10:  p10,
		SpeedP50:  p50,
		SpeedP90:  p90,

		Polarization:   Polarization(sample.Velocities),
		MeanNeighbours: meanNeighbours,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.seekCaptures = 0
	c.fleeCaptures = 0
	c.targetsSpawned = 0
	c.avoidEntered = 0
	c.avoidExited = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}

// StartAt begins the current window at tick, dropping pending counts.
// Used when a run resumes from a snapshot.
func (c *Collector) StartAt(tick int32) {
	c.windowStartTick = tick
	c.seekCaptures = 0
	c.fleeCaptures = 0
	c.targetsSpawned = 0
	c.avoidEntered = 0
	c.avoidExited = 0
}
