package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population counts at window end
	Agents    int `csv:"agents"`
	Targets   int `csv:"targets"`
	Obstacles int `csv:"obstacles"`
	Avoiding  int `csv:"avoiding"`
	Chasing   int `csv:"chasing"`

	// Events during window
	SeekCaptures   int `csv:"seek_captures"`
	FleeCaptures   int `csv:"flee_captures"`
	TargetsSpawned int `csv:"targets_spawned"`
	AvoidEntered   int `csv:"avoid_entered"`
	AvoidExited    int `csv:"avoid_exited"`

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	// Flock shape
	Polarization   float64 `csv:"polarization"`    // |mean unit velocity|, 1 = all aligned
	MeanNeighbours float64 `csv:"mean_neighbours"` // perceived agents per agent
}

// Captures returns the total number of targets consumed in the window.
func (s WindowStats) Captures() int {
	return s.SeekCaptures + s.FleeCaptures
}

// FlockSample is the state the game reads off the world when a window closes.
type FlockSample struct {
	Agents    int
	Targets   int
	Obstacles int
	Avoiding  int
	Chasing   int

	Velocities []r2.Vec
	Neighbours []float64 // per-agent perceived agent count
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeDistribution calculates mean, population std and percentiles.
func ComputeDistribution(values []float64) (mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}

	mean, variance := stat.PopMeanVariance(values, nil)
	if variance > 0 {
		std = math.Sqrt(variance)
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, std, p10, p50, p90
}

// Speeds returns the magnitude of every velocity.
func Speeds(vels []r2.Vec) []float64 {
	out := make([]float64, len(vels))
	for i, v := range vels {
		out[i] = r2.Norm(v)
	}
	return out
}

// Polarization is the length of the mean unit velocity.
// Agents at rest are skipped; an empty or resting flock has polarization 0.
func Polarization(vels []r2.Vec) float64 {
	var sum r2.Vec
	n := 0
	for _, v := range vels {
		l := r2.Norm(v)
		if l < 1e-9 {
			continue
		}
		sum = r2.Add(sum, r2.Scale(1/l, v))
		n++
	}
	if n == 0 {
		return 0
	}
	return r2.Norm(sum) / float64(n)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("agents", s.Agents),
		slog.Int("targets", s.Targets),
		slog.Int("obstacles", s.Obstacles),
		slog.Int("avoiding", s.Avoiding),
		slog.Int("chasing", s.Chasing),
		slog.Int("seek_captures", s.SeekCaptures),
		slog.Int("flee_captures", s.FleeCaptures),
		slog.Int("targets_spawned", s.TargetsSpawned),
		slog.Int("avoid_entered", s.AvoidEntered),
		slog.Int("avoid_exited", s.AvoidExited),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p10", s.SpeedP10),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("polarization", s.Polarization),
		slog.Float64("mean_neighbours", s.MeanNeighbours),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"agents", s.Agents,
		"targets", s.Targets,
		"avoiding", s.Avoiding,
		"chasing", s.Chasing,
		"captures", s.Captures(),
		"targets_spawned", s.TargetsSpawned,
		"speed_mean", s.SpeedMean,
		"speed_p50", s.SpeedP50,
		"polarization", s.Polarization,
		"mean_neighbours", s.MeanNeighbours,
	)
}
