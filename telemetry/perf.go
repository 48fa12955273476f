package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for the simulation step, in pipeline order.
const (
	PhaseConfig     = "config"
	PhasePerception = "perception"
	PhaseSeek       = "seek"
	PhaseFlee       = "flee"
	PhaseDetection  = "obstacle_detection"
	PhaseAvoidance  = "obstacle_avoidance"
	PhaseSeparation = "separation"
	PhaseCohesion   = "cohesion"
	PhaseAlignment  = "alignment"
	PhaseIntegrate  = "integrate"
	PhaseAdvance    = "advance"
	PhaseTargets    = "targets"
	PhaseTelemetry  = "telemetry"
)

// Phases lists every phase in pipeline order.
var Phases = []string{
	PhaseConfig, PhasePerception,
	PhaseSeek, PhaseFlee, PhaseDetection, PhaseAvoidance,
	PhaseSeparation, PhaseCohesion, PhaseAlignment,
	PhaseIntegrate, PhaseAdvance, PhaseTargets, PhaseTelemetry,
}

// PerfSample holds timing data for a single tick.
type PerfSample struct {
	TickDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks performance metrics over a rolling window.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	tickStart     time.Time
	phaseStart    time.Time
	lastPhase     string
	lastTick      time.Duration
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of ticks to average over (e.g., 64 for one simulated second).
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 64
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartTick begins timing a new simulation tick.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.currentPhases = make(map[string]time.Duration, len(Phases))
	p.lastPhase = ""
}

// StartPhase begins timing a specific phase, ending the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndTick finishes timing the current tick and records the sample.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.lastTick = now.Sub(p.tickStart)
	p.samples[p.writeIndex] = PerfSample{
		TickDuration: p.lastTick,
		Phases:       p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// LastTick returns the duration of the most recently finished tick.
func (p *PerfCollector) LastTick() time.Duration {
	return p.lastTick
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	// Tick timing
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	// Phase breakdown (average durations)
	PhaseAvg map[string]time.Duration

	// Phase percentages of total tick time
	PhasePct map[string]float64

	// Throughput
	TicksPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var totalTick time.Duration
	var minTick, maxTick time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		totalTick += s.TickDuration

		if i == 0 || s.TickDuration < minTick {
			minTick = s.TickDuration
		}
		if s.TickDuration > maxTick {
			maxTick = s.TickDuration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avgTick := totalTick / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration, len(phaseSum))
	phasePct := make(map[string]float64, len(phaseSum))
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avgTick > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avgTick) * 100
		}
	}

	var ticksPerSec float64
	if avgTick > 0 {
		ticksPerSec = float64(time.Second) / float64(avgTick)
	}

	return PerfStats{
		AvgTickDuration: avgTick,
		MinTickDuration: minTick,
		MaxTickDuration: maxTick,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
		TicksPerSecond:  ticksPerSec,
	}
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_tick_us", s.AvgTickDuration.Microseconds(),
		"min_tick_us", s.MinTickDuration.Microseconds(),
		"max_tick_us", s.MaxTickDuration.Microseconds(),
		"ticks_per_sec", int(s.TicksPerSecond),
	}

	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", float64(int(pct*10))/10.0)
		}
	}

	slog.Info("perf", attrs...)
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}

	for _, phase := range Phases {
		if pct, ok := s.PhasePct[phase]; ok {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}

	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	WindowEnd     int32   `csv:"window_end"`
	AvgTickUS     int64   `csv:"avg_tick_us"`
	MinTickUS     int64   `csv:"min_tick_us"`
	MaxTickUS     int64   `csv:"max_tick_us"`
	TicksPerSec   float64 `csv:"ticks_per_sec"`
	ConfigPct     float64 `csv:"config_pct"`
	PerceptionPct float64 `csv:"perception_pct"`
	SeekPct       float64 `csv:"seek_pct"`
	FleePct       float64 `csv:"flee_pct"`
	DetectionPct  float64 `csv:"obstacle_detection_pct"`
	AvoidancePct  float64 `csv:"obstacle_avoidance_pct"`
	SeparationPct float64 `csv:"separation_pct"`
	CohesionPct   float64 `csv:"cohesion_pct"`
	AlignmentPct  float64 `csv:"alignment_pct"`
	IntegratePct  float64 `csv:"integrate_pct"`
	AdvancePct    float64 `csv:"advance_pct"`
	TargetsPct    float64 `csv:"targets_pct"`
	TelemetryPct  float64 `csv:"telemetry_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:     windowEnd,
		AvgTickUS:     s.AvgTickDuration.Microseconds(),
		MinTickUS:     s.MinTickDuration.Microseconds(),
		MaxTickUS:     s.MaxTickDuration.Microseconds(),
		TicksPerSec:   s.TicksPerSecond,
		ConfigPct:     s.PhasePct[PhaseConfig],
		PerceptionPct: s.PhasePct[PhasePerception],
		SeekPct:       s.PhasePct[PhaseSeek],
		FleePct:       s.PhasePct[PhaseFlee],
		DetectionPct:  s.PhasePct[PhaseDetection],
		AvoidancePct:  s.PhasePct[PhaseAvoidance],
		SeparationPct: s.PhasePct[PhaseSeparation],
		CohesionPct:   s.PhasePct[PhaseCohesion],
		AlignmentPct:  s.PhasePct[PhaseAlignment],
		IntegratePct:  s.PhasePct[PhaseIntegrate],
		AdvancePct:    s.PhasePct[PhaseAdvance],
		TargetsPct:    s.PhasePct[PhaseTargets],
		TelemetryPct:  s.PhasePct[PhaseTelemetry],
	}
}
