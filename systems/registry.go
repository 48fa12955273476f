package systems

import "github.com/pthm-cable/boids/telemetry"

// SystemInfo describes a simulation system for listings and perf output.
type SystemInfo struct {
	ID          string // Internal identifier (used for perf tracking)
	Name        string // Display name
	Description string // What this system does
	Category    string // Grouping (e.g., "core", "steering", "physics")
}

// SystemRegistry holds metadata about all systems.
// This centralizes system naming so the CLI and perf tracker stay in sync.
type SystemRegistry struct {
	systems []SystemInfo
	byID    map[string]SystemInfo
}

// NewSystemRegistry creates a registry with all known systems.
func NewSystemRegistry() *SystemRegistry {
	reg := &SystemRegistry{
		byID: make(map[string]SystemInfo),
	}
	reg.registerDefaults()
	return reg
}

// Stage IDs in pipeline order. Perf phases use the same IDs.
const (
	StageConfig     = telemetry.PhaseConfig
	StagePerception = telemetry.PhasePerception
	StageSeek       = telemetry.PhaseSeek
	StageFlee       = telemetry.PhaseFlee
	StageDetection  = telemetry.PhaseDetection
	StageAvoidance  = telemetry.PhaseAvoidance
	StageSeparation = telemetry.PhaseSeparation
	StageCohesion   = telemetry.PhaseCohesion
	StageAlignment  = telemetry.PhaseAlignment
	StageIntegrate  = telemetry.PhaseIntegrate
	StageAdvance    = telemetry.PhaseAdvance
	StageTargets    = telemetry.PhaseTargets
	StageTelemetry  = telemetry.PhaseTelemetry
)

// registerDefaults adds the tick pipeline in execution order.
// Update this when adding new systems.
func (r *SystemRegistry) registerDefaults() {
	r.Register(SystemInfo{ID: StageConfig, Name: "Config", Description: "Recomputes derived values and resizes vision regions", Category: "core"})
	r.Register(SystemInfo{ID: StagePerception, Name: "Perception", Description: "Snapshots what every vision region overlaps", Category: "core"})

	// Steering behaviours
	r.Register(SystemInfo{ID: StageSeek, Name: "Seek", Description: "Steers toward the nearest seek target", Category: "steering"})
	r.Register(SystemInfo{ID: StageFlee, Name: "Flee", Description: "Steers away from the nearest flee target", Category: "steering"})
	r.Register(SystemInfo{ID: StageDetection, Name: "Obstacle Detection", Description: "Forward ray toggles the avoid state", Category: "steering"})
	r.Register(SystemInfo{ID: StageAvoidance, Name: "Obstacle Avoidance", Description: "Ray fan escape and braking", Category: "steering"})
	r.Register(SystemInfo{ID: StageSeparation, Name: "Separation", Description: "Pushes away from close neighbours", Category: "steering"})
	r.Register(SystemInfo{ID: StageCohesion, Name: "Cohesion", Description: "Pulls toward the neighbour centroid", Category: "steering"})
	r.Register(SystemInfo{ID: StageAlignment, Name: "Alignment", Description: "Matches the mean neighbour velocity", Category: "steering"})

	// Physics and movement
	r.Register(SystemInfo{ID: StageIntegrate, Name: "Integrate", Description: "Orients, clamps force and speed", Category: "physics"})
	r.Register(SystemInfo{ID: StageAdvance, Name: "Advance", Description: "Moves agents and wraps the world", Category: "physics"})

	// Life cycle
	r.Register(SystemInfo{ID: StageTargets, Name: "Targets", Description: "Captures overlapped targets and spawns new ones", Category: "lifecycle"})
	r.Register(SystemInfo{ID: StageTelemetry, Name: "Telemetry", Description: "Flushes windowed statistics", Category: "internal"})
}

// Register adds a system to the registry.
func (r *SystemRegistry) Register(info SystemInfo) {
	r.systems = append(r.systems, info)
	r.byID[info.ID] = info
}

// Get returns system info by ID.
func (r *SystemRegistry) Get(id string) (SystemInfo, bool) {
	info, ok := r.byID[id]
	return info, ok
}

// GetName returns the display name for a system ID.
// Falls back to the ID itself if not found.
func (r *SystemRegistry) GetName(id string) string {
	if info, ok := r.byID[id]; ok {
		return info.Name
	}
	return id
}

// All returns all registered systems.
func (r *SystemRegistry) All() []SystemInfo {
	return r.systems
}

// ByCategory returns systems filtered by category.
func (r *SystemRegistry) ByCategory(category string) []SystemInfo {
	var result []SystemInfo
	for _, info := range r.systems {
		if info.Category == category {
			result = append(result, info)
		}
	}
	return result
}

// Categories returns all unique categories.
func (r *SystemRegistry) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, info := range r.systems {
		if !seen[info.Category] {
			seen[info.Category] = true
			cats = append(cats, info.Category)
		}
	}
	return cats
}

// IDs returns all system IDs in registration order.
func (r *SystemRegistry) IDs() []string {
	ids := make([]string, len(r.systems))
	for i, info := range r.systems {
		ids[i] = info.ID
	}
	return ids
}
