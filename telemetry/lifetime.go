package telemetry

import "sort"

// LifetimeStats tracks per-agent statistics over its lifetime.
type LifetimeStats struct {
	AgentID    uint32  `json:"agent_id"`
	SpawnTick  int32   `json:"spawn_tick"`
	AgeSec     float64 `json:"age_sec"`
	Captures   int     `json:"captures"`
	AvoidTicks int     `json:"avoid_ticks"` // ticks spent tagged to avoid
	ChaseTicks int     `json:"chase_ticks"` // ticks spent perceiving a seek target
	Distance   float64 `json:"distance"`    // path length travelled
}

// LifetimeTracker manages per-agent lifetime statistics.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Register creates lifetime stats for a new agent.
func (lt *LifetimeTracker) Register(agentID uint32, spawnTick int32) {
	lt.stats[agentID] = &LifetimeStats{AgentID: agentID, SpawnTick: spawnTick}
}

// Get returns the lifetime stats for an agent, or nil if not found.
func (lt *LifetimeTracker) Get(agentID uint32) *LifetimeStats {
	return lt.stats[agentID]
}

// Remove removes an agent's stats and returns them (for logging).
func (lt *LifetimeTracker) Remove(agentID uint32) *LifetimeStats {
	stats := lt.stats[agentID]
	delete(lt.stats, agentID)
	return stats
}

// RecordCapture increments the capture count.
func (lt *LifetimeTracker) RecordCapture(agentID uint32) {
	if s := lt.stats[agentID]; s != nil {
		s.Captures++
	}
}

// RecordTick folds one tick of movement and state into the agent's totals.
func (lt *LifetimeTracker) RecordTick(agentID uint32, distance float64, avoiding, chasing bool) {
	s := lt.stats[agentID]
	if s == nil {
		return
	}
	s.Distance += distance
	if avoiding {
		s.AvoidTicks++
	}
	if chasing {
		s.ChaseTicks++
	}
}

// UpdateAges refreshes every agent's age from the current tick.
func (lt *LifetimeTracker) UpdateAges(currentTick int32, dt float64) {
	for _, s := range lt.stats {
		s.AgeSec = float64(currentTick-s.SpawnTick) * dt
	}
}

// Top returns up to n agents ordered by captures, then distance.
func (lt *LifetimeTracker) Top(n int) []LifetimeStats {
	all := make([]LifetimeStats, 0, len(lt.stats))
	for _, s := range lt.stats {
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Captures != all[j].Captures {
			return all[i].Captures > all[j].Captures
		}
		if all[i].Distance != all[j].Distance {
			return all[i].Distance > all[j].Distance
		}
		return all[i].AgentID < all[j].AgentID
	})
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// Count returns the number of tracked agents.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
