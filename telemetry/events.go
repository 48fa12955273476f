// Package telemetry provides flock statistics, bookmarking, metrics, and snapshots.
package telemetry

import "github.com/pthm-cable/boids/components"

// EventType identifies telemetry events.
type EventType uint8

const (
	EventCapture EventType = iota
	EventTargetSpawn
	EventAvoidEnter
	EventAvoidExit
	EventAgentSpawn
	EventAgentDespawn
)

var eventNames = [...]string{
	EventCapture:      "capture",
	EventTargetSpawn:  "target_spawn",
	EventAvoidEnter:   "avoid_enter",
	EventAvoidExit:    "avoid_exit",
	EventAgentSpawn:   "agent_spawn",
	EventAgentDespawn: "agent_despawn",
}

func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event represents a single telemetry event.
type Event struct {
	Type    EventType
	Tick    int32
	AgentID uint32

	// Only meaningful for capture and target spawn events
	Kind components.TargetKind
}

// NewCaptureEvent creates an event for a target consumed by an agent.
func NewCaptureEvent(tick int32, agentID uint32, kind components.TargetKind) Event {
	return Event{Type: EventCapture, Tick: tick, AgentID: agentID, Kind: kind}
}

// NewTargetSpawnEvent creates an event for a new target.
func NewTargetSpawnEvent(tick int32, kind components.TargetKind) Event {
	return Event{Type: EventTargetSpawn, Tick: tick, Kind: kind}
}

// NewAvoidEvent creates an event for an agent entering or leaving the avoid state.
func NewAvoidEvent(tick int32, agentID uint32, entered bool) Event {
	typ := EventAvoidExit
	if entered {
		typ = EventAvoidEnter
	}
	return Event{Type: typ, Tick: tick, AgentID: agentID}
}

// NewAgentEvent creates a spawn or despawn event for an agent.
func NewAgentEvent(tick int32, agentID uint32, spawned bool) Event {
	typ := EventAgentDespawn
	if spawned {
		typ = EventAgentSpawn
	}
	return Event{Type: typ, Tick: tick, AgentID: agentID}
}
