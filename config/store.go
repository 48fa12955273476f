package config

import (
	"fmt"
	"math"
	"sync"

	"github.com/pthm-cable/boids/inspector"
)

// Store is the live, name-addressable view of the simulation parameters.
// Writers may run on any goroutine; the tick loop observes changes through
// BeginTick, which reports a change exactly once.
type Store struct {
	mu      sync.RWMutex
	sim     SimulationConfig
	derived Derived
	fields  []inspector.Field
	version uint64
	dirty   bool
}

// NewStore creates a store seeded with sim. Values are clamped into range.
func NewStore(sim SimulationConfig) *Store {
	s := &Store{sim: sim}
	s.fields = inspector.ExtractFields(&s.sim)
	for _, f := range s.fields {
		inspector.Set(&s.sim, f, f.Clamp(inspector.Get(&s.sim, f)))
	}
	s.derived = ComputeDerived(s.sim)
	return s
}

// Fields lists the addressable parameters in declaration order.
func (s *Store) Fields() []inspector.Field {
	out := make([]inspector.Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Get returns the value of the named parameter.
func (s *Store) Get(name string) (float64, error) {
	f, err := s.field(name)
	if err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return inspector.Get(&s.sim, f), nil
}

// Set writes the named parameter, clamped to its range.
// Non-finite values are rejected. A write that changes the value marks the
// store dirty; BeginTick consumes the mark.
func (s *Store) Set(name string, value float64) error {
	f, err := s.field(name)
	if err != nil {
		return err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s = %v", ErrOutOfRange, name, value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(f, value)
	return nil
}

// Replace writes every field of sim and returns the names that changed.
func (s *Store) Replace(sim SimulationConfig) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed []string
	for _, f := range s.fields {
		v := inspector.Get(&sim, f)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if s.setLocked(f, v) {
			changed = append(changed, f.Name)
		}
	}
	return changed
}

func (s *Store) setLocked(f inspector.Field, value float64) bool {
	value = f.Clamp(value)
	if inspector.Get(&s.sim, f) == value {
		return false
	}
	inspector.Set(&s.sim, f, value)
	s.version++
	s.dirty = true
	return true
}

// Snapshot returns a copy of the current parameters.
func (s *Store) Snapshot() SimulationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sim
}

// Derived returns the values computed at the last BeginTick (or construction).
func (s *Store) Derived() Derived {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.derived
}

// Version increments on every effective write.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Dirty reports whether a write is pending for the next tick.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// BeginTick is called once at the start of every tick. If the store was
// written since the previous call it recomputes Derived and returns
// changed = true. The previous vision radius is returned so the caller can
// decide whether perception regions need resizing.
func (s *Store) BeginTick() (d Derived, changed bool, prevVision float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevVision = s.derived.VisionRadius
	if s.dirty {
		s.derived = ComputeDerived(s.sim)
		s.dirty = false
		changed = true
	}
	return s.derived, changed, prevVision
}

func (s *Store) field(name string) (inspector.Field, error) {
	for _, f := range s.fields {
		if f.Name == name {
			return f, nil
		}
	}
	return inspector.Field{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
}
