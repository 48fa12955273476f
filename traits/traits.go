// Package traits defines the behavior capabilities an agent can opt into.
package traits

import (
	"fmt"
	"strings"
)

// Capability is a bitset of steering behaviors an agent participates in.
type Capability uint32

const (
	Seek Capability = 1 << iota // Steers toward the nearest perceived seek target
	Flee                        // Steers away from the nearest perceived flee target
	Separation                  // Keeps distance from flockmates
	Cohesion                    // Moves toward the flock centroid
	Alignment                   // Matches the flock's mean velocity
	ObstacleAvoidance           // Runs obstacle detection and avoidance
)

// Flocking is the classic three-rule set.
const Flocking = Separation | Cohesion | Alignment

// All is every capability an agent can carry.
const All = Seek | Flee | Flocking | ObstacleAvoidance

// Default is what a spawned agent gets when no capabilities are requested.
// Matches the original demo: everything but flee.
const Default = Seek | Flocking | ObstacleAvoidance

var names = []struct {
	c    Capability
	name string
}{
	{Seek, "seek"},
	{Flee, "flee"},
	{Separation, "separation"},
	{Cohesion, "cohesion"},
	{Alignment, "alignment"},
	{ObstacleAvoidance, "obstacle_avoidance"},
}

// Has checks if a capability set contains every bit of other.
func (c Capability) Has(other Capability) bool {
	return other != 0 && c&other == other
}

// Add adds capabilities to the set.
func (c Capability) Add(other Capability) Capability {
	return c | other
}

// Remove removes capabilities from the set.
func (c Capability) Remove(other Capability) Capability {
	return c &^ other
}

// Names returns the names of the capabilities in the set, in declaration order.
func (c Capability) Names() []string {
	var out []string
	for _, n := range names {
		if c&n.c != 0 {
			out = append(out, n.name)
		}
	}
	return out
}

func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	return strings.Join(c.Names(), "|")
}

// Parse converts a list of capability names into a set.
// An empty list yields Default.
func Parse(list []string) (Capability, error) {
	if len(list) == 0 {
		return Default, nil
	}
	var c Capability
	for _, s := range list {
		s = strings.ToLower(strings.TrimSpace(s))
		switch s {
		case "all":
			c |= All
			continue
		case "flocking":
			c |= Flocking
			continue
		}
		found := false
		for _, n := range names {
			if n.name == s {
				c |= n.c
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown capability %q", s)
		}
	}
	return c, nil
}
