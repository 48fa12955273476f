package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/physics"
	"github.com/pthm-cable/boids/traits"
)

// Separation pushes away from perceived neighbours that also separate.
// Each neighbour contributes normalize(self - other) / dist, so closer
// neighbours push harder. The sum is lifted to length 1 before scaling so
// distant neighbours still register.
func Separation(self AgentState, neighbours []AgentSighting, strength float64) (r2.Vec, bool) {
	var sum r2.Vec
	n := 0
	for _, o := range neighbours {
		if !o.Caps.Has(traits.Separation) {
			continue
		}
		n++
		away := r2.Scale(-1, o.Offset)
		dir, ok := physics.SafeNormalize(away)
		if !ok {
			// Coincident: back off against the direction of travel.
			dir = r2.Scale(-1, self.Forward())
		}
		dist := math.Max(math.Sqrt(o.DistSq), physics.Epsilon)
		sum = r2.Add(sum, r2.Scale(1/dist, dir))
	}
	if n == 0 {
		return r2.Vec{}, false
	}
	return r2.Scale(strength, physics.ClampLengthMin(sum, 1)), true
}

// Cohesion steers toward the centroid of perceived neighbours that also cohere.
func Cohesion(self AgentState, neighbours []AgentSighting, strength float64) (r2.Vec, bool) {
	var sum r2.Vec
	n := 0
	for _, o := range neighbours {
		if !o.Caps.Has(traits.Cohesion) {
			continue
		}
		sum = r2.Add(sum, o.Offset)
		n++
	}
	if n == 0 {
		return r2.Vec{}, false
	}
	// Offsets are relative to self, so their mean is centroid - pos.
	toCentroid := r2.Scale(1/float64(n), sum)
	return r2.Scale(strength, physics.Normalize(toCentroid)), true
}

// Alignment steers toward the mean velocity of perceived neighbours that also align.
func Alignment(self AgentState, neighbours []AgentSighting, strength float64) (r2.Vec, bool) {
	var sum r2.Vec
	n := 0
	for _, o := range neighbours {
		if !o.Caps.Has(traits.Alignment) {
			continue
		}
		sum = r2.Add(sum, o.Vel)
		n++
	}
	if n == 0 {
		return r2.Vec{}, false
	}
	mean := r2.Scale(1/float64(n), sum)
	return r2.Scale(strength, physics.Normalize(r2.Sub(mean, self.Vel))), true
}
