package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/physics"
)

// RayCaster is the ray query service obstacle handling depends on.
// *physics.RayWorld implements it.
type RayCaster interface {
	CastRay(origin, dir r2.Vec, maxDist float64, mask physics.Layer) (physics.RayHit, bool)
}

// DetectObstacle casts straight ahead for an obstacle within rangeDist.
// The result is the next state of the AvoidObstacle tag.
func DetectObstacle(rc RayCaster, self AgentState, rangeDist float64) bool {
	_, hit := rc.CastRay(self.Pos, self.Forward(), rangeDist, physics.LayerObstacles)
	return hit
}

// AvoidanceResult reports what one avoidance evaluation did.
type AvoidanceResult struct {
	Force   r2.Vec
	Escaped bool    // an unobstructed ray was found
	Ray     int     // index into the fan of the escape ray, -1 if none
	Closest float64 // closest hit distance seen before the escape ray (starts at 1)
}

// Avoid scans the ray fan, rotated into the agent's heading, for the first
// direction without an obstacle within maxDist. The escape term is
// normalize(ray - normalize(vel)) / closest. A braking term against the
// velocity is always added, whether or not an escape ray was found.
func Avoid(rc RayCaster, self AgentState, fan []r2.Vec, maxDist, strength float64) AvoidanceResult {
	res := AvoidanceResult{Ray: -1, Closest: 1}
	velDir := physics.Normalize(self.Vel)

	for i, local := range fan {
		ray := physics.Rotate(local, self.Heading)
		hit, ok := rc.CastRay(self.Pos, ray, maxDist, physics.LayerObstacles)
		if ok {
			res.Closest = math.Min(res.Closest, hit.Distance)
			continue
		}
		closest := math.Max(res.Closest, physics.Epsilon)
		escape := r2.Scale(1/closest, physics.Normalize(r2.Sub(ray, velDir)))
		res.Force = r2.Add(res.Force, r2.Scale(strength, escape))
		res.Escaped = true
		res.Ray = i
		break
	}

	res.Force = r2.Add(res.Force, r2.Scale(-strength, velDir))
	return res
}
