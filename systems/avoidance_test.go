package systems

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/boids/components"
	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/physics"
)

// fakeCaster answers ray casts from a function of the ray direction.
type fakeCaster struct {
	hit   func(dir r2.Vec) (float64, bool)
	casts []r2.Vec
}

func (f *fakeCaster) CastRay(origin, dir r2.Vec, maxDist float64, mask physics.Layer) (physics.RayHit, bool) {
	f.casts = append(f.casts, dir)
	if mask&physics.LayerObstacles == 0 {
		return physics.RayHit{}, false
	}
	d, ok := f.hit(dir)
	if !ok || d > maxDist {
		return physics.RayHit{}, false
	}
	return physics.RayHit{Distance: d}, true
}

func TestDetectObstacle_UsesVelocityThenHeading(t *testing.T) {
	rc := &fakeCaster{hit: func(dir r2.Vec) (float64, bool) { return 5, dir.Y > 0.9 }}

	if !DetectObstacle(rc, AgentState{Vel: r2.Vec{Y: 3}}, 10) {
		t.Error("expected a hit straight ahead")
	}
	if DetectObstacle(rc, AgentState{Vel: r2.Vec{X: 3}}, 10) {
		t.Error("expected no hit to the side")
	}
	// At rest, the forward ray follows the heading.
	if !DetectObstacle(rc, AgentState{Heading: math.Pi / 2}, 10) {
		t.Error("expected heading fallback to hit")
	}
	if DetectObstacle(rc, AgentState{Vel: r2.Vec{Y: 3}}, 4) {
		t.Error("hit beyond range should not count")
	}
}

func TestAvoid_AllRaysBlockedOnlyBrakes(t *testing.T) {
	rc := &fakeCaster{hit: func(r2.Vec) (float64, bool) { return 0.25, true }}
	_, fan := config.RayFan(3)
	self := AgentState{Vel: r2.Vec{X: 10}}

	res := Avoid(rc, self, fan, 100, 2)
	if res.Escaped || res.Ray != -1 {
		t.Errorf("no escape expected, got ray %d", res.Ray)
	}
	if len(rc.casts) != len(fan) {
		t.Errorf("cast %d rays, want %d", len(rc.casts), len(fan))
	}
	if !near(res.Closest, 0.25, 1e-12) {
		t.Errorf("closest = %v, want 0.25", res.Closest)
	}
	if !near(res.Force.X, -2, 1e-12) || !near(res.Force.Y, 0, 1e-12) {
		t.Errorf("force = %v, want braking (-2, 0)", res.Force)
	}
}

func TestAvoid_FirstClearRayEscapes(t *testing.T) {
	_, fan := config.RayFan(4)
	// Block everything on the right side (negative Y); the first left ray is clear.
	rc := &fakeCaster{hit: func(dir r2.Vec) (float64, bool) { return 0.5, dir.Y < 0 }}
	self := AgentState{Vel: r2.Vec{X: 10}}

	res := Avoid(rc, self, fan, 100, 1)
	if !res.Escaped || res.Ray != 1 {
		t.Fatalf("escape ray = %d, want 1", res.Ray)
	}
	if len(rc.casts) != 2 {
		t.Errorf("scanning should stop at the escape ray, cast %d", len(rc.casts))
	}

	escape := r2.Scale(1/0.5, physics.Normalize(r2.Sub(fan[1], r2.Vec{X: 1})))
	want := r2.Add(escape, r2.Vec{X: -1})
	if !near(res.Force.X, want.X, 1e-9) || !near(res.Force.Y, want.Y, 1e-9) {
		t.Errorf("force = %v, want %v", res.Force, want)
	}
	if res.Force.Y <= 0 {
		t.Errorf("escape should turn left, got %v", res.Force)
	}
}

func TestAvoid_FanFollowsHeading(t *testing.T) {
	_, fan := config.RayFan(1)
	rc := &fakeCaster{hit: func(r2.Vec) (float64, bool) { return 0, false }}
	Avoid(rc, AgentState{Heading: math.Pi / 2, Vel: r2.Vec{Y: 1}}, fan, 10, 1)

	// First ray sits 90 degrees right of the heading, i.e. along +X.
	if got := rc.casts[0]; !near(got.X, 1, 1e-9) || !near(got.Y, 0, 1e-9) {
		t.Errorf("first ray = %v, want (1, 0)", got)
	}
}

func TestAvoid_AgainstRayWorld(t *testing.T) {
	world := ecs.NewWorld()
	e := ecs.NewMap[components.Obstacle](world).NewEntity(&components.Obstacle{Shape: physics.Circle(20)})
	rw := physics.NewRayWorld()
	if err := rw.Add(e, physics.Circle(20), r2.Vec{X: 40}, 0, physics.LayerObstacles); err != nil {
		t.Fatal(err)
	}

	self := AgentState{Vel: r2.Vec{X: 100}}
	if !DetectObstacle(rw, self, 30) {
		t.Fatal("expected the circle ahead to be detected")
	}
	_, fan := config.RayFan(10)
	res := Avoid(rw, self, fan, 225, 2)
	if !res.Escaped {
		t.Fatal("some ray should clear a single circle")
	}
	if res.Force.X >= 0 {
		t.Errorf("avoidance should brake, got %v", res.Force)
	}
}
