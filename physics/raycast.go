package physics

import (
	"fmt"

	"github.com/ByteArena/box2d"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// RayHit is the closest intersection found by a ray cast.
type RayHit struct {
	Entity   ecs.Entity
	Point    r2.Vec
	Normal   r2.Vec
	Distance float64
}

// bodyDescriptor is stored as box2d user data on every body.
type bodyDescriptor struct {
	entity ecs.Entity
	layer  Layer
}

// RayWorld owns a box2d world holding static colliders for ray queries.
// The world is never stepped; fixtures enter the broad phase on creation.
type RayWorld struct {
	world  *box2d.B2World
	bodies map[ecs.Entity]*box2d.B2Body
}

// NewRayWorld creates an empty, gravity-free world.
func NewRayWorld() *RayWorld {
	world := box2d.MakeB2World(box2d.MakeB2Vec2(0, 0))
	return &RayWorld{
		world:  &world,
		bodies: make(map[ecs.Entity]*box2d.B2Body),
	}
}

// Add registers a static collider for e on the given layer.
func (w *RayWorld) Add(e ecs.Entity, shape Shape, pos r2.Vec, angle float64, layer Layer) error {
	if _, ok := w.bodies[e]; ok {
		return fmt.Errorf("collider for entity %v already registered", e)
	}

	bodydef := box2d.MakeB2BodyDef()
	bodydef.Type = box2d.B2BodyType.B2_staticBody
	bodydef.Position.Set(pos.X, pos.Y)
	bodydef.Angle = angle

	body := w.world.CreateBody(&bodydef)

	fixturedef := box2d.MakeB2FixtureDef()
	fixturedef.Filter.CategoryBits = uint16(layer)
	switch shape.Kind {
	case ShapeRectangle:
		poly := box2d.MakeB2PolygonShape()
		poly.SetAsBox(shape.Width/2, shape.Height/2)
		fixturedef.Shape = &poly
	default:
		circle := box2d.MakeB2CircleShape()
		circle.SetRadius(shape.Radius)
		fixturedef.Shape = &circle
	}
	body.CreateFixtureFromDef(&fixturedef)
	body.SetUserData(bodyDescriptor{entity: e, layer: layer})

	w.bodies[e] = body
	return nil
}

// Remove destroys the collider of e. Unknown entities are ignored.
func (w *RayWorld) Remove(e ecs.Entity) {
	body, ok := w.bodies[e]
	if !ok {
		return
	}
	w.world.DestroyBody(body)
	delete(w.bodies, e)
}

// Len returns the number of registered colliders.
func (w *RayWorld) Len() int { return len(w.bodies) }

// CastRay finds the closest collider on a layer in mask along dir from
// origin, up to maxDist. dir does not need to be normalised.
// A ray starting inside a collider hits that collider's boundary on the way
// out, so agents inside an obstacle still see it.
func (w *RayWorld) CastRay(origin, dir r2.Vec, maxDist float64, mask Layer) (RayHit, bool) {
	unit, ok := SafeNormalize(dir)
	if !ok || maxDist <= 0 {
		return RayHit{}, false
	}
	end := r2.Add(origin, r2.Scale(maxDist, unit))
	p1 := box2d.MakeB2Vec2(origin.X, origin.Y)
	p2 := box2d.MakeB2Vec2(end.X, end.Y)

	var hit RayHit
	found := false
	w.world.RayCast(
		func(fixture *box2d.B2Fixture, point box2d.B2Vec2, normal box2d.B2Vec2, fraction float64) float64 {
			desc, ok := fixture.GetBody().GetUserData().(bodyDescriptor)
			if !ok || desc.layer&mask == 0 {
				return -1 // ignore this fixture
			}
			hit = RayHit{
				Entity:   desc.entity,
				Point:    r2.Vec{X: point.X, Y: point.Y},
				Normal:   r2.Vec{X: normal.X, Y: normal.Y},
				Distance: fraction * maxDist,
			}
			found = true
			return fraction // clip the ray to find the closest hit
		},
		p1, p2,
	)

	// box2d ignores shapes containing the ray origin. Cast those back from
	// the far end to find where the ray leaves them.
	aabb := box2d.MakeB2AABB()
	aabb.LowerBound = box2d.MakeB2Vec2(origin.X-Epsilon, origin.Y-Epsilon)
	aabb.UpperBound = box2d.MakeB2Vec2(origin.X+Epsilon, origin.Y+Epsilon)
	w.world.QueryAABB(func(fixture *box2d.B2Fixture) bool {
		desc, ok := fixture.GetBody().GetUserData().(bodyDescriptor)
		if !ok || desc.layer&mask == 0 || !fixture.TestPoint(p1) {
			return true
		}
		input := box2d.MakeB2RayCastInput()
		input.P1, input.P2, input.MaxFraction = p2, p1, 1
		output := box2d.MakeB2RayCastOutput()
		if !fixture.RayCast(&output, input, 0) {
			return true // the whole segment is inside
		}
		dist := (1 - output.Fraction) * maxDist
		if found && dist >= hit.Distance {
			return true
		}
		hit = RayHit{
			Entity:   desc.entity,
			Point:    r2.Add(origin, r2.Scale(dist, unit)),
			Normal:   r2.Vec{X: -output.Normal.X, Y: -output.Normal.Y},
			Distance: dist,
		}
		found = true
		return true
	}, aabb)

	return hit, found
}
