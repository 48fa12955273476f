package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ShapeKind discriminates obstacle shapes.
type ShapeKind uint8

const (
	ShapeCircle ShapeKind = iota
	ShapeRectangle
)

func (k ShapeKind) String() string {
	if k == ShapeRectangle {
		return "rectangle"
	}
	return "circle"
}

// Shape is a static collider outline in its local frame, centred on the origin.
type Shape struct {
	Kind   ShapeKind
	Radius float64 // circle
	Width  float64 // rectangle
	Height float64 // rectangle
}

// Circle returns a circle shape.
func Circle(radius float64) Shape {
	return Shape{Kind: ShapeCircle, Radius: radius}
}

// Rectangle returns a rectangle shape.
func Rectangle(width, height float64) Shape {
	return Shape{Kind: ShapeRectangle, Width: width, Height: height}
}

// Bounds returns the world-space axis-aligned bounding box of the shape
// placed at pos with the given rotation.
func (s Shape) Bounds(pos r2.Vec, angle float64) (min, max r2.Vec) {
	var ext r2.Vec
	switch s.Kind {
	case ShapeRectangle:
		sin, cos := math.Sincos(angle)
		hw, hh := s.Width/2, s.Height/2
		ext = r2.Vec{
			X: math.Abs(hw*cos) + math.Abs(hh*sin),
			Y: math.Abs(hw*sin) + math.Abs(hh*cos),
		}
	default:
		ext = r2.Vec{X: s.Radius, Y: s.Radius}
	}
	return r2.Sub(pos, ext), r2.Add(pos, ext)
}

// Distance returns the distance from point p to the shape placed at pos with
// the given rotation. Points inside the shape return 0.
func (s Shape) Distance(pos r2.Vec, angle float64, p r2.Vec) float64 {
	local := Rotate(r2.Sub(p, pos), -angle)
	switch s.Kind {
	case ShapeRectangle:
		dx := math.Max(math.Abs(local.X)-s.Width/2, 0)
		dy := math.Max(math.Abs(local.Y)-s.Height/2, 0)
		return math.Hypot(dx, dy)
	default:
		return math.Max(r2.Norm(local)-s.Radius, 0)
	}
}

// OverlapsCircle reports whether a circle at c with radius r touches the shape.
func (s Shape) OverlapsCircle(pos r2.Vec, angle float64, c r2.Vec, r float64) bool {
	return s.Distance(pos, angle, c) <= r
}
