package components

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pthm-cable/boids/physics"
)

// TargetKind selects the per-kind constants of a target.
type TargetKind uint8

const (
	TargetSeek TargetKind = iota
	TargetFlee
)

// TargetKindInfo holds the constants shared by every target of a kind.
type TargetKindInfo struct {
	Name   string
	Radius float64
	Color  Color
}

var targetKinds = [...]TargetKindInfo{
	TargetSeek: {Name: "seek", Radius: 10, Color: Color{R: 0, G: 255, B: 0, A: 255}},
	TargetFlee: {Name: "flee", Radius: 10, Color: Color{R: 255, G: 0, B: 0, A: 255}},
}

// Info returns the constants for k.
func (k TargetKind) Info() TargetKindInfo {
	if int(k) < len(targetKinds) {
		return targetKinds[k]
	}
	return targetKinds[TargetSeek]
}

// MaxTargetRadius returns the largest radius of any target kind.
func MaxTargetRadius() float64 {
	var r float64
	for _, info := range targetKinds {
		r = math.Max(r, info.Radius)
	}
	return r
}

// String returns the kind's config name.
func (k TargetKind) String() string { return k.Info().Name }

// ParseTargetKind maps a config name to a kind.
func ParseTargetKind(name string) (TargetKind, error) {
	for i, info := range targetKinds {
		if strings.EqualFold(info.Name, name) {
			return TargetKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown target kind %q", name)
}

// Target is a point agents steer toward or away from.
type Target struct {
	Kind TargetKind
}

// Obstacle is a static shape agents avoid.
type Obstacle struct {
	Shape physics.Shape
	Color Color // cosmetic
}

// Color is an 8-bit RGBA colour.
type Color struct {
	R, G, B, A uint8
}

// DefaultObstacleColor is hsl(0.3, 0.3, 0.3).
var DefaultObstacleColor = HSL(0.3, 0.3, 0.3)

// HSL converts hue, saturation and lightness in [0,1] to an opaque colour.
func HSL(h, s, l float64) Color {
	if s == 0 {
		v := uint8(math.Round(l * 255))
		return Color{R: v, G: v, B: v, A: 255}
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return Color{
		R: uint8(math.Round(hueToRGB(p, q, h+1.0/3) * 255)),
		G: uint8(math.Round(hueToRGB(p, q, h) * 255)),
		B: uint8(math.Round(hueToRGB(p, q, h-1.0/3) * 255)),
		A: 255,
	}
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}

// ParseColor reads "#rrggbb". An empty string yields DefaultObstacleColor.
func ParseColor(s string) (Color, error) {
	if s == "" {
		return DefaultObstacleColor, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// Hex formats the colour as "#rrggbb", the form ParseColor reads.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
