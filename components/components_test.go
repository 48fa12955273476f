package components

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestHSLDefaultObstacleColor(t *testing.T) {
	want := Color{R: 63, G: 99, B: 54, A: 255}
	if DefaultObstacleColor != want {
		t.Errorf("hsl(0.3, 0.3, 0.3) = %+v, want %+v", DefaultObstacleColor, want)
	}
	if got := HSL(0, 0, 0.5); got != (Color{R: 128, G: 128, B: 128, A: 255}) {
		t.Errorf("grey = %+v", got)
	}
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff8000")
	if err != nil || c != (Color{R: 255, G: 128, B: 0, A: 255}) {
		t.Errorf("ParseColor = %+v, %v", c, err)
	}
	if c, _ := ParseColor(""); c != DefaultObstacleColor {
		t.Errorf("empty colour should use the default, got %+v", c)
	}
	if _, err := ParseColor("#12"); err == nil {
		t.Error("expected error for short colour")
	}
	if _, err := ParseColor("#gggggg"); err == nil {
		t.Error("expected error for non-hex colour")
	}
	if back, _ := ParseColor(DefaultObstacleColor.Hex()); back != DefaultObstacleColor {
		t.Errorf("Hex round trip = %+v", back)
	}
}

func TestTargetKinds(t *testing.T) {
	k, err := ParseTargetKind("Flee")
	if err != nil || k != TargetFlee {
		t.Fatalf("ParseTargetKind = %v, %v", k, err)
	}
	if TargetSeek.Info().Radius != 10 || TargetFlee.Info().Radius != 10 {
		t.Error("target radius should be 10")
	}
	if TargetSeek.Info().Color.G != 255 || TargetFlee.Info().Color.R != 255 {
		t.Error("seek is green, flee is red")
	}
	if MaxTargetRadius() != 10 {
		t.Errorf("MaxTargetRadius = %v", MaxTargetRadius())
	}
	if _, err := ParseTargetKind("bait"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestSteeringAccumulates(t *testing.T) {
	var s Steering
	s.Add(r2.Vec{X: 1, Y: 2})
	s.Add(r2.Vec{X: -3, Y: 1})
	if s.Vec() != (r2.Vec{X: -2, Y: 3}) {
		t.Errorf("accumulator = %v", s.Vec())
	}
	s.Reset()
	if s.Vec() != (r2.Vec{}) {
		t.Errorf("reset accumulator = %v", s.Vec())
	}
}
