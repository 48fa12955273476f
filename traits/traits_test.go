package traits

import "testing"

func TestCapabilitySetOps(t *testing.T) {
	c := Seek.Add(Separation)
	if !c.Has(Seek) || !c.Has(Separation) {
		t.Fatalf("expected seek and separation in %v", c)
	}
	if c.Has(Cohesion) {
		t.Errorf("did not expect cohesion in %v", c)
	}
	if c.Has(Seek | Cohesion) {
		t.Errorf("Has should require every bit, got true for %v", c)
	}
	if c.Has(0) {
		t.Errorf("empty set should never be reported as present")
	}

	c = c.Remove(Seek)
	if c.Has(Seek) {
		t.Errorf("seek still present after Remove: %v", c)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    Capability
		wantErr bool
	}{
		{"empty uses default", nil, Default, false},
		{"single", []string{"seek"}, Seek, false},
		{"mixed case and spaces", []string{" Separation ", "ALIGNMENT"}, Separation | Alignment, false},
		{"flocking alias", []string{"flocking"}, Flocking, false},
		{"all alias", []string{"all"}, All, false},
		{"unknown", []string{"teleport"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	if got := Capability(0).String(); got != "none" {
		t.Errorf("String() = %q, want none", got)
	}
	if got := (Seek | ObstacleAvoidance).String(); got != "seek|obstacle_avoidance" {
		t.Errorf("String() = %q", got)
	}
}
