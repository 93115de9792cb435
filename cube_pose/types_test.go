package cubepose

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

func TestFaceColor_Text(t *testing.T) {
	for _, c := range AllColors() {
		b, err := c.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d) failed: %v", c, err)
		}
		var back FaceColor
		if err := back.UnmarshalText(b); err != nil || back != c {
			t.Errorf("%s: round trip gave %v, %v", b, back, err)
		}
	}

	var colors []FaceColor
	if err := json.Unmarshal([]byte(`["magenta","YELLOW"]`), &colors); err != nil {
		t.Fatalf("json.Unmarshal failed: %v", err)
	}
	if len(colors) != 2 || colors[0] != Magenta || colors[1] != Yellow {
		t.Errorf("decoded %v", colors)
	}
	if _, err := ParseFaceColor("orange"); err == nil {
		t.Error("expected an error for an unknown color")
	}
	if FaceColor(42).Valid() {
		t.Error("FaceColor(42) should be invalid")
	}
}

func TestColorPair_Normalized(t *testing.T) {
	if NewColorPair(Yellow, Red) != NewColorPair(Red, Yellow) {
		t.Error("color pair depends on argument order")
	}
	if p := NewColorPair(Blue, Green); p.A != Green || p.B != Blue {
		t.Errorf("got %v, want green-blue", p)
	}
}

func TestCameraObservation_LinePairs(t *testing.T) {
	obs := CameraObservation{Lines: map[ColorPair]Line{
		NewColorPair(Yellow, Cyan): {},
		NewColorPair(Blue, Red):    {},
		NewColorPair(Green, Red):   {},
		NewColorPair(Blue, Green):  {},
	}}
	want := []ColorPair{
		{A: Red, B: Green}, {A: Red, B: Blue}, {A: Green, B: Blue}, {A: Cyan, B: Yellow},
	}
	for run := 0; run < 5; run++ {
		got := obs.LinePairs()
		if len(got) != len(want) {
			t.Fatalf("got %d pairs, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("run %d: pair %d is %v, want %v", run, i, got[i], want[i])
			}
		}
	}
	if n := len(CameraObservation{}.LinePairs()); n != 0 {
		t.Errorf("empty observation has %d pairs", n)
	}
}

func TestLine(t *testing.T) {
	// x = 2y + 10
	l := Line{Slope: 2, Intercept: 10}
	if d := l.Distance(r2.Point{X: 30, Y: 10}); math.Abs(d) > 1e-12 {
		t.Errorf("point on line has distance %v", d)
	}
	if d := l.Distance(r2.Point{X: 35, Y: 10}); math.Abs(d-5/math.Sqrt(5)) > 1e-12 {
		t.Errorf("distance %v, want %v", d, 5/math.Sqrt(5))
	}

	through, ok := LineThrough(r2.Point{X: 10, Y: 0}, r2.Point{X: 30, Y: 10})
	if !ok || math.Abs(through.Slope-2) > 1e-12 || math.Abs(through.Intercept-10) > 1e-12 {
		t.Errorf("LineThrough = %v, %v", through, ok)
	}
	if _, ok := LineThrough(r2.Point{X: 0, Y: 5}, r2.Point{X: 10, Y: 5}); ok {
		t.Error("horizontal line should not be representable")
	}
}

func TestBounds(t *testing.T) {
	b := DefaultBounds()
	if err := b.Validate(); err != nil {
		t.Fatalf("default bounds invalid: %v", err)
	}
	p := Particle{Position: r3.Vector{X: 1, Y: -1, Z: -0.5}, Orientation: r3.Vector{X: 4}}
	if b.Contains(p) {
		t.Error("out-of-range particle reported inside")
	}
	clipped := b.Clip(p)
	want := Particle{Position: r3.Vector{X: 0.25, Y: -0.25, Z: 0}, Orientation: r3.Vector{X: math.Pi}}
	if clipped != want {
		t.Errorf("Clip = %v, want %v", clipped, want)
	}
}

func TestParticle_Pose(t *testing.T) {
	p := Particle{Position: r3.Vector{X: 0.1, Y: 0.2, Z: 0.03}, Orientation: r3.Vector{Z: math.Pi / 2}}
	pose := p.Pose()
	if pose.Point().Sub(r3.Vector{X: 100, Y: 200, Z: 30}).Norm() > 1e-9 {
		t.Errorf("pose point %v, want millimetres", pose.Point())
	}
	// The pose rotation matches the rotation used for scoring.
	rot := rotationFromVector(p.Orientation)
	x := rot.apply(r3.Vector{X: 1})
	if x.Sub(r3.Vector{Y: 1}).Norm() > 1e-9 {
		t.Errorf("90 degrees about z maps x to %v, want y", x)
	}
	aa := pose.Orientation().AxisAngles()
	if math.Abs(aa.Theta-math.Pi/2) > 1e-9 || math.Abs(aa.RZ-1) > 1e-9 {
		t.Errorf("pose orientation %v, want 90 degrees about z", aa)
	}
}
