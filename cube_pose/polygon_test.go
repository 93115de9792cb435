package cubepose

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
)

func TestQuad_Distances(t *testing.T) {
	q := newQuad([4]r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}})

	tests := []struct {
		p       orb.Point
		signed  float64
		outside float64
	}{
		{orb.Point{5, 5}, 5, 0},
		{orb.Point{1, 5}, 1, 0},
		{orb.Point{13, 5}, -3, 3},
		{orb.Point{13, 14}, -5, 5},
		{orb.Point{-2, -2}, -math.Sqrt(8), math.Sqrt(8)},
	}
	for _, tt := range tests {
		if got := q.signedDistance(tt.p); math.Abs(got-tt.signed) > 1e-9 {
			t.Errorf("signedDistance(%v) = %v, want %v", tt.p, got, tt.signed)
		}
		if got := q.outsideDistance(tt.p); math.Abs(got-tt.outside) > 1e-9 {
			t.Errorf("outsideDistance(%v) = %v, want %v", tt.p, got, tt.outside)
		}
	}
}

func TestQuad_WindingIndependent(t *testing.T) {
	cw := newQuad([4]r2.Point{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}})
	if d := cw.signedDistance(orb.Point{5, 5}); d <= 0 {
		t.Errorf("inside point in clockwise quad has signed distance %v", d)
	}
}
