package cubepose

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// quad is a projected face, stored as a closed ring.
type quad struct {
	ring  orb.Ring
	bound orb.Bound
}

func newQuad(corners [4]r2.Point) quad {
	ring := make(orb.Ring, 0, 5)
	for _, c := range corners {
		ring = append(ring, orb.Point{c.X, c.Y})
	}
	ring = append(ring, ring[0])
	return quad{ring: ring, bound: ring.Bound()}
}

// signedDistance returns the distance from p to the quad boundary, positive inside
// and negative outside.
func (q quad) signedDistance(p orb.Point) float64 {
	d := math.Inf(1)
	for i := 0; i < len(q.ring)-1; i++ {
		d = math.Min(d, planar.DistanceFromSegment(q.ring[i], q.ring[i+1], p))
	}
	if q.bound.Contains(p) && planar.RingContains(q.ring, p) {
		return d
	}
	return -d
}

// outsideDistance returns how far p lies outside the quad, or 0 when inside.
func (q quad) outsideDistance(p orb.Point) float64 {
	if q.bound.Contains(p) && planar.RingContains(q.ring, p) {
		return 0
	}
	d := math.Inf(1)
	for i := 0; i < len(q.ring)-1; i++ {
		d = math.Min(d, planar.DistanceFromSegment(q.ring[i], q.ring[i+1], p))
	}
	return d
}
