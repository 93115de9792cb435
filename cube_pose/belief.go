package cubepose

import (
	"math"
	"math/rand"
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/stat"
)

// Belief is a per-axis Gaussian over particles.
type Belief struct {
	PositionMean        r3.Vector
	PositionVariance    r3.Vector
	OrientationMean     r3.Vector
	OrientationVariance r3.Vector
}

// UninformedBelief centers the belief in the bounds with variance ((max-min)/4)^2.
func UninformedBelief(b Bounds) Belief {
	quarterSq := func(lo, hi r3.Vector) r3.Vector {
		d := hi.Sub(lo).Mul(0.25)
		return r3.Vector{X: d.X * d.X, Y: d.Y * d.Y, Z: d.Z * d.Z}
	}
	return Belief{
		PositionMean:        b.PositionMin.Add(b.PositionMax).Mul(0.5),
		PositionVariance:    quarterSq(b.PositionMin, b.PositionMax),
		OrientationMean:     b.OrientationMin.Add(b.OrientationMax).Mul(0.5),
		OrientationVariance: quarterSq(b.OrientationMin, b.OrientationMax),
	}
}

// Mean returns the belief mean as a particle.
func (b Belief) Mean() Particle {
	return Particle{Position: b.PositionMean, Orientation: b.OrientationMean}
}

func (b Belief) variance() [6]float64 {
	return Particle{Position: b.PositionVariance, Orientation: b.OrientationVariance}.vector()
}

func beliefFromVectors(mean, variance [6]float64) Belief {
	m, v := particleFromVector(mean), particleFromVector(variance)
	return Belief{
		PositionMean:        m.Position,
		PositionVariance:    v.Position,
		OrientationMean:     m.Orientation,
		OrientationVariance: v.Orientation,
	}
}

// blend returns alpha*b + (1-alpha)*other, per component.
func (b Belief) blend(other Belief, alpha float64) Belief {
	mix := func(a, o r3.Vector) r3.Vector { return a.Mul(alpha).Add(o.Mul(1 - alpha)) }
	return Belief{
		PositionMean:        mix(b.PositionMean, other.PositionMean),
		PositionVariance:    mix(b.PositionVariance, other.PositionVariance),
		OrientationMean:     mix(b.OrientationMean, other.OrientationMean),
		OrientationVariance: mix(b.OrientationVariance, other.OrientationVariance),
	}
}

func (b Belief) withFloors(position, orientation float64) Belief {
	b.PositionVariance = b.PositionVariance.Add(r3.Vector{X: position, Y: position, Z: position})
	b.OrientationVariance = b.OrientationVariance.Add(r3.Vector{X: orientation, Y: orientation, Z: orientation})
	return b
}

// sampleUniform draws a particle with uniform position over the bounds and a
// uniformly random orientation.
func sampleUniform(bounds Bounds, rng *rand.Rand) Particle {
	lerp := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }
	p := Particle{
		Position: r3.Vector{
			X: lerp(bounds.PositionMin.X, bounds.PositionMax.X),
			Y: lerp(bounds.PositionMin.Y, bounds.PositionMax.Y),
			Z: lerp(bounds.PositionMin.Z, bounds.PositionMax.Z),
		},
		Orientation: randomRotationVector(rng),
	}
	return bounds.Clip(p)
}

// sampleGaussian draws a particle from the belief, clipped to the bounds.
func sampleGaussian(b Belief, bounds Bounds, rng *rand.Rand) Particle {
	mean, variance := b.Mean().vector(), b.variance()
	var v [6]float64
	for i := range v {
		v[i] = mean[i] + rng.NormFloat64()*math.Sqrt(variance[i])
	}
	return bounds.Clip(particleFromVector(v))
}

type scored struct {
	index int
	cost  float64
}

// rankParticles orders indices by (cost, index).
func rankParticles(costs []float64) []scored {
	ranked := make([]scored, len(costs))
	for i, c := range costs {
		ranked[i] = scored{index: i, cost: c}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].cost < ranked[j].cost })
	return ranked
}

// eliteCount returns max(1, round(n*ratio)), capped at n.
func eliteCount(n int, ratio float64) int {
	k := int(math.Round(float64(n) * ratio))
	return max(1, min(k, n))
}

// selectElites returns the top-k particles of the round. When best is not among
// them it replaces the worst elite.
func selectElites(particles []Particle, ranked []scored, k int, best Particle) []Particle {
	elites := make([]Particle, k)
	found := false
	for i := 0; i < k; i++ {
		elites[i] = particles[ranked[i].index]
		if elites[i] == best {
			found = true
		}
	}
	if !found {
		elites[k-1] = best
	}
	return elites
}

// eliteBelief fits a per-axis population mean and variance to the elites.
func eliteBelief(elites []Particle) Belief {
	var mean, variance [6]float64
	column := make([]float64, len(elites))
	for axis := 0; axis < 6; axis++ {
		for i, e := range elites {
			column[i] = e.vector()[axis]
		}
		mean[axis], variance[axis] = stat.PopMeanVariance(column, nil)
	}
	return beliefFromVectors(mean, variance)
}
