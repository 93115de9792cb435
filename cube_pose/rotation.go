package cubepose

import (
	"math"
	"math/rand"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/spatialmath"
	"gonum.org/v1/gonum/num/quat"
)

// mat3 is a row-major 3x3 rotation used in the scoring hot path.
type mat3 [9]float64

var identity3 = mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}

// rotationFromVector converts an axis-angle rotation vector to a rotation matrix
// (Rodrigues).
func rotationFromVector(rv r3.Vector) mat3 {
	theta := rv.Norm()
	if theta < 1e-12 {
		return identity3
	}
	k := rv.Mul(1 / theta)
	c, s := math.Cos(theta), math.Sin(theta)
	t := 1 - c
	return mat3{
		c + t*k.X*k.X, t*k.X*k.Y - s*k.Z, t*k.X*k.Z + s*k.Y,
		t*k.Y*k.X + s*k.Z, c + t*k.Y*k.Y, t*k.Y*k.Z - s*k.X,
		t*k.Z*k.X - s*k.Y, t*k.Z*k.Y + s*k.X, c + t*k.Z*k.Z,
	}
}

// quaternion returns the unit quaternion of m with non-negative real part.
func (m mat3) quaternion() quat.Number {
	var q quat.Number
	switch tr := m[0] + m[4] + m[8]; {
	case tr > 0:
		s := 2 * math.Sqrt(tr+1)
		q = quat.Number{Real: s / 4, Imag: (m[7] - m[5]) / s, Jmag: (m[2] - m[6]) / s, Kmag: (m[3] - m[1]) / s}
	case m[0] > m[4] && m[0] > m[8]:
		s := 2 * math.Sqrt(1+m[0]-m[4]-m[8])
		q = quat.Number{Real: (m[7] - m[5]) / s, Imag: s / 4, Jmag: (m[1] + m[3]) / s, Kmag: (m[2] + m[6]) / s}
	case m[4] > m[8]:
		s := 2 * math.Sqrt(1+m[4]-m[0]-m[8])
		q = quat.Number{Real: (m[2] - m[6]) / s, Imag: (m[1] + m[3]) / s, Jmag: s / 4, Kmag: (m[5] + m[7]) / s}
	default:
		s := 2 * math.Sqrt(1+m[8]-m[0]-m[4])
		q = quat.Number{Real: (m[3] - m[1]) / s, Imag: (m[2] + m[6]) / s, Jmag: (m[5] + m[7]) / s, Kmag: s / 4}
	}
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return quat.Scale(1/quat.Abs(q), q)
}

func (m mat3) apply(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: m[0]*v.X + m[1]*v.Y + m[2]*v.Z,
		Y: m[3]*v.X + m[4]*v.Y + m[5]*v.Z,
		Z: m[6]*v.X + m[7]*v.Y + m[8]*v.Z,
	}
}

func (m mat3) mul(n mat3) mat3 {
	var out mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = m[r*3]*n[c] + m[r*3+1]*n[3+c] + m[r*3+2]*n[6+c]
		}
	}
	return out
}

func (m mat3) transpose() mat3 {
	return mat3{m[0], m[3], m[6], m[1], m[4], m[7], m[2], m[5], m[8]}
}

// randomRotationVector samples a rotation uniformly over SO(3): a uniform unit
// quaternion (Shoemake) converted to a rotation vector with angle in [0, pi].
func randomRotationVector(rng *rand.Rand) r3.Vector {
	u1, u2, u3 := rng.Float64(), rng.Float64(), rng.Float64()
	a, b := math.Sqrt(1-u1), math.Sqrt(u1)
	q := quat.Number{
		Real: b * math.Cos(2*math.Pi*u3),
		Imag: a * math.Sin(2*math.Pi*u2),
		Jmag: a * math.Cos(2*math.Pi*u2),
		Kmag: b * math.Sin(2*math.Pi*u3),
	}
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	q = quat.Scale(1/quat.Abs(q), q)
	o := spatialmath.Quaternion(q)
	return o.AxisAngles().ToR3()
}

// rotationAngleBetween returns the angle in radians of the rotation taking a to b.
func rotationAngleBetween(a, b r3.Vector) float64 {
	rel := rotationFromVector(a).transpose().mul(rotationFromVector(b))
	c := (rel[0] + rel[4] + rel[8] - 1) / 2
	return math.Acos(math.Max(-1, math.Min(1, c)))
}
