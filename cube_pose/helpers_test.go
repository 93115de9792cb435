package cubepose

import (
	"image"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"
)

const (
	testWidth  = 720
	testHeight = 540
	testFocal  = 600.0
)

func testCameraMatrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		testFocal, 0, testWidth / 2,
		0, testFocal, testHeight / 2,
		0, 0, 1,
	})
}

// lookAtTransform returns the world-to-camera transform of a camera at eye looking
// at target, with image x to the right and y down.
func lookAtTransform(eye, target r3.Vector) *mat.Dense {
	z := target.Sub(eye).Normalize()
	x := z.Cross(r3.Vector{Z: 1}).Normalize()
	y := z.Cross(x)
	rows := [3]r3.Vector{x, y, z}
	tf := mat.NewDense(4, 4, nil)
	for r, row := range rows {
		tf.Set(r, 0, row.X)
		tf.Set(r, 1, row.Y)
		tf.Set(r, 2, row.Z)
		tf.Set(r, 3, -row.Dot(eye))
	}
	tf.Set(3, 3, 1)
	return tf
}

func lookAtCamera(t *testing.T, name string, eye, target r3.Vector) *CameraParameters {
	t.Helper()
	cam, err := NewCameraParameters(name, testWidth, testHeight, testCameraMatrix(), nil, lookAtTransform(eye, target))
	if err != nil {
		t.Fatalf("NewCameraParameters(%s) failed: %v", name, err)
	}
	return cam
}

// testRig places three cameras 0.5 m from the arena center at 45 degrees
// elevation, 120 degrees apart, like the reference platform.
func testRig(t *testing.T) []*CameraParameters {
	t.Helper()
	target := r3.Vector{Z: 0.03}
	var cams []*CameraParameters
	for i, azDeg := range []float64{45, 165, 285} {
		az, el := azDeg*math.Pi/180, math.Pi/4
		eye := r3.Vector{
			X: 0.5 * math.Cos(el) * math.Cos(az),
			Y: 0.5 * math.Cos(el) * math.Sin(az),
			Z: 0.03 + 0.5*math.Sin(el),
		}
		cams = append(cams, lookAtCamera(t, []string{"camera60", "camera180", "camera300"}[i], eye, target))
	}
	return cams
}

// syntheticObservations renders the visible faces of p into masks and derives a
// line for every pair of visible adjacent faces.
func syntheticObservations(model *CubeModel, cams []*CameraParameters, p Particle) []CameraObservation {
	vis := NewVisibilityEvaluator(model)
	obs := make([]CameraObservation, len(cams))
	for i, cam := range cams {
		projected := projectCorners(model, []*CameraParameters{cam}, p)[0]
		o := CameraObservation{Lines: make(map[ColorPair]Line)}
		faces := vis.VisibleFaces(p, cam)
		for _, f := range faces {
			o.DominantColors = append(o.DominantColors, f.Color)
			o.Masks = append(o.Masks, rasterize(f.ImageCorners))
		}
		for a := 0; a < len(faces); a++ {
			for b := a + 1; b < len(faces); b++ {
				edge, ok := model.SharedEdge(faces[a].Color, faces[b].Color)
				if !ok {
					continue
				}
				line, ok := LineThrough(projected[edge[0]], projected[edge[1]])
				if !ok {
					continue
				}
				o.Lines[NewColorPair(faces[a].Color, faces[b].Color)] = line
			}
		}
		obs[i] = o
	}
	return obs
}

func rasterize(corners [4]r2.Point) []image.Point {
	q := newQuad(corners)
	var pixels []image.Point
	for y := int(math.Floor(q.bound.Min.Y())); y <= int(math.Ceil(q.bound.Max.Y())); y++ {
		for x := int(math.Floor(q.bound.Min.X())); x <= int(math.Ceil(q.bound.Max.X())); x++ {
			if q.signedDistance(orb.Point{float64(x), float64(y)}) > 0.5 {
				pixels = append(pixels, image.Point{X: x, Y: y})
			}
		}
	}
	return pixels
}

func testPose() Particle {
	return Particle{
		Position:    r3.Vector{X: 0.02, Y: -0.015, Z: 0},
		Orientation: r3.Vector{Z: 0.4},
	}
}
