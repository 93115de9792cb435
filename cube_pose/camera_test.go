package cubepose

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

func identityTransform() *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
}

func TestNewCameraParameters_Validation(t *testing.T) {
	k := testCameraMatrix()
	tf := identityTransform()

	tests := []struct {
		name       string
		w, h       int
		k, tf      mat.Matrix
		distortion []float64
	}{
		{"zero size", 0, 540, k, tf, nil},
		{"nil matrix", 720, 540, nil, tf, nil},
		{"bad camera matrix", 720, 540, mat.NewDense(2, 3, nil), tf, nil},
		{"bad transform", 720, 540, k, mat.NewDense(3, 3, nil), nil},
		{"zero focal", 720, 540, mat.NewDense(3, 3, []float64{0, 0, 1, 0, 600, 1, 0, 0, 1}), tf, nil},
		{"bad distortion", 720, 540, k, tf, []float64{0.1, 0.2, 0.3}},
		{"non-rotation", 720, 540, k, mat.NewDense(4, 4, []float64{
			2, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		}), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCameraParameters("cam", tt.w, tt.h, tt.k, tt.distortion, tt.tf)
			if !errors.Is(err, ErrInvalidCamera) {
				t.Errorf("expected ErrInvalidCamera, got %v", err)
			}
		})
	}
}

func TestCameraParameters_Project(t *testing.T) {
	cam, err := NewCameraParameters("cam", testWidth, testHeight, testCameraMatrix(), nil, identityTransform())
	if err != nil {
		t.Fatalf("NewCameraParameters failed: %v", err)
	}

	px := cam.Project([]r3.Vector{{X: 0.1, Y: 0.05, Z: 1}})[0]
	if math.Abs(px.X-420) > 1e-9 || math.Abs(px.Y-300) > 1e-9 {
		t.Errorf("projected to %v, want (420, 300)", px)
	}

	// Points behind the camera stay finite.
	behind := cam.ProjectCameraPoint(r3.Vector{X: 0.1, Y: -0.1, Z: -1})
	if math.IsNaN(behind.X) || math.IsInf(behind.X, 0) || math.IsNaN(behind.Y) || math.IsInf(behind.Y, 0) {
		t.Errorf("point behind camera projected to %v", behind)
	}
	if cam.InImage(behind, 30) {
		t.Errorf("point behind camera should not be in the image, got %v", behind)
	}
}

func TestCameraParameters_ProjectCubeCorners(t *testing.T) {
	// Camera 0.5 m below the world origin looking up +z, axes aligned with the world.
	tf := identityTransform()
	tf.Set(2, 3, 0.5)
	cam, err := NewCameraParameters("cam", testWidth, testHeight, testCameraMatrix(), nil, tf)
	if err != nil {
		t.Fatalf("NewCameraParameters failed: %v", err)
	}
	p := Particle{Position: r3.Vector{X: 0.01, Y: -0.02}}

	// Corners sit at x in {0.0425, -0.0225}, y in {0.0125, -0.0525} and camera depth
	// 0.565 (top face) or 0.5 (bottom face); u = 600x/z + 360, v = 600y/z + 270.
	want := [8]r2.Point{
		{X: 360 + 25.5/0.565, Y: 270 + 7.5/0.565},  // +x +y top
		{X: 411, Y: 285},                           // +x +y bottom
		{X: 360 + 25.5/0.565, Y: 270 - 31.5/0.565}, // +x -y top
		{X: 411, Y: 207},                           // +x -y bottom
		{X: 360 - 13.5/0.565, Y: 270 + 7.5/0.565},  // -x +y top
		{X: 333, Y: 285},                           // -x +y bottom
		{X: 360 - 13.5/0.565, Y: 270 - 31.5/0.565}, // -x -y top
		{X: 333, Y: 207},                           // -x -y bottom
	}
	// Spot-check the top-face values against their decimal expansions.
	if math.Abs(want[0].X-405.132743) > 1e-6 || math.Abs(want[6].Y-214.247788) > 1e-6 {
		t.Fatalf("hand values off: %v %v", want[0], want[6])
	}

	got := projectCorners(DefaultCubeModel(), []*CameraParameters{cam}, p)[0]
	if len(got) != len(want) {
		t.Fatalf("got %d corners, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Sub(want[i]).Norm() > 1e-6 {
			t.Errorf("corner %d projected to %v, want %v", i, got[i], want[i])
		}
	}
}

func TestCameraParameters_DistortionZeroIsPinhole(t *testing.T) {
	plain, err := NewCameraParameters("plain", testWidth, testHeight, testCameraMatrix(), nil, identityTransform())
	if err != nil {
		t.Fatalf("NewCameraParameters failed: %v", err)
	}
	zero, err := NewCameraParameters("zero", testWidth, testHeight, testCameraMatrix(), []float64{0, 0, 0, 0, 0}, identityTransform())
	if err != nil {
		t.Fatalf("NewCameraParameters failed: %v", err)
	}
	radial, err := NewCameraParameters("radial", testWidth, testHeight, testCameraMatrix(), []float64{0.2, 0, 0, 0}, identityTransform())
	if err != nil {
		t.Fatalf("NewCameraParameters failed: %v", err)
	}

	p := r3.Vector{X: 0.2, Y: 0.1, Z: 1}
	a, b, c := plain.ProjectCameraPoint(p), zero.ProjectCameraPoint(p), radial.ProjectCameraPoint(p)
	if a.Sub(b).Norm() > 1e-9 {
		t.Errorf("zero distortion moved the point: %v vs %v", a, b)
	}
	// Positive k1 pushes points away from the principal point.
	center := testCameraMatrix()
	pp := r3.Vector{X: center.At(0, 2), Y: center.At(1, 2)}
	if math.Hypot(c.X-pp.X, c.Y-pp.Y) <= math.Hypot(a.X-pp.X, a.Y-pp.Y) {
		t.Errorf("k1 > 0 should push %v further out than %v", c, a)
	}
}

func TestCameraParameters_Center(t *testing.T) {
	eye := r3.Vector{X: 0.3, Y: -0.2, Z: 0.4}
	cam := lookAtCamera(t, "cam", eye, r3.Vector{})
	if d := cam.Center().Sub(eye).Norm(); d > 1e-9 {
		t.Errorf("camera center %v, want %v", cam.Center(), eye)
	}
	// The look-at target projects to the principal point.
	px := cam.Project([]r3.Vector{{}})[0]
	if math.Abs(px.X-testWidth/2) > 1e-6 || math.Abs(px.Y-testHeight/2) > 1e-6 {
		t.Errorf("target projected to %v, want image center", px)
	}

	// Extrinsics maps the camera center to the camera origin.
	pose := cam.Extrinsics()
	q := pose.Orientation().Quaternion()
	v := quat.Mul(quat.Mul(q, quat.Number{Imag: eye.X, Jmag: eye.Y, Kmag: eye.Z}), quat.Conj(q))
	origin := r3.Vector{X: v.Imag, Y: v.Jmag, Z: v.Kmag}.Mul(1000).Add(pose.Point())
	if origin.Norm() > 1e-6 {
		t.Errorf("extrinsics map the camera center to %v mm, want origin", origin)
	}
}
