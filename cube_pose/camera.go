package cubepose

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/rdk/rimage/transform"
	"go.viam.com/rdk/spatialmath"
	"gonum.org/v1/gonum/mat"
)

// minDepth keeps points at or behind the image plane finite when projected.
const minDepth = 1e-6

// CameraParameters holds the calibration of one fixed camera. It is immutable after
// construction and safe for concurrent use.
type CameraParameters struct {
	name       string
	intrinsics transform.PinholeCameraIntrinsics
	distortion *transform.BrownConrady

	rotation    mat3      // world -> camera
	translation r3.Vector // world -> camera, metres
	center      r3.Vector // camera origin in world
}

// NewCameraParameters builds a camera from a 3x3 camera matrix, OpenCV-ordered
// distortion coefficients (k1, k2, p1, p2[, k3], or none) and a 4x4 (or 3x4)
// world-to-camera transform in metres.
func NewCameraParameters(
	name string,
	width, height int,
	cameraMatrix mat.Matrix,
	distortion []float64,
	worldToCamera mat.Matrix,
) (*CameraParameters, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %s: image size %dx%d", ErrInvalidCamera, name, width, height)
	}
	if cameraMatrix == nil || worldToCamera == nil {
		return nil, fmt.Errorf("%w: %s: nil matrix", ErrInvalidCamera, name)
	}
	if r, c := cameraMatrix.Dims(); r != 3 || c != 3 {
		return nil, fmt.Errorf("%w: %s: camera matrix is %dx%d, want 3x3", ErrInvalidCamera, name, r, c)
	}
	if r, c := worldToCamera.Dims(); (r != 4 && r != 3) || c != 4 {
		return nil, fmt.Errorf("%w: %s: transform is %dx%d, want 4x4", ErrInvalidCamera, name, r, c)
	}

	fx, fy := cameraMatrix.At(0, 0), cameraMatrix.At(1, 1)
	if !(fx > 0) || !(fy > 0) {
		return nil, fmt.Errorf("%w: %s: focal lengths must be positive (fx=%v fy=%v)", ErrInvalidCamera, name, fx, fy)
	}

	cam := &CameraParameters{
		name: name,
		intrinsics: transform.PinholeCameraIntrinsics{
			Width:  width,
			Height: height,
			Fx:     fx,
			Fy:     fy,
			Ppx:    cameraMatrix.At(0, 2),
			Ppy:    cameraMatrix.At(1, 2),
		},
	}

	switch len(distortion) {
	case 0:
	case 4, 5:
		bc := &transform.BrownConrady{
			RadialK1:     distortion[0],
			RadialK2:     distortion[1],
			TangentialP1: distortion[2],
			TangentialP2: distortion[3],
		}
		if len(distortion) == 5 {
			bc.RadialK3 = distortion[4]
		}
		cam.distortion = bc
	default:
		return nil, fmt.Errorf("%w: %s: %d distortion coefficients, want 0, 4 or 5", ErrInvalidCamera, name, len(distortion))
	}

	rot := mat.DenseCopyOf(worldToCamera).Slice(0, 3, 0, 3)
	var rrt mat.Dense
	rrt.Mul(rot, rot.T())
	if !mat.EqualApprox(&rrt, mat.NewDiagDense(3, []float64{1, 1, 1}), 1e-3) {
		return nil, fmt.Errorf("%w: %s: rotation block is not orthonormal", ErrInvalidCamera, name)
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			cam.rotation[r*3+c] = rot.At(r, c)
		}
	}
	cam.translation = r3.Vector{X: worldToCamera.At(0, 3), Y: worldToCamera.At(1, 3), Z: worldToCamera.At(2, 3)}
	cam.center = cam.rotation.transpose().apply(cam.translation).Mul(-1)
	return cam, nil
}

// Name returns the camera name.
func (c *CameraParameters) Name() string { return c.name }

// Intrinsics returns the pinhole intrinsics.
func (c *CameraParameters) Intrinsics() transform.PinholeCameraIntrinsics { return c.intrinsics }

// Center returns the camera origin in world coordinates (metres).
func (c *CameraParameters) Center() r3.Vector { return c.center }

// Extrinsics returns the world-to-camera transform as an rdk pose (millimetres).
func (c *CameraParameters) Extrinsics() spatialmath.Pose {
	q := spatialmath.Quaternion(c.rotation.quaternion())
	return spatialmath.NewPose(c.translation.Mul(1000), &q)
}

// ToCamera maps a world point into the camera frame.
func (c *CameraParameters) ToCamera(p r3.Vector) r3.Vector {
	return c.rotation.apply(p).Add(c.translation)
}

// ProjectCameraPoint projects a point given in the camera frame to pixel coordinates.
func (c *CameraParameters) ProjectCameraPoint(p r3.Vector) r2.Point {
	z := p.Z
	if z < minDepth {
		z = minDepth
	}
	x, y := p.X/z, p.Y/z
	if c.distortion != nil {
		x, y = c.distortion.Transform(x, y)
	}
	// Sub-pixel; PinholeCameraIntrinsics.PointToPixel rounds.
	return r2.Point{
		X: x*c.intrinsics.Fx + c.intrinsics.Ppx,
		Y: y*c.intrinsics.Fy + c.intrinsics.Ppy,
	}
}

// Project projects world points to pixel coordinates.
func (c *CameraParameters) Project(points []r3.Vector) []r2.Point {
	out := make([]r2.Point, len(points))
	for i, p := range points {
		out[i] = c.ProjectCameraPoint(c.ToCamera(p))
	}
	return out
}

// InImage reports whether p lies within the image extended by margin pixels.
func (c *CameraParameters) InImage(p r2.Point, margin float64) bool {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return false
	}
	return p.X >= -margin && p.X <= float64(c.intrinsics.Width)+margin &&
		p.Y >= -margin && p.Y <= float64(c.intrinsics.Height)+margin
}
