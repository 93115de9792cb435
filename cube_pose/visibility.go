package cubepose

import (
	"github.com/golang/geo/r3"
)

// normEpsilon guards the cosine in IsVisible against degenerate vectors.
const normEpsilon = 1e-12

// FrameGeometry holds the cube normals and corners expressed in a camera frame.
type FrameGeometry struct {
	Normals [6]r3.Vector
	Corners [8]r3.Vector
}

// VisibilityEvaluator decides which faces of the cube point toward a camera.
type VisibilityEvaluator struct {
	model *CubeModel
}

// NewVisibilityEvaluator returns an evaluator for the given cube.
func NewVisibilityEvaluator(model *CubeModel) VisibilityEvaluator {
	return VisibilityEvaluator{model: model}
}

// Transform applies the particle pose and then the camera extrinsics to the model.
func (v VisibilityEvaluator) Transform(p Particle, cam *CameraParameters) FrameGeometry {
	return v.transform(rotationFromVector(p.Orientation), p.Position, cam)
}

func (v VisibilityEvaluator) transform(rot mat3, pos r3.Vector, cam *CameraParameters) FrameGeometry {
	var g FrameGeometry
	full := cam.rotation.mul(rot)
	for i, n := range v.model.Normals() {
		g.Normals[i] = full.apply(n)
	}
	for i, c := range v.model.corners {
		g.Corners[i] = cam.ToCamera(rot.apply(c).Add(pos))
	}
	return g
}

// IsVisible reports whether the face of color points toward the camera. The score
// is the cosine between the face normal and the camera-to-corner ray: negative for
// visible faces, positive for faces turned away. Degenerate vectors yield (false, 0).
func (v VisibilityEvaluator) IsVisible(color FaceColor, g FrameGeometry) (bool, float64) {
	normal := g.Normals[v.model.FaceIndex(color)]
	corner := g.Corners[v.model.FaceCorners(color)[0]]

	nn, cn := normal.Norm(), corner.Norm()
	if nn < normEpsilon || cn < normEpsilon {
		return false, 0
	}
	score := normal.Dot(corner) / nn / cn
	return score < 0, score
}

// VisibleFaces lists the faces visible from cam at pose p with their projected corners.
func (v VisibilityEvaluator) VisibleFaces(p Particle, cam *CameraParameters) []VisibleFace {
	g := v.Transform(p, cam)
	var faces []VisibleFace
	for _, color := range AllColors() {
		visible, _ := v.IsVisible(color, g)
		if !visible {
			continue
		}
		idx := v.model.FaceCorners(color)
		face := VisibleFace{Color: color, CornerIndices: idx}
		for i, ci := range idx {
			face.ImageCorners[i] = cam.ProjectCameraPoint(g.Corners[ci])
		}
		faces = append(faces, face)
	}
	return faces
}
