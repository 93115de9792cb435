package cubepose

import (
	"testing"

	"github.com/golang/geo/r3"
)

func TestVisibleFaces_ThreeFromElevatedCamera(t *testing.T) {
	model := DefaultCubeModel()
	vis := NewVisibilityEvaluator(model)
	for _, cam := range testRig(t) {
		faces := vis.VisibleFaces(testPose(), cam)
		if len(faces) != 3 {
			t.Errorf("%s: expected 3 visible faces, got %d", cam.Name(), len(faces))
		}
		for _, f := range faces {
			if f.Color == Yellow {
				t.Errorf("%s: bottom face reported visible", cam.Name())
			}
			for _, px := range f.ImageCorners {
				if !cam.InImage(px, 0) {
					t.Errorf("%s: %v corner %v outside image", cam.Name(), f.Color, px)
				}
			}
		}
	}
}

func TestVisibleFaces_ExactSets(t *testing.T) {
	model := DefaultCubeModel()
	vis := NewVisibilityEvaluator(model)
	center := r3.Vector{Z: model.Width() / 2}
	tests := []struct {
		name string
		eye  r3.Vector
		want []FaceColor
	}{
		{"diagonal above", center.Add(r3.Vector{X: 0.3, Y: 0.3, Z: 0.3}), []FaceColor{Red, Green, Blue}},
		{"diagonal below", center.Add(r3.Vector{X: -0.3, Y: -0.3, Z: -0.3}), []FaceColor{Cyan, Magenta, Yellow}},
		{"minus x axis", center.Add(r3.Vector{X: -0.5}), []FaceColor{Cyan}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cam := lookAtCamera(t, tc.name, tc.eye, center)
			faces := vis.VisibleFaces(Particle{}, cam)
			if len(faces) != len(tc.want) {
				t.Fatalf("got %d visible faces, want %v", len(faces), tc.want)
			}
			for i, f := range faces {
				if f.Color != tc.want[i] {
					t.Errorf("face %d is %v, want %v", i, f.Color, tc.want[i])
				}
			}
		})
	}
}

func TestIsVisible_OppositeFacesDisagree(t *testing.T) {
	model := DefaultCubeModel()
	vis := NewVisibilityEvaluator(model)
	cam := testRig(t)[0]
	g := vis.Transform(testPose(), cam)

	pairs := [][2]FaceColor{{Red, Cyan}, {Green, Magenta}, {Blue, Yellow}}
	for _, p := range pairs {
		va, sa := vis.IsVisible(p[0], g)
		vb, sb := vis.IsVisible(p[1], g)
		if va && vb {
			t.Errorf("%v and %v both visible (scores %v, %v)", p[0], p[1], sa, sb)
		}
		if va && sa >= 0 || !va && sa < 0 {
			t.Errorf("%v: visible=%v inconsistent with score %v", p[0], va, sa)
		}
	}
}

func TestIsVisible_Degenerate(t *testing.T) {
	vis := NewVisibilityEvaluator(DefaultCubeModel())
	var g FrameGeometry // all zero
	visible, score := vis.IsVisible(Red, g)
	if visible || score != 0 {
		t.Errorf("degenerate geometry: got (%v, %v), want (false, 0)", visible, score)
	}

	g.Normals[facePosX] = r3.Vector{X: 1}
	visible, score = vis.IsVisible(Red, g)
	if visible || score != 0 {
		t.Errorf("zero corner: got (%v, %v), want (false, 0)", visible, score)
	}
}
