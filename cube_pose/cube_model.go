package cubepose

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// DefaultCubeWidth is the edge length of the reference cube in metres.
const DefaultCubeWidth = 0.065

// CubeAnchor selects where the cube-local origin sits.
type CubeAnchor int

const (
	// AnchorBottomFace puts the origin at the center of the yellow (-Z) face, so a cube
	// resting on the table at position z=0 is in contact with it.
	AnchorBottomFace CubeAnchor = iota
	// AnchorCentroid puts the origin at the cube center.
	AnchorCentroid
)

func (a CubeAnchor) String() string {
	switch a {
	case AnchorBottomFace:
		return "bottom_face"
	case AnchorCentroid:
		return "centroid"
	default:
		return "unknown"
	}
}

// Face normal indices.
const (
	facePosX = iota
	faceNegX
	facePosY
	faceNegY
	facePosZ
	faceNegZ
	numFaces
)

// signs of each corner relative to the cube center.
var cornerSigns = [8][3]float64{
	{+1, +1, +1},
	{+1, +1, -1},
	{+1, -1, +1},
	{+1, -1, -1},
	{-1, +1, +1},
	{-1, +1, -1},
	{-1, -1, +1},
	{-1, -1, -1},
}

var faceNormals = [numFaces]r3.Vector{
	facePosX: {X: 1},
	faceNegX: {X: -1},
	facePosY: {Y: 1},
	faceNegY: {Y: -1},
	facePosZ: {Z: 1},
	faceNegZ: {Z: -1},
}

// Corners of each face, ordered around the face so they form a simple quadrilateral.
var faceCornerLoops = [numFaces][4]int{
	facePosX: {0, 1, 3, 2},
	faceNegX: {4, 5, 7, 6},
	facePosY: {0, 1, 5, 4},
	faceNegY: {2, 3, 7, 6},
	facePosZ: {0, 2, 6, 4},
	faceNegZ: {1, 3, 7, 5},
}

// Opposite faces carry complementary colors.
var colorToFace = [numColors]int{
	Red:     facePosX,
	Cyan:    faceNegX,
	Green:   facePosY,
	Magenta: faceNegY,
	Blue:    facePosZ,
	Yellow:  faceNegZ,
}

// CubeModel is the static geometry of the colored cube. It is immutable after
// construction and safe to share between goroutines.
type CubeModel struct {
	width   float64
	anchor  CubeAnchor
	corners [8]r3.Vector
	edges   map[[2]int][2]int // face pair (low, high) -> shared corners
	edgeSet [][2]int
}

// NewCubeModel builds the cube geometry for the given edge length.
func NewCubeModel(width float64, anchor CubeAnchor) (*CubeModel, error) {
	if !(width > 0) {
		return nil, fmt.Errorf("%w: width must be positive, got %v", ErrInvalidCube, width)
	}
	if anchor != AnchorBottomFace && anchor != AnchorCentroid {
		return nil, fmt.Errorf("%w: unknown anchor %d", ErrInvalidCube, anchor)
	}

	half := width / 2
	m := &CubeModel{
		width:  width,
		anchor: anchor,
		edges:  make(map[[2]int][2]int),
	}
	for i, s := range cornerSigns {
		m.corners[i] = r3.Vector{X: s[0] * half, Y: s[1] * half, Z: s[2] * half}
		if anchor == AnchorBottomFace {
			m.corners[i].Z += half
		}
	}

	// Two faces are adjacent iff they share exactly two corners.
	seen := make(map[[2]int]bool)
	for a := 0; a < numFaces; a++ {
		for b := a + 1; b < numFaces; b++ {
			shared := sharedCorners(faceCornerLoops[a], faceCornerLoops[b])
			if len(shared) != 2 {
				continue
			}
			edge := [2]int{shared[0], shared[1]}
			m.edges[[2]int{a, b}] = edge
			if !seen[edge] {
				seen[edge] = true
				m.edgeSet = append(m.edgeSet, edge)
			}
		}
	}
	if len(m.edgeSet) != 12 {
		return nil, fmt.Errorf("%w: expected 12 edges, found %d", ErrInvalidCube, len(m.edgeSet))
	}
	return m, nil
}

// DefaultCubeModel returns the reference 65 mm cube anchored at its bottom face.
func DefaultCubeModel() *CubeModel {
	m, err := NewCubeModel(DefaultCubeWidth, AnchorBottomFace)
	if err != nil {
		panic(err)
	}
	return m
}

func sharedCorners(a, b [4]int) []int {
	var out []int
	for _, x := range a {
		for _, y := range b {
			if x == y {
				out = append(out, x)
			}
		}
	}
	return out
}

// Width returns the cube edge length in metres.
func (m *CubeModel) Width() float64 { return m.width }

// Anchor returns the origin convention of the model.
func (m *CubeModel) Anchor() CubeAnchor { return m.anchor }

// Corners returns the 8 corners in the cube-local frame.
func (m *CubeModel) Corners() [8]r3.Vector { return m.corners }

// Normals returns the 6 outward unit face normals, indexed by face.
func (m *CubeModel) Normals() [6]r3.Vector { return faceNormals }

// Center returns the cube center in the cube-local frame.
func (m *CubeModel) Center() r3.Vector {
	if m.anchor == AnchorBottomFace {
		return r3.Vector{Z: m.width / 2}
	}
	return r3.Vector{}
}

// Colors returns the face colors in enum order.
func (m *CubeModel) Colors() []FaceColor { return AllColors() }

// FaceIndex returns the normal index of the face carrying color.
func (m *CubeModel) FaceIndex(color FaceColor) int {
	return colorToFace[color]
}

// FaceCorners returns the 4 corner indices of the face carrying color, in loop order.
func (m *CubeModel) FaceCorners(color FaceColor) [4]int {
	return faceCornerLoops[colorToFace[color]]
}

// SharedEdge returns the two corners of the edge between the faces of a and b. The
// second result is false for the same or opposite faces.
func (m *CubeModel) SharedEdge(a, b FaceColor) ([2]int, bool) {
	fa, fb := colorToFace[a], colorToFace[b]
	if fb < fa {
		fa, fb = fb, fa
	}
	edge, ok := m.edges[[2]int{fa, fb}]
	return edge, ok
}

// Edges returns the 12 cube edges as corner index pairs.
func (m *CubeModel) Edges() [][2]int {
	out := make([][2]int, len(m.edgeSet))
	copy(out, m.edgeSet)
	return out
}
