package cubepose

import (
	"fmt"
	"image"
	"math"
	"sort"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/rdk/spatialmath"
)

// FaceColor identifies one of the six colored faces of the cube.
type FaceColor int

const (
	Red FaceColor = iota
	Green
	Blue
	Cyan
	Magenta
	Yellow
	numColors
)

var colorNames = [numColors]string{"red", "green", "blue", "cyan", "magenta", "yellow"}

func (c FaceColor) String() string {
	if c < 0 || c >= numColors {
		return "unknown"
	}
	return colorNames[c]
}

// Valid reports whether c names one of the six cube colors.
func (c FaceColor) Valid() bool {
	return c >= 0 && c < numColors
}

// MarshalText implements encoding.TextMarshaler.
func (c FaceColor) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("face color %d out of range", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *FaceColor) UnmarshalText(text []byte) error {
	parsed, err := ParseFaceColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseFaceColor parses a lower-case color name.
func ParseFaceColor(name string) (FaceColor, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range colorNames {
		if n == name {
			return FaceColor(i), nil
		}
	}
	return 0, fmt.Errorf("unknown face color %q", name)
}

// AllColors returns the six face colors in enum order.
func AllColors() []FaceColor {
	colors := make([]FaceColor, numColors)
	for i := range colors {
		colors[i] = FaceColor(i)
	}
	return colors
}

// ColorPair is an unordered pair of face colors. Build it with NewColorPair so that
// both orderings map to the same key.
type ColorPair struct {
	A, B FaceColor
}

// NewColorPair returns the normalized pair of a and b.
func NewColorPair(a, b FaceColor) ColorPair {
	if b < a {
		a, b = b, a
	}
	return ColorPair{A: a, B: b}
}

func (p ColorPair) String() string {
	return p.A.String() + "-" + p.B.String()
}

// Line is an image line parameterized as x = Slope*y + Intercept (pixels).
type Line struct {
	Slope     float64
	Intercept float64
}

// Distance returns the perpendicular distance from (x, y) to the line.
func (l Line) Distance(p r2.Point) float64 {
	return math.Abs(l.Slope*p.Y-(p.X-l.Intercept)) / math.Sqrt(l.Slope*l.Slope+1)
}

// LineThrough returns the line through two image points, or false when they share
// the same row (the parameterization cannot represent horizontal lines).
func LineThrough(p, q r2.Point) (Line, bool) {
	dy := q.Y - p.Y
	if math.Abs(dy) < 1e-9 {
		return Line{}, false
	}
	slope := (q.X - p.X) / dy
	return Line{Slope: slope, Intercept: p.X - slope*p.Y}, true
}

// CameraObservation is what the external per-camera detector reports for one image.
// Masks[i] holds the pixels of DominantColors[i].
type CameraObservation struct {
	Lines          map[ColorPair]Line
	DominantColors []FaceColor
	Masks          [][]image.Point
}

// PixelCount returns the number of mask pixels across all dominant colors.
func (o CameraObservation) PixelCount() int {
	n := 0
	for _, m := range o.Masks {
		n += len(m)
	}
	return n
}

// LinePairs returns the keys of Lines ordered by (A, B), so that anything summed
// or written per line comes out the same on every run.
func (o CameraObservation) LinePairs() []ColorPair {
	pairs := make([]ColorPair, 0, len(o.Lines))
	for pair := range o.Lines {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A != pairs[j].A {
			return pairs[i].A < pairs[j].A
		}
		return pairs[i].B < pairs[j].B
	})
	return pairs
}

// Particle is one pose hypothesis: a position in metres and an orientation as a
// rotation vector (axis * angle, radians).
type Particle struct {
	Position    r3.Vector
	Orientation r3.Vector
}

// Pose returns the particle as an rdk pose. The point is in millimetres.
func (p Particle) Pose() spatialmath.Pose {
	return spatialmath.NewPose(p.Position.Mul(1000), spatialmath.R3ToR4(p.Orientation))
}

func (p Particle) vector() [6]float64 {
	return [6]float64{
		p.Position.X, p.Position.Y, p.Position.Z,
		p.Orientation.X, p.Orientation.Y, p.Orientation.Z,
	}
}

func particleFromVector(v [6]float64) Particle {
	return Particle{
		Position:    r3.Vector{X: v[0], Y: v[1], Z: v[2]},
		Orientation: r3.Vector{X: v[3], Y: v[4], Z: v[5]},
	}
}

// Bounds is the search domain for particles.
type Bounds struct {
	PositionMin    r3.Vector `json:"position_min"`
	PositionMax    r3.Vector `json:"position_max"`
	OrientationMin r3.Vector `json:"orientation_min"`
	OrientationMax r3.Vector `json:"orientation_max"`
}

// DefaultBounds returns the arena bounds of the reference platform.
func DefaultBounds() Bounds {
	return Bounds{
		PositionMin:    r3.Vector{X: -0.25, Y: -0.25, Z: 0},
		PositionMax:    r3.Vector{X: 0.25, Y: 0.25, Z: 0.25},
		OrientationMin: r3.Vector{X: -math.Pi, Y: -math.Pi, Z: -math.Pi},
		OrientationMax: r3.Vector{X: math.Pi, Y: math.Pi, Z: math.Pi},
	}
}

// Validate checks that every axis has min < max.
func (b Bounds) Validate() error {
	lo, hi := b.lower(), b.upper()
	for i := range lo {
		if math.IsNaN(lo[i]) || math.IsNaN(hi[i]) || !(lo[i] < hi[i]) {
			return fmt.Errorf("%w: bounds axis %d has min %v >= max %v", ErrInvalidConfig, i, lo[i], hi[i])
		}
	}
	return nil
}

// Contains reports whether p lies inside the bounds (inclusive).
func (b Bounds) Contains(p Particle) bool {
	v, lo, hi := p.vector(), b.lower(), b.upper()
	for i := range v {
		if v[i] < lo[i] || v[i] > hi[i] {
			return false
		}
	}
	return true
}

// Clip clamps every component of p into the bounds.
func (b Bounds) Clip(p Particle) Particle {
	v, lo, hi := p.vector(), b.lower(), b.upper()
	for i := range v {
		v[i] = math.Max(lo[i], math.Min(v[i], hi[i]))
	}
	return particleFromVector(v)
}

func (b Bounds) lower() [6]float64 {
	return Particle{Position: b.PositionMin, Orientation: b.OrientationMin}.vector()
}

func (b Bounds) upper() [6]float64 {
	return Particle{Position: b.PositionMax, Orientation: b.OrientationMax}.vector()
}

// VisibleFace is a face that points toward a camera, with its projected corners.
type VisibleFace struct {
	Color         FaceColor
	CornerIndices [4]int
	ImageCorners  [4]r2.Point
}

// Estimate is the result of one pose search.
type Estimate struct {
	Particle Particle
	Pose     spatialmath.Pose
	// Cost is the best cost reached during the search.
	Cost float64
	// PoorFit is set when Cost stayed above the configured poor-fit threshold.
	PoorFit bool
	Rounds  int
	Method  Method
	// VisibleFaces holds, per camera, the faces visible at the reported pose.
	VisibleFaces [][]VisibleFace
}
