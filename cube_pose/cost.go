package cubepose

import (
	"fmt"
	"image"
	"math"
	"math/rand"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
)

// CostTerms is the set of terms a CostEvaluator adds up.
type CostTerms uint8

const (
	// MaskContainment penalizes mask pixels outside their face's projected quadrilateral.
	MaskContainment CostTerms = 1 << iota
	// InvisibilityPenalty penalizes reported colors whose face is turned away from the camera.
	InvisibilityPenalty
	// BoundsPenalty rejects poses whose corners project far outside an image.
	BoundsPenalty
	// LineDistance measures projected cube edges against detected color-boundary lines.
	LineDistance

	allTermBits = MaskContainment | InvisibilityPenalty | BoundsPenalty | LineDistance
)

const (
	// ContainmentTerms is the mask-only cost used by the tracker.
	ContainmentTerms = MaskContainment | InvisibilityPenalty
	// AllTerms adds the bounds and line terms for one-shot search.
	AllTerms = allTermBits
)

var termNames = []struct {
	term CostTerms
	name string
}{
	{MaskContainment, "mask_containment"},
	{InvisibilityPenalty, "invisibility_penalty"},
	{BoundsPenalty, "bounds_penalty"},
	{LineDistance, "line_distance"},
}

// Has reports whether every term in t is enabled.
func (c CostTerms) Has(t CostTerms) bool { return c&t == t }

func (c CostTerms) valid() bool { return c != 0 && c&^allTermBits == 0 }

func (c CostTerms) String() string {
	var names []string
	for _, tn := range termNames {
		if c.Has(tn.term) {
			names = append(names, tn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseCostTerms builds a term set from names such as "mask_containment".
func ParseCostTerms(names []string) (CostTerms, error) {
	var terms CostTerms
outer:
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		for _, tn := range termNames {
			if tn.name == n {
				terms |= tn.term
				continue outer
			}
		}
		return 0, fmt.Errorf("%w: unknown cost term %q", ErrInvalidConfig, n)
	}
	return terms, nil
}

type edgeLine struct {
	corners [2]int
	line    Line
}

type colorMask struct {
	color  FaceColor
	pixels []orb.Point
}

type cameraTerms struct {
	cam   *CameraParameters
	masks []colorMask
	lines []edgeLine
}

// CostEvaluator scores pose hypotheses against one frame of observations. It is
// read-only after construction, so Cost may be called from many goroutines.
type CostEvaluator struct {
	model   *CubeModel
	vis     VisibilityEvaluator
	terms   CostTerms
	cfg     CostConfig
	cameras []cameraTerms
}

// NewCostEvaluator prepares observations (one per camera) for scoring.
func NewCostEvaluator(
	model *CubeModel,
	cameras []*CameraParameters,
	observations []CameraObservation,
	terms CostTerms,
	cfg CostConfig,
) (*CostEvaluator, error) {
	if len(cameras) == 0 {
		return nil, ErrNoCameras
	}
	if len(observations) != len(cameras) {
		return nil, fmt.Errorf("%w: %d observations for %d cameras", ErrCameraCountMismatch, len(observations), len(cameras))
	}
	if !terms.valid() {
		return nil, fmt.Errorf("%w: cost terms %v", ErrInvalidConfig, terms)
	}

	e := &CostEvaluator{
		model:   model,
		vis:     NewVisibilityEvaluator(model),
		terms:   terms,
		cfg:     cfg,
		cameras: make([]cameraTerms, len(cameras)),
	}
	for i, obs := range observations {
		if len(obs.Masks) != len(obs.DominantColors) {
			return nil, fmt.Errorf("%w: camera %d has %d masks for %d colors",
				ErrObservationMismatch, i, len(obs.Masks), len(obs.DominantColors))
		}
		ct := cameraTerms{cam: cameras[i]}
		for j, color := range obs.DominantColors {
			if !color.Valid() {
				return nil, fmt.Errorf("%w: camera %d reports invalid color %d", ErrObservationMismatch, i, int(color))
			}
			pixels := make([]orb.Point, len(obs.Masks[j]))
			for k, px := range obs.Masks[j] {
				pixels[k] = orb.Point{float64(px.X), float64(px.Y)}
			}
			ct.masks = append(ct.masks, colorMask{color: color, pixels: pixels})
		}
		for _, pair := range obs.LinePairs() {
			if !pair.A.Valid() || !pair.B.Valid() {
				continue
			}
			edge, ok := model.SharedEdge(pair.A, pair.B)
			if !ok {
				continue
			}
			ct.lines = append(ct.lines, edgeLine{corners: edge, line: obs.Lines[pair]})
		}
		e.cameras[i] = ct
	}
	return e, nil
}

// Terms returns the enabled cost terms.
func (e *CostEvaluator) Terms() CostTerms { return e.terms }

// Cost scores one particle. Lower is better; the result is always finite.
func (e *CostEvaluator) Cost(p Particle) float64 {
	rot := rotationFromVector(p.Orientation)

	var cost float64
	var projected [8]r2.Point
	for _, ct := range e.cameras {
		g := e.vis.transform(rot, p.Position, ct.cam)
		for i, c := range g.Corners {
			projected[i] = ct.cam.ProjectCameraPoint(c)
		}

		if e.terms.Has(BoundsPenalty) {
			for _, pt := range projected {
				if !ct.cam.InImage(pt, e.cfg.BoundsMarginPx) {
					return e.cfg.OutOfBoundsCost
				}
			}
		}

		cost += e.maskCost(ct, g, &projected)

		if e.terms.Has(LineDistance) {
			var d float64
			for _, el := range ct.lines {
				d += el.line.Distance(projected[el.corners[0]]) + el.line.Distance(projected[el.corners[1]])
			}
			cost += e.cfg.LineScale * d
		}
	}

	if math.IsNaN(cost) || cost > e.cfg.OutOfBoundsCost {
		return e.cfg.OutOfBoundsCost
	}
	return cost
}

func (e *CostEvaluator) maskCost(ct cameraTerms, g FrameGeometry, projected *[8]r2.Point) float64 {
	var cost float64
	for _, m := range ct.masks {
		if len(m.pixels) == 0 {
			continue
		}
		visible, score := e.vis.IsVisible(m.color, g)
		if !visible {
			if e.terms.Has(InvisibilityPenalty) {
				cost += e.cfg.InvisibleScale * score * float64(len(m.pixels))
			}
			continue
		}
		if !e.terms.Has(MaskContainment) {
			continue
		}
		idx := e.model.FaceCorners(m.color)
		q := newQuad([4]r2.Point{projected[idx[0]], projected[idx[1]], projected[idx[2]], projected[idx[3]]})
		var outside float64
		for _, px := range m.pixels {
			outside += q.outsideDistance(px)
		}
		cost += e.cfg.MaskScale * outside
	}
	return cost
}

func projectCorners(model *CubeModel, cameras []*CameraParameters, p Particle) [][]r2.Point {
	rot := rotationFromVector(p.Orientation)
	corners := model.Corners()
	world := make([]r3.Vector, len(corners))
	for i, c := range corners {
		world[i] = rot.apply(c).Add(p.Position)
	}
	out := make([][]r2.Point, len(cameras))
	for i, cam := range cameras {
		out[i] = cam.Project(world)
	}
	return out
}

// SubsampleMasks reduces the observations to about budget mask pixels in total,
// sampling each (camera, color) mask in proportion to its size. Non-empty masks keep
// at least one pixel. A budget <= 0 or above the pixel total returns obs unchanged.
func SubsampleMasks(obs []CameraObservation, budget int, rng *rand.Rand) []CameraObservation {
	total := 0
	for _, o := range obs {
		total += o.PixelCount()
	}
	if budget <= 0 || total <= budget {
		return obs
	}

	ratio := float64(budget) / float64(total)
	out := make([]CameraObservation, len(obs))
	for i, o := range obs {
		sampled := CameraObservation{
			Lines:          o.Lines,
			DominantColors: o.DominantColors,
			Masks:          make([][]image.Point, len(o.Masks)),
		}
		for j, mask := range o.Masks {
			if len(mask) == 0 {
				continue
			}
			n := int(math.Round(ratio * float64(len(mask))))
			n = max(1, min(n, len(mask)))
			sampled.Masks[j] = samplePixels(mask, n, rng)
		}
		out[i] = sampled
	}
	return out
}

// samplePixels draws n distinct pixels with a partial Fisher-Yates shuffle.
func samplePixels(mask []image.Point, n int, rng *rand.Rand) []image.Point {
	pool := make([]image.Point, len(mask))
	copy(pool, mask)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
