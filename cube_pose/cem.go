package cubepose

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"go.viam.com/rdk/logging"
)

// TrackerState is the sampling regime of a Tracker.
type TrackerState int

const (
	// Fresh samples particles uniformly over the bounds.
	Fresh TrackerState = iota
	// Tracking samples particles from the current belief.
	Tracking
)

// orDefaultLogger returns logger, or a package logger when it is nil.
func orDefaultLogger(logger logging.Logger) logging.Logger {
	if logger == nil {
		return logging.NewLogger("cubepose")
	}
	return logger
}

func (s TrackerState) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Tracking:
		return "tracking"
	default:
		return fmt.Sprintf("TrackerState(%d)", int(s))
	}
}

// Tracker estimates the cube pose with the cross-entropy method, optionally
// carrying its belief from one frame to the next.
type Tracker struct {
	logger  logging.Logger
	model   *CubeModel
	cameras []*CameraParameters
	cfg     Config

	mu     sync.Mutex
	rng    *rand.Rand
	state  TrackerState
	belief Belief
}

// NewTracker validates cfg and returns a tracker in the Fresh state.
func NewTracker(model *CubeModel, cameras []*CameraParameters, cfg Config, logger logging.Logger) (*Tracker, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", ErrInvalidCube)
	}
	if len(cameras) == 0 {
		return nil, ErrNoCameras
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Tracker{
		logger:  orDefaultLogger(logger),
		model:   model,
		cameras: cameras,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(newSeed(cfg.Seed))), //nolint:gosec
	}
	t.resetLocked()
	return t, nil
}

// Reset returns the tracker to the Fresh state with an uninformed belief.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

func (t *Tracker) resetLocked() {
	t.state = Fresh
	t.belief = UninformedBelief(t.cfg.Bounds)
}

// State returns the current sampling regime.
func (t *Tracker) State() TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Belief returns a copy of the current belief.
func (t *Tracker) Belief() Belief {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.belief
}

// Update runs the round schedule against one frame of observations (one per camera).
func (t *Tracker) Update(observations []CameraObservation) (*Estimate, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(observations) != len(t.cameras) {
		return nil, fmt.Errorf("%w: %d observations for %d cameras", ErrCameraCountMismatch, len(observations), len(t.cameras))
	}
	s := t.cfg.Search
	if !s.Continuous {
		t.resetLocked()
	}

	sampled := SubsampleMasks(observations, s.PixelBudget, t.rng)
	eval, err := NewCostEvaluator(t.model, t.cameras, sampled, s.Terms, t.cfg.Cost)
	if err != nil {
		return nil, err
	}

	best, bestCost, rounds := t.runSchedule(eval)
	if s.ReinitializeOnPoorFit && bestCost > s.PoorFitCost {
		t.logger.Warnf("poor fit (cost %.3f > %.3f); reinitializing", bestCost, s.PoorFitCost)
		t.resetLocked()
		var more int
		best, bestCost, more = t.runSchedule(eval)
		rounds += more
		if bestCost > s.PoorFitCost {
			t.logger.Warnf("still a poor fit after reinitializing (cost %.3f)", bestCost)
			t.resetLocked()
		}
	}

	reported := best
	if s.Continuous && t.state == Tracking {
		reported = t.belief.Mean()
	}
	est := &Estimate{
		Particle:     reported,
		Pose:         reported.Pose(),
		Cost:         bestCost,
		PoorFit:      bestCost > s.PoorFitCost,
		Rounds:       rounds,
		Method:       MethodCEM,
		VisibleFaces: visibleFacesPerCamera(t.model, t.cameras, reported),
	}
	t.logger.Debugf("cem: cost %.4f after %d rounds, position %v, orientation %v",
		est.Cost, est.Rounds, reported.Position, reported.Orientation)
	return est, nil
}

// runSchedule runs every configured round, or stops early once the best cost drops
// below SuccessCost. It returns the best-ever particle and its cost.
func (t *Tracker) runSchedule(eval *CostEvaluator) (Particle, float64, int) {
	s := t.cfg.Search
	var best Particle
	bestCost := math.Inf(1)
	rounds := 0

	for r, n := range s.Rounds {
		particles := make([]Particle, n)
		for i := range particles {
			if t.state == Fresh {
				particles[i] = sampleUniform(t.cfg.Bounds, t.rng)
			} else {
				particles[i] = sampleGaussian(t.belief, t.cfg.Bounds, t.rng)
			}
		}
		costs := make([]float64, n)
		scoreAll(eval, particles, costs, t.cfg.Workers)

		ranked := rankParticles(costs)
		if ranked[0].cost < bestCost {
			best, bestCost = particles[ranked[0].index], ranked[0].cost
		}

		elites := selectElites(particles, ranked, eliteCount(n, s.EliteRatio), best)
		fit := eliteBelief(elites)
		if t.state == Fresh {
			t.belief = fit
		} else {
			t.belief = t.belief.blend(fit, s.Alpha)
		}
		t.belief = t.belief.withFloors(s.PositionVarianceFloor, s.OrientationVarianceFloor)
		t.state = Tracking
		rounds = r + 1

		t.logger.Debugf("cem round %d: %d particles, round best %.4f, best %.4f", r, n, ranked[0].cost, bestCost)
		if bestCost < s.SuccessCost {
			break
		}
	}
	return best, bestCost, rounds
}

func visibleFacesPerCamera(model *CubeModel, cameras []*CameraParameters, p Particle) [][]VisibleFace {
	vis := NewVisibilityEvaluator(model)
	out := make([][]VisibleFace, len(cameras))
	for i, cam := range cameras {
		out[i] = vis.VisibleFaces(p, cam)
	}
	return out
}
