package cubepose

import (
	"fmt"
	"math/rand"
	"sync"

	"go.viam.com/rdk/logging"
	"gonum.org/v1/gonum/floats"
)

// Differential evolution strategies.
const (
	StrategyBest1Bin = "best1bin" // mutant = best + F*(r1 - r2)
	StrategyRand1Bin = "rand1bin" // mutant = r0 + F*(r1 - r2)
)

// Evolver finds the cube pose from scratch with differential evolution. It keeps
// no state between calls apart from its random source.
type Evolver struct {
	logger  logging.Logger
	model   *CubeModel
	cameras []*CameraParameters
	cfg     Config

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEvolver validates cfg and returns an Evolver.
func NewEvolver(model *CubeModel, cameras []*CameraParameters, cfg Config, logger logging.Logger) (*Evolver, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", ErrInvalidCube)
	}
	if len(cameras) == 0 {
		return nil, ErrNoCameras
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Evolver{
		logger:  orDefaultLogger(logger),
		model:   model,
		cameras: cameras,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(newSeed(cfg.Seed))), //nolint:gosec
	}, nil
}

// FindPose evolves a population over the bounds and returns the best particle found.
func (e *Evolver) FindPose(observations []CameraObservation) (*Estimate, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(observations) != len(e.cameras) {
		return nil, fmt.Errorf("%w: %d observations for %d cameras", ErrCameraCountMismatch, len(observations), len(e.cameras))
	}
	ec := e.cfg.Evolution
	sampled := SubsampleMasks(observations, ec.PixelBudget, e.rng)
	eval, err := NewCostEvaluator(e.model, e.cameras, sampled, ec.Terms, e.cfg.Cost)
	if err != nil {
		return nil, err
	}

	lo, hi := e.cfg.Bounds.lower(), e.cfg.Bounds.upper()
	pop := make([]Particle, ec.Population)
	for i := range pop {
		var v [6]float64
		for d := range v {
			v[d] = lo[d] + e.rng.Float64()*(hi[d]-lo[d])
		}
		pop[i] = particleFromVector(v)
	}
	costs := make([]float64, len(pop))
	scoreAll(eval, pop, costs, e.cfg.Workers)

	trials := make([]Particle, len(pop))
	trialCosts := make([]float64, len(pop))
	for gen := 0; gen < ec.Generations; gen++ {
		best := floats.MinIdx(costs)
		for i := range pop {
			trials[i] = e.trial(pop, i, best)
		}
		scoreAll(eval, trials, trialCosts, e.cfg.Workers)
		for i := range pop {
			if trialCosts[i] < costs[i] {
				pop[i], costs[i] = trials[i], trialCosts[i]
			}
		}
		e.logger.Debugf("de generation %d: best %.4f", gen, costs[floats.MinIdx(costs)])
	}

	best := floats.MinIdx(costs)
	p := pop[best]
	est := &Estimate{
		Particle:     p,
		Pose:         p.Pose(),
		Cost:         costs[best],
		PoorFit:      costs[best] > e.cfg.Search.PoorFitCost,
		Rounds:       ec.Generations,
		Method:       MethodDE,
		VisibleFaces: visibleFacesPerCamera(e.model, e.cameras, p),
	}
	e.logger.Debugf("de: cost %.4f after %d generations", est.Cost, est.Rounds)
	return est, nil
}

// trial builds the mutant-crossover candidate for member i, clipped to the bounds.
func (e *Evolver) trial(pop []Particle, i, best int) Particle {
	ec := e.cfg.Evolution
	var base int
	exclude := []int{i}
	if ec.Strategy == StrategyBest1Bin {
		base = best
		exclude = append(exclude, best)
	} else {
		base = e.pickDistinct(len(pop), exclude)
		exclude = append(exclude, base)
	}
	r1 := e.pickDistinct(len(pop), exclude)
	exclude = append(exclude, r1)
	r2 := e.pickDistinct(len(pop), exclude)

	xb, x1, x2 := pop[base].vector(), pop[r1].vector(), pop[r2].vector()
	target := pop[i].vector()
	forced := e.rng.Intn(len(target))
	var out [6]float64
	for d := range out {
		if d == forced || e.rng.Float64() < ec.CrossoverRate {
			out[d] = xb[d] + ec.MutationFactor*(x1[d]-x2[d])
		} else {
			out[d] = target[d]
		}
	}
	return e.cfg.Bounds.Clip(particleFromVector(out))
}

// pickDistinct returns a random index in [0, n) not in exclude. When the
// population is too small to avoid every excluded index, it only avoids the first.
func (e *Evolver) pickDistinct(n int, exclude []int) int {
	if n <= len(exclude) {
		for {
			if j := e.rng.Intn(n); n == 1 || j != exclude[0] {
				return j
			}
		}
	}
	for {
		j := e.rng.Intn(n)
		taken := false
		for _, x := range exclude {
			if x == j {
				taken = true
				break
			}
		}
		if !taken {
			return j
		}
	}
}
