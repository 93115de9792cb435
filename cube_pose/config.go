package cubepose

import (
	"fmt"
	"math"
)

// Method selects the pose search algorithm.
type Method string

const (
	// MethodCEM is the cross-entropy-method tracker.
	MethodCEM Method = "cem"
	// MethodDE is one-shot differential evolution.
	MethodDE Method = "de"
)

// Config holds all configuration for the pose search.
type Config struct {
	Method    Method          `json:"method"`
	Bounds    Bounds          `json:"bounds"`
	Cost      CostConfig      `json:"cost"`
	Search    SearchConfig    `json:"search"`
	Evolution EvolutionConfig `json:"evolution"`
	Workers   int             `json:"workers"` // Parallel scoring goroutines; 0 = GOMAXPROCS
	Seed      int64           `json:"seed"`    // RNG seed; 0 = seeded from the clock
}

// CostConfig holds the weights of the cost terms.
type CostConfig struct {
	MaskScale       float64 `json:"mask_scale"`         // Weight of pixel distance outside the projected face
	InvisibleScale  float64 `json:"invisible_scale"`    // Weight of (cosine * pixel count) for faces turned away
	LineScale       float64 `json:"line_scale"`         // Weight of edge-to-line pixel distance
	BoundsMarginPx  float64 `json:"bounds_margin_px"`   // Allowed projection overshoot beyond the image border
	OutOfBoundsCost float64 `json:"out_of_bounds_cost"` // Cost assigned to poses projecting off-image
}

// SearchConfig holds parameters for the cross-entropy-method tracker.
type SearchConfig struct {
	Rounds                   []int     `json:"rounds"`                     // Particles per round; first round is usually larger
	EliteRatio               float64   `json:"elite_ratio"`                // Fraction of each round used as elites
	Alpha                    float64   `json:"alpha"`                      // Belief smoothing: belief = alpha*belief + (1-alpha)*elites
	PositionVarianceFloor    float64   `json:"position_variance_floor"`    // Added to position variance after each update (m^2)
	OrientationVarianceFloor float64   `json:"orientation_variance_floor"` // Added to orientation variance after each update (rad^2)
	SuccessCost              float64   `json:"success_cost"`               // Stop early once best cost < this; costs are >= 0, so 0 disables
	PixelBudget              int       `json:"pixel_budget"`               // Total mask pixels kept for scoring; 0 = all
	Terms                    CostTerms `json:"terms"`                      // Cost terms used by the tracker
	Continuous               bool      `json:"continuous"`                 // Keep the belief across calls
	ReinitializeOnPoorFit    bool      `json:"reinitialize_on_poor_fit"`   // Rerun from a fresh prior when the fit is poor
	PoorFitCost              float64   `json:"poor_fit_cost"`              // Best cost above which a fit is poor
}

// EvolutionConfig holds parameters for differential evolution.
type EvolutionConfig struct {
	Population     int       `json:"population"`
	Generations    int       `json:"generations"`
	MutationFactor float64   `json:"mutation_factor"` // F
	CrossoverRate  float64   `json:"crossover_rate"`  // CR
	Strategy       string    `json:"strategy"`        // "best1bin" or "rand1bin"
	PixelBudget    int       `json:"pixel_budget"`
	Terms          CostTerms `json:"terms"`
}

// DefaultRounds returns the reference round schedule: 200 particles, then 39 rounds of 40.
func DefaultRounds() []int {
	rounds := make([]int, 40)
	for i := range rounds {
		rounds[i] = 40
	}
	rounds[0] = 200
	return rounds
}

// DefaultConfig returns a Config with the reference values.
func DefaultConfig() Config {
	return Config{
		Method: MethodCEM,
		Bounds: DefaultBounds(),
		Cost: CostConfig{
			MaskScale:       0.05,
			InvisibleScale:  1.0,
			LineScale:       1.0,
			BoundsMarginPx:  30,
			OutOfBoundsCost: math.MaxFloat32,
		},
		Search: SearchConfig{
			Rounds:                   DefaultRounds(),
			EliteRatio:               0.1,
			Alpha:                    0.5,
			PositionVarianceFloor:    1e-4,
			OrientationVarianceFloor: 1e-3,
			SuccessCost:              0,
			PixelBudget:              600,
			// Lines give a one-shot search a signal far from the cube; ContainmentTerms
			// alone suits continuous tracking, where the belief starts near the answer.
			Terms:                    AllTerms,
			Continuous:               false,
			ReinitializeOnPoorFit:    false,
			PoorFitCost:              50,
		},
		Evolution: EvolutionConfig{
			Population:     40,
			Generations:    50,
			MutationFactor: 0.8,
			CrossoverRate:  0.9,
			Strategy:       StrategyBest1Bin,
			PixelBudget:    150,
			Terms:          AllTerms,
		},
	}
}

// Validate checks the configuration for values the search cannot work with.
func (c Config) Validate() error {
	if c.Method != MethodCEM && c.Method != MethodDE {
		return fmt.Errorf("%w: unknown method %q", ErrInvalidConfig, c.Method)
	}
	if err := c.Bounds.Validate(); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0", ErrInvalidConfig)
	}
	if c.Cost.MaskScale < 0 || c.Cost.InvisibleScale < 0 || c.Cost.LineScale < 0 || c.Cost.BoundsMarginPx < 0 {
		return fmt.Errorf("%w: cost weights must be non-negative", ErrInvalidConfig)
	}
	if !(c.Cost.OutOfBoundsCost > 0) || math.IsInf(c.Cost.OutOfBoundsCost, 0) {
		return fmt.Errorf("%w: out_of_bounds_cost must be positive and finite", ErrInvalidConfig)
	}

	s := c.Search
	if len(s.Rounds) == 0 {
		return fmt.Errorf("%w: at least one search round is required", ErrInvalidConfig)
	}
	for i, n := range s.Rounds {
		if n <= 0 {
			return fmt.Errorf("%w: round %d has %d particles", ErrInvalidConfig, i, n)
		}
	}
	if !(s.EliteRatio > 0 && s.EliteRatio <= 1) {
		return fmt.Errorf("%w: elite_ratio must be in (0, 1], got %v", ErrInvalidConfig, s.EliteRatio)
	}
	if !(s.Alpha >= 0 && s.Alpha < 1) {
		return fmt.Errorf("%w: alpha must be in [0, 1), got %v", ErrInvalidConfig, s.Alpha)
	}
	if !(s.PositionVarianceFloor > 0) || !(s.OrientationVarianceFloor > 0) {
		return fmt.Errorf("%w: variance floors must be positive", ErrInvalidConfig)
	}
	if s.PixelBudget < 0 {
		return fmt.Errorf("%w: search pixel_budget must be >= 0", ErrInvalidConfig)
	}
	if !s.Terms.valid() {
		return fmt.Errorf("%w: search terms %v", ErrInvalidConfig, s.Terms)
	}

	e := c.Evolution
	if e.Population < 4 {
		return fmt.Errorf("%w: evolution population must be >= 4, got %d", ErrInvalidConfig, e.Population)
	}
	if e.Generations < 1 {
		return fmt.Errorf("%w: evolution generations must be >= 1", ErrInvalidConfig)
	}
	if !(e.MutationFactor > 0 && e.MutationFactor <= 2) {
		return fmt.Errorf("%w: mutation_factor must be in (0, 2], got %v", ErrInvalidConfig, e.MutationFactor)
	}
	if !(e.CrossoverRate >= 0 && e.CrossoverRate <= 1) {
		return fmt.Errorf("%w: crossover_rate must be in [0, 1], got %v", ErrInvalidConfig, e.CrossoverRate)
	}
	if e.Strategy != StrategyBest1Bin && e.Strategy != StrategyRand1Bin {
		return fmt.Errorf("%w: unknown evolution strategy %q", ErrInvalidConfig, e.Strategy)
	}
	if e.PixelBudget < 0 {
		return fmt.Errorf("%w: evolution pixel_budget must be >= 0", ErrInvalidConfig)
	}
	if !e.Terms.valid() {
		return fmt.Errorf("%w: evolution terms %v", ErrInvalidConfig, e.Terms)
	}
	return nil
}
