package cubepose

import (
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// scoreAll fills costs[i] with the cost of particles[i] using up to workers
// goroutines, and returns once every particle is scored.
func scoreAll(eval *CostEvaluator, particles []Particle, costs []float64, workers int) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 || len(particles) < 2 {
		for i, p := range particles {
			costs[i] = eval.Cost(p)
		}
		return
	}

	chunk := (len(particles) + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < len(particles); start += chunk {
		end := min(start+chunk, len(particles))
		g.Go(func() error {
			for i := start; i < end; i++ {
				costs[i] = eval.Cost(particles[i])
			}
			return nil
		})
	}
	// Cost cannot fail, so the group only bounds the goroutines and joins them before
	// the caller ranks the round.
	_ = g.Wait()
}

func newSeed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}
