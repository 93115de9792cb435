package cubepose

import (
	"math/rand"
	"testing"
)

func TestScoreAll_MatchesSequential(t *testing.T) {
	model := DefaultCubeModel()
	cams := testRig(t)
	obs := syntheticObservations(model, cams, testPose())
	eval, err := NewCostEvaluator(model, cams, obs, AllTerms, DefaultConfig().Cost)
	if err != nil {
		t.Fatalf("NewCostEvaluator failed: %v", err)
	}

	bounds := DefaultBounds()
	rng := rand.New(rand.NewSource(3))
	particles := make([]Particle, 97)
	for i := range particles {
		particles[i] = sampleUniform(bounds, rng)
	}
	particles[0] = testPose()

	want := make([]float64, len(particles))
	for i, p := range particles {
		want[i] = eval.Cost(p)
	}
	for _, workers := range []int{0, 1, 2, 7, 200} {
		got := make([]float64, len(particles))
		scoreAll(eval, particles, got, workers)
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("workers=%d: particle %d scored %v, want %v", workers, i, got[i], want[i])
			}
		}
	}
}
