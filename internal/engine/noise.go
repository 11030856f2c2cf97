package engine

import (
	"math/rand"
	"sync"

	"study-abroad-engine/internal/models"
)

// NoisyEstimator perturbs another estimator's probability with Gaussian noise. The random
// source is injected so runs can be reproduced from a seed.
type NoisyEstimator struct {
	inner  Estimator
	stddev float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewNoisyEstimator(inner Estimator, rng *rand.Rand, stddev float64) *NoisyEstimator {
	return &NoisyEstimator{inner: inner, rng: rng, stddev: stddev}
}

func (n *NoisyEstimator) Estimate(p models.StudentProfile, u models.University) (AdmissionEstimate, error) {
	est, err := n.inner.Estimate(p, u)
	if err != nil {
		return est, err
	}

	n.mu.Lock()
	jitter := n.rng.NormFloat64() * n.stddev
	n.mu.Unlock()

	est.Probability = round(clamp(est.Probability+jitter, minProbability, maxProbability), 3)
	est.Category = Category(est.Probability)
	return est, nil
}
