package engine

import (
	"fmt"
	"math/rand"
	"time"

	"study-abroad-engine/internal/common/config"
)

// NewEstimatorFromConfig builds the estimator selected by scoring.estimator and wraps it in
// the noise decorator when scoring.noise.enabled is set. A zero seed seeds from the clock.
func NewEstimatorFromConfig(s config.ScoringConfig) (Estimator, error) {
	var est Estimator
	switch s.Estimator {
	case "", "rule":
		est = NewRuleEstimator()
	case "linear":
		linear, err := NewLinearEstimator(s.Linear.Intercept, s.Linear.Coefficients)
		if err != nil {
			return nil, err
		}
		est = linear
	default:
		return nil, fmt.Errorf("unknown estimator %q", s.Estimator)
	}

	if !s.Noise.Enabled {
		return est, nil
	}
	seed := s.Noise.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewNoisyEstimator(est, rand.New(rand.NewSource(seed)), s.Noise.StdDev), nil
}
