// Package engine scores, ranks and explains university recommendations. Everything in it is
// a pure function of the student profile, the candidate universities and the immutable
// Config; catalog access happens before the engine is called.
package engine

import (
	"study-abroad-engine/internal/common/country"
	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/internal/models"
)

// Engine is safe for concurrent use by any number of requests.
type Engine struct {
	cfg       Config
	estimator Estimator
	logger    logger.Logger
}

func New(cfg Config, estimator Estimator, log logger.Logger) *Engine {
	if cfg.Countries == nil {
		cfg.Countries = country.Default()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if estimator == nil {
		estimator = NewRuleEstimator()
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Engine{cfg: cfg, estimator: estimator, logger: log}
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Estimate runs the configured admission estimator.
func (e *Engine) Estimate(p models.StudentProfile, u models.University) (AdmissionEstimate, error) {
	return e.estimator.Estimate(p, u)
}
