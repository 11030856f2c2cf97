package catalog

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/internal/models"
)

// BreakerSettings configures the breaker guarding the primary backend.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// FallbackProvider reads from primary and switches to fallback when primary fails or its
// breaker is open. Lookups that legitimately miss do not count as failures.
type FallbackProvider struct {
	primary  Provider
	fallback Provider
	breaker  *gobreaker.CircuitBreaker[interface{}]
	logger   logger.Logger
}

func NewFallbackProvider(primary, fallback Provider, s BreakerSettings, log logger.Logger) *FallbackProvider {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	name := "catalog-" + BackendName(primary)
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		IsSuccessful: isCallerOutcome,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("catalog breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	}

	return &FallbackProvider{
		primary:  primary,
		fallback: fallback,
		breaker:  gobreaker.NewCircuitBreaker[interface{}](settings),
		logger:   log,
	}
}

// isCallerOutcome treats results the backend was right to return as successes.
func isCallerOutcome(err error) bool {
	return err == nil ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidFilter) ||
		errors.Is(err, context.Canceled)
}

func (p *FallbackProvider) Name() string { return BackendName(p.primary) }

// State reports the breaker state for health output.
func (p *FallbackProvider) State() string {
	return p.breaker.State().String()
}

func (p *FallbackProvider) GetByID(ctx context.Context, id int64) (*models.University, error) {
	v, err := p.run(ctx, "get", func(pr Provider) (interface{}, error) { return pr.GetByID(ctx, id) })
	if err != nil {
		return nil, err
	}
	return v.(*models.University), nil
}

func (p *FallbackProvider) Search(ctx context.Context, text string) ([]models.University, error) {
	v, err := p.run(ctx, "search", func(pr Provider) (interface{}, error) { return pr.Search(ctx, text) })
	if err != nil {
		return nil, err
	}
	return v.([]models.University), nil
}

func (p *FallbackProvider) Filter(ctx context.Context, f Filter) ([]models.University, error) {
	v, err := p.run(ctx, "filter", func(pr Provider) (interface{}, error) { return pr.Filter(ctx, f) })
	if err != nil {
		return nil, err
	}
	return v.([]models.University), nil
}

func (p *FallbackProvider) run(ctx context.Context, op string, call func(Provider) (interface{}, error)) (interface{}, error) {
	v, err := p.breaker.Execute(func() (interface{}, error) { return call(p.primary) })
	if err == nil || isCallerOutcome(err) || p.fallback == nil {
		return v, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	p.logger.Warn("catalog primary failed, using fallback", map[string]interface{}{
		"operation": op,
		"primary":   BackendName(p.primary),
		"fallback":  BackendName(p.fallback),
		"breaker":   p.breaker.State().String(),
		"error":     err.Error(),
	})
	return call(p.fallback)
}
