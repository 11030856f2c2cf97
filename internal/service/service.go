// Package service exposes the recommendation operations used by the workflow workers. It owns
// catalog access and request validation; scoring itself is delegated to the engine.
package service

import (
	"context"
	stderrors "errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"study-abroad-engine/internal/catalog"
	"study-abroad-engine/internal/common/errors"
	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/internal/common/metrics"
	"study-abroad-engine/internal/common/observability"
	"study-abroad-engine/internal/common/validation"
	"study-abroad-engine/internal/engine"
	"study-abroad-engine/internal/models"
)

const (
	DefaultMaxResults = 10

	// NoMatchMessage is reported when filtering leaves no candidates.
	NoMatchMessage = "No universities match the specified criteria"
)

// RecommendationService is safe for concurrent use.
type RecommendationService struct {
	engine         *engine.Engine
	catalog        catalog.Provider
	obs            *observability.Observability
	logger         logger.Logger
	catalogTimeout time.Duration
	maxResults     int
}

type Option func(*RecommendationService)

func WithObservability(obs *observability.Observability) Option {
	return func(s *RecommendationService) { s.obs = obs }
}

// WithCatalogTimeout bounds every catalog call. Zero leaves only the caller's deadline.
func WithCatalogTimeout(d time.Duration) Option {
	return func(s *RecommendationService) { s.catalogTimeout = d }
}

// WithDefaultMaxResults sets the result size used when a caller passes maxResults <= 0.
func WithDefaultMaxResults(n int) Option {
	return func(s *RecommendationService) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

func New(eng *engine.Engine, cat catalog.Provider, log logger.Logger, opts ...Option) *RecommendationService {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	s := &RecommendationService{
		engine:     eng,
		catalog:    cat,
		logger:     log.WithFields(map[string]interface{}{"component": "recommendation-service"}),
		maxResults: DefaultMaxResults,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the scoring engine the service delegates to.
func (s *RecommendationService) Engine() *engine.Engine {
	return s.engine
}

// validateProfile is the precondition of every profile-based call.
func validateProfile(p models.StudentProfile) error {
	err := validation.ValidateProfile(p)
	if err == nil {
		return nil
	}
	stdErr := errors.NewInvalidInputError(err.Error())
	var verr *validation.RequestValidationError
	if stderrors.As(err, &verr) {
		stdErr = stdErr.WithMetadata("violations", verr.Details())
	}
	return stdErr
}

func (s *RecommendationService) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.obs.StartSpan(ctx, "service."+op, attrs...)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *RecommendationService) catalogContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.catalogTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.catalogTimeout)
}

// catalogError converts a provider failure into the caller-facing error.
func (s *RecommendationService) catalogError(op string, err error) error {
	backend := catalog.BackendName(s.catalog)
	switch {
	case stderrors.Is(err, catalog.ErrInvalidFilter):
		metrics.CatalogRequests.WithLabelValues(op, "invalid").Inc()
		return errors.NewInvalidFilterFormatError(err.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		metrics.CatalogRequests.WithLabelValues(op, "timeout").Inc()
		return errors.NewCatalogTimeoutError(backend)
	default:
		metrics.CatalogRequests.WithLabelValues(op, "error").Inc()
		s.logger.Error("catalog request failed", map[string]interface{}{
			"operation": op,
			"backend":   backend,
			"error":     err.Error(),
		})
		return errors.NewCatalogUnavailableError(backend, err)
	}
}

// lookup resolves one university, mapping an absent id to UNIVERSITY_NOT_FOUND.
func (s *RecommendationService) lookup(ctx context.Context, id int64) (*models.University, error) {
	cctx, cancel := s.catalogContext(ctx)
	defer cancel()

	u, err := s.catalog.GetByID(cctx, id)
	if err != nil {
		if stderrors.Is(err, catalog.ErrNotFound) {
			metrics.CatalogRequests.WithLabelValues("get", "not_found").Inc()
			return nil, errors.NewUniversityNotFoundError(id)
		}
		return nil, s.catalogError("get", err)
	}
	metrics.CatalogRequests.WithLabelValues("get", "ok").Inc()
	return u, nil
}

// candidates returns the catalog subset matching f. A nil filter selects the whole catalog.
func (s *RecommendationService) candidates(ctx context.Context, f *catalog.Filter) ([]models.University, error) {
	var filter catalog.Filter
	if f != nil {
		filter = *f
	}

	cctx, cancel := s.catalogContext(ctx)
	defer cancel()

	list, err := s.catalog.Filter(cctx, filter)
	if err != nil {
		return nil, s.catalogError("filter", err)
	}
	metrics.CatalogRequests.WithLabelValues("filter", "ok").Inc()
	return list, nil
}

// skipped reports a single-university computation failure.
func (s *RecommendationService) skipped(u *models.University, err error) error {
	s.logger.Warn("candidate skipped", map[string]interface{}{
		"universityId": u.ID,
		"error":        err.Error(),
	})
	metrics.CandidatesSkipped.Inc()
	return errors.NewComputationSkippedError(u.ID, err)
}
