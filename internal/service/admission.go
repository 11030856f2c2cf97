package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"study-abroad-engine/internal/common/errors"
	"study-abroad-engine/internal/common/metrics"
	"study-abroad-engine/internal/engine"
	"study-abroad-engine/internal/models"
)

// AdmissionResult is one admission estimate. In a batch, an item that could not be estimated
// carries Error and a zero estimate.
type AdmissionResult struct {
	UniversityID      int64  `json:"universityId"`
	UniversityName    string `json:"universityName,omitempty"`
	UniversityCountry string `json:"universityCountry,omitempty"`
	engine.AdmissionEstimate
	ErrorCode string `json:"errorCode,omitempty"`
	Error     string `json:"error,omitempty"`
}

func admissionResult(u *models.University, est engine.AdmissionEstimate) AdmissionResult {
	return AdmissionResult{
		UniversityID:      u.ID,
		UniversityName:    u.Name,
		UniversityCountry: u.Country,
		AdmissionEstimate: est,
	}
}

// PredictAdmission estimates the admission chance for one university.
func (s *RecommendationService) PredictAdmission(ctx context.Context, p models.StudentProfile, universityID int64) (result *AdmissionResult, err error) {
	ctx, span := s.startSpan(ctx, "PredictAdmission", attribute.Int64("universityId", universityID))
	defer func() { endSpan(span, err) }()

	if err := validateProfile(p); err != nil {
		return nil, err
	}
	u, err := s.lookup(ctx, universityID)
	if err != nil {
		return nil, err
	}

	est, err := s.engine.Estimate(p, *u)
	if err != nil {
		return nil, s.skipped(u, err)
	}
	r := admissionResult(u, est)
	return &r, nil
}

// PredictBatchAdmission estimates every id in order. Unknown ids and failed estimates become
// per-item errors; only an invalid profile or a catalog outage fails the whole batch.
func (s *RecommendationService) PredictBatchAdmission(ctx context.Context, p models.StudentProfile, ids []int64) (results []AdmissionResult, err error) {
	ctx, span := s.startSpan(ctx, "PredictBatchAdmission", attribute.Int("size", len(ids)))
	defer func() { endSpan(span, err) }()

	if err := validateProfile(p); err != nil {
		return nil, err
	}

	start := time.Now()
	results = make([]AdmissionResult, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		u, err := s.lookup(ctx, id)
		if err != nil {
			if !errors.HasCode(err, errors.ErrCodeUniversityNotFound) {
				return nil, err
			}
			results = append(results, AdmissionResult{
				UniversityID: id,
				ErrorCode:    string(errors.ErrCodeUniversityNotFound),
				Error:        "university not found",
			})
			continue
		}

		est, err := s.engine.Estimate(p, *u)
		if err != nil {
			s.logger.Warn("admission estimate skipped", map[string]interface{}{
				"universityId": id,
				"error":        err.Error(),
			})
			metrics.CandidatesSkipped.Inc()
			results = append(results, AdmissionResult{
				UniversityID:      id,
				UniversityName:    u.Name,
				UniversityCountry: u.Country,
				ErrorCode:         string(errors.ErrCodeComputationSkipped),
				Error:             err.Error(),
			})
			continue
		}
		results = append(results, admissionResult(u, est))
	}

	metrics.ScoringDuration.WithLabelValues("batch_admission").Observe(time.Since(start).Seconds())
	return results, nil
}
