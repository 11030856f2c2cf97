package service

import (
	"context"
	stderrors "errors"

	"go.opentelemetry.io/otel/attribute"

	"study-abroad-engine/internal/common/errors"
	"study-abroad-engine/internal/engine"
	"study-abroad-engine/internal/models"
)

// CostTrends projects one university's cost over the given years. years <= 0 and a nil
// inflationRate use the configured defaults.
func (s *RecommendationService) CostTrends(ctx context.Context, p models.StudentProfile, universityID int64, years int, inflationRate *float64) (report *engine.CostTrendReport, err error) {
	ctx, span := s.startSpan(ctx, "CostTrends",
		attribute.Int64("universityId", universityID),
		attribute.Int("years", years),
	)
	defer func() { endSpan(span, err) }()

	if err := validateProfile(p); err != nil {
		return nil, err
	}
	u, err := s.lookup(ctx, universityID)
	if err != nil {
		return nil, err
	}

	report, err = s.engine.CostTrends(p, *u, years, inflationRate)
	if err != nil {
		return nil, s.skipped(u, err)
	}
	return report, nil
}

// CostAnalysis analyses the costs of the given universities. Unknown and repeated ids are
// skipped; when none resolves the call fails with UNIVERSITY_NOT_FOUND.
func (s *RecommendationService) CostAnalysis(ctx context.Context, p models.StudentProfile, ids []int64, analysisType string) (report *engine.CostAnalysisReport, err error) {
	analysisType = engine.NormalizeAnalysisType(analysisType)
	ctx, span := s.startSpan(ctx, "CostAnalysis",
		attribute.String("analysisType", analysisType),
		attribute.Int("size", len(ids)),
	)
	defer func() { endSpan(span, err) }()

	if err := validateProfile(p); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, errors.NewInvalidInputError("universityIds must not be empty")
	}

	seen := make(map[int64]bool, len(ids))
	universities := make([]models.University, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		u, err := s.lookup(ctx, id)
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeUniversityNotFound) {
				s.logger.Debug("unknown university skipped", map[string]interface{}{"universityId": id})
				continue
			}
			return nil, err
		}
		universities = append(universities, *u)
	}
	if len(universities) == 0 {
		return nil, errors.NewUniversityNotFoundError(ids[0]).WithMetadata("universityIds", ids)
	}

	report, err = s.engine.CostAnalysis(p, universities, analysisType)
	if err != nil {
		if stderrors.Is(err, engine.ErrBudgetRequired) {
			return nil, errors.NewBudgetRequiredError()
		}
		return nil, errors.NewInternalError(err)
	}
	return report, nil
}
