package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"study-abroad-engine/internal/catalog"
	"study-abroad-engine/internal/common/metrics"
	"study-abroad-engine/internal/engine"
	"study-abroad-engine/internal/models"
)

// RecommendationResult is the response of GenerateRecommendations. An empty candidate set is
// reported through Message, not as an error.
type RecommendationResult struct {
	RequestID                   string                    `json:"requestId"`
	Recommendations             []engine.Recommendation   `json:"recommendations"`
	Summary                     *engine.Summary           `json:"summary,omitempty"`
	TotalUniversitiesConsidered int                       `json:"totalUniversitiesConsidered"`
	CountryFilterApplied        bool                      `json:"countryFilterApplied"`
	Skipped                     []engine.SkippedCandidate `json:"skipped,omitempty"`
	Message                     string                    `json:"message,omitempty"`
}

// ExplanationResult breaks one university's score down by criterion.
type ExplanationResult struct {
	UniversityID   int64                    `json:"universityId"`
	UniversityName string                   `json:"universityName"`
	OverallScore   float64                  `json:"overallScore"`
	DetailedScores engine.ScoreSet          `json:"detailedScores"`
	Explanation    []string                 `json:"explanation"`
	Factors        map[string]engine.Factor `json:"recommendationFactors"`
}

// GenerateRecommendations ranks the catalog subset selected by f for the profile.
func (s *RecommendationService) GenerateRecommendations(ctx context.Context, p models.StudentProfile, f *catalog.Filter, maxResults int) (result *RecommendationResult, err error) {
	if maxResults <= 0 {
		maxResults = s.maxResults
	}
	ctx, span := s.startSpan(ctx, "GenerateRecommendations", attribute.Int("maxResults", maxResults))
	defer func() { endSpan(span, err) }()

	if err := validateProfile(p); err != nil {
		return nil, err
	}

	pool, err := s.candidates(ctx, f)
	if err != nil {
		return nil, err
	}

	result = &RecommendationResult{
		RequestID:       uuid.New().String(),
		Recommendations: []engine.Recommendation{},
	}
	if len(pool) == 0 {
		result.Message = NoMatchMessage
		s.logger.Info("no candidates after filtering", map[string]interface{}{"requestId": result.RequestID})
		return result, nil
	}

	start := time.Now()
	ranked, err := s.engine.Rank(ctx, p, pool, maxResults)
	metrics.ScoringDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	result.Recommendations = ranked.Recommendations
	result.Summary = engine.Summarize(ranked.Recommendations)
	result.TotalUniversitiesConsidered = ranked.Considered
	result.CountryFilterApplied = ranked.CountryFilterApplied
	result.Skipped = ranked.Skipped

	metrics.RecommendationsGenerated.WithLabelValues("generate").Add(float64(len(ranked.Recommendations)))
	metrics.CandidatesSkipped.Add(float64(len(ranked.Skipped)))
	span.SetAttributes(
		attribute.Int("candidates", len(pool)),
		attribute.Int("considered", ranked.Considered),
		attribute.Int("returned", len(ranked.Recommendations)),
	)
	return result, nil
}

// ExplainRecommendation scores one university and explains the result.
func (s *RecommendationService) ExplainRecommendation(ctx context.Context, p models.StudentProfile, universityID int64) (result *ExplanationResult, err error) {
	ctx, span := s.startSpan(ctx, "ExplainRecommendation", attribute.Int64("universityId", universityID))
	defer func() { endSpan(span, err) }()

	if err := validateProfile(p); err != nil {
		return nil, err
	}
	u, err := s.lookup(ctx, universityID)
	if err != nil {
		return nil, err
	}

	rec, err := s.engine.Evaluate(p, *u)
	if err != nil {
		return nil, s.skipped(u, err)
	}

	return &ExplanationResult{
		UniversityID:   u.ID,
		UniversityName: u.Name,
		OverallScore:   rec.Scores.Overall,
		DetailedScores: rec.Scores,
		Explanation:    rec.Explanation,
		Factors:        s.engine.Factors(rec.Scores),
	}, nil
}

// Search returns universities whose name or city contains text. When f is also given the
// matches are narrowed by it; with empty text the filter alone selects.
func (s *RecommendationService) Search(ctx context.Context, text string, f *catalog.Filter) (list []models.University, err error) {
	ctx, span := s.startSpan(ctx, "Search", attribute.String("text", text))
	defer func() { endSpan(span, err) }()

	if text == "" {
		return s.candidates(ctx, f)
	}

	cctx, cancel := s.catalogContext(ctx)
	defer cancel()

	list, err = s.catalog.Search(cctx, text)
	if err != nil {
		return nil, s.catalogError("search", err)
	}
	metrics.CatalogRequests.WithLabelValues("search", "ok").Inc()

	if f == nil || f.IsZero() {
		return list, nil
	}
	list, err = f.Apply(list)
	if err != nil {
		return nil, s.catalogError("search", err)
	}
	return list, nil
}
