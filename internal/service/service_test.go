package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"study-abroad-engine/internal/catalog"
	"study-abroad-engine/internal/common/config"
	"study-abroad-engine/internal/common/errors"
	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/internal/common/observability"
	"study-abroad-engine/internal/engine"
	"study-abroad-engine/internal/models"
	"study-abroad-engine/internal/profile"
)

func universities() []models.University {
	return []models.University{
		{ID: 1, Name: "Northfield Institute", Country: "USA", City: "Boston", MinCGPA: 3.0, MinGRE: 300, MinIELTS: 6.5,
			AcceptanceRate: 0.3, Ranking: 40, TuitionFee: 30000, LivingCost: 15000, OtherFees: 1000,
			Fields: []string{"Computer Science", "Data Science"}, Type: "Private"},
		{ID: 2, Name: "Harbor State University", Country: "USA", City: "Seattle", MinCGPA: 3.6, MinGRE: 320, MinIELTS: 7.0,
			AcceptanceRate: 0.1, Ranking: 5, TuitionFee: 50000, LivingCost: 20000,
			Fields: []string{"Computer Science", "Engineering"}, Type: "Public"},
		{ID: 3, Name: "Maple Leaf University", Country: "Canada", City: "Toronto", MinCGPA: 3.2, MinIELTS: 6.5,
			AcceptanceRate: 0.5, Ranking: 60, TuitionFee: 25000, LivingCost: 12000,
			Fields: []string{"Computer Science", "Business"}, Type: "Public"},
		{ID: 4, Name: "Southern Cross College", Country: "Australia", City: "Sydney", MinCGPA: 2.8,
			AcceptanceRate: 0.6, Ranking: 150, TuitionFee: 20000, LivingCost: 15000,
			Fields: []string{"Business"}, Type: "Public"},
		{ID: 5, Name: "Lakeside University", Country: "United States", City: "Chicago", MinCGPA: 3.4,
			AcceptanceRate: 0.2, TuitionFee: 40000, LivingCost: 16000,
			Fields: []string{"Data Science"}, Type: "Private"},
	}
}

func student() models.StudentProfile {
	return models.StudentProfile{
		UserID:             "u-1",
		CGPA:               3.5,
		GRE:                320,
		IELTS:              7.0,
		FieldOfStudy:       "Computer Science",
		PreferredCountries: models.CountryList{"USA"},
		BudgetMin:          30000,
		BudgetMax:          60000,
	}
}

func newService(t *testing.T, cat catalog.Provider, opts ...Option) *RecommendationService {
	t.Helper()
	log := logger.NewTestLogger(t)
	eng := engine.New(engine.DefaultConfig(), nil, log)
	return New(eng, cat, log, opts...)
}

func staticService(t *testing.T, extra ...models.University) *RecommendationService {
	return newService(t, catalog.NewStaticProvider(append(universities(), extra...)))
}

type outageProvider struct{}

func (outageProvider) Name() string { return "postgres" }
func (outageProvider) GetByID(context.Context, int64) (*models.University, error) {
	return nil, stderrors.New("connection refused")
}
func (outageProvider) Search(context.Context, string) ([]models.University, error) {
	return nil, stderrors.New("connection refused")
}
func (outageProvider) Filter(context.Context, catalog.Filter) ([]models.University, error) {
	return nil, stderrors.New("connection refused")
}

type slowProvider struct{}

func (slowProvider) GetByID(ctx context.Context, _ int64) (*models.University, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (slowProvider) Search(ctx context.Context, _ string) ([]models.University, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
func (slowProvider) Filter(ctx context.Context, _ catalog.Filter) ([]models.University, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type brokenEstimator struct{}

func (brokenEstimator) Estimate(models.StudentProfile, models.University) (engine.AdmissionEstimate, error) {
	return engine.AdmissionEstimate{}, stderrors.New("model unavailable")
}

// ==========================
// GenerateRecommendations
// ==========================

func TestGenerateRecommendations_PreferredCountryAliases(t *testing.T) {
	res, err := staticService(t).GenerateRecommendations(context.Background(), student(), nil, 0)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RequestID)
	assert.True(t, res.CountryFilterApplied)
	assert.Equal(t, 3, res.TotalUniversitiesConsidered)
	require.Len(t, res.Recommendations, 3)

	ids := map[int64]bool{}
	for i, rec := range res.Recommendations {
		assert.Equal(t, i+1, rec.Rank)
		ids[rec.UniversityID] = true
	}
	assert.Equal(t, map[int64]bool{1: true, 2: true, 5: true}, ids)

	require.NotNil(t, res.Summary)
	assert.Equal(t, 3, res.Summary.TotalRecommendations)
	assert.Empty(t, res.Message)
}

func TestGenerateRecommendations_MaxResults(t *testing.T) {
	p := student()
	p.PreferredCountries = nil
	svc := staticService(t)

	tests := []struct {
		name       string
		maxResults int
		want       int
	}{
		{"default", 0, 5},
		{"negative uses default", -3, 5},
		{"truncated", 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.GenerateRecommendations(context.Background(), p, nil, tt.maxResults)
			require.NoError(t, err)
			assert.Len(t, res.Recommendations, tt.want)
			assert.Equal(t, 5, res.TotalUniversitiesConsidered)
		})
	}
}

func TestGenerateRecommendations_DefaultMaxResultsOption(t *testing.T) {
	p := student()
	p.PreferredCountries = nil
	svc := newService(t, catalog.NewStaticProvider(universities()), WithDefaultMaxResults(1))

	res, err := svc.GenerateRecommendations(context.Background(), p, nil, 0)
	require.NoError(t, err)
	assert.Len(t, res.Recommendations, 1)
}

func TestGenerateRecommendations_EmptySubsetIsNotAnError(t *testing.T) {
	f := &catalog.Filter{Countries: models.CountryList{"Germany"}}
	res, err := staticService(t).GenerateRecommendations(context.Background(), student(), f, 5)
	require.NoError(t, err)

	assert.Equal(t, NoMatchMessage, res.Message)
	assert.NotNil(t, res.Recommendations)
	assert.Empty(t, res.Recommendations)
	assert.Nil(t, res.Summary)
	assert.Zero(t, res.TotalUniversitiesConsidered)
}

func TestGenerateRecommendations_FilterNarrowsCandidates(t *testing.T) {
	p := student()
	p.PreferredCountries = nil
	f := &catalog.Filter{MaxBudget: 45000}

	res, err := staticService(t).GenerateRecommendations(context.Background(), p, f, 10)
	require.NoError(t, err)
	for _, rec := range res.Recommendations {
		assert.LessOrEqual(t, rec.University.HeadlineCost(), 45000.0)
	}
	assert.Equal(t, 3, res.TotalUniversitiesConsidered)
}

func TestGenerateRecommendations_SkipsBrokenRecords(t *testing.T) {
	broken := models.University{ID: 9, Name: "Broken Record University", Country: "USA", TuitionFee: -1}
	res, err := staticService(t, broken).GenerateRecommendations(context.Background(), student(), nil, 10)
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalUniversitiesConsidered)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, int64(9), res.Skipped[0].UniversityID)
	for _, rec := range res.Recommendations {
		assert.NotEqual(t, int64(9), rec.UniversityID)
	}
}

func TestGenerateRecommendations_Errors(t *testing.T) {
	badProfile := student()
	badProfile.CGPA = 5

	inverted := student()
	inverted.BudgetMin = 90000

	tests := []struct {
		name     string
		svc      *RecommendationService
		profile  models.StudentProfile
		filter   *catalog.Filter
		wantCode errors.ErrorCode
	}{
		{"cgpa out of range", staticService(t), badProfile, nil, errors.ErrCodeInvalidInput},
		{"budget inverted", staticService(t), inverted, nil, errors.ErrCodeInvalidInput},
		{"inverted filter", staticService(t), student(), &catalog.Filter{MinTuition: 5000, MaxTuition: 1000}, errors.ErrCodeInvalidFilterFormat},
		{"bad expression", staticService(t), student(), &catalog.Filter{Expression: "university.ranking <"}, errors.ErrCodeInvalidFilterFormat},
		{"catalog down", newService(t, outageProvider{}), student(), nil, errors.ErrCodeCatalogUnavailable},
		{"catalog slow", newService(t, slowProvider{}, WithCatalogTimeout(10*time.Millisecond)), student(), nil, errors.ErrCodeCatalogTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.GenerateRecommendations(context.Background(), tt.profile, tt.filter, 10)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestGenerateRecommendations_ViolationsInMetadata(t *testing.T) {
	p := student()
	p.IELTS = 12

	_, err := staticService(t).GenerateRecommendations(context.Background(), p, nil, 10)
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Contains(t, stdErr.Metadata, "violations")
}

// ==========================
// Admission
// ==========================

func TestPredictAdmission(t *testing.T) {
	res, err := staticService(t).PredictAdmission(context.Background(), student(), 3)
	require.NoError(t, err)

	assert.Equal(t, int64(3), res.UniversityID)
	assert.Equal(t, "Maple Leaf University", res.UniversityName)
	assert.Equal(t, "Canada", res.UniversityCountry)
	assert.GreaterOrEqual(t, res.Probability, 0.0)
	assert.LessOrEqual(t, res.Probability, 1.0)
	assert.True(t, res.Meets.All)
	assert.Empty(t, res.Error)
}

func TestPredictAdmission_UnknownUniversity(t *testing.T) {
	_, err := staticService(t).PredictAdmission(context.Background(), student(), 404)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUniversityNotFound))
}

func TestPredictAdmission_EstimatorFailure(t *testing.T) {
	log := logger.NewTestLogger(t)
	svc := New(engine.New(engine.DefaultConfig(), brokenEstimator{}, log), catalog.NewStaticProvider(universities()), log)

	_, err := svc.PredictAdmission(context.Background(), student(), 1)
	assert.True(t, errors.HasCode(err, errors.ErrCodeComputationSkipped))
}

func TestPredictBatchAdmission_IsolatesItems(t *testing.T) {
	res, err := staticService(t).PredictBatchAdmission(context.Background(), student(), []int64{1, 999, 3})
	require.NoError(t, err)
	require.Len(t, res, 3)

	assert.Equal(t, "Northfield Institute", res[0].UniversityName)
	assert.Empty(t, res[0].Error)

	assert.Equal(t, int64(999), res[1].UniversityID)
	assert.Equal(t, string(errors.ErrCodeUniversityNotFound), res[1].ErrorCode)
	assert.NotEmpty(t, res[1].Error)
	assert.Zero(t, res[1].Probability)

	assert.Equal(t, "Maple Leaf University", res[2].UniversityName)
}

func TestPredictBatchAdmission_EstimatorFailuresArePerItem(t *testing.T) {
	log := logger.NewTestLogger(t)
	svc := New(engine.New(engine.DefaultConfig(), brokenEstimator{}, log), catalog.NewStaticProvider(universities()), log)

	res, err := svc.PredictBatchAdmission(context.Background(), student(), []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, res, 2)
	for _, r := range res {
		assert.Equal(t, string(errors.ErrCodeComputationSkipped), r.ErrorCode)
		assert.Equal(t, "model unavailable", r.Error)
	}
}

func TestPredictBatchAdmission_CatalogOutageFailsBatch(t *testing.T) {
	_, err := newService(t, outageProvider{}).PredictBatchAdmission(context.Background(), student(), []int64{1, 2})
	assert.True(t, errors.HasCode(err, errors.ErrCodeCatalogUnavailable))
}

// ==========================
// Explanation
// ==========================

func TestExplainRecommendation(t *testing.T) {
	svc := staticService(t)
	res, err := svc.ExplainRecommendation(context.Background(), student(), 1)
	require.NoError(t, err)

	assert.Equal(t, "Northfield Institute", res.UniversityName)
	assert.Equal(t, res.DetailedScores.Overall, res.OverallScore)
	assert.NotEmpty(t, res.Explanation)
	require.Len(t, res.Factors, 5)

	w := svc.Engine().Config().Weights
	assert.Equal(t, w.Admission, res.Factors[engine.CriterionAdmission].Weight)
	assert.Equal(t, res.DetailedScores.CostFit, res.Factors[engine.CriterionCost].Score)
}

func TestExplainRecommendation_Errors(t *testing.T) {
	broken := models.University{ID: 9, Name: "Broken Record University", Country: "USA", LivingCost: -5}
	svc := staticService(t, broken)

	_, err := svc.ExplainRecommendation(context.Background(), student(), 404)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUniversityNotFound))

	_, err = svc.ExplainRecommendation(context.Background(), student(), 9)
	assert.True(t, errors.HasCode(err, errors.ErrCodeComputationSkipped))
}

// ==========================
// Costs
// ==========================

func TestCostTrends_Defaults(t *testing.T) {
	res, err := staticService(t).CostTrends(context.Background(), student(), 3, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Years)
	assert.Equal(t, 3.0, res.InflationRate)
	assert.Len(t, res.Projections, 4)
	assert.Len(t, res.BudgetAnalysis, 4)
}

func TestCostTrends_Errors(t *testing.T) {
	broken := models.University{ID: 9, Name: "Broken Record University", Country: "USA", OtherFees: -5}
	svc := staticService(t, broken)

	_, err := svc.CostTrends(context.Background(), student(), 404, 4, nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeUniversityNotFound))

	_, err = svc.CostTrends(context.Background(), student(), 9, 4, nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeComputationSkipped))
}

func TestCostAnalysis(t *testing.T) {
	svc := staticService(t)

	res, err := svc.CostAnalysis(context.Background(), student(), []int64{1, 404, 3, 1}, "comparison")
	require.NoError(t, err)
	assert.Equal(t, engine.AnalysisComparison, res.AnalysisType)
	require.NotNil(t, res.Comparison)
	assert.Equal(t, 2, res.Comparison.TotalUniversities)

	res, err = svc.CostAnalysis(context.Background(), student(), []int64{1, 2}, "unknown-kind")
	require.NoError(t, err)
	assert.Equal(t, engine.AnalysisComparison, res.AnalysisType)

	res, err = svc.CostAnalysis(context.Background(), student(), []int64{1, 2}, engine.AnalysisTrends)
	require.NoError(t, err)
	require.NotNil(t, res.Trends)
	assert.Len(t, res.Trends.Universities, 2)

	res, err = svc.CostAnalysis(context.Background(), student(), []int64{1, 2, 3}, engine.AnalysisAffordability)
	require.NoError(t, err)
	require.NotNil(t, res.Affordability)
	assert.Len(t, res.Affordability.Universities, 3)
}

func TestCostAnalysis_Errors(t *testing.T) {
	noBudget := student()
	noBudget.BudgetMin, noBudget.BudgetMax = 0, 0

	tests := []struct {
		name     string
		profile  models.StudentProfile
		ids      []int64
		kind     string
		wantCode errors.ErrorCode
	}{
		{"no ids", student(), nil, "comparison", errors.ErrCodeInvalidInput},
		{"all unknown", student(), []int64{404, 405}, "comparison", errors.ErrCodeUniversityNotFound},
		{"affordability without budget", noBudget, []int64{1}, "affordability", errors.ErrCodeBudgetRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := staticService(t).CostAnalysis(context.Background(), tt.profile, tt.ids, tt.kind)
			assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

// ==========================
// Search
// ==========================

func TestSearch(t *testing.T) {
	svc := staticService(t)

	tests := []struct {
		name   string
		text   string
		filter *catalog.Filter
		want   []int64
	}{
		{"text only", "university", nil, []int64{2, 3, 5}},
		{"text and filter", "university", &catalog.Filter{Countries: models.CountryList{"USA"}}, []int64{2, 5}},
		{"filter only", "", &catalog.Filter{Type: "public"}, []int64{2, 3, 4}},
		{"city", "sydney", nil, []int64{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := svc.Search(context.Background(), tt.text, tt.filter)
			require.NoError(t, err)
			got := make([]int64, len(list))
			for i, u := range list {
				got[i] = u.ID
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestSearch_CatalogDown(t *testing.T) {
	_, err := newService(t, outageProvider{}).Search(context.Background(), "harbor", nil)
	require.Error(t, err)
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeCatalogUnavailable, stdErr.Code)
	assert.Contains(t, stdErr.Details, "postgres")
}

// ==========================
// Tracing
// ==========================

func TestService_RecordsSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	obs := observability.New(config.ObservabilityConfig{ServiceName: "service-test"}, logger.NewNoOpLogger(),
		observability.WithRegisterer(prometheus.NewRegistry()), observability.WithSpanExporter(exp))
	svc := newService(t, catalog.NewStaticProvider(universities()), WithObservability(obs))

	_, err := svc.PredictAdmission(context.Background(), student(), 1)
	require.NoError(t, err)
	_, err = svc.PredictAdmission(context.Background(), student(), 404)
	require.Error(t, err)

	require.NoError(t, obs.ForceFlush(context.Background()))
	spans := exp.GetSpans()
	obs.Shutdown()
	require.Len(t, spans, 2)
	assert.Equal(t, "service.PredictAdmission", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
}

// ==========================
// Profile resolution
// ==========================

type profileSourceFunc func(ctx context.Context, userID string) (*models.StudentProfile, error)

func (f profileSourceFunc) Get(ctx context.Context, userID string) (*models.StudentProfile, error) {
	return f(ctx, userID)
}

func TestResolveProfile(t *testing.T) {
	stored := student()
	stored.UserID = "u-7"
	src := profileSourceFunc(func(ctx context.Context, userID string) (*models.StudentProfile, error) {
		switch userID {
		case "u-7":
			p := stored
			return &p, nil
		case "u-404":
			return nil, fmt.Errorf("%w: u-404", profile.ErrNotFound)
		case "u-slow":
			return nil, fmt.Errorf("%w: load u-slow: %w", profile.ErrStoreFailed, context.DeadlineExceeded)
		default:
			return nil, fmt.Errorf("%w: connection reset", profile.ErrStoreFailed)
		}
	})

	inline := student()
	inline.UserID = ""

	tests := []struct {
		name     string
		src      ProfileSource
		userID   string
		inline   *models.StudentProfile
		wantUser string
		wantCode errors.ErrorCode
	}{
		{name: "inline inherits user id", src: src, userID: "u-9", inline: &inline, wantUser: "u-9"},
		{name: "stored", src: src, userID: "u-7", wantUser: "u-7"},
		{name: "neither", src: src, wantCode: errors.ErrCodeInvalidInput},
		{name: "unknown user", src: src, userID: "u-404", wantCode: errors.ErrCodeProfileNotFound},
		{name: "store down", src: src, userID: "u-1", wantCode: errors.ErrCodeProfileStoreFailed},
		{name: "store timeout", src: src, userID: "u-slow", wantCode: errors.ErrCodeTimeout},
		{name: "no store", userID: "u-7", wantCode: errors.ErrCodeProfileStoreFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ResolveProfile(context.Background(), tt.src, tt.userID, tt.inline)
			if tt.wantCode != "" {
				assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, p.UserID)
			assert.Equal(t, 3.5, p.CGPA)
		})
	}
}
