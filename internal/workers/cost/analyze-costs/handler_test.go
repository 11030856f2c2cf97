package analyzecosts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-abroad-engine/internal/common/errors"
	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/internal/engine"
	"study-abroad-engine/internal/workers/workertest"
)

func createHandler(t *testing.T) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second}, workertest.Service(t), workertest.StoredProfiles(),
		workertest.Registry(t), logger.NewTestLogger(t))
}

func TestHandler_Execute_Kinds(t *testing.T) {
	tests := []struct {
		kind     string
		wantType string
	}{
		{"", engine.AnalysisComparison},
		{engine.AnalysisComparison, engine.AnalysisComparison},
		{engine.AnalysisTrends, engine.AnalysisTrends},
		{engine.AnalysisAffordability, engine.AnalysisAffordability},
	}
	for _, tt := range tests {
		t.Run(tt.wantType+"/"+tt.kind, func(t *testing.T) {
			out, err := createHandler(t).Execute(context.Background(), &Input{
				UserID:        "u-1",
				UniversityIDs: []int64{1, 2, 3},
				AnalysisType:  tt.kind,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, out.AnalysisType)

			switch tt.wantType {
			case engine.AnalysisComparison:
				require.NotNil(t, out.Comparison)
				assert.Equal(t, 3, out.Comparison.TotalUniversities)
			case engine.AnalysisTrends:
				require.NotNil(t, out.Trends)
				assert.Len(t, out.Trends.Universities, 3)
			case engine.AnalysisAffordability:
				require.NotNil(t, out.Affordability)
				assert.Len(t, out.Affordability.Universities, 3)
			}
		})
	}
}

func TestHandler_Execute_Errors(t *testing.T) {
	noBudget := workertest.Student()
	noBudget.BudgetMin, noBudget.BudgetMax = 0, 0

	tests := []struct {
		name     string
		input    *Input
		wantCode errors.ErrorCode
	}{
		{"all unknown", &Input{UserID: "u-1", UniversityIDs: []int64{404, 405}}, errors.ErrCodeUniversityNotFound},
		{"affordability without budget", &Input{StudentProfile: &noBudget, UniversityIDs: []int64{1}, AnalysisType: engine.AnalysisAffordability}, errors.ErrCodeBudgetRequired},
		{"empty ids", &Input{UserID: "u-1"}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := createHandler(t).Execute(context.Background(), tt.input)
			assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}
