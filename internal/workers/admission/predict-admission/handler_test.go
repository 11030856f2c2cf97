package predictadmission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-abroad-engine/internal/common/errors"
	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/internal/workers/workertest"
)

func createHandler(t *testing.T) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second}, workertest.Service(t), workertest.StoredProfiles(),
		workertest.Registry(t), logger.NewTestLogger(t))
}

func TestLoadConfig(t *testing.T) {
	assert.Equal(t, 10*time.Second, LoadConfig(workertest.Registry(t)).Timeout)
	assert.Equal(t, 30*time.Second, LoadConfig(nil).Timeout)
}

func TestHandler_Execute_Success(t *testing.T) {
	out, err := createHandler(t).Execute(context.Background(), &Input{UserID: "u-1", UniversityID: 3})
	require.NoError(t, err)

	assert.Equal(t, int64(3), out.UniversityID)
	assert.Equal(t, "Maple Leaf University", out.UniversityName)
	assert.Equal(t, "Canada", out.UniversityCountry)
	assert.GreaterOrEqual(t, out.Probability, 0.0)
	assert.LessOrEqual(t, out.Probability, 1.0)
	assert.NotEmpty(t, out.Category)
}

func TestHandler_Execute_InlineProfileWins(t *testing.T) {
	weak := workertest.Student()
	weak.CGPA = 2.0
	h := createHandler(t)

	strong, err := h.Execute(context.Background(), &Input{UserID: "u-1", UniversityID: 1})
	require.NoError(t, err)
	low, err := h.Execute(context.Background(), &Input{UserID: "u-1", StudentProfile: &weak, UniversityID: 1})
	require.NoError(t, err)

	assert.Less(t, low.Probability, strong.Probability)
	assert.False(t, low.Meets.All)
}

func TestHandler_Execute_Errors(t *testing.T) {
	invalid := workertest.Student()
	invalid.CGPA = 7

	tests := []struct {
		name     string
		input    *Input
		wantCode errors.ErrorCode
	}{
		{"unknown university", &Input{UserID: "u-1", UniversityID: 404}, errors.ErrCodeUniversityNotFound},
		{"unknown user", &Input{UserID: "u-404", UniversityID: 1}, errors.ErrCodeProfileNotFound},
		{"invalid profile", &Input{StudentProfile: &invalid, UniversityID: 1}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := createHandler(t).Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}
