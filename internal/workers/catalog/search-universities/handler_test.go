package searchuniversities

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-abroad-engine/internal/catalog"
	"study-abroad-engine/internal/common/errors"
	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/internal/models"
	"study-abroad-engine/internal/workers/workertest"
)

func createHandler(t *testing.T) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second}, workertest.Service(t), workertest.Registry(t), logger.NewTestLogger(t))
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name          string
		input         *Input
		wantIDs       []int64
		wantTotal     int
		wantTruncated bool
	}{
		{name: "everything", input: &Input{}, wantIDs: []int64{1, 2, 3, 4}, wantTotal: 4},
		{name: "text", input: &Input{Query: "university"}, wantIDs: []int64{2, 3}, wantTotal: 2},
		{name: "city", input: &Input{Query: "sydney"}, wantIDs: []int64{4}, wantTotal: 1},
		{
			name:      "text and filter",
			input:     &Input{Query: "university", Filters: &catalog.Filter{Countries: models.CountryList{"Canada"}}},
			wantIDs:   []int64{3},
			wantTotal: 1,
		},
		{
			name:      "filter only",
			input:     &Input{Filters: &catalog.Filter{Fields: []string{"Business"}}},
			wantIDs:   []int64{3, 4},
			wantTotal: 2,
		},
		{name: "no match", input: &Input{Query: "sorbonne"}, wantIDs: []int64{}, wantTotal: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := createHandler(t).Execute(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, out.Total)
			assert.Equal(t, len(out.Universities), out.Returned)
			assert.Equal(t, tt.wantTruncated, out.Truncated)

			got := make([]int64, 0, len(out.Universities))
			for _, u := range out.Universities {
				got = append(got, u.ID)
			}
			assert.ElementsMatch(t, tt.wantIDs, got)
		})
	}
}

func TestHandler_Execute_Limit(t *testing.T) {
	out, err := createHandler(t).Execute(context.Background(), &Input{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, out.Total)
	assert.Equal(t, 3, out.Returned)
	assert.True(t, out.Truncated)
}

func TestHandler_Execute_BadExpression(t *testing.T) {
	_, err := createHandler(t).Execute(context.Background(), &Input{
		Filters: &catalog.Filter{Expression: "university.tuition_fee <"},
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidFilterFormat), "got %v", err)
}
