package generaterecommendations

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-abroad-engine/internal/catalog"
	"study-abroad-engine/internal/common/errors"
	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/internal/models"
	"study-abroad-engine/internal/notify"
	"study-abroad-engine/internal/service"
	"study-abroad-engine/internal/workers/workertest"
)

type fakePublisher struct {
	events []notify.RecommendationEvent
	err    error
}

func (f *fakePublisher) PublishRecommendations(_ context.Context, ev notify.RecommendationEvent) (*notify.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.events = append(f.events, ev)
	return &notify.Receipt{NotificationID: "evt-1", Status: notify.StatusSent}, nil
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func createHandler(t *testing.T, events EventPublisher) *Handler {
	return NewHandler(createTestConfig(), workertest.Service(t), workertest.StoredProfiles(), events,
		workertest.Registry(t), logger.NewTestLogger(t))
}

func TestLoadConfig_UsesRegistryTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, LoadConfig(workertest.Registry(t)).Timeout)
	assert.Equal(t, 30*time.Second, LoadConfig(nil).Timeout)
}

func TestHandler_Execute(t *testing.T) {
	inline := workertest.Student()

	tests := []struct {
		name           string
		input          *Input
		wantConsidered int
		wantMessage    string
		wantCode       errors.ErrorCode
	}{
		{
			name:           "inline profile",
			input:          &Input{StudentProfile: &inline, MaxResults: 5},
			wantConsidered: 2,
		},
		{
			name:           "stored profile",
			input:          &Input{UserID: "u-1"},
			wantConsidered: 2,
		},
		{
			name:        "empty subset",
			input:       &Input{UserID: "u-1", Filters: &catalog.Filter{Countries: models.CountryList{"Germany"}}},
			wantMessage: service.NoMatchMessage,
		},
		{
			name:     "unknown user",
			input:    &Input{UserID: "u-404"},
			wantCode: errors.ErrCodeProfileNotFound,
		},
		{
			name:     "no profile at all",
			input:    &Input{},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "inverted filter",
			input:    &Input{UserID: "u-1", Filters: &catalog.Filter{MinTuition: 50000, MaxTuition: 10000}},
			wantCode: errors.ErrCodeInvalidFilterFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := createHandler(t, nil)
			out, err := h.Execute(context.Background(), tt.input)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, out.RequestID)
			assert.Equal(t, tt.wantConsidered, out.TotalUniversitiesConsidered)
			assert.Equal(t, tt.wantMessage, out.Message)
			assert.NotNil(t, out.Recommendations)
			for _, r := range out.Recommendations {
				assert.Equal(t, "USA", r.Country)
			}
			assert.Empty(t, out.EventStatus)
		})
	}
}

func TestHandler_Execute_PublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	h := createHandler(t, pub)

	out, err := h.Execute(context.Background(), &Input{UserID: "u-1", PublishEvent: true})
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, out.RequestID, pub.events[0].RequestID)
	assert.Equal(t, "u-1", pub.events[0].UserID)
	assert.Equal(t, len(out.Recommendations), pub.events[0].Count)
	assert.Equal(t, "evt-1", out.EventID)
	assert.Equal(t, notify.StatusSent, out.EventStatus)
}

func TestHandler_Execute_PublishFailureKeepsResult(t *testing.T) {
	h := createHandler(t, &fakePublisher{err: stderrors.New("sns throttled")})

	out, err := h.Execute(context.Background(), &Input{UserID: "u-1", PublishEvent: true})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Recommendations)
	assert.Equal(t, eventFailed, out.EventStatus)
	assert.Empty(t, out.EventID)
}

func TestHandler_Execute_NoEventUnlessAsked(t *testing.T) {
	pub := &fakePublisher{}
	h := createHandler(t, pub)

	_, err := h.Execute(context.Background(), &Input{UserID: "u-1"})
	require.NoError(t, err)
	assert.Empty(t, pub.events)
}
