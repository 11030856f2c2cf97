package sendrecommendationdigest

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-abroad-engine/internal/common/errors"
	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/internal/engine"
	"study-abroad-engine/internal/notify"
	"study-abroad-engine/internal/workers/workertest"
)

type fakeSender struct {
	sent []notify.Digest
	err  error
}

func (f *fakeSender) SendDigest(_ context.Context, d notify.Digest) (*notify.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, d)
	return &notify.Receipt{NotificationID: "n-1", MessageID: "ses-1", Status: notify.StatusSent}, nil
}

func recommendations(n int) []engine.Recommendation {
	out := make([]engine.Recommendation, n)
	for i := range out {
		out[i] = engine.Recommendation{Rank: i + 1, UniversityID: int64(i + 1), UniversityName: "Northfield Institute"}
	}
	return out
}

func createHandler(t *testing.T, sender DigestSender) *Handler {
	return NewHandler(&Config{Timeout: 5 * time.Second}, workertest.StoredProfiles(), sender, workertest.Registry(t), logger.NewTestLogger(t))
}

func TestHandler_Execute_ExplicitRecipient(t *testing.T) {
	sender := &fakeSender{}
	out, err := createHandler(t, sender).Execute(context.Background(), &Input{
		Email:           "lee@example.com",
		StudentName:     "Lee",
		Recommendations: recommendations(3),
	})
	require.NoError(t, err)

	assert.True(t, out.Sent)
	assert.Equal(t, "n-1", out.NotificationID)
	assert.Equal(t, "ses-1", out.MessageID)
	assert.Equal(t, 3, out.Items)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "lee@example.com", sender.sent[0].To)
	assert.Equal(t, "Lee", sender.sent[0].StudentName)
}

func TestHandler_Execute_RecipientFromProfile(t *testing.T) {
	sender := &fakeSender{}
	out, err := createHandler(t, sender).Execute(context.Background(), &Input{
		UserID:          "u-1",
		Recommendations: recommendations(15),
	})
	require.NoError(t, err)

	assert.Equal(t, maxDigestItems, out.Items)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "asha@example.com", sender.sent[0].To)
	assert.Equal(t, "Asha", sender.sent[0].StudentName)
	assert.Len(t, sender.sent[0].Recommendations, maxDigestItems)
}

func TestHandler_Execute_Disabled(t *testing.T) {
	sender := &disabledSender{}
	out, err := createHandler(t, sender).Execute(context.Background(), &Input{Email: "lee@example.com", Recommendations: recommendations(1)})
	require.NoError(t, err)
	assert.False(t, out.Sent)
	assert.Equal(t, notify.StatusDisabled, out.Status)
}

type disabledSender struct{}

func (disabledSender) SendDigest(context.Context, notify.Digest) (*notify.Receipt, error) {
	return &notify.Receipt{NotificationID: "n-2", Status: notify.StatusDisabled}, nil
}

func TestHandler_Execute_Errors(t *testing.T) {
	noEmail := workertest.StoredProfiles()
	p := noEmail["u-1"]
	p.Email = ""
	noEmail["u-1"] = p

	tests := []struct {
		name     string
		handler  func(t *testing.T) *Handler
		input    *Input
		wantCode errors.ErrorCode
	}{
		{
			name:     "no recommendations",
			handler:  func(t *testing.T) *Handler { return createHandler(t, &fakeSender{}) },
			input:    &Input{Email: "lee@example.com"},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "unknown user",
			handler:  func(t *testing.T) *Handler { return createHandler(t, &fakeSender{}) },
			input:    &Input{UserID: "u-404", Recommendations: recommendations(1)},
			wantCode: errors.ErrCodeProfileNotFound,
		},
		{
			name: "profile without e-mail",
			handler: func(t *testing.T) *Handler {
				return NewHandler(&Config{Timeout: time.Second}, noEmail, &fakeSender{}, nil, logger.NewNoOpLogger())
			},
			input:    &Input{UserID: "u-1", Recommendations: recommendations(1)},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "ses failure",
			handler:  func(t *testing.T) *Handler { return createHandler(t, &fakeSender{err: stderrors.New("throttled")}) },
			input:    &Input{Email: "lee@example.com", Recommendations: recommendations(1)},
			wantCode: errors.ErrCodeNotificationSendFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.handler(t).Execute(context.Background(), tt.input)
			assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}
