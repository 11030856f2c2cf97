package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-abroad-engine/internal/common/config"
	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/internal/engine"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

// ==========================
// Test Helper Functions
// ==========================

func enabledConfig() config.NotificationConfig {
	var cfg config.NotificationConfig
	cfg.AWS.Region = "us-east-1"
	cfg.SNS.Enabled = true
	cfg.SNS.TopicARN = "arn:aws:sns:us-east-1:123456789012:recommendations"
	cfg.SES.Enabled = true
	cfg.SES.FromEmail = "advisor@example.com"
	return cfg
}

func sampleRecommendations(n int) []engine.Recommendation {
	recs := make([]engine.Recommendation, n)
	for i := range recs {
		recs[i] = engine.Recommendation{
			Rank:           i + 1,
			UniversityID:   int64(i + 1),
			UniversityName: "University <" + string(rune('A'+i)) + ">",
			Country:        "Canada",
			Scores: engine.ScoreSet{
				AdmissionProbability: 0.45,
				AdmissionCategory:    "Moderate",
				Overall:              0.8 - float64(i)*0.05,
			},
			Costs:       engine.CostBreakdown{TotalAnnualCost: 41500},
			Explanation: []string{"Good cost fit for your budget range"},
		}
	}
	return recs
}

func fixedClock(n *Notifier) {
	n.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
}

// ==========================
// Events
// ==========================

func TestPublishRecommendations_Success(t *testing.T) {
	var captured *sns.PublishInput
	snsMock := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			captured = params
			return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
		},
	}
	n := New(enabledConfig(), nil, snsMock, logger.NewTestLogger(t))
	fixedClock(n)

	ev := NewRecommendationEvent("req-1", "u-42", 12, sampleRecommendations(7))
	receipt, err := n.PublishRecommendations(context.Background(), ev)
	require.NoError(t, err)

	assert.Equal(t, StatusSent, receipt.Status)
	assert.Equal(t, "msg-1", receipt.MessageID)
	assert.Equal(t, "2026-03-01T12:00:00Z", receipt.SentAt)

	require.NotNil(t, captured)
	assert.Equal(t, enabledConfig().SNS.TopicARN, *captured.TopicArn)
	assert.Equal(t, EventRecommendationsGenerated, *captured.MessageAttributes["eventType"].StringValue)

	var payload RecommendationEvent
	require.NoError(t, json.Unmarshal([]byte(*captured.Message), &payload))
	assert.Equal(t, receipt.NotificationID, payload.EventID)
	assert.Equal(t, "u-42", payload.UserID)
	assert.Equal(t, 7, payload.Count)
	assert.Equal(t, 12, payload.Considered)
	assert.Len(t, payload.TopUniversities, 5)
	assert.Equal(t, int64(1), payload.TopUniversities[0].UniversityID)
}

func TestPublishRecommendations_Disabled(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.NotificationConfig)
		client SNSService
	}{
		{"sns off", func(c *config.NotificationConfig) { c.SNS.Enabled = false }, &MockSNSService{}},
		{"no topic", func(c *config.NotificationConfig) { c.SNS.TopicARN = "" }, &MockSNSService{}},
		{"no client", func(c *config.NotificationConfig) {}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := enabledConfig()
			tt.mutate(&cfg)
			n := New(cfg, nil, tt.client, logger.NewNoOpLogger())

			receipt, err := n.PublishRecommendations(context.Background(), RecommendationEvent{})
			require.NoError(t, err)
			assert.Equal(t, StatusDisabled, receipt.Status)
			assert.NotEmpty(t, receipt.NotificationID)
		})
	}
}

func TestPublishRecommendations_Failure(t *testing.T) {
	snsMock := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	n := New(enabledConfig(), nil, snsMock, logger.NewNoOpLogger())

	_, err := n.PublishRecommendations(context.Background(), RecommendationEvent{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

// ==========================
// Digest
// ==========================

func TestSendDigest_Success(t *testing.T) {
	var captured *ses.SendEmailInput
	sesMock := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			captured = params
			return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
		},
	}
	n := New(enabledConfig(), sesMock, nil, logger.NewTestLogger(t))

	receipt, err := n.SendDigest(context.Background(), Digest{
		To:              "asha@example.com",
		StudentName:     "Asha",
		Recommendations: sampleRecommendations(2),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSent, receipt.Status)
	assert.Equal(t, "ses-1", receipt.MessageID)

	require.NotNil(t, captured)
	assert.Equal(t, []string{"asha@example.com"}, captured.Destination.ToAddresses)
	assert.Equal(t, "advisor@example.com", *captured.Source)
	assert.Equal(t, digestSubject, *captured.Message.Subject.Data)

	text := *captured.Message.Body.Text.Data
	assert.Contains(t, text, "Hello Asha,")
	assert.Contains(t, text, "1. University <A> (Canada)")
	assert.Contains(t, text, "Match score: 80.0%")
	assert.Contains(t, text, "Admission: Moderate (45.0%)")
	assert.Contains(t, text, "Estimated annual cost: $41500")

	html := *captured.Message.Body.Html.Data
	assert.Contains(t, html, "University &lt;A&gt;")
	assert.NotContains(t, html, "University <A>")
}

func TestSendDigest_Errors(t *testing.T) {
	sesMock := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("message rejected")
		},
	}
	n := New(enabledConfig(), sesMock, nil, logger.NewNoOpLogger())

	_, err := n.SendDigest(context.Background(), Digest{Recommendations: sampleRecommendations(1)})
	assert.ErrorIs(t, err, ErrNoRecipient)

	_, err = n.SendDigest(context.Background(), Digest{To: "asha@example.com", Recommendations: sampleRecommendations(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "message rejected")
}

func TestSendDigest_Disabled(t *testing.T) {
	cfg := enabledConfig()
	cfg.SES.Enabled = false
	n := New(cfg, &MockSESService{}, nil, logger.NewNoOpLogger())

	receipt, err := n.SendDigest(context.Background(), Digest{To: "asha@example.com"})
	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, receipt.Status)
}

func TestNewFromConfig_AllDisabledSkipsAWS(t *testing.T) {
	n, err := NewFromConfig(context.Background(), config.NotificationConfig{}, logger.NewNoOpLogger())
	require.NoError(t, err)
	assert.False(t, n.EventsEnabled())
	assert.False(t, n.DigestEnabled())
}
