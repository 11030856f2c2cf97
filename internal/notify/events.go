package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	commonaws "study-abroad-engine/internal/common/aws"
	"study-abroad-engine/internal/engine"
)

const EventRecommendationsGenerated = "recommendations.generated"

// RecommendationEvent is the SNS payload announcing a finished recommendation run.
type RecommendationEvent struct {
	EventType       string                `json:"eventType"`
	EventID         string                `json:"eventId"`
	OccurredAt      string                `json:"occurredAt"`
	RequestID       string                `json:"requestId"`
	UserID          string                `json:"userId,omitempty"`
	Count           int                   `json:"count"`
	Considered      int                   `json:"totalUniversitiesConsidered"`
	TopUniversities []EventRecommendation `json:"topUniversities"`
}

type EventRecommendation struct {
	Rank         int     `json:"rank"`
	UniversityID int64   `json:"universityId"`
	Name         string  `json:"universityName"`
	OverallScore float64 `json:"overallScore"`
}

const eventTopN = 5

// NewRecommendationEvent summarises recs; only the first few are listed.
func NewRecommendationEvent(requestID, userID string, considered int, recs []engine.Recommendation) RecommendationEvent {
	top := make([]EventRecommendation, 0, eventTopN)
	for i, r := range recs {
		if i == eventTopN {
			break
		}
		top = append(top, EventRecommendation{
			Rank:         r.Rank,
			UniversityID: r.UniversityID,
			Name:         r.UniversityName,
			OverallScore: r.Scores.Overall,
		})
	}
	return RecommendationEvent{
		EventType:       EventRecommendationsGenerated,
		RequestID:       requestID,
		UserID:          userID,
		Count:           len(recs),
		Considered:      considered,
		TopUniversities: top,
	}
}

// PublishRecommendations sends ev to the configured topic. With events disabled it returns a
// "disabled" receipt and sends nothing.
func (n *Notifier) PublishRecommendations(ctx context.Context, ev RecommendationEvent) (*Receipt, error) {
	if !n.EventsEnabled() {
		return n.receipt(StatusDisabled, ""), nil
	}

	r := n.receipt(StatusSent, "")
	ev.EventType = EventRecommendationsGenerated
	ev.EventID = r.NotificationID
	ev.OccurredAt = r.SentAt
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}

	out, err := n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.cfg.SNS.TopicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {DataType: aws.String("String"), StringValue: aws.String(EventRecommendationsGenerated)},
		},
	})
	if err != nil {
		n.logger.Warn("sns publish failed", map[string]interface{}{
			"awsErrorCode": commonaws.ErrorCode(err),
			"throttled":    commonaws.Throttled(err),
		})
		return nil, fmt.Errorf("sns publish: %w", err)
	}
	if out != nil && out.MessageId != nil {
		r.MessageID = *out.MessageId
	}

	n.logger.Info("recommendation event published", map[string]interface{}{
		"eventId":   ev.EventID,
		"requestId": ev.RequestID,
		"messageId": r.MessageID,
	})
	return r, nil
}
