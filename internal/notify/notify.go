// Package notify delivers recommendation events over SNS and digest e-mails over SES.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	commonaws "study-abroad-engine/internal/common/aws"
	"study-abroad-engine/internal/common/config"
	"study-abroad-engine/internal/common/logger"
)

const (
	StatusSent     = "sent"
	StatusDisabled = "disabled"
)

var ErrNoRecipient = errors.New("recipient e-mail address missing")

// SESService is the part of the SES client the notifier uses.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SNSService is the part of the SNS client the notifier uses.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Receipt describes one delivery attempt.
type Receipt struct {
	NotificationID string `json:"notificationId"`
	MessageID      string `json:"messageId,omitempty"`
	Status         string `json:"status"`
	SentAt         string `json:"sentAt"`
}

type Notifier struct {
	cfg    config.NotificationConfig
	ses    SESService
	sns    SNSService
	logger logger.Logger
	now    func() time.Time
}

func New(cfg config.NotificationConfig, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Notifier{
		cfg:    cfg,
		ses:    sesClient,
		sns:    snsClient,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
		now:    time.Now,
	}
}

// NewFromConfig loads AWS credentials only when a channel is enabled.
func NewFromConfig(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	if !cfg.SES.Enabled && !cfg.SNS.Enabled {
		return New(cfg, nil, nil, log), nil
	}

	clients, err := commonaws.NewClients(ctx, cfg.AWS.Region)
	if err != nil {
		return nil, err
	}
	return New(cfg, clients.SES, clients.SNS, log), nil
}

func (n *Notifier) EventsEnabled() bool {
	return n.cfg.SNS.Enabled && n.sns != nil && n.cfg.SNS.TopicARN != ""
}

func (n *Notifier) DigestEnabled() bool {
	return n.cfg.SES.Enabled && n.ses != nil
}

func (n *Notifier) receipt(status, messageID string) *Receipt {
	return &Receipt{
		NotificationID: uuid.New().String(),
		MessageID:      messageID,
		Status:         status,
		SentAt:         n.now().UTC().Format(time.RFC3339),
	}
}
