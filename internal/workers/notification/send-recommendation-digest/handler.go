package sendrecommendationdigest

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"study-abroad-engine/internal/common/camunda"
	"study-abroad-engine/internal/common/errors"
	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/internal/common/metrics"
	"study-abroad-engine/internal/notify"
	"study-abroad-engine/internal/service"
	"study-abroad-engine/pkg/registry"
)

const (
	TaskType = "send-recommendation-digest"

	maxDigestItems = 10
)

// DigestSender e-mails a digest. *notify.Notifier satisfies it.
type DigestSender interface {
	SendDigest(ctx context.Context, d notify.Digest) (*notify.Receipt, error)
}

type Handler struct {
	config   *Config
	profiles service.ProfileSource
	sender   DigestSender
	jobs     *camunda.JobRunner
	logger   logger.Logger
}

func NewHandler(config *Config, profiles service.ProfileSource, sender DigestSender, reg *registry.ActivityRegistry, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		profiles: profiles,
		sender:   sender,
		jobs:     camunda.NewJobRunner(TaskType, reg, log),
		logger:   log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := metrics.TrackJob(TaskType)
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := h.jobs.Decode(job, &input); err != nil {
		done(h.jobs.Fail(context.Background(), client, job, err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		done(h.jobs.Fail(ctx, client, job, err))
		return
	}

	done(h.jobs.Complete(client, job, output))
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.Recommendations) == 0 {
		return nil, errors.NewInvalidInputError("recommendations must not be empty")
	}

	to, name := input.Email, input.StudentName
	if to == "" {
		profile, err := service.ResolveProfile(ctx, h.profiles, input.UserID, nil)
		if err != nil {
			return nil, err
		}
		to = profile.Email
		if name == "" {
			name = profile.Name
		}
	}
	if to == "" {
		return nil, errors.NewInvalidInputError("no e-mail address on file").WithMetadata("userId", input.UserID)
	}

	recs := input.Recommendations
	if len(recs) > maxDigestItems {
		recs = recs[:maxDigestItems]
	}

	receipt, err := h.sender.SendDigest(ctx, notify.Digest{To: to, StudentName: name, Recommendations: recs})
	if err != nil {
		return nil, errors.NewNotificationSendFailedError("email", err)
	}

	h.logger.Info("digest processed", map[string]interface{}{
		"notificationId": receipt.NotificationID,
		"status":         receipt.Status,
		"items":          len(recs),
	})
	return &Output{
		NotificationID: receipt.NotificationID,
		MessageID:      receipt.MessageID,
		Status:         receipt.Status,
		Sent:           receipt.Status == notify.StatusSent,
		Items:          len(recs),
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
