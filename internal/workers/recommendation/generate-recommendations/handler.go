package generaterecommendations

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"study-abroad-engine/internal/common/camunda"
	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/internal/common/metrics"
	"study-abroad-engine/internal/notify"
	"study-abroad-engine/internal/service"
	"study-abroad-engine/pkg/registry"
)

const (
	TaskType = "generate-recommendations"

	eventFailed = "failed"
)

// EventPublisher announces finished recommendation runs. *notify.Notifier satisfies it.
type EventPublisher interface {
	PublishRecommendations(ctx context.Context, ev notify.RecommendationEvent) (*notify.Receipt, error)
}

type Handler struct {
	config   *Config
	service  *service.RecommendationService
	profiles service.ProfileSource
	events   EventPublisher
	jobs     *camunda.JobRunner
	logger   logger.Logger
}

func NewHandler(config *Config, svc *service.RecommendationService, profiles service.ProfileSource, events EventPublisher, reg *registry.ActivityRegistry, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		service:  svc,
		profiles: profiles,
		events:   events,
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
	profile, err := service.ResolveProfile(ctx, h.profiles, input.UserID, input.StudentProfile)
	if err != nil {
		return nil, err
	}

	result, err := h.service.GenerateRecommendations(ctx, profile, input.Filters, input.MaxResults)
	if err != nil {
		return nil, err
	}

	h.logger.Info("recommendations generated", map[string]interface{}{
		"requestId":  result.RequestID,
		"returned":   len(result.Recommendations),
		"considered": result.TotalUniversitiesConsidered,
		"skipped":    len(result.Skipped),
	})

	output := &Output{RecommendationResult: result}
	if input.PublishEvent && h.events != nil {
		h.publish(ctx, output, profile.UserID)
	}
	return output, nil
}

// publish never fails the job; the ranking is already computed.
func (h *Handler) publish(ctx context.Context, output *Output, userID string) {
	ev := notify.NewRecommendationEvent(output.RequestID, userID, output.TotalUniversitiesConsidered, output.Recommendations)
	receipt, err := h.events.PublishRecommendations(ctx, ev)
	if err != nil {
		h.logger.Warn("recommendation event not published", map[string]interface{}{
			"requestId": output.RequestID,
			"error":     err.Error(),
		})
		output.EventStatus = eventFailed
		return
	}
	output.EventID = receipt.NotificationID
	output.EventStatus = receipt.Status
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
