package predictadmission

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"study-abroad-engine/internal/common/camunda"
	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/internal/common/metrics"
	"study-abroad-engine/internal/service"
	"study-abroad-engine/pkg/registry"
)

const (
	TaskType = "predict-admission"
)

type Handler struct {
	config   *Config
	service  *service.RecommendationService
	profiles service.ProfileSource
	jobs     *camunda.JobRunner
	logger   logger.Logger
}

func NewHandler(config *Config, svc *service.RecommendationService, profiles service.ProfileSource, reg *registry.ActivityRegistry, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		service:  svc,
		profiles: profiles,
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

	result, err := h.service.PredictAdmission(ctx, profile, input.UniversityID)
	if err != nil {
		return nil, err
	}

	h.logger.Info("admission predicted", map[string]interface{}{
		"universityId": result.UniversityID,
		"probability":  result.Probability,
		"category":     result.Category,
	})
	return &Output{AdmissionResult: result}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
