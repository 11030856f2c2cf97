package searchuniversities

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
	TaskType = "search-universities"

	defaultLimit = 100
)

type Handler struct {
	config  *Config
	service *service.RecommendationService
	jobs    *camunda.JobRunner
	logger  logger.Logger
}

func NewHandler(config *Config, svc *service.RecommendationService, reg *registry.ActivityRegistry, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		service: svc,
		jobs:    camunda.NewJobRunner(TaskType, reg, log),
		logger:  log,
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
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	list, err := h.service.Search(ctx, input.Query, input.Filters)
	if err != nil {
		return nil, err
	}

	output := &Output{Total: len(list)}
	if len(list) > limit {
		list = list[:limit]
		output.Truncated = true
	}
	output.Universities = list
	output.Returned = len(list)

	h.logger.Info("catalog searched", map[string]interface{}{
		"query":    input.Query,
		"total":    output.Total,
		"returned": output.Returned,
	})
	return output, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
