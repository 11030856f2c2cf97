package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"study-abroad-engine/internal/common/errors"
	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/pkg/registry"
)

const completeTimeout = 10 * time.Second

// JobRunner is the plumbing shared by every job handler: variables are checked against the
// activity's input schema before decoding, results are completed with VariablesFromObject and
// failures go through the ErrorHandler.
type JobRunner struct {
	taskType string
	registry *registry.ActivityRegistry
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

// NewJobRunner builds a runner for taskType. A nil registry skips schema validation.
func NewJobRunner(taskType string, reg *registry.ActivityRegistry, log logger.Logger) *JobRunner {
	return &JobRunner{
		taskType: taskType,
		registry: reg,
		errors:   errors.NewErrorHandler(log),
		logger:   log,
	}
}

// Decode validates the job variables and unmarshals them into dst.
func (r *JobRunner) Decode(job entities.Job, dst interface{}) error {
	return r.DecodeVariables(job.Variables, dst)
}

func (r *JobRunner) DecodeVariables(raw string, dst interface{}) error {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}

	var vars map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &vars); err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("parse variables: %v", err))
	}

	if r.registry != nil {
		result, err := r.registry.ValidateInput(r.taskType, vars)
		if err != nil {
			return errors.NewSchemaValidationError(r.taskType, err.Error())
		}
		if !result.Valid {
			return errors.NewSchemaValidationError(r.taskType, strings.Join(result.GetErrorMessages(), "; "))
		}
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return errors.NewInvalidInputError(fmt.Sprintf("decode variables: %v", err))
	}
	return nil
}

// Complete sends output as the job result. It returns "" once the broker accepted the
// command and the error code the job ended under otherwise.
func (r *JobRunner) Complete(client worker.JobClient, job entities.Job, output interface{}) string {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		r.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return r.Fail(context.Background(), client, job, errors.NewInternalError(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), completeTimeout)
	defer cancel()
	if _, err := cmd.Send(ctx); err != nil {
		r.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return string(errors.ErrCodeInternal)
	}
	r.logger.Info("job completed", map[string]interface{}{"jobKey": job.Key})
	return ""
}

// Fail reports err to the broker and returns the error code it was reported under.
func (r *JobRunner) Fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) string {
	r.errors.HandleJobError(ctx, client, job, err)
	return string(errors.Normalize(ctx, err).Code)
}
