package camunda

import (
	"context"
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/attribute"

	"study-abroad-engine/internal/common/config"
	"study-abroad-engine/internal/common/logger"
	"study-abroad-engine/internal/common/observability"
)

const (
	jobCompleted   = "completed"
	jobFailed      = "failed"
	jobErrorThrown = "error_thrown"
	jobAbandoned   = "abandoned"
)

// Manager opens job workers and closes them together on shutdown.
type Manager struct {
	client  zbc.Client
	obs     *observability.Observability
	logger  logger.Logger
	mu      sync.Mutex
	workers map[string]worker.JobWorker
}

// NewManager returns a manager for client. obs may be nil.
func NewManager(client zbc.Client, obs *observability.Observability, log logger.Logger) *Manager {
	return &Manager{
		client:  client,
		obs:     obs,
		logger:  log,
		workers: make(map[string]worker.JobWorker),
	}
}

// observedClient notes which terminal command a handler issued for its job.
type observedClient struct {
	worker.JobClient
	status string
}

func (c *observedClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	c.status = jobCompleted
	return c.JobClient.NewCompleteJobCommand()
}

func (c *observedClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.status = jobFailed
	return c.JobClient.NewFailJobCommand()
}

func (c *observedClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.status = jobErrorThrown
	return c.JobClient.NewThrowErrorCommand()
}

// instrument wraps handler with a span and the job counter and duration meters.
func (m *Manager) instrument(taskType string, handler worker.JobHandler) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		ctx, span := m.obs.StartSpan(context.Background(), "job."+taskType,
			attribute.String("taskType", taskType),
			attribute.Int64("jobKey", job.Key),
		)
		defer span.End()

		observed := &observedClient{JobClient: client, status: jobAbandoned}
		start := time.Now()
		handler(observed, job)
		elapsed := time.Since(start)

		span.SetAttributes(attribute.String("status", observed.status))
		m.obs.RecordJobProcessed(ctx, observed.status)
		m.obs.RecordJobDuration(ctx, elapsed, observed.status)
		m.logger.Debug("job handled", map[string]interface{}{
			"taskType":    taskType,
			"jobKey":      job.Key,
			"status":      observed.status,
			"duration_ms": elapsed.Milliseconds(),
		})
	}
}

// Start opens a worker for taskType. Disabled workers are logged and skipped; the return value
// reports whether a worker was opened.
func (m *Manager) Start(taskType string, wcfg config.WorkerConfig, handler worker.JobHandler) bool {
	if !wcfg.Enabled {
		m.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, running := m.workers[taskType]; running {
		m.logger.Warn("worker already started", map[string]interface{}{"taskType": taskType})
		return false
	}

	jw := m.client.NewJobWorker().
		JobType(taskType).
		Handler(m.instrument(taskType, handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()
	m.workers[taskType] = jw

	m.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return true
}

// Running returns the number of open workers.
func (m *Manager) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workers)
}

// Close stops every worker and waits for in-flight jobs.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for taskType, jw := range m.workers {
		m.logger.Info("stopping worker", map[string]interface{}{"taskType": taskType})
		jw.Close()
		jw.AwaitClose()
		delete(m.workers, taskType)
	}
}
