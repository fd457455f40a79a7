package indexapplication

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"camp-portal/internal/common/errors"
	"camp-portal/internal/common/logger"
	"camp-portal/internal/common/metrics"
	"camp-portal/internal/models"
	"camp-portal/internal/store"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "index-application"

type ApplicationLookup interface {
	GetApplication(ctx context.Context, id string) (*models.Application, error)
}

type Indexer interface {
	IndexApplication(ctx context.Context, app *models.Application) error
}

// Handler re-reads the application from Postgres and writes it to the
// search index, so the document reflects committed state whenever it runs.
type Handler struct {
	config     *Config
	apps       ApplicationLookup
	indexer    Indexer
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, apps ApplicationLookup, indexer Indexer, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		apps:       apps,
		indexer:    indexer,
		errHandler: errors.NewErrorHandler(l),
		logger:     l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewValidationError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, errors.NewInternalError(err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" {
		return nil, errors.NewValidationError("applicationId is required")
	}

	app, err := h.apps.GetApplication(ctx, input.ApplicationID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NewNotFoundError("Application", input.ApplicationID)
		}
		return nil, errors.NewQueryExecutionFailedError("get application", err)
	}

	if err := h.indexer.IndexApplication(ctx, app); err != nil {
		if _, ok := errors.AsStandard(err); ok {
			return nil, err
		}
		return nil, errors.NewIndexFailedError(app.ID, err)
	}

	h.logger.Debug("application indexed", map[string]interface{}{
		"applicationId": app.ID,
		"status":        app.Status,
	})
	return &Output{
		ApplicationID: app.ID,
		Status:        string(app.Status),
		IndexedAt:     time.Now().UTC().Format(time.RFC3339),
	}, nil
}
