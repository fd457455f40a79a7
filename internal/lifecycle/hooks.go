// Package lifecycle runs the side effects that follow a committed
// application write: cache invalidation, reindexing and event publishing.
// None of them can fail the write that triggered them.
package lifecycle

import (
	"context"
	"time"

	"camp-portal/internal/common/logger"
	"camp-portal/internal/common/metrics"
	"camp-portal/internal/models"
)

type Invalidator interface {
	Invalidate(ctx context.Context, applicationID string)
}

type Indexer interface {
	IndexApplication(ctx context.Context, app *models.Application) error
}

type Publisher interface {
	Publish(ctx context.Context, event models.LifecycleEvent) error
}

// Hooks is safe to use with any collaborator left nil.
type Hooks struct {
	cache     Invalidator
	indexer   Indexer
	publisher Publisher
	logger    logger.Logger
}

func NewHooks(cache Invalidator, indexer Indexer, publisher Publisher, log logger.Logger) *Hooks {
	return &Hooks{
		cache:     cache,
		indexer:   indexer,
		publisher: publisher,
		logger:    log.WithFields(map[string]interface{}{"component": "lifecycle"}),
	}
}

// Committed is called after the transaction that produced app has committed.
// A non-empty event is published to the workflow engine.
func (h *Hooks) Committed(ctx context.Context, app *models.Application, event string) {
	if h == nil || app == nil {
		return
	}

	if h.cache != nil {
		h.cache.Invalidate(ctx, app.ID)
	}

	if h.indexer != nil {
		if err := h.indexer.IndexApplication(ctx, app); err != nil {
			h.logger.Warn("failed to index application", map[string]interface{}{
				"applicationId": app.ID,
				"error":         err.Error(),
			})
		}
	}

	if event == "" || h.publisher == nil {
		return
	}
	ev := models.LifecycleEvent{
		Name:          event,
		ApplicationID: app.ID,
		UserID:        app.UserID,
		Status:        app.Status,
		OccurredAt:    time.Now().UTC(),
	}
	if err := h.publisher.Publish(ctx, ev); err != nil {
		metrics.LifecyclePublishFailures.WithLabelValues(event).Inc()
		h.logger.Error("failed to publish lifecycle event", map[string]interface{}{
			"applicationId": app.ID,
			"event":         event,
			"error":         err.Error(),
		})
		return
	}
	h.logger.Info("lifecycle event published", map[string]interface{}{
		"applicationId": app.ID,
		"event":         event,
	})
}
