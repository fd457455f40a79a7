package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "camp-portal/internal/common/errors"
	"camp-portal/internal/common/logger"
	"camp-portal/internal/common/metrics"
	"camp-portal/internal/common/observability"
	"camp-portal/internal/models"
	"camp-portal/internal/store"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

const cacheKeyPrefix = "progress:"

// Source is the read side of the store. Both *store.Store and a
// transaction-bound *store.Queries satisfy it.
type Source interface {
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	ListSections(ctx context.Context) ([]models.Section, error)
	ListQuestions(ctx context.Context) ([]models.Question, error)
	ListResponses(ctx context.Context, applicationID string) ([]models.Response, error)
}

// Load computes status-aware progress for the application as if it were in
// status. Accept uses it inside its transaction with the target status.
func Load(ctx context.Context, src Source, applicationID string, status models.ApplicationStatus) (models.ApplicationProgress, error) {
	sections, err := src.ListSections(ctx)
	if err != nil {
		return models.ApplicationProgress{}, err
	}
	questions, err := src.ListQuestions(ctx)
	if err != nil {
		return models.ApplicationProgress{}, err
	}
	responses, err := src.ListResponses(ctx, applicationID)
	if err != nil {
		return models.ApplicationProgress{}, err
	}
	return Compute(applicationID, status, sections, questions, responses), nil
}

// LoadSimple computes the cached-field percentage for the application.
func LoadSimple(ctx context.Context, src Source, applicationID string) (int, error) {
	questions, err := src.ListQuestions(ctx)
	if err != nil {
		return 0, err
	}
	responses, err := src.ListResponses(ctx, applicationID)
	if err != nil {
		return 0, err
	}
	return SimplePercentage(questions, responses), nil
}

// Service serves status-aware progress with a read-through redis cache.
type Service struct {
	src    Source
	redis  *redis.Client
	ttl    time.Duration
	obs    *observability.Observability
	logger logger.Logger
}

func NewService(src Source, rdb *redis.Client, ttl time.Duration, obs *observability.Observability, log logger.Logger) *Service {
	return &Service{
		src:    src,
		redis:  rdb,
		ttl:    ttl,
		obs:    obs,
		logger: log.WithFields(map[string]interface{}{"component": "progress"}),
	}
}

// cacheKey is versioned by the row's updated_at. Every committed write bumps
// it, so a result computed from pre-write reads lands under a key no later
// lookup asks for.
func cacheKey(app *models.Application) string {
	return fmt.Sprintf("%s%s:%d", cacheKeyPrefix, app.ID, app.UpdatedAt.UnixNano())
}

// ForApplication returns progress evaluated against the application's own
// current status.
func (s *Service) ForApplication(ctx context.Context, applicationID string) (*models.ApplicationProgress, error) {
	ctx, span := observability.StartSpan(ctx, "progress.ForApplication",
		attribute.String("application.id", applicationID))
	defer span.End()

	app, err := s.src.GetApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("Application", applicationID)
		}
		return nil, apperrors.NewQueryExecutionFailedError("get application", err)
	}

	key := cacheKey(app)
	if cached, ok := s.fromCache(ctx, key, applicationID); ok {
		return cached, nil
	}

	start := time.Now()
	result, err := Load(ctx, s.src, applicationID, app.Status)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("load progress inputs", err)
	}
	s.obs.RecordProgress(ctx, time.Since(start), "computed")

	s.toCache(ctx, key, &result)
	return &result, nil
}

// Invalidate drops every cached version for the application. Errors are
// logged, not returned.
func (s *Service) Invalidate(ctx context.Context, applicationID string) {
	if s.redis == nil {
		return
	}
	var keys []string
	iter := s.redis.Scan(ctx, 0, cacheKeyPrefix+applicationID+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	err := iter.Err()
	if err == nil && len(keys) > 0 {
		err = s.redis.Del(ctx, keys...).Err()
	}
	if err != nil {
		s.logger.Warn("failed to invalidate progress cache", map[string]interface{}{
			"applicationId": applicationID,
			"error":         err.Error(),
		})
	}
}

func (s *Service) fromCache(ctx context.Context, key, applicationID string) (*models.ApplicationProgress, bool) {
	if s.redis == nil {
		return nil, false
	}
	val, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.ProgressCacheLookups.WithLabelValues("miss").Inc()
		} else {
			metrics.ProgressCacheLookups.WithLabelValues("error").Inc()
			s.logger.Warn("progress cache read failed", map[string]interface{}{
				"applicationId": applicationID,
				"error":         err.Error(),
			})
		}
		return nil, false
	}

	var result models.ApplicationProgress
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		metrics.ProgressCacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	metrics.ProgressCacheLookups.WithLabelValues("hit").Inc()
	return &result, true
}

func (s *Service) toCache(ctx context.Context, key string, result *models.ApplicationProgress) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("progress cache write failed", map[string]interface{}{
			"applicationId": result.ApplicationID,
			"error":         err.Error(),
		})
	}
}
