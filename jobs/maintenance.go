package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fournitex/fournitex/internal/catalog/articles"
	"github.com/fournitex/fournitex/internal/shared"
)

// IdempotencyCleanupJob removes processed request keys past their retention.
type IdempotencyCleanupJob struct {
	Store  *shared.IdempotencyStore
	Logger *slog.Logger
}

func NewIdempotencyCleanupJob(store *shared.IdempotencyStore, logger *slog.Logger) *IdempotencyCleanupJob {
	return &IdempotencyCleanupJob{Store: store, Logger: logger}
}

// Handle executes the cleanup.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.RetentionHours <= 0 {
		payload.RetentionHours = 168
	}

	retention := time.Duration(payload.RetentionHours) * time.Hour
	if err := j.Store.Cleanup(ctx, retention); err != nil {
		j.Logger.Error("idempotency cleanup failed", slog.Any("error", err))
		return err
	}
	j.Logger.Info("idempotency cleanup done", slog.Int("retention_hours", payload.RetentionHours))
	return nil
}

// CatalogWarmupJob refreshes the default catalog listing so the first request
// after an invalidation does not pay the load.
type CatalogWarmupJob struct {
	Service *articles.Service
	Logger  *slog.Logger
}

func NewCatalogWarmupJob(service *articles.Service, logger *slog.Logger) *CatalogWarmupJob {
	return &CatalogWarmupJob{Service: service, Logger: logger}
}

// Handle executes the warmup.
func (j *CatalogWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("catalog warmup: handler not configured")
	}
	items, total, err := j.Service.List(ctx, articles.ListArticlesRequest{Limit: 50})
	if err != nil {
		j.Logger.Error("catalog warmup failed", slog.Any("error", err))
		return err
	}
	j.Logger.Info("catalog warmup done", slog.Int("items", len(items)), slog.Int("total", total))
	return nil
}
