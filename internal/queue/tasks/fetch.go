package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/userhub/engine/internal/services"
	appErr "github.com/userhub/engine/pkg/errors"
	"github.com/userhub/engine/pkg/logger"
	"go.uber.org/zap"
)

const TypeFetchUsers = "users:fetch"

// FetchPayload is the task payload for background ingest.
type FetchPayload struct {
	Count int `json:"count"`
}

func NewFetchTask(count int) (*asynq.Task, error) {
	b, err := json.Marshal(FetchPayload{Count: count})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeFetchUsers, b, asynq.MaxRetry(3), asynq.Timeout(10*time.Minute)), nil
}

// Ingester runs one fetch-and-store batch.
type Ingester interface {
	FetchAndSave(ctx context.Context, count int) (*services.BatchReport, error)
}

// FetchTaskHandler executes users:fetch tasks.
type FetchTaskHandler struct {
	ingester Ingester
}

func NewFetchTaskHandler(ing Ingester) *FetchTaskHandler {
	return &FetchTaskHandler{ingester: ing}
}

func (h *FetchTaskHandler) HandleFetch(ctx context.Context, t *asynq.Task) error {
	var p FetchPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid fetch task payload", zap.Error(err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	logger.L().Info("handling fetch task", zap.Int("count", p.Count))
	report, err := h.ingester.FetchAndSave(ctx, p.Count)
	if err != nil {
		if appErr.IsCode(err, appErr.CodeInvalid) {
			logger.L().Error("fetch task rejected", zap.Int("count", p.Count), zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		logger.L().Error("fetch task failed", zap.Int("count", p.Count), zap.Error(err))
		return err
	}

	logger.L().Info("fetch task completed",
		zap.Int("count", p.Count),
		zap.Int("created", len(report.Created)),
		zap.Int("skipped", report.Skipped()))
	return nil
}

// TaskClient is the subset of *asynq.Client used to enqueue work.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer schedules users:fetch tasks.
type Enqueuer struct {
	client TaskClient
}

func NewEnqueuer(c TaskClient) *Enqueuer {
	return &Enqueuer{client: c}
}

func (e *Enqueuer) EnqueueFetch(ctx context.Context, count int) (string, error) {
	task, err := NewFetchTask(count)
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeInternal, "build fetch task failed")
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", appErr.Wrap(err, appErr.CodeUnavailable, "task queue unavailable")
	}
	logger.L().Info("fetch task enqueued", zap.String("task_id", info.ID), zap.Int("count", count))
	return info.ID, nil
}
