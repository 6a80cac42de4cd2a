package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/van-fee-api/internal/models"
	"github.com/noah-isme/van-fee-api/pkg/jobs"
)

const accrualJobType = "billing.accrual"

// AccrualWriter persists accrual instructions produced by a reconciliation.
type AccrualWriter interface {
	Write(ctx context.Context, updates []models.AccrualUpdate) error
}

type accrualStore interface {
	ApplyAccrual(ctx context.Context, update models.AccrualUpdate) (bool, error)
}

// DirectAccrualWriter applies every instruction synchronously. It keeps going after a
// failed instruction and reports all failures together.
type DirectAccrualWriter struct {
	store   accrualStore
	metrics *MetricsService
	logger  *zap.Logger
}

// NewDirectAccrualWriter constructs a synchronous writer.
func NewDirectAccrualWriter(store accrualStore, metrics *MetricsService, logger *zap.Logger) *DirectAccrualWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectAccrualWriter{store: store, metrics: metrics, logger: logger}
}

// Write applies the updates in order.
func (w *DirectAccrualWriter) Write(ctx context.Context, updates []models.AccrualUpdate) error {
	var errs []error
	for _, update := range updates {
		if err := applyAccrual(ctx, w.store, update, w.metrics, w.logger); err != nil {
			w.metrics.RecordWriteFailure("accrual")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// QueuedAccrualWriter hands instructions to a background queue that retries failures.
type QueuedAccrualWriter struct {
	queue *jobs.Queue
}

// QueuedAccrualConfig tunes the background writer.
type QueuedAccrualConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// NewQueuedAccrualWriter builds the writer and its queue. Callers own Start and Stop of the queue.
func NewQueuedAccrualWriter(store accrualStore, metrics *MetricsService, logger *zap.Logger, cfg QueuedAccrualConfig) *QueuedAccrualWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		update, ok := job.Payload.(models.AccrualUpdate)
		if !ok {
			return fmt.Errorf("unexpected payload %T", job.Payload)
		}
		return applyAccrual(ctx, store, update, metrics, logger)
	}
	queue := jobs.NewQueue("accrual-writer", handler, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnDrop: func(job jobs.Job, err error) {
			metrics.RecordWriteFailure("accrual")
		},
	})
	return &QueuedAccrualWriter{queue: queue}
}

// Queue exposes the underlying queue for lifecycle management.
func (w *QueuedAccrualWriter) Queue() *jobs.Queue {
	return w.queue
}

// Write enqueues one job per instruction and returns once all are accepted.
func (w *QueuedAccrualWriter) Write(ctx context.Context, updates []models.AccrualUpdate) error {
	for _, update := range updates {
		if err := ctx.Err(); err != nil {
			return err
		}
		job := jobs.Job{
			ID:      update.ID + "@" + update.LastBilledDate.String(),
			Type:    accrualJobType,
			Payload: update,
		}
		if err := w.queue.Enqueue(job); err != nil {
			return fmt.Errorf("enqueue accrual for student %s: %w", update.ID, err)
		}
	}
	return nil
}

func applyAccrual(ctx context.Context, store accrualStore, update models.AccrualUpdate, metrics *MetricsService, logger *zap.Logger) error {
	applied, err := store.ApplyAccrual(ctx, update)
	if err != nil {
		return fmt.Errorf("student %s: %w", update.ID, err)
	}
	if !applied {
		metrics.RecordStaleAccrual()
		logger.Debug("accrual skipped, checkpoint already moved",
			zap.String("student_id", update.ID),
			zap.String("expected_checkpoint", update.PreviousBilledDate.String()))
	}
	return nil
}
