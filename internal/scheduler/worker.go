package scheduler

import (
	"context"
	"errors"
	"fmt"

	"converzia_backend/internal/qualification/domain"
	"converzia_backend/internal/qualification/ports"
	"converzia_backend/platform/apperr"
	"converzia_backend/platform/config"
	"converzia_backend/platform/logger"
	"converzia_backend/platform/metrics"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Qualification is the part of the orchestrator the worker drives.
type Qualification interface {
	HandleContactCheck(ctx context.Context, check ports.ContactCheck) (domain.LeadOffer, error)
	CompleteDelivery(ctx context.Context, id uuid.UUID) (domain.LeadOffer, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	qual   Qualification
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, qual Qualification, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	w := newWorker(qual, log)
	w.server = asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})
	return w, nil
}

func newWorker(qual Qualification, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{mux: mux, qual: qual, log: log}
	mux.HandleFunc(TaskContactCheck, w.handleContactCheck)
	mux.HandleFunc(TaskDeliveryRetry, w.handleDeliveryRetry)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleContactCheck(ctx context.Context, task *asynq.Task) error {
	check, err := ParseContactCheckPayload(task)
	if err != nil {
		return w.done(task, fmt.Errorf("%w: %v", asynq.SkipRetry, err))
	}

	lo, err := w.qual.HandleContactCheck(ctx, check)
	if err == nil {
		w.log.Debug("contact check handled", "leadOfferId", check.LeadOfferID.String(), "status", string(lo.Status))
	}
	return w.done(task, w.classify(err))
}

func (w *Worker) handleDeliveryRetry(ctx context.Context, task *asynq.Task) error {
	id, err := ParseDeliveryRetryPayload(task)
	if err != nil {
		return w.done(task, fmt.Errorf("%w: %v", asynq.SkipRetry, err))
	}

	lo, err := w.qual.CompleteDelivery(ctx, id)
	if err == nil {
		w.log.Info("delivery retry handled", "leadOfferId", id.String(), "status", string(lo.Status))
	}
	return w.done(task, w.classify(err))
}

// classify decides whether asynq retries a failed task. Missing lead offers
// and conflicting state will not heal on retry.
func (w *Worker) classify(err error) error {
	if err == nil {
		return nil
	}
	switch apperr.GetKind(err) {
	case apperr.KindNotFound, apperr.KindConflict, apperr.KindValidation:
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return err
}

func (w *Worker) done(task *asynq.Task, err error) error {
	outcome := "ok"
	switch {
	case errors.Is(err, asynq.SkipRetry):
		outcome = "skipped"
		w.log.Warn("task dropped", "task", task.Type(), "error", err)
	case err != nil:
		outcome = "error"
		w.log.Error("task failed", "task", task.Type(), "error", err)
	}
	metrics.TasksProcessed.WithLabelValues(task.Type(), outcome).Inc()
	return err
}
