package indexer

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/chungjung-d/k2c-hackathon/internal/database"
)

const interBatchDelay = time.Second

// Worker polls the job queue and drives each claimed job through
// planning and application. Claiming is the concurrency boundary: any
// number of workers can poll the same queue and each job is processed
// at most once.
type Worker struct {
	jobs       database.JobDAO
	negotiator *PlanNegotiator
	applier    *Applier
	interval   time.Duration
	batchSize  int
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewWorker wires a polling worker. interval and batchSize fall back to
// sane values when non-positive.
func NewWorker(jobs database.JobDAO, negotiator *PlanNegotiator, applier *Applier, interval time.Duration, batchSize int, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = 20 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		jobs:       jobs,
		negotiator: negotiator,
		applier:    applier,
		interval:   interval,
		batchSize:  batchSize,
		logger:     logger,
		tracer:     otel.Tracer("k2c/indexer"),
	}
}

// Run polls until ctx is cancelled. An empty poll sleeps the full
// interval; after a non-empty batch the worker pauses briefly before
// polling again.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("indexer worker started", "interval", w.interval, "batch_size", w.batchSize)

	for {
		processed, err := w.runBatch(ctx)
		if err != nil {
			w.logger.Error("job poll failed", "error", err)
		}

		delay := w.interval
		if processed > 0 {
			delay = interBatchDelay
		}

		select {
		case <-ctx.Done():
			w.logger.Info("indexer worker stopped")
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// runBatch fetches one batch of pending jobs and processes every job it
// manages to claim. It returns the number of jobs processed.
func (w *Worker) runBatch(ctx context.Context) (int, error) {
	jobs, err := w.jobs.FetchPending(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	processed := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		claimed, err := w.jobs.Claim(ctx, job.ID)
		if err != nil {
			w.logger.Error("claim failed", "job_id", job.ID, "error", err)
			continue
		}
		if !claimed {
			w.logger.Debug("job claimed elsewhere", "job_id", job.ID)
			continue
		}

		w.processJob(ctx, job)
		processed++
	}
	return processed, nil
}

// processJob runs one claimed job to a terminal state. Every failure
// mode ends in MarkError; the worker itself never stops because a job
// failed.
func (w *Worker) processJob(ctx context.Context, job *database.Job) {
	ctx, span := w.tracer.Start(ctx, "process_job",
		trace.WithAttributes(attribute.String("job.id", job.ID.String())))
	defer span.End()

	w.logger.Info("processing job", "job_id", job.ID)

	payload, err := ParsePayload(job)
	if err != nil {
		w.fail(ctx, job, err)
		return
	}

	plan := w.negotiator.Negotiate(ctx, job)
	if plan == nil {
		plan, err = BuildDefaultPlan(payload, job.ID)
		if err != nil {
			w.fail(ctx, job, err)
			return
		}
		w.logger.Info("using default plan", "job_id", job.ID)
	}

	summary, err := w.applier.Apply(ctx, plan)
	if err != nil {
		w.fail(ctx, job, err)
		return
	}

	if err := w.jobs.MarkDone(ctx, job.ID); err != nil {
		w.logger.Error("mark done failed", "job_id", job.ID, "error", err)
		return
	}

	w.logger.Info("job done", "job_id", job.ID,
		"nodes_created", summary.NodesCreated,
		"relationships_created", summary.RelationshipsCreated,
		"properties_set", summary.PropertiesSet)
}

func (w *Worker) fail(ctx context.Context, job *database.Job, cause error) {
	w.logger.Error("job failed", "job_id", job.ID, "error", cause)
	if err := w.jobs.MarkError(ctx, job.ID, cause.Error()); err != nil {
		w.logger.Error("mark error failed", "job_id", job.ID, "error", err)
	}
}
