package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chungjung-d/k2c-hackathon/internal/types"
)

// JobStatus represents the lifecycle state of an index job.
type JobStatus string

const (
	// JobStatusPending indicates the job is enqueued and unowned
	JobStatusPending JobStatus = "pending"
	// JobStatusProcessing indicates exactly one worker owns the job
	JobStatusProcessing JobStatus = "processing"
	// JobStatusDone indicates the job completed successfully (terminal)
	JobStatusDone JobStatus = "done"
	// JobStatusError indicates the job failed (terminal, no automatic retry)
	JobStatusError JobStatus = "error"
)

// maxErrorLen bounds stored error text so failed jobs cannot grow the
// table without bound.
const maxErrorLen = 500

// Job represents a persisted graph indexing job.
type Job struct {
	ID          types.ID        `json:"id"`
	RawRequest  json.RawMessage `json:"raw_request,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      JobStatus       `json:"status"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
}

// JobDAO provides database operations for index jobs. Claim is the single
// mutual-exclusion point for concurrent pollers; everything else assumes
// the caller owns the job.
type JobDAO interface {
	// Enqueue inserts a new pending job and returns its id. The payload
	// is assumed to be validated by the ingress collaborator.
	Enqueue(ctx context.Context, rawRequest, payload json.RawMessage) (types.ID, error)

	// FetchPending returns pending jobs ordered by enqueue time ascending.
	FetchPending(ctx context.Context, limit int) ([]*Job, error)

	// Claim atomically transitions a job from pending to processing.
	// Returns false when the job is missing or no longer pending; a lost
	// race and a deleted job are deliberately indistinguishable.
	Claim(ctx context.Context, id types.ID) (bool, error)

	// MarkDone transitions a processing job to done.
	MarkDone(ctx context.Context, id types.ID) error

	// MarkError transitions a processing job to error, storing at most
	// 500 characters of the error text.
	MarkError(ctx context.Context, id types.ID, message string) error

	// GetByID retrieves a job by id.
	GetByID(ctx context.Context, id types.ID) (*Job, error)
}

// jobDAO implements JobDAO.
type jobDAO struct {
	db *DB
}

// NewJobDAO creates a new job DAO.
func NewJobDAO(db *DB) JobDAO {
	return &jobDAO{db: db}
}

// Enqueue inserts a new pending job and returns its id.
func (d *jobDAO) Enqueue(ctx context.Context, rawRequest, payload json.RawMessage) (types.ID, error) {
	id := types.NewID()

	_, err := d.db.conn.ExecContext(ctx, `
		INSERT INTO index_jobs (id, raw_request, payload, status, enqueued_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		id,
		string(rawRequest),
		string(payload),
		JobStatusPending,
		time.Now().UTC(),
	)
	if err != nil {
		return "", types.WrapError(types.DB_QUERY_FAILED, "failed to enqueue job", err)
	}

	return id, nil
}

// FetchPending returns pending jobs ordered by enqueue time ascending.
func (d *jobDAO) FetchPending(ctx context.Context, limit int) ([]*Job, error) {
	rows, err := d.db.conn.QueryContext(ctx, `
		SELECT id, raw_request, payload, status, enqueued_at, processed_at, last_error
		FROM index_jobs
		WHERE status = ?
		ORDER BY enqueued_at ASC
		LIMIT ?
	`, JobStatusPending, limit)
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to fetch pending jobs", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "error iterating jobs", err)
	}

	return jobs, nil
}

// Claim atomically transitions a job from pending to processing. The
// conditional UPDATE is what makes concurrent pollers safe: of N
// simultaneous attempts exactly one observes status='pending'.
func (d *jobDAO) Claim(ctx context.Context, id types.ID) (bool, error) {
	result, err := d.db.conn.ExecContext(ctx, `
		UPDATE index_jobs
		SET status = ?, processed_at = NULL
		WHERE id = ? AND status = ?
	`, JobStatusProcessing, id, JobStatusPending)
	if err != nil {
		return false, types.WrapError(types.DB_QUERY_FAILED, "failed to claim job", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, types.WrapError(types.DB_QUERY_FAILED, "failed to get rows affected", err)
	}

	return affected == 1, nil
}

// MarkDone transitions a processing job to done.
func (d *jobDAO) MarkDone(ctx context.Context, id types.ID) error {
	return d.finish(ctx, id, JobStatusDone, nil)
}

// MarkError transitions a processing job to error with truncated text.
func (d *jobDAO) MarkError(ctx context.Context, id types.ID, message string) error {
	truncated := truncateError(message)
	return d.finish(ctx, id, JobStatusError, &truncated)
}

// finish applies a terminal transition guarded on the processing status,
// so a terminal job is never overwritten and pending is never skipped.
func (d *jobDAO) finish(ctx context.Context, id types.ID, status JobStatus, lastError *string) error {
	result, err := d.db.conn.ExecContext(ctx, `
		UPDATE index_jobs
		SET status = ?, processed_at = ?, last_error = ?
		WHERE id = ? AND status = ?
	`, status, time.Now().UTC(), lastError, id, JobStatusProcessing)
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to finish job", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to get rows affected", err)
	}

	if affected == 0 {
		return types.NewError(types.JOB_NOT_PROCESSING,
			fmt.Sprintf("job %s is not in processing state", id))
	}

	return nil
}

// GetByID retrieves a job by id.
func (d *jobDAO) GetByID(ctx context.Context, id types.ID) (*Job, error) {
	row := d.db.conn.QueryRowContext(ctx, `
		SELECT id, raw_request, payload, status, enqueued_at, processed_at, last_error
		FROM index_jobs
		WHERE id = ?
	`, id)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, types.NewError(types.JOB_NOT_FOUND, fmt.Sprintf("job not found: %s", id))
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// scanner abstracts sql.Row and sql.Rows for scanJob.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (*Job, error) {
	var job Job
	var rawRequest, payload string
	var processedAt sql.NullTime
	var lastError sql.NullString

	err := s.Scan(
		&job.ID,
		&rawRequest,
		&payload,
		&job.Status,
		&job.EnqueuedAt,
		&processedAt,
		&lastError,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to scan job", err)
	}

	if rawRequest != "" {
		job.RawRequest = json.RawMessage(rawRequest)
	}
	if payload != "" {
		job.Payload = json.RawMessage(payload)
	}
	if processedAt.Valid {
		job.ProcessedAt = &processedAt.Time
	}
	if lastError.Valid {
		job.LastError = lastError.String
	}

	return &job, nil
}

// truncateError bounds error text at maxErrorLen characters.
func truncateError(message string) string {
	runes := []rune(message)
	if len(runes) <= maxErrorLen {
		return message
	}
	return string(runes[:maxErrorLen])
}
