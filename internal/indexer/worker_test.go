package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chungjung-d/k2c-hackathon/internal/database"
	"github.com/chungjung-d/k2c-hackathon/internal/graph"
)

func newTestJobDAO(t *testing.T) database.JobDAO {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())

	return database.NewJobDAO(db)
}

func newTestWorker(jobs database.JobDAO, client graph.Client) *Worker {
	negotiator := NewPlanNegotiator(nil, client, "m", nil)
	applier := NewApplier(client, nil)
	return NewWorker(jobs, negotiator, applier, 0, 0, nil)
}

func TestWorkerProcessesJob(t *testing.T) {
	jobs := newTestJobDAO(t)
	client := graph.NewMockClient()
	worker := newTestWorker(jobs, client)
	ctx := context.Background()

	id, err := jobs.Enqueue(ctx,
		json.RawMessage(`{"event":{"id":"e1","user_id":"u1"},"features":{"tags":["work"]}}`), nil)
	require.NoError(t, err)

	processed, err := worker.runBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	job, err := jobs.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, database.JobStatusDone, job.Status)

	// Reasoning is disabled, so the deterministic plan was applied.
	require.Len(t, client.Writes, 1)
	assert.Equal(t, "e1", client.Writes[0].Params["event_id"])
	assert.Equal(t, "u1", client.Writes[0].Params["user_id"])
	assert.Equal(t, []string{"work", "origin:" + id.String()}, client.Writes[0].Params["tags"])
}

func TestWorkerInvalidPayloadMarksError(t *testing.T) {
	jobs := newTestJobDAO(t)
	client := graph.NewMockClient()
	worker := newTestWorker(jobs, client)
	ctx := context.Background()

	id, err := jobs.Enqueue(ctx, json.RawMessage(`{"event":{"user_id":"u1"}}`), nil)
	require.NoError(t, err)

	_, err = worker.runBatch(ctx)
	require.NoError(t, err)

	job, err := jobs.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, database.JobStatusError, job.Status)
	assert.Contains(t, job.LastError, "event.id")

	// The graph was never touched.
	assert.Zero(t, client.WriteCount())
}

func TestWorkerApplyFailureMarksError(t *testing.T) {
	jobs := newTestJobDAO(t)
	client := graph.NewMockClient()
	client.WriteErr = errors.New("connection reset")
	worker := newTestWorker(jobs, client)
	ctx := context.Background()

	id, err := jobs.Enqueue(ctx, json.RawMessage(`{"event":{"id":"e1"}}`), nil)
	require.NoError(t, err)

	_, err = worker.runBatch(ctx)
	require.NoError(t, err)

	job, err := jobs.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, database.JobStatusError, job.Status)
	assert.Contains(t, job.LastError, "connection reset")
}

func TestWorkerDrainsBatchInOrder(t *testing.T) {
	jobs := newTestJobDAO(t)
	client := graph.NewMockClient()
	worker := newTestWorker(jobs, client)
	ctx := context.Background()

	first, err := jobs.Enqueue(ctx, json.RawMessage(`{"event":{"id":"e1"}}`), nil)
	require.NoError(t, err)
	second, err := jobs.Enqueue(ctx, json.RawMessage(`{"event":{"id":"e2"}}`), nil)
	require.NoError(t, err)

	processed, err := worker.runBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	require.Len(t, client.Writes, 2)
	assert.Equal(t, "origin:"+first.String(), client.Writes[0].Params["tags"].([]string)[0])
	assert.Equal(t, "origin:"+second.String(), client.Writes[1].Params["tags"].([]string)[0])
}

func TestWorkerEmptyQueue(t *testing.T) {
	jobs := newTestJobDAO(t)
	worker := newTestWorker(jobs, graph.NewMockClient())

	processed, err := worker.runBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)
}
