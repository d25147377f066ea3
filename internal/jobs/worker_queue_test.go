package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/realorai/internal/errors"
	"github.com/vytor/realorai/internal/models"
	"github.com/vytor/realorai/internal/worker"
)

type batchCall struct {
	batchID string
	items   []models.GenerationItem
}

type recordingRunner struct {
	calls chan batchCall
}

func (r *recordingRunner) RunBatch(_ context.Context, batchID string, items []models.GenerationItem) *models.BatchReport {
	r.calls <- batchCall{batchID: batchID, items: items}
	return &models.BatchReport{BatchID: batchID}
}

var items = []models.GenerationItem{{HumanImageURL: "https://img.example/h.png"}}

func TestEnqueueBatch_RunsOnPool(t *testing.T) {
	pool := worker.NewPool("generation", 1, 4)
	pool.Start(context.Background())
	defer pool.Stop()

	runner := &recordingRunner{calls: make(chan batchCall, 1)}
	q := NewWorkerQueue(pool, runner)

	id, err := q.EnqueueBatch("spring", items)
	require.NoError(t, err)
	assert.Equal(t, "spring", id)

	select {
	case call := <-runner.calls:
		assert.Equal(t, "spring", call.batchID)
		assert.Equal(t, items, call.items)
	case <-time.After(2 * time.Second):
		t.Fatal("batch never ran")
	}
}

func TestEnqueueBatch_GeneratesID(t *testing.T) {
	q := NewWorkerQueue(worker.NewPool("generation", 1, 4), &recordingRunner{})

	id, err := q.EnqueueBatch("", items)
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.Equal(t, 1, q.Pending())
}

func TestEnqueueBatch_RejectsEmpty(t *testing.T) {
	q := NewWorkerQueue(worker.NewPool("generation", 1, 4), &recordingRunner{})

	_, err := q.EnqueueBatch("", nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
	assert.Zero(t, q.Pending())
}

func TestEnqueueBatch_BusyQueue(t *testing.T) {
	// Not started, so the single slot stays taken.
	q := NewWorkerQueue(worker.NewPool("generation", 1, 1), &recordingRunner{})

	_, err := q.EnqueueBatch("first", items)
	require.NoError(t, err)

	_, err = q.EnqueueBatch("second", items)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeQuotaExhausted, appErr.Code)
	assert.Equal(t, 429, appErr.Status)
	assert.ErrorIs(t, err, worker.ErrQueueFull)
}
