package jobs

import (
	"github.com/google/uuid"
	"github.com/vytor/realorai/internal/errors"
	"github.com/vytor/realorai/internal/models"
	"github.com/vytor/realorai/internal/worker"
)

// WorkerQueue implements JobQueue using worker pools
type WorkerQueue struct {
	generationPool *worker.Pool
	pipeline       worker.BatchRunner
}

// NewWorkerQueue creates a new WorkerQueue implementation
func NewWorkerQueue(generationPool *worker.Pool, pipeline worker.BatchRunner) JobQueue {
	return &WorkerQueue{
		generationPool: generationPool,
		pipeline:       pipeline,
	}
}

func (q *WorkerQueue) EnqueueBatch(batchID string, items []models.GenerationItem) (string, error) {
	if len(items) == 0 {
		return "", errors.NewValidationError("items", "cannot be empty")
	}
	if batchID == "" {
		batchID = uuid.NewString()
	}

	err := q.generationPool.Submit(&worker.GenerateBatchJob{
		Pipeline: q.pipeline,
		BatchID:  batchID,
		Items:    items,
	})
	if err != nil {
		return "", &errors.AppError{
			Code:    errors.ErrCodeQuotaExhausted,
			Message: "generation queue is busy, try again later",
			Status:  429,
			Err:     err,
		}
	}
	return batchID, nil
}

func (q *WorkerQueue) Pending() int {
	return q.generationPool.QueueSize()
}
