package jobs

import "github.com/vytor/realorai/internal/models"

// JobQueue provides an abstraction for enqueueing background jobs
type JobQueue interface {
	// EnqueueBatch schedules a generation batch and returns its id.
	EnqueueBatch(batchID string, items []models.GenerationItem) (string, error)
	// Pending reports how many jobs are waiting for a worker.
	Pending() int
}
