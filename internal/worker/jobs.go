package worker

import (
	"context"

	"github.com/vytor/realorai/internal/logger"
	"github.com/vytor/realorai/internal/models"
)

// BatchRunner is the part of the pipeline a batch job needs.
type BatchRunner interface {
	RunBatch(ctx context.Context, batchID string, items []models.GenerationItem) *models.BatchReport
}

// GenerateBatchJob runs a creative pipeline batch in the background. Progress
// reaches admins through the pipeline's events, not through the job result.
type GenerateBatchJob struct {
	Pipeline BatchRunner
	BatchID  string
	Items    []models.GenerationItem
}

func (j *GenerateBatchJob) Name() string { return "generate_batch" }

func (j *GenerateBatchJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithFields(map[string]any{
		"batch": j.BatchID,
		"items": len(j.Items),
	})
	log.Info("starting background generation batch")

	report := j.Pipeline.RunBatch(logger.NewContext(ctx, log), j.BatchID, j.Items)
	if ctx.Err() != nil {
		log.Warn("batch interrupted: %v", ctx.Err())
		return ctx.Err()
	}
	log.Info("background batch done: scheduled=%d, skipped=%d, failed=%d", report.Scheduled, report.Skipped, report.Failed)
	return nil
}
