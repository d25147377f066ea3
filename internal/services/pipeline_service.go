package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/realorai/internal/civilday"
	"github.com/vytor/realorai/internal/creative"
	"github.com/vytor/realorai/internal/errors"
	"github.com/vytor/realorai/internal/events"
	"github.com/vytor/realorai/internal/logger"
	"github.com/vytor/realorai/internal/models"
)

// PipelineConfig holds per-step deadlines and the default output size.
type PipelineConfig struct {
	CaptionTimeout  time.Duration
	RemixTimeout    time.Duration
	GenerateTimeout time.Duration
	Dimensions      models.Dimensions
}

// DefaultPipelineConfig returns the deadlines used when none are configured.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		CaptionTimeout:  30 * time.Second,
		RemixTimeout:    30 * time.Second,
		GenerateTimeout: 2 * time.Minute,
		Dimensions:      models.Dimensions{Width: 1024, Height: 1024},
	}
}

// PipelineService turns human images into scheduled pairs via the creative gateway.
type PipelineService interface {
	// GeneratePair returns nil, nil when the gateway skipped the item for quota reasons.
	GeneratePair(ctx context.Context, item models.GenerationItem) (*models.ImagePair, error)
	// RunBatch processes every item even when some fail.
	RunBatch(ctx context.Context, batchID string, items []models.GenerationItem) *models.BatchReport
	ProcessPending(ctx context.Context, dayKey string) (*models.BatchReport, error)
}

type pipelineService struct {
	client    creative.ClientInterface
	scheduler SchedulerService
	puzzles   PuzzleService
	publisher events.Publisher
	cfg       PipelineConfig
	now       func() time.Time
}

// NewPipelineService creates a new PipelineService
func NewPipelineService(client creative.ClientInterface, scheduler SchedulerService, puzzles PuzzleService, publisher events.Publisher, cfg PipelineConfig) PipelineService {
	def := DefaultPipelineConfig()
	if cfg.CaptionTimeout <= 0 {
		cfg.CaptionTimeout = def.CaptionTimeout
	}
	if cfg.RemixTimeout <= 0 {
		cfg.RemixTimeout = def.RemixTimeout
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = def.GenerateTimeout
	}
	if cfg.Dimensions.Width <= 0 || cfg.Dimensions.Height <= 0 {
		cfg.Dimensions = def.Dimensions
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &pipelineService{
		client:    client,
		scheduler: scheduler,
		puzzles:   puzzles,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *pipelineService) GeneratePair(ctx context.Context, item models.GenerationItem) (*models.ImagePair, error) {
	log := logger.FromContext(ctx).WithField("image", item.HumanImageURL)
	log.Debug("generating AI counterpart")

	if item.HumanImageURL == "" {
		return nil, errors.NewValidationError("humanImageUrl", "cannot be empty")
	}

	var caption *models.Caption
	err := withTimeout(ctx, s.cfg.CaptionTimeout, func(ctx context.Context) (err error) {
		caption, err = s.client.Caption(ctx, item.HumanImageURL)
		return err
	})
	if err != nil {
		log.Warn("caption failed: %v", err)
		return nil, errors.NewGenerationFailedError("caption", err)
	}

	var remix *creative.Remix
	err = withTimeout(ctx, s.cfg.RemixTimeout, func(ctx context.Context) (err error) {
		remix, err = s.client.Remix(ctx, *caption, item.Notes)
		return err
	})
	if err != nil {
		log.Warn("remix failed: %v", err)
		return nil, errors.NewGenerationFailedError("remix", err)
	}

	dims := s.cfg.Dimensions
	if item.Dimensions != nil && item.Dimensions.Width > 0 && item.Dimensions.Height > 0 {
		dims = *item.Dimensions
	}
	var aiURL string
	err = withTimeout(ctx, s.cfg.GenerateTimeout, func(ctx context.Context) (err error) {
		aiURL, err = s.client.GenerateImage(ctx, remix.Prompt, dims)
		return err
	})
	if err != nil {
		log.Warn("image generation failed: %v", err)
		return nil, errors.NewGenerationFailedError("generate", err)
	}
	if aiURL == "" {
		log.Info("generation skipped: quota exhausted")
		return nil, nil
	}

	generatedAt := s.now().UTC()
	return &models.ImagePair{
		HumanImageURL: item.HumanImageURL,
		AIImageURL:    aiURL,
		Metadata: models.PairMetadata{
			Description:      caption.Description,
			StyleAnalysis:    caption.StyleAnalysis,
			GenerationPrompt: remix.Prompt,
			Model:            remix.Model,
			GeneratedAt:      &generatedAt,
		},
	}, nil
}

func (s *pipelineService) RunBatch(ctx context.Context, batchID string, items []models.GenerationItem) *models.BatchReport {
	if batchID == "" {
		batchID = uuid.NewString()
	}
	log := logger.FromContext(ctx).WithField("batch", batchID)
	ctx = logger.NewContext(ctx, log)
	log.Info("running generation batch of %d items", len(items))

	report := &models.BatchReport{BatchID: batchID, Results: []models.GenerationResult{}}
	for _, item := range items {
		result := s.runItem(ctx, item)
		report.Add(result)
		s.emitResult(ctx, batchID, result)
	}

	log.Info("batch finished: scheduled=%d, skipped=%d, failed=%d", report.Scheduled, report.Skipped, report.Failed)
	events.Emit(ctx, s.publisher, events.Event{
		Type:    events.PipelineBatchCompleted,
		BatchID: batchID,
		Message: batchSummary(report),
	})
	return report
}

func (s *pipelineService) ProcessPending(ctx context.Context, dayKey string) (*models.BatchReport, error) {
	log := logger.FromContext(ctx)
	log.Debug("processing staged images for %s", dayKey)

	pending, err := s.puzzles.ListPendingImages(ctx, dayKey)
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	report := &models.BatchReport{BatchID: batchID, Results: []models.GenerationResult{}}
	for _, img := range pending {
		result := s.runItem(ctx, models.GenerationItem{HumanImageURL: img.HumanImageURL, Date: dayKey})
		if result.Status == models.ItemScheduled {
			if err := s.puzzles.RemovePendingImage(ctx, img.ID); err != nil {
				log.Warn("pair scheduled but staged image %s not removed: %v", img.ID, err)
			}
		}
		report.Add(result)
		s.emitResult(ctx, batchID, result)
	}

	log.Info("staged images for %s processed: scheduled=%d, skipped=%d, failed=%d", dayKey, report.Scheduled, report.Skipped, report.Failed)
	return report, nil
}

func (s *pipelineService) runItem(ctx context.Context, item models.GenerationItem) models.GenerationResult {
	result := models.GenerationResult{HumanImageURL: item.HumanImageURL}
	fail := func(err error) models.GenerationResult {
		result.Status = models.ItemFailed
		result.Error = err.Error()
		if appErr, ok := errors.As(err); ok {
			result.ErrorCode = appErr.Code
			result.Error = appErr.Message
		}
		return result
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if item.Date != "" {
		if _, err := civilday.ParseKey(item.Date); err != nil {
			return fail(errors.NewInvalidDateError(item.Date, err))
		}
	}

	pair, err := s.GeneratePair(ctx, item)
	if err != nil {
		return fail(err)
	}
	if pair == nil {
		quota := errors.NewQuotaExhaustedError()
		result.Status = models.ItemSkipped
		result.Error = quota.Message
		result.ErrorCode = quota.Code
		return result
	}

	var day *models.PuzzleDay
	dayKey := item.Date
	if dayKey != "" {
		day, err = s.scheduler.ScheduleExplicit(ctx, dayKey, *pair)
	} else {
		dayKey, day, err = s.scheduler.ScheduleNextAvailable(ctx, *pair)
	}
	if err != nil {
		return fail(err)
	}

	placed := day.Pairs[len(day.Pairs)-1]
	result.Status = models.ItemScheduled
	result.Date = dayKey
	result.Pair = &placed
	return result
}

func (s *pipelineService) emitResult(ctx context.Context, batchID string, r models.GenerationResult) {
	ev := events.Event{BatchID: batchID, HumanImageURL: r.HumanImageURL, DayKey: r.Date, Message: r.Error}
	switch r.Status {
	case models.ItemScheduled:
		ev.Type = events.PipelineItemScheduled
		ev.PairID = r.Pair.ID
	case models.ItemSkipped:
		ev.Type = events.PipelineItemSkipped
	default:
		ev.Type = events.PipelineItemFailed
	}
	events.Emit(ctx, s.publisher, ev)
}

func withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

func batchSummary(r *models.BatchReport) string {
	return fmt.Sprintf("scheduled=%d skipped=%d failed=%d", r.Scheduled, r.Skipped, r.Failed)
}
