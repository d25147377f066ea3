package services_test

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/realorai/internal/creative"
	"github.com/vytor/realorai/internal/errors"
	"github.com/vytor/realorai/internal/events"
	"github.com/vytor/realorai/internal/models"
	"github.com/vytor/realorai/internal/repository/sqlite"
	"github.com/vytor/realorai/internal/services"
	"github.com/vytor/realorai/internal/testutil"
	"github.com/vytor/realorai/internal/testutil/mocks"
)

type PipelineServiceSuite struct {
	suite.Suite
	db        *sql.DB
	client    *mocks.MockCreativeClient
	published *mocks.RecordingPublisher
	puzzles   services.PuzzleService
	pipeline  services.PipelineService
}

func (s *PipelineServiceSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.client = new(mocks.MockCreativeClient)
	s.published = &mocks.RecordingPublisher{}

	days := testutil.FixedResolver(s.T(), "2024-06-01")
	s.puzzles = services.NewPuzzleService(sqlite.NewPuzzleRepository(s.db), days, nil, 0)
	scheduler := services.NewSchedulerService(s.puzzles, days, 0)
	s.pipeline = services.NewPipelineService(s.client, scheduler, s.puzzles, s.published, services.PipelineConfig{
		CaptionTimeout:  time.Second,
		RemixTimeout:    time.Second,
		GenerateTimeout: 100 * time.Millisecond,
	})
}

func (s *PipelineServiceSuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

// expectGeneration wires a successful caption and remix for url, returning aiURL from the image step.
func (s *PipelineServiceSuite) expectGeneration(url, aiURL string) {
	caption := &models.Caption{Description: "desc of " + url, StyleAnalysis: "photo"}
	s.client.On("Caption", mock.Anything, url).Return(caption, nil).Once()
	s.client.On("Remix", mock.Anything, *caption, mock.Anything).Return(&creative.Remix{Prompt: "prompt for " + url, Model: "img-2"}, nil).Once()
	s.client.On("GenerateImage", mock.Anything, "prompt for "+url, mock.Anything).Return(aiURL, nil).Once()
}

func (s *PipelineServiceSuite) TestGeneratePair() {
	s.expectGeneration("https://img.example/h.png", "https://img.example/ai.png")

	p, err := s.pipeline.GeneratePair(context.Background(), models.GenerationItem{HumanImageURL: "https://img.example/h.png"})
	s.Require().NoError(err)
	s.Assert().Equal("https://img.example/ai.png", p.AIImageURL)
	s.Assert().Equal("desc of https://img.example/h.png", p.Metadata.Description)
	s.Assert().Equal("img-2", p.Metadata.Model)
	s.Assert().NotNil(p.Metadata.GeneratedAt)
	s.client.AssertExpectations(s.T())
}

func (s *PipelineServiceSuite) TestGeneratePair_UsesItemDimensions() {
	url := "https://img.example/wide.png"
	caption := &models.Caption{Description: "wide"}
	s.client.On("Caption", mock.Anything, url).Return(caption, nil)
	s.client.On("Remix", mock.Anything, *caption, "").Return(&creative.Remix{Prompt: "p"}, nil)
	s.client.On("GenerateImage", mock.Anything, "p", models.Dimensions{Width: 1536, Height: 640}).Return("https://img.example/ai.png", nil)

	_, err := s.pipeline.GeneratePair(context.Background(), models.GenerationItem{
		HumanImageURL: url,
		Dimensions:    &models.Dimensions{Width: 1536, Height: 640},
	})
	s.Require().NoError(err)
	s.client.AssertExpectations(s.T())
}

func (s *PipelineServiceSuite) TestGeneratePair_StepFailure() {
	s.client.On("Caption", mock.Anything, mock.Anything).Return(nil, stderrors.New("gateway down"))

	_, err := s.pipeline.GeneratePair(context.Background(), models.GenerationItem{HumanImageURL: "https://img.example/h.png"})
	s.Assert().True(errors.HasCode(err, errors.ErrCodeGenerationFailed))
	s.client.AssertNotCalled(s.T(), "Remix", mock.Anything, mock.Anything, mock.Anything)
}

func (s *PipelineServiceSuite) TestGeneratePair_Timeout() {
	caption := &models.Caption{Description: "slow"}
	s.client.On("Caption", mock.Anything, mock.Anything).Return(caption, nil)
	s.client.On("Remix", mock.Anything, mock.Anything, mock.Anything).Return(&creative.Remix{Prompt: "p"}, nil)
	s.client.On("GenerateImage", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return("", context.DeadlineExceeded)

	_, err := s.pipeline.GeneratePair(context.Background(), models.GenerationItem{HumanImageURL: "https://img.example/h.png"})
	s.Assert().True(errors.HasCode(err, errors.ErrCodeGenerationFailed))
	s.Assert().ErrorIs(err, context.DeadlineExceeded)
}

func (s *PipelineServiceSuite) TestRunBatch_MixedOutcomes() {
	s.expectGeneration("https://img.example/1.png", "https://img.example/ai-1.png")
	s.expectGeneration("https://img.example/2.png", "")
	s.client.On("Caption", mock.Anything, "https://img.example/3.png").Return(nil, stderrors.New("boom")).Once()
	s.expectGeneration("https://img.example/4.png", "https://img.example/ai-4.png")
	s.expectGeneration("https://img.example/5.png", "https://img.example/ai-5.png")

	report := s.pipeline.RunBatch(context.Background(), "batch-1", []models.GenerationItem{
		{HumanImageURL: "https://img.example/1.png"},
		{HumanImageURL: "https://img.example/2.png"},
		{HumanImageURL: "https://img.example/3.png"},
		{HumanImageURL: "https://img.example/4.png", Date: "2024-06-10"},
		{HumanImageURL: "https://img.example/5.png", Date: "2024-05-01"},
	})

	s.Assert().Equal("batch-1", report.BatchID)
	s.Assert().Equal(2, report.Scheduled)
	s.Assert().Equal(1, report.Skipped)
	s.Assert().Equal(2, report.Failed)
	s.Require().Len(report.Results, 5)

	s.Assert().Equal(models.ItemScheduled, report.Results[0].Status)
	s.Assert().Equal("2024-06-01", report.Results[0].Date)
	s.Assert().Equal(errors.ErrCodeQuotaExhausted, report.Results[1].ErrorCode)
	s.Assert().Equal(errors.ErrCodeGenerationFailed, report.Results[2].ErrorCode)
	s.Assert().Equal("2024-06-10", report.Results[3].Date)
	s.Assert().Equal("https://img.example/ai-4.png", report.Results[3].Pair.AIImageURL)
	// Past dates fail after generation, inside the scheduler.
	s.Assert().Equal(errors.ErrCodePastDate, report.Results[4].ErrorCode)

	s.Assert().Equal([]string{
		events.PipelineItemScheduled,
		events.PipelineItemSkipped,
		events.PipelineItemFailed,
		events.PipelineItemScheduled,
		events.PipelineItemFailed,
		events.PipelineBatchCompleted,
	}, s.published.Types())

	day, err := s.puzzles.GetDay(context.Background(), "2024-06-10")
	s.Require().NoError(err)
	s.Assert().Len(day.Pairs, 1)
}

func (s *PipelineServiceSuite) TestRunBatch_InvalidDateSkipsGeneration() {
	report := s.pipeline.RunBatch(context.Background(), "", []models.GenerationItem{
		{HumanImageURL: "https://img.example/1.png", Date: "2024-13-01"},
	})

	s.Assert().NotEmpty(report.BatchID)
	s.Require().Len(report.Results, 1)
	s.Assert().Equal(errors.ErrCodeInvalidDate, report.Results[0].ErrorCode)
	s.client.AssertNotCalled(s.T(), "Caption", mock.Anything, mock.Anything)
}

func (s *PipelineServiceSuite) TestRunBatch_CapacityOnExplicitDate() {
	ctx := context.Background()
	for i := 0; i < models.MaxPairs; i++ {
		_, err := s.puzzles.AppendPair(ctx, "2024-06-02", pair(i))
		s.Require().NoError(err)
	}
	s.expectGeneration("https://img.example/1.png", "https://img.example/ai-1.png")

	report := s.pipeline.RunBatch(ctx, "b", []models.GenerationItem{{HumanImageURL: "https://img.example/1.png", Date: "2024-06-02"}})
	s.Require().Len(report.Results, 1)
	s.Assert().Equal(models.ItemFailed, report.Results[0].Status)
	s.Assert().Equal(errors.ErrCodeCapacityExceeded, report.Results[0].ErrorCode)
}

func (s *PipelineServiceSuite) TestProcessPending() {
	ctx := context.Background()
	_, err := s.puzzles.StagePendingImage(ctx, "2024-06-03", "https://img.example/1.png")
	s.Require().NoError(err)
	_, err = s.puzzles.StagePendingImage(ctx, "2024-06-03", "https://img.example/2.png")
	s.Require().NoError(err)

	s.expectGeneration("https://img.example/1.png", "https://img.example/ai-1.png")
	s.expectGeneration("https://img.example/2.png", "")

	report, err := s.pipeline.ProcessPending(ctx, "2024-06-03")
	s.Require().NoError(err)
	s.Assert().Equal(1, report.Scheduled)
	s.Assert().Equal(1, report.Skipped)

	// The skipped image stays staged for the next run.
	pending, err := s.puzzles.ListPendingImages(ctx, "2024-06-03")
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Assert().Equal("https://img.example/2.png", pending[0].HumanImageURL)

	day, err := s.puzzles.GetDay(ctx, "2024-06-03")
	s.Require().NoError(err)
	s.Assert().Len(day.Pairs, 1)
}

func TestPipelineServiceSuite(t *testing.T) {
	suite.Run(t, new(PipelineServiceSuite))
}

func TestPipeline_SchedulingFailureFailsItem(t *testing.T) {
	client := new(mocks.MockCreativeClient)
	scheduler := new(mocks.MockScheduler)
	published := &mocks.RecordingPublisher{}
	pipeline := services.NewPipelineService(client, scheduler, nil, published, services.PipelineConfig{})

	caption := &models.Caption{Description: "d"}
	client.On("Caption", mock.Anything, "https://img.example/h.png").Return(caption, nil)
	client.On("Remix", mock.Anything, *caption, "").Return(&creative.Remix{Prompt: "p"}, nil)
	client.On("GenerateImage", mock.Anything, "p", models.Dimensions{Width: 1024, Height: 1024}).Return("https://img.example/ai.png", nil)
	scheduler.On("ScheduleNextAvailable", mock.Anything, mock.MatchedBy(func(p models.ImagePair) bool {
		return p.AIImageURL == "https://img.example/ai.png"
	})).Return("", nil, errors.NewSchedulingFailedError(5, errors.NewCapacityExceededError("2024-06-05", models.MaxPairs))).Once()

	report := pipeline.RunBatch(context.Background(), "b-1", []models.GenerationItem{{HumanImageURL: "https://img.example/h.png"}})
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, errors.ErrCodeSchedulingFailed, report.Results[0].ErrorCode)
	assert.Equal(t, []string{events.PipelineItemFailed, events.PipelineBatchCompleted}, published.Types())
	scheduler.AssertExpectations(t)
}
