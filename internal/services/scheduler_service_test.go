package services_test

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/realorai/internal/errors"
	"github.com/vytor/realorai/internal/models"
	"github.com/vytor/realorai/internal/repository/sqlite"
	"github.com/vytor/realorai/internal/services"
	"github.com/vytor/realorai/internal/testutil"
	"github.com/vytor/realorai/internal/testutil/mocks"
)

type SchedulerServiceSuite struct {
	suite.Suite
	db        *sql.DB
	puzzles   services.PuzzleService
	scheduler services.SchedulerService
}

func (s *SchedulerServiceSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	days := testutil.FixedResolver(s.T(), "2024-06-01")
	s.puzzles = services.NewPuzzleService(sqlite.NewPuzzleRepository(s.db), days, nil, 0)
	s.scheduler = services.NewSchedulerService(s.puzzles, days, 0)
}

func (s *SchedulerServiceSuite) TearDownTest() {
	testutil.MustClose(s.T(), s.db)
}

func (s *SchedulerServiceSuite) TestNextAvailable_EmptyStoreUsesToday() {
	key, day, err := s.scheduler.ScheduleNextAvailable(context.Background(), pair(1))
	s.Require().NoError(err)
	s.Assert().Equal("2024-06-01", key)
	s.Assert().Equal("2024-06-01", day.DayKey)
	s.Assert().Len(day.Pairs, 1)
}

func (s *SchedulerServiceSuite) TestNextAvailable_SkipsFullDay() {
	ctx := context.Background()
	for i := 0; i < models.MaxPairs; i++ {
		_, err := s.scheduler.ScheduleExplicit(ctx, "2024-06-01", pair(i))
		s.Require().NoError(err)
	}

	key, day, err := s.scheduler.ScheduleNextAvailable(ctx, pair(9))
	s.Require().NoError(err)
	s.Assert().Equal("2024-06-02", key)
	s.Assert().Len(day.Pairs, 1)
}

func (s *SchedulerServiceSuite) TestNextAvailable_FillsDaysInOrder() {
	ctx := context.Background()
	counts := map[string]int{}
	for i := 0; i < 2*models.MaxPairs+1; i++ {
		key, _, err := s.scheduler.ScheduleNextAvailable(ctx, pair(i))
		s.Require().NoError(err)
		counts[key]++
	}
	s.Assert().Equal(map[string]int{"2024-06-01": 5, "2024-06-02": 5, "2024-06-03": 1}, counts)
}

func (s *SchedulerServiceSuite) TestExplicit_PastDate() {
	_, err := s.scheduler.ScheduleExplicit(context.Background(), "2024-05-31", pair(1))
	s.Assert().True(errors.HasCode(err, errors.ErrCodePastDate))
}

func (s *SchedulerServiceSuite) TestExplicit_InvalidDate() {
	_, err := s.scheduler.ScheduleExplicit(context.Background(), "06/01/2024", pair(1))
	s.Assert().True(errors.HasCode(err, errors.ErrCodeInvalidDate))
}

func (s *SchedulerServiceSuite) TestExplicit_TodayAndFuture() {
	ctx := context.Background()

	day, err := s.scheduler.ScheduleExplicit(ctx, "2024-06-01", pair(1))
	s.Require().NoError(err)
	s.Assert().Equal("2024-06-01", day.DayKey)

	day, err = s.scheduler.ScheduleExplicit(ctx, "2024-12-25", pair(2))
	s.Require().NoError(err)
	s.Assert().Equal("2024-12-25", day.DayKey)
}

func (s *SchedulerServiceSuite) TestExplicit_CapacityExceeded() {
	ctx := context.Background()
	for i := 0; i < models.MaxPairs; i++ {
		_, err := s.scheduler.ScheduleExplicit(ctx, "2024-06-03", pair(i))
		s.Require().NoError(err)
	}

	_, err := s.scheduler.ScheduleExplicit(ctx, "2024-06-03", pair(9))
	s.Assert().True(errors.HasCode(err, errors.ErrCodeCapacityExceeded))

	day, err := s.puzzles.GetDay(ctx, "2024-06-03")
	s.Require().NoError(err)
	s.Assert().Len(day.Pairs, models.MaxPairs)
}

func (s *SchedulerServiceSuite) TestNextAvailable_NoAvailableDay() {
	days := testutil.FixedResolver(s.T(), "2024-06-01")
	puzzles := services.NewPuzzleService(sqlite.NewPuzzleRepository(s.db), days, nil, 1)
	scheduler := services.NewSchedulerService(puzzles, days, 0)
	for i := 0; i < models.MaxPairs; i++ {
		_, err := scheduler.ScheduleExplicit(context.Background(), "2024-06-01", pair(i))
		s.Require().NoError(err)
	}

	_, _, err := scheduler.ScheduleNextAvailable(context.Background(), pair(9))
	s.Assert().True(errors.HasCode(err, errors.ErrCodeNoAvailableDay))
}

func TestSchedulerServiceSuite(t *testing.T) {
	suite.Run(t, new(SchedulerServiceSuite))
}

func TestScheduleNextAvailable_RetriesAfterLostRace(t *testing.T) {
	puzzles := new(mocks.MockPuzzleService)
	days := testutil.FixedResolver(t, "2024-06-01")
	p := pair(1)

	puzzles.On("FindDayWithSpareCapacity", mock.Anything, "2024-06-01").Return("2024-06-01", nil).Once()
	puzzles.On("AppendPair", mock.Anything, "2024-06-01", p).Return(nil, errors.NewCapacityExceededError("2024-06-01", models.MaxPairs)).Once()
	puzzles.On("FindDayWithSpareCapacity", mock.Anything, "2024-06-02").Return("2024-06-02", nil).Once()
	puzzles.On("AppendPair", mock.Anything, "2024-06-02", p).Return(&models.PuzzleDay{DayKey: "2024-06-02", Pairs: []models.ImagePair{p}}, nil).Once()

	key, day, err := services.NewSchedulerService(puzzles, days, 0).ScheduleNextAvailable(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-02", key)
	assert.Equal(t, "2024-06-02", day.DayKey)
	puzzles.AssertExpectations(t)
}

func TestScheduleNextAvailable_GivesUpAfterRetries(t *testing.T) {
	puzzles := new(mocks.MockPuzzleService)
	days := testutil.FixedResolver(t, "2024-06-01")
	full := errors.NewCapacityExceededError("2024-06-01", models.MaxPairs)

	puzzles.On("FindDayWithSpareCapacity", mock.Anything, mock.Anything).Return("2024-06-01", nil)
	puzzles.On("AppendPair", mock.Anything, "2024-06-01", mock.Anything).Return(nil, full)

	_, _, err := services.NewSchedulerService(puzzles, days, 3).ScheduleNextAvailable(context.Background(), pair(1))
	assert.True(t, errors.HasCode(err, errors.ErrCodeSchedulingFailed))
	assert.ErrorIs(t, err, full)
	puzzles.AssertNumberOfCalls(t, "AppendPair", 3)
}

func TestScheduleNextAvailable_SurfacesOtherErrors(t *testing.T) {
	puzzles := new(mocks.MockPuzzleService)
	days := testutil.FixedResolver(t, "2024-06-01")
	boom := errors.NewInternalError(stderrors.New("disk full"))

	puzzles.On("FindDayWithSpareCapacity", mock.Anything, "2024-06-01").Return("2024-06-01", nil)
	puzzles.On("AppendPair", mock.Anything, "2024-06-01", mock.Anything).Return(nil, boom)

	_, _, err := services.NewSchedulerService(puzzles, days, 0).ScheduleNextAvailable(context.Background(), pair(1))
	assert.Same(t, boom, err)
	puzzles.AssertNumberOfCalls(t, "AppendPair", 1)
}
