package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/realorai/internal/models"
)

// MockPuzzleService is a mock implementation of services.PuzzleService
type MockPuzzleService struct {
	mock.Mock
}

func (m *MockPuzzleService) FindDay(ctx context.Context, start, end time.Time) (*models.PuzzleDay, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PuzzleDay), args.Error(1)
}

func (m *MockPuzzleService) FindDayWithSpareCapacity(ctx context.Context, onOrAfter string) (string, error) {
	args := m.Called(ctx, onOrAfter)
	return args.String(0), args.Error(1)
}

func (m *MockPuzzleService) AppendPair(ctx context.Context, dayKey string, pair models.ImagePair) (*models.PuzzleDay, error) {
	args := m.Called(ctx, dayKey, pair)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PuzzleDay), args.Error(1)
}

func (m *MockPuzzleService) ReplacePair(ctx context.Context, dayKey string, pairID string, pair models.ImagePair) (*models.ImagePair, error) {
	args := m.Called(ctx, dayKey, pairID, pair)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImagePair), args.Error(1)
}

func (m *MockPuzzleService) RemovePair(ctx context.Context, dayKey string, pairID string) error {
	args := m.Called(ctx, dayKey, pairID)
	return args.Error(0)
}

func (m *MockPuzzleService) ListPairsForDisplay(ctx context.Context, dayKey string) ([]models.DisplayPair, error) {
	args := m.Called(ctx, dayKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DisplayPair), args.Error(1)
}

func (m *MockPuzzleService) TodaysPuzzle(ctx context.Context) (*models.DailyPuzzle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DailyPuzzle), args.Error(1)
}

func (m *MockPuzzleService) GetDay(ctx context.Context, dayKey string) (*models.PuzzleDay, error) {
	args := m.Called(ctx, dayKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PuzzleDay), args.Error(1)
}

func (m *MockPuzzleService) ListDays(ctx context.Context, filter models.DayFilter) ([]models.DaySummary, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DaySummary), args.Error(1)
}

func (m *MockPuzzleService) SetStatus(ctx context.Context, dayKey string, status string) error {
	args := m.Called(ctx, dayKey, status)
	return args.Error(0)
}

func (m *MockPuzzleService) DeleteDay(ctx context.Context, dayKey string) error {
	args := m.Called(ctx, dayKey)
	return args.Error(0)
}

func (m *MockPuzzleService) StagePendingImage(ctx context.Context, dayKey string, humanImageURL string) (*models.PendingHumanImage, error) {
	args := m.Called(ctx, dayKey, humanImageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingHumanImage), args.Error(1)
}

func (m *MockPuzzleService) ListPendingImages(ctx context.Context, dayKey string) ([]models.PendingHumanImage, error) {
	args := m.Called(ctx, dayKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PendingHumanImage), args.Error(1)
}

func (m *MockPuzzleService) RemovePendingImage(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPuzzleService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
