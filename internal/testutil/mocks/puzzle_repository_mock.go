package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/realorai/internal/models"
)

// MockPuzzleRepository is a mock implementation of repository.PuzzleRepository
type MockPuzzleRepository struct {
	mock.Mock
}

func (m *MockPuzzleRepository) GetDay(ctx context.Context, dayKey string) (*models.PuzzleDay, error) {
	args := m.Called(ctx, dayKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PuzzleDay), args.Error(1)
}

func (m *MockPuzzleRepository) FindDayInRange(ctx context.Context, start, end time.Time) (*models.PuzzleDay, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PuzzleDay), args.Error(1)
}

func (m *MockPuzzleRepository) FullDayKeys(ctx context.Context, fromKey string, limit int, maxPairs int) ([]string, error) {
	args := m.Called(ctx, fromKey, limit, maxPairs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockPuzzleRepository) ListDays(ctx context.Context, filter models.DayFilter) ([]models.DaySummary, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DaySummary), args.Error(1)
}

func (m *MockPuzzleRepository) AppendPair(ctx context.Context, dayKey string, scheduledAt time.Time, pair models.ImagePair, maxPairs int) (*models.PuzzleDay, error) {
	args := m.Called(ctx, dayKey, scheduledAt, pair, maxPairs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PuzzleDay), args.Error(1)
}

func (m *MockPuzzleRepository) ReplacePair(ctx context.Context, dayKey string, pairID string, pair models.ImagePair) (*models.ImagePair, error) {
	args := m.Called(ctx, dayKey, pairID, pair)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ImagePair), args.Error(1)
}

func (m *MockPuzzleRepository) RemovePair(ctx context.Context, dayKey string, pairID string) error {
	args := m.Called(ctx, dayKey, pairID)
	return args.Error(0)
}

func (m *MockPuzzleRepository) UpdateStatus(ctx context.Context, dayKey string, status string) error {
	args := m.Called(ctx, dayKey, status)
	return args.Error(0)
}

func (m *MockPuzzleRepository) DeleteDay(ctx context.Context, dayKey string) error {
	args := m.Called(ctx, dayKey)
	return args.Error(0)
}

func (m *MockPuzzleRepository) AddPendingImage(ctx context.Context, dayKey string, scheduledAt time.Time, image models.PendingHumanImage) (*models.PendingHumanImage, error) {
	args := m.Called(ctx, dayKey, scheduledAt, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingHumanImage), args.Error(1)
}

func (m *MockPuzzleRepository) ListPendingImages(ctx context.Context, dayKey string) ([]models.PendingHumanImage, error) {
	args := m.Called(ctx, dayKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PendingHumanImage), args.Error(1)
}

func (m *MockPuzzleRepository) RemovePendingImage(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPuzzleRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
