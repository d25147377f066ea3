package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/realorai/internal/models"
)

// MockScheduler is a mock implementation of services.SchedulerService
type MockScheduler struct {
	mock.Mock
}

func (m *MockScheduler) ScheduleExplicit(ctx context.Context, date string, pair models.ImagePair) (*models.PuzzleDay, error) {
	args := m.Called(ctx, date, pair)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PuzzleDay), args.Error(1)
}

func (m *MockScheduler) ScheduleNextAvailable(ctx context.Context, pair models.ImagePair) (string, *models.PuzzleDay, error) {
	args := m.Called(ctx, pair)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*models.PuzzleDay), args.Error(2)
}
