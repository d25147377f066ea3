package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/realorai/internal/models"
)

// MockSessionRepository is a mock implementation of repository.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Get(ctx context.Context, userID string) (*models.PlayerSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlayerSession), args.Error(1)
}

func (m *MockSessionRepository) Create(ctx context.Context, s *models.PlayerSession) (*models.PlayerSession, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PlayerSession), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, s *models.PlayerSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
