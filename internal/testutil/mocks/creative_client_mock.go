package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/realorai/internal/creative"
	"github.com/vytor/realorai/internal/models"
)

// MockCreativeClient is a mock implementation of creative.ClientInterface
type MockCreativeClient struct {
	mock.Mock
}

func (m *MockCreativeClient) Caption(ctx context.Context, humanImageURL string) (*models.Caption, error) {
	args := m.Called(ctx, humanImageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Caption), args.Error(1)
}

func (m *MockCreativeClient) Remix(ctx context.Context, caption models.Caption, notes string) (*creative.Remix, error) {
	args := m.Called(ctx, caption, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*creative.Remix), args.Error(1)
}

func (m *MockCreativeClient) GenerateImage(ctx context.Context, prompt string, dims models.Dimensions) (string, error) {
	args := m.Called(ctx, prompt, dims)
	return args.String(0), args.Error(1)
}
