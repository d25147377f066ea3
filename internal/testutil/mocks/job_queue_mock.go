package mocks

import (
	"github.com/stretchr/testify/mock"
	"github.com/vytor/realorai/internal/models"
)

// MockJobQueue is a mock implementation of jobs.JobQueue
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) EnqueueBatch(batchID string, items []models.GenerationItem) (string, error) {
	args := m.Called(batchID, items)
	return args.String(0), args.Error(1)
}

func (m *MockJobQueue) Pending() int {
	args := m.Called()
	return args.Int(0)
}
