package repository

import (
	"context"

	"github.com/vytor/realorai/internal/models"
)

// SessionRepository handles player session data access.
type SessionRepository interface {
	// Get returns nil, nil when the user has no session.
	Get(ctx context.Context, userID string) (*models.PlayerSession, error)
	// Create inserts s unless a session exists, and returns the stored row either way.
	Create(ctx context.Context, s *models.PlayerSession) (*models.PlayerSession, error)
	// Update writes s if its Version still matches storage and bumps it;
	// ErrConflict otherwise, ErrNotFound when the row is gone.
	Update(ctx context.Context, s *models.PlayerSession) error
	Delete(ctx context.Context, userID string) error
}
