package repository

import (
	"context"
	"time"

	"github.com/vytor/realorai/internal/models"
)

// PuzzleRepository handles puzzle day and image pair data access.
//
// AppendPair is a single atomic step: the day row is created if missing, its
// pair count is conditionally incremented while below maxPairs, and the pair is
// inserted, all in one transaction. A full day yields ErrCapacityExceeded and
// leaves storage untouched.
type PuzzleRepository interface {
	// GetDay returns nil, nil when no bucket exists for dayKey.
	GetDay(ctx context.Context, dayKey string) (*models.PuzzleDay, error)
	// FindDayInRange returns the bucket whose scheduled date lies in [start, end), or nil, nil.
	FindDayInRange(ctx context.Context, start, end time.Time) (*models.PuzzleDay, error)
	// FullDayKeys lists, in order, up to limit day keys >= fromKey holding maxPairs or more pairs.
	FullDayKeys(ctx context.Context, fromKey string, limit int, maxPairs int) ([]string, error)
	ListDays(ctx context.Context, filter models.DayFilter) ([]models.DaySummary, error)
	AppendPair(ctx context.Context, dayKey string, scheduledAt time.Time, pair models.ImagePair, maxPairs int) (*models.PuzzleDay, error)
	// ReplacePair overwrites the pair's content in place, keeping its id and position.
	ReplacePair(ctx context.Context, dayKey string, pairID string, pair models.ImagePair) (*models.ImagePair, error)
	RemovePair(ctx context.Context, dayKey string, pairID string) error
	UpdateStatus(ctx context.Context, dayKey string, status string) error
	DeleteDay(ctx context.Context, dayKey string) error
	AddPendingImage(ctx context.Context, dayKey string, scheduledAt time.Time, image models.PendingHumanImage) (*models.PendingHumanImage, error)
	ListPendingImages(ctx context.Context, dayKey string) ([]models.PendingHumanImage, error)
	RemovePendingImage(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
