package services

import (
	"context"

	"github.com/vytor/realorai/internal/civilday"
	"github.com/vytor/realorai/internal/errors"
	"github.com/vytor/realorai/internal/logger"
	"github.com/vytor/realorai/internal/models"
)

// DefaultScheduleRetries bounds ScheduleNextAvailable's scan-and-append cycles.
const DefaultScheduleRetries = 5

// SchedulerService places new pairs on puzzle days. Both paths share
// PuzzleService.AppendPair as the capacity-safe primitive.
type SchedulerService interface {
	// ScheduleExplicit places pair on exactly date, which must not be in the past.
	ScheduleExplicit(ctx context.Context, date string, pair models.ImagePair) (*models.PuzzleDay, error)
	// ScheduleNextAvailable places pair on the earliest day from today that has room.
	ScheduleNextAvailable(ctx context.Context, pair models.ImagePair) (string, *models.PuzzleDay, error)
}

type schedulerService struct {
	puzzles PuzzleService
	days    *civilday.Resolver
	retries int
}

// NewSchedulerService creates a new SchedulerService. retries <= 0 uses DefaultScheduleRetries.
func NewSchedulerService(puzzles PuzzleService, days *civilday.Resolver, retries int) SchedulerService {
	if retries <= 0 {
		retries = DefaultScheduleRetries
	}
	return &schedulerService{puzzles: puzzles, days: days, retries: retries}
}

func (s *schedulerService) ScheduleExplicit(ctx context.Context, date string, pair models.ImagePair) (*models.PuzzleDay, error) {
	log := logger.FromContext(ctx)
	log.Debug("scheduling pair explicitly on %s", date)

	key, err := civilday.ParseKey(date)
	if err != nil {
		return nil, errors.NewInvalidDateError(date, err)
	}
	today := s.days.TodayKey()
	if key.Before(today) {
		log.Debug("rejecting past date %s (today is %s)", key, today)
		return nil, errors.NewPastDateError(key.String(), today.String())
	}

	// A full day is the caller's problem: they asked for this date.
	return s.puzzles.AppendPair(ctx, key.String(), pair)
}

func (s *schedulerService) ScheduleNextAvailable(ctx context.Context, pair models.ImagePair) (string, *models.PuzzleDay, error) {
	log := logger.FromContext(ctx)

	from := s.days.TodayKey()
	log.Debug("scheduling pair on next available day from %s", from)

	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		dayKey, err := s.puzzles.FindDayWithSpareCapacity(ctx, from.String())
		if err != nil {
			return "", nil, err
		}

		day, err := s.puzzles.AppendPair(ctx, dayKey, pair)
		if err == nil {
			log.Debug("pair placed on %s after %d attempt(s)", dayKey, attempt)
			return dayKey, day, nil
		}
		if !errors.HasCode(err, errors.ErrCodeCapacityExceeded) {
			return "", nil, err
		}

		log.Debug("lost capacity race on %s (attempt %d/%d)", dayKey, attempt, s.retries)
		lastErr = err
		next, err := civilday.Key(dayKey).AddDays(1)
		if err != nil {
			return "", nil, errors.NewInternalError(err)
		}
		from = next
	}

	log.Warn("giving up placing pair after %d attempts", s.retries)
	return "", nil, errors.NewSchedulingFailedError(s.retries, lastErr)
}
