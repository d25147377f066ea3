package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/vytor/realorai/internal/civilday"
	"github.com/vytor/realorai/internal/errors"
	"github.com/vytor/realorai/internal/events"
	"github.com/vytor/realorai/internal/logger"
	"github.com/vytor/realorai/internal/models"
	"github.com/vytor/realorai/internal/repository"
)

// DefaultScanDays bounds FindDayWithSpareCapacity.
const DefaultScanDays = 365

// PuzzleService owns puzzle days and their capacity-bounded pair lists.
type PuzzleService interface {
	FindDay(ctx context.Context, start, end time.Time) (*models.PuzzleDay, error)
	FindDayWithSpareCapacity(ctx context.Context, onOrAfter string) (string, error)
	AppendPair(ctx context.Context, dayKey string, pair models.ImagePair) (*models.PuzzleDay, error)
	ReplacePair(ctx context.Context, dayKey string, pairID string, pair models.ImagePair) (*models.ImagePair, error)
	RemovePair(ctx context.Context, dayKey string, pairID string) error
	ListPairsForDisplay(ctx context.Context, dayKey string) ([]models.DisplayPair, error)
	TodaysPuzzle(ctx context.Context) (*models.DailyPuzzle, error)
	GetDay(ctx context.Context, dayKey string) (*models.PuzzleDay, error)
	ListDays(ctx context.Context, filter models.DayFilter) ([]models.DaySummary, error)
	SetStatus(ctx context.Context, dayKey string, status string) error
	DeleteDay(ctx context.Context, dayKey string) error
	StagePendingImage(ctx context.Context, dayKey string, humanImageURL string) (*models.PendingHumanImage, error)
	ListPendingImages(ctx context.Context, dayKey string) ([]models.PendingHumanImage, error)
	RemovePendingImage(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type puzzleService struct {
	repo      repository.PuzzleRepository
	days      *civilday.Resolver
	publisher events.Publisher
	scanDays  int
}

// NewPuzzleService creates a new PuzzleService. scanDays <= 0 uses DefaultScanDays.
func NewPuzzleService(repo repository.PuzzleRepository, days *civilday.Resolver, publisher events.Publisher, scanDays int) PuzzleService {
	if scanDays <= 0 {
		scanDays = DefaultScanDays
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &puzzleService{repo: repo, days: days, publisher: publisher, scanDays: scanDays}
}

func (s *puzzleService) FindDay(ctx context.Context, start, end time.Time) (*models.PuzzleDay, error) {
	log := logger.FromContext(ctx)
	log.Debug("finding day in [%s, %s)", start.Format(time.RFC3339), end.Format(time.RFC3339))

	day, err := s.repo.FindDayInRange(ctx, start, end)
	if err != nil {
		log.Error("failed to find day: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return day, nil
}

// FindDayWithSpareCapacity returns the first day on or after onOrAfter that is
// absent or holds fewer than MaxPairs pairs. The answer is advisory: a
// concurrent writer may fill the day before the caller appends to it.
func (s *puzzleService) FindDayWithSpareCapacity(ctx context.Context, onOrAfter string) (string, error) {
	log := logger.FromContext(ctx)
	log.Debug("scanning for spare capacity from %s", onOrAfter)

	start, err := civilday.ParseKey(onOrAfter)
	if err != nil {
		return "", errors.NewInvalidDateError(onOrAfter, err)
	}

	full, err := s.repo.FullDayKeys(ctx, start.String(), s.scanDays, models.MaxPairs)
	if err != nil {
		log.Error("failed to list full days: %v", err)
		return "", errors.NewInternalError(err)
	}
	isFull := make(map[string]bool, len(full))
	for _, k := range full {
		isFull[k] = true
	}

	candidate := start
	for i := 0; i < s.scanDays; i++ {
		if !isFull[candidate.String()] {
			log.Debug("day %s has spare capacity", candidate)
			return candidate.String(), nil
		}
		if candidate, err = candidate.AddDays(1); err != nil {
			return "", errors.NewInternalError(err)
		}
	}

	log.Warn("no spare capacity within %d days of %s", s.scanDays, onOrAfter)
	return "", errors.NewNoAvailableDayError(onOrAfter, s.scanDays)
}

func (s *puzzleService) AppendPair(ctx context.Context, dayKey string, pair models.ImagePair) (*models.PuzzleDay, error) {
	log := logger.FromContext(ctx)
	log.Debug("appending pair to %s", dayKey)

	key, scheduledAt, err := s.resolve(dayKey)
	if err != nil {
		return nil, err
	}
	if err := validatePair(pair); err != nil {
		return nil, err
	}

	day, err := s.repo.AppendPair(ctx, key.String(), scheduledAt, pair, models.MaxPairs)
	if err != nil {
		if stderrors.Is(err, repository.ErrCapacityExceeded) {
			log.Debug("day %s is full", key)
			return nil, errors.NewCapacityExceededError(key.String(), models.MaxPairs)
		}
		log.Error("failed to append pair: %v", err)
		return nil, errors.NewInternalError(err)
	}

	added := day.Pairs[len(day.Pairs)-1]
	log.Info("pair %s placed on %s (%d/%d)", added.ID, key, len(day.Pairs), models.MaxPairs)
	events.Emit(ctx, s.publisher, events.Event{
		Type:          events.PairScheduled,
		DayKey:        key.String(),
		PairID:        added.ID,
		HumanImageURL: added.HumanImageURL,
	})
	return day, nil
}

func (s *puzzleService) ReplacePair(ctx context.Context, dayKey string, pairID string, pair models.ImagePair) (*models.ImagePair, error) {
	log := logger.FromContext(ctx)
	log.Debug("replacing pair %s on %s", pairID, dayKey)

	key, err := civilday.ParseKey(dayKey)
	if err != nil {
		return nil, errors.NewInvalidDateError(dayKey, err)
	}
	if err := validatePair(pair); err != nil {
		return nil, err
	}

	updated, err := s.repo.ReplacePair(ctx, key.String(), pairID, pair)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NewNotFoundError("pair", pairID)
		}
		log.Error("failed to replace pair: %v", err)
		return nil, errors.NewInternalError(err)
	}

	events.Emit(ctx, s.publisher, events.Event{Type: events.PairReplaced, DayKey: key.String(), PairID: pairID})
	return updated, nil
}

func (s *puzzleService) RemovePair(ctx context.Context, dayKey string, pairID string) error {
	log := logger.FromContext(ctx)
	log.Debug("removing pair %s from %s", pairID, dayKey)

	key, err := civilday.ParseKey(dayKey)
	if err != nil {
		return errors.NewInvalidDateError(dayKey, err)
	}

	if err := s.repo.RemovePair(ctx, key.String(), pairID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NewNotFoundError("pair", pairID)
		}
		log.Error("failed to remove pair: %v", err)
		return errors.NewInternalError(err)
	}

	log.Info("pair %s removed from %s", pairID, key)
	events.Emit(ctx, s.publisher, events.Event{Type: events.PairRemoved, DayKey: key.String(), PairID: pairID})
	return nil
}

func (s *puzzleService) ListPairsForDisplay(ctx context.Context, dayKey string) ([]models.DisplayPair, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing display pairs for %s", dayKey)

	key, err := civilday.ParseKey(dayKey)
	if err != nil {
		return nil, errors.NewInvalidDateError(dayKey, err)
	}
	day, err := s.repo.GetDay(ctx, key.String())
	if err != nil {
		log.Error("failed to get day: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if day == nil {
		return []models.DisplayPair{}, nil
	}
	return displayPairs(day), nil
}

// TodaysPuzzle returns nil, nil when nothing is scheduled for today.
func (s *puzzleService) TodaysPuzzle(ctx context.Context) (*models.DailyPuzzle, error) {
	log := logger.FromContext(ctx)
	today := s.days.TodayKey()
	log.Debug("loading puzzle for %s", today)

	start, end, err := s.days.UTCRange(today)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	day, err := s.FindDay(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if day == nil {
		log.Debug("no puzzle for %s", today)
		return nil, nil
	}
	pairs := displayPairs(day)
	if len(pairs) == 0 {
		return nil, nil
	}
	return &models.DailyPuzzle{Date: today.String(), Pairs: pairs}, nil
}

func (s *puzzleService) GetDay(ctx context.Context, dayKey string) (*models.PuzzleDay, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting day %s", dayKey)

	key, err := civilday.ParseKey(dayKey)
	if err != nil {
		return nil, errors.NewInvalidDateError(dayKey, err)
	}
	day, err := s.repo.GetDay(ctx, key.String())
	if err != nil {
		log.Error("failed to get day: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if day == nil {
		return nil, errors.NewNotFoundError("puzzle day", dayKey)
	}
	return day, nil
}

func (s *puzzleService) ListDays(ctx context.Context, filter models.DayFilter) ([]models.DaySummary, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing days: from=%s, to=%s, status=%s", filter.From, filter.To, filter.Status)

	for _, v := range []string{filter.From, filter.To} {
		if v == "" {
			continue
		}
		if _, err := civilday.ParseKey(v); err != nil {
			return nil, errors.NewInvalidDateError(v, err)
		}
	}
	if filter.Status != "" && !models.ValidStatus(filter.Status) {
		return nil, errors.NewValidationError("status", "must be one of pending, approved, live")
	}

	days, err := s.repo.ListDays(ctx, filter)
	if err != nil {
		log.Error("failed to list days: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return days, nil
}

func (s *puzzleService) SetStatus(ctx context.Context, dayKey string, status string) error {
	log := logger.FromContext(ctx)
	log.Debug("setting status of %s to %s", dayKey, status)

	key, err := civilday.ParseKey(dayKey)
	if err != nil {
		return errors.NewInvalidDateError(dayKey, err)
	}
	if !models.ValidStatus(status) {
		return errors.NewValidationError("status", "must be one of pending, approved, live")
	}

	if err := s.repo.UpdateStatus(ctx, key.String(), status); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NewNotFoundError("puzzle day", dayKey)
		}
		log.Error("failed to update status: %v", err)
		return errors.NewInternalError(err)
	}

	log.Info("day %s is now %s", key, status)
	events.Emit(ctx, s.publisher, events.Event{Type: events.DayStatusChanged, DayKey: key.String(), Message: status})
	return nil
}

func (s *puzzleService) DeleteDay(ctx context.Context, dayKey string) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting day %s", dayKey)

	key, err := civilday.ParseKey(dayKey)
	if err != nil {
		return errors.NewInvalidDateError(dayKey, err)
	}
	if err := s.repo.DeleteDay(ctx, key.String()); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NewNotFoundError("puzzle day", dayKey)
		}
		log.Error("failed to delete day: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *puzzleService) StagePendingImage(ctx context.Context, dayKey string, humanImageURL string) (*models.PendingHumanImage, error) {
	log := logger.FromContext(ctx)
	log.Debug("staging human image on %s", dayKey)

	key, scheduledAt, err := s.resolve(dayKey)
	if err != nil {
		return nil, err
	}
	if humanImageURL == "" {
		return nil, errors.NewValidationError("humanImageUrl", "cannot be empty")
	}

	img, err := s.repo.AddPendingImage(ctx, key.String(), scheduledAt, models.PendingHumanImage{HumanImageURL: humanImageURL})
	if err != nil {
		log.Error("failed to stage image: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return img, nil
}

func (s *puzzleService) ListPendingImages(ctx context.Context, dayKey string) ([]models.PendingHumanImage, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing staged images on %s", dayKey)

	key, err := civilday.ParseKey(dayKey)
	if err != nil {
		return nil, errors.NewInvalidDateError(dayKey, err)
	}
	images, err := s.repo.ListPendingImages(ctx, key.String())
	if err != nil {
		log.Error("failed to list staged images: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return images, nil
}

func (s *puzzleService) RemovePendingImage(ctx context.Context, id string) error {
	if err := s.repo.RemovePendingImage(ctx, id); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NewNotFoundError("pending image", id)
		}
		logger.FromContext(ctx).Error("failed to remove staged image: %v", err)
		return errors.NewInternalError(err)
	}
	return nil
}

func (s *puzzleService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// resolve validates dayKey and returns its canonical storage instant.
func (s *puzzleService) resolve(dayKey string) (civilday.Key, time.Time, error) {
	key, err := civilday.ParseKey(dayKey)
	if err != nil {
		return "", time.Time{}, errors.NewInvalidDateError(dayKey, err)
	}
	at, err := s.days.CanonicalInstant(key)
	if err != nil {
		return "", time.Time{}, errors.NewInvalidDateError(dayKey, err)
	}
	return key, at, nil
}

func validatePair(p models.ImagePair) error {
	if p.HumanImageURL == "" {
		return errors.NewValidationError("humanImageUrl", "cannot be empty")
	}
	if p.AIImageURL == "" {
		return errors.NewValidationError("aiImageUrl", "cannot be empty")
	}
	return nil
}

func displayPairs(day *models.PuzzleDay) []models.DisplayPair {
	out := make([]models.DisplayPair, 0, len(day.Pairs))
	for _, p := range day.Pairs {
		if !p.Playable() {
			continue
		}
		out = append(out, models.DisplayPair{HumanImageURL: p.HumanImageURL, AIImageURL: p.AIImageURL})
	}
	return out
}
