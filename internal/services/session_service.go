package services

import (
	"context"
	stderrors "errors"
	"math"
	"strings"

	"github.com/vytor/realorai/internal/civilday"
	"github.com/vytor/realorai/internal/errors"
	"github.com/vytor/realorai/internal/logger"
	"github.com/vytor/realorai/internal/models"
	"github.com/vytor/realorai/internal/repository"
)

// DefaultSessionRetries bounds re-reads after a concurrent session update.
const DefaultSessionRetries = 3

// SessionService derives per-player streak, tries and selection state from
// the current civil day. There is no rollover job: stale state is repaired
// the first time it is touched on a new day.
type SessionService interface {
	EnsureSession(ctx context.Context, userID string) (*models.PlayerSession, error)
	HasPlayedToday(ctx context.Context, userID string) (bool, error)
	RecordCompletion(ctx context.Context, userID string, wasPerfect bool) (*models.StreakState, error)
	RecordAttempt(ctx context.Context, userID string, correctCount, totalCount int) (*models.PlayerStats, error)
	GetSelections(ctx context.Context, userID string) (*models.SelectionState, error)
	SaveSelections(ctx context.Context, userID string, selections []models.Selection) (*models.SelectionState, error)
	SaveAttempt(ctx context.Context, userID string, selections []models.Selection, correctCount int) (*models.SelectionState, error)
	DecrementTries(ctx context.Context, userID string) (int, error)
	// DecrementTriesIfAvailable spends one try, failing with NO_TRIES_REMAINING at zero.
	DecrementTriesIfAvailable(ctx context.Context, userID string) (int, error)
	ResetTriesIfDue(ctx context.Context, userID string) (*models.PlayerSession, error)
	GetStats(ctx context.Context, userID string) (*models.PlayerStats, error)
	DeleteSession(ctx context.Context, userID string) error
}

type sessionService struct {
	repo    repository.SessionRepository
	days    *civilday.Resolver
	retries int
}

// NewSessionService creates a new SessionService. retries <= 0 uses DefaultSessionRetries.
func NewSessionService(repo repository.SessionRepository, days *civilday.Resolver, retries int) SessionService {
	if retries <= 0 {
		retries = DefaultSessionRetries
	}
	return &sessionService{repo: repo, days: days, retries: retries}
}

func (s *sessionService) EnsureSession(ctx context.Context, userID string) (*models.PlayerSession, error) {
	log := logger.FromContext(ctx)
	log.Debug("ensuring session: user=%s", userID)
	return s.load(ctx, userID, true)
}

func (s *sessionService) HasPlayedToday(ctx context.Context, userID string) (bool, error) {
	log := logger.FromContext(ctx)
	log.Debug("checking played today: user=%s", userID)

	sess, err := s.load(ctx, userID, false)
	if err != nil {
		return false, err
	}
	return sess.LastPlayedDate == s.days.TodayKey().String(), nil
}

func (s *sessionService) RecordCompletion(ctx context.Context, userID string, wasPerfect bool) (*models.StreakState, error) {
	log := logger.FromContext(ctx)
	log.Debug("recording completion: user=%s, perfect=%t", userID, wasPerfect)

	sess, err := s.mutate(ctx, userID, false, func(sess *models.PlayerSession, today, yesterday string) bool {
		switch sess.LastPlayedDate {
		case yesterday:
			sess.CurrentStreak++
			if wasPerfect {
				sess.PerfectStreak++
			} else {
				sess.PerfectStreak = 0
			}
		case today:
			// Already recorded today; streaks stay as they are.
		default:
			sess.CurrentStreak = 1
			sess.PerfectStreak = 0
			if wasPerfect {
				sess.PerfectStreak = 1
			}
		}
		sess.MaxStreak = max(sess.MaxStreak, sess.CurrentStreak)
		sess.MaxPerfectStreak = max(sess.MaxPerfectStreak, sess.PerfectStreak)
		sess.LastPlayedDate = today
		return true
	})
	if err != nil {
		return nil, err
	}

	log.Info("completion recorded: user=%s, streak=%d, perfect_streak=%d", userID, sess.CurrentStreak, sess.PerfectStreak)
	return &models.StreakState{
		CurrentStreak:    sess.CurrentStreak,
		MaxStreak:        sess.MaxStreak,
		PerfectStreak:    sess.PerfectStreak,
		MaxPerfectStreak: sess.MaxPerfectStreak,
		LastPlayedDate:   sess.LastPlayedDate,
	}, nil
}

func (s *sessionService) RecordAttempt(ctx context.Context, userID string, correctCount, totalCount int) (*models.PlayerStats, error) {
	log := logger.FromContext(ctx)
	log.Debug("recording attempt: user=%s, correct=%d, total=%d", userID, correctCount, totalCount)

	if correctCount < 0 {
		return nil, errors.NewValidationError("correctCount", "cannot be negative")
	}
	if totalCount < 0 {
		return nil, errors.NewValidationError("totalCount", "cannot be negative")
	}

	sess, err := s.mutate(ctx, userID, false, func(sess *models.PlayerSession, today, _ string) bool {
		if sess.LastAttemptRecordedDate == today {
			log.Debug("attempt already recorded today: user=%s", userID)
			return false
		}
		sess.LastAttemptRecordedDate = today
		mistakes := max(totalCount-correctCount, 0)
		if sess.MistakeDistribution == nil {
			sess.MistakeDistribution = models.NewMistakeDistribution()
		}
		sess.GamesPlayed++
		sess.MistakeDistribution[min(mistakes, models.MaxPairs)]++
		if mistakes == 0 {
			sess.PerfectPuzzles++
		}
		score := mistakes
		sess.MostRecentScore = &score
		sess.WinPercentage = int(math.Round(100 * float64(sess.PerfectPuzzles) / float64(sess.GamesPlayed)))
		return true
	})
	if err != nil {
		return nil, err
	}
	return models.StatsOf(sess), nil
}

// GetSelections returns today's answer state, clearing state left over from a previous day.
func (s *sessionService) GetSelections(ctx context.Context, userID string) (*models.SelectionState, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting selections: user=%s", userID)

	sess, err := s.mutate(ctx, userID, true, func(sess *models.PlayerSession, today, _ string) bool {
		return rollover(sess, today)
	})
	if err != nil {
		return nil, err
	}
	return models.SelectionStateOf(sess), nil
}

func (s *sessionService) SaveSelections(ctx context.Context, userID string, selections []models.Selection) (*models.SelectionState, error) {
	log := logger.FromContext(ctx)
	log.Debug("saving %d selections: user=%s", len(selections), userID)

	if err := validateSelections(selections); err != nil {
		return nil, err
	}

	sess, err := s.mutate(ctx, userID, false, func(sess *models.PlayerSession, today, _ string) bool {
		rollover(sess, today)
		sess.Selections = append([]models.Selection{}, selections...)
		return true
	})
	if err != nil {
		return nil, err
	}
	return models.SelectionStateOf(sess), nil
}

// SaveAttempt appends a submitted guess to today's answer state. A wrong guess
// is fingerprinted into AlreadyGuessed; a fully correct one moves the state
// into the completed lists.
func (s *sessionService) SaveAttempt(ctx context.Context, userID string, selections []models.Selection, correctCount int) (*models.SelectionState, error) {
	log := logger.FromContext(ctx)
	log.Debug("saving attempt: user=%s, correct=%d/%d", userID, correctCount, len(selections))

	if err := validateSelections(selections); err != nil {
		return nil, err
	}
	if correctCount < 0 || correctCount > len(selections) {
		return nil, errors.NewValidationError("correctCount", "must be between 0 and the number of selections")
	}

	sess, err := s.mutate(ctx, userID, false, func(sess *models.PlayerSession, today, _ string) bool {
		rollover(sess, today)
		attempt := models.Attempt{
			Selections:   append([]models.Selection{}, selections...),
			CorrectCount: correctCount,
			TotalCount:   len(selections),
			SubmittedAt:  s.days.Now().UTC(),
		}
		sess.Attempts = append(sess.Attempts, attempt)

		if correctCount == len(selections) {
			sess.CompletedSelections = attempt.Selections
			sess.CompletedAttempts = append(sess.CompletedAttempts, sess.Attempts...)
			sess.Selections = []models.Selection{}
			sess.Attempts = []models.Attempt{}
			return true
		}

		fp := fingerprint(selections)
		for _, g := range sess.AlreadyGuessed {
			if g == fp {
				return true
			}
		}
		sess.AlreadyGuessed = append(sess.AlreadyGuessed, fp)
		return true
	})
	if err != nil {
		return nil, err
	}
	return models.SelectionStateOf(sess), nil
}

// DecrementTries does not clamp at zero; callers check TriesRemaining first.
func (s *sessionService) DecrementTries(ctx context.Context, userID string) (int, error) {
	log := logger.FromContext(ctx)
	log.Debug("decrementing tries: user=%s", userID)
	return s.decrementTries(ctx, userID, false)
}

func (s *sessionService) DecrementTriesIfAvailable(ctx context.Context, userID string) (int, error) {
	log := logger.FromContext(ctx)
	log.Debug("decrementing tries if available: user=%s", userID)
	return s.decrementTries(ctx, userID, true)
}

// decrementTries checks the remaining count on every re-read, so two requests
// racing for the last try cannot both spend it.
func (s *sessionService) decrementTries(ctx context.Context, userID string, requireRemaining bool) (int, error) {
	exhausted := false
	sess, err := s.mutate(ctx, userID, false, func(sess *models.PlayerSession, today, _ string) bool {
		exhausted = requireRemaining && sess.TriesRemaining <= 0
		if exhausted {
			return false
		}
		sess.TriesRemaining--
		sess.LastTriesMadeDate = today
		return true
	})
	if err != nil {
		return 0, err
	}
	if exhausted {
		return 0, errors.NewNoTriesRemainingError()
	}
	return sess.TriesRemaining, nil
}

func (s *sessionService) ResetTriesIfDue(ctx context.Context, userID string) (*models.PlayerSession, error) {
	log := logger.FromContext(ctx)
	log.Debug("resetting tries if due: user=%s", userID)

	return s.mutate(ctx, userID, true, func(sess *models.PlayerSession, today, _ string) bool {
		due := sess.LastPlayedDate == today || sess.LastTriesMadeDate != today
		if !due || sess.TriesRemaining == models.MaxTries {
			return false
		}
		sess.TriesRemaining = models.MaxTries
		return true
	})
}

func (s *sessionService) GetStats(ctx context.Context, userID string) (*models.PlayerStats, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting stats: user=%s", userID)

	sess, err := s.load(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	return models.StatsOf(sess), nil
}

func (s *sessionService) DeleteSession(ctx context.Context, userID string) error {
	log := logger.FromContext(ctx)
	log.Debug("deleting session: user=%s", userID)

	if err := s.repo.Delete(ctx, userID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NewSessionNotFoundError(userID)
		}
		log.Error("failed to delete session: %v", err)
		return errors.NewInternalError(err)
	}
	log.Info("session deleted: user=%s", userID)
	return nil
}

// load fetches the session, creating a zeroed one when create is set.
func (s *sessionService) load(ctx context.Context, userID string, create bool) (*models.PlayerSession, error) {
	log := logger.FromContext(ctx)
	if userID == "" {
		return nil, errors.NewValidationError("userId", "cannot be empty")
	}

	sess, err := s.repo.Get(ctx, userID)
	if err != nil {
		log.Error("failed to get session: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if sess != nil {
		return sess, nil
	}
	if !create {
		return nil, errors.NewSessionNotFoundError(userID)
	}

	log.Info("creating session: user=%s", userID)
	sess, err = s.repo.Create(ctx, models.NewPlayerSession(userID))
	if err != nil {
		log.Error("failed to create session: %v", err)
		return nil, errors.NewInternalError(err)
	}
	return sess, nil
}

// mutate applies fn to a fresh copy of the session and writes it back if fn
// reports a change. A lost optimistic-lock race re-reads and re-applies fn, so
// fn must derive everything from the session it is given.
func (s *sessionService) mutate(ctx context.Context, userID string, create bool, fn func(sess *models.PlayerSession, today, yesterday string) bool) (*models.PlayerSession, error) {
	log := logger.FromContext(ctx)

	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		sess, err := s.load(ctx, userID, create)
		if err != nil {
			return nil, err
		}

		today, yesterday := s.days.TodayKey().String(), s.days.YesterdayKey().String()
		if !fn(sess, today, yesterday) {
			return sess, nil
		}

		err = s.repo.Update(ctx, sess)
		switch {
		case err == nil:
			return sess, nil
		case stderrors.Is(err, repository.ErrConflict):
			log.Debug("session update conflict: user=%s (attempt %d/%d)", userID, attempt, s.retries)
			lastErr = err
		case stderrors.Is(err, repository.ErrNotFound):
			return nil, errors.NewSessionNotFoundError(userID)
		default:
			log.Error("failed to update session: %v", err)
			return nil, errors.NewInternalError(err)
		}
	}

	log.Error("giving up session update after %d conflicts: user=%s", s.retries, userID)
	return nil, errors.NewInternalError(lastErr)
}

// rollover clears answer state recorded for a previous day. It reports whether anything changed.
func rollover(sess *models.PlayerSession, today string) bool {
	if sess.LastSelectionMadeDate == today {
		return false
	}
	sess.ClearAnswerState()
	sess.LastSelectionMadeDate = today
	return true
}

func validateSelections(selections []models.Selection) error {
	if len(selections) > models.MaxPairs {
		return errors.NewValidationError("selections", "too many selections")
	}
	for _, sel := range selections {
		if sel.PairIndex < 0 || sel.PairIndex >= models.MaxPairs {
			return errors.NewValidationError("selections", "pairIndex out of range")
		}
	}
	return nil
}

// fingerprint identifies a guess independent of submission order.
func fingerprint(selections []models.Selection) string {
	urls := make([]string, models.MaxPairs)
	for _, sel := range selections {
		urls[sel.PairIndex] = sel.SelectedURL
	}
	return strings.Join(urls, "|")
}
