package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/vytor/realorai/internal/logger"
	"github.com/vytor/realorai/internal/models"
	"github.com/vytor/realorai/internal/repository"
)

const sessionColumns = `user_id, tries_remaining, last_played_date, last_selection_made_date, last_tries_made_date,
       selections, completed_selections, already_guessed, attempts, completed_attempts,
       current_streak, max_streak, perfect_streak, max_perfect_streak, perfect_puzzles, games_played,
       win_percentage, mistake_distribution, most_recent_score, version, created_at, updated_at,
       last_attempt_recorded_date`

type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository implementation
func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Get(ctx context.Context, userID string) (*models.PlayerSession, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("getting session: user=%s", userID)

	s, err := scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM player_sessions WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("session not found: user=%s", userID)
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get session: %v", err)
		return nil, err
	}
	return s, nil
}

func (r *sessionRepository) Create(ctx context.Context, s *models.PlayerSession) (*models.PlayerSession, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("creating session: user=%s", s.UserID)

	cols, err := encodeSession(s)
	if err != nil {
		return nil, err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO player_sessions (
    user_id, tries_remaining, last_played_date, last_selection_made_date, last_tries_made_date,
    selections, completed_selections, already_guessed, attempts, completed_attempts,
    current_streak, max_streak, perfect_streak, max_perfect_streak, perfect_puzzles, games_played,
    win_percentage, mistake_distribution, most_recent_score, last_attempt_recorded_date, version
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
ON CONFLICT(user_id) DO NOTHING
`, s.UserID, s.TriesRemaining, s.LastPlayedDate, s.LastSelectionMadeDate, s.LastTriesMadeDate,
		cols.selections, cols.completedSelections, cols.alreadyGuessed, cols.attempts, cols.completedAttempts,
		s.CurrentStreak, s.MaxStreak, s.PerfectStreak, s.MaxPerfectStreak, s.PerfectPuzzles, s.GamesPlayed,
		s.WinPercentage, cols.mistakeDistribution, s.MostRecentScore, s.LastAttemptRecordedDate)
	if err != nil {
		log.Error("failed to create session: %v", err)
		return nil, err
	}

	stored, err := r.Get(ctx, s.UserID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, repository.ErrNotFound
	}
	return stored, nil
}

func (r *sessionRepository) Update(ctx context.Context, s *models.PlayerSession) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("updating session: user=%s, version=%d", s.UserID, s.Version)

	cols, err := encodeSession(s)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE player_sessions SET
    tries_remaining = ?, last_played_date = ?, last_selection_made_date = ?, last_tries_made_date = ?,
    selections = ?, completed_selections = ?, already_guessed = ?, attempts = ?, completed_attempts = ?,
    current_streak = ?, max_streak = ?, perfect_streak = ?, max_perfect_streak = ?, perfect_puzzles = ?,
    games_played = ?, win_percentage = ?, mistake_distribution = ?, most_recent_score = ?,
    last_attempt_recorded_date = ?,
    version = version + 1, updated_at = CURRENT_TIMESTAMP
WHERE user_id = ? AND version = ?
`, s.TriesRemaining, s.LastPlayedDate, s.LastSelectionMadeDate, s.LastTriesMadeDate,
		cols.selections, cols.completedSelections, cols.alreadyGuessed, cols.attempts, cols.completedAttempts,
		s.CurrentStreak, s.MaxStreak, s.PerfectStreak, s.MaxPerfectStreak, s.PerfectPuzzles,
		s.GamesPlayed, s.WinPercentage, cols.mistakeDistribution, s.MostRecentScore,
		s.LastAttemptRecordedDate, s.UserID, s.Version)
	if err != nil {
		log.Error("failed to update session: %v", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM player_sessions WHERE user_id = ?`, s.UserID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return err
		}
		log.Debug("session version conflict: user=%s", s.UserID)
		return repository.ErrConflict
	}
	s.Version++
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, userID string) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("deleting session: user=%s", userID)

	res, err := r.db.ExecContext(ctx, `DELETE FROM player_sessions WHERE user_id = ?`, userID)
	if err != nil {
		log.Error("failed to delete session: %v", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type sessionJSON struct {
	selections          string
	completedSelections string
	alreadyGuessed      string
	attempts            string
	completedAttempts   string
	mistakeDistribution string
}

func encodeSession(s *models.PlayerSession) (sessionJSON, error) {
	var out sessionJSON
	fields := []struct {
		dst *string
		v   any
	}{
		{&out.selections, orEmpty(s.Selections)},
		{&out.completedSelections, orEmpty(s.CompletedSelections)},
		{&out.alreadyGuessed, orEmpty(s.AlreadyGuessed)},
		{&out.attempts, orEmpty(s.Attempts)},
		{&out.completedAttempts, orEmpty(s.CompletedAttempts)},
		{&out.mistakeDistribution, s.MistakeDistribution},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.v)
		if err != nil {
			return out, err
		}
		*f.dst = string(b)
	}
	if s.MistakeDistribution == nil {
		out.mistakeDistribution = "{}"
	}
	return out, nil
}

// orEmpty keeps nil slices from being stored as JSON null.
func orEmpty[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

func scanSession(row *sql.Row) (*models.PlayerSession, error) {
	var s models.PlayerSession
	var cols sessionJSON
	var mostRecent sql.NullInt64
	err := row.Scan(&s.UserID, &s.TriesRemaining, &s.LastPlayedDate, &s.LastSelectionMadeDate, &s.LastTriesMadeDate,
		&cols.selections, &cols.completedSelections, &cols.alreadyGuessed, &cols.attempts, &cols.completedAttempts,
		&s.CurrentStreak, &s.MaxStreak, &s.PerfectStreak, &s.MaxPerfectStreak, &s.PerfectPuzzles, &s.GamesPlayed,
		&s.WinPercentage, &cols.mistakeDistribution, &mostRecent, &s.Version, &s.CreatedAt, &s.UpdatedAt,
		&s.LastAttemptRecordedDate)
	if err != nil {
		return nil, err
	}
	if mostRecent.Valid {
		v := int(mostRecent.Int64)
		s.MostRecentScore = &v
	}
	if err := decodeSession(&s, cols); err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeSession(s *models.PlayerSession, cols sessionJSON) error {
	targets := []struct {
		src string
		dst any
	}{
		{cols.selections, &s.Selections},
		{cols.completedSelections, &s.CompletedSelections},
		{cols.alreadyGuessed, &s.AlreadyGuessed},
		{cols.attempts, &s.Attempts},
		{cols.completedAttempts, &s.CompletedAttempts},
		{cols.mistakeDistribution, &s.MistakeDistribution},
	}
	for _, t := range targets {
		if err := json.Unmarshal([]byte(t.src), t.dst); err != nil {
			return err
		}
	}
	if s.MistakeDistribution == nil {
		s.MistakeDistribution = models.NewMistakeDistribution()
	}
	return nil
}
