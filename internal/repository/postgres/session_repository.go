package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vytor/realorai/internal/logger"
	"github.com/vytor/realorai/internal/models"
	"github.com/vytor/realorai/internal/repository"
)

const sessionColumns = `user_id, tries_remaining, last_played_date, last_selection_made_date, last_tries_made_date,
	selections, completed_selections, already_guessed, attempts, completed_attempts,
	current_streak, max_streak, perfect_streak, max_perfect_streak, perfect_puzzles, games_played,
	win_percentage, mistake_distribution, most_recent_score, version, created_at, updated_at,
	last_attempt_recorded_date`

// SessionRepository stores player sessions in PostgreSQL. Answer state lives in JSONB columns.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

var _ repository.SessionRepository = (*SessionRepository)(nil)

func (r *SessionRepository) Get(ctx context.Context, userID string) (*models.PlayerSession, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("getting session: user=%s", userID)

	s, err := scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM player_sessions WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		log.Error("failed to get session: %v", err)
		return nil, err
	}
	return s, nil
}

func (r *SessionRepository) Create(ctx context.Context, s *models.PlayerSession) (*models.PlayerSession, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("creating session: user=%s", s.UserID)

	_, err := r.pool.Exec(ctx, `
		INSERT INTO player_sessions (
			user_id, tries_remaining, last_played_date, last_selection_made_date, last_tries_made_date,
			selections, completed_selections, already_guessed, attempts, completed_attempts,
			current_streak, max_streak, perfect_streak, max_perfect_streak, perfect_puzzles, games_played,
			win_percentage, mistake_distribution, most_recent_score, last_attempt_recorded_date, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, 1)
		ON CONFLICT (user_id) DO NOTHING
	`, s.UserID, s.TriesRemaining, s.LastPlayedDate, s.LastSelectionMadeDate, s.LastTriesMadeDate,
		orEmpty(s.Selections), orEmpty(s.CompletedSelections), orEmpty(s.AlreadyGuessed), orEmpty(s.Attempts), orEmpty(s.CompletedAttempts),
		s.CurrentStreak, s.MaxStreak, s.PerfectStreak, s.MaxPerfectStreak, s.PerfectPuzzles, s.GamesPlayed,
		s.WinPercentage, distribution(s), s.MostRecentScore, s.LastAttemptRecordedDate)
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

func (r *SessionRepository) Update(ctx context.Context, s *models.PlayerSession) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("updating session: user=%s, version=%d", s.UserID, s.Version)

	var version int64
	err := r.pool.QueryRow(ctx, `
		UPDATE player_sessions SET
			tries_remaining = $1, last_played_date = $2, last_selection_made_date = $3, last_tries_made_date = $4,
			selections = $5, completed_selections = $6, already_guessed = $7, attempts = $8, completed_attempts = $9,
			current_streak = $10, max_streak = $11, perfect_streak = $12, max_perfect_streak = $13,
			perfect_puzzles = $14, games_played = $15, win_percentage = $16, mistake_distribution = $17,
			most_recent_score = $18, last_attempt_recorded_date = $21,
			version = version + 1, updated_at = NOW()
		WHERE user_id = $19 AND version = $20
		RETURNING version
	`, s.TriesRemaining, s.LastPlayedDate, s.LastSelectionMadeDate, s.LastTriesMadeDate,
		orEmpty(s.Selections), orEmpty(s.CompletedSelections), orEmpty(s.AlreadyGuessed), orEmpty(s.Attempts), orEmpty(s.CompletedAttempts),
		s.CurrentStreak, s.MaxStreak, s.PerfectStreak, s.MaxPerfectStreak,
		s.PerfectPuzzles, s.GamesPlayed, s.WinPercentage, distribution(s),
		s.MostRecentScore, s.UserID, s.Version, s.LastAttemptRecordedDate).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM player_sessions WHERE user_id = $1)`, s.UserID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		log.Debug("session version conflict: user=%s", s.UserID)
		return repository.ErrConflict
	}
	if err != nil {
		log.Error("failed to update session: %v", err)
		return err
	}
	s.Version = version
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, userID string) error {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("deleting session: user=%s", userID)

	tag, err := r.pool.Exec(ctx, `DELETE FROM player_sessions WHERE user_id = $1`, userID)
	if err != nil {
		log.Error("failed to delete session: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func distribution(s *models.PlayerSession) map[int]int {
	if s.MistakeDistribution == nil {
		return map[int]int{}
	}
	return s.MistakeDistribution
}

func scanSession(row pgx.Row) (*models.PlayerSession, error) {
	var s models.PlayerSession
	err := row.Scan(&s.UserID, &s.TriesRemaining, &s.LastPlayedDate, &s.LastSelectionMadeDate, &s.LastTriesMadeDate,
		&s.Selections, &s.CompletedSelections, &s.AlreadyGuessed, &s.Attempts, &s.CompletedAttempts,
		&s.CurrentStreak, &s.MaxStreak, &s.PerfectStreak, &s.MaxPerfectStreak, &s.PerfectPuzzles, &s.GamesPlayed,
		&s.WinPercentage, &s.MistakeDistribution, &s.MostRecentScore, &s.Version, &s.CreatedAt, &s.UpdatedAt,
		&s.LastAttemptRecordedDate)
	if err != nil {
		return nil, err
	}
	if s.MistakeDistribution == nil {
		s.MistakeDistribution = models.NewMistakeDistribution()
	}
	return &s, nil
}
