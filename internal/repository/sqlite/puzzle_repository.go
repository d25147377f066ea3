package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/vytor/realorai/internal/logger"
	"github.com/vytor/realorai/internal/models"
	"github.com/vytor/realorai/internal/repository"
)

const dayColumns = `id, day_key, scheduled_date, status, created_at, updated_at`

const pairColumns = `id, human_image_url, ai_image_url, description, style_analysis, generation_prompt, model, generated_at, created_at`

type puzzleRepository struct {
	db *sql.DB
}

// NewPuzzleRepository creates a new PuzzleRepository implementation
func NewPuzzleRepository(db *sql.DB) repository.PuzzleRepository {
	return &puzzleRepository{db: db}
}

func (r *puzzleRepository) GetDay(ctx context.Context, dayKey string) (*models.PuzzleDay, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("getting day: %s", dayKey)

	day, err := loadDay(ctx, r.db, `WHERE day_key = ?`, dayKey)
	if err != nil {
		log.Error("failed to get day %s: %v", dayKey, err)
		return nil, err
	}
	if day == nil {
		log.Debug("day not found: %s", dayKey)
	}
	return day, nil
}

func (r *puzzleRepository) FindDayInRange(ctx context.Context, start, end time.Time) (*models.PuzzleDay, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("finding day in range [%s, %s)", start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))

	day, err := loadDay(ctx, r.db, `WHERE scheduled_date >= ? AND scheduled_date < ? ORDER BY scheduled_date LIMIT 1`, start.UTC(), end.UTC())
	if err != nil {
		log.Error("failed to find day in range: %v", err)
		return nil, err
	}
	return day, nil
}

func (r *puzzleRepository) FullDayKeys(ctx context.Context, fromKey string, limit int, maxPairs int) ([]string, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("listing full days from %s (limit=%d)", fromKey, limit)

	rows, err := r.db.QueryContext(ctx, `
SELECT day_key FROM puzzle_days
WHERE day_key >= ? AND pair_count >= ?
ORDER BY day_key
LIMIT ?
`, fromKey, maxPairs, limit)
	if err != nil {
		log.Error("failed to list full days: %v", err)
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	log.Debug("found %d full days", len(keys))
	return keys, rows.Err()
}

func (r *puzzleRepository) ListDays(ctx context.Context, filter models.DayFilter) ([]models.DaySummary, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("listing days: from=%s, to=%s, status=%s", filter.From, filter.To, filter.Status)

	query := sqlBuilder.Select("day_key", "scheduled_date", "status", "pair_count").From("puzzle_days")
	if filter.From != "" {
		query = query.Where(squirrel.GtOrEq{"day_key": filter.From})
	}
	if filter.To != "" {
		query = query.Where(squirrel.LtOrEq{"day_key": filter.To})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 366
	}
	query = query.OrderBy("day_key ASC").Limit(uint64(limit))

	stmt, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		log.Error("failed to list days: %v", err)
		return nil, err
	}
	defer rows.Close()

	days := []models.DaySummary{}
	for rows.Next() {
		var d models.DaySummary
		if err := rows.Scan(&d.DayKey, &d.ScheduledDate, &d.Status, &d.PairCount); err != nil {
			log.Error("failed to scan day row: %v", err)
			return nil, err
		}
		d.ScheduledDate = d.ScheduledDate.UTC()
		days = append(days, d)
	}
	log.Debug("found %d days", len(days))
	return days, rows.Err()
}

func (r *puzzleRepository) AppendPair(ctx context.Context, dayKey string, scheduledAt time.Time, pair models.ImagePair, maxPairs int) (*models.PuzzleDay, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("appending pair to day %s", dayKey)

	if pair.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		pair.ID = id.String()
	}

	var day *models.PuzzleDay
	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		if err := ensureDay(ctx, tx, dayKey, scheduledAt); err != nil {
			return err
		}

		var dayID int64
		err := tx.QueryRowContext(ctx, `
UPDATE puzzle_days
SET pair_count = pair_count + 1, updated_at = CURRENT_TIMESTAMP
WHERE day_key = ? AND pair_count < ?
RETURNING id
`, dayKey, maxPairs).Scan(&dayID)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrCapacityExceeded
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO image_pairs (id, day_id, human_image_url, ai_image_url, description, style_analysis, generation_prompt, model, generated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, pair.ID, dayID, pair.HumanImageURL, pair.AIImageURL, pair.Metadata.Description, pair.Metadata.StyleAnalysis,
			pair.Metadata.GenerationPrompt, pair.Metadata.Model, nullTime(pair.Metadata.GeneratedAt)); err != nil {
			return err
		}

		day, err = loadDay(ctx, tx, `WHERE id = ?`, dayID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrCapacityExceeded) {
			log.Debug("day %s is full", dayKey)
		} else {
			log.Error("failed to append pair to day %s: %v", dayKey, err)
		}
		return nil, err
	}
	log.Debug("pair %s appended to day %s (%d pairs)", pair.ID, dayKey, len(day.Pairs))
	return day, nil
}

func (r *puzzleRepository) ReplacePair(ctx context.Context, dayKey string, pairID string, pair models.ImagePair) (*models.ImagePair, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("replacing pair %s on day %s", pairID, dayKey)

	var updated *models.ImagePair
	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE image_pairs
SET human_image_url = ?, ai_image_url = ?, description = ?, style_analysis = ?, generation_prompt = ?, model = ?, generated_at = ?
WHERE id = ? AND day_id = (SELECT id FROM puzzle_days WHERE day_key = ?)
`, pair.HumanImageURL, pair.AIImageURL, pair.Metadata.Description, pair.Metadata.StyleAnalysis,
			pair.Metadata.GenerationPrompt, pair.Metadata.Model, nullTime(pair.Metadata.GeneratedAt), pairID, dayKey)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return repository.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, `UPDATE puzzle_days SET updated_at = CURRENT_TIMESTAMP WHERE day_key = ?`, dayKey); err != nil {
			return err
		}

		row := tx.QueryRowContext(ctx, `SELECT `+pairColumns+` FROM image_pairs WHERE id = ?`, pairID)
		p, err := scanPair(row)
		if err != nil {
			return err
		}
		updated = &p
		return nil
	})
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Error("failed to replace pair %s: %v", pairID, err)
		}
		return nil, err
	}
	return updated, nil
}

func (r *puzzleRepository) RemovePair(ctx context.Context, dayKey string, pairID string) error {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("removing pair %s from day %s", pairID, dayKey)

	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM image_pairs
WHERE id = ? AND day_id = (SELECT id FROM puzzle_days WHERE day_key = ?)
`, pairID, dayKey)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return repository.ErrNotFound
		}
		_, err = tx.ExecContext(ctx, `
UPDATE puzzle_days SET pair_count = pair_count - 1, updated_at = CURRENT_TIMESTAMP WHERE day_key = ?
`, dayKey)
		return err
	})
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Error("failed to remove pair %s: %v", pairID, err)
	}
	return err
}

func (r *puzzleRepository) UpdateStatus(ctx context.Context, dayKey string, status string) error {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("updating day %s status to %s", dayKey, status)

	res, err := r.db.ExecContext(ctx, `
UPDATE puzzle_days SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE day_key = ?
`, status, dayKey)
	if err != nil {
		log.Error("failed to update day status: %v", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *puzzleRepository) DeleteDay(ctx context.Context, dayKey string) error {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("deleting day %s", dayKey)

	res, err := r.db.ExecContext(ctx, `DELETE FROM puzzle_days WHERE day_key = ?`, dayKey)
	if err != nil {
		log.Error("failed to delete day: %v", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	log.Info("day %s deleted", dayKey)
	return nil
}

func (r *puzzleRepository) AddPendingImage(ctx context.Context, dayKey string, scheduledAt time.Time, image models.PendingHumanImage) (*models.PendingHumanImage, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("staging human image on day %s", dayKey)

	if image.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		image.ID = id.String()
	}
	image.DayKey = dayKey

	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		if err := ensureDay(ctx, tx, dayKey, scheduledAt); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO pending_human_images (id, day_id, human_image_url)
SELECT ?, id, ? FROM puzzle_days WHERE day_key = ?
`, image.ID, image.HumanImageURL, dayKey)
		if err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT created_at FROM pending_human_images WHERE id = ?`, image.ID).Scan(&image.CreatedAt)
	})
	if err != nil {
		log.Error("failed to stage human image: %v", err)
		return nil, err
	}
	return &image, nil
}

func (r *puzzleRepository) ListPendingImages(ctx context.Context, dayKey string) ([]models.PendingHumanImage, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("listing staged images for day %s", dayKey)

	rows, err := r.db.QueryContext(ctx, `
SELECT p.id, d.day_key, p.human_image_url, p.created_at
FROM pending_human_images p
JOIN puzzle_days d ON d.id = p.day_id
WHERE d.day_key = ?
ORDER BY p.created_at, p.id
`, dayKey)
	if err != nil {
		log.Error("failed to list staged images: %v", err)
		return nil, err
	}
	defer rows.Close()

	images := []models.PendingHumanImage{}
	for rows.Next() {
		var img models.PendingHumanImage
		if err := rows.Scan(&img.ID, &img.DayKey, &img.HumanImageURL, &img.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

func (r *puzzleRepository) RemovePendingImage(ctx context.Context, id string) error {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("removing staged image %s", id)

	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_human_images WHERE id = ?`, id)
	if err != nil {
		log.Error("failed to remove staged image: %v", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *puzzleRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func ensureDay(ctx context.Context, q querier, dayKey string, scheduledAt time.Time) error {
	_, err := q.ExecContext(ctx, `
INSERT INTO puzzle_days (day_key, scheduled_date, status)
VALUES (?, ?, 'pending')
ON CONFLICT(day_key) DO NOTHING
`, dayKey, scheduledAt.UTC())
	return err
}

// loadDay reads one day row selected by where, and its pairs in display order.
func loadDay(ctx context.Context, q querier, where string, args ...any) (*models.PuzzleDay, error) {
	var d models.PuzzleDay
	err := q.QueryRowContext(ctx, `SELECT `+dayColumns+` FROM puzzle_days `+where, args...).
		Scan(&d.ID, &d.DayKey, &d.ScheduledDate, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.ScheduledDate = d.ScheduledDate.UTC()

	rows, err := q.QueryContext(ctx, `SELECT `+pairColumns+` FROM image_pairs WHERE day_id = ? ORDER BY seq`, d.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	d.Pairs = []models.ImagePair{}
	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		d.Pairs = append(d.Pairs, p)
	}
	return &d, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPair(s scanner) (models.ImagePair, error) {
	var p models.ImagePair
	var generatedAt sql.NullTime
	err := s.Scan(&p.ID, &p.HumanImageURL, &p.AIImageURL, &p.Metadata.Description, &p.Metadata.StyleAnalysis,
		&p.Metadata.GenerationPrompt, &p.Metadata.Model, &generatedAt, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	p.Metadata.GeneratedAt = timePtr(generatedAt)
	return p, nil
}
