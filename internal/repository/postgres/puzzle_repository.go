package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vytor/realorai/internal/logger"
	"github.com/vytor/realorai/internal/models"
	"github.com/vytor/realorai/internal/repository"
)

const dayColumns = `id, day_key, scheduled_date, status, created_at, updated_at`

const pairColumns = `id, human_image_url, ai_image_url, description, style_analysis, generation_prompt, model, generated_at, created_at`

// PuzzleRepository stores puzzle days in PostgreSQL.
type PuzzleRepository struct {
	pool *pgxpool.Pool
}

// NewPuzzleRepository creates a new puzzle repository
func NewPuzzleRepository(pool *pgxpool.Pool) *PuzzleRepository {
	return &PuzzleRepository{pool: pool}
}

var _ repository.PuzzleRepository = (*PuzzleRepository)(nil)

func (r *PuzzleRepository) GetDay(ctx context.Context, dayKey string) (*models.PuzzleDay, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("getting day: %s", dayKey)

	day, err := loadDay(ctx, r.pool, `WHERE day_key = $1`, dayKey)
	if err != nil {
		log.Error("failed to get day %s: %v", dayKey, err)
		return nil, err
	}
	return day, nil
}

func (r *PuzzleRepository) FindDayInRange(ctx context.Context, start, end time.Time) (*models.PuzzleDay, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("finding day in range [%s, %s)", start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))

	day, err := loadDay(ctx, r.pool, `WHERE scheduled_date >= $1 AND scheduled_date < $2 ORDER BY scheduled_date LIMIT 1`, start.UTC(), end.UTC())
	if err != nil {
		log.Error("failed to find day in range: %v", err)
		return nil, err
	}
	return day, nil
}

func (r *PuzzleRepository) FullDayKeys(ctx context.Context, fromKey string, limit int, maxPairs int) ([]string, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("listing full days from %s (limit=%d)", fromKey, limit)

	rows, err := r.pool.Query(ctx, `
		SELECT day_key FROM puzzle_days
		WHERE day_key >= $1 AND pair_count >= $2
		ORDER BY day_key
		LIMIT $3
	`, fromKey, maxPairs, limit)
	if err != nil {
		log.Error("failed to list full days: %v", err)
		return nil, err
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *PuzzleRepository) ListDays(ctx context.Context, filter models.DayFilter) ([]models.DaySummary, error) {
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

	rows, err := r.pool.Query(ctx, stmt, args...)
	if err != nil {
		log.Error("failed to list days: %v", err)
		return nil, err
	}
	defer rows.Close()

	days := []models.DaySummary{}
	for rows.Next() {
		var d models.DaySummary
		if err := rows.Scan(&d.DayKey, &d.ScheduledDate, &d.Status, &d.PairCount); err != nil {
			return nil, err
		}
		d.ScheduledDate = d.ScheduledDate.UTC()
		days = append(days, d)
	}
	return days, rows.Err()
}

func (r *PuzzleRepository) AppendPair(ctx context.Context, dayKey string, scheduledAt time.Time, pair models.ImagePair, maxPairs int) (*models.PuzzleDay, error) {
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
	err := tx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := ensureDay(ctx, tx, dayKey, scheduledAt); err != nil {
			return err
		}

		// The row lock taken here serialises concurrent appends to the same day.
		var dayID int64
		err := tx.QueryRow(ctx, `
			UPDATE puzzle_days
			SET pair_count = pair_count + 1, updated_at = NOW()
			WHERE day_key = $1 AND pair_count < $2
			RETURNING id
		`, dayKey, maxPairs).Scan(&dayID)
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrCapacityExceeded
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO image_pairs (id, day_id, human_image_url, ai_image_url, description, style_analysis, generation_prompt, model, generated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, pair.ID, dayID, pair.HumanImageURL, pair.AIImageURL, pair.Metadata.Description, pair.Metadata.StyleAnalysis,
			pair.Metadata.GenerationPrompt, pair.Metadata.Model, pair.Metadata.GeneratedAt); err != nil {
			return err
		}

		day, err = loadDay(ctx, tx, `WHERE id = $1`, dayID)
		return err
	})
	if err != nil {
		if !errors.Is(err, repository.ErrCapacityExceeded) {
			log.Error("failed to append pair to day %s: %v", dayKey, err)
		}
		return nil, err
	}
	return day, nil
}

func (r *PuzzleRepository) ReplacePair(ctx context.Context, dayKey string, pairID string, pair models.ImagePair) (*models.ImagePair, error) {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("replacing pair %s on day %s", pairID, dayKey)

	var updated models.ImagePair
	err := tx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE image_pairs
			SET human_image_url = $1, ai_image_url = $2, description = $3, style_analysis = $4,
			    generation_prompt = $5, model = $6, generated_at = $7
			WHERE id = $8 AND day_id = (SELECT id FROM puzzle_days WHERE day_key = $9)
			RETURNING `+pairColumns,
			pair.HumanImageURL, pair.AIImageURL, pair.Metadata.Description, pair.Metadata.StyleAnalysis,
			pair.Metadata.GenerationPrompt, pair.Metadata.Model, pair.Metadata.GeneratedAt, pairID, dayKey)
		p, err := scanPair(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return err
		}
		updated = p
		_, err = tx.Exec(ctx, `UPDATE puzzle_days SET updated_at = NOW() WHERE day_key = $1`, dayKey)
		return err
	})
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Error("failed to replace pair %s: %v", pairID, err)
		}
		return nil, err
	}
	return &updated, nil
}

func (r *PuzzleRepository) RemovePair(ctx context.Context, dayKey string, pairID string) error {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("removing pair %s from day %s", pairID, dayKey)

	err := tx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			DELETE FROM image_pairs
			WHERE id = $1 AND day_id = (SELECT id FROM puzzle_days WHERE day_key = $2)
		`, pairID, dayKey)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		_, err = tx.Exec(ctx, `
			UPDATE puzzle_days SET pair_count = pair_count - 1, updated_at = NOW() WHERE day_key = $1
		`, dayKey)
		return err
	})
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Error("failed to remove pair %s: %v", pairID, err)
	}
	return err
}

func (r *PuzzleRepository) UpdateStatus(ctx context.Context, dayKey string, status string) error {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("updating day %s status to %s", dayKey, status)

	tag, err := r.pool.Exec(ctx, `UPDATE puzzle_days SET status = $1, updated_at = NOW() WHERE day_key = $2`, status, dayKey)
	if err != nil {
		log.Error("failed to update day status: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PuzzleRepository) DeleteDay(ctx context.Context, dayKey string) error {
	log := logger.FromContext(ctx).WithPrefix("puzzle_repo")
	log.Debug("deleting day %s", dayKey)

	tag, err := r.pool.Exec(ctx, `DELETE FROM puzzle_days WHERE day_key = $1`, dayKey)
	if err != nil {
		log.Error("failed to delete day: %v", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PuzzleRepository) AddPendingImage(ctx context.Context, dayKey string, scheduledAt time.Time, image models.PendingHumanImage) (*models.PendingHumanImage, error) {
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

	err := tx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := ensureDay(ctx, tx, dayKey, scheduledAt); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO pending_human_images (id, day_id, human_image_url)
			SELECT $1, id, $2 FROM puzzle_days WHERE day_key = $3
			RETURNING created_at
		`, image.ID, image.HumanImageURL, dayKey).Scan(&image.CreatedAt)
	})
	if err != nil {
		log.Error("failed to stage human image: %v", err)
		return nil, err
	}
	return &image, nil
}

func (r *PuzzleRepository) ListPendingImages(ctx context.Context, dayKey string) ([]models.PendingHumanImage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, d.day_key, p.human_image_url, p.created_at
		FROM pending_human_images p
		JOIN puzzle_days d ON d.id = p.day_id
		WHERE d.day_key = $1
		ORDER BY p.created_at, p.id
	`, dayKey)
	if err != nil {
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

func (r *PuzzleRepository) RemovePendingImage(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM pending_human_images WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *PuzzleRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func ensureDay(ctx context.Context, q Queryable, dayKey string, scheduledAt time.Time) error {
	_, err := q.Exec(ctx, `
		INSERT INTO puzzle_days (day_key, scheduled_date, status)
		VALUES ($1, $2, 'pending')
		ON CONFLICT (day_key) DO NOTHING
	`, dayKey, scheduledAt.UTC())
	return err
}

func loadDay(ctx context.Context, q Queryable, where string, args ...any) (*models.PuzzleDay, error) {
	var d models.PuzzleDay
	err := q.QueryRow(ctx, `SELECT `+dayColumns+` FROM puzzle_days `+where, args...).
		Scan(&d.ID, &d.DayKey, &d.ScheduledDate, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.ScheduledDate = d.ScheduledDate.UTC()

	rows, err := q.Query(ctx, `SELECT `+pairColumns+` FROM image_pairs WHERE day_id = $1 ORDER BY seq`, d.ID)
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

func scanPair(row pgx.Row) (models.ImagePair, error) {
	var p models.ImagePair
	err := row.Scan(&p.ID, &p.HumanImageURL, &p.AIImageURL, &p.Metadata.Description, &p.Metadata.StyleAnalysis,
		&p.Metadata.GenerationPrompt, &p.Metadata.Model, &p.Metadata.GeneratedAt, &p.CreatedAt)
	return p, err
}
