package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/vytor/realorai/internal/db"
	"github.com/vytor/realorai/internal/models"
	"github.com/vytor/realorai/internal/repository"
	"github.com/vytor/realorai/internal/repository/postgres"
)

// setupPostgres starts a throwaway PostgreSQL container with migrations applied.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 to run PostgreSQL integration tests")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("realorai_test"),
		tcpostgres.WithUsername("test_user"),
		tcpostgres.WithPassword("test_password"),
		tcpostgres.BasicWaitStrategies(),
		testcontainers.CustomizeRequest(testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Labels: map[string]string{"test": "realorai-repository", "test-name": t.Name()},
			},
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := db.OpenPostgres(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func midnight(day string) time.Time {
	t, _ := time.Parse("2006-01-02", day)
	return t.Add(4 * time.Hour)
}

func pair(n int) models.ImagePair {
	return models.ImagePair{
		HumanImageURL: fmt.Sprintf("https://img.example/human-%d.png", n),
		AIImageURL:    fmt.Sprintf("https://img.example/ai-%d.png", n),
	}
}

func TestPuzzleRepository_Postgres(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewPuzzleRepository(pool)
	ctx := context.Background()

	t.Run("concurrent appends never overflow a day", func(t *testing.T) {
		const writers = 12
		var wg sync.WaitGroup
		results := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, err := repo.AppendPair(ctx, "2024-06-01", midnight("2024-06-01"), pair(n), models.MaxPairs)
				results <- err
			}(i)
		}
		wg.Wait()
		close(results)

		succeeded := 0
		for err := range results {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, repository.ErrCapacityExceeded)
		}
		assert.Equal(t, models.MaxPairs, succeeded)

		day, err := repo.GetDay(ctx, "2024-06-01")
		require.NoError(t, err)
		assert.Len(t, day.Pairs, models.MaxPairs)
	})

	t.Run("find day by civil range", func(t *testing.T) {
		day, err := repo.FindDayInRange(ctx, midnight("2024-06-01"), midnight("2024-06-02"))
		require.NoError(t, err)
		require.NotNil(t, day)
		assert.Equal(t, "2024-06-01", day.DayKey)

		keys, err := repo.FullDayKeys(ctx, "2024-06-01", 10, models.MaxPairs)
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-06-01"}, keys)
	})

	t.Run("replace and remove pairs", func(t *testing.T) {
		day, err := repo.GetDay(ctx, "2024-06-01")
		require.NoError(t, err)

		updated, err := repo.ReplacePair(ctx, "2024-06-01", day.Pairs[0].ID, pair(100))
		require.NoError(t, err)
		assert.Equal(t, day.Pairs[0].ID, updated.ID)

		require.NoError(t, repo.RemovePair(ctx, "2024-06-01", day.Pairs[1].ID))
		assert.ErrorIs(t, repo.RemovePair(ctx, "2024-06-01", day.Pairs[1].ID), repository.ErrNotFound)

		days, err := repo.ListDays(ctx, models.DayFilter{From: "2024-06-01"})
		require.NoError(t, err)
		require.Len(t, days, 1)
		assert.Equal(t, models.MaxPairs-1, days[0].PairCount)
	})
}

func TestSessionRepository_Postgres(t *testing.T) {
	pool := setupPostgres(t)
	repo := postgres.NewSessionRepository(pool)
	ctx := context.Background()

	sess, err := repo.Create(ctx, models.NewPlayerSession("user-1"))
	require.NoError(t, err)
	assert.Equal(t, models.MaxTries, sess.TriesRemaining)

	stale, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)

	sess.Selections = []models.Selection{{PairIndex: 1, SelectedURL: "https://img.example/ai-1.png"}}
	sess.MistakeDistribution[1] = 2
	require.NoError(t, repo.Update(ctx, sess))

	stale.GamesPlayed = 3
	assert.ErrorIs(t, repo.Update(ctx, stale), repository.ErrConflict)

	stored, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, sess.Selections, stored.Selections)
	assert.Equal(t, 2, stored.MistakeDistribution[1])

	require.NoError(t, repo.Delete(ctx, "user-1"))
	assert.ErrorIs(t, repo.Delete(ctx, "user-1"), repository.ErrNotFound)
}
