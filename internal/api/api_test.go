package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/realorai/internal/auth"
	"github.com/vytor/realorai/internal/creative"
	"github.com/vytor/realorai/internal/models"
	"github.com/vytor/realorai/internal/repository/sqlite"
	"github.com/vytor/realorai/internal/services"
	"github.com/vytor/realorai/internal/testutil"
	"github.com/vytor/realorai/internal/testutil/mocks"
)

var creativeRemix = creative.Remix{Prompt: "a photorealistic remix", Model: "img-2"}

type testEnv struct {
	t       *testing.T
	server  *Server
	handler http.Handler
	client  *mocks.MockCreativeClient
	jobs    *mocks.MockJobQueue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	t.Cleanup(func() { testutil.MustClose(t, db) })

	days := testutil.FixedResolver(t, "2024-06-01")
	streams := NewStreamRegistry(time.Hour)
	t.Cleanup(streams.Close)

	puzzles := services.NewPuzzleService(sqlite.NewPuzzleRepository(db), days, streams, 0)
	scheduler := services.NewSchedulerService(puzzles, days, 0)
	client := new(mocks.MockCreativeClient)
	jobs := new(mocks.MockJobQueue)

	srv := &Server{
		Puzzles:   puzzles,
		Scheduler: scheduler,
		Sessions:  services.NewSessionService(sqlite.NewSessionRepository(db), days, 0),
		Pipeline:  services.NewPipelineService(client, scheduler, puzzles, streams, services.PipelineConfig{}),
		Jobs:      jobs,
		Auth:      auth.New("test-secret-0123456789", "realorai"),
		Streams:   streams,
	}
	return &testEnv{t: t, server: srv, handler: srv.Routes(), client: client, jobs: jobs}
}

func (e *testEnv) token(user string, admin bool) string {
	tok, err := e.server.Auth.Issue(user, admin, time.Hour)
	require.NoError(e.t, err)
	return tok
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	body := decode[map[string]errorBody](t, rec)
	return body["error"].Code
}

func placeBody(date string, n int) placePairRequest {
	return placePairRequest{
		Date:          date,
		HumanImageURL: "https://img.example/human-" + string(rune('a'+n)) + ".png",
		AIImageURL:    "https://img.example/ai-" + string(rune('a'+n)) + ".png",
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/healthz", "", nil).Code)
	rec := env.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ready", rec.Body.String())
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/puzzle/today", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))

	rec = env.do(http.MethodGet, "/api/puzzle/today", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/api/admin/days", env.token("player", false), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))
}

func TestTodaysPuzzle(t *testing.T) {
	env := newTestEnv(t)
	player := env.token("player", false)

	rec := env.do(http.MethodGet, "/api/puzzle/today", player, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode[map[string]errorBody](t, rec)
	assert.Equal(t, "no puzzle for today", body["error"].Message)

	rec = env.do(http.MethodPost, "/api/admin/pairs", env.token("admin", true), placeBody("", 0))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/puzzle/today", player, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	puzzle := decode[models.DailyPuzzle](t, rec)
	assert.Equal(t, "2024-06-01", puzzle.Date)
	require.Len(t, puzzle.Pairs, 1)
	assert.Equal(t, "https://img.example/ai-a.png", puzzle.Pairs[0].AIImageURL)
}

func TestPlacePair(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token("admin", true)

	rec := env.do(http.MethodPost, "/api/admin/pairs", admin, placeBody("2024-05-31", 0))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "PAST_DATE", errorCode(t, rec))

	rec = env.do(http.MethodPost, "/api/admin/pairs", admin, placeBody("06/01/2024", 0))
	assert.Equal(t, "INVALID_DATE", errorCode(t, rec))

	rec = env.do(http.MethodPost, "/api/admin/pairs", admin, placeBody("2024-06-03", 0))
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[placePairResponse](t, rec)
	assert.Equal(t, "2024-06-03", resp.Date)
	assert.NotEmpty(t, resp.Pair.ID)
	assert.Len(t, resp.Day.Pairs, 1)

	rec = env.do(http.MethodPost, "/api/admin/pairs", admin, map[string]string{"bogus": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlacePairs_ContinuesOnError(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token("admin", true)

	items := make([]placePairRequest, 0, 7)
	for i := 0; i < 6; i++ {
		items = append(items, placeBody("2024-06-02", i))
	}
	items = append(items, placeBody("", 6))

	rec := env.do(http.MethodPost, "/api/admin/pairs/bulk", admin, bulkPlaceRequest{Items: items})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string][]models.PlacementResult](t, rec)
	results := body["results"]
	require.Len(t, results, 7)

	for i := 0; i < 5; i++ {
		assert.Empty(t, results[i].ErrorCode)
		assert.Equal(t, "2024-06-02", results[i].Date)
	}
	assert.Equal(t, "CAPACITY_EXCEEDED", results[5].ErrorCode)
	assert.Equal(t, "2024-06-01", results[6].Date)
}

func TestDayAdministration(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token("admin", true)

	rec := env.do(http.MethodPost, "/api/admin/pairs", admin, placeBody("2024-06-05", 0))
	require.Equal(t, http.StatusCreated, rec.Code)
	placed := decode[placePairResponse](t, rec)

	rec = env.do(http.MethodGet, "/api/admin/days/2024-06-05", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusPending, decode[models.PuzzleDay](t, rec).Status)

	rec = env.do(http.MethodPut, "/api/admin/days/2024-06-05/status", admin, map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusApproved, decode[models.PuzzleDay](t, rec).Status)

	rec = env.do(http.MethodGet, "/api/admin/days?status=approved", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]models.DaySummary](t, rec)["days"], 1)

	rec = env.do(http.MethodGet, "/api/admin/days?limit=zero", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	replacement := placeBody("", 9)
	rec = env.do(http.MethodPut, "/api/admin/days/2024-06-05/pairs/"+placed.Pair.ID, admin, replacement)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, replacement.AIImageURL, decode[models.ImagePair](t, rec).AIImageURL)

	rec = env.do(http.MethodDelete, "/api/admin/days/2024-06-05/pairs/"+placed.Pair.ID, admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(http.MethodDelete, "/api/admin/days/2024-06-05/pairs/"+placed.Pair.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodDelete, "/api/admin/days/2024-06-05", admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(http.MethodGet, "/api/admin/days/2024-06-05", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemovePairs_Bulk(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token("admin", true)

	rec := env.do(http.MethodPost, "/api/admin/pairs", admin, placeBody("2024-06-07", 0))
	require.Equal(t, http.StatusCreated, rec.Code)
	placed := decode[placePairResponse](t, rec)

	rec = env.do(http.MethodPost, "/api/admin/pairs/bulk-delete", admin, map[string]any{
		"items": []pairRef{{Date: "2024-06-07", ID: placed.Pair.ID}, {Date: "2024-06-07", ID: "missing"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[map[string][]removeResult](t, rec)["results"]
	require.Len(t, results, 2)
	assert.True(t, results[0].Removed)
	assert.False(t, results[1].Removed)
	assert.Equal(t, "NOT_FOUND", results[1].ErrorCode)
}

func TestGameFlow(t *testing.T) {
	env := newTestEnv(t)
	player := env.token("player-1", false)

	rec := env.do(http.MethodPost, "/api/game/complete", player, completeRequest{IsPerfectPuzzle: true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", errorCode(t, rec))

	rec = env.do(http.MethodGet, "/api/game/status", player, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.PlayStatus{HasPlayedToday: false, TriesRemaining: 3}, decode[models.PlayStatus](t, rec))

	for want := 2; want >= 0; want-- {
		rec = env.do(http.MethodPost, "/api/game/tries/decrement", player, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, want, decode[map[string]int](t, rec)["triesRemaining"])
	}
	rec = env.do(http.MethodPost, "/api/game/tries/decrement", player, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NO_TRIES_REMAINING", errorCode(t, rec))

	rec = env.do(http.MethodPost, "/api/game/attempt", player, recordAttemptRequest{CorrectCount: 3, TotalCount: 5})
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[models.PlayerStats](t, rec)
	assert.Equal(t, 1, stats.MistakeDistribution[2])
	assert.Equal(t, 1, stats.GamesPlayed)
	assert.Equal(t, 0, stats.WinPercentage)

	// A repeated submit on the same day is not a second game.
	rec = env.do(http.MethodPost, "/api/game/attempt", player, recordAttemptRequest{CorrectCount: 3, TotalCount: 5})
	require.Equal(t, http.StatusOK, rec.Code)
	stats = decode[models.PlayerStats](t, rec)
	assert.Equal(t, 1, stats.GamesPlayed)
	assert.Equal(t, 1, stats.MistakeDistribution[2])

	rec = env.do(http.MethodPost, "/api/game/attempt", player, recordAttemptRequest{CorrectCount: 6, TotalCount: 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/game/complete", player, completeRequest{IsPerfectPuzzle: false})
	require.Equal(t, http.StatusOK, rec.Code)
	streak := decode[models.StreakState](t, rec)
	assert.Equal(t, 1, streak.CurrentStreak)
	assert.Equal(t, 0, streak.PerfectStreak)

	// Played today: tries come back.
	rec = env.do(http.MethodGet, "/api/game/status", player, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.PlayStatus{HasPlayedToday: true, TriesRemaining: 3}, decode[models.PlayStatus](t, rec))

	rec = env.do(http.MethodGet, "/api/game/stats", player, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-06-01", decode[models.PlayerStats](t, rec).LastPlayedDate)

	rec = env.do(http.MethodDelete, "/api/game/session", player, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(http.MethodDelete, "/api/game/session", player, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSelections(t *testing.T) {
	env := newTestEnv(t)
	player := env.token("player-2", false)

	rec := env.do(http.MethodGet, "/api/game/selections", player, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[models.SelectionState](t, rec).Selections)

	sel := []models.Selection{{PairIndex: 0, SelectedURL: "https://img.example/ai-a.png"}}
	rec = env.do(http.MethodPut, "/api/game/selections", player, selectionsRequest{Selections: sel})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sel, decode[models.SelectionState](t, rec).Selections)

	rec = env.do(http.MethodPost, "/api/game/attempts", player, saveAttemptRequest{Selections: sel, CorrectCount: 0})
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[models.SelectionState](t, rec)
	assert.Len(t, state.Attempts, 1)
	assert.Len(t, state.AlreadyGuessed, 1)

	rec = env.do(http.MethodPut, "/api/game/selections", player, selectionsRequest{Selections: []models.Selection{{PairIndex: 7}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestPendingImages(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token("admin", true)

	rec := env.do(http.MethodPost, "/api/admin/days/2024-06-09/pending", admin, map[string]string{"humanImageUrl": "https://img.example/staged.png"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodGet, "/api/admin/days/2024-06-09/pending", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]models.PendingHumanImage](t, rec)["images"], 1)

	caption := &models.Caption{Description: "staged"}
	env.client.On("Caption", mock.Anything, "https://img.example/staged.png").Return(caption, nil)
	env.client.On("Remix", mock.Anything, *caption, "").Return(&creativeRemix, nil)
	env.client.On("GenerateImage", mock.Anything, creativeRemix.Prompt, mock.Anything).Return("https://img.example/ai-staged.png", nil)

	rec = env.do(http.MethodPost, "/api/admin/days/2024-06-09/pending/process", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[models.BatchReport](t, rec)
	assert.Equal(t, 1, report.Scheduled)

	rec = env.do(http.MethodGet, "/api/admin/days/2024-06-09/pending", admin, nil)
	assert.Empty(t, decode[map[string][]models.PendingHumanImage](t, rec)["images"])
}

func TestGenerate(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token("admin", true)
	items := []models.GenerationItem{{HumanImageURL: "https://img.example/h.png"}}

	rec := env.do(http.MethodPost, "/api/admin/generate", admin, generateRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.jobs.On("EnqueueBatch", "", items).Return("batch-42", nil).Once()
	env.jobs.On("Pending").Return(1).Once()
	rec = env.do(http.MethodPost, "/api/admin/generate", admin, generateRequest{Items: items, Async: true})
	require.Equal(t, http.StatusAccepted, rec.Code)
	accepted := decode[map[string]any](t, rec)
	assert.Equal(t, "batch-42", accepted["batchId"])
	assert.EqualValues(t, 1, accepted["pending"])

	caption := &models.Caption{Description: "h"}
	env.client.On("Caption", mock.Anything, "https://img.example/h.png").Return(caption, nil)
	env.client.On("Remix", mock.Anything, *caption, "").Return(&creativeRemix, nil)
	env.client.On("GenerateImage", mock.Anything, creativeRemix.Prompt, mock.Anything).Return("", nil)

	rec = env.do(http.MethodPost, "/api/admin/generate", admin, generateRequest{BatchID: "sync", Items: items})
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[models.BatchReport](t, rec)
	assert.Equal(t, "sync", report.BatchID)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, "QUOTA_EXHAUSTED", report.Results[0].ErrorCode)
	env.jobs.AssertExpectations(t)
}

func TestEventStream(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token("admin", true)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/admin/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+admin)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return env.server.Streams.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	rec := env.do(http.MethodPost, "/api/admin/pairs", admin, placeBody("2024-06-04", 0))
	require.Equal(t, http.StatusCreated, rec.Code)

	scanner := bufio.NewScanner(resp.Body)
	var eventLine, dataLine string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			eventLine = line
		}
		if strings.HasPrefix(line, "data: ") {
			dataLine = line
			break
		}
	}
	assert.Equal(t, "event: pair.scheduled", eventLine)
	assert.Contains(t, dataLine, `"date":"2024-06-04"`)

	cancel()
	require.Eventually(t, func() bool { return env.server.Streams.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
