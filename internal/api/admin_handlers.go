package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/realorai/internal/errors"
	"github.com/vytor/realorai/internal/logger"
	"github.com/vytor/realorai/internal/models"
)

type placePairRequest struct {
	Date          string               `json:"date,omitempty"`
	HumanImageURL string               `json:"humanImageUrl"`
	AIImageURL    string               `json:"aiImageUrl"`
	Metadata      *models.PairMetadata `json:"metadata,omitempty"`
}

func (p placePairRequest) pair() models.ImagePair {
	pair := models.ImagePair{HumanImageURL: p.HumanImageURL, AIImageURL: p.AIImageURL}
	if p.Metadata != nil {
		pair.Metadata = *p.Metadata
	}
	return pair
}

type placePairResponse struct {
	Date string            `json:"date"`
	Pair models.ImagePair  `json:"pair"`
	Day  *models.PuzzleDay `json:"day"`
}

// place runs one placement: explicit when a date is given, next available otherwise.
func (s *Server) place(r *http.Request, req placePairRequest) (*placePairResponse, error) {
	ctx := r.Context()
	var (
		day *models.PuzzleDay
		err error
	)
	date := req.Date
	if date != "" {
		day, err = s.Scheduler.ScheduleExplicit(ctx, date, req.pair())
	} else {
		date, day, err = s.Scheduler.ScheduleNextAvailable(ctx, req.pair())
	}
	if err != nil {
		return nil, err
	}
	return &placePairResponse{Date: date, Pair: day.Pairs[len(day.Pairs)-1], Day: day}, nil
}

func (s *Server) handlePlacePair(w http.ResponseWriter, r *http.Request) {
	var req placePairRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	resp, err := s.place(r, req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, resp)
}

type bulkPlaceRequest struct {
	Items []placePairRequest `json:"items"`
}

func (s *Server) handlePlacePairs(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req bulkPlaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	log.Info("bulk placing %d pairs", len(req.Items))

	results := make([]models.PlacementResult, 0, len(req.Items))
	for i, item := range req.Items {
		result := models.PlacementResult{Index: i}
		resp, err := s.place(r, item)
		if err != nil {
			result.Error, result.ErrorCode = describe(err)
		} else {
			result.Date = resp.Date
			result.Pair = &resp.Pair
		}
		results = append(results, result)
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"results": results})
}

type pairRef struct {
	Date string `json:"date"`
	ID   string `json:"id"`
}

type removeResult struct {
	pairRef
	Removed   bool   `json:"removed"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
}

func (s *Server) handleRemovePairs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []pairRef `json:"items"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	results := make([]removeResult, 0, len(req.Items))
	for _, item := range req.Items {
		result := removeResult{pairRef: item}
		if err := s.Puzzles.RemovePair(r.Context(), item.Date, item.ID); err != nil {
			result.Error, result.ErrorCode = describe(err)
		} else {
			result.Removed = true
		}
		results = append(results, result)
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleListDays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.DayFilter{From: q.Get("from"), To: q.Get("to"), Status: q.Get("status")}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			handleError(w, r, errors.NewValidationError("limit", "must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	days, err := s.Puzzles.ListDays(r.Context(), filter)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"days": days})
}

func (s *Server) handleGetDay(w http.ResponseWriter, r *http.Request) {
	day, err := s.Puzzles.GetDay(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, day)
}

func (s *Server) handleDeleteDay(w http.ResponseWriter, r *http.Request) {
	if err := s.Puzzles.DeleteDay(r.Context(), chi.URLParam(r, "date")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	date := chi.URLParam(r, "date")
	if err := s.Puzzles.SetStatus(r.Context(), date, req.Status); err != nil {
		handleError(w, r, err)
		return
	}
	day, err := s.Puzzles.GetDay(r.Context(), date)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, day)
}

func (s *Server) handleReplacePair(w http.ResponseWriter, r *http.Request) {
	var req placePairRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	pair, err := s.Puzzles.ReplacePair(r.Context(), chi.URLParam(r, "date"), chi.URLParam(r, "id"), req.pair())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, pair)
}

func (s *Server) handleRemovePair(w http.ResponseWriter, r *http.Request) {
	if err := s.Puzzles.RemovePair(r.Context(), chi.URLParam(r, "date"), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStagePending(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HumanImageURL string `json:"humanImageUrl"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	img, err := s.Puzzles.StagePendingImage(r.Context(), chi.URLParam(r, "date"), req.HumanImageURL)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, img)
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	images, err := s.Puzzles.ListPendingImages(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"images": images})
}

func (s *Server) handleProcessPending(w http.ResponseWriter, r *http.Request) {
	report, err := s.Pipeline.ProcessPending(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

type generateRequest struct {
	BatchID string                  `json:"batchId,omitempty"`
	Items   []models.GenerationItem `json:"items"`
	Async   bool                    `json:"async,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if len(req.Items) == 0 {
		handleError(w, r, errors.NewValidationError("items", "cannot be empty"))
		return
	}

	if req.Async {
		batchID, err := s.Jobs.EnqueueBatch(req.BatchID, req.Items)
		if err != nil {
			handleError(w, r, err)
			return
		}
		pending := s.Jobs.Pending()
		log.Info("queued generation batch %s with %d items (%d waiting)", batchID, len(req.Items), pending)
		writeJSON(w, r, http.StatusAccepted, map[string]any{"batchId": batchID, "pending": pending})
		return
	}

	report := s.Pipeline.RunBatch(r.Context(), req.BatchID, req.Items)
	writeJSON(w, r, http.StatusOK, report)
}

// describe flattens err into the message and code reported for one item of a bulk request.
func describe(err error) (string, string) {
	if appErr, ok := errors.As(err); ok {
		return appErr.Message, appErr.Code
	}
	return err.Error(), errors.ErrCodeInternal
}
