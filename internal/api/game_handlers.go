package api

import (
	"net/http"

	"github.com/vytor/realorai/internal/errors"
	"github.com/vytor/realorai/internal/logger"
	"github.com/vytor/realorai/internal/models"
)

func (s *Server) handleTodaysPuzzle(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	log.Debug("serving today's puzzle")

	puzzle, err := s.Puzzles.TodaysPuzzle(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	if puzzle == nil {
		handleError(w, r, &errors.AppError{Code: errors.ErrCodeNotFound, Message: "no puzzle for today", Status: http.StatusNotFound})
		return
	}
	writeJSON(w, r, http.StatusOK, puzzle)
}

// handleGameStatus creates the session on first contact and applies the daily tries reset.
func (s *Server) handleGameStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userID(r)

	sess, err := s.Sessions.ResetTriesIfDue(ctx, user)
	if err != nil {
		handleError(w, r, err)
		return
	}
	played, err := s.Sessions.HasPlayedToday(ctx, user)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, models.PlayStatus{HasPlayedToday: played, TriesRemaining: sess.TriesRemaining})
}

type completeRequest struct {
	IsPerfectPuzzle bool `json:"isPerfectPuzzle"`
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	streak, err := s.Sessions.RecordCompletion(r.Context(), userID(r), req.IsPerfectPuzzle)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, streak)
}

type recordAttemptRequest struct {
	CorrectCount int `json:"correctCount"`
	TotalCount   int `json:"totalCount"`
}

func (s *Server) handleRecordAttempt(w http.ResponseWriter, r *http.Request) {
	var req recordAttemptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.TotalCount > models.MaxPairs || req.CorrectCount > req.TotalCount {
		handleError(w, r, errors.NewValidationError("correctCount", "must satisfy correctCount <= totalCount <= 5"))
		return
	}

	stats, err := s.Sessions.RecordAttempt(r.Context(), userID(r), req.CorrectCount, req.TotalCount)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

func (s *Server) handleGetSelections(w http.ResponseWriter, r *http.Request) {
	state, err := s.Sessions.GetSelections(r.Context(), userID(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

type selectionsRequest struct {
	Selections []models.Selection `json:"selections"`
}

func (s *Server) handleSaveSelections(w http.ResponseWriter, r *http.Request) {
	var req selectionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	state, err := s.Sessions.SaveSelections(r.Context(), userID(r), req.Selections)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

type saveAttemptRequest struct {
	Selections   []models.Selection `json:"selections"`
	CorrectCount int                `json:"correctCount"`
}

func (s *Server) handleSaveAttempt(w http.ResponseWriter, r *http.Request) {
	var req saveAttemptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	state, err := s.Sessions.SaveAttempt(r.Context(), userID(r), req.Selections, req.CorrectCount)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, state)
}

// handleDecrementTries answers 409 once the day's tries are spent.
func (s *Server) handleDecrementTries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userID(r)

	if _, err := s.Sessions.ResetTriesIfDue(ctx, user); err != nil {
		handleError(w, r, err)
		return
	}

	left, err := s.Sessions.DecrementTriesIfAvailable(ctx, user)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int{"triesRemaining": left})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Sessions.GetStats(r.Context(), userID(r))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.DeleteSession(r.Context(), userID(r)); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
