package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(recoveryMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/puzzle/today", s.handleTodaysPuzzle)

		r.Route("/game", func(r chi.Router) {
			r.Get("/status", s.handleGameStatus)
			r.Post("/complete", s.handleComplete)
			r.Post("/attempt", s.handleRecordAttempt)
			r.Get("/selections", s.handleGetSelections)
			r.Put("/selections", s.handleSaveSelections)
			r.Post("/attempts", s.handleSaveAttempt)
			r.Post("/tries/decrement", s.handleDecrementTries)
			r.Get("/stats", s.handleStats)
			r.Delete("/session", s.handleDeleteSession)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(adminOnly)

			r.Post("/pairs", s.handlePlacePair)
			r.Post("/pairs/bulk", s.handlePlacePairs)
			r.Post("/pairs/bulk-delete", s.handleRemovePairs)
			r.Get("/days", s.handleListDays)
			r.Get("/days/{date}", s.handleGetDay)
			r.Delete("/days/{date}", s.handleDeleteDay)
			r.Put("/days/{date}/status", s.handleSetStatus)
			r.Put("/days/{date}/pairs/{id}", s.handleReplacePair)
			r.Delete("/days/{date}/pairs/{id}", s.handleRemovePair)
			r.Post("/days/{date}/pending", s.handleStagePending)
			r.Get("/days/{date}/pending", s.handleListPending)
			r.Post("/days/{date}/pending/process", s.handleProcessPending)
			r.Post("/generate", s.handleGenerate)
			r.Get("/events", s.handleEvents)
		})
	})

	return r
}
