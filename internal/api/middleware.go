package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/vytor/realorai/internal/auth"
	"github.com/vytor/realorai/internal/errors"
	"github.com/vytor/realorai/internal/logger"
)

// requestLogger attaches a request-scoped logger to the context and logs the
// outcome once the handler returns. Expects chi's RequestID to run first.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		log := logger.Default().WithFields(map[string]any{
			"request_id": reqID,
			"method":     r.Method,
			"path":       r.URL.Path,
		})
		if r.RemoteAddr != "" {
			log = log.WithField("remote_addr", r.RemoteAddr)
		}
		w.Header().Set(middleware.RequestIDHeader, reqID)

		// The wrapper keeps http.Flusher so event streams still flush.
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		began := time.Now()
		next.ServeHTTP(ww, r.WithContext(logger.NewContext(r.Context(), log)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log = log.WithFields(map[string]any{
			"status":      status,
			"size":        ww.BytesWritten(),
			"duration_ms": time.Since(began).Milliseconds(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("%s %s failed", r.Method, r.URL.Path)
		case status >= http.StatusBadRequest:
			log.Warn("%s %s rejected", r.Method, r.URL.Path)
		default:
			log.Info("%s %s", r.Method, r.URL.Path)
		}
	})
}

// recoveryMiddleware recovers from panics and logs them.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log := logger.FromContext(r.Context())
				log.Error("panic recovered: %v", rec)
				handleError(w, r, errors.NewInternalError(nil))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// securityHeadersMiddleware adds security headers to responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// authMiddleware requires a valid bearer token and stores the caller's identity.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			handleError(w, r, errors.NewUnauthorizedError("missing bearer token"))
			return
		}
		id, err := s.Auth.Verify(token)
		if err != nil {
			log.Debug("rejecting token: %v", err)
			handleError(w, r, errors.NewUnauthorizedError("invalid or expired token"))
			return
		}

		ctx := auth.NewContext(r.Context(), id)
		ctx = logger.NewContext(ctx, log.WithField("user_id", id.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok || !id.Admin {
			handleError(w, r, errors.NewForbiddenError("admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// userID returns the authenticated player. Routes are mounted behind authMiddleware.
func userID(r *http.Request) string {
	if id, ok := auth.FromContext(r.Context()); ok {
		return id.UserID
	}
	return ""
}
