package api

import (
	"encoding/json"
	"net/http"

	"github.com/vytor/realorai/internal/errors"
	"github.com/vytor/realorai/internal/logger"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode response: %v", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		logger.FromContext(r.Context()).Debug("invalid request body: %v", err)
		return errors.NewBadRequestError("invalid JSON body: " + err.Error())
	}
	return nil
}
