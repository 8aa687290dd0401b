package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jonmartinstorm/repodash/internal/fetcher"
)

const msgNotAuthenticated = "Not authenticated"

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode JSON response", "error", err)
	}
}

func respondRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondUpstreamError maps a failed upstream read to a client response. Only
// authentication failures are distinguishable; everything else is a 500 with
// the generic message, details stay in the log.
func respondUpstreamError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, fetcher.ErrUnauthenticated) {
		slog.WarnContext(r.Context(), "GitHub rejected credential", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusUnauthorized, msgNotAuthenticated)
		return
	}
	slog.ErrorContext(r.Context(), message, "path", r.URL.Path, "error", err)
	respondError(w, http.StatusInternalServerError, message)
}
