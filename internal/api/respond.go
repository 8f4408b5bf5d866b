// ABOUTME: Shared response helpers: JSON writing, internal error logging, and
// ABOUTME: mapping access decisions onto HTTP status codes.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kevinhervieux-koveo/koveo-gestion-saas-sub014/internal/access"
)

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON: encode failed", "error", err)
	}
}

// internalError logs err and writes a generic 500 response.
func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	slog.ErrorContext(r.Context(), msg, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// writeDecision maps a denied access decision onto its HTTP status:
// not_found becomes 404 (the resource's existence stays hidden) and
// forbidden becomes 403. Allowed decisions write nothing; callers proceed.
// Returns true when a response was written.
func writeDecision(w http.ResponseWriter, d access.Decision) bool {
	if d.Allowed {
		return false
	}
	switch d.Reason {
	case access.ReasonNotFound:
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, "forbidden", http.StatusForbidden)
	}
	return true
}
