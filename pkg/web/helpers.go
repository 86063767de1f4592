// Package web provides shared HTTP response helpers and middleware.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	// Handle nil payload
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, map[string]string{"error": message})
}

// ParseID extracts the product identifier from the request path.
// Product identifiers are opaque strings assigned by the backend, so the
// only validation is non-emptiness. Returns the ID and a boolean indicating success.
func ParseID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		RespondError(w, logger, http.StatusBadRequest, "Missing product ID")
		return "", false
	}
	return id, true
}
