package opsapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// writeJSON is the ops surface's minimal response envelope — unlike the
// teacher's domain-facing internal/platform/respond package, there are no
// paginated list responses or field-level validation errors to carry here,
// just status payloads.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("opsapi: failed to encode response", slog.Any("error", err))
	}
}
