package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jeevan-health/triage/pkg/schema"
)

const maxBodyBytes = 1 << 20 // 1MB

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

// statusOf maps a TriageError code to an HTTP status.
func statusOf(err error) int {
	switch schema.CodeOf(err) {
	case schema.ErrCodeValidation, schema.ErrCodeCycleDetected:
		return http.StatusBadRequest
	case schema.ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError reports err to the caller. Validation and absence are
// returned as is; anything else is logged and answered generically.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, generic string) {
	status := statusOf(err)
	if status != http.StatusInternalServerError {
		var te *schema.TriageError
		if errors.As(err, &te) && te.Details != nil {
			writeJSON(w, status, map[string]any{"error": te.Message, "code": te.Code, "details": te.Details})
			return
		}
		msg := err.Error()
		if errors.As(err, &te) {
			msg = te.Message
		}
		writeError(w, status, schema.CodeOf(err), msg)
		return
	}
	s.deps.Logger.ErrorContext(r.Context(), generic,
		slog.String("path", r.URL.Path), slog.String("code", schema.CodeOf(err)), slog.String("error", err.Error()))
	writeError(w, status, schema.ErrCodeInternal, generic)
}

// decodeBody decodes a JSON request body into dst, capped at maxBodyBytes.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, schema.ErrCodeValidation, fmt.Sprintf("invalid JSON: %v", err))
		return false
	}
	return true
}
