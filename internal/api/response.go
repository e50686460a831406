package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rcliao/mindtrace/internal/guard"
	"github.com/rcliao/mindtrace/internal/log"
	"github.com/rcliao/mindtrace/internal/model"
	"github.com/rcliao/mindtrace/internal/store"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure.
type ErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

const (
	codeBadRequest       = "BAD_REQUEST"
	codeValidationFailed = "VALIDATION_FAILED"
	codeNotFound         = "NOT_FOUND"
	codeConflict         = "CONFLICT"
	codeRejected         = "GUARD_REJECTED"
	codeInternal         = "INTERNAL_SERVER_ERROR"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string, details map[string]any) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{
		Code:      code,
		Message:   msg,
		Details:   details,
		RequestID: RequestIDFromCtx(r.Context()),
	}})
}

// writeErr maps domain errors onto status codes. Anything unknown is logged
// and reported as a 500 without its message.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var v *guard.Violation
	switch {
	case errors.As(err, &v):
		details := map[string]any{"reason": v.Reason()}
		if v.Phrase != "" {
			details["phrase"] = v.Phrase
		}
		if v.Sentences > 0 {
			details["sentences"] = v.Sentences
		}
		writeError(w, r, http.StatusUnprocessableEntity, codeRejected, v.Error(), details)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, codeNotFound, err.Error(), nil)
	case errors.Is(err, store.ErrExists):
		writeError(w, r, http.StatusConflict, codeConflict, err.Error(), nil)
	case errors.Is(err, model.ErrUnknownMode):
		writeError(w, r, http.StatusBadRequest, codeBadRequest, err.Error(), nil)
	default:
		log.FromCtx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal error", nil)
	}
}
