package handler

// RESPONSE HELPERS:
// These functions standardise how the JSON API answers.
//
// THE ENVELOPE:
// Every API response — success or failure, any endpoint — has one shape:
//
//	{"success": true,  "payload": { ... }}
//	{"success": false, "message": "user not found with id bob"}
//
// One shape means API clients write one parser. And because failures go
// through writeError/writeFailure only, there is no code path on which a
// stack trace, SQL text, or internal exception string can reach a client —
// unexpected errors collapse to a fixed generic message no matter what.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ayutenn/skeleton/internal/apperror"
)

// envelope is the standard JSON response shape for all API endpoints.
type envelope struct {
	Success bool   `json:"success"`
	Payload any    `json:"payload,omitempty"`
	Message string `json:"message,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and the status code MUST be set before writing the body. Once
// Encode writes the first byte, the headers are on the wire and any later
// changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already sent — all we can do is log it.
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeSuccess sends the success envelope with the given payload.
func writeSuccess(w http.ResponseWriter, payload any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Payload: payload})
}

// writeFailure sends the failure envelope with a caller-chosen message.
// The message must already be user-safe.
func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// writeError maps a domain error to an HTTP status and sends the failure
// envelope.
//
// ERROR MAPPING:
// The service layer returns apperror values; this is the single place they
// become HTTP. errors.Is() walks the whole wrapped chain, so services can
// annotate errors freely with fmt.Errorf("...: %w", err) without breaking
// the mapping.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError

		switch {
		case errors.Is(err, apperror.ErrValidation),
			errors.Is(err, apperror.ErrPasswordMismatch):
			status = http.StatusBadRequest // 400
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound // 404
		case errors.Is(err, apperror.ErrDuplicate):
			status = http.StatusConflict // 409
		case errors.Is(err, apperror.ErrStorage):
			// AppError.Message for storage errors is already generic;
			// the real cause is wrapped inside and goes to logs only.
			status = http.StatusInternalServerError
		}

		writeFailure(w, status, appErr.Message)
		return
	}

	// Unknown error — return a fixed generic message. NEVER expose internal
	// error details: the raw text might contain SQL, file paths, or hosts.
	writeFailure(w, http.StatusInternalServerError, "An internal error occurred")
}
