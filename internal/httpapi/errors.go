package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/javajack/xlform"
	"github.com/javajack/xlform/internal/auth"
	"github.com/javajack/xlform/internal/service"
	"github.com/javajack/xlform/internal/store"
)

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, desc string) {
	writeJSON(w, status, errorBody{Error: code, ErrorDescription: desc})
}

// statusFor translates domain and store errors into an HTTP status and code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, xlform.ErrUnreadableWorkbook),
		errors.Is(err, xlform.ErrInvalidAddress),
		errors.Is(err, service.ErrInvalidMapping):
		return http.StatusBadRequest, "invalid_input"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError logs server errors and writes the JSON envelope. Internal error
// details are not sent to the client.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	desc := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"error", err,
			"request_id", GetRequestID(r.Context()),
		)
		desc = ""
	}
	writeJSONError(w, status, code, desc)
}
