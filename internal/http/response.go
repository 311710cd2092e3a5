package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"lifedash/internal/core"
	"lifedash/internal/log"
)

type errorBody struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error onto its HTTP status and client message. Every
// error the handlers return goes through here.
func statusFor(err error) (int, errorBody) {
	var (
		verr     *core.ValidationError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.Is(err, core.ErrTransactionAborted):
		if errors.As(err, &verr) {
			return http.StatusBadRequest, errorBody{Message: "Import aborted: invalid data", Fields: verr.Fields}
		}
		return http.StatusInternalServerError, errorBody{Message: "Import aborted"}
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorBody{Message: "Validation failed", Fields: verr.Fields}
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, errorBody{Message: "Request body too large"}
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, errorBody{Message: "Not found"}
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized, errorBody{Message: "Unauthorized"}
	case errors.Is(err, core.ErrAlreadySetup):
		return http.StatusBadRequest, errorBody{Message: "Application has already been set up"}
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorBody{Message: "Invalid password"}
	default:
		return http.StatusInternalServerError, errorBody{Message: "Server error"}
	}
}

// writeError answers with the mapped status. Server errors are logged with
// their cause, which never reaches the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, status,
			log.FieldError, err)
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, status,
			log.FieldError, err)
	}
	writeJSON(w, status, body)
}
