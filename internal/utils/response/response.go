// Package response provides helpers for writing consistent JSON HTTP
// responses.
//
// Every handler sends JSON back to the client. Setting the header, the
// status and encoding the body lives here once instead of in every handler,
// and API consumers always see the same error shape.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/school-students/internal/utils/apperr"
)

// ─────────────────────────────────────────────────────────────────────────────
// Response is the standard envelope returned for error cases.
//
// Success responses may return any JSON shape (a student, a list, a
// message). Error responses always look like:
//
//	{ "status": "error", "error": "Student not found" }
// ─────────────────────────────────────────────────────────────────────────────
type Response struct {
	Status string `json:"status"` // "ok" or "error"
	Error  string `json:"error"`  // human-readable error detail
}

// Status values for Response.Status. A typo in a constant name fails to
// compile; a typo in a literal ships.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ─────────────────────────────────────────────────────────────────────────────
// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
// ─────────────────────────────────────────────────────────────────────────────
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")

	// The status line must go out before any body bytes.
	w.WriteHeader(status)

	// Encode streams straight into w and appends a newline, which keeps
	// curl output readable.
	return json.NewEncoder(w).Encode(data)
}

// ─────────────────────────────────────────────────────────────────────────────
// GeneralError wraps any Go error into the standard Response shape.
// Use it for decode failures and other errors raised in the handler itself:
//
//	response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
// ─────────────────────────────────────────────────────────────────────────────
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ValidationError turns validator field errors into one readable message:
//
//	{ "status": "error", "error": "field Name is required, field Email must be a valid email address" }
//
// The raw validator output ("Key: 'StudentInput.Email' Error:Field
// validation for 'Email' failed on the 'email' tag") is not something to
// show a client.
// ─────────────────────────────────────────────────────────────────────────────
func ValidationError(errs validator.ValidationErrors) Response {
	var errMessages []string

	for _, e := range errs {
		// ActualTag is the rule that failed: "required", "email", "max", ...
		switch e.ActualTag() {
		case "required":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is required", e.Field()))
		case "email":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be a valid email address", e.Field()))
		case "max":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be at most %s characters", e.Field(), e.Param()))
		default:
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return Response{
		Status: StatusError,
		Error:  strings.Join(errMessages, ", "),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// StatusCode maps an error kind to its HTTP status. This is the only place
// that knows HTTP codes; the service layer speaks in apperr kinds.
// ─────────────────────────────────────────────────────────────────────────────
func StatusCode(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalid:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Error writes err as an error response. Only *apperr.Error messages reach
// the client; anything else is logged and reported as a bare 500.
//
// Invalid errors caused by validator.ValidationErrors are rendered field by
// field through ValidationError.
// ─────────────────────────────────────────────────────────────────────────────
func Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal("Internal server error").WithCause(err)
	}
	status := StatusCode(appErr.Kind)

	if status >= http.StatusInternalServerError {
		attrs := []any{slog.String("error", appErr.Message)}
		if appErr.Cause != nil {
			attrs = append(attrs, slog.String("cause", appErr.Cause.Error()))
		}
		slog.ErrorContext(r.Context(), "request failed", attrs...)
	}

	var verrs validator.ValidationErrors
	if appErr.Kind == apperr.KindInvalid && errors.As(appErr, &verrs) {
		WriteJSON(w, status, ValidationError(verrs))
		return
	}

	WriteJSON(w, status, Response{Status: StatusError, Error: appErr.Message})
}
