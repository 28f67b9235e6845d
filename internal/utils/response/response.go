// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every endpoint answers with the same envelope, success or failure, so
// API consumers never have to guess the shape of a body:
//
//	{ "status": "ok",    "message": "Post created", "data": {...} }
//	{ "status": "error", "error": "Internal Server Error" }
package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ─────────────────────────────────────────────────────────────────────────────
// Response is the envelope written by every handler.
//
// Message and Error are omitted when empty. Data is omitted only when it
// is nil: an empty result set is still written as "data": [].
// ─────────────────────────────────────────────────────────────────────────────
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Status string constants.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// InternalError is the only text a client ever sees for an unexpected
// failure. The real cause goes to the log.
const InternalError = "Internal Server Error"

// ─────────────────────────────────────────────────────────────────────────────
// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
// ─────────────────────────────────────────────────────────────────────────────
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// OK wraps a success payload.
func OK(message string, data any) Response {
	return Response{
		Status:  StatusOK,
		Message: message,
		Data:    data,
	}
}

// Error builds an error envelope from a client-safe message.
func Error(message string) Response {
	return Response{
		Status: StatusError,
		Error:  message,
	}
}

// GeneralError wraps a Go error into the error envelope. Only pass errors
// whose text is meant for the client (decode errors, bad ids). Driver
// errors go through Internal instead.
func GeneralError(err error) Response {
	return Error(err.Error())
}

// Internal is the envelope for 500 responses.
func Internal() Response {
	return Error(InternalError)
}

// ─────────────────────────────────────────────────────────────────────────────
// ValidationError converts a slice of validator.FieldError values into
// a single human-readable Response.
//
// The validator returns one FieldError per failing struct field; each
// becomes one sentence and the sentences are joined with ", ".
//
//	{ "status": "error", "error": "field title is required, field email must be a valid email address" }
//
// ─────────────────────────────────────────────────────────────────────────────
func ValidationError(errs validator.ValidationErrors) Response {
	var errMessages []string

	for _, e := range errs {
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
		case "min":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be at least %s characters", e.Field(), e.Param()))
		case "datetime":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be a date in YYYY-MM-DD form", e.Field()))
		default:
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return Error(strings.Join(errMessages, ", "))
}
