// Package httputil provides HTTP handler utilities for consistent error handling,
// JSON encoding/decoding, and request parsing.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
	"github.com/platinummonkey/grinplace/pkg/observability"
)

// internalMessage replaces internal error text in production responses.
const internalMessage = "internal server error"

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Details []apperrors.FieldError `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteErrorMessage writes a JSON error response with a custom message
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, ErrorResponse{Error: message})
}

// ErrorWriter renders service errors. With ExposeInternal unset, messages of
// internal errors are replaced by a generic one.
type ErrorWriter struct {
	ExposeInternal bool
}

// Write renders err using the status of its kind and logs internal failures.
func (ew ErrorWriter) Write(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.As(err)

	message := appErr.Message
	if appErr.Kind == apperrors.Internal {
		observability.FromContext(r.Context()).WithError(err).Error("Request failed")
		if ew.ExposeInternal {
			message = err.Error()
		} else {
			message = internalMessage
		}
	}

	_ = WriteJSON(w, appErr.Kind.HTTPStatus(), ErrorResponse{
		Error:   message,
		Details: appErr.Details,
	})
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes an unauthorized error (401)
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a forbidden error (403)
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusForbidden, message)
}

// WriteTooManyRequests writes a rate limit error (429)
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusTooManyRequests, message)
}

// WriteInternalError writes a generic 500 without leaking the cause
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusInternalServerError, internalMessage)
}

// WriteCreated writes a successful creation response (201 Created) with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// MessageResponse acknowledges an operation without returning an entity
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteMessage writes {"message": message} with 200 OK
func WriteMessage(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, MessageResponse{Message: message})
}
