// Package apperrors defines the error taxonomy shared by services and the
// HTTP layer. Services return *Error values; handlers translate them into
// status codes and the {error, details} response body.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for clients.
type Kind int

const (
	// Internal is an unexpected store or runtime failure.
	Internal Kind = iota
	// Validation is malformed or out-of-policy input.
	Validation
	// Unauthorized is a missing, invalid or expired token, bad credentials or a disabled account.
	Unauthorized
	// Forbidden is an authenticated caller lacking permissions.
	Forbidden
	// NotFound is an id that does not resolve to an entity.
	NotFound
	// Conflict is a uniqueness or referential invariant violation.
	Conflict
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	default:
		return "internal"
	}
}

// HTTPStatus maps the kind onto a response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the domain error type.
type Error struct {
	Kind    Kind
	Message string
	Details []FieldError
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind, so errors.Is(err, ErrNotFound)
// works for any not-found error.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is comparisons.
var (
	ErrValidation   = &Error{Kind: Validation, Message: "validation failed"}
	ErrUnauthorized = &Error{Kind: Unauthorized, Message: "unauthorized"}
	ErrForbidden    = &Error{Kind: Forbidden, Message: "forbidden"}
	ErrNotFound     = &Error{Kind: NotFound, Message: "not found"}
	ErrConflict     = &Error{Kind: Conflict, Message: "conflict"}
	ErrInternal     = &Error{Kind: Internal, Message: "internal server error"}
)

// NewValidation returns a validation error with optional field details.
func NewValidation(message string, details ...FieldError) *Error {
	return &Error{Kind: Validation, Message: message, Details: details}
}

// NewFieldValidation is shorthand for a single invalid field.
func NewFieldValidation(field, message string) *Error {
	return NewValidation(message, FieldError{Field: field, Message: message})
}

// NewUnauthorized returns an authentication failure.
func NewUnauthorized(message string) *Error {
	return &Error{Kind: Unauthorized, Message: message}
}

// NewForbidden returns an authorization failure.
func NewForbidden(message string) *Error {
	return &Error{Kind: Forbidden, Message: message}
}

// NewNotFound reports that entity could not be found.
func NewNotFound(entity string) *Error {
	return &Error{Kind: NotFound, Message: entity + " not found"}
}

// NewConflict returns an invariant violation.
func NewConflict(message string) *Error {
	return &Error{Kind: Conflict, Message: message}
}

// NewInternal wraps an unexpected failure.
func NewInternal(message string, cause error) *Error {
	return &Error{Kind: Internal, Message: message, Cause: cause}
}

// KindOf reports the kind of err. Errors outside this package are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// As extracts the *Error from err, wrapping foreign errors as Internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewInternal("internal server error", err)
}

// Validator accumulates field errors.
type Validator struct {
	details []FieldError
}

// Check records message against field when ok is false.
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.details = append(v.details, FieldError{Field: field, Message: message})
	}
}

// Add records an unconditional field error.
func (v *Validator) Add(field, message string) {
	v.details = append(v.details, FieldError{Field: field, Message: message})
}

// Merge appends the details of a validation error. Other errors are returned unchanged.
func (v *Validator) Merge(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == Validation {
		if len(e.Details) == 0 {
			v.details = append(v.details, FieldError{Message: e.Message})
		}
		v.details = append(v.details, e.Details...)
		return nil
	}
	return err
}

// Err returns a validation error carrying every recorded detail, or nil.
func (v *Validator) Err() error {
	if len(v.details) == 0 {
		return nil
	}
	message := v.details[0].Message
	if len(v.details) > 1 {
		message = "validation failed"
	}
	return NewValidation(message, v.details...)
}
