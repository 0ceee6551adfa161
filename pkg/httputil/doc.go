// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Errors
//
// Handlers return service errors through an ErrorWriter, which maps the
// apperrors kind to a status code and renders the shared body:
//
//	{"error": "validation failed", "details": [{"field": "email", "message": "email is invalid"}]}
//
// # Middleware
//
// The server stacks RecoveryMiddleware, RequestIDMiddleware,
// LoggingMiddleware, CORSMiddleware and MaxBytesMiddleware using Chain.
package httputil
