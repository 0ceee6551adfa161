package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
)

// ParseJSON decodes a JSON body into dest. Decode failures are validation
// errors; an oversized body is reported as such.
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperrors.NewValidation("request body too large")
		case errors.Is(err, io.EOF):
			return apperrors.NewValidation("request body is required")
		default:
			return apperrors.NewValidation("invalid JSON: " + err.Error())
		}
	}
	return nil
}

// PathVar returns a mux path variable, or a validation error when it is empty
func PathVar(r *http.Request, key string) (string, error) {
	value := strings.TrimSpace(mux.Vars(r)[key])
	if value == "" {
		return "", apperrors.NewFieldValidation(key, key+" is required")
	}
	return value, nil
}

// ClientIP returns the host of the connection's remote address. Forwarding
// headers are ignored; see ProxiedClientIP.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ProxiedClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the remote address. Only use it behind a proxy that overwrites those
// headers; clients can set them freely otherwise.
func ProxiedClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return ClientIP(r)
}
