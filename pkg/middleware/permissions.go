package middleware

import (
	"net/http"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
	"github.com/platinummonkey/grinplace/pkg/httputil"
	"github.com/platinummonkey/grinplace/pkg/observability"
	"github.com/platinummonkey/grinplace/pkg/rbac"
)

// Gate builds permission middleware for routes behind an AccessResolver.
type Gate struct {
	metrics *observability.Metrics
	errors  httputil.ErrorWriter
}

// NewGate creates a permission gate. metrics may be nil.
func NewGate(metrics *observability.Metrics, errorWriter httputil.ErrorWriter) *Gate {
	return &Gate{metrics: metrics, errors: errorWriter}
}

// Require admits requests whose resolved user's role holds every permission
// in required.
func (g *Gate) Require(required ...rbac.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := Principal(r.Context())
			if user == nil {
				g.errors.Write(w, r, apperrors.NewUnauthorized("authentication required"))
				return
			}

			if err := rbac.Authorize(user.Role, required...); err != nil {
				denied := "none"
				if user.Role != nil {
					if missing := user.Role.Permissions.Missing(required...); len(missing) > 0 {
						denied = string(missing[0])
					}
				}
				g.metrics.RecordDenial(denied)
				observability.FromContext(r.Context()).
					WithField("permission", denied).
					Info("Authorization denied")
				g.errors.Write(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
