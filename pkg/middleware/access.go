package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
	"github.com/platinummonkey/grinplace/pkg/auth"
	"github.com/platinummonkey/grinplace/pkg/contextkeys"
	"github.com/platinummonkey/grinplace/pkg/httputil"
	"github.com/platinummonkey/grinplace/pkg/observability"
	"github.com/platinummonkey/grinplace/pkg/users"
)

// TokenVerifier verifies bearer tokens; auth.TokenCodec satisfies it.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// UserLoader loads a user by id; users.Store satisfies it.
type UserLoader interface {
	Get(ctx context.Context, id string, opts users.FindOptions) (*users.User, error)
}

var (
	errMissingToken  = apperrors.NewUnauthorized("missing authorization token")
	errInvalidHeader = apperrors.NewUnauthorized("invalid authorization header format")
	errInvalidToken  = apperrors.NewUnauthorized("invalid or expired token")
	errUnknownUser   = apperrors.NewUnauthorized("user not found")
	errDisabledUser  = apperrors.NewUnauthorized("account is disabled")
)

// AccessResolver turns a bearer token into a resolved user. Every request
// re-reads the user and its role; nothing is cached between requests.
type AccessResolver struct {
	tokens TokenVerifier
	users  UserLoader
	errors httputil.ErrorWriter
}

// NewAccessResolver creates the authentication middleware
func NewAccessResolver(tokens TokenVerifier, loader UserLoader, errorWriter httputil.ErrorWriter) *AccessResolver {
	return &AccessResolver{
		tokens: tokens,
		users:  loader,
		errors: errorWriter,
	}
}

// Handler wraps next so it only runs for active, resolvable users
func (m *AccessResolver) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.Resolve(r)
		if err != nil {
			m.errors.Write(w, r, err)
			return
		}

		ctx := contextkeys.WithPrincipal(r.Context(), user)
		ctx = observability.WithUserID(ctx, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Resolve authenticates r. Store failures other than a missing user are
// returned as is and surface as 5xx.
func (m *AccessResolver) Resolve(r *http.Request) (*users.User, error) {
	token, err := bearerToken(r)
	if err != nil {
		return nil, err
	}

	claims, err := m.tokens.Verify(token)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Debug("Token rejected")
		return nil, errInvalidToken
	}

	user, err := m.users.Get(r.Context(), claims.UserID, users.FindOptions{IncludeRole: true})
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, errUnknownUser
	}
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, errDisabledUser
	}
	return user, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errMissingToken
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errInvalidHeader
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errMissingToken
	}
	return token, nil
}

// Principal returns the resolved user, or nil outside an authenticated route
func Principal(ctx context.Context) *users.User {
	user, _ := contextkeys.GetPrincipal(ctx).(*users.User)
	return user
}
