package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification:
// bad signature, unexpected algorithm, expiry or malformed input.
var ErrInvalidToken = errors.New("invalid token")

// Claims identify the caller. BusinessID is empty for users without a business.
type Claims struct {
	UserID     string `json:"userId"`
	RoleID     string `json:"roleId"`
	BusinessID string `json:"businessId,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256 signed identity tokens.
type TokenCodec struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

// NewTokenCodec creates a codec signing with secret. ttl is used when Issue
// is called without one.
func NewTokenCodec(secret string, ttl time.Duration) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token TTL must be positive")
	}
	return &TokenCodec{
		secret:     []byte(secret),
		defaultTTL: ttl,
		now:        time.Now,
	}, nil
}

// WithClock returns a copy of the codec reading time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	clone := *c
	clone.now = now
	return &clone
}

// Issue signs claims with an expiry ttl from now. ttl <= 0 uses the default.
func (c *TokenCodec) Issue(claims Claims, ttl time.Duration) (string, error) {
	if claims.UserID == "" {
		return "", errors.New("token requires a user id")
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	issuedAt := c.now()
	claims.Subject = claims.UserID
	claims.IssuedAt = jwt.NewNumericDate(issuedAt)
	claims.ExpiresAt = jwt.NewNumericDate(issuedAt.Add(ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token.
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
