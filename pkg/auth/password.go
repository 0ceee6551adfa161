package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
	"github.com/platinummonkey/grinplace/pkg/observability"
)

const (
	// MinPasswordLength is the shortest accepted password
	MinPasswordLength = 6
	// MaxPasswordBytes is the longest input bcrypt accepts
	MaxPasswordBytes = 72
)

// ValidatePassword enforces the password policy: at least
// MinPasswordLength characters and at least one digit.
func ValidatePassword(password string) error {
	var v apperrors.Validator

	v.Check(len([]rune(password)) >= MinPasswordLength, "password",
		fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	v.Check(len(password) <= MaxPasswordBytes, "password",
		fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))

	hasDigit := false
	for _, r := range password {
		if unicode.IsDigit(r) {
			hasDigit = true
			break
		}
	}
	v.Check(hasDigit, "password", "password must contain at least one number")

	return v.Err()
}

// PasswordHasher hashes and compares passwords with bcrypt. Calls share a
// bounded pool of slots so concurrent logins cannot saturate every CPU.
type PasswordHasher struct {
	cost    int
	slots   *semaphore.Weighted
	metrics *observability.Metrics
}

// NewPasswordHasher creates a hasher using cost and at most workers
// concurrent bcrypt operations. metrics may be nil.
func NewPasswordHasher(cost, workers int, metrics *observability.Metrics) *PasswordHasher {
	if workers < 1 {
		workers = 1
	}
	return &PasswordHasher{
		cost:    cost,
		slots:   semaphore.NewWeighted(int64(workers)),
		metrics: metrics,
	}
}

// Hash returns the bcrypt digest of plaintext.
func (h *PasswordHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	defer h.metrics.ObserveHash("hash", time.Now())

	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("waiting for hash worker: %w", err)
	}
	defer h.slots.Release(1)

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Compare reports whether plaintext matches digest. A mismatch is not an
// error; only a malformed digest or a cancelled context is.
func (h *PasswordHasher) Compare(ctx context.Context, plaintext, digest string) (bool, error) {
	defer h.metrics.ObserveHash("compare", time.Now())

	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("waiting for hash worker: %w", err)
	}
	defer h.slots.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("malformed password digest: %w", err)
	}
}
