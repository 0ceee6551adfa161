// Package auth verifies credentials and issues identity tokens.
//
// PasswordHasher wraps bcrypt behind a bounded worker pool and
// ValidatePassword enforces the password policy. TokenCodec issues and
// verifies the HS256 bearer tokens carried in the Authorization header:
//
//	codec, _ := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
//	token, _ := codec.Issue(auth.Claims{UserID: u.ID, RoleID: u.RoleID}, 0)
//	claims, err := codec.Verify(token) // errors.Is(err, auth.ErrInvalidToken)
//
// Resolving claims into a user record happens in pkg/middleware.
package auth
