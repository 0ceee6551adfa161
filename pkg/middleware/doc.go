// Package middleware provides the authentication, authorization and rate
// limiting middleware of the API.
//
// # Access resolution
//
// AccessResolver reads "Authorization: Bearer <token>", verifies the token
// and loads the user it names together with the user's role. Missing or bad
// tokens, unknown users and disabled accounts all fail with 401. The resolved
// user is stored in the request context:
//
//	resolver := middleware.NewAccessResolver(tokens, userStore, errorWriter)
//	router.Use(resolver.Handler)
//	user := middleware.Principal(r.Context())
//
// # Permission gate
//
// Gate.Require admits a request only when the resolved user's role holds
// every listed permission. There is no role-name special casing: the owner
// role passes because it is granted every permission.
//
//	gate := middleware.NewGate(metrics, errorWriter)
//	router.Handle("/roles", gate.Require(rbac.PermManageRoles)(handler))
//
// # Rate limiting
//
// RateLimiter keeps fixed window counters in Redis so that every instance
// shares the same allowance. RateLimitMiddleware applies it per client IP and
// answers 429 with Retry-After once the window is exhausted. If Redis is
// unreachable requests are allowed through.
package middleware
