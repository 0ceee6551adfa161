// Package api provides the HTTP REST API of the business-management backend.
//
// # Overview
//
// All application routes live under /api and are grouped by resource:
//
//   - Auth: login (public, optionally rate limited), registration, the caller's profile
//   - Users: administration plus self-service settings, profile and photo upload
//   - Roles: role administration and the permission vocabulary
//   - Businesses: CRUD scoped to the caller's tenancy, logo upload
//
// Operational endpoints sit outside /api: /health/live, /health/ready and
// /metrics. When the filesystem object store is used its files are served
// under /uploads/.
//
// # Request Flow
//
// Every protected route runs the same chain:
//
//	AccessResolver (bearer token -> active user with role)
//	  -> Gate (role permissions cover the route's requirements)
//	  -> handler (service call)
//
// Handlers never check role names; only permission membership decides.
//
// # Usage
//
//	server := api.NewServer(api.Dependencies{
//		Users:      userService,
//		Roles:      roleService,
//		Businesses: businessService,
//		Tokens:     tokenCodec,
//		UserLoader: userStore,
//		Logger:     logger,
//	})
//	http.ListenAndServe(":3000", server)
//
// # Errors
//
// Errors are rendered as {"error": "...", "details": [{"field", "message"}]}
// with the status derived from the apperrors kind.
package api
