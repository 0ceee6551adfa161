package api

import (
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/grinplace/pkg/businesses"
	"github.com/platinummonkey/grinplace/pkg/httputil"
	"github.com/platinummonkey/grinplace/pkg/middleware"
	"github.com/platinummonkey/grinplace/pkg/observability"
	"github.com/platinummonkey/grinplace/pkg/rbac"
	"github.com/platinummonkey/grinplace/pkg/users"
)

// UploadsPrefix is the path the filesystem object store is served under
const UploadsPrefix = "/uploads/"

// Options holds the HTTP-level settings of the server
type Options struct {
	AllowedOrigins []string
	MaxBodyBytes   int64
	MaxUploadBytes int64
	// ExposeInternalErrors puts internal error text in responses; for
	// development only.
	ExposeInternalErrors bool
	// Tracing wraps the handler with otelhttp server spans.
	Tracing bool
	// TrustProxyHeaders keys the login rate limit by X-Forwarded-For.
	TrustProxyHeaders bool
}

// Dependencies are the services and infrastructure the server routes to.
// Metrics, Registry, LoginLimiter and Uploads are optional.
type Dependencies struct {
	Users        *users.Service
	Roles        *rbac.Service
	Businesses   *businesses.Service
	Tokens       middleware.TokenVerifier
	UserLoader   middleware.UserLoader
	Health       *observability.HealthChecker
	Logger       *observability.Logger
	Metrics      *observability.Metrics
	Registry     *prometheus.Registry
	LoginLimiter *middleware.RateLimiter
	Uploads      http.Handler
	Options      Options
}

// Server is the REST API
type Server struct {
	router   *mux.Router
	api      *mux.Router
	handler  http.Handler
	resolver *middleware.AccessResolver
	gate     *middleware.Gate
	errors   httputil.ErrorWriter
	opts     Options
}

// NewServer builds the router and the middleware chain
func NewServer(deps Dependencies) *Server {
	errorWriter := httputil.ErrorWriter{ExposeInternal: deps.Options.ExposeInternalErrors}

	s := &Server{
		router:   mux.NewRouter(),
		resolver: middleware.NewAccessResolver(deps.Tokens, deps.UserLoader, errorWriter),
		gate:     middleware.NewGate(deps.Metrics, errorWriter),
		errors:   errorWriter,
		opts:     deps.Options,
	}
	s.api = s.router.PathPrefix("/api").Subrouter()

	if deps.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(deps.Metrics))
	}

	s.setupRoutes(deps)

	logger := deps.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}

	var handler http.Handler = s.router
	handler = httputil.Chain(
		httputil.RecoveryMiddleware,
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.CORSMiddleware(deps.Options.AllowedOrigins),
		s.limitBody,
	)(handler)
	if deps.Options.Tracing {
		handler = otelhttp.NewHandler(handler, "grinplace-api")
	}
	s.handler = handler
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(deps Dependencies) {
	if deps.Health != nil {
		s.api.HandleFunc("/health", deps.Health.Status).Methods(http.MethodGet)
		s.router.HandleFunc("/health/live", deps.Health.Liveness).Methods(http.MethodGet)
		s.router.HandleFunc("/health/ready", deps.Health.Readiness).Methods(http.MethodGet)
	}
	if deps.Registry != nil {
		s.router.Handle("/metrics", observability.MetricsHandler(deps.Registry)).Methods(http.MethodGet)
	}
	if deps.Uploads != nil {
		s.router.PathPrefix(UploadsPrefix).
			Handler(http.StripPrefix(UploadsPrefix, deps.Uploads)).
			Methods(http.MethodGet, http.MethodHead)
	}

	var limiter *middleware.RateLimitMiddleware
	if deps.LoginLimiter != nil {
		limiter = middleware.NewRateLimitMiddleware(deps.LoginLimiter, "login", deps.Metrics).
			TrustProxyHeaders(deps.Options.TrustProxyHeaders)
	}

	NewAuthHandlers(deps.Users, limiter, s.errors).RegisterRoutes(s.api, s.Protect)
	NewUserHandlers(deps.Users, s.errors, s.opts.MaxUploadBytes).RegisterRoutes(s.api, s.Protect)
	NewRoleHandlers(deps.Roles, s.errors).RegisterRoutes(s.api, s.Protect)
	NewBusinessHandlers(deps.Businesses, s.errors, s.opts.MaxUploadBytes).RegisterRoutes(s.api, s.Protect)
}

// Guard wraps a handler so that it requires an authenticated caller holding
// every listed permission. With no permissions any active account passes.
type Guard func(h http.HandlerFunc, required ...rbac.Permission) http.Handler

// Protect is the server's Guard
func (s *Server) Protect(h http.HandlerFunc, required ...rbac.Permission) http.Handler {
	var handler http.Handler = h
	if len(required) > 0 {
		handler = s.gate.Require(required...)(handler)
	}
	return s.resolver.Handler(handler)
}

// Handle mounts an additional protected route under /api
func (s *Server) Handle(path string, h http.HandlerFunc, method string, required ...rbac.Permission) {
	s.api.Handle(path, s.Protect(h, required...)).Methods(method)
}

// limitBody caps request bodies; multipart uploads get the upload limit.
func (s *Server) limitBody(next http.Handler) http.Handler {
	jsonLimit := httputil.MaxBytesMiddleware(s.opts.MaxBodyBytes)(next)
	uploadLimit := httputil.MaxBytesMiddleware(s.opts.MaxUploadBytes)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			uploadLimit.ServeHTTP(w, r)
			return
		}
		jsonLimit.ServeHTTP(w, r)
	})
}

// Router exposes the underlying router
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
