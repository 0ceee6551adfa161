package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/grinplace/pkg/httputil"
	"github.com/platinummonkey/grinplace/pkg/middleware"
	"github.com/platinummonkey/grinplace/pkg/rbac"
	"github.com/platinummonkey/grinplace/pkg/users"
)

// AuthHandlers handles login, registration and the caller's own profile
type AuthHandlers struct {
	users   *users.Service
	limiter *middleware.RateLimitMiddleware
	errors  httputil.ErrorWriter
}

// NewAuthHandlers creates auth handlers. limiter may be nil, in which case
// logins are not rate limited.
func NewAuthHandlers(svc *users.Service, limiter *middleware.RateLimitMiddleware, errorWriter httputil.ErrorWriter) *AuthHandlers {
	return &AuthHandlers{
		users:   svc,
		limiter: limiter,
		errors:  errorWriter,
	}
}

// RegisterRoutes registers authentication routes
func (h *AuthHandlers) RegisterRoutes(router *mux.Router, protect Guard) {
	var login http.Handler = http.HandlerFunc(h.login)
	if h.limiter != nil {
		login = h.limiter.Handler(login)
	}
	router.Handle("/auth/login", login).Methods(http.MethodPost)

	router.Handle("/auth/register", protect(h.register, rbac.PermManageUsers)).Methods(http.MethodPost)
	router.Handle("/auth/profile", protect(h.getProfile)).Methods(http.MethodGet)
	router.Handle("/auth/profile", protect(h.updateProfile)).Methods(http.MethodPut)
}

// login handles POST /auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req users.LoginInput
	if err := httputil.ParseJSON(r, &req); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	result, err := h.users.Login(r.Context(), req)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, result)
}

type registerResponse struct {
	Message string        `json:"message"`
	User    users.Summary `json:"user"`
}

// register handles POST /auth/register
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req users.CreateUserInput
	if err := httputil.ParseJSON(r, &req); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	summary, err := h.users.Register(r.Context(), middleware.Principal(r.Context()), req)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteCreated(w, registerResponse{Message: "user created", User: summary})
}

// getProfile handles GET /auth/profile
func (h *AuthHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Profile(r.Context(), middleware.Principal(r.Context()).ID)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, user.Summary())
}

// updateProfile handles PUT /auth/profile
func (h *AuthHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req users.ProfileInput
	if err := httputil.ParseJSON(r, &req); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), middleware.Principal(r.Context()).ID, req)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, user.Summary())
}
