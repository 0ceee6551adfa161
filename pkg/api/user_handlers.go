package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/grinplace/pkg/httputil"
	"github.com/platinummonkey/grinplace/pkg/middleware"
	"github.com/platinummonkey/grinplace/pkg/rbac"
	"github.com/platinummonkey/grinplace/pkg/users"
)

// UserHandlers handles user administration and self-service settings
type UserHandlers struct {
	users          *users.Service
	errors         httputil.ErrorWriter
	maxUploadBytes int64
}

// NewUserHandlers creates user handlers
func NewUserHandlers(svc *users.Service, errorWriter httputil.ErrorWriter, maxUploadBytes int64) *UserHandlers {
	return &UserHandlers{
		users:          svc,
		errors:         errorWriter,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes registers user routes. Fixed paths come before /users/{id}.
func (h *UserHandlers) RegisterRoutes(router *mux.Router, protect Guard) {
	// Self-service
	router.Handle("/users/settings", protect(h.getSettings)).Methods(http.MethodGet)
	router.Handle("/users/settings", protect(h.updateSettings)).Methods(http.MethodPost)
	router.Handle("/users/profile", protect(h.updateProfile)).Methods(http.MethodPut)
	router.Handle("/users/upload-photo", protect(h.uploadPhoto)).Methods(http.MethodPost)

	// Administration
	router.Handle("/users", protect(h.listUsers, rbac.PermManageUsers)).Methods(http.MethodGet)
	router.Handle("/users", protect(h.createUser, rbac.PermManageUsers)).Methods(http.MethodPost)
	router.Handle("/users/role/{role}", protect(h.listByRole, rbac.PermManageUsers)).Methods(http.MethodGet)
	router.Handle("/users/{id}", protect(h.getUser, rbac.PermManageUsers)).Methods(http.MethodGet)
	router.Handle("/users/{id}", protect(h.updateUser, rbac.PermManageUsers)).Methods(http.MethodPut)
	router.Handle("/users/{id}", protect(h.deleteUser, rbac.PermManageUsers)).Methods(http.MethodDelete)
}

// listUsers handles GET /users?role=&businessId=
func (h *UserHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	list, err := h.users.List(r.Context(), users.ListFilter{
		RoleName:   strings.TrimSpace(query.Get("role")),
		BusinessID: strings.TrimSpace(query.Get("businessId")),
	})
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, list)
}

// listByRole handles GET /users/role/{role}
func (h *UserHandlers) listByRole(w http.ResponseWriter, r *http.Request) {
	role, err := httputil.PathVar(r, "role")
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	list, err := h.users.ListByRoleName(r.Context(), role)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, list)
}

// getUser handles GET /users/{id}
func (h *UserHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathVar(r, "id")
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, user)
}

// createUser handles POST /users
func (h *UserHandlers) createUser(w http.ResponseWriter, r *http.Request) {
	var req users.CreateUserInput
	if err := httputil.ParseJSON(r, &req); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	user, err := h.users.Create(r.Context(), middleware.Principal(r.Context()), req)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteCreated(w, user)
}

// updateUser handles PUT /users/{id}
func (h *UserHandlers) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathVar(r, "id")
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	var req users.UpdateUserInput
	if err := httputil.ParseJSON(r, &req); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	user, err := h.users.Update(r.Context(), middleware.Principal(r.Context()), id, req)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, user)
}

// deleteUser handles DELETE /users/{id}
func (h *UserHandlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathVar(r, "id")
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteMessage(w, "user deleted")
}

// getSettings handles GET /users/settings
func (h *UserHandlers) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.users.Settings(r.Context(), middleware.Principal(r.Context()).ID)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, settings)
}

// updateSettings handles POST /users/settings
func (h *UserHandlers) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch users.SettingsPatch
	if err := httputil.ParseJSON(r, &patch); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	settings, err := h.users.UpdateSettings(r.Context(), middleware.Principal(r.Context()).ID, patch)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, settings)
}

// updateProfile handles PUT /users/profile
func (h *UserHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
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
	_ = httputil.WriteSuccess(w, user)
}

// uploadPhoto handles POST /users/upload-photo (multipart field "photo")
func (h *UserHandlers) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	upload, release, err := formFile(r, "photo", h.maxUploadBytes)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	defer release()

	user, err := h.users.UploadPhoto(r.Context(), middleware.Principal(r.Context()).ID, upload)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, user)
}
