package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/grinplace/pkg/httputil"
	"github.com/platinummonkey/grinplace/pkg/rbac"
)

// RoleHandlers handles role administration
type RoleHandlers struct {
	roles  *rbac.Service
	errors httputil.ErrorWriter
}

// NewRoleHandlers creates role handlers
func NewRoleHandlers(svc *rbac.Service, errorWriter httputil.ErrorWriter) *RoleHandlers {
	return &RoleHandlers{roles: svc, errors: errorWriter}
}

// RegisterRoutes registers role routes; all of them require manage_roles.
func (h *RoleHandlers) RegisterRoutes(router *mux.Router, protect Guard) {
	router.Handle("/roles", protect(h.listRoles, rbac.PermManageRoles)).Methods(http.MethodGet)
	router.Handle("/roles", protect(h.createRole, rbac.PermManageRoles)).Methods(http.MethodPost)
	router.Handle("/roles/permissions", protect(h.listPermissions, rbac.PermManageRoles)).Methods(http.MethodGet)
	router.Handle("/roles/permissions/list", protect(h.listPermissions, rbac.PermManageRoles)).Methods(http.MethodGet)
	router.Handle("/roles/{id}", protect(h.getRole, rbac.PermManageRoles)).Methods(http.MethodGet)
	router.Handle("/roles/{id}", protect(h.updateRole, rbac.PermManageRoles)).Methods(http.MethodPut)
	router.Handle("/roles/{id}", protect(h.deleteRole, rbac.PermManageRoles)).Methods(http.MethodDelete)
}

// listRoles handles GET /roles
func (h *RoleHandlers) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.roles.List(r.Context())
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, roles)
}

// listPermissions handles GET /roles/permissions and /roles/permissions/list
func (h *RoleHandlers) listPermissions(w http.ResponseWriter, r *http.Request) {
	_ = httputil.WriteSuccess(w, h.roles.Permissions())
}

// getRole handles GET /roles/{id}
func (h *RoleHandlers) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathVar(r, "id")
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	role, err := h.roles.Get(r.Context(), id)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, role)
}

// createRole handles POST /roles
func (h *RoleHandlers) createRole(w http.ResponseWriter, r *http.Request) {
	var req rbac.CreateRoleInput
	if err := httputil.ParseJSON(r, &req); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	role, err := h.roles.Create(r.Context(), req)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteCreated(w, role)
}

// updateRole handles PUT /roles/{id}
func (h *RoleHandlers) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathVar(r, "id")
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	var req rbac.UpdateRoleInput
	if err := httputil.ParseJSON(r, &req); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	role, err := h.roles.Update(r.Context(), id, req)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, role)
}

// deleteRole handles DELETE /roles/{id}
func (h *RoleHandlers) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathVar(r, "id")
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	if err := h.roles.Delete(r.Context(), id); err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteMessage(w, "role deleted")
}
