package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/grinplace/pkg/businesses"
	"github.com/platinummonkey/grinplace/pkg/httputil"
	"github.com/platinummonkey/grinplace/pkg/middleware"
	"github.com/platinummonkey/grinplace/pkg/rbac"
)

// BusinessHandlers handles business CRUD
type BusinessHandlers struct {
	businesses     *businesses.Service
	errors         httputil.ErrorWriter
	maxUploadBytes int64
}

// NewBusinessHandlers creates business handlers
func NewBusinessHandlers(svc *businesses.Service, errorWriter httputil.ErrorWriter, maxUploadBytes int64) *BusinessHandlers {
	return &BusinessHandlers{
		businesses:     svc,
		errors:         errorWriter,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes registers business routes. Reads are open to any
// authenticated caller and scoped by the service; writes need
// manage_businesses.
func (h *BusinessHandlers) RegisterRoutes(router *mux.Router, protect Guard) {
	router.Handle("/businesses", protect(h.listBusinesses)).Methods(http.MethodGet)
	router.Handle("/businesses", protect(h.createBusiness, rbac.PermManageBusinesses)).Methods(http.MethodPost)
	router.Handle("/businesses/{id}", protect(h.getBusiness)).Methods(http.MethodGet)
	router.Handle("/businesses/{id}", protect(h.updateBusiness, rbac.PermManageBusinesses)).Methods(http.MethodPut)
	router.Handle("/businesses/{id}", protect(h.deleteBusiness, rbac.PermManageBusinesses)).Methods(http.MethodDelete)
	router.Handle("/businesses/{id}/logo", protect(h.uploadLogo, rbac.PermManageBusinesses)).Methods(http.MethodPost)
}

// listBusinesses handles GET /businesses
func (h *BusinessHandlers) listBusinesses(w http.ResponseWriter, r *http.Request) {
	list, err := h.businesses.List(r.Context(), middleware.Principal(r.Context()))
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, list)
}

// getBusiness handles GET /businesses/{id}
func (h *BusinessHandlers) getBusiness(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathVar(r, "id")
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	b, err := h.businesses.Get(r.Context(), middleware.Principal(r.Context()), id)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, b)
}

// createBusiness handles POST /businesses
func (h *BusinessHandlers) createBusiness(w http.ResponseWriter, r *http.Request) {
	var req businesses.CreateInput
	if err := httputil.ParseJSON(r, &req); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	b, err := h.businesses.Create(r.Context(), middleware.Principal(r.Context()), req)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteCreated(w, b)
}

// updateBusiness handles PUT /businesses/{id}
func (h *BusinessHandlers) updateBusiness(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathVar(r, "id")
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	var req businesses.UpdateInput
	if err := httputil.ParseJSON(r, &req); err != nil {
		h.errors.Write(w, r, err)
		return
	}

	b, err := h.businesses.Update(r.Context(), id, req)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, b)
}

// deleteBusiness handles DELETE /businesses/{id}
func (h *BusinessHandlers) deleteBusiness(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathVar(r, "id")
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	if err := h.businesses.Delete(r.Context(), id); err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteMessage(w, "business deleted")
}

// uploadLogo handles POST /businesses/{id}/logo (multipart field "logo")
func (h *BusinessHandlers) uploadLogo(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathVar(r, "id")
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}

	upload, release, err := formFile(r, "logo", h.maxUploadBytes)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	defer release()

	b, err := h.businesses.UploadLogo(r.Context(), id, upload)
	if err != nil {
		h.errors.Write(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, b)
}
