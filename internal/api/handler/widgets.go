package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// WidgetHandler handles widget catalog requests.
type WidgetHandler struct {
	svc DataProvider
}

// NewWidgetHandler creates a new WidgetHandler.
func NewWidgetHandler(svc DataProvider) *WidgetHandler {
	return &WidgetHandler{svc: svc}
}

// List handles GET /api/v1/widgets.
func (h *WidgetHandler) List(w http.ResponseWriter, r *http.Request) {
	widgets, err := h.svc.ListWidgets(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, widgets)
}

// Get handles GET /api/v1/widgets/{id}.
func (h *WidgetHandler) Get(w http.ResponseWriter, r *http.Request) {
	widget, err := h.svc.GetWidget(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	if etag, err := GenerateETag("widget", widget); err == nil {
		w.Header().Set("ETag", etag)
		if CheckIfNoneMatch(r, etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	respondJSON(w, http.StatusOK, widget)
}

// Delete handles DELETE /api/v1/widgets/{id}.
func (h *WidgetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteWidget(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
