package handler

import (
	"net/http"

	"github.com/dukerupert/roamstay/internal/insights"
)

type InsightsHandler struct {
	svc *insights.Service
}

func NewInsightsHandler(svc *insights.Service) *InsightsHandler {
	return &InsightsHandler{svc: svc}
}

func (h *InsightsHandler) Overview(w http.ResponseWriter, r *http.Request) error {
	o, err := h.svc.Overview(r.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, o)
	return nil
}

func (h *InsightsHandler) Listing(w http.ResponseWriter, r *http.Request) error {
	li, err := h.svc.Listing(r.Context(), r.PathValue("id"))
	if err != nil {
		return err
	}
	if li == nil {
		return NotFoundError("listing not found")
	}
	writeJSON(w, http.StatusOK, li)
	return nil
}
