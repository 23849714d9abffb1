package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukerupert/roamstay/internal/journey"
	"github.com/dukerupert/roamstay/internal/model"
	"github.com/dukerupert/roamstay/internal/store"
	"github.com/dukerupert/roamstay/internal/view"
)

type JourneyHandler struct {
	journeys store.Journeys
	seeder   *journey.Seeder
	views    *view.Renderer
	logger   *slog.Logger
}

func NewJourneyHandler(journeys store.Journeys, seeder *journey.Seeder, views *view.Renderer, logger *slog.Logger) *JourneyHandler {
	return &JourneyHandler{journeys: journeys, seeder: seeder, views: views, logger: logger}
}

func (h *JourneyHandler) List(w http.ResponseWriter, r *http.Request) error {
	list, err := h.journeys.List(r.Context(), journey.ParseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		return err
	}
	if list == nil {
		list = []model.Journey{}
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

func (h *JourneyHandler) Get(w http.ResponseWriter, r *http.Request) error {
	j, err := h.journeys.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		return err
	}
	if j == nil {
		return NotFoundError("journey not found")
	}
	writeJSON(w, http.StatusOK, j)
	return nil
}

func (h *JourneyHandler) Page(w http.ResponseWriter, r *http.Request) error {
	list, err := h.journeys.List(r.Context(), journey.MaxLimit)
	if err != nil {
		return err
	}
	h.views.Render(w, r, http.StatusOK, "journey.html", "Journeys", list)
	return nil
}

func (h *JourneyHandler) Seed(w http.ResponseWriter, r *http.Request) error {
	res, err := h.seeder.Seed(r.Context(), journey.DefaultJourneys)
	if err != nil {
		return err
	}
	flash(r, "success", fmt.Sprintf("Seeded %d journeys and %d listings.", res.Journeys, res.Listings))
	redirect(w, r, "/journey")
	return nil
}
