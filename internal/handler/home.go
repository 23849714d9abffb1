package handler

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/dukerupert/roamstay/internal/model"
	"github.com/dukerupert/roamstay/internal/pricing"
	"github.com/dukerupert/roamstay/internal/store"
	"github.com/dukerupert/roamstay/internal/view"
)

const featuredListings = 6

type HomeHandler struct {
	listings store.Listings
	pricing  *pricing.Service
	static   fs.FS
	views    *view.Renderer
}

func NewHomeHandler(listings store.Listings, ps *pricing.Service, static fs.FS, views *view.Renderer) *HomeHandler {
	return &HomeHandler{listings: listings, pricing: ps, static: static, views: views}
}

func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) error {
	featured, err := h.listings.List(r.Context(), model.ListingFilter{Limit: featuredListings})
	if err != nil {
		return err
	}
	h.views.Render(w, r, http.StatusOK, "home.html", "Roamstay", featured)
	return nil
}

func (h *HomeHandler) Favicon(w http.ResponseWriter, r *http.Request) {
	if _, err := fs.Stat(h.static, "favicon.svg"); err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFileFS(w, r, h.static, "favicon.svg")
}

func (h *HomeHandler) PredictPrice(w http.ResponseWriter, r *http.Request) error {
	q, err := pricing.ParseQuery(r.URL.Query())
	if errors.Is(err, pricing.ErrInvalidQuery) {
		return BadRequest(err.Error())
	}
	res, err := h.pricing.Predict(r.Context(), q)
	if err != nil {
		return err
	}
	w.Header().Set("X-Price-Source", res.Source)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(res.Body)
	return nil
}
