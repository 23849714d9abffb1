package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/roamstay/internal/auth"
	"github.com/dukerupert/roamstay/internal/insights"
	"github.com/dukerupert/roamstay/internal/model"
	"github.com/dukerupert/roamstay/internal/store"
	"github.com/dukerupert/roamstay/internal/websocket"
)

type ReviewHandler struct {
	listings store.Listings
	reviews  store.Reviews
	insights *insights.Service
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewReviewHandler(st *store.Store, ins *insights.Service, hub *websocket.Hub, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		listings: st.Listings,
		reviews:  st.Reviews,
		insights: ins,
		hub:      hub,
		logger:   logger,
	}
}

func (h *ReviewHandler) changed(action, reviewID, listingID string) {
	if h.insights != nil {
		h.insights.Invalidate()
	}
	if h.hub != nil {
		h.hub.Broadcast(websocket.ReviewMessage(action, reviewID, listingID))
	}
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) error {
	l, err := findListing(r.Context(), h.listings, w, r)
	if l == nil || err != nil {
		return err
	}
	back := listingsPath + "/" + l.ID

	rating, err := strconv.Atoi(r.FormValue("rating"))
	if err != nil {
		flash(r, "error", "Rating must be between 1 and 5")
		redirect(w, r, back)
		return nil
	}
	in := model.ReviewInput{Rating: rating, Comment: strings.TrimSpace(r.FormValue("comment"))}
	if err := validate.Struct(in); err != nil {
		flash(r, "error", validationMessage(err))
		redirect(w, r, back)
		return nil
	}

	rev, err := h.reviews.Create(r.Context(), l.ID, auth.UserID(r.Context()), in)
	if err != nil {
		return err
	}
	h.changed(websocket.ActionCreated, rev.ID, l.ID)

	flash(r, "success", "New review created!")
	redirect(w, r, back)
	return nil
}

func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	listingID := r.PathValue("id")
	back := listingsPath + "/" + listingID

	rev, err := h.reviews.GetByID(r.Context(), r.PathValue("reviewID"))
	if err != nil {
		return err
	}
	if rev == nil || rev.ListingID != listingID {
		flash(r, "error", "Review not found.")
		redirect(w, r, back)
		return nil
	}
	if rev.AuthorID != auth.UserID(r.Context()) {
		flash(r, "error", "You can only delete your own reviews.")
		redirect(w, r, back)
		return nil
	}

	if err := h.reviews.Delete(r.Context(), rev.ID); err != nil {
		return err
	}
	h.changed(websocket.ActionDeleted, rev.ID, listingID)

	flash(r, "success", "Review deleted!")
	redirect(w, r, back)
	return nil
}
