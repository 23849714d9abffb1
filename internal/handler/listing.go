package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/roamstay/internal/auth"
	"github.com/dukerupert/roamstay/internal/insights"
	"github.com/dukerupert/roamstay/internal/model"
	"github.com/dukerupert/roamstay/internal/store"
	"github.com/dukerupert/roamstay/internal/view"
	"github.com/dukerupert/roamstay/internal/websocket"
)

const listingsPath = "/listings"

type ListingHandler struct {
	listings store.Listings
	reviews  store.Reviews
	users    store.Users
	insights *insights.Service
	hub      *websocket.Hub
	views    *view.Renderer
	logger   *slog.Logger
}

func NewListingHandler(st *store.Store, ins *insights.Service, hub *websocket.Hub, views *view.Renderer, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{
		listings: st.Listings,
		reviews:  st.Reviews,
		users:    st.Users,
		insights: ins,
		hub:      hub,
		views:    views,
		logger:   logger,
	}
}

// changed publishes a listing change and drops stale aggregates.
func (h *ListingHandler) changed(action, id string) {
	if h.insights != nil {
		h.insights.Invalidate()
	}
	if h.hub != nil {
		h.hub.Broadcast(websocket.NewMessage(websocket.EntityListing, action, id))
	}
}

// listingForm holds the raw form so it can be redisplayed after a
// validation failure.
type listingForm struct {
	Title       string
	Description string
	ImageURL    string
	Price       string
	Location    string
	Country     string
}

func parseListingForm(r *http.Request) listingForm {
	return listingForm{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		ImageURL:    strings.TrimSpace(r.FormValue("image_url")),
		Price:       strings.TrimSpace(r.FormValue("price")),
		Location:    strings.TrimSpace(r.FormValue("location")),
		Country:     strings.TrimSpace(r.FormValue("country")),
	}
}

func formFromListing(l *model.Listing) listingForm {
	return listingForm{
		Title:       l.Title,
		Description: l.Description,
		ImageURL:    l.ImageURL,
		Price:       strconv.Itoa(l.Price),
		Location:    l.Location,
		Country:     l.Country,
	}
}

// input converts and validates the form, returning a user-facing message
// on failure.
func (f listingForm) input() (model.ListingInput, string) {
	in := model.ListingInput{
		Title:       f.Title,
		Description: f.Description,
		ImageURL:    f.ImageURL,
		Location:    f.Location,
		Country:     f.Country,
	}
	if f.Price != "" {
		p, err := strconv.Atoi(f.Price)
		if err != nil {
			return in, "Price must be a whole number"
		}
		in.Price = p
	}
	if err := validate.Struct(in); err != nil {
		return in, validationMessage(err)
	}
	return in, ""
}

type listingFormPage struct {
	Form   listingForm
	Action string
	Method string
	Error  string
}

func (h *ListingHandler) Index(w http.ResponseWriter, r *http.Request) error {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	listings, err := h.listings.List(r.Context(), model.ListingFilter{Query: q})
	if err != nil {
		return err
	}
	h.views.Render(w, r, http.StatusOK, "listings/index.html", "All listings", map[string]any{
		"Listings": listings,
		"Query":    q,
	})
	return nil
}

func (h *ListingHandler) New(w http.ResponseWriter, r *http.Request) error {
	h.views.Render(w, r, http.StatusOK, "listings/form.html", "New listing", listingFormPage{
		Action: listingsPath,
	})
	return nil
}

func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) error {
	form := parseListingForm(r)
	in, msg := form.input()
	if msg != "" {
		h.views.Render(w, r, http.StatusUnprocessableEntity, "listings/form.html", "New listing", listingFormPage{
			Form: form, Action: listingsPath, Error: msg,
		})
		return nil
	}

	l, err := h.listings.Create(r.Context(), auth.UserID(r.Context()), in)
	if err != nil {
		return err
	}
	h.changed(websocket.ActionCreated, l.ID)
	h.logger.Info("listing created", "listing_id", l.ID, "owner_id", l.OwnerID)

	flash(r, "success", "New listing created!")
	redirect(w, r, listingsPath+"/"+l.ID)
	return nil
}

func (h *ListingHandler) Show(w http.ResponseWriter, r *http.Request) error {
	l, err := h.find(w, r)
	if l == nil || err != nil {
		return err
	}

	reviews, err := h.reviews.ListByListing(r.Context(), l.ID)
	if err != nil {
		return err
	}
	ratings, err := h.reviews.Summary(r.Context(), l.ID)
	if err != nil {
		return err
	}
	owner, err := h.users.GetByID(r.Context(), l.OwnerID)
	if err != nil {
		return err
	}

	uid := auth.UserID(r.Context())
	h.views.Render(w, r, http.StatusOK, "listings/show.html", l.Title, map[string]any{
		"Listing": l,
		"Reviews": reviews,
		"Ratings": ratings,
		"Owner":   owner,
		"IsOwner": l.OwnerID == uid,
		"UserID":  uid,
	})
	return nil
}

func (h *ListingHandler) Edit(w http.ResponseWriter, r *http.Request) error {
	l, err := h.findOwned(w, r)
	if l == nil || err != nil {
		return err
	}
	h.views.Render(w, r, http.StatusOK, "listings/form.html", "Edit listing", listingFormPage{
		Form:   formFromListing(l),
		Action: listingsPath + "/" + l.ID,
		Method: http.MethodPut,
	})
	return nil
}

func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) error {
	l, err := h.findOwned(w, r)
	if l == nil || err != nil {
		return err
	}

	form := parseListingForm(r)
	in, msg := form.input()
	if msg != "" {
		h.views.Render(w, r, http.StatusUnprocessableEntity, "listings/form.html", "Edit listing", listingFormPage{
			Form: form, Action: listingsPath + "/" + l.ID, Method: http.MethodPut, Error: msg,
		})
		return nil
	}

	if _, err := h.listings.Update(r.Context(), l.ID, in); err != nil {
		return err
	}
	h.changed(websocket.ActionUpdated, l.ID)

	flash(r, "success", "Listing updated!")
	redirect(w, r, listingsPath+"/"+l.ID)
	return nil
}

func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	l, err := h.findOwned(w, r)
	if l == nil || err != nil {
		return err
	}
	if err := h.listings.Delete(r.Context(), l.ID); err != nil {
		return err
	}
	h.changed(websocket.ActionDeleted, l.ID)
	h.logger.Info("listing deleted", "listing_id", l.ID)

	flash(r, "success", "Listing deleted!")
	redirect(w, r, listingsPath)
	return nil
}

// find loads the listing named by the {id} path value. When it does not
// exist the response is already written and the listing is nil.
func (h *ListingHandler) find(w http.ResponseWriter, r *http.Request) (*model.Listing, error) {
	return findListing(r.Context(), h.listings, w, r)
}

// findOwned is find restricted to the current user's listings.
func (h *ListingHandler) findOwned(w http.ResponseWriter, r *http.Request) (*model.Listing, error) {
	l, err := h.find(w, r)
	if l == nil || err != nil {
		return nil, err
	}
	if l.OwnerID != auth.UserID(r.Context()) {
		flash(r, "error", "You do not have permission to do that.")
		redirect(w, r, listingsPath+"/"+l.ID)
		return nil, nil
	}
	return l, nil
}

func findListing(ctx context.Context, listings store.Listings, w http.ResponseWriter, r *http.Request) (*model.Listing, error) {
	l, err := listings.GetByID(ctx, r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	if l == nil {
		flash(r, "error", "Listing not found.")
		redirect(w, r, listingsPath)
		return nil, nil
	}
	return l, nil
}
