package handler

import (
	"net/http"

	"github.com/dukerupert/roamstay/internal/view"
)

type Service struct {
	Name        string
	Description string
	Icon        string
}

var serviceCatalog = []Service{
	{"Airport transfers", "Door-to-door rides from the terminal to your stay.", "✈️"},
	{"Local guides", "Half and full day walks with people who live there.", "🧭"},
	{"Cleaning", "Mid-stay cleaning and fresh linen for longer visits.", "🧹"},
	{"Bike and scooter hire", "Delivered to the door, collected when you leave.", "🚲"},
	{"Grocery delivery", "A stocked fridge waiting when you arrive.", "🛒"},
	{"Travel insurance", "Cover for cancellations, delays and lost bags.", "🛡️"},
}

type ServicesHandler struct {
	views *view.Renderer
}

func NewServicesHandler(views *view.Renderer) *ServicesHandler {
	return &ServicesHandler{views: views}
}

func (h *ServicesHandler) Index(w http.ResponseWriter, r *http.Request) error {
	h.views.Render(w, r, http.StatusOK, "services.html", "Services", serviceCatalog)
	return nil
}
