package pricing

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/dukerupert/roamstay/internal/model"
)

const (
	guestSurcharge = 0.15
	longStayNights = 7
	longStayFactor = 0.90
)

// Estimate is the locally computed prediction.
type Estimate struct {
	Location     string `json:"location,omitempty"`
	Country      string `json:"country,omitempty"`
	Guests       int    `json:"guests"`
	Nights       int    `json:"nights"`
	NightlyPrice int    `json:"nightly_price"`
	TotalPrice   int    `json:"total_price"`
	Basis        string `json:"basis"`
	Comparables  int    `json:"comparables"`
	Source       string `json:"source"`
}

// Estimate prices q from the median of comparable listings, widening the
// comparison set from location to country to all listings, and falling
// back to the base price when there are none.
func (s *Service) Estimate(ctx context.Context, q Query) (Estimate, error) {
	tiers := []struct {
		basis  string
		filter model.ListingFilter
		skip   bool
	}{
		{"location", model.ListingFilter{Location: q.Location}, q.Location == ""},
		{"country", model.ListingFilter{Country: q.Country}, q.Country == ""},
		{"all", model.ListingFilter{}, false},
	}

	basis, median, n := "default", s.base, 0
	for _, tier := range tiers {
		if tier.skip {
			continue
		}
		listings, err := s.listings.List(ctx, tier.filter)
		if err != nil {
			return Estimate{}, fmt.Errorf("load comparables: %w", err)
		}
		if len(listings) == 0 {
			continue
		}
		basis, median, n = tier.basis, medianPrice(listings), len(listings)
		break
	}

	nightly, total := adjust(median, q.Guests, q.Nights)
	return Estimate{
		Location:     q.Location,
		Country:      q.Country,
		Guests:       q.Guests,
		Nights:       q.Nights,
		NightlyPrice: nightly,
		TotalPrice:   total,
		Basis:        basis,
		Comparables:  n,
		Source:       SourceLocal,
	}, nil
}

func medianPrice(listings []model.Listing) int {
	prices := make([]int, len(listings))
	for i, l := range listings {
		prices[i] = l.Price
	}
	sort.Ints(prices)
	mid := len(prices) / 2
	if len(prices)%2 == 1 {
		return prices[mid]
	}
	return int(math.Round(float64(prices[mid-1]+prices[mid]) / 2))
}

// adjust applies the per-guest surcharge beyond two guests and the long
// stay discount.
func adjust(base, guests, nights int) (nightly, total int) {
	n := float64(base)
	if extra := guests - 2; extra > 0 {
		n *= 1 + guestSurcharge*float64(extra)
	}
	t := n * float64(nights)
	if nights >= longStayNights {
		t *= longStayFactor
	}
	return int(math.Round(n)), int(math.Round(t))
}
