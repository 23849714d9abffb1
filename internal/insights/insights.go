// Package insights computes aggregate statistics over listings and reviews.
package insights

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/dukerupert/roamstay/internal/model"
	"github.com/dukerupert/roamstay/internal/store"
)

const (
	cacheTTL     = time.Minute
	cacheCleanup = 5 * time.Minute
	topCountries = 5
	overviewKey  = "overview"
)

// bucketBounds are the upper bounds (exclusive) of the price buckets; the
// last bucket is open-ended.
var bucketBounds = []int{50, 100, 200, 500}

type CountryCount struct {
	Country  string `json:"country"`
	Listings int    `json:"listings"`
}

type PriceBucket struct {
	Min   int  `json:"min"`
	Max   *int `json:"max"`
	Count int  `json:"count"`
}

type Overview struct {
	Listings      int64          `json:"listings"`
	Reviews       int            `json:"reviews"`
	Users         int64          `json:"users"`
	AveragePrice  float64        `json:"average_price"`
	AverageRating float64        `json:"average_rating"`
	TopCountries  []CountryCount `json:"top_countries"`
	PriceBuckets  []PriceBucket  `json:"price_buckets"`
}

type ListingInsights struct {
	ListingID       string              `json:"listing_id"`
	Ratings         model.RatingSummary `json:"ratings"`
	Price           int                 `json:"price"`
	Country         string              `json:"country"`
	CountryListings int                 `json:"country_listings"`
	PricePercentile float64             `json:"price_percentile"`
}

type Service struct {
	users    store.Users
	listings store.Listings
	reviews  store.Reviews
	cache    *cache.Cache
}

func NewService(users store.Users, listings store.Listings, reviews store.Reviews) *Service {
	return &Service{
		users:    users,
		listings: listings,
		reviews:  reviews,
		cache:    cache.New(cacheTTL, cacheCleanup),
	}
}

// Invalidate drops cached results after listings or reviews change.
func (s *Service) Invalidate() {
	s.cache.Flush()
}

func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	if v, ok := s.cache.Get(overviewKey); ok {
		return v.(*Overview), nil
	}

	listings, err := s.listings.List(ctx, model.ListingFilter{})
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	users, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	ratings, err := s.reviews.Summary(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("summarize reviews: %w", err)
	}

	o := &Overview{
		Listings:      int64(len(listings)),
		Reviews:       ratings.Count,
		Users:         users,
		AverageRating: ratings.Average,
		TopCountries:  countCountries(listings),
		PriceBuckets:  bucketPrices(listings),
	}
	if len(listings) > 0 {
		var sum int
		for _, l := range listings {
			sum += l.Price
		}
		o.AveragePrice = round2(float64(sum) / float64(len(listings)))
	}

	s.cache.Set(overviewKey, o, cache.DefaultExpiration)
	return o, nil
}

// Listing returns insights for one listing, or (nil, nil) if it does not
// exist.
func (s *Service) Listing(ctx context.Context, id string) (*ListingInsights, error) {
	key := "listing:" + id
	if v, ok := s.cache.Get(key); ok {
		return v.(*ListingInsights), nil
	}

	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	if l == nil {
		return nil, nil
	}
	ratings, err := s.reviews.Summary(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("summarize reviews: %w", err)
	}
	peers, err := s.listings.List(ctx, model.ListingFilter{Country: l.Country})
	if err != nil {
		return nil, fmt.Errorf("list peers: %w", err)
	}

	li := &ListingInsights{
		ListingID:       l.ID,
		Ratings:         ratings,
		Price:           l.Price,
		Country:         l.Country,
		CountryListings: len(peers),
		PricePercentile: percentile(l.Price, peers),
	}
	s.cache.Set(key, li, cache.DefaultExpiration)
	return li, nil
}

func countCountries(listings []model.Listing) []CountryCount {
	counts := make(map[string]int)
	for _, l := range listings {
		counts[l.Country]++
	}
	out := make([]CountryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, CountryCount{Country: c, Listings: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Listings != out[j].Listings {
			return out[i].Listings > out[j].Listings
		}
		return out[i].Country < out[j].Country
	})
	if len(out) > topCountries {
		out = out[:topCountries]
	}
	return out
}

func bucketPrices(listings []model.Listing) []PriceBucket {
	buckets := make([]PriceBucket, len(bucketBounds)+1)
	lo := 0
	for i, hi := range bucketBounds {
		buckets[i] = PriceBucket{Min: lo, Max: &hi}
		lo = hi
	}
	buckets[len(bucketBounds)] = PriceBucket{Min: lo}

	for _, l := range listings {
		i := sort.SearchInts(bucketBounds, l.Price+1)
		buckets[i].Count++
	}
	return buckets
}

// percentile is the mid-rank percentile of price among peers.
func percentile(price int, peers []model.Listing) float64 {
	if len(peers) == 0 {
		return 0
	}
	var below, equal int
	for _, p := range peers {
		switch {
		case p.Price < price:
			below++
		case p.Price == price:
			equal++
		}
	}
	return round2((float64(below) + float64(equal)/2) / float64(len(peers)) * 100)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
