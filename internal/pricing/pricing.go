// Package pricing predicts nightly prices, forwarding to a remote predictor
// when one is configured and estimating from comparable listings otherwise.
package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/dukerupert/roamstay/internal/metrics"
	"github.com/dukerupert/roamstay/internal/model"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute

	defaultGuests = 2
	defaultNights = 1
	maxGuests     = 16
	maxNights     = 365
)

var ErrInvalidQuery = errors.New("invalid price query")

type Query struct {
	Location string
	Country  string
	Guests   int
	Nights   int
}

// ParseQuery reads a Query from URL parameters, applying defaults for
// guests and nights.
func ParseQuery(v url.Values) (Query, error) {
	q := Query{
		Location: strings.TrimSpace(v.Get("location")),
		Country:  strings.TrimSpace(v.Get("country")),
		Guests:   defaultGuests,
		Nights:   defaultNights,
	}
	var err error
	if s := v.Get("guests"); s != "" {
		if q.Guests, err = strconv.Atoi(s); err != nil || q.Guests < 1 || q.Guests > maxGuests {
			return q, fmt.Errorf("%w: guests must be between 1 and %d", ErrInvalidQuery, maxGuests)
		}
	}
	if s := v.Get("nights"); s != "" {
		if q.Nights, err = strconv.Atoi(s); err != nil || q.Nights < 1 || q.Nights > maxNights {
			return q, fmt.Errorf("%w: nights must be between 1 and %d", ErrInvalidQuery, maxNights)
		}
	}
	return q, nil
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Location != "" {
		v.Set("location", q.Location)
	}
	if q.Country != "" {
		v.Set("country", q.Country)
	}
	v.Set("guests", strconv.Itoa(q.Guests))
	v.Set("nights", strconv.Itoa(q.Nights))
	return v
}

func (q Query) cacheKey() string {
	return strings.ToLower(q.values().Encode())
}

// Result is a JSON prediction body and where it came from.
type Result struct {
	Source string
	Body   json.RawMessage
}

const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// ListingSource is the subset of the listing store the estimator reads.
type ListingSource interface {
	List(ctx context.Context, f model.ListingFilter) ([]model.Listing, error)
}

type Service struct {
	remote   *Remote
	listings ListingSource
	base     int
	cache    *cache.Cache
	logger   *slog.Logger
}

// NewService builds a Service. remote may be nil; basePrice is used when
// no comparable listing exists.
func NewService(remote *Remote, listings ListingSource, basePrice int, logger *slog.Logger) *Service {
	return &Service{
		remote:   remote,
		listings: listings,
		base:     basePrice,
		cache:    cache.New(cacheTTL, cacheCleanup),
		logger:   logger,
	}
}

// Predict returns a cached or fresh prediction for q. Remote failures fall
// back to the local estimate.
func (s *Service) Predict(ctx context.Context, q Query) (Result, error) {
	key := q.cacheKey()
	if cached, ok := s.cache.Get(key); ok {
		return cached.(Result), nil
	}

	if s.remote != nil {
		body, err := s.remote.Predict(ctx, q)
		if err == nil {
			res := Result{Source: SourceRemote, Body: body}
			s.cache.Set(key, res, cache.DefaultExpiration)
			metrics.PricePredictions.WithLabelValues(SourceRemote).Inc()
			return res, nil
		}
		s.logger.Warn("remote price predictor failed, using local estimate", "error", err)
	}

	est, err := s.Estimate(ctx, q)
	if err != nil {
		return Result{}, err
	}
	body, err := json.Marshal(est)
	if err != nil {
		return Result{}, fmt.Errorf("marshal estimate: %w", err)
	}
	res := Result{Source: SourceLocal, Body: body}
	s.cache.Set(key, res, cache.DefaultExpiration)
	metrics.PricePredictions.WithLabelValues(SourceLocal).Inc()
	return res, nil
}
