package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/dukerupert/roamstay/internal/model"
)

type fakeListings []model.Listing

func (f fakeListings) List(_ context.Context, filter model.ListingFilter) ([]model.Listing, error) {
	var out []model.Listing
	for _, l := range f {
		if filter.Location != "" && !strings.EqualFold(l.Location, filter.Location) {
			continue
		}
		if filter.Country != "" && !strings.EqualFold(l.Country, filter.Country) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

type failingListings struct{}

func (failingListings) List(context.Context, model.ListingFilter) ([]model.Listing, error) {
	return nil, errors.New("db down")
}

var sample = fakeListings{
	{Price: 100, Location: "Lisbon", Country: "Portugal"},
	{Price: 200, Location: "Lisbon", Country: "Portugal"},
	{Price: 300, Location: "Porto", Country: "Portugal"},
	{Price: 1000, Location: "Zurich", Country: "Switzerland"},
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery(url.Values{"location": {" Lisbon "}, "guests": {"4"}, "nights": {"7"}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Location != "Lisbon" || q.Guests != 4 || q.Nights != 7 {
		t.Errorf("query = %+v", q)
	}

	q, err = ParseQuery(url.Values{})
	if err != nil {
		t.Fatalf("parse defaults: %v", err)
	}
	if q.Guests != 2 || q.Nights != 1 {
		t.Errorf("defaults = %+v, want guests 2 nights 1", q)
	}

	for _, bad := range []url.Values{
		{"guests": {"0"}},
		{"guests": {"abc"}},
		{"nights": {"366"}},
		{"nights": {"-1"}},
	} {
		if _, err := ParseQuery(bad); !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("ParseQuery(%v) err = %v, want ErrInvalidQuery", bad, err)
		}
	}
}

func TestEstimateTiers(t *testing.T) {
	s := NewService(nil, sample, 120, testLogger())

	tests := []struct {
		name      string
		q         Query
		wantBasis string
		wantPrice int
		wantComps int
	}{
		{"same location", Query{Location: "lisbon", Country: "Portugal", Guests: 2, Nights: 1}, "location", 150, 2},
		{"same country", Query{Location: "Faro", Country: "Portugal", Guests: 2, Nights: 1}, "country", 200, 3},
		{"all listings", Query{Location: "Oslo", Country: "Norway", Guests: 2, Nights: 1}, "all", 250, 4},
		{"no location given", Query{Guests: 2, Nights: 1}, "all", 250, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est, err := s.Estimate(context.Background(), tt.q)
			if err != nil {
				t.Fatalf("estimate: %v", err)
			}
			if est.Basis != tt.wantBasis || est.NightlyPrice != tt.wantPrice || est.Comparables != tt.wantComps {
				t.Errorf("estimate = %+v, want basis %s price %d comps %d", est, tt.wantBasis, tt.wantPrice, tt.wantComps)
			}
		})
	}
}

func TestEstimateDefaultPrice(t *testing.T) {
	s := NewService(nil, fakeListings{}, 120, testLogger())
	est, err := s.Estimate(context.Background(), Query{Location: "Nowhere", Guests: 2, Nights: 1})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if est.Basis != "default" || est.NightlyPrice != 120 {
		t.Errorf("estimate = %+v, want default 120", est)
	}
}

func TestEstimateStoreError(t *testing.T) {
	s := NewService(nil, failingListings{}, 120, testLogger())
	if _, err := s.Estimate(context.Background(), Query{Guests: 2, Nights: 1}); err == nil {
		t.Error("expected error from listing source")
	}
}

func TestAdjust(t *testing.T) {
	tests := []struct {
		base, guests, nights int
		wantNightly          int
		wantTotal            int
	}{
		{100, 2, 1, 100, 100},
		{100, 1, 3, 100, 300},
		{100, 4, 1, 130, 130},
		{100, 2, 7, 100, 630},
		{200, 3, 10, 230, 2070},
	}
	for _, tt := range tests {
		n, total := adjust(tt.base, tt.guests, tt.nights)
		if n != tt.wantNightly || total != tt.wantTotal {
			t.Errorf("adjust(%d, %d, %d) = %d, %d; want %d, %d",
				tt.base, tt.guests, tt.nights, n, total, tt.wantNightly, tt.wantTotal)
		}
	}
}

func TestMedianPrice(t *testing.T) {
	odd := []model.Listing{{Price: 300}, {Price: 100}, {Price: 200}}
	if got := medianPrice(odd); got != 200 {
		t.Errorf("odd median = %d, want 200", got)
	}
	even := []model.Listing{{Price: 101}, {Price: 100}}
	if got := medianPrice(even); got != 101 {
		t.Errorf("even median = %d, want 101", got)
	}
}

func TestPredictRemotePassThrough(t *testing.T) {
	var calls atomic.Int32
	var gotQuery url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"predicted_price": 321.5, "model": "gbm"}`))
	}))
	defer server.Close()

	s := NewService(NewRemote(server.URL), sample, 120, testLogger())
	q := Query{Location: "Lisbon", Country: "Portugal", Guests: 3, Nights: 2}

	res, err := s.Predict(context.Background(), q)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if res.Source != SourceRemote {
		t.Errorf("source = %q, want remote", res.Source)
	}
	var body map[string]any
	if err := json.Unmarshal(res.Body, &body); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if body["model"] != "gbm" {
		t.Errorf("body = %v, want pass-through", body)
	}
	if gotQuery.Get("location") != "Lisbon" || gotQuery.Get("guests") != "3" || gotQuery.Get("nights") != "2" {
		t.Errorf("forwarded query = %v", gotQuery)
	}

	if _, err := s.Predict(context.Background(), q); err != nil {
		t.Fatalf("second predict: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("remote calls = %d, want 1 (cached)", calls.Load())
	}
}

func TestPredictRemoteFailureFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	s := NewService(NewRemote(server.URL), sample, 120, testLogger())
	res, err := s.Predict(context.Background(), Query{Location: "Lisbon", Guests: 2, Nights: 1})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if res.Source != SourceLocal {
		t.Fatalf("source = %q, want local", res.Source)
	}
	var est Estimate
	if err := json.Unmarshal(res.Body, &est); err != nil {
		t.Fatalf("unmarshal estimate: %v", err)
	}
	if est.NightlyPrice != 150 {
		t.Errorf("nightly = %d, want 150", est.NightlyPrice)
	}
}

func TestRemoteRejectsInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer server.Close()

	_, err := NewRemote(server.URL).Predict(context.Background(), Query{Guests: 2, Nights: 1})
	if !errors.Is(err, errInvalidJSON) {
		t.Errorf("err = %v, want errInvalidJSON", err)
	}
}
