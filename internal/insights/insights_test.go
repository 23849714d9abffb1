package insights

import (
	"context"
	"testing"

	"github.com/dukerupert/roamstay/internal/database"
	"github.com/dukerupert/roamstay/internal/model"
	"github.com/dukerupert/roamstay/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return store.NewSQLite(db)
}

func createListing(t *testing.T, s *store.Store, ownerID string, price int, country string) *model.Listing {
	t.Helper()
	l, err := s.Listings.Create(context.Background(), ownerID, model.ListingInput{
		Title:    "Stay",
		Price:    price,
		Location: "Somewhere",
		Country:  country,
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return l
}

func createReview(t *testing.T, s *store.Store, listingID, authorID string, rating int) {
	t.Helper()
	_, err := s.Reviews.Create(context.Background(), listingID, authorID, model.ReviewInput{Rating: rating, Comment: "ok"})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
}

func TestOverview(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	u, err := s.Users.Create(ctx, "alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	l1 := createListing(t, s, u.ID, 40, "Portugal")
	createListing(t, s, u.ID, 120, "Portugal")
	createListing(t, s, u.ID, 650, "Japan")
	createReview(t, s, l1.ID, u.ID, 4)
	createReview(t, s, l1.ID, u.ID, 5)

	svc := NewService(s.Users, s.Listings, s.Reviews)
	o, err := svc.Overview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}

	if o.Listings != 3 || o.Reviews != 2 || o.Users != 1 {
		t.Errorf("totals = %d/%d/%d, want 3/2/1", o.Listings, o.Reviews, o.Users)
	}
	if o.AveragePrice != 270 {
		t.Errorf("average price = %v, want 270", o.AveragePrice)
	}
	if o.AverageRating != 4.5 {
		t.Errorf("average rating = %v, want 4.5", o.AverageRating)
	}
	if len(o.TopCountries) != 2 || o.TopCountries[0].Country != "Portugal" || o.TopCountries[0].Listings != 2 {
		t.Errorf("top countries = %+v", o.TopCountries)
	}

	wantBuckets := []int{1, 0, 1, 0, 1}
	for i, b := range o.PriceBuckets {
		if b.Count != wantBuckets[i] {
			t.Errorf("bucket %d count = %d, want %d", i, b.Count, wantBuckets[i])
		}
	}
	if last := o.PriceBuckets[len(o.PriceBuckets)-1]; last.Max != nil || last.Min != 500 {
		t.Errorf("last bucket = %+v, want open-ended from 500", last)
	}
}

func TestOverviewCachedUntilInvalidated(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	u, _ := s.Users.Create(ctx, "alice", "alice@example.com", "hash")
	svc := NewService(s.Users, s.Listings, s.Reviews)

	if o, _ := svc.Overview(ctx); o.Listings != 0 {
		t.Fatalf("listings = %d, want 0", o.Listings)
	}
	createListing(t, s, u.ID, 100, "Spain")

	if o, _ := svc.Overview(ctx); o.Listings != 0 {
		t.Errorf("cached listings = %d, want 0", o.Listings)
	}
	svc.Invalidate()
	if o, _ := svc.Overview(ctx); o.Listings != 1 {
		t.Errorf("listings after invalidate = %d, want 1", o.Listings)
	}
}

func TestListingInsights(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	u, _ := s.Users.Create(ctx, "alice", "alice@example.com", "hash")

	createListing(t, s, u.ID, 50, "Italy")
	mid := createListing(t, s, u.ID, 100, "Italy")
	createListing(t, s, u.ID, 150, "Italy")
	createListing(t, s, u.ID, 900, "France")
	createReview(t, s, mid.ID, u.ID, 3)

	svc := NewService(s.Users, s.Listings, s.Reviews)
	li, err := svc.Listing(ctx, mid.ID)
	if err != nil {
		t.Fatalf("listing insights: %v", err)
	}
	if li.CountryListings != 3 {
		t.Errorf("country listings = %d, want 3", li.CountryListings)
	}
	if li.PricePercentile != 50 {
		t.Errorf("percentile = %v, want 50", li.PricePercentile)
	}
	if li.Ratings.Count != 1 || li.Ratings.Histogram[2] != 1 {
		t.Errorf("ratings = %+v", li.Ratings)
	}
}

func TestListingInsightsNotFound(t *testing.T) {
	s := setupTestStore(t)
	svc := NewService(s.Users, s.Listings, s.Reviews)

	li, err := svc.Listing(context.Background(), "missing")
	if err != nil {
		t.Fatalf("listing insights: %v", err)
	}
	if li != nil {
		t.Errorf("expected nil for missing listing, got %+v", li)
	}
}

func TestPercentile(t *testing.T) {
	peers := []model.Listing{{Price: 10}, {Price: 20}, {Price: 20}, {Price: 40}}
	if got := percentile(20, peers); got != 50 {
		t.Errorf("percentile(20) = %v, want 50", got)
	}
	if got := percentile(40, peers); got != 87.5 {
		t.Errorf("percentile(40) = %v, want 87.5", got)
	}
	if got := percentile(5, nil); got != 0 {
		t.Errorf("percentile with no peers = %v, want 0", got)
	}
}
