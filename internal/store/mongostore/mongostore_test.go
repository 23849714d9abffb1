package mongostore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/dukerupert/roamstay/internal/model"
)

// These tests need a live server: ROAMSTAY_TEST_MONGO_URI=mongodb://localhost:27017
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	uri := os.Getenv("ROAMSTAY_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("ROAMSTAY_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	dbName := "roamstay_test_" + newID()
	db, err := Connect(ctx, uri, dbName)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		db.database.Drop(context.Background())
		db.Close(context.Background())
	})
	return db
}

func TestUserCreateDuplicate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := db.Users()

	u, err := users.Create(ctx, "alice", "alice@example.com", "hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := users.GetByUsername(ctx, "alice")
	if err != nil || got == nil || got.ID != u.ID {
		t.Fatalf("get by username: %v, %v", got, err)
	}
	if _, err := users.Create(ctx, "alice", "other@example.com", "hash"); !errors.Is(err, model.ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestListingDeleteRemovesReviews(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner, _ := db.Users().Create(ctx, "alice", "alice@example.com", "hash")
	l, err := db.Listings().Create(ctx, owner.ID, model.ListingInput{Title: "Hut", Location: "Goa", Country: "India", Price: 80})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	r, err := db.Reviews().Create(ctx, l.ID, owner.ID, model.ReviewInput{Rating: 5, Comment: "Great"})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if r.AuthorName != "alice" {
		t.Errorf("author = %q, want alice", r.AuthorName)
	}

	found, _ := db.Listings().List(ctx, model.ListingFilter{Country: "INDIA"})
	if len(found) != 1 {
		t.Errorf("country filter = %d, want 1", len(found))
	}

	sum, _ := db.Reviews().Summary(ctx, l.ID)
	if sum.Count != 1 || sum.Average != 5 {
		t.Errorf("summary = %+v", sum)
	}

	if err := db.Listings().Delete(ctx, l.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := db.Reviews().GetByID(ctx, r.ID); got != nil {
		t.Error("review survived listing delete")
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	sessions := db.Sessions()

	ts := now()
	sess := &model.Session{Key: "k1", Data: []byte("x"), ExpiresAt: ts.Add(time.Hour), TouchedAt: ts, CreatedAt: ts}
	if err := sessions.Set(ctx, sess); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := sessions.Get(ctx, "k1")
	if err != nil || got == nil || string(got.Data) != "x" {
		t.Fatalf("get: %v, %v", got, err)
	}

	expired := &model.Session{Key: "k2", Data: []byte("y"), ExpiresAt: ts.Add(-time.Minute), TouchedAt: ts, CreatedAt: ts}
	sessions.Set(ctx, expired)
	if got, _ := sessions.Get(ctx, "k2"); got != nil {
		t.Error("expired session returned")
	}
	n, err := sessions.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n > 1 {
		t.Errorf("deleted = %d, want at most 1", n)
	}
}
