package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/roamstay/internal/database"
	"github.com/dukerupert/roamstay/internal/model"
	"github.com/dukerupert/roamstay/internal/store/mongostore"
)

// Lookup methods return (nil, nil) when the record does not exist.

type Users interface {
	Create(ctx context.Context, username, email, passwordHash string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Count(ctx context.Context) (int64, error)
}

type Listings interface {
	Create(ctx context.Context, ownerID string, in model.ListingInput) (*model.Listing, error)
	GetByID(ctx context.Context, id string) (*model.Listing, error)
	List(ctx context.Context, f model.ListingFilter) ([]model.Listing, error)
	Update(ctx context.Context, id string, in model.ListingInput) (*model.Listing, error)
	// Delete removes the listing and all of its reviews.
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type Reviews interface {
	Create(ctx context.Context, listingID, authorID string, in model.ReviewInput) (*model.Review, error)
	GetByID(ctx context.Context, id string) (*model.Review, error)
	ListByListing(ctx context.Context, listingID string) ([]model.Review, error)
	Delete(ctx context.Context, id string) error
	// Summary aggregates ratings for one listing, or for all reviews when
	// listingID is empty.
	Summary(ctx context.Context, listingID string) (model.RatingSummary, error)
}

type Sessions interface {
	// Get returns the session unless it is missing or expired.
	Get(ctx context.Context, key string) (*model.Session, error)
	// Set inserts or replaces the session record.
	Set(ctx context.Context, sess *model.Session) error
	// Touch extends the expiry without rewriting the payload.
	Touch(ctx context.Context, key string, expiresAt, touchedAt time.Time) error
	Delete(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type Journeys interface {
	Create(ctx context.Context, j *model.Journey) (*model.Journey, error)
	GetByID(ctx context.Context, id string) (*model.Journey, error)
	List(ctx context.Context, limit int) ([]model.Journey, error)
	Count(ctx context.Context) (int64, error)
}

// Store bundles the repositories of one database backend.
type Store struct {
	Backend  string
	Users    Users
	Listings Listings
	Reviews  Reviews
	Sessions Sessions
	Journeys Journeys

	ping  func(context.Context) error
	close func(context.Context) error
}

func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.close(ctx)
}

// NewSQLite wires the SQLite repositories around an open database.
func NewSQLite(db *sql.DB) *Store {
	return &Store{
		Backend:  "sqlite",
		Users:    NewUserStore(db),
		Listings: NewListingStore(db),
		Reviews:  NewReviewStore(db),
		Sessions: NewSessionStore(db),
		Journeys: NewJourneyStore(db),
		ping:     db.PingContext,
		close:    func(context.Context) error { return db.Close() },
	}
}

// Open connects to the database named by url. mongodb:// and mongodb+srv://
// URLs select the MongoDB backend (using dbName); sqlite:// URLs, file: URLs
// and bare paths select SQLite.
func Open(ctx context.Context, url, dbName string) (*Store, error) {
	if strings.HasPrefix(url, "mongodb://") || strings.HasPrefix(url, "mongodb+srv://") {
		m, err := mongostore.Connect(ctx, url, dbName)
		if err != nil {
			return nil, err
		}
		return &Store{
			Backend:  "mongodb",
			Users:    m.Users(),
			Listings: m.Listings(),
			Reviews:  m.Reviews(),
			Sessions: m.Sessions(),
			Journeys: m.Journeys(),
			ping:     m.Ping,
			close:    m.Close,
		}, nil
	}

	path := strings.TrimPrefix(url, "sqlite://")
	if path == "" {
		return nil, fmt.Errorf("open store: empty database path")
	}
	db, err := database.Open(path)
	if err != nil {
		return nil, err
	}
	return NewSQLite(db), nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
