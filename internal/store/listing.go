package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dukerupert/roamstay/internal/model"
	"github.com/google/uuid"
)

type ListingStore struct {
	db *sql.DB
}

func NewListingStore(db *sql.DB) *ListingStore {
	return &ListingStore{db: db}
}

func scanListing(scanner interface{ Scan(...any) error }) (*model.Listing, error) {
	var l model.Listing
	err := scanner.Scan(&l.ID, &l.Title, &l.Description, &l.ImageURL, &l.Price,
		&l.Location, &l.Country, &l.OwnerID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

const listingCols = `id, title, description, image_url, price, location, country, owner_id, created_at, updated_at`

func (s *ListingStore) Create(ctx context.Context, ownerID string, in model.ListingInput) (*model.Listing, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO listings (id, title, description, image_url, price, location, country, owner_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.Title, in.Description, in.ImageURL, in.Price, in.Location, in.Country, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert listing: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ListingStore) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+listingCols+` FROM listings WHERE id = ?`, id)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return l, nil
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *ListingStore) List(ctx context.Context, f model.ListingFilter) ([]model.Listing, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		where = append(where, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(location) LIKE ? ESCAPE '\' OR LOWER(country) LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	if f.Location != "" {
		where = append(where, `LOWER(location) = LOWER(?)`)
		args = append(args, f.Location)
	}
	if f.Country != "" {
		where = append(where, `LOWER(country) = LOWER(?)`)
		args = append(args, f.Country)
	}

	query := `SELECT ` + listingCols + ` FROM listings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

func (s *ListingStore) Update(ctx context.Context, id string, in model.ListingInput) (*model.Listing, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE listings SET title = ?, description = ?, image_url = ?, price = ?, location = ?, country = ?
		 WHERE id = ?`,
		in.Title, in.Description, in.ImageURL, in.Price, in.Location, in.Country, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update listing: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ListingStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE listing_id = ?`, id); err != nil {
		return fmt.Errorf("delete listing reviews: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	return tx.Commit()
}

func (s *ListingStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return n, nil
}
