package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/roamstay/internal/model"
	"github.com/google/uuid"
)

type ReviewStore struct {
	db *sql.DB
}

func NewReviewStore(db *sql.DB) *ReviewStore {
	return &ReviewStore{db: db}
}

const reviewCols = `r.id, r.listing_id, r.author_id, r.rating, r.comment, r.created_at, COALESCE(u.username, '')`

func scanReview(scanner interface{ Scan(...any) error }) (*model.Review, error) {
	var r model.Review
	err := scanner.Scan(&r.ID, &r.ListingID, &r.AuthorID, &r.Rating, &r.Comment, &r.CreatedAt, &r.AuthorName)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *ReviewStore) Create(ctx context.Context, listingID, authorID string, in model.ReviewInput) (*model.Review, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (id, listing_id, author_id, rating, comment) VALUES (?, ?, ?, ?, ?)`,
		id, listingID, authorID, in.Rating, in.Comment,
	)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ReviewStore) GetByID(ctx context.Context, id string) (*model.Review, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reviewCols+` FROM reviews r LEFT JOIN users u ON u.id = r.author_id WHERE r.id = ?`, id)
	r, err := scanReview(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return r, nil
}

func (s *ReviewStore) ListByListing(ctx context.Context, listingID string) ([]model.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reviewCols+` FROM reviews r LEFT JOIN users u ON u.id = r.author_id
		 WHERE r.listing_id = ? ORDER BY r.created_at DESC, r.rowid DESC`, listingID)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, *r)
	}
	return reviews, rows.Err()
}

func (s *ReviewStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

func (s *ReviewStore) Summary(ctx context.Context, listingID string) (model.RatingSummary, error) {
	query := `SELECT rating, COUNT(*) FROM reviews`
	var args []any
	if listingID != "" {
		query += ` WHERE listing_id = ?`
		args = append(args, listingID)
	}
	query += ` GROUP BY rating`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return model.RatingSummary{}, fmt.Errorf("query rating summary: %w", err)
	}
	defer rows.Close()

	var counts [5]int
	for rows.Next() {
		var rating, n int
		if err := rows.Scan(&rating, &n); err != nil {
			return model.RatingSummary{}, fmt.Errorf("scan rating summary: %w", err)
		}
		if rating >= 1 && rating <= 5 {
			counts[rating-1] = n
		}
	}
	if err := rows.Err(); err != nil {
		return model.RatingSummary{}, err
	}
	return summarize(counts), nil
}

// summarize builds a RatingSummary from per-star counts.
func summarize(counts [5]int) model.RatingSummary {
	sum := model.RatingSummary{Histogram: counts}
	total := 0
	for i, n := range counts {
		sum.Count += n
		total += (i + 1) * n
	}
	if sum.Count > 0 {
		sum.Average = float64(total) / float64(sum.Count)
	}
	return sum
}
