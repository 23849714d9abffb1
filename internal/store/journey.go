package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/roamstay/internal/model"
	"github.com/google/uuid"
)

type JourneyStore struct {
	db *sql.DB
}

func NewJourneyStore(db *sql.DB) *JourneyStore {
	return &JourneyStore{db: db}
}

const journeyCols = `id, title, destination, summary, days, stops, created_at`

func scanJourney(scanner interface{ Scan(...any) error }) (*model.Journey, error) {
	var (
		j     model.Journey
		stops string
	)
	if err := scanner.Scan(&j.ID, &j.Title, &j.Destination, &j.Summary, &j.Days, &stops, &j.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(stops), &j.Stops); err != nil {
		return nil, fmt.Errorf("decode stops: %w", err)
	}
	return &j, nil
}

func (s *JourneyStore) Create(ctx context.Context, j *model.Journey) (*model.Journey, error) {
	stops := j.Stops
	if stops == nil {
		stops = []model.JourneyStop{}
	}
	encoded, err := json.Marshal(stops)
	if err != nil {
		return nil, fmt.Errorf("encode stops: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO journeys (id, title, destination, summary, days, stops) VALUES (?, ?, ?, ?, ?, ?)`,
		id, j.Title, j.Destination, j.Summary, j.Days, string(encoded),
	)
	if err != nil {
		return nil, fmt.Errorf("insert journey: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *JourneyStore) GetByID(ctx context.Context, id string) (*model.Journey, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+journeyCols+` FROM journeys WHERE id = ?`, id)
	j, err := scanJourney(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get journey: %w", err)
	}
	return j, nil
}

func (s *JourneyStore) List(ctx context.Context, limit int) ([]model.Journey, error) {
	query := `SELECT ` + journeyCols + ` FROM journeys ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journeys: %w", err)
	}
	defer rows.Close()

	var journeys []model.Journey
	for rows.Next() {
		j, err := scanJourney(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journey: %w", err)
		}
		journeys = append(journeys, *j)
	}
	return journeys, rows.Err()
}

func (s *JourneyStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journeys`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count journeys: %w", err)
	}
	return n, nil
}
