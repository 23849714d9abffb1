package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/roamstay/internal/model"
)

// SessionStore persists session records. Times are stored as unix seconds.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Get(ctx context.Context, key string) (*model.Session, error) {
	var (
		sess                            model.Session
		expiresAt, touchedAt, createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT sid, data, expires_at, touched_at, created_at FROM sessions WHERE sid = ? AND expires_at > ?`,
		key, time.Now().Unix(),
	).Scan(&sess.Key, &sess.Data, &expiresAt, &touchedAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	sess.TouchedAt = time.Unix(touchedAt, 0).UTC()
	sess.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &sess, nil
}

func (s *SessionStore) Set(ctx context.Context, sess *model.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (sid, data, expires_at, touched_at, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(sid) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at, touched_at = excluded.touched_at`,
		sess.Key, sess.Data, sess.ExpiresAt.Unix(), sess.TouchedAt.Unix(), sess.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (s *SessionStore) Touch(ctx context.Context, key string, expiresAt, touchedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at = ?, touched_at = ? WHERE sid = ?`,
		expiresAt.Unix(), touchedAt.Unix(), key,
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE sid = ?`, key)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
