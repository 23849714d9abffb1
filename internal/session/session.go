// Package session implements cookie-keyed sessions persisted in the
// application database, with one-shot flash messages.
package session

import (
	"context"
	"time"
)

// payload is the part of a session that is encrypted at rest.
type payload struct {
	UserID string              `json:"uid,omitempty"`
	Flash  map[string][]string `json:"flash,omitempty"`
	Values map[string]string   `json:"values,omitempty"`
}

// Session is the per-request view of a stored session. It is not safe for
// concurrent use; each request owns its copy.
type Session struct {
	key       string
	data      payload
	createdAt time.Time
	expiresAt time.Time
	touchedAt time.Time

	isNew    bool
	modified bool
	// retired holds keys replaced by Regenerate or Destroy; their records
	// are deleted on commit.
	retired []string
}

// Key returns the opaque session key carried by the cookie.
func (s *Session) Key() string { return s.key }

func (s *Session) IsNew() bool { return s.isNew }

func (s *Session) ExpiresAt() time.Time { return s.expiresAt }

// UserID returns the serialized identity reference, or "" when anonymous.
func (s *Session) UserID() string { return s.data.UserID }

func (s *Session) SetUserID(id string) {
	if s.data.UserID == id {
		return
	}
	s.data.UserID = id
	s.modified = true
}

func (s *Session) Get(name string) string {
	return s.data.Values[name]
}

func (s *Session) Set(name, value string) {
	if s.data.Values == nil {
		s.data.Values = make(map[string]string)
	}
	s.data.Values[name] = value
	s.modified = true
}

// Pop returns a value and removes it.
func (s *Session) Pop(name string) string {
	v, ok := s.data.Values[name]
	if !ok {
		return ""
	}
	delete(s.data.Values, name)
	s.modified = true
	return v
}

// AddFlash queues a message under kind ("success", "error", ...).
func (s *Session) AddFlash(kind, msg string) {
	if s.data.Flash == nil {
		s.data.Flash = make(map[string][]string)
	}
	s.data.Flash[kind] = append(s.data.Flash[kind], msg)
	s.modified = true
}

// Flashes drains and returns the queued messages of kind.
func (s *Session) Flashes(kind string) []string {
	msgs := s.data.Flash[kind]
	if len(msgs) == 0 {
		return nil
	}
	delete(s.data.Flash, kind)
	s.modified = true
	return msgs
}

// Regenerate moves the session contents to a fresh key. Call it when the
// privilege level changes, e.g. on login.
func (s *Session) Regenerate() error {
	key, err := newKey()
	if err != nil {
		return err
	}
	if !s.isNew {
		s.retired = append(s.retired, s.key)
	}
	s.key = key
	s.isNew = true
	s.modified = true
	return nil
}

// Destroy discards the session. The request continues with an empty
// session under a fresh key, so messages flashed afterwards still reach
// the next response.
func (s *Session) Destroy() error {
	if err := s.Regenerate(); err != nil {
		return err
	}
	s.data = payload{}
	return nil
}

type contextKey struct{}

func withSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the request's session, or nil outside the session
// middleware.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
