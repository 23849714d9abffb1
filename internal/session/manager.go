package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/roamstay/internal/model"
)

// Store persists session records. store.Sessions satisfies it.
type Store interface {
	Get(ctx context.Context, key string) (*model.Session, error)
	Set(ctx context.Context, sess *model.Session) error
	Touch(ctx context.Context, key string, expiresAt, touchedAt time.Time) error
	Delete(ctx context.Context, key string) error
}

// Options configures a Manager.
type Options struct {
	CookieName string
	Secret     string
	// TTL is the lifetime of a session from its last write or touch.
	TTL time.Duration
	// TouchAfter limits how often an unchanged session is written back.
	TouchAfter time.Duration
	Secure     bool
	// OnError receives store failures. The request continues regardless.
	OnError func(error)
}

// Manager loads and commits sessions around each request.
type Manager struct {
	store Store
	codec *Codec
	opts  Options
	now   func() time.Time
}

func NewManager(store Store, opts Options) (*Manager, error) {
	codec, err := NewCodec(opts.Secret)
	if err != nil {
		return nil, err
	}
	if opts.CookieName == "" {
		return nil, fmt.Errorf("session: empty cookie name")
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.OnError == nil {
		opts.OnError = func(err error) { slog.Error("session store error", "error", err) }
	}
	return &Manager{store: store, codec: codec, opts: opts, now: time.Now}, nil
}

// Middleware attaches a session to every request and commits it before
// the response headers are written.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.load(r)
		r = r.WithContext(withSession(r.Context(), sess))

		cw := &commitWriter{ResponseWriter: w}
		cw.commit = func() { m.commit(r.Context(), w, sess) }

		next.ServeHTTP(cw, r)
		cw.commitOnce()
	})
}

func (m *Manager) load(r *http.Request) *Session {
	if c, err := r.Cookie(m.opts.CookieName); err == nil && c.Value != "" {
		if key, err := m.codec.Verify(c.Value); err == nil {
			if sess := m.fetch(r.Context(), key); sess != nil {
				return sess
			}
		}
	}

	sess, err := m.fresh()
	if err != nil {
		m.opts.OnError(err)
	}
	return sess
}

func (m *Manager) fetch(ctx context.Context, key string) *Session {
	rec, err := m.store.Get(ctx, key)
	if err != nil {
		m.opts.OnError(fmt.Errorf("load session: %w", err))
		return nil
	}
	if rec == nil {
		return nil
	}
	data, err := m.codec.Decrypt(key, rec.Data)
	if err != nil {
		m.opts.OnError(fmt.Errorf("decode session: %w", err))
		return nil
	}
	return &Session{
		key:       rec.Key,
		data:      data,
		createdAt: rec.CreatedAt,
		expiresAt: rec.ExpiresAt,
		touchedAt: rec.TouchedAt,
	}
}

func (m *Manager) fresh() (*Session, error) {
	now := m.now()
	sess := &Session{
		createdAt: now,
		expiresAt: now.Add(m.opts.TTL),
		touchedAt: now,
		isNew:     true,
	}
	key, err := newKey()
	if err != nil {
		return sess, err
	}
	sess.key = key
	return sess, nil
}

// commit persists sess and sets the cookie when needed. Store failures are
// reported to OnError and never fail the request.
func (m *Manager) commit(ctx context.Context, w http.ResponseWriter, sess *Session) {
	if sess.key == "" {
		return
	}
	for _, key := range sess.retired {
		if err := m.store.Delete(ctx, key); err != nil {
			m.opts.OnError(fmt.Errorf("delete session: %w", err))
		}
	}
	sess.retired = nil

	now := m.now()
	switch {
	case sess.isNew || sess.modified:
		data, err := m.codec.Encrypt(sess.key, sess.data)
		if err != nil {
			m.opts.OnError(err)
			return
		}
		if sess.isNew {
			sess.createdAt = now
		}
		sess.expiresAt = now.Add(m.opts.TTL)
		sess.touchedAt = now
		rec := &model.Session{
			Key:       sess.key,
			Data:      data,
			ExpiresAt: sess.expiresAt,
			TouchedAt: sess.touchedAt,
			CreatedAt: sess.createdAt,
		}
		if err := m.store.Set(ctx, rec); err != nil {
			m.opts.OnError(fmt.Errorf("save session: %w", err))
		}
		m.setCookie(w, sess)
	case now.Sub(sess.touchedAt) >= m.opts.TouchAfter:
		sess.expiresAt = now.Add(m.opts.TTL)
		sess.touchedAt = now
		if err := m.store.Touch(ctx, sess.key, sess.expiresAt, sess.touchedAt); err != nil {
			m.opts.OnError(fmt.Errorf("touch session: %w", err))
		}
		m.setCookie(w, sess)
	}
	sess.isNew = false
	sess.modified = false
}

func (m *Manager) setCookie(w http.ResponseWriter, sess *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    m.codec.Sign(sess.key),
		Path:     "/",
		MaxAge:   int(m.opts.TTL.Seconds()),
		Expires:  sess.expiresAt,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// commitWriter runs commit once, before the first header or body write.
type commitWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (w *commitWriter) commitOnce() {
	if w.committed {
		return
	}
	w.committed = true
	w.commit()
}

func (w *commitWriter) WriteHeader(code int) {
	w.commitOnce()
	w.ResponseWriter.WriteHeader(code)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	w.commitOnce()
	return w.ResponseWriter.Write(b)
}

func (w *commitWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
