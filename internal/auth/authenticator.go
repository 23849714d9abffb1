package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/roamstay/internal/metrics"
	"github.com/dukerupert/roamstay/internal/model"
	"github.com/dukerupert/roamstay/internal/session"
)

var ErrNoSession = errors.New("auth: request has no session")

// Authenticator maps users to session identity references and back.
type Authenticator struct {
	strategy Strategy
	users    UserLookup
	logger   *slog.Logger
}

func New(strategy Strategy, users UserLookup, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		strategy: strategy,
		users:    users,
		logger:   logger.With("component", "auth"),
	}
}

// Serialize returns the identity reference stored in the session.
func (a *Authenticator) Serialize(u *model.User) string {
	return u.ID
}

// Deserialize resolves an identity reference. It returns (nil, nil) when
// the user no longer exists.
func (a *Authenticator) Deserialize(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, nil
	}
	return a.users.GetByID(ctx, id)
}

// Authenticate runs the configured strategy.
func (a *Authenticator) Authenticate(ctx context.Context, creds Credentials) (*model.User, error) {
	u, err := a.strategy.Authenticate(ctx, creds)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		metrics.AuthAttempts.WithLabelValues("invalid").Inc()
	case err != nil:
		metrics.AuthAttempts.WithLabelValues("error").Inc()
	default:
		metrics.AuthAttempts.WithLabelValues("success").Inc()
	}
	return u, err
}

// Login binds u to the request's session under a fresh session key.
func (a *Authenticator) Login(r *http.Request, u *model.User) error {
	sess := session.FromContext(r.Context())
	if sess == nil {
		return ErrNoSession
	}
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.SetUserID(a.Serialize(u))
	a.logger.Info("user logged in", "user_id", u.ID)
	return nil
}

// Logout destroys the request's session.
func (a *Authenticator) Logout(r *http.Request) error {
	sess := session.FromContext(r.Context())
	if sess == nil {
		return ErrNoSession
	}
	if uid := sess.UserID(); uid != "" {
		a.logger.Info("user logged out", "user_id", uid)
	}
	return sess.Destroy()
}

// Resolve loads the session's user into the request context. Requests
// whose identity reference no longer resolves continue anonymously.
func (a *Authenticator) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var u *model.User
		if sess := session.FromContext(r.Context()); sess != nil && sess.UserID() != "" {
			var err error
			u, err = a.Deserialize(r.Context(), sess.UserID())
			switch {
			case err != nil:
				a.logger.Error("deserialize user", "error", err)
			case u == nil:
				sess.SetUserID("")
			}
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}
