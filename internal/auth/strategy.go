package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/roamstay/internal/model"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type Credentials struct {
	Username string
	Password string
}

// Strategy verifies credentials and returns the matching user.
// Implementations return ErrInvalidCredentials when verification fails.
type Strategy interface {
	Authenticate(ctx context.Context, creds Credentials) (*model.User, error)
}

// UserLookup is the subset of the user store the auth package needs.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// LocalStrategy checks a username and bcrypt password hash.
type LocalStrategy struct {
	users UserLookup
}

func NewLocalStrategy(users UserLookup) *LocalStrategy {
	return &LocalStrategy{users: users}
}

// dummyHash keeps unknown usernames from answering faster than wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("roamstay-dummy-password"), bcrypt.DefaultCost)

func (s *LocalStrategy) Authenticate(ctx context.Context, creds Credentials) (*model.User, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.GetByUsername(ctx, creds.Username)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(creds.Password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
