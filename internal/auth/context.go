package auth

import (
	"context"

	"github.com/dukerupert/roamstay/internal/model"
)

type contextKey struct{}

// WithUser stores the authenticated user for the request. A nil user marks
// the request anonymous.
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

func UserFromContext(ctx context.Context) *model.User {
	u, _ := ctx.Value(contextKey{}).(*model.User)
	return u
}

func UserID(ctx context.Context) string {
	u := UserFromContext(ctx)
	if u == nil {
		return ""
	}
	return u.ID
}

func IsAuthenticated(ctx context.Context) bool {
	return UserFromContext(ctx) != nil
}
