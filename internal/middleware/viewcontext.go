package middleware

import (
	"net/http"

	"github.com/dukerupert/roamstay/internal/auth"
	"github.com/dukerupert/roamstay/internal/session"
	"github.com/dukerupert/roamstay/internal/view"
)

// ViewContext exposes the current user and this request's flash messages
// to templates. Flashes are drained here, once per request.
func ViewContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := view.Locals{User: auth.UserFromContext(r.Context())}
		if sess := session.FromContext(r.Context()); sess != nil {
			l.Success = sess.Flashes("success")
			l.Error = sess.Flashes("error")
		}
		next.ServeHTTP(w, r.WithContext(view.WithLocals(r.Context(), l)))
	})
}
