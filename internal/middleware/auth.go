package middleware

import (
	"net/http"
	"strings"

	"github.com/dukerupert/roamstay/internal/auth"
	"github.com/dukerupert/roamstay/internal/session"
)

const (
	loginPath = "/users/login"
	// ReturnToKey is the session value holding where to go after login.
	ReturnToKey = "returnTo"
)

// RequireAuth denies requests without an authenticated user before the
// wrapped handler runs. Browsers are redirected to the login page with a
// flash message; HTMX requests get HX-Redirect; /api requests get a 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.IsAuthenticated(r.Context()) {
			next.ServeHTTP(w, r)
			return
		}

		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"authentication required"}` + "\n"))
			return
		}

		if sess := session.FromContext(r.Context()); sess != nil {
			if r.Method == http.MethodGet {
				sess.Set(ReturnToKey, r.URL.RequestURI())
			}
			sess.AddFlash("error", "You must be signed in first!")
		}
		redirectToLogin(w, r)
	})
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", loginPath)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}
