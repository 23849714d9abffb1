package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/roamstay/internal/view"
)

// HTTPError is an error with the status and message shown to the client.
type HTTPError struct {
	Status  int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error { return e.Err }

func NotFoundError(msg string) *HTTPError {
	return &HTTPError{Status: http.StatusNotFound, Message: msg}
}

func BadRequest(msg string) *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Message: msg}
}

// Func is a handler that reports failure by returning an error.
type Func func(w http.ResponseWriter, r *http.Request) error

// Errors is the terminal error and not-found handler.
type Errors struct {
	views  *view.Renderer
	logger *slog.Logger
}

func NewErrors(views *view.Renderer, logger *slog.Logger) *Errors {
	return &Errors{views: views, logger: logger}
}

// Handle adapts fn to http.Handler, rendering any returned error.
func (e *Errors) Handle(fn Func) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			e.ServeError(w, r, err)
		}
	})
}

// ServeError renders err with its status, defaulting to 500. Messages of
// errors that are not HTTPErrors are logged, not shown.
func (e *Errors) ServeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, "Something went wrong"
	var he *HTTPError
	if errors.As(err, &he) {
		status = he.Status
		if he.Message != "" {
			msg = he.Message
		}
	}
	if status >= 500 {
		e.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	if wantsJSON(r) {
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	e.views.Render(w, r, status, "error.html", "Error", map[string]any{
		"Status":  status,
		"Message": msg,
	})
}

// NotFound handles requests no route matched.
func (e *Errors) NotFound(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	e.views.Render(w, r, http.StatusNotFound, "notfound.html", "Page not found", nil)
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
