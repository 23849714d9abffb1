// Package view renders html/template pages. Each page is parsed into its
// own set together with layout.html so pages can all define "content".
package view

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/dukerupert/roamstay/internal/model"
)

const layoutFile = "layout.html"

// Locals are the values every page sees: the current user and the flash
// messages drained for this request.
type Locals struct {
	User    *model.User
	Success []string
	Error   []string
}

type localsKey struct{}

func WithLocals(ctx context.Context, l Locals) context.Context {
	return context.WithValue(ctx, localsKey{}, l)
}

func LocalsFromContext(ctx context.Context) Locals {
	l, _ := ctx.Value(localsKey{}).(Locals)
	return l
}

// Page is the value passed to the layout template.
type Page struct {
	Locals
	Title string
	Path  string
	Year  int
	Data  any
}

type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// New parses layout.html and every other .html file in fsys into per-page
// template sets keyed by their slash path, e.g. "listings/show.html".
func New(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	layout, err := fs.ReadFile(fsys, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}

	pages := make(map[string]*template.Template)
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || p == layoutFile || path.Ext(p) != ".html" {
			return nil
		}
		body, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		t, err := template.New(layoutFile).Funcs(funcs).Parse(string(layout))
		if err != nil {
			return fmt.Errorf("parse layout: %w", err)
		}
		if _, err := t.New(p).Parse(string(body)); err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		pages[p] = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	return &Renderer{pages: pages, logger: logger.With("component", "view")}, nil
}

// Has reports whether a page named name was loaded.
func (v *Renderer) Has(name string) bool {
	_, ok := v.pages[name]
	return ok
}

// Render executes page name inside the layout. Output is buffered so a
// template error can still produce a clean 500.
func (v *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	tmpl, ok := v.pages[name]
	if !ok {
		v.logger.Error("template not found", "name", name)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	page := Page{
		Locals: LocalsFromContext(r.Context()),
		Title:  title,
		Path:   r.URL.Path,
		Year:   time.Now().Year(),
		Data:   data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, layoutFile, page); err != nil {
		v.logger.Error("template render", "name", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

var funcs = template.FuncMap{
	"price":  formatPrice,
	"date":   formatDate,
	"stars":  stars,
	"active": active,
}

func formatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

func stars(n int) string {
	n = min(max(n, 0), 5)
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

// active reports whether current is prefix or below it, for nav links.
func active(current, prefix string) bool {
	return current == prefix || strings.HasPrefix(current, prefix+"/")
}

// formatPrice renders whole currency units with thousands separators.
func formatPrice(n int) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-$" + b.String()
	}
	return "$" + b.String()
}
