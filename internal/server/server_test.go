package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dukerupert/roamstay/internal/config"
	"github.com/dukerupert/roamstay/internal/database"
	"github.com/dukerupert/roamstay/internal/model"
	"github.com/dukerupert/roamstay/internal/session"
	"github.com/dukerupert/roamstay/internal/store"
)

func testConfig() config.Config {
	return config.Config{
		Env:                 "development",
		Port:                config.DefaultPort,
		Secret:              "test-secret",
		SessionTTL:          config.SessionTTL,
		TouchAfter:          config.TouchAfter,
		DemoRoutes:          true,
		DefaultNightlyPrice: 100,
	}
}

func setupServer(t *testing.T, cfg config.Config) (*Server, *store.Store) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	st := store.NewSQLite(db)
	t.Cleanup(func() { st.Close(context.Background()) })

	srv, err := New(cfg, st, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, st
}

// browser is an HTTP client with a cookie jar that does not follow
// redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, srv *Server) *browser {
	t.Helper()
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &browser{
		t:    t,
		base: ts.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.base + path)
	if err != nil {
		b.t.Fatalf("GET %s: %v", path, err)
	}
	return resp, readBody(b.t, resp)
}

func (b *browser) post(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.PostForm(b.base+path, form)
	if err != nil {
		b.t.Fatalf("POST %s: %v", path, err)
	}
	return resp, readBody(b.t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func expectRedirect(t *testing.T, resp *http.Response, to string) {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("%s %s: status = %d, want 303", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != to {
		t.Fatalf("%s %s: location = %q, want %q", resp.Request.Method, resp.Request.URL.Path, loc, to)
	}
}

func (b *browser) register(username string) {
	b.t.Helper()
	resp, _ := b.post("/users/register", url.Values{
		"username": {username},
		"email":    {username + "@example.com"},
		"password": {"password123"},
	})
	expectRedirect(b.t, resp, "/listings")
}

func (b *browser) createListing(title string) string {
	b.t.Helper()
	resp, _ := b.post("/listings", url.Values{
		"title":    {title},
		"price":    {"150"},
		"location": {"Lisbon"},
		"country":  {"Portugal"},
	})
	if resp.StatusCode != http.StatusSeeOther {
		b.t.Fatalf("create listing: status = %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "/listings/") {
		b.t.Fatalf("create listing: location = %q", loc)
	}
	return strings.TrimPrefix(loc, "/listings/")
}

func TestGatedRoutesWithoutSession(t *testing.T) {
	srv, _ := setupServer(t, testConfig())
	b := newBrowser(t, srv)

	for _, path := range []string{"/listings", "/listings/new", "/listings/abc/whatever", "/services"} {
		resp, _ := b.get(path)
		expectRedirect(t, resp, "/users/login")
	}

	resp, body := b.get("/api/insights")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("/api/insights status = %d, want 401", resp.StatusCode)
	}
	if !strings.Contains(body, "authentication required") {
		t.Errorf("/api/insights body = %q", body)
	}
}

func TestUngatedRoutesWithoutSession(t *testing.T) {
	srv, _ := setupServer(t, testConfig())
	b := newBrowser(t, srv)

	resp, body := b.get("/api/journey")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/api/journey status = %d, want 200", resp.StatusCode)
	}
	var list []model.Journey
	if err := json.Unmarshal([]byte(body), &list); err != nil {
		t.Fatalf("decode journeys: %v (%s)", err, body)
	}

	for _, path := range []string{"/", "/journey", "/users/login", "/users/register", "/health"} {
		if resp, _ := b.get(path); resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestSessionCookieSecureFollowsMode(t *testing.T) {
	tests := []struct {
		env    string
		secure bool
	}{
		{"development", false},
		{config.EnvProduction, true},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := testConfig()
			cfg.Env = tt.env
			srv, _ := setupServer(t, cfg)

			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/users/login", nil))

			var found *http.Cookie
			for _, c := range rec.Result().Cookies() {
				if c.Name == SessionCookie {
					found = c
				}
			}
			if found == nil {
				t.Fatal("no session cookie set")
			}
			if found.Secure != tt.secure {
				t.Errorf("Secure = %v, want %v", found.Secure, tt.secure)
			}
			if !found.HttpOnly {
				t.Error("expected HttpOnly")
			}
		})
	}
}

func TestStaticAndHealthSkipSessions(t *testing.T) {
	srv, _ := setupServer(t, testConfig())

	for _, path := range []string{"/static/style.css", "/favicon.ico", "/health", "/metrics"} {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Errorf("%s set cookies %v", path, rec.Result().Cookies())
		}
	}
}

func TestPanicKeepsSessionAndUser(t *testing.T) {
	srv, _ := setupServer(t, testConfig())
	b := newBrowser(t, srv)
	b.register("frank")
	b.get("/listings") // drain the registration flash

	boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session.FromContext(r.Context()).AddFlash("success", "Saved before failing")
		panic("boom")
	})

	base, _ := url.Parse(b.base)
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	for _, c := range b.client.Jar.Cookies(base) {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.chain(boom).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Something went wrong") {
		t.Error("expected error page")
	}
	if !strings.Contains(body, "Log out (frank)") {
		t.Error("error page rendered without the current user")
	}

	_, body = b.get("/users/login")
	if !strings.Contains(body, "Saved before failing") {
		t.Error("session changes lost when the handler panicked")
	}
}

func TestRegisterLogoutLogin(t *testing.T) {
	srv, _ := setupServer(t, testConfig())
	b := newBrowser(t, srv)

	b.register("alice")

	resp, body := b.get("/listings")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/listings status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Welcome to Roamstay!") {
		t.Error("expected registration flash")
	}
	if !strings.Contains(body, "Log out (alice)") {
		t.Error("expected signed-in nav")
	}

	// flashes are shown once
	_, body = b.get("/listings")
	if strings.Contains(body, "Welcome to Roamstay!") {
		t.Error("flash shown twice")
	}

	resp, _ = b.post("/users/logout", nil)
	expectRedirect(t, resp, "/users/login")
	_, body = b.get("/users/login")
	if !strings.Contains(body, "You are logged out.") {
		t.Error("expected logout flash on the login page")
	}
	if strings.Contains(body, "Log out (alice)") {
		t.Error("still signed in after logout")
	}
	resp, _ = b.get("/listings")
	expectRedirect(t, resp, "/users/login")

	resp, _ = b.post("/users/login", url.Values{"username": {"alice"}, "password": {"wrong-password"}})
	expectRedirect(t, resp, "/users/login")
	_, body = b.get("/users/login")
	if !strings.Contains(body, "Invalid username or password.") {
		t.Error("expected login failure flash")
	}

	resp, _ = b.post("/users/login", url.Values{"username": {"alice"}, "password": {"password123"}})
	expectRedirect(t, resp, "/listings")
	if resp, _ := b.get("/listings"); resp.StatusCode != http.StatusOK {
		t.Errorf("/listings after login status = %d", resp.StatusCode)
	}
}

func TestLoginReturnsToRequestedPage(t *testing.T) {
	srv, _ := setupServer(t, testConfig())
	setup := newBrowser(t, srv)
	setup.register("bob")

	b := newBrowser(t, srv)
	resp, _ := b.get("/listings/new")
	expectRedirect(t, resp, "/users/login")

	resp, _ = b.post("/users/login", url.Values{"username": {"bob"}, "password": {"password123"}})
	expectRedirect(t, resp, "/listings/new")
}

func TestRegisterDuplicate(t *testing.T) {
	srv, _ := setupServer(t, testConfig())
	b := newBrowser(t, srv)
	b.register("carol")
	b.post("/users/logout", nil)

	resp, _ := b.post("/users/register", url.Values{
		"username": {"carol"},
		"email":    {"other@example.com"},
		"password": {"password123"},
	})
	expectRedirect(t, resp, "/users/register")
	_, body := b.get("/users/register")
	if !strings.Contains(body, "already exists") {
		t.Error("expected duplicate flash")
	}
}

func TestListingLifecycleAndOwnership(t *testing.T) {
	srv, st := setupServer(t, testConfig())
	owner := newBrowser(t, srv)
	owner.register("owner")
	other := newBrowser(t, srv)
	other.register("other")

	id := owner.createListing("Sunny loft")

	resp, body := other.get("/listings/" + id)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("show status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Sunny loft") {
		t.Error("show page missing title")
	}

	// method override from a form post
	resp, _ = other.post("/listings/"+id, url.Values{
		"_method": {"PUT"}, "title": {"Hijacked"}, "location": {"Lisbon"}, "country": {"Portugal"},
	})
	expectRedirect(t, resp, "/listings/"+id)
	l, err := st.Listings.GetByID(context.Background(), id)
	if err != nil || l == nil {
		t.Fatalf("get listing: %v, %v", l, err)
	}
	if l.Title != "Sunny loft" {
		t.Errorf("non-owner changed title to %q", l.Title)
	}

	resp, _ = owner.post("/listings/"+id, url.Values{
		"_method": {"PUT"}, "title": {"Sunnier loft"}, "price": {"180"}, "location": {"Lisbon"}, "country": {"Portugal"},
	})
	expectRedirect(t, resp, "/listings/"+id)
	l, _ = st.Listings.GetByID(context.Background(), id)
	if l.Title != "Sunnier loft" || l.Price != 180 {
		t.Errorf("after update = %+v", l)
	}

	resp, _ = owner.post("/listings/"+id, url.Values{"_method": {"DELETE"}})
	expectRedirect(t, resp, "/listings")
	if l, _ := st.Listings.GetByID(context.Background(), id); l != nil {
		t.Error("listing still exists after delete")
	}

	resp, _ = owner.get("/listings/" + id)
	expectRedirect(t, resp, "/listings")
}

func TestCreateListingValidation(t *testing.T) {
	srv, _ := setupServer(t, testConfig())
	b := newBrowser(t, srv)
	b.register("dana")

	resp, _ := b.post("/listings", url.Values{"title": {""}, "location": {"Oslo"}, "country": {"Norway"}})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

func TestReviews(t *testing.T) {
	srv, st := setupServer(t, testConfig())
	owner := newBrowser(t, srv)
	owner.register("host")
	guest := newBrowser(t, srv)
	guest.register("guest")

	id := owner.createListing("Cabin")

	resp, _ := guest.post("/listings/"+id+"/reviews", url.Values{"rating": {"9"}, "comment": {"Too good"}})
	expectRedirect(t, resp, "/listings/"+id)
	revs, _ := st.Reviews.ListByListing(context.Background(), id)
	if len(revs) != 0 {
		t.Fatalf("invalid review stored: %+v", revs)
	}

	resp, _ = guest.post("/listings/"+id+"/reviews", url.Values{"rating": {"5"}, "comment": {"Lovely stay"}})
	expectRedirect(t, resp, "/listings/"+id)
	revs, _ = st.Reviews.ListByListing(context.Background(), id)
	if len(revs) != 1 {
		t.Fatalf("reviews = %d, want 1", len(revs))
	}

	_, body := owner.get("/listings/" + id)
	if !strings.Contains(body, "Lovely stay") {
		t.Error("review missing from show page")
	}

	resp, _ = owner.post("/listings/"+id+"/reviews/"+revs[0].ID, url.Values{"_method": {"DELETE"}})
	expectRedirect(t, resp, "/listings/"+id)
	if r, _ := st.Reviews.GetByID(context.Background(), revs[0].ID); r == nil {
		t.Fatal("non-author deleted the review")
	}

	resp, _ = guest.post("/listings/"+id+"/reviews/"+revs[0].ID, url.Values{"_method": {"DELETE"}})
	expectRedirect(t, resp, "/listings/"+id)
	if r, _ := st.Reviews.GetByID(context.Background(), revs[0].ID); r != nil {
		t.Error("review still exists after author delete")
	}
}

func TestInsightsAPI(t *testing.T) {
	srv, _ := setupServer(t, testConfig())
	b := newBrowser(t, srv)
	b.register("erin")
	id := b.createListing("Flat")

	resp, body := b.get("/api/insights")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type = %q", ct)
	}

	resp, _ = b.get("/api/insights/listings/" + id)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("listing insights status = %d", resp.StatusCode)
	}
	resp, _ = b.get("/api/insights/listings/missing")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing listing insights status = %d, want 404", resp.StatusCode)
	}
}

func TestSeedJourney(t *testing.T) {
	srv, st := setupServer(t, testConfig())
	b := newBrowser(t, srv)

	resp, _ := b.post("/seed-journey", nil)
	expectRedirect(t, resp, "/journey")

	n, err := st.Journeys.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n == 0 {
		t.Error("no journeys seeded")
	}

	_, body := b.get("/journey")
	if !strings.Contains(body, "Seeded") {
		t.Error("expected seed flash on journey page")
	}
}

func TestSeedJourneyDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.DemoRoutes = false
	srv, _ := setupServer(t, cfg)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/seed-journey", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestPredictPriceLocal(t *testing.T) {
	srv, _ := setupServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/predict-price?location=Nowhere&guests=2&nights=3", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if src := rec.Header().Get("X-Price-Source"); src != "local" {
		t.Errorf("source = %q, want local", src)
	}

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/api/predict-price?guests=-1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid query status = %d, want 400", rec.Code)
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := setupServer(t, testConfig())

	tests := []struct {
		path string
		json bool
	}{
		{"/no-such-page", false},
		{"/api/no-such-endpoint", true},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", tt.path, rec.Code)
		}
		isJSON := strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json")
		if isJSON != tt.json {
			t.Errorf("%s json = %v, want %v", tt.path, isJSON, tt.json)
		}
	}
}

func TestHealthReportsBackend(t *testing.T) {
	srv, _ := setupServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["status"] != "ok" || got["backend"] != "sqlite" {
		t.Errorf("health = %v", got)
	}
}
