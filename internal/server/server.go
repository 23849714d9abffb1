package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/roamstay/internal/auth"
	"github.com/dukerupert/roamstay/internal/config"
	"github.com/dukerupert/roamstay/internal/email"
	"github.com/dukerupert/roamstay/internal/handler"
	"github.com/dukerupert/roamstay/internal/insights"
	"github.com/dukerupert/roamstay/internal/journey"
	"github.com/dukerupert/roamstay/internal/metrics"
	"github.com/dukerupert/roamstay/internal/middleware"
	"github.com/dukerupert/roamstay/internal/pricing"
	"github.com/dukerupert/roamstay/internal/session"
	"github.com/dukerupert/roamstay/internal/store"
	"github.com/dukerupert/roamstay/internal/view"
	ws "github.com/dukerupert/roamstay/internal/websocket"
	"github.com/dukerupert/roamstay/web"
)

const (
	// SessionCookie is the name of the session cookie.
	SessionCookie = "roamstay.sid"

	authRateLimit  = 10
	authRateWindow = time.Minute
)

type Server struct {
	cfg      config.Config
	store    *store.Store
	static   fs.FS
	views    *view.Renderer
	sessions *session.Manager
	auth     *auth.Authenticator
	hub      *ws.Hub
	limiter  *middleware.RateLimiter
	errs     *handler.Errors

	homeH     *handler.HomeHandler
	userH     *handler.UserHandler
	listingH  *handler.ListingHandler
	reviewH   *handler.ReviewHandler
	insightsH *handler.InsightsHandler
	servicesH *handler.ServicesHandler
	journeyH  *handler.JourneyHandler

	logger *slog.Logger
}

// New assembles the application around an open store.
func New(cfg config.Config, st *store.Store, logger *slog.Logger) (*Server, error) {
	templates, static := web.Templates(), web.Static()
	if cfg.ViewsDir != "" {
		templates = os.DirFS(cfg.ViewsDir)
	}
	if cfg.PublicDir != "" {
		static = os.DirFS(cfg.PublicDir)
	}

	views, err := view.New(templates, logger.With("component", "view"))
	if err != nil {
		return nil, fmt.Errorf("load views: %w", err)
	}

	sessionLogger := logger.With("component", "session")
	sessions, err := session.NewManager(st.Sessions, session.Options{
		CookieName: SessionCookie,
		Secret:     cfg.Secret,
		TTL:        cfg.SessionTTL,
		TouchAfter: cfg.TouchAfter,
		Secure:     cfg.Production(),
		OnError: func(err error) {
			metrics.SessionStoreErrors.Inc()
			sessionLogger.Error("session store error", "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}

	authn := auth.New(auth.NewLocalStrategy(st.Users), st.Users, logger.With("component", "auth"))
	hub := ws.NewHub(logger.With("component", "websocket"))
	ins := insights.NewService(st.Users, st.Listings, st.Reviews)

	var remote *pricing.Remote
	if cfg.PricePredictorURL != "" {
		remote = pricing.NewRemote(cfg.PricePredictorURL)
	}
	prices := pricing.NewService(remote, st.Listings, cfg.DefaultNightlyPrice, logger.With("component", "pricing"))

	seeder := journey.NewSeeder(st.Users, st.Listings, st.Journeys, 0, logger.With("component", "journey"))
	emailClient := email.NewClient(cfg.PostmarkToken, cfg.FromEmail, cfg.BaseURL)

	return &Server{
		cfg:       cfg,
		store:     st,
		static:    static,
		views:     views,
		sessions:  sessions,
		auth:      authn,
		hub:       hub,
		limiter:   middleware.NewRateLimiter(),
		errs:      handler.NewErrors(views, logger.With("component", "error")),
		homeH:     handler.NewHomeHandler(st.Listings, prices, static, views),
		userH:     handler.NewUserHandler(st.Users, authn, emailClient, views, logger.With("component", "user")),
		listingH:  handler.NewListingHandler(st, ins, hub, views, logger.With("component", "listing")),
		reviewH:   handler.NewReviewHandler(st, ins, hub, logger.With("component", "review")),
		insightsH: handler.NewInsightsHandler(ins),
		servicesH: handler.NewServicesHandler(views),
		journeyH:  handler.NewJourneyHandler(st.Journeys, seeder, views, logger.With("component", "journey")),
		logger:    logger,
	}, nil
}

// Sessions returns the session store for cleanup tasks.
func (s *Server) Sessions() store.Sessions {
	return s.store.Sessions
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.limiter
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// Router returns the root handler. Static assets, the favicon, health,
// metrics and the websocket are served outside the session chain.
func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	outerMux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(s.static)))
	outerMux.HandleFunc("GET /favicon.ico", s.homeH.Favicon)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /metrics", promhttp.Handler())
	outerMux.HandleFunc("GET /ws", ws.Feed(s.hub, s.cfg.CORSOrigins, s.logger.With("component", "websocket")))

	appMux := http.NewServeMux()
	s.registerRoutes(appMux)
	outerMux.Handle("/", s.chain(appMux))

	return outerMux
}

// chain wraps the application routes. Panics are recovered inside the
// session and view context so error pages still commit the session and
// see the current user.
func (s *Server) chain(next http.Handler) http.Handler {
	app := middleware.Recover(s.logger.With("component", "recover"), s.errs.ServeError)(next)
	app = middleware.ViewContext(app)
	app = s.auth.Resolve(app)
	app = s.sessions.Middleware(app)
	app = middleware.MethodOverride(app)
	app = middleware.RequestLogger(s.logger.With("component", "http"))(app)
	return middleware.RequestID(app)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	h := s.errs.Handle
	gate := middleware.RequireAuth
	limited := middleware.RateLimit(s.limiter, middleware.ByIP, authRateLimit, authRateWindow)
	cors := middleware.CORS(s.cfg.CORSOrigins)
	notFound := http.HandlerFunc(s.errs.NotFound)

	// Users
	mux.Handle("GET /users/register", h(s.userH.RegisterPage))
	mux.Handle("POST /users/register", limited(h(s.userH.Register)))
	mux.Handle("GET /users/login", h(s.userH.LoginPage))
	mux.Handle("POST /users/login", limited(h(s.userH.Login)))
	mux.Handle("POST /users/logout", h(s.userH.Logout))
	mux.Handle("GET /users/logout", h(s.userH.Logout))

	// Listings and reviews
	mux.Handle("GET /listings", gate(h(s.listingH.Index)))
	mux.Handle("POST /listings", gate(h(s.listingH.Create)))
	mux.Handle("GET /listings/new", gate(h(s.listingH.New)))
	mux.Handle("GET /listings/{id}", gate(h(s.listingH.Show)))
	mux.Handle("GET /listings/{id}/edit", gate(h(s.listingH.Edit)))
	mux.Handle("PUT /listings/{id}", gate(h(s.listingH.Update)))
	mux.Handle("DELETE /listings/{id}", gate(h(s.listingH.Delete)))
	mux.Handle("POST /listings/{id}/reviews", gate(h(s.reviewH.Create)))
	mux.Handle("DELETE /listings/{id}/reviews/{reviewID}", gate(h(s.reviewH.Delete)))
	mux.Handle("/listings/", gate(notFound))

	// Insights and services
	mux.Handle("GET /api/insights", gate(h(s.insightsH.Overview)))
	mux.Handle("GET /api/insights/listings/{id}", gate(h(s.insightsH.Listing)))
	mux.Handle("/api/insights/", gate(notFound))
	mux.Handle("GET /services", gate(h(s.servicesH.Index)))
	mux.Handle("/services/", gate(notFound))

	// Journey API
	mux.Handle("GET /api/journey", cors(h(s.journeyH.List)))
	mux.Handle("GET /api/journey/{id}", cors(h(s.journeyH.Get)))
	mux.Handle("OPTIONS /api/journey", cors(notFound))
	mux.Handle("OPTIONS /api/journey/{id}", cors(notFound))

	// Inline
	mux.Handle("GET /{$}", h(s.homeH.Home))
	mux.Handle("GET /journey", h(s.journeyH.Page))
	if s.cfg.DemoRoutes {
		mux.Handle("GET /seed-journey", h(s.journeyH.Seed))
		mux.Handle("POST /seed-journey", h(s.journeyH.Seed))
	}
	mux.Handle("GET /api/predict-price", cors(h(s.homeH.PredictPrice)))
	mux.Handle("OPTIONS /api/predict-price", cors(notFound))

	mux.Handle("/", notFound)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status, "backend": s.store.Backend})
}
