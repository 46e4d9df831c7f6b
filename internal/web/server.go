// Package web provides the HTTP API for Spotify login, listening activity,
// search, and ratings.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/rs/cors"

	"github.com/justestif/spotify-ratings/internal/auth"
	"github.com/justestif/spotify-ratings/internal/logging"
	"github.com/justestif/spotify-ratings/internal/ratings"
)

const (
	// DefaultAddr is the default server address.
	DefaultAddr = "127.0.0.1:8000"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr          string
	FrontendURL   string
	CORSOrigins   []string
	SessionSecret string
	// SecureCookies marks the OAuth state cookie Secure (HTTPS deployments).
	SecureCookies bool
}

// Deps are the services the handlers call.
type Deps struct {
	// OAuth is nil when Spotify credentials are not configured.
	OAuth    OAuthFlow
	Spotify  SpotifyAPI
	Sessions *auth.Sessions
	Users    UserStore
	Accounts AccountStore
	Ratings  *ratings.Service
	DB       Pinger
	Logger   *log.Logger
}

// Server is the HTTP server for the API.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	logger   *log.Logger
	cfg      ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, deps Deps) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}

	cookies := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(oauthStateTTL / time.Second),
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}

	router := chi.NewRouter()

	s := &Server{
		router:   router,
		handlers: NewHandlers(deps, cookies, cfg.FrontendURL),
		logger:   deps.Logger,
		cfg:      cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logging.Middleware(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.New(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.Get("/healthz", h.Health)

	// Auth routes
	s.router.Get("/auth/spotify/login/", h.Login)
	s.router.Get("/auth/spotify/callback/", h.Callback)

	s.router.Group(func(r chi.Router) {
		r.Use(h.RequireSession)

		r.Get("/auth/user/", h.CurrentUser)

		r.Get("/user/now-playing/", h.NowPlaying)
		r.Get("/user/recently-played/", h.RecentlyPlayed)
		r.Get("/discover/search/music/", h.Search)

		r.Get("/ratings/", h.ListRatings)
		r.Post("/ratings/", h.CreateRating)
		r.Get("/ratings/item/", h.RatingForItem)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", "http://"+s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and shuts it down gracefully when ctx is done or an
// interrupt signal arrives.
func (s *Server) Run(ctx context.Context) error {
	// Channel to receive shutdown signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	select {
	case err := <-errCh:
		return err
	case <-stop:
	case <-ctx.Done():
	}
	s.logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
