package web

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yearjam/yearjam/pkg/metrics"
)

// ServerConfig holds server wiring.
type ServerConfig struct {
	Addr             string
	YearStart        int
	YearEnd          int
	LeaderboardLimit int

	Selector ClipSelector
	Catalog  ShowCatalog
	Users    UserStore
	Scores   ScoreStore
	Sessions SessionManager
	Metrics  *metrics.Manager
	Logger   *slog.Logger

	TemplatesFS fs.FS
	StaticFS    fs.FS
}

// Server is the HTTP server for the game.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	logger   *slog.Logger
}

// NewServer creates a new game server.
func NewServer(cfg ServerConfig) (*Server, error) {
	templates, err := NewTemplates(cfg.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewManager()
	}

	handlers := &Handlers{
		selector:         cfg.Selector,
		catalog:          cfg.Catalog,
		users:            cfg.Users,
		scores:           cfg.Scores,
		sessions:         cfg.Sessions,
		templates:        templates,
		metrics:          cfg.Metrics,
		logger:           cfg.Logger,
		yearStart:        cfg.YearStart,
		yearEnd:          cfg.YearEnd,
		leaderboardLimit: cfg.LeaderboardLimit,
	}

	router := chi.NewRouter()
	s := &Server{
		router:   router,
		handlers: handlers,
		logger:   cfg.Logger,
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.StaticFS, cfg.Metrics)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Router exposes the configured router, mainly for httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes(staticFS fs.FS, m *metrics.Manager) {
	fileServer := http.FileServer(http.FS(staticFS))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	// Game API
	s.router.Get("/api/random-clip", s.handlers.RandomClip)
	s.router.Get("/api/show/{id}", s.handlers.Show)
	s.router.Get("/api/leaderboard", s.handlers.Leaderboard)
	s.router.Post("/api/score", s.handlers.SubmitScore)

	// Auth
	s.router.Post("/api/register", s.handlers.Register)
	s.router.Post("/api/login", s.handlers.Login)
	s.router.Get("/api/me", s.handlers.Me)
	s.router.Post("/api/logout", s.handlers.Logout)

	// Pages
	s.router.Get("/", s.handlers.Home)
	s.router.Get("/year/{year}", s.handlers.YearPage)
	s.router.Get("/search", s.handlers.SearchPage)

	// Operational
	s.router.Get("/_ping", s.handlers.Ping)
	s.router.Handle("/metrics", m.Handler())
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", slog.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and handles graceful shutdown on interrupt signals.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.logger.Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
