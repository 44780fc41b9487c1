// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it:
// - Testable (we can create a test server without running main)
// - Reusable (multiple entry points could use the same server config)
// - Clean (main.go stays minimal — just "load config, start the server")
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ayutenn/skeleton/internal/auth"
	"github.com/ayutenn/skeleton/internal/config"
	"github.com/ayutenn/skeleton/internal/handler"
	"github.com/ayutenn/skeleton/internal/middleware"
	sqliteRepo "github.com/ayutenn/skeleton/internal/repository/sqlite"
	"github.com/ayutenn/skeleton/internal/service"
	"github.com/ayutenn/skeleton/internal/session"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns a database connection (db). When the server shuts down,
// we must close this connection to flush any pending writes and release the
// file lock. This is handled in Start() during graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a new Server with the given config.
//
// DEPENDENCY INJECTION & WIRING:
// This is where the entire dependency chain is assembled:
//  1. PasswordService (bcrypt) — the database needs it to hash at insert
//  2. sqlite.DB — implements both UserRepository and SessionRepository
//  3. session.Manager — server-side sessions backed by the sessions table
//  4. Services (auth, register, user) on top of the repository interfaces
//  5. Handlers on top of the services
//  6. Routes
//
// Each layer only receives what it needs:
// - Services get repository interfaces (not the concrete sqlite.DB)
// - Handlers get services (not repositories or the DB)
//
// IMPORT ALIAS:
// We import repository/sqlite as `sqliteRepo` to avoid confusion with
// the sqlite driver package. Import aliases are common in Go when
// package names would otherwise collide or be unclear.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	passwords := auth.NewPasswordService()

	db, err := sqliteRepo.New(cfg.DBPath, passwords)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(passwords); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	Browser (session + flash + redirect):
//	GET  /                        → Top page
//	GET  /login                   → Login form
//	POST /login                   → Login submit
//	GET  /logout                  → Logout
//	GET  /sample-register         → Registration form
//	POST /sample-register         → Registration submit
//	GET  /users                   → User admin page       [login required]
//	POST /users/update            → Edit a user           [login required]
//	POST /users/delete            → Soft-delete a user    [login required]
//	GET  /auth/github/login       → Start GitHub OAuth    [if configured]
//	GET  /auth/github/callback    → Finish GitHub OAuth   [if configured]
//	GET  /static/*                → Static files (CSS, JS)
//
//	API (JSON envelope, no session):
//	POST /api/login               → Credentials → bearer token
//	GET  /api/users/{userID}      → Public user lookup
//	GET  /api/me                  → Token's own record    [token required]
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. Logger — logs each request with timing info
// The session middleware is scoped to the browser routes only; API clients
// carry a bearer token instead of a cookie.
func (s *Server) setupRoutes(passwords *auth.PasswordService) error {
	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === Static Files ===
	// http.StripPrefix removes "/static/" from the URL path before lookup,
	// so GET /static/css/style.css serves {StaticDir}/css/style.css.
	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	// === Services ===
	// s.db implements both repository.UserRepository and
	// repository.SessionRepository; services receive the interfaces.
	authService := service.NewAuthService(s.db, passwords, s.logger)
	registerService := service.NewRegisterService(s.db, s.logger)
	userService := service.NewUserService(s.db, s.logger)

	sessions := session.NewManager(s.db, s.config.SessionTTL, s.logger)

	// === Handlers ===
	var github *auth.GitHubProvider
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	var tokens *auth.TokenService
	if s.config.JWTSecret != "" {
		var err error
		tokens, err = auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	}

	pageHandler, err := handler.NewPageHandler(s.config.TemplateDir, userService, github != nil, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	registerHandler := handler.NewRegisterHandler(registerService, s.logger)
	userHandler := handler.NewUserHandler(userService, authService, tokens, s.logger)

	// === Browser Routes ===
	// Everything in this group runs under the session middleware: the
	// handlers can read the principal, push flash messages, and retain
	// form values across the redirect.
	s.router.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)

		r.Get("/", pageHandler.HandleTop)
		r.Get("/login", pageHandler.HandleLoginPage)
		r.Post("/login", authHandler.HandleLogin)
		r.Get("/logout", authHandler.HandleLogout)
		r.Get("/sample-register", pageHandler.HandleRegisterPage)
		r.Post("/sample-register", registerHandler.HandleRegister)

		if github != nil {
			r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
			r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
		}

		// The user admin page needs a logged-in session; anonymous
		// visitors are flashed a notice and bounced to the login form.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireLogin("/login"))

			r.Get("/users", pageHandler.HandleUsersPage)
			r.Post("/users/update", userHandler.HandleUpdate)
			r.Post("/users/delete", userHandler.HandleDelete)
		})
	})

	// === API Routes ===
	// Registered only when a JWT secret is configured — without one we
	// could neither issue nor verify tokens.
	if tokens != nil {
		s.router.Route("/api", func(r chi.Router) {
			r.Post("/login", userHandler.HandleAPILogin)
			r.Get("/users/{userID}", userHandler.HandleAPIGetUser)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireToken(tokens))
				r.Get("/me", userHandler.HandleAPIMe)
			})
		})
	}

	return nil
}

// Router exposes the configured router, mainly so tests can drive the full
// middleware + handler stack through httptest without opening a port.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases the server's resources without going through Start's
// signal loop. Start handles this itself; Close exists for tests.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
//
// If we skip step 3, the database file might be left in an inconsistent state.
// The `defer s.db.Close()` ensures this happens even if something panics.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.Bool("github_login", s.config.GitHubEnabled()),
			slog.Bool("token_api", s.config.JWTSecret != ""),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
