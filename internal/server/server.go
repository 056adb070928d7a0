// Package server is the composition root: it assembles the dependency graph
// (store → services → handlers), declares every route with its middleware,
// and owns startup and graceful shutdown. Nothing else in the codebase knows
// the whole graph.
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

	"github.com/CS3219-AY2526S2/peerprep-g15/internal/auth"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/config"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/handler"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/middleware"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/model"
	sqliteRepo "github.com/CS3219-AY2526S2/peerprep-g15/internal/repository/sqlite"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/service"
)

// Server owns the router and the resources that must be released on
// shutdown (the database pool).
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New builds the full dependency graph from configuration. A bad config
// (missing or equal signing secrets) fails here, before the server ever
// listens.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(
		cfg.JWTAccessSecret,
		cfg.JWTRefreshSecret,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring token service: %w", err)
	}

	passwords := auth.NewPasswordService(cfg.BcryptCost)

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(tokens, passwords)

	return s, nil
}

// setupRoutes declares the middleware chain and every endpoint.
//
// Route map:
//
//	GET    /health                liveness probe, no auth
//	POST   /api/auth/register     open
//	POST   /api/auth/login        open
//	POST   /api/auth/refresh      refresh cookie, no bearer token
//	POST   /api/auth/logout       refresh cookie, no bearer token
//	GET    /api/me                bearer token
//	PATCH  /api/me                bearer token
//	GET    /api/admin/home        bearer token + admin role
func (s *Server) setupRoutes(tokens *auth.TokenService, passwords *auth.PasswordService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	meService := service.NewMeService(s.db, passwords, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	meHandler := handler.NewMeHandler(meService, s.logger)
	adminHandler := handler.NewAdminHandler()

	requireAuth := auth.RequireAuth(tokens, handler.WriteError)
	requireAdmin := auth.RequireRole(handler.WriteError, model.RoleAdmin)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/refresh", authHandler.HandleRefresh)
			r.Post("/logout", authHandler.HandleLogout)
		})

		r.Route("/me", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", meHandler.HandleGetMe)
			r.Patch("/", meHandler.HandleUpdateMe)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(requireAdmin)
			r.Get("/home", adminHandler.HandleHome)
		})
	})
}

// Router exposes the configured router, mainly so tests can drive the full
// middleware + handler stack through httptest without opening a port.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close releases the server's resources without serving. Start calls it
// itself; tests that only use Router should defer it.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves HTTP until SIGINT/SIGTERM, then drains in-flight requests
// and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
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
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
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
