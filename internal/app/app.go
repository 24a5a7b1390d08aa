package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orcaust/orcaust/internal/config"
	"github.com/orcaust/orcaust/internal/database"
	"github.com/orcaust/orcaust/pkg/user"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Application wires configuration, database, router, and server lifecycle.
type Application struct {
	cfg  config.Application
	db   *pgxpool.Pool
	deps *Dependencies
	srv  *http.Server
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication(cfg config.Application) (*Application, error) {
	if cfg.Auth.JwtSecret == "" {
		return nil, errors.New("auth.jwtsecret must be configured")
	}

	// DB + migrations
	if err := database.Migrate(cfg.Database); err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()

	// Build dependencies (services, handlers...)
	deps := BuildDependencies(db, cfg)

	if cfg.Admin.Username != "" && cfg.Admin.Password != "" {
		admin, err := user.EnsureAdmin(context.Background(), deps.UserRepo, cfg.Admin)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to bootstrap administrator: %w", err)
		}
		log.Infof("Administrator %s (id %d) is ready", admin.Username, admin.Id)
	}

	// Middleware chain
	SetupMiddleware(r, deps, cfg)

	// Routes
	RegisterRoutes(r, deps)

	srv := &http.Server{
		Handler:      r,
		Addr:         cfg.Listen,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Application{cfg: cfg, db: db, deps: deps, srv: srv}, nil
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests and closes the pool.
func (a *Application) Run(ctx context.Context) error {
	defer a.db.Close()

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", a.srv.Addr)
		serveErr <- a.srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
