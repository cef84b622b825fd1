// Package server wires the reference sync server: PostgreSQL storage with
// goose migrations, the user and sync services, and the HTTP endpoint.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/studiosync/internal/buildinfo"
	"github.com/dmitrijs2005/studiosync/internal/logging"
	"github.com/dmitrijs2005/studiosync/internal/server/config"
	"github.com/dmitrijs2005/studiosync/internal/server/httpapi"
	"github.com/dmitrijs2005/studiosync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/studiosync/internal/server/services"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
}

// NewApp opens the database, applies migrations and creates the bootstrap
// account when one is configured.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	us := services.NewUserService(db, rm, c, logger)
	if err := us.Bootstrap(ctx, c.BootstrapUser, c.BootstrapPassword); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap error: %w", err)
	}
	ss := services.NewSyncService(db, rm, logger)

	router := httpapi.NewRouter(httpapi.Deps{
		Users:   us,
		Sync:    ss,
		Version: buildinfo.Version,
		Log:     logger,
	})

	return &App{config: c, logger: logger, db: db, handler: router}, nil
}

// Run serves until ctx is canceled, then shuts the listener down within
// the configured timeout and closes the database.
func (app *App) Run(ctx context.Context) error {
	srv := &http.Server{Addr: app.config.EndpointAddr, Handler: app.handler}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.logger.Info(ctx, "Starting server...", "addr", app.config.EndpointAddr, "version", buildinfo.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info(ctx, "Shutting down server...")
		sctx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err := g.Wait()
	if app.db != nil {
		if cerr := app.db.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
