package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/monthlify/internal/api"
	"github.com/desertthunder/monthlify/internal/flow"
	"github.com/desertthunder/monthlify/internal/repositories"
	"github.com/desertthunder/monthlify/internal/services"
	"github.com/desertthunder/monthlify/internal/shared"
	"github.com/desertthunder/monthlify/internal/tasks"
	"github.com/desertthunder/monthlify/internal/web"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Hour
)

// ServeWeb runs the frontend against the backend at api.base_url.
func (r *Runner) ServeWeb(ctx context.Context, cmd *cli.Command) error {
	handler, cleanup, err := r.webHandler(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	return r.listen(ctx, "web", r.config.Server.Addr(), handler)
}

// ServeAPI runs the backend.
func (r *Runner) ServeAPI(ctx context.Context, cmd *cli.Command) error {
	handler, cleanup, err := r.apiHandler(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	return r.listen(ctx, "api", r.config.API.Addr(), handler)
}

// ServeAll runs the frontend and backend in one process. Either server failing stops both.
func (r *Runner) ServeAll(ctx context.Context, cmd *cli.Command) error {
	apiHandler, apiCleanup, err := r.apiHandler(ctx)
	if err != nil {
		return err
	}
	defer apiCleanup()

	webHandler, webCleanup, err := r.webHandler(ctx)
	if err != nil {
		return err
	}
	defer webCleanup()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.listen(gctx, "api", r.config.API.Addr(), apiHandler) })
	g.Go(func() error { return r.listen(gctx, "web", r.config.Server.Addr(), webHandler) })
	return g.Wait()
}

func (r *Runner) apiHandler(ctx context.Context) (http.Handler, func(), error) {
	if r.spotify == nil {
		return nil, nil, fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrServiceUnavailable)
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger := shared.WithLogger(r.logger, "server", "api")
	sessions := repositories.NewSessionRepository(db)
	records := repositories.NewPlaylistRecordRepository(db)
	engine := tasks.NewPlaylistEngine(r.covers, records, shared.WithLogger(logger, "component", "engine"))

	handler := api.New(api.SpotifyConnector{SpotifyService: r.spotify}, sessions, engine, r.covers, logger, api.Options{
		CookieName:   r.config.API.CookieName,
		CookieSecure: r.config.API.CookieSecure,
		SessionTTL:   r.config.API.SessionTTL(),
		FrontendURL:  r.config.API.FrontendURL,
	})

	sweepCtx, stop := context.WithCancel(ctx)
	go sweepSessions(sweepCtx, sessions, logger)

	router := handler.NewRouter()
	logger.Debug("routes registered", "patterns", router.Patterns())

	return router, func() {
		stop()
		db.Close()
	}, nil
}

func (r *Runner) webHandler(ctx context.Context) (http.Handler, func(), error) {
	logger := shared.WithLogger(r.logger, "server", "web")

	store, cleanup, err := r.resultStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	backend := services.NewBackendClient(r.config.API.BaseURL, r.httpClient)
	srv := web.New(backend, store, logger, web.Options{
		CookieName:   r.config.API.CookieName,
		CookieSecure: r.config.API.CookieSecure,
	})
	router := srv.NewRouter()
	logger.Debug("routes registered", "patterns", router.Patterns())
	return router, cleanup, nil
}

// resultStore builds the ephemeral store selected by [store] driver.
func (r *Runner) resultStore(ctx context.Context) (flow.ResultStore, func(), error) {
	cfg := r.config.Store
	switch cfg.Driver {
	case "", "memory":
		return flow.NewMemoryResultStore(cfg.ResultTTL()), func() {}, nil
	case "redis":
		client, err := flow.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		r.logger.Info("using redis result store", "addr", cfg.RedisAddr)
		return flow.NewRedisResultStore(client, cfg.ResultTTL()), func() { client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown store driver %q", shared.ErrInvalidConfig, cfg.Driver)
	}
}

// listen serves handler on addr until ctx is done, then shuts down gracefully.
func (r *Runner) listen(ctx context.Context, name, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		r.logger.Info("server listening", "server", name, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("%s server: %w", name, err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down", "server", name)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s server shutdown: %w", name, err)
	}
	return nil
}

func sweepSessions(ctx context.Context, sessions *repositories.SessionRepository, logger *log.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := sessions.DeleteExpired(now)
			if err != nil {
				logger.Warn("failed to delete expired sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("expired sessions deleted", "count", n)
			}
		}
	}
}
