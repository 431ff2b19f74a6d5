package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/positionbook/internal/pipeline"
	"github.com/alanyoungcy/positionbook/internal/server"
	"github.com/alanyoungcy/positionbook/internal/server/handler"
	"github.com/alanyoungcy/positionbook/internal/server/ws"
)

const shutdownTimeout = 5 * time.Second

// ServerMode serves the HTTP API and the WebSocket feed.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "server mode: starting")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// ArchiveMode periodically copies closed positions to object storage.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	if deps.Archiver == nil {
		return fmt.Errorf("app: archive mode requires s3 to be enabled")
	}
	a.logger.InfoContext(ctx, "archive mode: starting",
		slog.Duration("interval", a.cfg.Archive.Interval.Duration),
		slog.String("cron", a.cfg.Archive.Cron),
		slog.Int("retention_days", a.cfg.Archive.RetentionDays),
	)

	g, ctx := errgroup.WithContext(ctx)
	a.startArchiver(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the API server and, when S3 is enabled, the archiver.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "full mode: starting")

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.NeedsServer() {
		a.startHTTPServer(ctx, g, deps)
	}
	if deps.Archiver != nil {
		a.startArchiver(ctx, g, deps)
	} else {
		a.logger.WarnContext(ctx, "full mode: s3 disabled, archiver not started")
	}
	return g.Wait()
}

// startHTTPServer registers the hub, the server and its shutdown watcher on g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	startedAt := time.Now().UTC()

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:           a.cfg.Mode,
		StartedAt:      startedAt,
		AllowedOrigins: a.cfg.Server.CORSOrigins,
	})

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(deps.HealthChecks, a.logger),
		Status:    handler.NewStatusHandler(a.cfg.Mode, a.cfg.Storage.Driver, startedAt),
		Positions: handler.NewPositionHandler(deps.Positions, a.logger),
		Plans:     handler.NewPlanHandler(deps.Plans, a.logger),
		Journal:   handler.NewJournalHandler(deps.Journal, a.logger),
		Prices:    handler.NewPriceHandler(deps.Prices, a.logger),
		Audit:     handler.NewAuditHandler(deps.AuditStore, a.logger),
		Metrics:   deps.Metrics.Handler(),
	}

	srv := server.NewServer(server.Config{
		Host:        a.cfg.Server.Host,
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startArchiver schedules archive passes on the configured cron expression,
// or every Archive.Interval when none is set.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	arch := pipeline.NewArchiver(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)

	g.Go(func() error {
		if a.cfg.Archive.Cron != "" {
			return arch.RunCron(ctx, a.cfg.Archive.Cron)
		}
		return arch.RunEvery(ctx, a.cfg.Archive.Interval.Duration)
	})
}
