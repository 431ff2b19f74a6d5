package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	s3blob "github.com/alanyoungcy/positionbook/internal/blob/s3"
	"github.com/alanyoungcy/positionbook/internal/cache/memory"
	"github.com/alanyoungcy/positionbook/internal/cache/redis"
	"github.com/alanyoungcy/positionbook/internal/config"
	"github.com/alanyoungcy/positionbook/internal/domain"
	"github.com/alanyoungcy/positionbook/internal/idgen"
	"github.com/alanyoungcy/positionbook/internal/notify"
	"github.com/alanyoungcy/positionbook/internal/platform/alpaca"
	"github.com/alanyoungcy/positionbook/internal/server/handler"
	"github.com/alanyoungcy/positionbook/internal/service"
	"github.com/alanyoungcy/positionbook/internal/store/postgres"
	"github.com/alanyoungcy/positionbook/internal/store/sqlite"
	"github.com/alanyoungcy/positionbook/internal/telemetry"
)

// localPriceTTL bounds how stale the in-process price layer may be relative
// to the primary store.
const localPriceTTL = 5 * time.Second

// Dependencies bundles everything the modes and the CLI need. It is built by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	PositionStore domain.PositionStore
	TradeStore    domain.TradeStore
	JournalStore  domain.JournalStore
	AuditStore    domain.AuditStore

	// Caches. Limiter and bus are nil without Redis.
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	Quotes domain.QuoteProvider

	// Blob storage, nil unless S3 is enabled.
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   *s3blob.PositionArchiver

	Notifier service.Notifier
	Metrics  *telemetry.Metrics
	IDs      domain.IDGenerator

	Plans     *service.PlanService
	Positions *service.PositionService
	Prices    *service.PriceService
	Journal   *service.JournalService

	// HealthChecks are probed by GET /api/health.
	HealthChecks map[string]handler.HealthCheck
}

// Wire constructs the concrete implementations selected by cfg and returns
// them with a cleanup function that releases them in reverse order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{
		HealthChecks: make(map[string]handler.HealthCheck),
	}
	// Price table in the primary store, used when Redis is off.
	var storedPrices domain.PriceCache

	// --- Primary store ---
	switch strings.ToLower(cfg.Storage.Driver) {
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}

		pool := pgClient.Pool()
		deps.PositionStore = postgres.NewPositionStore(pool)
		deps.TradeStore = postgres.NewTradeStore(pool)
		deps.JournalStore = postgres.NewJournalStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		storedPrices = postgres.NewPriceStore(pool, cfg.Redis.PriceTTL.Duration)
		deps.HealthChecks["postgres"] = pgClient.Ping

	case "sqlite":
		db, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return fail(fmt.Errorf("wire: sqlite: %w", err))
		}
		closers = append(closers, func() { _ = db.Close() })

		deps.PositionStore = db.Positions()
		deps.TradeStore = db.Trades()
		deps.JournalStore = db.Journals()
		deps.AuditStore = db.Audit()
		storedPrices = db.Prices(cfg.Redis.PriceTTL.Duration)
		deps.HealthChecks["sqlite"] = func(context.Context) error { return db.Ping() }

	default:
		return fail(fmt.Errorf("wire: unknown storage driver %q", cfg.Storage.Driver))
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient, cfg.Redis.PriceTTL.Duration)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.HealthChecks["redis"] = redisClient.Ping
	} else {
		logger.InfoContext(ctx, "wire: redis disabled, prices kept in the primary store with in-process locks")
		deps.PriceCache = memory.NewReadThrough(storedPrices, localPriceTTL)
		deps.LockManager = memory.NewLockManager()
	}

	// --- Upstream quotes ---
	if cfg.Alpaca.Enabled {
		deps.Quotes = alpaca.NewQuoteProvider(alpaca.Config{
			APIKey:    cfg.Alpaca.APIKey,
			APISecret: cfg.Alpaca.APISecret,
			BaseURL:   cfg.Alpaca.BaseURL,
			Feed:      cfg.Alpaca.Feed,
		})
	}

	// --- S3 archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: s3: %w", err))
		}

		objects := s3blob.NewObjects(s3Client)
		deps.BlobWriter = objects
		deps.BlobReader = objects
		deps.Archiver = s3blob.NewArchiver(
			deps.BlobWriter,
			deps.BlobReader,
			deps.PositionStore,
			deps.JournalStore,
			deps.AuditStore,
			logger,
		)
		deps.HealthChecks["s3"] = s3Client.Health
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	}

	deps.Metrics = telemetry.NewMetrics(prometheus.NewRegistry())
	deps.IDs = idgen.New()

	wireServices(deps, logger)
	return deps, cleanup, nil
}

// wireServices builds the services on top of already wired dependencies.
func wireServices(deps *Dependencies, logger *slog.Logger) {
	deps.Prices = service.NewPriceService(
		deps.PriceCache,
		deps.Quotes,
		deps.SignalBus,
		deps.Metrics,
		logger.With(slog.String("component", "price_service")),
	)
	deps.Plans = service.NewPlanService(
		deps.PositionStore,
		deps.JournalStore,
		deps.IDs,
		deps.SignalBus,
		deps.AuditStore,
		deps.Notifier,
		deps.Metrics,
		logger.With(slog.String("component", "plan_service")),
	)
	deps.Positions = service.NewPositionService(
		deps.PositionStore,
		deps.TradeStore,
		deps.JournalStore,
		deps.Prices,
		deps.LockManager,
		deps.IDs,
		deps.SignalBus,
		deps.AuditStore,
		deps.Notifier,
		deps.Metrics,
		logger.With(slog.String("component", "position_service")),
	)
	deps.Journal = service.NewJournalService(deps.JournalStore)
}

