package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/seojun-lab/kistrader/internal/cache/redis"
	"github.com/seojun-lab/kistrader/internal/config"
	"github.com/seojun-lab/kistrader/internal/domain"
	"github.com/seojun-lab/kistrader/internal/notify"
	"github.com/seojun-lab/kistrader/internal/platform/kis"
	"github.com/seojun-lab/kistrader/internal/platform/yahoo"
	"github.com/seojun-lab/kistrader/internal/service"
	"github.com/seojun-lab/kistrader/internal/store/postgres"
	"github.com/seojun-lab/kistrader/internal/trading"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Brokerage
	Tokens *kis.TokenStore
	Broker *kis.Client // nil in monitor mode

	// Quotes
	QuoteCache domain.QuoteCache
	Prices     *service.PriceService

	// Stores
	WatchlistStore domain.WatchlistStore // nil when Postgres is not wired

	// Trading state
	Positions *trading.PositionState

	// Notifications
	Notifier *notify.Notifier
}

// needsBroker returns true for modes that talk to the brokerage.
func needsBroker(mode string) bool {
	switch mode {
	case "trade", "server":
		return true
	default:
		return false
	}
}

// needsPostgres returns true for modes that serve the watchlist API.
func needsPostgres(mode string) bool {
	return mode == "server"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Positions: trading.NewPositionState(),
	}

	// --- Broker client (token store + REST client) ---
	deps.Tokens = kis.NewTokenStore(cfg.Broker.TokenPath)
	if needsBroker(mode) {
		brokerMode := domain.ModePaper
		if strings.ToLower(cfg.Broker.Mode) == "live" {
			brokerMode = domain.ModeLive
		}
		deps.Broker = kis.NewClient(kis.ClientConfig{
			Mode:        brokerMode,
			AppKey:      cfg.Broker.AppKey,
			AppSecret:   cfg.Broker.AppSecret,
			AccountNo:   cfg.Broker.AccountNo,
			AccountCode: cfg.Broker.AccountCode,
		}, deps.Tokens, logger)
	}

	// --- Redis quote cache ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })
	deps.QuoteCache = redis.NewQuoteCache(redisClient, cfg.Quotes.CacheTTL.Duration)

	// --- Price service (cache-through Yahoo chart client) ---
	yahooClient := yahoo.NewClient(cfg.Quotes.BaseURL)
	deps.Prices = service.NewPriceService(deps.QuoteCache, yahooClient, cfg.Quotes.CacheTTL.Duration, logger)

	// --- PostgreSQL watchlist store ---
	if needsPostgres(mode) {
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
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.WatchlistStore = postgres.NewWatchlistStore(pgClient)
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
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
