package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seojun-lab/kistrader/internal/domain"
	"github.com/seojun-lab/kistrader/internal/feed"
	"github.com/seojun-lab/kistrader/internal/server"
	"github.com/seojun-lab/kistrader/internal/server/handler"
	"github.com/seojun-lab/kistrader/internal/trading"
)

// TradeMode runs the threshold trading loop, the realtime feed when enabled,
// and the HTTP API.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode",
		slog.String("symbol", a.cfg.Trading.Symbol),
	)

	g, ctx := errgroup.WithContext(ctx)

	controller := trading.NewController(
		trading.Config{
			Symbol:       a.cfg.Trading.Symbol,
			TargetBuy:    a.cfg.Trading.TargetBuy,
			TargetSell:   a.cfg.Trading.TargetSell,
			Quantity:     a.cfg.Trading.Quantity,
			PollInterval: a.cfg.Trading.PollInterval.Duration,
		},
		deps.Prices,
		deps.Broker,
		deps.Positions,
		a.eventHandler(deps),
		a.logger,
	)
	g.Go(func() error {
		return controller.Run(ctx)
	})

	// Realtime tick feed keeps the quote cache hot so the controller reads
	// brokerage ticks instead of delayed chart quotes.
	if a.cfg.Broker.Realtime {
		wsFeed := feed.NewKISQuoteFeed(deps.Broker, a.cfg.Trading.Symbol, func(ctx context.Context, q domain.Quote) {
			deps.Prices.ObserveQuote(ctx, q)
		}, a.logger)
		g.Go(func() error {
			defer wsFeed.Close()
			return wsFeed.Run(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	return g.Wait()
}

// MonitorMode watches the configured symbol without placing orders: the
// trading loop runs with zeroed targets, so every cycle only reports price.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.String("symbol", a.cfg.Trading.Symbol),
	)

	g, ctx := errgroup.WithContext(ctx)

	watcher := trading.NewController(
		trading.Config{
			Symbol:       a.cfg.Trading.Symbol,
			PollInterval: a.cfg.Trading.PollInterval.Duration,
		},
		deps.Prices,
		noopOrderPlacer{},
		deps.Positions,
		a.eventHandler(deps),
		a.logger,
	)
	g.Go(func() error {
		return watcher.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	return g.Wait()
}

// ServerMode serves the HTTP API only: portfolio, quotes, and watchlists.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// eventHandler builds the per-cycle event callback: log at debug for quiet
// kinds, forward everything to the notifier's filter.
func (a *App) eventHandler(deps *Dependencies) trading.EventHandler {
	return func(ctx context.Context, event domain.TradeEvent) {
		switch event.Kind {
		case domain.EventWatching, domain.EventAlreadyHolding, domain.EventNothingToSell:
			a.logger.DebugContext(ctx, "cycle status",
				slog.String("kind", string(event.Kind)),
				slog.String("symbol", event.Symbol),
				slog.Float64("price", event.Price),
			)
		}
		if err := deps.Notifier.NotifyEvent(ctx, event); err != nil {
			a.logger.WarnContext(ctx, "event notification failed",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// startHTTPServer adds the HTTP server and its graceful shutdown to the
// errgroup. Portfolio routes need the broker; watchlist routes need Postgres.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	brokerMode := domain.ModePaper
	if deps.Broker != nil {
		brokerMode = deps.Broker.Mode()
	}

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(brokerMode, a.cfg.Mode, a.logger),
		Status: handler.NewStatusHandler(brokerMode, a.cfg.Trading.Symbol,
			a.cfg.Trading.TargetBuy, a.cfg.Trading.TargetSell, deps.Positions, a.logger),
		Quotes: handler.NewQuoteHandler(deps.Prices, a.logger),
	}
	if deps.Broker != nil {
		handlers.Portfolio = handler.NewPortfolioHandler(deps.Broker, a.logger)
	}
	if deps.WatchlistStore != nil {
		handlers.Watchlist = handler.NewWatchlistHandler(deps.WatchlistStore, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, handlers, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// noopOrderPlacer satisfies trading.OrderPlacer for monitor mode. Every
// submission is refused, so position state never changes.
type noopOrderPlacer struct{}

func (noopOrderPlacer) SubmitOrder(ctx context.Context, symbol string, quantity int, limitPrice float64, side domain.OrderSide) bool {
	return false
}
