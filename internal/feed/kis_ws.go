// Package feed runs the realtime quote stream and fans ticks out to the
// quote cache and trading controller.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/seojun-lab/kistrader/internal/domain"
	"github.com/seojun-lab/kistrader/internal/platform/kis"
)

// QuoteHandler is called for each realtime tick (quote cache + controller).
type QuoteHandler func(ctx context.Context, quote domain.Quote)

// ApprovalKeySource issues the websocket approval key. Keys are per-session,
// so the feed requests a fresh one on every (re)connect.
type ApprovalKeySource interface {
	ApprovalKey(ctx context.Context) (string, error)
	WSEndpoint() string
}

// KISQuoteFeed connects to the KIS realtime websocket, subscribes to the
// execution-price stream for the given symbol, and invokes the handler on
// each tick. It reconnects on disconnect.
type KISQuoteFeed struct {
	keys      ApprovalKeySource
	symbol    string
	onQuote   QuoteHandler
	logger    *slog.Logger
	closeOnce sync.Once
	done      chan struct{}
}

// NewKISQuoteFeed creates a feed for the given symbol.
func NewKISQuoteFeed(keys ApprovalKeySource, symbol string, onQuote QuoteHandler, logger *slog.Logger) *KISQuoteFeed {
	return &KISQuoteFeed{
		keys:    keys,
		symbol:  symbol,
		onQuote: onQuote,
		logger:  logger.With(slog.String("component", "kis_quote_feed")),
		done:    make(chan struct{}),
	}
}

// Run connects, subscribes, and streams ticks until ctx is cancelled,
// reconnecting with a short delay on any disconnect.
func (f *KISQuoteFeed) Run(ctx context.Context) error {
	if f.symbol == "" {
		f.logger.Info("no symbol to subscribe, exiting")
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}

		f.logger.Warn("realtime feed disconnected, reconnecting",
			slog.String("symbol", f.symbol),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

func (f *KISQuoteFeed) runConnection(ctx context.Context) error {
	keyCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	approvalKey, err := f.keys.ApprovalKey(keyCtx)
	cancel()
	if err != nil {
		return err
	}

	client := kis.NewWSClient(f.keys.WSEndpoint(), approvalKey, func(q domain.Quote) {
		if f.onQuote != nil {
			f.onQuote(context.Background(), q)
		}
	})
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return err
	}
	if err := client.Subscribe(f.symbol); err != nil {
		return err
	}
	f.logger.Info("realtime feed subscribed", slog.String("symbol", f.symbol))

	return client.Run(ctx)
}

// Close stops the feed.
func (f *KISQuoteFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
