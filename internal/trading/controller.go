package trading

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/seojun-lab/kistrader/internal/domain"
)

// PriceSource provides the current price for a symbol.
type PriceSource interface {
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// OrderPlacer submits a cash order and reports whether the brokerage accepted
// it. The broker client's trading surface satisfies this.
type OrderPlacer interface {
	SubmitOrder(ctx context.Context, symbol string, quantity int, limitPrice float64, side domain.OrderSide) bool
}

// EventHandler receives the status event emitted by every evaluation cycle.
type EventHandler func(ctx context.Context, event domain.TradeEvent)

// Config holds the controller's trading parameters. A zero target disables
// that condition.
type Config struct {
	Symbol       string
	TargetBuy    float64
	TargetSell   float64
	Quantity     int
	PollInterval time.Duration
}

// Controller runs the threshold trading loop for one symbol: each cycle it
// fetches the price, evaluates the buy condition then the sell condition
// against the position state, submits at most one order, and sleeps until the
// next tick. The buy branch is always evaluated first, so a misconfigured
// sell target at or below the buy target is permanently shadowed.
type Controller struct {
	cfg       Config
	prices    PriceSource
	broker    OrderPlacer
	positions *PositionState
	onEvent   EventHandler
	logger    *slog.Logger
}

// NewController creates a controller. positions may be shared across
// controllers monitoring different symbols; each symbol has its own entry.
func NewController(cfg Config, prices PriceSource, broker OrderPlacer, positions *PositionState, onEvent EventHandler, logger *slog.Logger) *Controller {
	if cfg.Quantity < 1 {
		cfg.Quantity = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	return &Controller{
		cfg:       cfg,
		prices:    prices,
		broker:    broker,
		positions: positions,
		onEvent:   onEvent,
		logger: logger.With(
			slog.String("component", "trading_controller"),
			slog.String("symbol", cfg.Symbol),
		),
	}
}

// Run executes evaluation cycles until ctx is cancelled. Cancellation is
// observed only at cycle boundaries: an in-flight order submission always
// completes, and the loop stops within one poll interval of the request.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("trading loop started",
		slog.Float64("target_buy", c.cfg.TargetBuy),
		slog.Float64("target_sell", c.cfg.TargetSell),
		slog.Int("quantity", c.cfg.Quantity),
		slog.Duration("poll_interval", c.cfg.PollInterval),
	)

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		c.RunCycle(ctx)

		select {
		case <-ctx.Done():
			c.logger.Info("trading loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle performs one evaluation: price fetch, decision, at most one order.
// It never returns an error; every fault maps to a status event and the next
// cycle retries naturally.
func (c *Controller) RunCycle(ctx context.Context) {
	price, err := c.prices.GetCurrentPrice(ctx, c.cfg.Symbol)
	if err != nil {
		c.logger.Warn("price unavailable", slog.String("error", err.Error()))
		c.emit(ctx, domain.EventPriceUnavailable, 0, "", "current price unavailable: "+err.Error())
		return
	}

	switch {
	case c.cfg.TargetBuy > 0 && price <= c.cfg.TargetBuy:
		c.evaluateBuy(ctx, price)
	case c.cfg.TargetSell > 0 && price >= c.cfg.TargetSell:
		c.evaluateSell(ctx, price)
	default:
		c.emit(ctx, domain.EventWatching, price, "", "watching, no condition met")
	}
}

// evaluateBuy handles a satisfied buy condition. The position gate makes the
// buy idempotent: once a buy succeeds, later cycles below the target no-op.
func (c *Controller) evaluateBuy(ctx context.Context, price float64) {
	if c.positions.Holding(c.cfg.Symbol) {
		c.emit(ctx, domain.EventAlreadyHolding, price, domain.OrderSideBuy, "buy condition met but position already open")
		return
	}

	// The submission must complete even if the loop is being cancelled.
	ok := c.broker.SubmitOrder(context.WithoutCancel(ctx), c.cfg.Symbol, c.cfg.Quantity, 0, domain.OrderSideBuy)
	if !ok {
		c.logger.Warn("buy order rejected", slog.Float64("price", price))
		c.emit(ctx, domain.EventOrderFailed, price, domain.OrderSideBuy, "buy order rejected")
		return
	}

	c.positions.SetHolding(c.cfg.Symbol, true)
	c.logger.Info("buy order filled", slog.Float64("price", price), slog.Int("quantity", c.cfg.Quantity))
	c.emit(ctx, domain.EventOrderFilled, price, domain.OrderSideBuy, "buy order submitted")
}

// evaluateSell handles a satisfied sell condition. Only positions this loop
// opened are sellable; anything else reports "nothing to sell".
func (c *Controller) evaluateSell(ctx context.Context, price float64) {
	if !c.positions.Holding(c.cfg.Symbol) {
		c.emit(ctx, domain.EventNothingToSell, price, domain.OrderSideSell, "sell condition met but no position open")
		return
	}

	ok := c.broker.SubmitOrder(context.WithoutCancel(ctx), c.cfg.Symbol, c.cfg.Quantity, 0, domain.OrderSideSell)
	if !ok {
		c.logger.Warn("sell order rejected", slog.Float64("price", price))
		c.emit(ctx, domain.EventOrderFailed, price, domain.OrderSideSell, "sell order rejected")
		return
	}

	c.positions.SetHolding(c.cfg.Symbol, false)
	c.logger.Info("sell order filled", slog.Float64("price", price), slog.Int("quantity", c.cfg.Quantity))
	c.emit(ctx, domain.EventOrderFilled, price, domain.OrderSideSell, "sell order submitted")
}

func (c *Controller) emit(ctx context.Context, kind domain.EventKind, price float64, side domain.OrderSide, message string) {
	if c.onEvent == nil {
		return
	}
	c.onEvent(ctx, domain.TradeEvent{
		ID:      uuid.NewString(),
		Kind:    kind,
		Symbol:  c.cfg.Symbol,
		Side:    side,
		Price:   price,
		Message: message,
		Time:    time.Now().UTC(),
	})
}
