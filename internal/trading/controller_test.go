package trading

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seojun-lab/kistrader/internal/domain"
)

type stubPrices struct {
	price float64
	err   error
}

func (s *stubPrices) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return s.price, s.err
}

type recordedOrder struct {
	symbol     string
	quantity   int
	limitPrice float64
	side       domain.OrderSide
}

type stubBroker struct {
	accept bool
	orders []recordedOrder
}

func (s *stubBroker) SubmitOrder(ctx context.Context, symbol string, quantity int, limitPrice float64, side domain.OrderSide) bool {
	s.orders = append(s.orders, recordedOrder{symbol, quantity, limitPrice, side})
	return s.accept
}

type eventRecorder struct {
	events []domain.TradeEvent
}

func (r *eventRecorder) handle(ctx context.Context, event domain.TradeEvent) {
	r.events = append(r.events, event)
}

func (r *eventRecorder) kinds() []domain.EventKind {
	out := make([]domain.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func newTestController(cfg Config, prices PriceSource, broker OrderPlacer, positions *PositionState, rec *eventRecorder) *Controller {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewController(cfg, prices, broker, positions, rec.handle, logger)
}

func TestBuyIsIdempotent(t *testing.T) {
	prices := &stubPrices{price: 95}
	broker := &stubBroker{accept: true}
	positions := NewPositionState()
	rec := &eventRecorder{}
	ctrl := newTestController(Config{Symbol: "005930", TargetBuy: 100, Quantity: 1}, prices, broker, positions, rec)

	// Price stays under the buy target for several cycles; only the first
	// cycle may order.
	for range 5 {
		ctrl.RunCycle(context.Background())
	}

	require.Len(t, broker.orders, 1)
	assert.Equal(t, domain.OrderSideBuy, broker.orders[0].side)
	assert.True(t, positions.Holding("005930"))
	assert.Equal(t, []domain.EventKind{
		domain.EventOrderFilled,
		domain.EventAlreadyHolding,
		domain.EventAlreadyHolding,
		domain.EventAlreadyHolding,
		domain.EventAlreadyHolding,
	}, rec.kinds())
}

func TestBuyRetriesAfterRejection(t *testing.T) {
	prices := &stubPrices{price: 95}
	broker := &stubBroker{accept: false}
	positions := NewPositionState()
	rec := &eventRecorder{}
	ctrl := newTestController(Config{Symbol: "005930", TargetBuy: 100, Quantity: 1}, prices, broker, positions, rec)

	ctrl.RunCycle(context.Background())
	require.Len(t, broker.orders, 1)
	assert.False(t, positions.Holding("005930"), "a rejected order must not flip position state")

	// Broker recovers: the very next cycle retries the same decision.
	broker.accept = true
	ctrl.RunCycle(context.Background())
	require.Len(t, broker.orders, 2)
	assert.True(t, positions.Holding("005930"))
	assert.Equal(t, []domain.EventKind{domain.EventOrderFailed, domain.EventOrderFilled}, rec.kinds())
}

func TestBuyTakesPrecedenceOverSell(t *testing.T) {
	// Misconfiguration where both conditions hold at price 95: the buy
	// branch must win and sell must never be evaluated.
	prices := &stubPrices{price: 95}
	broker := &stubBroker{accept: true}
	positions := NewPositionState()
	positions.SetHolding("005930", true)
	rec := &eventRecorder{}
	ctrl := newTestController(Config{Symbol: "005930", TargetBuy: 100, TargetSell: 90, Quantity: 1}, prices, broker, positions, rec)

	ctrl.RunCycle(context.Background())

	assert.Empty(t, broker.orders, "holding + shadowed sell must submit nothing")
	assert.Equal(t, []domain.EventKind{domain.EventAlreadyHolding}, rec.kinds())
	assert.True(t, positions.Holding("005930"))
}

func TestSellRequiresOpenPosition(t *testing.T) {
	prices := &stubPrices{price: 110}
	broker := &stubBroker{accept: true}
	positions := NewPositionState()
	rec := &eventRecorder{}
	ctrl := newTestController(Config{Symbol: "005930", TargetSell: 105, Quantity: 1}, prices, broker, positions, rec)

	ctrl.RunCycle(context.Background())
	assert.Empty(t, broker.orders)
	assert.Equal(t, []domain.EventKind{domain.EventNothingToSell}, rec.kinds())
}

func TestFullBuyThenSellRoundTrip(t *testing.T) {
	prices := &stubPrices{price: 95}
	broker := &stubBroker{accept: true}
	positions := NewPositionState()
	rec := &eventRecorder{}
	ctrl := newTestController(Config{Symbol: "005930", TargetBuy: 100, TargetSell: 120, Quantity: 2}, prices, broker, positions, rec)

	ctrl.RunCycle(context.Background())
	require.True(t, positions.Holding("005930"))

	// Price between the targets: nothing to do.
	prices.price = 110
	ctrl.RunCycle(context.Background())

	// Price crosses the sell target.
	prices.price = 121
	ctrl.RunCycle(context.Background())
	assert.False(t, positions.Holding("005930"))

	require.Len(t, broker.orders, 2)
	assert.Equal(t, domain.OrderSideBuy, broker.orders[0].side)
	assert.Equal(t, domain.OrderSideSell, broker.orders[1].side)
	assert.Equal(t, 2, broker.orders[0].quantity)
	assert.Equal(t, float64(0), broker.orders[0].limitPrice, "threshold orders are market orders")
	assert.Equal(t, []domain.EventKind{
		domain.EventOrderFilled,
		domain.EventWatching,
		domain.EventOrderFilled,
	}, rec.kinds())
}

func TestPriceFailureEmitsStatusAndContinues(t *testing.T) {
	prices := &stubPrices{err: errors.New("quote feed down")}
	broker := &stubBroker{accept: true}
	positions := NewPositionState()
	rec := &eventRecorder{}
	ctrl := newTestController(Config{Symbol: "005930", TargetBuy: 100, Quantity: 1}, prices, broker, positions, rec)

	ctrl.RunCycle(context.Background())
	assert.Empty(t, broker.orders)
	require.Len(t, rec.events, 1)
	assert.Equal(t, domain.EventPriceUnavailable, rec.events[0].Kind)

	// Feed recovers: the next cycle trades normally.
	prices.err = nil
	prices.price = 95
	ctrl.RunCycle(context.Background())
	assert.Len(t, broker.orders, 1)
}

func TestRunToleratesZeroPollInterval(t *testing.T) {
	prices := &stubPrices{price: 150}
	rec := &eventRecorder{}
	ctrl := newTestController(Config{Symbol: "005930"}, prices, &stubBroker{}, NewPositionState(), rec)

	// An unset interval falls back to a sane default instead of panicking
	// the ticker.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ctrl.Run(ctx), context.Canceled)
	assert.Equal(t, 3*time.Second, ctrl.cfg.PollInterval)
}

func TestRunStopsWithinPollInterval(t *testing.T) {
	prices := &stubPrices{price: 150}
	broker := &stubBroker{accept: true}
	rec := &eventRecorder{}
	ctrl := newTestController(
		Config{Symbol: "005930", PollInterval: 10 * time.Millisecond, Quantity: 1},
		prices, broker, NewPositionState(), rec,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("controller did not stop after cancellation")
	}
}
