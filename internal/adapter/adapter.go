// Package adapter assembles the broker adapter: the gateway connection,
// the event dispatcher, and the domain managers behind one facade. All
// public trading, market data, and options operations enter here.
package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/contract"
	"main/internal/dispatch"
	"main/internal/gateway"
	"main/internal/marketdata"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/options"
	"main/internal/order"
	"main/internal/recorder"
	"main/internal/risk"
	"main/internal/schema"
	"main/internal/state"
	"main/pkg/exception"
)

// Adapter is the facade over the full broker stack. One Adapter owns one
// gateway connection and the managers bound to it.
type Adapter struct {
	cfg ops.Loaded

	gw         *gateway.Client
	orders     *order.Manager
	md         *marketdata.Manager
	opts       *options.Engine
	resolver   *contract.Resolver
	dispatcher *dispatch.Dispatcher
	journal    *recorder.Writer
	book       *state.Book
	metrics    *obs.Metrics

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// New wires the adapter from resolved configuration. Nothing touches the
// network until Connect.
func New(cfg ops.Loaded) (*Adapter, error) {
	a := &Adapter{
		cfg:      cfg,
		metrics:  obs.NewMetrics(),
		book:     state.NewBook(),
		resolver: contract.NewResolver(),
	}

	// The gateway needs its event sink before the dispatcher exists, so
	// the adapter forwards sink calls to the dispatcher built below.
	a.gw = gateway.New(cfg.Gateway, sinkFunc{a})

	reqIDs := obs.NewRequestIDGenerator(time.Now().UTC().Unix() << 16)
	a.md = marketdata.NewManager(a.gw, reqIDs, cfg.HistoricalTimeout)

	riskEngine := risk.NewEngine(cfg.Risk, a.md, a.book)
	a.orders = order.NewManager(a.gw, riskEngine)
	a.opts = options.NewEngine(a.md, a.resolver, a.orders, cfg.Options)

	dispatchCfg := dispatch.Config{
		Orders:          a.orders,
		MarketData:      a.md,
		Conn:            a.gw,
		Positions:       a.book,
		Metrics:         a.metrics,
		OnSessionResume: a.md.ResubscribeAll,
	}
	if cfg.JournalEnabled {
		dispatchCfg.Journal = a
	}
	a.dispatcher = dispatch.New(dispatchCfg)
	return a, nil
}

// Record implements the dispatcher's journal surface, forwarding to the
// writer of the current session. The writer is rebuilt per Connect so a
// reconnected adapter journals into fresh segments.
func (a *Adapter) Record(ev schema.Event) error {
	a.mu.Lock()
	w := a.journal
	a.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Record(ev)
}

// sinkFunc forwards gateway sink calls to the dispatcher. The gateway is
// constructed before the dispatcher, so the indirection breaks the cycle.
type sinkFunc struct{ a *Adapter }

func (s sinkFunc) OnEvent(ev schema.Event) { s.a.dispatcher.OnEvent(ev) }
func (s sinkFunc) OnDisconnect(err error)  { s.a.dispatcher.OnDisconnect(err) }

// Connect starts the dispatcher and journal, dials the gateway, and
// restores the position snapshot when configured.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return exception.ErrAlreadyConnected
	}
	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.running = true
	a.mu.Unlock()

	if a.cfg.JournalEnabled {
		journal, err := recorder.NewWriter(a.cfg.Journal)
		if err != nil {
			a.teardown()
			return errors.Wrap(err, "build journal writer")
		}
		if err := journal.Start(runCtx); err != nil {
			a.teardown()
			return errors.Wrap(err, "start journal")
		}
		a.mu.Lock()
		a.journal = journal
		a.mu.Unlock()
	}
	go a.dispatcher.Run(runCtx)

	if a.cfg.SnapshotPath != "" {
		if snap, err := state.ReadSnapshot(a.cfg.SnapshotPath); err == nil {
			a.book.Restore(snap)
			logs.Infof("restored %d positions from snapshot", len(snap.Positions))
		}
	}

	if err := a.gw.Connect(ctx); err != nil {
		a.teardown()
		return err
	}
	return nil
}

// Disconnect closes the gateway, persists positions, and stops the
// dispatcher and journal.
func (a *Adapter) Disconnect() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	err := a.gw.Disconnect()

	if a.cfg.SnapshotPath != "" {
		if werr := state.WriteSnapshot(a.cfg.SnapshotPath, a.book.Snapshot()); werr != nil {
			logs.Warnf("write position snapshot failed, err: %+v", werr)
		}
	}
	a.teardown()
	return err
}

func (a *Adapter) teardown() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return
	}
	a.running = false
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			logs.Warnf("journal close failed, err: %+v", err)
		}
		a.journal = nil
	}
}

// IsConnected reports whether the gateway handshake is live.
func (a *Adapter) IsConnected() bool {
	return a.gw.IsConnected()
}

// ResolveStock resolves an equity symbol, inferring venue and currency
// from the symbol suffix.
func (a *Adapter) ResolveStock(symbol, exchange, currency string) (model.Contract, error) {
	return a.resolver.ResolveStock(symbol, exchange, currency)
}

// ResolveOption resolves a single option contract.
func (a *Adapter) ResolveOption(symbol string, expiry time.Time, strike float64, right enum.OptionRight, exchange, currency string) (model.Contract, error) {
	return a.resolver.ResolveOption(symbol, expiry, strike, right, exchange, currency)
}

// ResolveFuture resolves a futures contract. Exchange is required.
func (a *Adapter) ResolveFuture(symbol string, expiry time.Time, exchange, currency string) (model.Contract, error) {
	return a.resolver.ResolveFuture(symbol, expiry, exchange, currency)
}

// PlaceOrder submits an order and returns its internal id. The callback
// fires on every subsequent lifecycle change.
func (a *Adapter) PlaceOrder(ord model.Order, cb order.Callback) (string, error) {
	return a.orders.PlaceOrder(ord, cb)
}

// CancelOrder requests cancellation of a working order.
func (a *Adapter) CancelOrder(orderID string) error {
	return a.orders.CancelOrder(orderID)
}

// ModifyOrder re-submits a working order with updated fields.
func (a *Adapter) ModifyOrder(orderID string, fields model.OrderFields) error {
	return a.orders.ModifyOrder(orderID, fields)
}

// GetOrderStatus returns the current status snapshot of an order.
func (a *Adapter) GetOrderStatus(orderID string) (model.OrderStatus, error) {
	return a.orders.GetOrderStatus(orderID)
}

// GetOrder returns the full order record including executions.
func (a *Adapter) GetOrder(orderID string) (model.OrderRecord, error) {
	return a.orders.GetOrder(orderID)
}

// ListOrders returns order records matching the filter.
func (a *Adapter) ListOrders(filter order.Filter) []model.OrderRecord {
	return a.orders.ListOrders(filter)
}

// SubscribeMarketData starts streaming quotes for a contract and returns
// the subscription's request id.
func (a *Adapter) SubscribeMarketData(c model.Contract, cb marketdata.Callback) (int64, error) {
	return a.md.Subscribe(c, cb)
}

// UnsubscribeMarketData stops the subscription behind the request id.
// Unknown ids are a no-op.
func (a *Adapter) UnsubscribeMarketData(requestID int64) error {
	return a.md.Unsubscribe(requestID)
}

// GetSnapshot returns the last known quote state for a subscribed
// contract.
func (a *Adapter) GetSnapshot(c model.Contract) (model.Snapshot, error) {
	return a.md.GetSnapshot(c)
}

// GetCurrentPrice returns the best current price for a contract,
// subscribing temporarily when no subscription exists.
func (a *Adapter) GetCurrentPrice(ctx context.Context, c model.Contract) (float64, error) {
	return a.md.GetCurrentPrice(ctx, c)
}

// GetHistoricalBars fetches historical bars, blocking until the reply
// completes or the configured timeout elapses.
func (a *Adapter) GetHistoricalBars(ctx context.Context, c model.Contract, duration, barSize, whatToShow string, useRTH bool) ([]model.HistoricalBar, error) {
	return a.md.GetHistoricalBars(ctx, c, duration, barSize, whatToShow, useRTH)
}

// GetOptionChain builds a quoted option chain around the money for the
// given underlying and expiry.
func (a *Adapter) GetOptionChain(ctx context.Context, symbol string, expiry time.Time) (model.OptionChain, error) {
	return a.opts.GetOptionChain(ctx, symbol, expiry)
}

// PlaceOptionOrder submits a single-leg option order.
func (a *Adapter) PlaceOptionOrder(c model.Contract, side enum.OrderSide, quantity float64, kind enum.OrderKind, limitPrice float64, cb order.Callback) (string, error) {
	return a.opts.PlaceOptionOrder(c, side, quantity, kind, limitPrice, cb)
}

// ExecuteStrategy validates and submits a multi-leg option strategy.
func (a *Adapter) ExecuteStrategy(kind enum.StrategyKind, legs []options.StrategyLeg) (options.StrategyResult, error) {
	return a.opts.ExecuteStrategy(kind, legs)
}

// GetPositions returns the net position per symbol accumulated from
// executions this session plus any restored snapshot.
func (a *Adapter) GetPositions() map[string]model.Position {
	return a.book.All()
}

// GetPosition returns the net position for one symbol.
func (a *Adapter) GetPosition(symbol string) model.Position {
	return a.book.Position(symbol)
}

// Metrics returns a point-in-time snapshot of adapter counters.
func (a *Adapter) Metrics() obs.Snapshot {
	return a.metrics.Snapshot()
}
