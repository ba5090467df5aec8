// Package dispatch owns the single consumer between the gateway read loop
// and the domain managers. All manager mutation happens on one goroutine,
// so handlers never race each other and wire arrival order is preserved.
package dispatch

import (
	"context"

	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/schema"
)

// OrderEvents is the event-application surface of the order manager.
type OrderEvents interface {
	ApplyStatus(ev schema.OrderStatus) bool
	ApplyExecution(ev schema.Execution) (model.Execution, model.Order, bool)
	ApplyCommission(ev schema.Commission) bool
	AttachError(externalID int64, code int, msg string) bool
}

// Positions accumulates fills into per-symbol net positions.
type Positions interface {
	ApplyFill(symbol string, side enum.OrderSide, qty, price float64) model.Position
}

// MarketDataEvents is the event-application surface of the market data
// manager.
type MarketDataEvents interface {
	ApplyTick(ev schema.Tick) bool
	ApplyHistoricalBar(ev schema.HistoricalBar) bool
	ApplyHistoricalEnd(ev schema.HistoricalEnd) bool
	FailRequest(requestID int64, code int, msg string) bool
	OnDisconnect(err error)
}

// ConnectionErrors receives connection-class protocol errors, typically the
// gateway client itself so it can drive its reconnect policy.
type ConnectionErrors interface {
	OnConnectionError(code int, msg string)
}

// Journal persists every dispatched event. May be nil.
type Journal interface {
	Record(ev schema.Event) error
}

// Dispatcher fans gateway events into the domain managers through a
// bounded queue with exactly one consumer.
type Dispatcher struct {
	queue     *bus.Queue
	orders    OrderEvents
	md        MarketDataEvents
	conn      ConnectionErrors
	journal   Journal
	positions Positions
	metrics   *obs.Metrics
	onResume  func()
	sessions  int
}

// Config wires the dispatcher's collaborators. Orders and MarketData are
// required; Conn, Journal and Metrics may be nil.
type Config struct {
	QueueSize  int
	Orders     OrderEvents
	MarketData MarketDataEvents
	Conn       ConnectionErrors
	Journal    Journal
	Positions  Positions
	Metrics    *obs.Metrics

	// OnSessionResume runs after any handshake beyond the first, i.e. a
	// successful reconnect. Used to replay market data subscriptions.
	OnSessionResume func()
}

// New builds a dispatcher.
func New(cfg Config) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 4096
	}
	return &Dispatcher{
		queue:     bus.NewQueue(cfg.QueueSize),
		orders:    cfg.Orders,
		md:        cfg.MarketData,
		conn:      cfg.Conn,
		journal:   cfg.Journal,
		positions: cfg.Positions,
		metrics:   cfg.Metrics,
		onResume:  cfg.OnSessionResume,
	}
}

// OnEvent implements the gateway event sink. Order lifecycle events block
// until queued; ticks are droppable under pressure since the next tick
// supersedes the lost one.
func (d *Dispatcher) OnEvent(ev schema.Event) {
	if ev.Kind == schema.EventTick {
		if err := d.queue.TryPublish(ev); err != nil {
			d.metrics.IncQueueDrop()
		}
		return
	}
	if err := d.queue.Publish(context.Background(), ev); err != nil {
		d.metrics.IncQueueClosed()
		logs.Warnf("drop %s event, err: %+v", ev.Kind, err)
	}
}

// OnDisconnect implements the gateway event sink.
func (d *Dispatcher) OnDisconnect(err error) {
	d.metrics.IncReconnect()
	if d.md != nil {
		d.md.OnDisconnect(err)
	}
}

// Run consumes the queue until ctx is done. It returns after the queue
// drains or the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.queue.Run(ctx, d.dispatch)
}

// Close stops the queue from accepting new events.
func (d *Dispatcher) Close() {
	d.queue.Close()
}

// dispatch routes one event. A panicking handler must never take down the
// consumer goroutine, so each event runs under its own recover.
func (d *Dispatcher) dispatch(ev schema.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.IncPanicRecovered()
			logs.Errorf("recovered handler panic on %s event: %v", ev.Kind, r)
		}
	}()

	d.metrics.ObserveEvent(ev.Kind, ev.RecvAt)
	if d.journal != nil {
		if err := d.journal.Record(ev); err != nil {
			logs.Warnf("journal write failed, err: %+v", err)
		}
	}

	switch ev.Kind {
	case schema.EventOrderStatus:
		if !d.orders.ApplyStatus(*ev.OrderStatus) {
			d.unknownOrder(ev.OrderStatus.OrderID)
		}
	case schema.EventExecution:
		exec, ord, ok := d.orders.ApplyExecution(*ev.Execution)
		if !ok {
			d.unknownOrder(ev.Execution.OrderID)
			return
		}
		if d.positions != nil {
			d.positions.ApplyFill(ord.Contract.Symbol, ord.Side, exec.Quantity, exec.Price)
		}
	case schema.EventCommission:
		if !d.orders.ApplyCommission(*ev.Commission) {
			logs.Warnf("commission for unknown execution, execId: %s", ev.Commission.ExecID)
		}
	case schema.EventTick:
		if d.md != nil && !d.md.ApplyTick(*ev.Tick) {
			logs.Warnf("tick for unknown request, reqId: %d", ev.Tick.RequestID)
		}
	case schema.EventHistoricalBar:
		if d.md != nil && !d.md.ApplyHistoricalBar(*ev.HistoricalBar) {
			logs.Warnf("historical bar for unknown request, reqId: %d", ev.HistoricalBar.RequestID)
		}
	case schema.EventHistoricalEnd:
		if d.md != nil && !d.md.ApplyHistoricalEnd(*ev.HistoricalEnd) {
			logs.Warnf("historical end for unknown request, reqId: %d", ev.HistoricalEnd.RequestID)
		}
	case schema.EventError:
		d.routeError(*ev.Error)
	case schema.EventHandshakeAck:
		d.sessions++
		if d.sessions > 1 && d.onResume != nil {
			d.onResume()
		}
	case schema.EventNextValidID:
		// Order id seeding is handled inside the gateway client.
	default:
		logs.Warnf("unhandled %s event", ev.Kind)
	}
}

// routeError sends a gateway error report to the owner of its id space.
func (d *Dispatcher) routeError(ev schema.ServerError) {
	class := schema.ClassifyErrorCode(ev.Code)
	d.metrics.IncErrorClass(class)

	switch class {
	case schema.ErrorClassOrder:
		if ev.RequestID > 0 {
			if !d.orders.AttachError(ev.RequestID, ev.Code, ev.Message) {
				d.unknownOrder(ev.RequestID)
			}
			return
		}
		logs.Warnf("order error without id, code: %d, msg: %s", ev.Code, ev.Message)
	case schema.ErrorClassMarketData:
		if d.md != nil && ev.RequestID > 0 {
			if !d.md.FailRequest(ev.RequestID, ev.Code, ev.Message) {
				logs.Warnf("market data error for unknown request, reqId: %d, code: %d", ev.RequestID, ev.Code)
			}
			return
		}
		logs.Warnf("market data farm notice, code: %d, msg: %s", ev.Code, ev.Message)
	case schema.ErrorClassConnection:
		if d.conn != nil {
			d.conn.OnConnectionError(ev.Code, ev.Message)
			return
		}
		logs.Warnf("connection error, code: %d, msg: %s", ev.Code, ev.Message)
	case schema.ErrorClassAccount:
		logs.Warnf("account notice, code: %d, msg: %s", ev.Code, ev.Message)
	default:
		logs.Warnf("gateway system notice, code: %d, msg: %s", ev.Code, ev.Message)
	}
}

func (d *Dispatcher) unknownOrder(externalID int64) {
	d.metrics.IncUnknownOrder()
	logs.Warnf("event for unknown order, ext: %d", externalID)
}
