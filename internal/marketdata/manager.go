// Package marketdata owns streaming tick subscriptions and the
// synchronous-over-asynchronous historical data flow. Snapshots are
// mutated in place by the dispatcher goroutine; readers get copies.
package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/codec"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/schema"
	"main/pkg/exception"
)

// Gateway is the sending surface the manager needs from the gateway client.
type Gateway interface {
	IsConnected() bool
	Send(payload []byte) error
}

// Callback receives a snapshot copy after each tick. Invoked on the
// dispatcher goroutine with no lock held; keep it fast.
type Callback func(symbol string, snap model.Snapshot)

// subscription is one wire-level market data stream. Several subscribers
// can share it; the wire subscription lives until the last one leaves.
type subscription struct {
	requestID   int64
	contract    model.Contract
	snapshot    model.Snapshot
	subscribers map[int64]Callback
}

type historicalRequest struct {
	bars []model.HistoricalBar
	done chan historicalResult
}

type historicalResult struct {
	bars []model.HistoricalBar
	err  error
}

// Manager is the market data manager.
type Manager struct {
	gw        Gateway
	reqIDs    *obs.RequestIDGenerator
	timeout   time.Duration
	priceWait time.Duration

	mu      sync.Mutex
	subs    map[string]*subscription
	byWire  map[int64]*subscription
	handles map[int64]*subscription
	pending map[int64]*historicalRequest
}

// NewManager builds a market data manager. historicalTimeout bounds
// GetHistoricalBars when the caller's context carries no deadline.
func NewManager(gw Gateway, reqIDs *obs.RequestIDGenerator, historicalTimeout time.Duration) *Manager {
	if historicalTimeout <= 0 {
		historicalTimeout = 10 * time.Second
	}
	return &Manager{
		gw:        gw,
		reqIDs:    reqIDs,
		timeout:   historicalTimeout,
		priceWait: 5 * time.Second,
		subs:      make(map[string]*subscription),
		byWire:    make(map[int64]*subscription),
		handles:   make(map[int64]*subscription),
		pending:   make(map[int64]*historicalRequest),
	}
}

// Subscribe registers a subscriber for the contract's stream and returns
// a request id owned by that subscriber. The first subscriber opens the
// wire subscription; later ones share it and get distinct ids, so one
// subscriber's Unsubscribe never tears down another's feed.
func (m *Manager) Subscribe(contract model.Contract, cb Callback) (int64, error) {
	if contract.Symbol == "" {
		return 0, exception.ErrEmptySymbol
	}
	if !m.gw.IsConnected() {
		return 0, exception.ErrNotConnected
	}
	key := contract.LocalSymbol()

	m.mu.Lock()
	if sub, ok := m.subs[key]; ok {
		id := m.reqIDs.Next()
		sub.subscribers[id] = cb
		m.handles[id] = sub
		m.mu.Unlock()
		return id, nil
	}
	id := m.reqIDs.Next()
	sub := &subscription{
		requestID:   id,
		contract:    contract,
		subscribers: map[int64]Callback{id: cb},
	}
	m.subs[key] = sub
	m.byWire[id] = sub
	m.handles[id] = sub
	m.mu.Unlock()

	if err := m.gw.Send(codec.EncodeSubscribeMarketData(schema.SubscribeMarketDataRequest{
		RequestID: id,
		Contract:  contract.Spec(),
	})); err != nil {
		m.mu.Lock()
		delete(m.subs, key)
		delete(m.byWire, id)
		delete(m.handles, id)
		m.mu.Unlock()
		return 0, errors.Wrap(err, "subscribe market data").With("symbol", key)
	}

	logs.Infof("market data subscribed, symbol: %s, reqId: %d", key, id)
	return id, nil
}

// Unsubscribe removes the subscriber behind the request id. The wire
// subscription goes down with the last subscriber. Unsubscribing an
// unknown id is a no-op.
func (m *Manager) Unsubscribe(requestID int64) error {
	m.mu.Lock()
	sub, ok := m.handles[requestID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.handles, requestID)
	delete(sub.subscribers, requestID)
	if len(sub.subscribers) > 0 {
		m.mu.Unlock()
		return nil
	}
	key := sub.contract.LocalSymbol()
	delete(m.subs, key)
	delete(m.byWire, sub.requestID)
	m.mu.Unlock()

	if err := m.gw.Send(codec.EncodeUnsubscribeMarketData(schema.UnsubscribeMarketDataRequest{
		RequestID: sub.requestID,
	})); err != nil {
		return errors.Wrap(err, "unsubscribe market data").With("symbol", key)
	}
	return nil
}

// GetSnapshot returns a copy of the contract's latest market picture.
func (m *Manager) GetSnapshot(contract model.Contract) (model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[contract.LocalSymbol()]
	if !ok {
		return model.Snapshot{}, exception.ErrSubscriptionNotFound
	}
	return sub.snapshot, nil
}

// GetCurrentPrice returns the best available price for the contract: the
// bid/ask mid when both sides are live, otherwise the last trade. When no
// priced snapshot exists yet, it joins the stream as a temporary
// subscriber, waits for the first priced tick, and leaves again.
func (m *Manager) GetCurrentPrice(ctx context.Context, contract model.Contract) (float64, error) {
	if snap, err := m.GetSnapshot(contract); err == nil && snap.HasPrice() {
		return snap.Mid(), nil
	}

	first := make(chan float64, 1)
	var once sync.Once
	requestID, err := m.Subscribe(contract, func(_ string, snap model.Snapshot) {
		if snap.HasPrice() {
			once.Do(func() { first <- snap.Mid() })
		}
	})
	if err != nil {
		return 0, err
	}
	defer func() { _ = m.Unsubscribe(requestID) }()

	timer := time.NewTimer(m.priceWait)
	defer timer.Stop()
	select {
	case p := <-first:
		return p, nil
	case <-ctx.Done():
		return 0, errors.Wrap(ctx.Err(), "current price").With("symbol", contract.LocalSymbol())
	case <-timer.C:
		return 0, errors.Wrap(exception.ErrPriceUnavailable, "no tick").With("symbol", contract.LocalSymbol())
	}
}

// GetHistoricalBars fetches a finite bar series and blocks until the
// series completes, the context ends, or the configured timeout fires.
func (m *Manager) GetHistoricalBars(ctx context.Context, contract model.Contract, duration, barSize, whatToShow string, useRTH bool) ([]model.HistoricalBar, error) {
	if contract.Symbol == "" {
		return nil, exception.ErrEmptySymbol
	}
	if !m.gw.IsConnected() {
		return nil, exception.ErrNotConnected
	}

	requestID := m.reqIDs.Next()
	req := &historicalRequest{done: make(chan historicalResult, 1)}

	m.mu.Lock()
	m.pending[requestID] = req
	m.mu.Unlock()

	if err := m.gw.Send(codec.EncodeHistoricalData(schema.HistoricalDataRequest{
		RequestID:  requestID,
		Contract:   contract.Spec(),
		Duration:   duration,
		BarSize:    barSize,
		WhatToShow: whatToShow,
		UseRTH:     useRTH,
	})); err != nil {
		m.dropPending(requestID)
		return nil, errors.Wrap(err, "request historical data").With("symbol", contract.LocalSymbol())
	}

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case res := <-req.done:
		return res.bars, res.err
	case <-ctx.Done():
		m.dropPending(requestID)
		return nil, errors.Wrap(ctx.Err(), "historical data").With("reqId", requestID)
	case <-timer.C:
		m.dropPending(requestID)
		return nil, errors.Wrap(exception.ErrHistoricalDataTimeout, "historical data").With("reqId", requestID)
	}
}

// dropPending forgets a historical request so late bars are ignored.
func (m *Manager) dropPending(requestID int64) {
	m.mu.Lock()
	delete(m.pending, requestID)
	m.mu.Unlock()
}

// ApplyTick mutates the owning subscription's snapshot. Returns false for
// unknown request ids, e.g. ticks arriving after an unsubscribe.
func (m *Manager) ApplyTick(ev schema.Tick) bool {
	m.mu.Lock()
	sub, ok := m.byWire[ev.RequestID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	applyTick(&sub.snapshot, ev)
	symbol := sub.contract.LocalSymbol()
	snap := sub.snapshot
	cbs := make([]Callback, 0, len(sub.subscribers))
	for _, cb := range sub.subscribers {
		if cb != nil {
			cbs = append(cbs, cb)
		}
	}
	m.mu.Unlock()

	for _, cb := range cbs {
		cb(symbol, snap)
	}
	return true
}

// ApplyHistoricalBar buffers one bar of a pending series.
func (m *Manager) ApplyHistoricalBar(ev schema.HistoricalBar) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.pending[ev.RequestID]
	if !ok {
		return false
	}
	req.bars = append(req.bars, model.HistoricalBar{
		Time:       time.Unix(ev.Time, 0).UTC(),
		Open:       ev.Open,
		High:       ev.High,
		Low:        ev.Low,
		Close:      ev.Close,
		Volume:     ev.Volume,
		VWAP:       ev.VWAP,
		TradeCount: ev.TradeCount,
	})
	return true
}

// ApplyHistoricalEnd completes a pending series and wakes its caller. A
// series that ended without a single bar resolves as an error so callers
// always get a non-empty slice or a reason.
func (m *Manager) ApplyHistoricalEnd(ev schema.HistoricalEnd) bool {
	m.mu.Lock()
	req, ok := m.pending[ev.RequestID]
	if ok {
		delete(m.pending, ev.RequestID)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	res := historicalResult{bars: req.bars}
	if len(req.bars) == 0 {
		res.err = errors.Wrap(exception.ErrHistoricalDataEmpty, "historical data").With("reqId", ev.RequestID)
	}
	req.done <- res
	return true
}

// FailRequest resolves a pending historical request with the gateway's
// error, or acknowledges a farm notice against a live subscription.
func (m *Manager) FailRequest(requestID int64, code int, msg string) bool {
	m.mu.Lock()
	req, pending := m.pending[requestID]
	if pending {
		delete(m.pending, requestID)
	}
	_, subscribed := m.byWire[requestID]
	m.mu.Unlock()

	if pending {
		req.done <- historicalResult{
			err: errors.Wrap(exception.ErrHistoricalDataRejected, msg).With("code", code),
		}
		return true
	}
	if subscribed {
		logs.Warnf("market data notice on live subscription, reqId: %d, code: %d, msg: %s", requestID, code, msg)
		return true
	}
	return false
}

// OnDisconnect fails every pending historical request. Subscriptions are
// kept so ResubscribeAll can restore them once the session is back.
func (m *Manager) OnDisconnect(err error) {
	m.mu.Lock()
	dropped := m.pending
	m.pending = make(map[int64]*historicalRequest)
	m.mu.Unlock()

	for id, req := range dropped {
		req.done <- historicalResult{
			err: errors.Wrap(exception.ErrNotConnected, "connection lost").With("reqId", id),
		}
	}
}

// ResubscribeAll re-sends every live subscription, used after a reconnect.
func (m *Manager) ResubscribeAll() {
	m.mu.Lock()
	subs := make([]*subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		subs = append(subs, sub)
	}
	m.mu.Unlock()

	for _, sub := range subs {
		err := m.gw.Send(codec.EncodeSubscribeMarketData(schema.SubscribeMarketDataRequest{
			RequestID: sub.requestID,
			Contract:  sub.contract.Spec(),
		}))
		if err != nil {
			logs.Warnf("resubscribe failed, symbol: %s, err: %+v", sub.contract.LocalSymbol(), err)
		}
	}
}

// ListSubscriptions returns the locally subscribed contracts.
func (m *Manager) ListSubscriptions() []model.Contract {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Contract, 0, len(m.subs))
	for _, sub := range m.subs {
		out = append(out, sub.contract)
	}
	return out
}

func applyTick(snap *model.Snapshot, ev schema.Tick) {
	switch ev.Field {
	case schema.TickBidPrice:
		snap.BidPrice = ev.Value
	case schema.TickBidSize:
		snap.BidSize = ev.Value
	case schema.TickAskPrice:
		snap.AskPrice = ev.Value
	case schema.TickAskSize:
		snap.AskSize = ev.Value
	case schema.TickLastPrice:
		snap.LastPrice = ev.Value
	case schema.TickLastSize:
		snap.LastSize = ev.Value
	case schema.TickHigh:
		snap.High = ev.Value
	case schema.TickLow:
		snap.Low = ev.Value
	case schema.TickClose:
		snap.Close = ev.Value
	case schema.TickVolume:
		snap.Volume = ev.Value
	}
	snap.UpdatedAt = time.Now().UTC()
}
