package sim

import (
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/chaos"
	"main/internal/codec"
	"main/internal/schema"
)

// priceWalk is a per-symbol random walk quoted with a fixed spread.
type priceWalk struct {
	mu     sync.Mutex
	rng    *rand.Rand
	price  float64
	spread float64
	size   float64
}

// newPriceWalk derives a stable base price from the symbol so repeated
// runs with the same seed quote the same levels.
func newPriceWalk(symbol string, seed int64) *priceWalk {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	base := 50.0 + float64(h.Sum32()%4000)/10.0
	return &priceWalk{
		rng:    rand.New(rand.NewSource(seed + int64(h.Sum32()))),
		price:  base,
		spread: base * 0.0005,
		size:   100,
	}
}

func (w *priceWalk) last() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.price
}

// step advances the walk one tick and returns the new quote levels.
func (w *priceWalk) step() (bid, ask, last, size float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.price += w.price * (w.rng.Float64() - 0.5) * 0.001
	if w.price < 0.01 {
		w.price = 0.01
	}
	return w.price - w.spread, w.price + w.spread, w.price, w.size * (0.5 + w.rng.Float64())
}

func (ss *session) walkFor(symbol string) *priceWalk {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	w, ok := ss.walks[symbol]
	if !ok {
		w = newPriceWalk(symbol, ss.srv.cfg.Seed)
		ss.walks[symbol] = w
	}
	return w
}

func (ss *session) handleSubscribe(req schema.SubscribeMarketDataRequest) {
	if req.Contract.Symbol == "" {
		ss.send(codec.EncodeServerError(schema.ServerError{
			RequestID: req.RequestID,
			Code:      200,
			Message:   "no security definition found",
		}))
		return
	}
	walk := ss.walkFor(req.Contract.Symbol)

	stop := make(chan struct{})
	ss.mu.Lock()
	if ss.closed {
		ss.mu.Unlock()
		return
	}
	if prev, ok := ss.subs[req.RequestID]; ok {
		close(prev)
	}
	ss.subs[req.RequestID] = stop
	ss.mu.Unlock()

	go ss.streamTicks(req.RequestID, walk, stop)
}

func (ss *session) streamTicks(requestID int64, walk *priceWalk, stop chan struct{}) {
	ticker := time.NewTicker(ss.srv.cfg.TickInterval)
	defer ticker.Stop()

	var engine *chaos.Engine
	if ss.srv.cfg.Chaos != nil {
		if e, err := chaos.NewEngine(*ss.srv.cfg.Chaos); err == nil {
			engine = e
		} else {
			logs.Warnf("chaos disabled, err: %+v", err)
		}
	}

	emit := func() {
		bid, ask, last, size := walk.step()
		ticks := []schema.Tick{
			{RequestID: requestID, Field: schema.TickBidPrice, Value: bid},
			{RequestID: requestID, Field: schema.TickAskPrice, Value: ask},
			{RequestID: requestID, Field: schema.TickLastPrice, Value: last},
			{RequestID: requestID, Field: schema.TickLastSize, Value: size},
		}
		for _, tick := range ticks {
			if engine == nil {
				ss.send(codec.EncodeTick(tick))
				continue
			}
			for _, out := range engine.Process(schema.Event{Kind: schema.EventTick, Tick: &tick}) {
				ss.send(codec.EncodeTick(*out.Tick))
			}
		}
	}

	emit()
	for {
		select {
		case <-stop:
			for _, out := range engine.Flush() {
				ss.send(codec.EncodeTick(*out.Tick))
			}
			return
		case <-ticker.C:
			emit()
		}
	}
}

func (ss *session) handleUnsubscribe(req schema.UnsubscribeMarketDataRequest) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if stop, ok := ss.subs[req.RequestID]; ok {
		close(stop)
		delete(ss.subs, req.RequestID)
	}
}

// handleHistorical replies with a walk-generated bar series followed by
// the end marker.
func (ss *session) handleHistorical(req schema.HistoricalDataRequest) {
	if req.Contract.Symbol == "" {
		ss.send(codec.EncodeServerError(schema.ServerError{
			RequestID: req.RequestID,
			Code:      162,
			Message:   "historical market data service error",
		}))
		return
	}
	walk := ss.walkFor(req.Contract.Symbol)
	count := ss.srv.cfg.HistoricalBars
	start := time.Now().UTC().Add(-time.Duration(count) * time.Minute)

	for i := 0; i < count; i++ {
		bid, ask, last, size := walk.step()
		open := bid
		high := ask
		low := bid
		if last > high {
			high = last
		}
		if last < low {
			low = last
		}
		ss.send(codec.EncodeHistoricalBar(schema.HistoricalBar{
			RequestID:  req.RequestID,
			Time:       start.Add(time.Duration(i) * time.Minute).Unix(),
			Open:       open,
			High:       high,
			Low:        low,
			Close:      last,
			Volume:     size * 10,
			VWAP:       (high + low + last) / 3,
			TradeCount: int(size),
		}))
	}
	ss.send(codec.EncodeHistoricalEnd(schema.HistoricalEnd{
		RequestID: req.RequestID,
		BarCount:  count,
	}))
}
