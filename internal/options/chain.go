package options

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/contract"
	"main/internal/marketdata"
	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/exception"
)

// MarketData is the quoting surface the engine needs from the market data
// manager.
type MarketData interface {
	Subscribe(c model.Contract, cb marketdata.Callback) (int64, error)
	Unsubscribe(requestID int64) error
	GetSnapshot(c model.Contract) (model.Snapshot, error)
	GetCurrentPrice(ctx context.Context, c model.Contract) (float64, error)
}

// Config tunes chain construction.
type Config struct {
	// StrikesPerSide is the number of strikes above and below the money.
	StrikesPerSide int
	// StrikeStep is the ladder increment in price units.
	StrikeStep float64
	// RiskFreeRate feeds the Black-Scholes greeks.
	RiskFreeRate float64
	// QuoteWait bounds how long a chain build waits for quotes to arrive.
	QuoteWait time.Duration
}

func (c *Config) defaults() {
	if c.StrikesPerSide <= 0 {
		c.StrikesPerSide = 5
	}
	if c.StrikeStep <= 0 {
		c.StrikeStep = 5
	}
	if c.QuoteWait <= 0 {
		c.QuoteWait = 2 * time.Second
	}
}

// Engine builds option chains and composes option orders.
type Engine struct {
	md       MarketData
	resolver *contract.Resolver
	orders   OrderPlacer
	cfg      Config
	now      func() time.Time
}

// NewEngine builds an options engine.
func NewEngine(md MarketData, resolver *contract.Resolver, orders OrderPlacer, cfg Config) *Engine {
	cfg.defaults()
	return &Engine{
		md:       md,
		resolver: resolver,
		orders:   orders,
		cfg:      cfg,
		now:      time.Now,
	}
}

// GetOptionChain quotes the strike ladder around the underlying's current
// price for one expiry. A strike whose quotes never arrive is omitted
// rather than failing the whole chain.
func (e *Engine) GetOptionChain(ctx context.Context, symbol string, expiry time.Time) (model.OptionChain, error) {
	underlying, err := e.resolver.ResolveStock(symbol, "", "")
	if err != nil {
		return model.OptionChain{}, err
	}

	price, err := e.md.GetCurrentPrice(ctx, underlying)
	if err != nil {
		return model.OptionChain{}, errors.Wrap(err, "underlying price").With("symbol", underlying.Symbol)
	}

	type pair struct {
		strike float64
		call   model.Contract
		put    model.Contract
	}
	strikes := ladder(price, e.cfg.StrikeStep, e.cfg.StrikesPerSide)
	pairs := make([]pair, 0, len(strikes))
	legIDs := make([]int64, 0, 2*len(strikes))
	w := newQuoteWaiter()
	for _, strike := range strikes {
		call, err := e.resolver.ResolveOption(underlying.Symbol, expiry, strike, enum.OptionRightCall, "", "")
		if err != nil {
			return model.OptionChain{}, err
		}
		put, err := e.resolver.ResolveOption(underlying.Symbol, expiry, strike, enum.OptionRightPut, "", "")
		if err != nil {
			return model.OptionChain{}, err
		}
		w.expect(call.LocalSymbol())
		callID, err := e.md.Subscribe(call, w.callback(call.LocalSymbol()))
		if err != nil {
			logs.Warnf("skip strike, subscribe failed, symbol: %s, err: %+v", call.LocalSymbol(), err)
			w.settle(call.LocalSymbol())
			continue
		}
		w.expect(put.LocalSymbol())
		putID, err := e.md.Subscribe(put, w.callback(put.LocalSymbol()))
		if err != nil {
			logs.Warnf("skip strike, subscribe failed, symbol: %s, err: %+v", put.LocalSymbol(), err)
			_ = e.md.Unsubscribe(callID)
			w.settle(call.LocalSymbol())
			w.settle(put.LocalSymbol())
			continue
		}
		legIDs = append(legIDs, callID, putID)
		pairs = append(pairs, pair{strike: strike, call: call, put: put})
	}
	defer func() {
		for _, id := range legIDs {
			_ = e.md.Unsubscribe(id)
		}
	}()

	// Legs whose snapshot is already priced will not necessarily tick
	// again; settle them up front.
	for _, p := range pairs {
		if e.hasQuote(p.call) {
			w.settle(p.call.LocalSymbol())
		}
		if e.hasQuote(p.put) {
			w.settle(p.put.LocalSymbol())
		}
	}
	w.seal()
	w.wait(ctx, e.cfg.QuoteWait)

	chain := model.OptionChain{
		Underlying:      underlying.Symbol,
		UnderlyingPrice: price,
		Expiry:          expiry,
		BuiltAt:         e.now().UTC(),
	}
	for _, p := range pairs {
		if quote, ok := e.quote(p.call, price); ok {
			chain.Calls = append(chain.Calls, quote)
		}
		if quote, ok := e.quote(p.put, price); ok {
			chain.Puts = append(chain.Puts, quote)
		}
	}
	if len(chain.Calls) == 0 && len(chain.Puts) == 0 {
		return model.OptionChain{}, errors.Wrap(exception.ErrEmptyChain, symbol)
	}
	return chain, nil
}

// quoteWaiter tracks which legs still owe a first quote. Tick callbacks
// settle legs as prices arrive; wait returns as soon as every expected
// leg is settled, without polling.
type quoteWaiter struct {
	mu      sync.Mutex
	pending map[string]struct{}
	sealed  bool
	done    chan struct{}
}

func newQuoteWaiter() *quoteWaiter {
	return &quoteWaiter{
		pending: make(map[string]struct{}),
		done:    make(chan struct{}),
	}
}

func (w *quoteWaiter) expect(symbol string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[symbol] = struct{}{}
}

func (w *quoteWaiter) settle(symbol string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.pending, symbol)
	w.maybeClose()
}

// seal marks the expectation set complete. Without sealing, an early
// burst of quotes could release the wait while later legs are still
// being subscribed.
func (w *quoteWaiter) seal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sealed = true
	w.maybeClose()
}

// maybeClose runs with w.mu held.
func (w *quoteWaiter) maybeClose() {
	if !w.sealed || len(w.pending) != 0 {
		return
	}
	select {
	case <-w.done:
	default:
		close(w.done)
	}
}

func (w *quoteWaiter) callback(symbol string) marketdata.Callback {
	return func(_ string, snap model.Snapshot) {
		if snap.HasPrice() {
			w.settle(symbol)
		}
	}
}

func (w *quoteWaiter) wait(ctx context.Context, budget time.Duration) {
	timer := time.NewTimer(budget)
	defer timer.Stop()
	select {
	case <-w.done:
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (e *Engine) hasQuote(c model.Contract) bool {
	snap, err := e.md.GetSnapshot(c)
	return err == nil && snap.HasPrice()
}

// quote assembles one OptionQuote from the live snapshot, computing
// implied volatility and greeks from the mid price when possible.
func (e *Engine) quote(c model.Contract, underlying float64) (model.OptionQuote, bool) {
	snap, err := e.md.GetSnapshot(c)
	if err != nil || !snap.HasPrice() {
		return model.OptionQuote{}, false
	}

	q := model.OptionQuote{
		Contract:  c,
		BidPrice:  snap.BidPrice,
		AskPrice:  snap.AskPrice,
		LastPrice: snap.LastPrice,
		Volume:    snap.Volume,
	}

	years := YearsToExpiry(c.Expiry, e.now())
	iv, err := ImpliedVolatility(c.Right, underlying, c.Strike, e.cfg.RiskFreeRate, years, snap.Mid())
	if err != nil {
		// Quotes pinned at intrinsic value have no finite implied vol;
		// keep the market fields and leave the analytics zeroed.
		return q, true
	}
	q.ImpliedVol = iv
	if greeks, err := CalculateGreeks(c.Right, underlying, c.Strike, e.cfg.RiskFreeRate, iv, years); err == nil {
		q.Greeks = greeks
	}
	return q, true
}

// ladder builds the strike grid centered on the spot price, snapped to the
// step. Strikes at or below zero are dropped.
func ladder(price, step float64, perSide int) []float64 {
	center := math.Round(price/step) * step
	out := make([]float64, 0, 2*perSide+1)
	for i := -perSide; i <= perSide; i++ {
		strike := center + float64(i)*step
		if strike > 0 {
			out = append(out, strike)
		}
	}
	return out
}
