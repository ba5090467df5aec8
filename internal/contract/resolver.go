// Package contract builds and caches immutable instrument descriptors.
package contract

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/exception"
)

// market maps a symbol suffix convention onto its venue.
type market struct {
	exchange string
	currency string
}

var suffixMarkets = map[string]market{
	".TW":  {exchange: "TWSE", currency: "TWD"},
	".TWO": {exchange: "TPEX", currency: "TWD"},
	".T":   {exchange: "TSEJ", currency: "JPY"},
	".HK":  {exchange: "SEHK", currency: "HKD"},
	".L":   {exchange: "LSE", currency: "GBP"},
}

// Resolver builds contracts and memoizes them by full tuple, so repeated
// lookups hand back the same immutable value.
type Resolver struct {
	now func() time.Time

	mu    sync.RWMutex
	cache map[string]model.Contract
}

// NewResolver builds a resolver.
func NewResolver() *Resolver {
	return &Resolver{
		now:   time.Now,
		cache: make(map[string]model.Contract),
	}
}

// ResolveStock builds a stock contract. Exchange and currency default from
// the symbol's suffix convention, e.g. "2330.TW" trades on TWSE in TWD; a
// plain symbol routes to SMART in USD. Explicit arguments always win.
func (r *Resolver) ResolveStock(symbol, exchange, currency string) (model.Contract, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return model.Contract{}, exception.ErrEmptySymbol
	}

	base, venue, err := splitSuffix(symbol)
	if err != nil {
		return model.Contract{}, err
	}
	if exchange == "" {
		exchange = venue.exchange
	}
	if currency == "" {
		currency = venue.currency
	}

	key := cacheKey("STK", base, exchange, currency, "", 0, 0)
	if cached, ok := r.lookup(key); ok {
		return cached, nil
	}

	c := model.Contract{
		Symbol:       base,
		SecurityType: enum.SecurityTypeStock,
		Exchange:     exchange,
		Currency:     currency,
	}
	r.store(key, c)
	return c, nil
}

// ResolveOption builds an option contract. The expiry must be today or
// later, the strike positive, and the right a valid call/put.
func (r *Resolver) ResolveOption(symbol string, expiry time.Time, strike float64, right enum.OptionRight, exchange, currency string) (model.Contract, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return model.Contract{}, exception.ErrEmptySymbol
	}
	if strike <= 0 {
		return model.Contract{}, errors.Wrap(exception.ErrInvalidOptionParameters, "strike must be positive").With("strike", strike)
	}
	if !right.IsAvailable() {
		return model.Contract{}, errors.Wrap(exception.ErrInvalidOptionParameters, "unknown right")
	}
	if expiry.IsZero() {
		return model.Contract{}, errors.Wrap(exception.ErrInvalidOptionParameters, "missing expiry")
	}
	today := r.now().UTC().Truncate(24 * time.Hour)
	if expiry.Before(today) {
		return model.Contract{}, errors.Wrap(exception.ErrInvalidOptionParameters, "expiry in the past").With("expiry", expiry.Format("20060102"))
	}
	if exchange == "" {
		exchange = "SMART"
	}
	if currency == "" {
		currency = "USD"
	}

	key := cacheKey("OPT", symbol, exchange, currency, expiry.Format("20060102")+right.String(), strike, 100)
	if cached, ok := r.lookup(key); ok {
		return cached, nil
	}

	c := model.Contract{
		Symbol:       symbol,
		SecurityType: enum.SecurityTypeOption,
		Exchange:     exchange,
		Currency:     currency,
		Expiry:       expiry,
		Strike:       strike,
		Right:        right,
		Multiplier:   100,
	}
	r.store(key, c)
	return c, nil
}

// ResolveFuture builds a futures contract.
func (r *Resolver) ResolveFuture(symbol string, expiry time.Time, exchange, currency string) (model.Contract, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return model.Contract{}, exception.ErrEmptySymbol
	}
	if expiry.IsZero() {
		return model.Contract{}, errors.Wrap(exception.ErrInvalidFutureParameters, "missing expiry")
	}
	if exchange == "" {
		return model.Contract{}, errors.Wrap(exception.ErrInvalidFutureParameters, "missing exchange")
	}
	if currency == "" {
		currency = "USD"
	}

	key := cacheKey("FUT", symbol, exchange, currency, expiry.Format("200601"), 0, 0)
	if cached, ok := r.lookup(key); ok {
		return cached, nil
	}

	c := model.Contract{
		Symbol:       symbol,
		SecurityType: enum.SecurityTypeFuture,
		Exchange:     exchange,
		Currency:     currency,
		Expiry:       expiry,
	}
	r.store(key, c)
	return c, nil
}

// CacheSize reports the number of memoized contracts.
func (r *Resolver) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *Resolver) lookup(key string) (model.Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cache[key]
	return c, ok
}

func (r *Resolver) store(key string, c model.Contract) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = c
}

// splitSuffix peels a venue suffix off the symbol. A dotted symbol with an
// unknown suffix is an error rather than a silent SMART route.
func splitSuffix(symbol string) (string, market, error) {
	idx := strings.LastIndexByte(symbol, '.')
	if idx < 0 {
		return symbol, market{exchange: "SMART", currency: "USD"}, nil
	}
	if idx == 0 || idx == len(symbol)-1 {
		return "", market{}, errors.Wrap(exception.ErrUnsupportedSymbolFormat, symbol)
	}
	venue, ok := suffixMarkets[symbol[idx:]]
	if !ok {
		return "", market{}, errors.Wrap(exception.ErrUnsupportedSymbolFormat, symbol)
	}
	return symbol[:idx], venue, nil
}

func cacheKey(secType, symbol, exchange, currency, derivative string, strike float64, multiplier int) string {
	var b strings.Builder
	b.WriteString(secType)
	b.WriteByte('|')
	b.WriteString(symbol)
	b.WriteByte('|')
	b.WriteString(exchange)
	b.WriteByte('|')
	b.WriteString(currency)
	b.WriteByte('|')
	b.WriteString(derivative)
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(strike, 'f', -1, 64))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(multiplier))
	return b.String()
}
