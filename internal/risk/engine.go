// Package risk holds the pre-trade checks applied to every order before
// it reaches the wire.
package risk

import (
	"math"
	"sync"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/exception"
)

// Config defines simple risk limits. Zero-valued limits are disabled.
type Config struct {
	KillSwitch           bool          `json:"killSwitch"`
	MaxOrderQty          float64       `json:"maxOrderQty"`
	MaxOrderNotional     float64       `json:"maxOrderNotional"`
	MaxPosition          float64       `json:"maxPosition"`
	OrderRateLimit       int           `json:"orderRateLimit"`
	OrderRateWindow      time.Duration `json:"orderRateWindow"`
	MaxPriceDeviationBps float64       `json:"maxPriceDeviationBps"`
}

// PriceSource supplies a reference price for the deviation band check.
// Checks run inline on the order path, so only the already-known snapshot
// is consulted and a missing price disables the band.
type PriceSource interface {
	GetSnapshot(c model.Contract) (model.Snapshot, error)
}

// PositionSource supplies the current net position per symbol.
type PositionSource interface {
	Position(symbol string) model.Position
}

// Engine evaluates pre-trade checks. Prices and positions may be nil,
// disabling the checks that need them.
type Engine struct {
	cfg       Config
	prices    PriceSource
	positions PositionSource

	mu              sync.Mutex
	rateWindowStart time.Time
	rateCount       int
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config, prices PriceSource, positions PositionSource) *Engine {
	return &Engine{cfg: cfg, prices: prices, positions: positions}
}

// Check implements the order manager's pre-trade hook. A nil return lets
// the order through.
func (e *Engine) Check(ord model.Order) error {
	if e.cfg.KillSwitch {
		return errors.Wrap(exception.ErrOrderRiskRejected, "kill switch engaged")
	}

	if err := e.checkRate(); err != nil {
		return err
	}

	if e.cfg.MaxOrderQty > 0 && ord.Quantity > e.cfg.MaxOrderQty {
		return errors.Wrap(exception.ErrOrderRiskRejected, "quantity above limit").With("qty", ord.Quantity)
	}

	price := ord.LimitPrice
	var ref float64
	if e.prices != nil {
		if snap, err := e.prices.GetSnapshot(ord.Contract); err == nil && snap.HasPrice() {
			ref = snap.Mid()
		}
	}
	if price == 0 {
		price = ref
	}

	if e.cfg.MaxPriceDeviationBps > 0 && ord.Kind.RequiresLimitPrice() && ref > 0 {
		deviation := math.Abs(ord.LimitPrice-ref) / ref * 10000
		if deviation > e.cfg.MaxPriceDeviationBps {
			return errors.Wrap(exception.ErrOrderRiskRejected, "limit price outside band").With("bps", deviation)
		}
	}

	if e.cfg.MaxOrderNotional > 0 && price > 0 {
		if notional := price * ord.Quantity; notional > e.cfg.MaxOrderNotional {
			return errors.Wrap(exception.ErrOrderRiskRejected, "notional above limit").With("notional", notional)
		}
	}

	if e.cfg.MaxPosition > 0 && e.positions != nil {
		pos := e.positions.Position(ord.Contract.Symbol).Quantity
		next := pos + signedQty(ord)
		if math.Abs(next) > e.cfg.MaxPosition {
			return errors.Wrap(exception.ErrOrderRiskRejected, "position limit").With("next", next)
		}
	}

	return nil
}

func (e *Engine) checkRate() error {
	if e.cfg.OrderRateLimit <= 0 || e.cfg.OrderRateWindow <= 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	if e.rateWindowStart.IsZero() || now.Sub(e.rateWindowStart) >= e.cfg.OrderRateWindow {
		e.rateWindowStart = now
		e.rateCount = 0
	}
	e.rateCount++
	if e.rateCount > e.cfg.OrderRateLimit {
		return errors.Wrap(exception.ErrOrderRiskRejected, "order rate limit").With("limit", e.cfg.OrderRateLimit)
	}
	return nil
}

func signedQty(ord model.Order) float64 {
	if ord.Side == enum.OrderSideSell {
		return -ord.Quantity
	}
	return ord.Quantity
}
