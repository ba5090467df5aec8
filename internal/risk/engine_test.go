package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/exception"
)

type staticPrices map[string]float64

func (p staticPrices) GetSnapshot(c model.Contract) (model.Snapshot, error) {
	if v, ok := p[c.Symbol]; ok {
		return model.Snapshot{BidPrice: v, AskPrice: v, LastPrice: v}, nil
	}
	return model.Snapshot{}, exception.ErrSubscriptionNotFound
}

type staticPositions map[string]float64

func (p staticPositions) Position(symbol string) model.Position {
	return model.Position{Symbol: symbol, Quantity: p[symbol]}
}

func marketBuy(symbol string, qty float64) model.Order {
	return model.Order{
		Contract: model.Contract{Symbol: symbol, SecurityType: enum.SecurityTypeStock},
		Side:     enum.OrderSideBuy,
		Quantity: qty,
		Kind:     enum.OrderKindMarket,
	}
}

func TestKillSwitch(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{KillSwitch: true}, nil, nil)
	require.ErrorIs(t, e.Check(marketBuy("AAPL", 1)), exception.ErrOrderRiskRejected)
}

func TestMaxOrderQty(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{MaxOrderQty: 100}, nil, nil)
	require.NoError(t, e.Check(marketBuy("AAPL", 100)))
	require.ErrorIs(t, e.Check(marketBuy("AAPL", 101)), exception.ErrOrderRiskRejected)
}

func TestMaxNotional(t *testing.T) {
	t.Parallel()

	prices := staticPrices{"AAPL": 150}
	e := NewEngine(Config{MaxOrderNotional: 20000}, prices, nil)

	require.NoError(t, e.Check(marketBuy("AAPL", 100)))
	require.ErrorIs(t, e.Check(marketBuy("AAPL", 200)), exception.ErrOrderRiskRejected)

	// Limit price drives the notional when present.
	ord := marketBuy("AAPL", 100)
	ord.Kind = enum.OrderKindLimit
	ord.LimitPrice = 250
	require.ErrorIs(t, e.Check(ord), exception.ErrOrderRiskRejected)
}

func TestPriceDeviationBand(t *testing.T) {
	t.Parallel()

	prices := staticPrices{"AAPL": 150}
	e := NewEngine(Config{MaxPriceDeviationBps: 200}, prices, nil)

	ord := marketBuy("AAPL", 10)
	ord.Kind = enum.OrderKindLimit
	ord.LimitPrice = 151 // 66 bps away
	require.NoError(t, e.Check(ord))

	ord.LimitPrice = 160 // 666 bps away
	require.ErrorIs(t, e.Check(ord), exception.ErrOrderRiskRejected)

	// No reference price means no band to enforce.
	dark := marketBuy("ZZZZ", 10)
	dark.Kind = enum.OrderKindLimit
	dark.LimitPrice = 1
	require.NoError(t, e.Check(dark))
}

func TestPositionLimit(t *testing.T) {
	t.Parallel()

	positions := staticPositions{"AAPL": 90}
	e := NewEngine(Config{MaxPosition: 100}, nil, positions)

	require.NoError(t, e.Check(marketBuy("AAPL", 10)))
	require.ErrorIs(t, e.Check(marketBuy("AAPL", 11)), exception.ErrOrderRiskRejected)

	// Selling reduces exposure, so it passes.
	sell := marketBuy("AAPL", 50)
	sell.Side = enum.OrderSideSell
	require.NoError(t, e.Check(sell))
}

func TestOrderRateLimit(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{OrderRateLimit: 3, OrderRateWindow: time.Minute}, nil, nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, e.Check(marketBuy("AAPL", 1)))
	}
	require.ErrorIs(t, e.Check(marketBuy("AAPL", 1)), exception.ErrOrderRiskRejected)
}

func TestZeroConfigAllowsEverything(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{}, nil, nil)
	assert.NoError(t, e.Check(marketBuy("AAPL", 1e9)))
}
