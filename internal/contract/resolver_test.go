package contract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model/enum"
	"main/pkg/exception"
)

func TestResolveStockPlainSymbol(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	c, err := r.ResolveStock("aapl", "", "")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", c.Symbol)
	assert.Equal(t, enum.SecurityTypeStock, c.SecurityType)
	assert.Equal(t, "SMART", c.Exchange)
	assert.Equal(t, "USD", c.Currency)
}

func TestResolveStockSuffixConventions(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	tests := []struct {
		symbol   string
		base     string
		exchange string
		currency string
	}{
		{"2330.TW", "2330", "TWSE", "TWD"},
		{"6488.TWO", "6488", "TPEX", "TWD"},
		{"7203.T", "7203", "TSEJ", "JPY"},
		{"0700.HK", "0700", "SEHK", "HKD"},
		{"VOD.L", "VOD", "LSE", "GBP"},
	}
	for _, tt := range tests {
		c, err := r.ResolveStock(tt.symbol, "", "")
		require.NoError(t, err, tt.symbol)
		assert.Equal(t, tt.base, c.Symbol)
		assert.Equal(t, tt.exchange, c.Exchange)
		assert.Equal(t, tt.currency, c.Currency)
	}
}

func TestResolveStockExplicitVenueWins(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	c, err := r.ResolveStock("2330.TW", "OVERNIGHT", "")
	require.NoError(t, err)
	assert.Equal(t, "OVERNIGHT", c.Exchange)
	assert.Equal(t, "TWD", c.Currency)
}

func TestResolveStockUnsupportedSuffix(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	for _, symbol := range []string{"AAPL.XX", ".TW", "AAPL.", ""} {
		_, err := r.ResolveStock(symbol, "", "")
		require.Error(t, err, symbol)
	}
	_, err := r.ResolveStock("AAPL.XX", "", "")
	require.ErrorIs(t, err, exception.ErrUnsupportedSymbolFormat)
}

func TestResolveStockMemoized(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	a, err := r.ResolveStock("AAPL", "", "")
	require.NoError(t, err)
	b, err := r.ResolveStock("AAPL", "", "")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, r.CacheSize())

	_, err = r.ResolveStock("AAPL", "NYSE", "")
	require.NoError(t, err)
	assert.Equal(t, 2, r.CacheSize(), "different venue is a different contract")
}

func TestResolveOption(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	expiry := time.Now().UTC().AddDate(0, 3, 0)

	c, err := r.ResolveOption("AAPL", expiry, 150, enum.OptionRightCall, "", "")
	require.NoError(t, err)
	assert.Equal(t, enum.SecurityTypeOption, c.SecurityType)
	assert.Equal(t, 100, c.Multiplier)
	assert.Equal(t, enum.OptionRightCall, c.Right)
	assert.InDelta(t, 150, c.Strike, 1e-9)

	_, err = r.ResolveOption("AAPL", expiry, 0, enum.OptionRightCall, "", "")
	require.ErrorIs(t, err, exception.ErrInvalidOptionParameters)

	_, err = r.ResolveOption("AAPL", expiry, 150, 0, "", "")
	require.ErrorIs(t, err, exception.ErrInvalidOptionParameters)

	_, err = r.ResolveOption("AAPL", time.Time{}, 150, enum.OptionRightCall, "", "")
	require.ErrorIs(t, err, exception.ErrInvalidOptionParameters)

	past := time.Now().UTC().AddDate(0, 0, -2)
	_, err = r.ResolveOption("AAPL", past, 150, enum.OptionRightCall, "", "")
	require.ErrorIs(t, err, exception.ErrInvalidOptionParameters)
}

func TestResolveFuture(t *testing.T) {
	t.Parallel()

	r := NewResolver()
	expiry := time.Date(2026, 12, 18, 0, 0, 0, 0, time.UTC)

	c, err := r.ResolveFuture("ES", expiry, "CME", "")
	require.NoError(t, err)
	assert.Equal(t, enum.SecurityTypeFuture, c.SecurityType)
	assert.Equal(t, "CME", c.Exchange)
	assert.Equal(t, "USD", c.Currency)

	_, err = r.ResolveFuture("ES", expiry, "", "")
	require.ErrorIs(t, err, exception.ErrInvalidFutureParameters)

	_, err = r.ResolveFuture("ES", time.Time{}, "CME", "")
	require.ErrorIs(t, err, exception.ErrInvalidFutureParameters)
}
