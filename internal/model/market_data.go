package model

import "time"

// Snapshot is the latest market picture for one subscription. Tick events
// mutate it in place under the market data manager's lock.
type Snapshot struct {
	BidPrice  float64
	BidSize   float64
	AskPrice  float64
	AskSize   float64
	LastPrice float64
	LastSize  float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	UpdatedAt time.Time
}

// HasPrice reports whether any tradable price has arrived yet.
func (s Snapshot) HasPrice() bool {
	return s.LastPrice > 0 || (s.BidPrice > 0 && s.AskPrice > 0)
}

// Mid returns the best available price: mid of bid/ask, falling back to
// last, then previous close.
func (s Snapshot) Mid() float64 {
	if s.BidPrice > 0 && s.AskPrice > 0 {
		return (s.BidPrice + s.AskPrice) / 2
	}
	if s.LastPrice > 0 {
		return s.LastPrice
	}
	return s.Close
}

// HistoricalBar is one immutable OHLCV bar of a historical series.
type HistoricalBar struct {
	Time       time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	VWAP       float64
	TradeCount int
}
