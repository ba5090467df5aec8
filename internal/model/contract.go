package model

import (
	"strconv"
	"time"

	"main/internal/model/enum"
)

// Contract is an immutable description of a tradable instrument. Build it
// through the contract resolver; never mutate it after creation.
type Contract struct {
	Symbol       string
	SecurityType enum.SecurityType
	Exchange     string
	Currency     string

	// Derivative fields, zero-valued for stocks.
	Expiry     time.Time
	Strike     float64
	Right      enum.OptionRight
	Multiplier int
}

// LocalSymbol renders the contract as a single symbol string, e.g.
// "AAPL", "AAPL 20260116 C 150" or "ESZ6 FUT".
func (c Contract) LocalSymbol() string {
	switch c.SecurityType {
	case enum.SecurityTypeOption:
		return c.Symbol + " " + c.Expiry.Format("20060102") + " " + c.Right.String() + " " +
			strconv.FormatFloat(c.Strike, 'f', -1, 64)
	case enum.SecurityTypeFuture:
		return c.Symbol + " " + c.Expiry.Format("200601") + " FUT"
	default:
		return c.Symbol
	}
}
