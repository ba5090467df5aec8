package model

import "time"

// Greeks are the Black-Scholes sensitivities of an option price.
// Theta is per calendar day; vega and rho are per full point of
// volatility and rate respectively.
type Greeks struct {
	Price float64
	Delta float64
	Gamma float64
	Theta float64
	Vega  float64
	Rho   float64
}

// OptionQuote couples a resolved option contract with its market snapshot
// and computed analytics. Replaced wholesale on each chain refresh.
type OptionQuote struct {
	Contract     Contract
	BidPrice     float64
	AskPrice     float64
	LastPrice    float64
	Volume       float64
	OpenInterest float64
	ImpliedVol   float64
	Greeks       Greeks
}

// OptionChain is the quoted strike ladder for one underlying and expiry.
type OptionChain struct {
	Underlying      string
	UnderlyingPrice float64
	Expiry          time.Time
	Calls           []OptionQuote
	Puts            []OptionQuote
	BuiltAt         time.Time
}

// Position is the per-symbol net result of all executions this session.
type Position struct {
	Symbol   string
	Quantity float64
	AvgCost  float64
}
