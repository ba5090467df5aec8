// Package options prices option analytics and composes chains and
// multi-leg strategies on top of the market data and order managers.
package options

import (
	"math"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/exception"
)

const daysPerYear = 365.0

func normCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// YearsToExpiry measures the time value remaining in years.
func YearsToExpiry(expiry, now time.Time) float64 {
	return expiry.Sub(now).Hours() / 24 / daysPerYear
}

// CalculateGreeks prices an option and its sensitivities with closed-form
// Black-Scholes. Theta is per calendar day; vega and rho are per full
// point of volatility and rate. Pure, needs no connection.
func CalculateGreeks(right enum.OptionRight, underlying, strike, rate, sigma, years float64) (model.Greeks, error) {
	if years <= 0 {
		return model.Greeks{}, exception.ErrOptionExpired
	}
	if underlying <= 0 {
		return model.Greeks{}, errors.Wrap(exception.ErrUnderlyingPrice, "must be positive").With("underlying", underlying)
	}
	if strike <= 0 {
		return model.Greeks{}, errors.Wrap(exception.ErrInvalidOptionParameters, "strike must be positive").With("strike", strike)
	}
	if sigma <= 0 {
		return model.Greeks{}, errors.Wrap(exception.ErrInvalidVolatility, "sigma must be positive").With("sigma", sigma)
	}
	if !right.IsAvailable() {
		return model.Greeks{}, errors.Wrap(exception.ErrInvalidOptionParameters, "unknown right")
	}

	sqrtT := math.Sqrt(years)
	d1 := (math.Log(underlying/strike) + (rate+sigma*sigma/2)*years) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	discount := math.Exp(-rate * years)
	pdf := normPDF(d1)

	g := model.Greeks{
		Gamma: pdf / (underlying * sigma * sqrtT),
		Vega:  underlying * pdf * sqrtT,
	}

	switch right {
	case enum.OptionRightCall:
		g.Price = underlying*normCDF(d1) - strike*discount*normCDF(d2)
		g.Delta = normCDF(d1)
		g.Theta = (-underlying*pdf*sigma/(2*sqrtT) - rate*strike*discount*normCDF(d2)) / daysPerYear
		g.Rho = strike * years * discount * normCDF(d2)
	default:
		g.Price = strike*discount*normCDF(-d2) - underlying*normCDF(-d1)
		g.Delta = normCDF(d1) - 1
		g.Theta = (-underlying*pdf*sigma/(2*sqrtT) + rate*strike*discount*normCDF(-d2)) / daysPerYear
		g.Rho = -strike * years * discount * normCDF(-d2)
	}

	if hasNonFinite(g) {
		return model.Greeks{}, errors.Wrap(exception.ErrInvalidOptionParameters, "non-finite result")
	}
	return g, nil
}

// ContractGreeks prices a resolved option contract as of now.
func ContractGreeks(c model.Contract, underlying, rate, sigma float64, now time.Time) (model.Greeks, error) {
	if c.SecurityType != enum.SecurityTypeOption {
		return model.Greeks{}, errors.Wrap(exception.ErrInvalidOptionParameters, "not an option contract").With("symbol", c.Symbol)
	}
	return CalculateGreeks(c.Right, underlying, c.Strike, rate, sigma, YearsToExpiry(c.Expiry, now))
}

const (
	ivFloor     = 1e-4
	ivCeiling   = 5.0
	ivTolerance = 1e-6
	ivMaxSteps  = 100
)

// ImpliedVolatility inverts Black-Scholes by bisection on sigma. The
// target price must sit between the option's intrinsic value and its
// price at the volatility ceiling, otherwise there is no solution.
func ImpliedVolatility(right enum.OptionRight, underlying, strike, rate, years, price float64) (float64, error) {
	if years <= 0 {
		return 0, exception.ErrOptionExpired
	}
	if price <= 0 {
		return 0, errors.Wrap(exception.ErrImpliedVolNoSolution, "price must be positive").With("price", price)
	}

	lo, hi := ivFloor, ivCeiling
	for i := 0; i < ivMaxSteps; i++ {
		mid := (lo + hi) / 2
		g, err := CalculateGreeks(right, underlying, strike, rate, mid, years)
		if err != nil {
			return 0, err
		}
		diff := g.Price - price
		if math.Abs(diff) < ivTolerance {
			return mid, nil
		}
		if diff > 0 {
			hi = mid
		} else {
			lo = mid
		}
	}

	if hi >= ivCeiling-ivTolerance || lo <= ivFloor+ivTolerance {
		return 0, errors.Wrap(exception.ErrImpliedVolNoSolution, "price outside model bounds").With("price", price)
	}
	return (lo + hi) / 2, nil
}

func hasNonFinite(g model.Greeks) bool {
	for _, v := range []float64{g.Price, g.Delta, g.Gamma, g.Theta, g.Vega, g.Rho} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
