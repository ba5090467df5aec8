package exception

import "errors"

var (
	ErrOptionExpired        = errors.New("option: expired")
	ErrInvalidVolatility    = errors.New("option: invalid volatility")
	ErrUnderlyingPrice      = errors.New("option: invalid underlying price")
	ErrEmptyChain           = errors.New("option: empty chain")
	ErrUnsupportedStrategy  = errors.New("option: unsupported strategy")
	ErrStrategyLegFailed    = errors.New("option: strategy leg failed")
	ErrImpliedVolNoSolution = errors.New("option: implied volatility does not converge")
)
