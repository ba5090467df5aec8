package options

import (
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/order"
	"main/pkg/exception"
)

// OrderPlacer is the submitting surface the engine needs from the order
// manager.
type OrderPlacer interface {
	PlaceOrder(ord model.Order, cb order.Callback) (string, error)
}

// StrategyLeg is one order of a multi-leg strategy.
type StrategyLeg struct {
	Contract   model.Contract
	Side       enum.OrderSide
	Quantity   float64
	Kind       enum.OrderKind
	LimitPrice float64
}

// StrategyResult reports the per-leg outcome of a strategy submission.
// Legs are submitted sequentially and best-effort: the first failed leg
// aborts the remainder, and already-placed legs are NOT rolled back.
// FailedLeg is -1 when every leg was placed.
type StrategyResult struct {
	Kind      enum.StrategyKind
	OrderIDs  []string
	FailedLeg int
}

// PlaceOptionOrder resolves nothing; the caller supplies a resolved option
// contract. It validates and submits a single-leg option order.
func (e *Engine) PlaceOptionOrder(c model.Contract, side enum.OrderSide, quantity float64, kind enum.OrderKind, limitPrice float64, cb order.Callback) (string, error) {
	if c.SecurityType != enum.SecurityTypeOption {
		return "", errors.Wrap(exception.ErrInvalidOptionParameters, "not an option contract").With("symbol", c.Symbol)
	}
	if !c.Expiry.After(e.now()) {
		return "", exception.ErrOptionExpired
	}
	return e.orders.PlaceOrder(model.Order{
		Contract:   c,
		Side:       side,
		Quantity:   quantity,
		Kind:       kind,
		LimitPrice: limitPrice,
	}, cb)
}

// ExecuteStrategy validates the leg structure for the strategy kind and
// submits the legs in order. See StrategyResult for the failure contract.
func (e *Engine) ExecuteStrategy(kind enum.StrategyKind, legs []StrategyLeg) (StrategyResult, error) {
	if !kind.IsAvailable() {
		return StrategyResult{FailedLeg: -1}, exception.ErrUnsupportedStrategy
	}
	if err := validateStrategy(kind, legs, e.now()); err != nil {
		return StrategyResult{Kind: kind, FailedLeg: -1}, err
	}

	result := StrategyResult{Kind: kind, FailedLeg: -1}
	for i, leg := range legs {
		id, err := e.orders.PlaceOrder(model.Order{
			Contract:   leg.Contract,
			Side:       leg.Side,
			Quantity:   leg.Quantity,
			Kind:       leg.Kind,
			LimitPrice: leg.LimitPrice,
		}, nil)
		if err != nil {
			result.FailedLeg = i
			logs.Warnf("strategy leg failed, kind: %s, leg: %d/%d, placed: %d, err: %+v",
				kind, i+1, len(legs), len(result.OrderIDs), err)
			return result, errors.Wrap(exception.ErrStrategyLegFailed, "abort remaining legs").With("leg", i)
		}
		result.OrderIDs = append(result.OrderIDs, id)
	}
	return result, nil
}

// validateStrategy enforces the structural shape of each strategy kind.
func validateStrategy(kind enum.StrategyKind, legs []StrategyLeg, now time.Time) error {
	if len(legs) != 2 {
		return errors.Wrap(exception.ErrInvalidOptionParameters, "strategy needs exactly two legs").With("legs", len(legs))
	}
	for i, leg := range legs {
		if leg.Quantity <= 0 {
			return errors.Wrap(exception.ErrInvalidOptionParameters, "leg quantity must be positive").With("leg", i)
		}
		if leg.Contract.SecurityType == enum.SecurityTypeOption && !leg.Contract.Expiry.After(now) {
			return errors.Wrap(exception.ErrOptionExpired, "leg expired").With("leg", i)
		}
	}

	a, b := legs[0], legs[1]
	switch kind {
	case enum.StrategyKindCoveredCall:
		if a.Contract.SecurityType != enum.SecurityTypeStock ||
			b.Contract.SecurityType != enum.SecurityTypeOption ||
			b.Contract.Right != enum.OptionRightCall {
			return errors.Wrap(exception.ErrInvalidOptionParameters, "covered call is long stock plus short call")
		}
		if a.Side != enum.OrderSideBuy || b.Side != enum.OrderSideSell {
			return errors.Wrap(exception.ErrInvalidOptionParameters, "covered call is long stock plus short call")
		}
	case enum.StrategyKindVerticalSpread:
		if err := sameUnderlyingOptions(a, b); err != nil {
			return err
		}
		if a.Contract.Right != b.Contract.Right {
			return errors.Wrap(exception.ErrInvalidOptionParameters, "vertical legs share one right")
		}
		if a.Contract.Strike == b.Contract.Strike {
			return errors.Wrap(exception.ErrInvalidOptionParameters, "vertical legs need distinct strikes")
		}
		if a.Side == b.Side {
			return errors.Wrap(exception.ErrInvalidOptionParameters, "vertical legs oppose each other")
		}
	case enum.StrategyKindStraddle:
		if err := sameUnderlyingOptions(a, b); err != nil {
			return err
		}
		if a.Contract.Right == b.Contract.Right {
			return errors.Wrap(exception.ErrInvalidOptionParameters, "straddle needs one call and one put")
		}
		if a.Contract.Strike != b.Contract.Strike {
			return errors.Wrap(exception.ErrInvalidOptionParameters, "straddle legs share one strike")
		}
	case enum.StrategyKindStrangle:
		if err := sameUnderlyingOptions(a, b); err != nil {
			return err
		}
		if a.Contract.Right == b.Contract.Right {
			return errors.Wrap(exception.ErrInvalidOptionParameters, "strangle needs one call and one put")
		}
		if a.Contract.Strike == b.Contract.Strike {
			return errors.Wrap(exception.ErrInvalidOptionParameters, "strangle legs need distinct strikes")
		}
	}
	return nil
}

func sameUnderlyingOptions(a, b StrategyLeg) error {
	if a.Contract.SecurityType != enum.SecurityTypeOption || b.Contract.SecurityType != enum.SecurityTypeOption {
		return errors.Wrap(exception.ErrInvalidOptionParameters, "both legs must be options")
	}
	if a.Contract.Symbol != b.Contract.Symbol {
		return errors.Wrap(exception.ErrInvalidOptionParameters, "legs span different underlyings")
	}
	if !a.Contract.Expiry.Equal(b.Contract.Expiry) {
		return errors.Wrap(exception.ErrInvalidOptionParameters, "legs span different expiries")
	}
	return nil
}
