package order

import (
	"main/internal/model/enum"
	"main/internal/schema"
)

// stateFromStatus maps a gateway status string onto the internal state
// machine. Unknown strings are dropped by the caller.
func stateFromStatus(status string) (enum.OrderState, bool) {
	switch status {
	case schema.StatusSubmitted, schema.StatusPreSubmitted:
		return enum.OrderStateSubmitted, true
	case schema.StatusPartialFilled:
		return enum.OrderStatePartiallyFilled, true
	case schema.StatusFilled:
		return enum.OrderStateFilled, true
	case schema.StatusCancelled, schema.StatusInactive:
		return enum.OrderStateCancelled, true
	case schema.StatusRejected:
		return enum.OrderStateRejected, true
	default:
		return 0, false
	}
}

// canTransition enforces the monotonic lifecycle:
// Pending -> Submitted -> PartiallyFilled* -> Filled | Cancelled | Rejected.
// Terminal states absorb every event; a repeated PartiallyFilled is legal,
// a downgrade (e.g. PartiallyFilled -> Submitted) is not.
func canTransition(from, to enum.OrderState) bool {
	if from.IsTerminal() {
		return false
	}
	switch from {
	case enum.OrderStatePending:
		return to != enum.OrderStatePending
	case enum.OrderStateSubmitted:
		switch to {
		case enum.OrderStatePartiallyFilled, enum.OrderStateFilled,
			enum.OrderStateCancelled, enum.OrderStateRejected:
			return true
		default:
			return false
		}
	case enum.OrderStatePartiallyFilled:
		switch to {
		case enum.OrderStatePartiallyFilled, enum.OrderStateFilled,
			enum.OrderStateCancelled, enum.OrderStateRejected:
			return true
		default:
			return false
		}
	default:
		return false
	}
}
