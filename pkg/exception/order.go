package exception

import "errors"

var (
	ErrOrderInvalid         = errors.New("order: invalid order")
	ErrOrderNotFound        = errors.New("order: not found")
	ErrOrderAlreadyTerminal = errors.New("order: already terminal")
	ErrOrderDuplicate       = errors.New("order: duplicate order id")
	ErrOrderStateTransition = errors.New("order: invalid state transition")
	ErrOrderOverfill        = errors.New("order: fill exceeds order quantity")
	ErrOrderRiskRejected    = errors.New("order: rejected by pre-trade check")
)
