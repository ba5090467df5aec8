package enum

// OrderSide buy, sell
type OrderSide uint8

const (
	_order_side_beg OrderSide = iota
	OrderSideBuy
	OrderSideSell
	_order_side_end
)

func (s OrderSide) IsAvailable() bool {
	return s > _order_side_beg && s < _order_side_end
}

func (s OrderSide) String() string {
	switch s {
	case OrderSideBuy:
		return "BUY"
	case OrderSideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// OrderKind market, limit, stop, stop limit
type OrderKind uint8

const (
	_order_kind_beg OrderKind = iota
	OrderKindMarket
	OrderKindLimit
	OrderKindStop
	OrderKindStopLimit
	_order_kind_end
)

func (k OrderKind) IsAvailable() bool {
	return k > _order_kind_beg && k < _order_kind_end
}

func (k OrderKind) String() string {
	switch k {
	case OrderKindMarket:
		return "MKT"
	case OrderKindLimit:
		return "LMT"
	case OrderKindStop:
		return "STP"
	case OrderKindStopLimit:
		return "STP LMT"
	default:
		return "UNKNOWN"
	}
}

// RequiresLimitPrice reports whether the kind carries a limit price field.
func (k OrderKind) RequiresLimitPrice() bool {
	return k == OrderKindLimit || k == OrderKindStopLimit
}

// RequiresStopPrice reports whether the kind carries a stop trigger field.
func (k OrderKind) RequiresStopPrice() bool {
	return k == OrderKindStop || k == OrderKindStopLimit
}

// OrderState pending, submitted, partial filled, filled, cancelled, rejected
type OrderState uint8

const (
	_order_state_beg OrderState = iota
	OrderStatePending
	OrderStateSubmitted
	OrderStatePartiallyFilled
	OrderStateFilled
	OrderStateCancelled
	OrderStateRejected
	_order_state_end
)

func (s OrderState) IsAvailable() bool {
	return s > _order_state_beg && s < _order_state_end
}

// IsTerminal reports whether no further transition is allowed.
func (s OrderState) IsTerminal() bool {
	switch s {
	case OrderStateFilled, OrderStateCancelled, OrderStateRejected:
		return true
	default:
		return false
	}
}

func (s OrderState) String() string {
	switch s {
	case OrderStatePending:
		return "Pending"
	case OrderStateSubmitted:
		return "Submitted"
	case OrderStatePartiallyFilled:
		return "PartiallyFilled"
	case OrderStateFilled:
		return "Filled"
	case OrderStateCancelled:
		return "Cancelled"
	case OrderStateRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// TimeInForce DAY, GTC, IOC, FOK
type TimeInForce uint8

const (
	_time_in_force_beg TimeInForce = iota
	TimeInForceDay
	TimeInForceGTC
	TimeInForceIOC
	TimeInForceFOK
	_time_in_force_end
)

func (t TimeInForce) IsAvailable() bool {
	return t > _time_in_force_beg && t < _time_in_force_end
}

func (t TimeInForce) String() string {
	switch t {
	case TimeInForceDay:
		return "DAY"
	case TimeInForceGTC:
		return "GTC"
	case TimeInForceIOC:
		return "IOC"
	case TimeInForceFOK:
		return "FOK"
	default:
		return "UNKNOWN"
	}
}
