package model

import (
	"time"

	"main/internal/model/enum"
)

// Order is the caller-supplied trading intent. It becomes immutable once
// submitted; changes go through the modify operation, which re-submits with
// the same external id.
type Order struct {
	Contract    Contract
	Side        enum.OrderSide
	Quantity    float64
	Kind        enum.OrderKind
	LimitPrice  float64
	StopPrice   float64
	TimeInForce enum.TimeInForce
}

// OrderFields is the mutable subset accepted by the modify operation.
// Nil fields keep the current value.
type OrderFields struct {
	Quantity   *float64
	LimitPrice *float64
	StopPrice  *float64
}

// Execution is an immutable fill record appended to an order's history.
type Execution struct {
	ExecID      string
	Time        time.Time
	Quantity    float64
	Price       float64
	Liquidity   string
	Commission  float64
	RealizedPnL float64
}

// OrderRecord is the adapter's authoritative lifecycle record for a
// submitted order. Mutated only under the order manager's lock.
type OrderRecord struct {
	InternalID string
	ExternalID int64
	Order      Order
	State      enum.OrderState
	FilledQty  float64
	AvgPrice   float64
	Executions []Execution
	LastError  string
	UpdatedAt  time.Time
}

// OrderStatus is the caller-facing snapshot of an order record.
type OrderStatus struct {
	InternalID   string
	ExternalID   int64
	State        enum.OrderState
	FilledQty    float64
	RemainingQty float64
	AvgPrice     float64
	LastError    string
	UpdatedAt    time.Time
}

// Status derives the caller-facing view. Call with the manager lock held.
func (r *OrderRecord) Status() OrderStatus {
	remaining := r.Order.Quantity - r.FilledQty
	if remaining < 0 {
		remaining = 0
	}
	return OrderStatus{
		InternalID:   r.InternalID,
		ExternalID:   r.ExternalID,
		State:        r.State,
		FilledQty:    r.FilledQty,
		RemainingQty: remaining,
		AvgPrice:     r.AvgPrice,
		LastError:    r.LastError,
		UpdatedAt:    r.UpdatedAt,
	}
}

// Clone returns a deep copy safe to hand outside the lock.
func (r *OrderRecord) Clone() OrderRecord {
	out := *r
	out.Executions = make([]Execution, len(r.Executions))
	copy(out.Executions, r.Executions)
	return out
}
