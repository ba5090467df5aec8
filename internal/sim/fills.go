package sim

import (
	"fmt"
	"time"

	"main/internal/codec"
	"main/internal/schema"
)

// handlePlaceOrder acknowledges the order and fills it in two parts so
// clients exercise the partial fill path. Market orders fill at the
// current walk price, limit orders at their limit.
func (ss *session) handlePlaceOrder(req schema.PlaceOrderRequest) {
	if req.Quantity <= 0 {
		ss.send(codec.EncodeServerError(schema.ServerError{
			RequestID: req.OrderID,
			Code:      201,
			Message:   "order rejected: invalid quantity",
		}))
		return
	}

	ss.mu.Lock()
	_, resubmit := ss.orders[req.OrderID]
	ss.orders[req.OrderID] = req
	if req.OrderID >= ss.nextOrderID {
		ss.nextOrderID = req.OrderID + 1
	}
	ss.mu.Unlock()

	price := req.LimitPrice
	if price <= 0 {
		price = ss.walkFor(req.Contract.Symbol).last()
	}

	ss.send(codec.EncodeOrderStatus(schema.OrderStatus{
		OrderID:   req.OrderID,
		Status:    schema.StatusSubmitted,
		Remaining: req.Quantity,
	}))
	if resubmit {
		// A modify replaces the working order; it does not fill again.
		return
	}

	first := req.Quantity * 0.6
	second := req.Quantity - first
	now := time.Now().UTC().Unix()

	ss.fill(req, first, price, now)
	ss.send(codec.EncodeOrderStatus(schema.OrderStatus{
		OrderID:   req.OrderID,
		Status:    schema.StatusPartialFilled,
		FilledQty: first,
		Remaining: second,
		AvgPrice:  price,
		LastPrice: price,
	}))

	ss.fill(req, second, price, now)
	ss.send(codec.EncodeOrderStatus(schema.OrderStatus{
		OrderID:   req.OrderID,
		Status:    schema.StatusFilled,
		FilledQty: req.Quantity,
		AvgPrice:  price,
		LastPrice: price,
	}))
}

func (ss *session) fill(req schema.PlaceOrderRequest, qty, price float64, now int64) {
	ss.mu.Lock()
	ss.execSeq++
	execID := fmt.Sprintf("sim-%d-%d", req.OrderID, ss.execSeq)
	ss.mu.Unlock()

	ss.send(codec.EncodeExecution(schema.Execution{
		OrderID:   req.OrderID,
		ExecID:    execID,
		Time:      now,
		Quantity:  qty,
		Price:     price,
		Liquidity: "A",
	}))
	ss.send(codec.EncodeCommission(schema.Commission{
		ExecID:     execID,
		Commission: qty * price * 0.0005,
		Currency:   req.Contract.Currency,
	}))
}

func (ss *session) handleCancelOrder(req schema.CancelOrderRequest) {
	ss.mu.Lock()
	ord, ok := ss.orders[req.OrderID]
	ss.mu.Unlock()
	if !ok {
		ss.send(codec.EncodeServerError(schema.ServerError{
			RequestID: req.OrderID,
			Code:      10147,
			Message:   "order to cancel not found",
		}))
		return
	}
	ss.send(codec.EncodeOrderStatus(schema.OrderStatus{
		OrderID:   req.OrderID,
		Status:    schema.StatusCancelled,
		Remaining: ord.Quantity,
	}))
}
