package codec

import "main/internal/schema"

// EncodePlaceOrder serializes a place (or modify) order command.
func EncodePlaceOrder(req schema.PlaceOrderRequest) []byte {
	b := NewBuilder(schema.MsgPlaceOrder)
	b.AddInt(req.OrderID)
	addContract(b, req.Contract)
	b.AddString(req.Side)
	b.AddString(req.Kind)
	b.AddFloat(req.Quantity)
	b.AddFloat(req.LimitPrice)
	b.AddFloat(req.StopPrice)
	b.AddString(req.TimeInForce)
	return b.Bytes()
}

// DecodePlaceOrder parses a place order command. Used by test fixtures
// standing in for the gateway.
func DecodePlaceOrder(r *Reader) (schema.PlaceOrderRequest, error) {
	req := schema.PlaceOrderRequest{OrderID: r.Int()}
	req.Contract = readContract(r)
	req.Side = r.String()
	req.Kind = r.String()
	req.Quantity = r.Float()
	req.LimitPrice = r.Float()
	req.StopPrice = r.Float()
	req.TimeInForce = r.String()
	return req, r.Err()
}

// EncodeCancelOrder serializes a cancel command.
func EncodeCancelOrder(req schema.CancelOrderRequest) []byte {
	return NewBuilder(schema.MsgCancelOrder).AddInt(req.OrderID).Bytes()
}

// DecodeCancelOrder parses a cancel command.
func DecodeCancelOrder(r *Reader) (schema.CancelOrderRequest, error) {
	req := schema.CancelOrderRequest{OrderID: r.Int()}
	return req, r.Err()
}

// EncodeOrderStatus serializes an order status event.
func EncodeOrderStatus(ev schema.OrderStatus) []byte {
	b := NewBuilder(schema.MsgOrderStatus)
	b.AddInt(ev.OrderID)
	b.AddString(ev.Status)
	b.AddFloat(ev.FilledQty)
	b.AddFloat(ev.Remaining)
	b.AddFloat(ev.AvgPrice)
	b.AddFloat(ev.LastPrice)
	return b.Bytes()
}

func decodeOrderStatus(r *Reader) (schema.OrderStatus, error) {
	ev := schema.OrderStatus{
		OrderID:   r.Int(),
		Status:    r.String(),
		FilledQty: r.Float(),
		Remaining: r.Float(),
		AvgPrice:  r.Float(),
		LastPrice: r.Float(),
	}
	return ev, r.Err()
}

// EncodeExecution serializes an execution event.
func EncodeExecution(ev schema.Execution) []byte {
	b := NewBuilder(schema.MsgExecution)
	b.AddInt(ev.OrderID)
	b.AddString(ev.ExecID)
	b.AddInt(ev.Time)
	b.AddFloat(ev.Quantity)
	b.AddFloat(ev.Price)
	b.AddString(ev.Liquidity)
	return b.Bytes()
}

func decodeExecution(r *Reader) (schema.Execution, error) {
	ev := schema.Execution{
		OrderID:   r.Int(),
		ExecID:    r.String(),
		Time:      r.Int(),
		Quantity:  r.Float(),
		Price:     r.Float(),
		Liquidity: r.String(),
	}
	return ev, r.Err()
}

// EncodeCommission serializes a commission report event.
func EncodeCommission(ev schema.Commission) []byte {
	b := NewBuilder(schema.MsgCommission)
	b.AddString(ev.ExecID)
	b.AddFloat(ev.Commission)
	b.AddString(ev.Currency)
	b.AddFloat(ev.RealizedPnL)
	return b.Bytes()
}

func decodeCommission(r *Reader) (schema.Commission, error) {
	ev := schema.Commission{
		ExecID:      r.String(),
		Commission:  r.Float(),
		Currency:    r.String(),
		RealizedPnL: r.Float(),
	}
	return ev, r.Err()
}
