package schema

// MessageID identifies the command carried by an outbound frame and the
// event carried by an inbound frame.
type MessageID uint16

// Outbound command ids.
const (
	MsgConnect MessageID = iota + 1
	MsgPlaceOrder
	MsgCancelOrder
	MsgSubscribeMarketData
	MsgUnsubscribeMarketData
	MsgHistoricalData
	MsgDisconnect
)

// Inbound event ids.
const (
	MsgHandshakeAck MessageID = iota + 101
	MsgNextValidID
	MsgOrderStatus
	MsgExecution
	MsgCommission
	MsgTick
	MsgHistoricalBar
	MsgHistoricalEnd
	MsgError
)

// ContractSpec is the wire rendering of an instrument descriptor.
type ContractSpec struct {
	Symbol       string  `json:"symbol"`
	SecurityType string  `json:"secType"`
	Exchange     string  `json:"exchange"`
	Currency     string  `json:"currency"`
	Expiry       string  `json:"expiry,omitempty"`
	Strike       float64 `json:"strike,omitempty"`
	Right        string  `json:"right,omitempty"`
	Multiplier   int     `json:"multiplier,omitempty"`
}

// ConnectRequest starts the application-level handshake.
type ConnectRequest struct {
	ClientID      int `json:"clientId"`
	ClientVersion int `json:"clientVersion"`
}

// PlaceOrderRequest submits or re-submits an order. Re-submitting with an
// existing external id is a modify.
type PlaceOrderRequest struct {
	OrderID     int64        `json:"orderId"`
	Contract    ContractSpec `json:"contract"`
	Side        string       `json:"side"`
	Kind        string       `json:"kind"`
	Quantity    float64      `json:"qty"`
	LimitPrice  float64      `json:"limitPrice,omitempty"`
	StopPrice   float64      `json:"stopPrice,omitempty"`
	TimeInForce string       `json:"tif"`
}

// CancelOrderRequest asks the gateway to cancel an order.
type CancelOrderRequest struct {
	OrderID int64 `json:"orderId"`
}

// SubscribeMarketDataRequest opens a streaming tick subscription.
type SubscribeMarketDataRequest struct {
	RequestID int64        `json:"reqId"`
	Contract  ContractSpec `json:"contract"`
}

// UnsubscribeMarketDataRequest tears a subscription down.
type UnsubscribeMarketDataRequest struct {
	RequestID int64 `json:"reqId"`
}

// HistoricalDataRequest asks for a finite bar series.
type HistoricalDataRequest struct {
	RequestID  int64        `json:"reqId"`
	Contract   ContractSpec `json:"contract"`
	Duration   string       `json:"duration"`
	BarSize    string       `json:"barSize"`
	WhatToShow string       `json:"whatToShow"`
	UseRTH     bool         `json:"useRTH"`
}
