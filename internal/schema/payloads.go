package schema

// HandshakeAck is the gateway's reply to a connect request.
type HandshakeAck struct {
	ServerVersion int    `json:"serverVersion"`
	ServerTime    string `json:"serverTime"`
}

// NextValidID carries the first usable external order id for this session.
type NextValidID struct {
	OrderID int64 `json:"orderId"`
}

// OrderStatus reports a lifecycle change for an order, keyed by the
// gateway-assigned external id.
type OrderStatus struct {
	OrderID   int64   `json:"orderId"`
	Status    string  `json:"status"`
	FilledQty float64 `json:"filled"`
	Remaining float64 `json:"remaining"`
	AvgPrice  float64 `json:"avgPrice"`
	LastPrice float64 `json:"lastPrice"`
}

// Gateway-native order status strings.
const (
	StatusSubmitted     = "Submitted"
	StatusPreSubmitted  = "PreSubmitted"
	StatusPartialFilled = "PartiallyFilled"
	StatusFilled        = "Filled"
	StatusCancelled     = "Cancelled"
	StatusRejected      = "Rejected"
	StatusInactive      = "Inactive"
)

// Execution reports a single fill for an order.
type Execution struct {
	OrderID   int64   `json:"orderId"`
	ExecID    string  `json:"execId"`
	Time      int64   `json:"time"`
	Quantity  float64 `json:"qty"`
	Price     float64 `json:"price"`
	Liquidity string  `json:"liquidity"`
}

// Commission attaches fees and realized PnL to an execution.
type Commission struct {
	ExecID      string  `json:"execId"`
	Commission  float64 `json:"commission"`
	Currency    string  `json:"currency"`
	RealizedPnL float64 `json:"realizedPnl"`
}

// TickField identifies which snapshot field a tick updates.
type TickField uint16

const (
	TickUnknown TickField = iota
	TickBidPrice
	TickBidSize
	TickAskPrice
	TickAskSize
	TickLastPrice
	TickLastSize
	TickHigh
	TickLow
	TickClose
	TickVolume
)

// Tick is one incremental market data update, keyed by request id.
type Tick struct {
	RequestID int64     `json:"reqId"`
	Field     TickField `json:"field"`
	Value     float64   `json:"value"`
}

// HistoricalBar is one bar of a historical data reply.
type HistoricalBar struct {
	RequestID  int64   `json:"reqId"`
	Time       int64   `json:"time"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     float64 `json:"volume"`
	VWAP       float64 `json:"vwap"`
	TradeCount int     `json:"tradeCount"`
}

// HistoricalEnd terminates a historical data reply stream.
type HistoricalEnd struct {
	RequestID int64 `json:"reqId"`
	BarCount  int   `json:"barCount"`
}

// ServerError is a gateway error report, scoped by request/order id when
// the id is positive.
type ServerError struct {
	RequestID int64  `json:"reqId"`
	Code      int    `json:"code"`
	Message   string `json:"message"`
}
