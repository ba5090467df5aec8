package schema

// ErrorClass buckets gateway error codes for routing.
type ErrorClass uint8

const (
	ErrorClassSystem ErrorClass = iota
	ErrorClassConnection
	ErrorClassMarketData
	ErrorClassOrder
	ErrorClassAccount
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorClassConnection:
		return "connection"
	case ErrorClassMarketData:
		return "market_data"
	case ErrorClassOrder:
		return "order"
	case ErrorClassAccount:
		return "account"
	default:
		return "system"
	}
}

// Gateway error code ranges. The gateway reserves 1100-1399 for connection
// health, 2100-2199 for market data farms, 9000-9999 for account issues,
// and reports order problems below 1100.
const (
	codeOrderMax       = 1100
	codeConnectionMin  = 1100
	codeConnectionMax  = 1400
	codeMarketDataMin  = 2100
	codeMarketDataMax  = 2200
	codeAccountMin     = 9000
	codeAccountMax     = 10000
)

// ClassifyErrorCode maps a numeric gateway error code to its class.
func ClassifyErrorCode(code int) ErrorClass {
	switch {
	case code > 0 && code < codeOrderMax:
		return ErrorClassOrder
	case code >= codeConnectionMin && code < codeConnectionMax:
		return ErrorClassConnection
	case code >= codeMarketDataMin && code < codeMarketDataMax:
		return ErrorClassMarketData
	case code >= codeAccountMin && code < codeAccountMax:
		return ErrorClassAccount
	default:
		return ErrorClassSystem
	}
}
