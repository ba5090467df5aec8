package exception

import "errors"

var (
	ErrHistoricalDataTimeout  = errors.New("market data: historical data timeout")
	ErrHistoricalDataRejected = errors.New("market data: historical request rejected")
	ErrHistoricalDataEmpty    = errors.New("market data: historical request returned no bars")
	ErrPriceUnavailable       = errors.New("market data: price unavailable")
	ErrSubscriptionNotFound   = errors.New("market data: subscription not found")
	ErrDuplicateRequest       = errors.New("market data: duplicate request id")
)
