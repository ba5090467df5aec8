package codec

import "main/internal/schema"

// EncodeSubscribeMarketData serializes a market data subscribe command.
func EncodeSubscribeMarketData(req schema.SubscribeMarketDataRequest) []byte {
	b := NewBuilder(schema.MsgSubscribeMarketData)
	b.AddInt(req.RequestID)
	addContract(b, req.Contract)
	return b.Bytes()
}

// DecodeSubscribeMarketData parses a subscribe command.
func DecodeSubscribeMarketData(r *Reader) (schema.SubscribeMarketDataRequest, error) {
	req := schema.SubscribeMarketDataRequest{RequestID: r.Int()}
	req.Contract = readContract(r)
	return req, r.Err()
}

// EncodeUnsubscribeMarketData serializes an unsubscribe command.
func EncodeUnsubscribeMarketData(req schema.UnsubscribeMarketDataRequest) []byte {
	return NewBuilder(schema.MsgUnsubscribeMarketData).AddInt(req.RequestID).Bytes()
}

// DecodeUnsubscribeMarketData parses an unsubscribe command.
func DecodeUnsubscribeMarketData(r *Reader) (schema.UnsubscribeMarketDataRequest, error) {
	req := schema.UnsubscribeMarketDataRequest{RequestID: r.Int()}
	return req, r.Err()
}

// EncodeTick serializes a tick event.
func EncodeTick(ev schema.Tick) []byte {
	b := NewBuilder(schema.MsgTick)
	b.AddInt(ev.RequestID)
	b.AddInt(int64(ev.Field))
	b.AddFloat(ev.Value)
	return b.Bytes()
}

func decodeTick(r *Reader) (schema.Tick, error) {
	ev := schema.Tick{
		RequestID: r.Int(),
		Field:     schema.TickField(r.Int()),
		Value:     r.Float(),
	}
	return ev, r.Err()
}
