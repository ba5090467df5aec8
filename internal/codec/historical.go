package codec

import "main/internal/schema"

// EncodeHistoricalData serializes a historical bars request.
func EncodeHistoricalData(req schema.HistoricalDataRequest) []byte {
	b := NewBuilder(schema.MsgHistoricalData)
	b.AddInt(req.RequestID)
	addContract(b, req.Contract)
	b.AddString(req.Duration)
	b.AddString(req.BarSize)
	b.AddString(req.WhatToShow)
	b.AddBool(req.UseRTH)
	return b.Bytes()
}

// DecodeHistoricalData parses a historical bars request.
func DecodeHistoricalData(r *Reader) (schema.HistoricalDataRequest, error) {
	req := schema.HistoricalDataRequest{RequestID: r.Int()}
	req.Contract = readContract(r)
	req.Duration = r.String()
	req.BarSize = r.String()
	req.WhatToShow = r.String()
	req.UseRTH = r.Bool()
	return req, r.Err()
}

// EncodeHistoricalBar serializes one bar of a historical reply.
func EncodeHistoricalBar(ev schema.HistoricalBar) []byte {
	b := NewBuilder(schema.MsgHistoricalBar)
	b.AddInt(ev.RequestID)
	b.AddInt(ev.Time)
	b.AddFloat(ev.Open)
	b.AddFloat(ev.High)
	b.AddFloat(ev.Low)
	b.AddFloat(ev.Close)
	b.AddFloat(ev.Volume)
	b.AddFloat(ev.VWAP)
	b.AddInt(int64(ev.TradeCount))
	return b.Bytes()
}

func decodeHistoricalBar(r *Reader) (schema.HistoricalBar, error) {
	ev := schema.HistoricalBar{
		RequestID:  r.Int(),
		Time:       r.Int(),
		Open:       r.Float(),
		High:       r.Float(),
		Low:        r.Float(),
		Close:      r.Float(),
		Volume:     r.Float(),
		VWAP:       r.Float(),
		TradeCount: int(r.Int()),
	}
	return ev, r.Err()
}

// EncodeHistoricalEnd serializes the end-of-series marker.
func EncodeHistoricalEnd(ev schema.HistoricalEnd) []byte {
	b := NewBuilder(schema.MsgHistoricalEnd)
	b.AddInt(ev.RequestID)
	b.AddInt(int64(ev.BarCount))
	return b.Bytes()
}

func decodeHistoricalEnd(r *Reader) (schema.HistoricalEnd, error) {
	ev := schema.HistoricalEnd{
		RequestID: r.Int(),
		BarCount:  int(r.Int()),
	}
	return ev, r.Err()
}
