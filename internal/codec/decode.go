package codec

import (
	stderrors "errors"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/schema"
)

var ErrUnknownMessage = stderrors.New("codec: unknown message id")

// DecodeEvent parses one inbound frame payload into a typed event.
func DecodeEvent(payload []byte) (schema.Event, error) {
	r := NewReader(payload)
	id := schema.MessageID(r.Int())
	if r.Err() != nil {
		return schema.Event{}, r.Err()
	}

	ev := schema.Event{RecvAt: time.Now().UTC()}
	var err error
	switch id {
	case schema.MsgHandshakeAck:
		var p schema.HandshakeAck
		if p, err = decodeHandshakeAck(r); err == nil {
			ev.Kind, ev.HandshakeAck = schema.EventHandshakeAck, &p
		}
	case schema.MsgNextValidID:
		var p schema.NextValidID
		if p, err = decodeNextValidID(r); err == nil {
			ev.Kind, ev.NextValidID = schema.EventNextValidID, &p
		}
	case schema.MsgOrderStatus:
		var p schema.OrderStatus
		if p, err = decodeOrderStatus(r); err == nil {
			ev.Kind, ev.OrderStatus = schema.EventOrderStatus, &p
		}
	case schema.MsgExecution:
		var p schema.Execution
		if p, err = decodeExecution(r); err == nil {
			ev.Kind, ev.Execution = schema.EventExecution, &p
		}
	case schema.MsgCommission:
		var p schema.Commission
		if p, err = decodeCommission(r); err == nil {
			ev.Kind, ev.Commission = schema.EventCommission, &p
		}
	case schema.MsgTick:
		var p schema.Tick
		if p, err = decodeTick(r); err == nil {
			ev.Kind, ev.Tick = schema.EventTick, &p
		}
	case schema.MsgHistoricalBar:
		var p schema.HistoricalBar
		if p, err = decodeHistoricalBar(r); err == nil {
			ev.Kind, ev.HistoricalBar = schema.EventHistoricalBar, &p
		}
	case schema.MsgHistoricalEnd:
		var p schema.HistoricalEnd
		if p, err = decodeHistoricalEnd(r); err == nil {
			ev.Kind, ev.HistoricalEnd = schema.EventHistoricalEnd, &p
		}
	case schema.MsgError:
		var p schema.ServerError
		if p, err = decodeServerError(r); err == nil {
			ev.Kind, ev.Error = schema.EventError, &p
		}
	default:
		return schema.Event{}, errors.Wrap(ErrUnknownMessage, "decode event").With("id", int(id))
	}
	if err != nil {
		return schema.Event{}, errors.Wrap(err, "decode event").With("id", int(id))
	}
	return ev, nil
}
