package codec

import "main/internal/schema"

// EncodeConnect serializes the handshake open command.
func EncodeConnect(req schema.ConnectRequest) []byte {
	b := NewBuilder(schema.MsgConnect)
	b.AddInt(int64(req.ClientID))
	b.AddInt(int64(req.ClientVersion))
	return b.Bytes()
}

// DecodeConnect parses the handshake open command.
func DecodeConnect(r *Reader) (schema.ConnectRequest, error) {
	req := schema.ConnectRequest{
		ClientID:      int(r.Int()),
		ClientVersion: int(r.Int()),
	}
	return req, r.Err()
}

// EncodeDisconnect serializes the graceful close command.
func EncodeDisconnect() []byte {
	return NewBuilder(schema.MsgDisconnect).Bytes()
}

// EncodeHandshakeAck serializes the gateway's handshake reply.
func EncodeHandshakeAck(ev schema.HandshakeAck) []byte {
	b := NewBuilder(schema.MsgHandshakeAck)
	b.AddInt(int64(ev.ServerVersion))
	b.AddString(ev.ServerTime)
	return b.Bytes()
}

func decodeHandshakeAck(r *Reader) (schema.HandshakeAck, error) {
	ev := schema.HandshakeAck{
		ServerVersion: int(r.Int()),
		ServerTime:    r.String(),
	}
	return ev, r.Err()
}

// EncodeNextValidID serializes the order id seed event.
func EncodeNextValidID(ev schema.NextValidID) []byte {
	return NewBuilder(schema.MsgNextValidID).AddInt(ev.OrderID).Bytes()
}

func decodeNextValidID(r *Reader) (schema.NextValidID, error) {
	ev := schema.NextValidID{OrderID: r.Int()}
	return ev, r.Err()
}

// EncodeServerError serializes a gateway error event.
func EncodeServerError(ev schema.ServerError) []byte {
	b := NewBuilder(schema.MsgError)
	b.AddInt(ev.RequestID)
	b.AddInt(int64(ev.Code))
	b.AddString(ev.Message)
	return b.Bytes()
}

func decodeServerError(r *Reader) (schema.ServerError, error) {
	ev := schema.ServerError{
		RequestID: r.Int(),
		Code:      int(r.Int()),
		Message:   r.String(),
	}
	return ev, r.Err()
}
