package exception

import "errors"

var (
	ErrInvalidParameters  = errors.New("connection: invalid parameters")
	ErrConnectTimeout     = errors.New("connection: connect timeout")
	ErrDisconnectTimeout  = errors.New("connection: disconnect timeout")
	ErrNotConnected       = errors.New("connection: not connected")
	ErrAlreadyConnected   = errors.New("connection: already connected")
	ErrConnectionClosed   = errors.New("connection: closed")
	ErrHandshakeRejected  = errors.New("connection: handshake rejected")
	ErrFrameTooLarge      = errors.New("connection: frame exceeds max size")
	ErrReconnectExhausted = errors.New("connection: reconnect attempts exhausted")
)
