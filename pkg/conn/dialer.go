// Package conn provides the persistent framed TCP transport the gateway
// protocol runs over. Frames are length-prefixed opaque payloads; the
// tag-value encoding inside them belongs to the codec package.
package conn

import (
	"context"
	"net"
	"strconv"
	"time"
)

const (
	DefaultDialTimeout = 10 * time.Second
	DefaultKeepAlive   = 30 * time.Second
)

// Dialer opens framed TCP connections to the gateway.
type Dialer struct {
	Host         string
	Port         int
	DialTimeout  time.Duration
	KeepAlive    time.Duration
	MaxFrameSize int
}

// Dial opens the transport connection.
func (d Dialer) Dial(ctx context.Context) (*Conn, error) {
	timeout := d.DialTimeout
	if timeout == 0 {
		timeout = DefaultDialTimeout
	}
	keepAlive := d.KeepAlive
	if keepAlive == 0 {
		keepAlive = DefaultKeepAlive
	}

	dialer := net.Dialer{
		Timeout:   timeout,
		KeepAlive: keepAlive,
	}
	addr := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}
	if tcpConn, ok := rawConn.(*net.TCPConn); ok {
		_ = tcpConn.SetNoDelay(true)
		_ = tcpConn.SetKeepAlive(true)
		_ = tcpConn.SetKeepAlivePeriod(keepAlive)
	}

	return NewConn(rawConn, d.MaxFrameSize), nil
}
