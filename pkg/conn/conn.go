package conn

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrFrameTooLarge = errors.New("conn: frame exceeds max size")
	ErrClosed        = errors.New("conn: closed")
)

const DefaultMaxFrameSize = 1 << 20

// TransportError wraps any network I/O failure on the gateway link.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "transport " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Conn is a framed connection: every message is a uint32 big-endian length
// prefix followed by that many payload bytes. Reads are single-consumer
// (the gateway read loop); writes are serialized by a mutex.
type Conn struct {
	conn     net.Conn
	reader   *bufio.Reader
	writeMu  sync.Mutex
	closed   atomic.Bool
	maxFrame int
}

// NewConn wraps an established network connection.
func NewConn(raw net.Conn, maxFrameSize int) *Conn {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &Conn{
		conn:     raw,
		reader:   bufio.NewReaderSize(raw, 32<<10),
		maxFrame: maxFrameSize,
	}
}

// ReadFrame blocks until one full frame arrives.
func (c *Conn) ReadFrame() ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	var head [4]byte
	if _, err := io.ReadFull(c.reader, head[:]); err != nil {
		return nil, c.readErr(err)
	}
	size := int(binary.BigEndian.Uint32(head[:]))
	if size > c.maxFrame {
		return nil, ErrFrameTooLarge
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(c.reader, payload); err != nil {
		return nil, c.readErr(err)
	}
	return payload, nil
}

func (c *Conn) readErr(err error) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return &TransportError{Op: "read", Err: err}
}

// WriteFrame sends one frame, serializing concurrent writers.
func (c *Conn) WriteFrame(payload []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if len(payload) > c.maxFrame {
		return ErrFrameTooLarge
	}

	var head [4]byte
	binary.BigEndian.PutUint32(head[:], uint32(len(payload)))

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(head[:]); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	if _, err := c.conn.Write(payload); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// SetReadDeadline bounds the next ReadFrame.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Close shuts the connection down. Safe to call more than once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	return c.closed.Load()
}
