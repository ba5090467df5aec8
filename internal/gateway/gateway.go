// Package gateway owns the single persistent connection to the brokerage
// gateway: dialing, the application-level handshake, the background read
// loop, and the reconnect policy. Decoded events are handed to an EventSink
// injected at construction.
package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/codec"
	"main/internal/schema"
	"main/pkg/conn"
	"main/pkg/exception"
)

// clientVersion is sent in the handshake so the gateway can gate features.
const clientVersion = 2

// EventSink receives every decoded gateway event plus lifecycle
// notifications. Implemented by the event dispatcher.
type EventSink interface {
	OnEvent(ev schema.Event)
	OnDisconnect(err error)
}

// Transport is the framed connection surface the client drives. Satisfied
// by *conn.Conn; tests substitute in-memory pipes.
type Transport interface {
	ReadFrame() ([]byte, error)
	WriteFrame(payload []byte) error
	Close() error
}

// DialFunc opens a fresh transport connection.
type DialFunc func(ctx context.Context) (Transport, error)

// Config controls the connection lifecycle.
type Config struct {
	Host              string
	Port              int
	ClientID          int
	ConnectTimeout    time.Duration // default 10s
	DisconnectTimeout time.Duration // default 5s
	Backoff           Backoff
	AutoReconnect     bool
	MaxReconnects     int // 0 = unlimited
	MaxFrameSize      int

	// Dial overrides the default TCP dialer. Used by tests.
	Dial DialFunc
}

func (cfg Config) withDefaults() Config {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.DisconnectTimeout <= 0 {
		cfg.DisconnectTimeout = 5 * time.Second
	}
	if cfg.Backoff == (Backoff{}) {
		cfg.Backoff = DefaultBackoff()
	}
	return cfg
}

// session is the state of one physical connection attempt. A fresh session
// per connect keeps handshake signals from leaking across reconnects.
type session struct {
	conn    Transport
	ack     chan struct{}
	id      chan struct{}
	done    chan struct{}
	ackOnce sync.Once
	idOnce  sync.Once
}

// Client is the protocol gateway client.
type Client struct {
	cfg  Config
	sink EventSink
	dial DialFunc

	mu   sync.Mutex
	sess *session

	connected    atomic.Bool
	closing      atomic.Bool
	reconnecting atomic.Bool
	nextOrderID  atomic.Int64
	seeded       atomic.Bool
}

// New builds a client. The sink must not be nil.
func New(cfg Config, sink EventSink) *Client {
	cfg = cfg.withDefaults()
	dial := cfg.Dial
	if dial == nil {
		dialer := conn.Dialer{
			Host:         cfg.Host,
			Port:         cfg.Port,
			MaxFrameSize: cfg.MaxFrameSize,
		}
		dial = func(ctx context.Context) (Transport, error) {
			return dialer.Dial(ctx)
		}
	}
	return &Client{cfg: cfg, sink: sink, dial: dial}
}

// Connect opens the transport and blocks until the gateway acknowledges the
// handshake and supplies the first valid order id, or the configured
// timeout elapses.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.validate(); err != nil {
		return err
	}
	if c.connected.Load() {
		return exception.ErrAlreadyConnected
	}
	return c.connect(ctx)
}

func (c *Client) validate() error {
	if c.cfg.Host == "" {
		return errors.Wrap(exception.ErrInvalidParameters, "empty host")
	}
	if c.cfg.Port < 1 || c.cfg.Port > 65535 {
		return errors.Wrap(exception.ErrInvalidParameters, "port out of range").With("port", c.cfg.Port)
	}
	if c.cfg.ClientID < 0 {
		return errors.Wrap(exception.ErrInvalidParameters, "negative client id").With("clientId", c.cfg.ClientID)
	}
	return nil
}

func (c *Client) connect(ctx context.Context) error {
	transport, err := c.dial(ctx)
	if err != nil {
		return errors.Wrap(err, "dial gateway")
	}

	s := &session{
		conn: transport,
		ack:  make(chan struct{}),
		id:   make(chan struct{}),
		done: make(chan struct{}),
	}

	c.mu.Lock()
	c.sess = s
	c.mu.Unlock()

	go c.readLoop(s)

	if err := transport.WriteFrame(codec.EncodeConnect(schema.ConnectRequest{
		ClientID:      c.cfg.ClientID,
		ClientVersion: clientVersion,
	})); err != nil {
		_ = transport.Close()
		return errors.Wrap(err, "send handshake")
	}

	timer := time.NewTimer(c.cfg.ConnectTimeout)
	defer timer.Stop()
	for _, half := range []chan struct{}{s.ack, s.id} {
		select {
		case <-half:
		case <-s.done:
			_ = transport.Close()
			return exception.ErrConnectTimeout
		case <-timer.C:
			_ = transport.Close()
			return exception.ErrConnectTimeout
		case <-ctx.Done():
			_ = transport.Close()
			return ctx.Err()
		}
	}

	c.connected.Store(true)
	logs.Infof("gateway connected, host: %s, port: %d, clientId: %d", c.cfg.Host, c.cfg.Port, c.cfg.ClientID)
	return nil
}

func (c *Client) readLoop(s *session) {
	defer close(s.done)
	for {
		payload, err := s.conn.ReadFrame()
		if err != nil {
			c.handleReadError(s, err)
			return
		}

		ev, err := codec.DecodeEvent(payload)
		if err != nil {
			logs.Warnf("drop undecodable frame, err: %+v", err)
			continue
		}

		switch ev.Kind {
		case schema.EventHandshakeAck:
			s.ackOnce.Do(func() { close(s.ack) })
		case schema.EventNextValidID:
			c.seedOrderID(ev.NextValidID.OrderID)
			s.idOnce.Do(func() { close(s.id) })
		}

		c.sink.OnEvent(ev)
	}
}

// seedOrderID applies the gateway's order id floor. The counter never moves
// backward so ids stay unique across reconnects.
func (c *Client) seedOrderID(floor int64) {
	if c.seeded.CompareAndSwap(false, true) {
		c.nextOrderID.Store(floor)
		return
	}
	for {
		current := c.nextOrderID.Load()
		if floor <= current {
			return
		}
		if c.nextOrderID.CompareAndSwap(current, floor) {
			return
		}
	}
}

func (c *Client) handleReadError(s *session, err error) {
	wasConnected := c.connected.Swap(false)
	if c.closing.Load() || !wasConnected {
		return
	}

	logs.Warnf("gateway connection lost, err: %+v", err)
	c.sink.OnDisconnect(err)

	if c.cfg.AutoReconnect {
		c.triggerReconnect()
	}
}

// OnConnectionError is called by the dispatcher when the gateway reports a
// connection-class protocol error. It drives the same reconnect policy as
// a transport failure.
func (c *Client) OnConnectionError(code int, msg string) {
	logs.Warnf("gateway connection error, code: %d, msg: %s", code, msg)
	if c.cfg.AutoReconnect {
		c.triggerReconnect()
	}
}

func (c *Client) triggerReconnect() {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.reconnecting.Store(false)
		attempt := 0
		for {
			attempt++
			if c.cfg.MaxReconnects > 0 && attempt > c.cfg.MaxReconnects {
				logs.Errorf("gateway reconnect exhausted after %d attempts", c.cfg.MaxReconnects)
				return
			}
			time.Sleep(c.cfg.Backoff.Next(attempt))
			if c.closing.Load() {
				return
			}
			if err := c.ForceReconnect(); err != nil {
				logs.Warnf("gateway reconnect attempt %d failed, err: %+v", attempt, err)
				continue
			}
			logs.Infof("gateway reconnected after %d attempts", attempt)
			return
		}
	}()
}

// Disconnect requests a graceful close and waits for the read loop to
// confirm shutdown.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	if s == nil {
		return nil
	}

	c.closing.Store(true)
	defer c.closing.Store(false)

	// Best effort: tell the gateway we are leaving before dropping the
	// socket.
	_ = s.conn.WriteFrame(codec.EncodeDisconnect())
	_ = s.conn.Close()
	c.connected.Store(false)

	timer := time.NewTimer(c.cfg.DisconnectTimeout)
	defer timer.Stop()
	select {
	case <-s.done:
	case <-timer.C:
		return exception.ErrDisconnectTimeout
	}

	c.mu.Lock()
	if c.sess == s {
		c.sess = nil
	}
	c.mu.Unlock()
	logs.Info("gateway disconnected")
	return nil
}

// ForceReconnect tears the connection down (best effort) and dials again.
// Used after unrecoverable protocol errors.
func (c *Client) ForceReconnect() error {
	if err := c.Disconnect(); err != nil {
		logs.Warnf("force reconnect: disconnect failed, err: %+v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
	defer cancel()
	return c.connect(ctx)
}

// IsConnected reports whether the socket is open and the handshake has
// completed. A pre-handshake socket is not connected.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// NextOrderID returns and atomically increments the external order id
// counter seeded by the handshake.
func (c *Client) NextOrderID() int64 {
	return c.nextOrderID.Add(1) - 1
}

// Send writes one framed message to the gateway.
func (c *Client) Send(payload []byte) error {
	if !c.connected.Load() {
		return exception.ErrNotConnected
	}
	c.mu.Lock()
	s := c.sess
	c.mu.Unlock()
	if s == nil {
		return exception.ErrNotConnected
	}
	if err := s.conn.WriteFrame(payload); err != nil {
		return errors.Wrap(err, "send frame")
	}
	return nil
}
