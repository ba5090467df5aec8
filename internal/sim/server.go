// Package sim is a simulated broker gateway for paper trading and
// integration testing. It speaks the real wire protocol over TCP:
// handshake, streaming ticks from a random walk, immediate two-part
// fills, and canned historical bars.
package sim

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/chaos"
	"main/internal/codec"
	"main/internal/schema"
	"main/pkg/conn"
)

// Config controls the simulated gateway.
type Config struct {
	Host string
	Port int // 0 picks an ephemeral port

	// TickInterval paces streaming quotes per subscription.
	TickInterval time.Duration
	// HistoricalBars is how many bars a historical request returns.
	HistoricalBars int
	// StartOrderID seeds the NextValidID handshake reply.
	StartOrderID int64
	// Seed fixes the price walk. 0 derives one from the clock.
	Seed int64
	// Chaos optionally perturbs the tick stream with drops, duplicates,
	// delays, and reordering.
	Chaos *chaos.Config
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 50 * time.Millisecond
	}
	if c.HistoricalBars <= 0 {
		c.HistoricalBars = 10
	}
	if c.StartOrderID <= 0 {
		c.StartOrderID = 1
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UTC().UnixNano()
	}
	return c
}

// Server is the simulated gateway. One Server accepts any number of
// client sessions.
type Server struct {
	cfg      Config
	listener net.Listener

	mu       sync.Mutex
	sessions map[*session]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// NewServer builds a server. Nothing listens until Start.
func NewServer(cfg Config) *Server {
	return &Server{
		cfg:      cfg.withDefaults(),
		sessions: make(map[*session]struct{}),
	}
}

// Start binds the listener and begins accepting sessions.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		return err
	}
	s.listener = l
	s.wg.Add(1)
	go s.acceptLoop()
	logs.Infof("sim gateway listening on %s", l.Addr())
	return nil
}

// Port returns the bound port. Only valid after Start.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Close stops the listener and drops every session.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	sessions := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for _, sess := range sessions {
		sess.close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		raw, err := s.listener.Accept()
		if err != nil {
			return
		}
		sess := newSession(s, conn.NewConn(raw, 0))

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			sess.close()
			return
		}
		s.sessions[sess] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sess.serve()
			s.mu.Lock()
			delete(s.sessions, sess)
			s.mu.Unlock()
		}()
	}
}

// session is one connected client.
type session struct {
	srv  *Server
	conn *conn.Conn

	mu          sync.Mutex
	nextOrderID int64
	orders      map[int64]schema.PlaceOrderRequest
	subs        map[int64]chan struct{}
	walks       map[string]*priceWalk
	execSeq     int64
	closed      bool
}

func newSession(srv *Server, c *conn.Conn) *session {
	return &session{
		srv:         srv,
		conn:        c,
		nextOrderID: srv.cfg.StartOrderID,
		orders:      make(map[int64]schema.PlaceOrderRequest),
		subs:        make(map[int64]chan struct{}),
		walks:       make(map[string]*priceWalk),
	}
}

func (ss *session) serve() {
	defer ss.close()
	for {
		payload, err := ss.conn.ReadFrame()
		if err != nil {
			return
		}
		if done := ss.handle(payload); done {
			return
		}
	}
}

func (ss *session) handle(payload []byte) bool {
	r := codec.NewReader(payload)
	msgID := schema.MessageID(r.Int())
	if r.Err() != nil {
		return false
	}

	switch msgID {
	case schema.MsgConnect:
		req, err := codec.DecodeConnect(r)
		if err != nil {
			return false
		}
		ss.handleConnect(req)
	case schema.MsgPlaceOrder:
		req, err := codec.DecodePlaceOrder(r)
		if err != nil {
			return false
		}
		ss.handlePlaceOrder(req)
	case schema.MsgCancelOrder:
		req, err := codec.DecodeCancelOrder(r)
		if err != nil {
			return false
		}
		ss.handleCancelOrder(req)
	case schema.MsgSubscribeMarketData:
		req, err := codec.DecodeSubscribeMarketData(r)
		if err != nil {
			return false
		}
		ss.handleSubscribe(req)
	case schema.MsgUnsubscribeMarketData:
		req, err := codec.DecodeUnsubscribeMarketData(r)
		if err != nil {
			return false
		}
		ss.handleUnsubscribe(req)
	case schema.MsgHistoricalData:
		req, err := codec.DecodeHistoricalData(r)
		if err != nil {
			return false
		}
		ss.handleHistorical(req)
	case schema.MsgDisconnect:
		return true
	default:
		ss.send(codec.EncodeServerError(schema.ServerError{
			Code:    321,
			Message: fmt.Sprintf("unsupported message id %d", msgID),
		}))
	}
	return false
}

func (ss *session) handleConnect(req schema.ConnectRequest) {
	logs.Infof("sim session connected, clientId: %d, version: %d", req.ClientID, req.ClientVersion)
	ss.send(codec.EncodeHandshakeAck(schema.HandshakeAck{
		ServerVersion: 176,
		ServerTime:    time.Now().UTC().Format(time.RFC3339),
	}))
	ss.mu.Lock()
	next := ss.nextOrderID
	ss.mu.Unlock()
	ss.send(codec.EncodeNextValidID(schema.NextValidID{OrderID: next}))
}

func (ss *session) send(payload []byte) {
	if err := ss.conn.WriteFrame(payload); err != nil {
		ss.close()
	}
}

func (ss *session) close() {
	ss.mu.Lock()
	if ss.closed {
		ss.mu.Unlock()
		return
	}
	ss.closed = true
	for _, stop := range ss.subs {
		close(stop)
	}
	ss.subs = make(map[int64]chan struct{})
	ss.mu.Unlock()
	_ = ss.conn.Close()
}
