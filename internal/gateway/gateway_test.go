package gateway

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/codec"
	"main/internal/schema"
	"main/pkg/exception"
)

// fakeTransport scripts the gateway side of the wire.
type fakeTransport struct {
	mu     sync.Mutex
	in     chan []byte
	sent   [][]byte
	closed chan struct{}
	once   sync.Once

	// onWrite lets a test react to client frames, e.g. answer the
	// handshake.
	onWrite func(payload []byte)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:     make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) ReadFrame() ([]byte, error) {
	select {
	case payload := <-f.in:
		return payload, nil
	case <-f.closed:
		return nil, io.ErrClosedPipe
	}
}

func (f *fakeTransport) WriteFrame(payload []byte) error {
	select {
	case <-f.closed:
		return io.ErrClosedPipe
	default:
	}
	f.mu.Lock()
	f.sent = append(f.sent, append([]byte(nil), payload...))
	onWrite := f.onWrite
	f.mu.Unlock()
	if onWrite != nil {
		onWrite(payload)
	}
	return nil
}

func (f *fakeTransport) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) deliver(payload []byte) {
	f.in <- payload
}

func (f *fakeTransport) answerHandshake(seed int64) {
	f.onWrite = func(payload []byte) {
		r := codec.NewReader(payload)
		if schema.MessageID(r.Int()) == schema.MsgConnect {
			f.deliver(codec.EncodeHandshakeAck(schema.HandshakeAck{ServerVersion: 176}))
			f.deliver(codec.EncodeNextValidID(schema.NextValidID{OrderID: seed}))
		}
	}
}

type recordingSink struct {
	mu          sync.Mutex
	events      []schema.Event
	disconnects int
}

func (s *recordingSink) OnEvent(ev schema.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) OnDisconnect(error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects++
}

func (s *recordingSink) disconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnects
}

func newTestClient(t *testing.T, ft *fakeTransport, mutate func(*Config)) (*Client, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	cfg := Config{
		Host:           "127.0.0.1",
		Port:           7496,
		ClientID:       1,
		ConnectTimeout: time.Second,
		Dial: func(context.Context) (Transport, error) {
			return ft, nil
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, sink), sink
}

func TestConnectHandshake(t *testing.T) {
	ft := newFakeTransport()
	ft.answerHandshake(100)
	client, _ := newTestClient(t, ft, nil)

	require.NoError(t, client.Connect(t.Context()))
	assert.True(t, client.IsConnected())

	assert.Equal(t, int64(100), client.NextOrderID())
	assert.Equal(t, int64(101), client.NextOrderID())

	require.NoError(t, client.Disconnect())
	assert.False(t, client.IsConnected())
}

func TestConnectTimeoutWithoutAck(t *testing.T) {
	ft := newFakeTransport()
	client, _ := newTestClient(t, ft, func(cfg *Config) {
		cfg.ConnectTimeout = 50 * time.Millisecond
	})

	err := client.Connect(t.Context())
	assert.ErrorIs(t, err, exception.ErrConnectTimeout)
	assert.False(t, client.IsConnected())
}

func TestConnectInvalidParameters(t *testing.T) {
	dialed := false
	sink := &recordingSink{}
	client := New(Config{
		Host: "127.0.0.1",
		Port: 0,
		Dial: func(context.Context) (Transport, error) {
			dialed = true
			return newFakeTransport(), nil
		},
	}, sink)

	err := client.Connect(t.Context())
	assert.ErrorIs(t, err, exception.ErrInvalidParameters)
	assert.False(t, dialed, "validation failure must not touch the socket")
}

func TestSendWhenDisconnected(t *testing.T) {
	client, _ := newTestClient(t, newFakeTransport(), nil)
	err := client.Send(codec.EncodeCancelOrder(schema.CancelOrderRequest{OrderID: 1}))
	assert.ErrorIs(t, err, exception.ErrNotConnected)
}

func TestReadLoopForwardsEvents(t *testing.T) {
	ft := newFakeTransport()
	ft.answerHandshake(1)
	client, sink := newTestClient(t, ft, nil)
	require.NoError(t, client.Connect(t.Context()))
	defer client.Disconnect()

	ft.deliver(codec.EncodeOrderStatus(schema.OrderStatus{OrderID: 1, Status: schema.StatusSubmitted}))

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		for _, ev := range sink.events {
			if ev.Kind == schema.EventOrderStatus {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestPeerDropNotifiesSink(t *testing.T) {
	ft := newFakeTransport()
	ft.answerHandshake(1)
	client, sink := newTestClient(t, ft, nil)
	require.NoError(t, client.Connect(t.Context()))

	// Simulate the gateway dropping the link.
	_ = ft.Close()

	require.Eventually(t, func() bool {
		return sink.disconnectCount() == 1 && !client.IsConnected()
	}, time.Second, 5*time.Millisecond)
}

func TestOrderIDNeverMovesBackward(t *testing.T) {
	ft := newFakeTransport()
	ft.answerHandshake(100)
	client, _ := newTestClient(t, ft, nil)
	require.NoError(t, client.Connect(t.Context()))
	defer client.Disconnect()

	for i := 0; i < 5; i++ {
		client.NextOrderID()
	}
	// A reconnect delivering a lower floor must not rewind the counter.
	ft.deliver(codec.EncodeNextValidID(schema.NextValidID{OrderID: 3}))

	require.Eventually(t, func() bool {
		return client.NextOrderID() >= 105
	}, time.Second, 5*time.Millisecond)
}
