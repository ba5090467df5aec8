package adapter

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/codec"
	"main/internal/gateway"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/ops"
	"main/internal/recorder"
	"main/internal/schema"
	"main/pkg/exception"
)

// fakeTransport scripts the broker side of the wire.
type fakeTransport struct {
	mu     sync.Mutex
	in     chan []byte
	sent   [][]byte
	closed chan struct{}
	once   sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:     make(chan []byte, 64),
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
	f.mu.Unlock()

	r := codec.NewReader(payload)
	if schema.MessageID(r.Int()) == schema.MsgConnect {
		f.deliver(codec.EncodeHandshakeAck(schema.HandshakeAck{ServerVersion: 176}))
		f.deliver(codec.EncodeNextValidID(schema.NextValidID{OrderID: 100}))
	}
	return nil
}

func (f *fakeTransport) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) deliver(payload []byte) {
	select {
	case f.in <- payload:
	case <-f.closed:
	}
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestAdapter(t *testing.T, ft *fakeTransport) *Adapter {
	t.Helper()
	loaded, err := ops.Load("")
	require.NoError(t, err)
	loaded.Gateway.ConnectTimeout = time.Second
	loaded.Gateway.AutoReconnect = false
	loaded.Gateway.Dial = func(context.Context) (gateway.Transport, error) {
		return ft, nil
	}
	loaded.SnapshotPath = ""

	a, err := New(loaded)
	require.NoError(t, err)
	return a
}

func connect(t *testing.T, a *Adapter) {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()
	require.NoError(t, a.Connect(ctx))
	t.Cleanup(func() { _ = a.Disconnect() })
}

func TestAdapterConnectLifecycle(t *testing.T) {
	ft := newFakeTransport()
	a := newTestAdapter(t, ft)

	assert.False(t, a.IsConnected())
	connect(t, a)
	assert.True(t, a.IsConnected())

	err := a.Connect(t.Context())
	assert.ErrorIs(t, err, exception.ErrAlreadyConnected)

	require.NoError(t, a.Disconnect())
	assert.False(t, a.IsConnected())
}

func TestAdapterOrderFlow(t *testing.T) {
	ft := newFakeTransport()
	a := newTestAdapter(t, ft)
	connect(t, a)

	contract, err := a.ResolveStock("AAPL", "", "")
	require.NoError(t, err)
	assert.Equal(t, "SMART", contract.Exchange)

	var mu sync.Mutex
	var seen []enum.OrderState
	orderID, err := a.PlaceOrder(model.Order{
		Contract:    contract,
		Side:        enum.OrderSideBuy,
		Quantity:    100,
		Kind:        enum.OrderKindLimit,
		LimitPrice:  150.25,
		TimeInForce: enum.TimeInForceDay,
	}, func(status model.OrderStatus) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, status.State)
	})
	require.NoError(t, err)

	rec, err := a.GetOrder(orderID)
	require.NoError(t, err)
	extID := rec.ExternalID

	ft.deliver(codec.EncodeOrderStatus(schema.OrderStatus{
		OrderID: extID, Status: schema.StatusSubmitted, Remaining: 100}))
	ft.deliver(codec.EncodeExecution(schema.Execution{
		OrderID: extID, ExecID: "e1", Quantity: 100, Price: 150.20, Time: time.Now().Unix()}))

	require.Eventually(t, func() bool {
		status, err := a.GetOrderStatus(orderID)
		return err == nil && status.State == enum.OrderStateFilled
	}, time.Second, 2*time.Millisecond)

	status, err := a.GetOrderStatus(orderID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, status.FilledQty)
	assert.Equal(t, 150.20, status.AvgPrice)

	mu.Lock()
	assert.Contains(t, seen, enum.OrderStateSubmitted)
	assert.Contains(t, seen, enum.OrderStateFilled)
	mu.Unlock()

	// Fills accumulate into the position book.
	require.Eventually(t, func() bool {
		return a.GetPosition("AAPL").Quantity == 100
	}, time.Second, 2*time.Millisecond)
	pos := a.GetPosition("AAPL")
	assert.Equal(t, 150.20, pos.AvgCost)
	assert.Len(t, a.GetPositions(), 1)

	snap := a.Metrics()
	assert.EqualValues(t, 1, snap.EventCounts[schema.EventOrderStatus])
	assert.EqualValues(t, 1, snap.EventCounts[schema.EventExecution])
}

func TestAdapterMarketDataFlow(t *testing.T) {
	ft := newFakeTransport()
	a := newTestAdapter(t, ft)
	connect(t, a)

	contract, err := a.ResolveStock("2330.TW", "", "")
	require.NoError(t, err)
	assert.Equal(t, "TWSE", contract.Exchange)
	assert.Equal(t, "TWD", contract.Currency)

	var mu sync.Mutex
	var last model.Snapshot
	reqID, err := a.SubscribeMarketData(contract, func(symbol string, snap model.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		last = snap
	})
	require.NoError(t, err)

	// The subscribe frame carries the returned request id.
	ft.mu.Lock()
	subFrame := ft.sent[len(ft.sent)-1]
	ft.mu.Unlock()
	r := codec.NewReader(subFrame)
	require.Equal(t, schema.MsgSubscribeMarketData, schema.MessageID(r.Int()))
	require.Equal(t, reqID, r.Int())

	ft.deliver(codec.EncodeTick(schema.Tick{RequestID: reqID, Field: schema.TickLastPrice, Value: 612.5}))

	require.Eventually(t, func() bool {
		snap, err := a.GetSnapshot(contract)
		return err == nil && snap.LastPrice == 612.5
	}, time.Second, 2*time.Millisecond)

	price, err := a.GetCurrentPrice(t.Context(), contract)
	require.NoError(t, err)
	assert.Equal(t, 612.5, price)

	mu.Lock()
	assert.Equal(t, 612.5, last.LastPrice)
	mu.Unlock()

	require.NoError(t, a.UnsubscribeMarketData(reqID))
	_, err = a.GetSnapshot(contract)
	assert.ErrorIs(t, err, exception.ErrSubscriptionNotFound)
}

func TestAdapterJournalsEvents(t *testing.T) {
	dir := t.TempDir()
	ft := newFakeTransport()

	loaded, err := ops.Load("")
	require.NoError(t, err)
	loaded.Gateway.AutoReconnect = false
	loaded.Gateway.Dial = func(context.Context) (gateway.Transport, error) {
		return ft, nil
	}
	loaded.Journal.Dir = dir
	loaded.JournalEnabled = true

	a, err := New(loaded)
	require.NoError(t, err)
	connect(t, a)

	ft.deliver(codec.EncodeTick(schema.Tick{RequestID: 1, Field: schema.TickLastPrice, Value: 1.0}))
	require.Eventually(t, func() bool {
		return a.Metrics().EventCounts[schema.EventTick] == 1
	}, time.Second, 2*time.Millisecond)

	require.NoError(t, a.Disconnect())

	p, err := recorder.NewPlayback(recorder.PlaybackConfig{Dir: dir})
	require.NoError(t, err)
	kinds := map[schema.EventKind]int{}
	require.NoError(t, p.Run(context.Background(), func(ev schema.Event) error {
		kinds[ev.Kind]++
		return nil
	}))
	assert.GreaterOrEqual(t, kinds[schema.EventHandshakeAck], 1)
	assert.GreaterOrEqual(t, kinds[schema.EventTick], 1)
}
