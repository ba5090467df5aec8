package marketdata

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/codec"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/schema"
	"main/pkg/exception"
)

type fakeGateway struct {
	mu        sync.Mutex
	connected bool
	sent      [][]byte
	sendErr   error
}

func (g *fakeGateway) IsConnected() bool { return g.connected }

func (g *fakeGateway) Send(payload []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return g.sendErr
	}
	g.sent = append(g.sent, payload)
	return nil
}

func (g *fakeGateway) sentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

func stock(symbol string) model.Contract {
	return model.Contract{
		Symbol:       symbol,
		SecurityType: enum.SecurityTypeStock,
		Exchange:     "SMART",
		Currency:     "USD",
	}
}

func newTestManager(gw *fakeGateway, timeout time.Duration) *Manager {
	return NewManager(gw, obs.NewRequestIDGenerator(100), timeout)
}

// requestIDOf decodes the last sent frame's request id field.
func requestIDOf(t *testing.T, gw *fakeGateway) int64 {
	t.Helper()
	gw.mu.Lock()
	defer gw.mu.Unlock()
	require.NotEmpty(t, gw.sent)
	r := codec.NewReader(gw.sent[len(gw.sent)-1])
	_ = r.Int() // message id
	id := r.Int()
	require.NoError(t, r.Err())
	return id
}

func TestSubscribeSharesWireSubscription(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true}
	m := newTestManager(gw, time.Second)

	first, err := m.Subscribe(stock("AAPL"), nil)
	require.NoError(t, err)
	second, err := m.Subscribe(stock("AAPL"), nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "each subscriber owns its own id")
	assert.Equal(t, 1, gw.sentCount(), "second subscribe must not hit the wire")
	assert.Len(t, m.ListSubscriptions(), 1)
}

func TestUnsubscribeKeepsOtherSubscribers(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true}
	m := newTestManager(gw, time.Second)

	var got []model.Snapshot
	first, err := m.Subscribe(stock("AAPL"), func(symbol string, snap model.Snapshot) {
		got = append(got, snap)
	})
	require.NoError(t, err)
	wireID := requestIDOf(t, gw)
	second, err := m.Subscribe(stock("AAPL"), nil)
	require.NoError(t, err)

	// The second subscriber leaving must not touch the first one's feed.
	require.NoError(t, m.Unsubscribe(second))
	assert.Equal(t, 1, gw.sentCount(), "wire subscription stays up")
	_, err = m.GetSnapshot(stock("AAPL"))
	require.NoError(t, err)
	require.True(t, m.ApplyTick(schema.Tick{RequestID: wireID, Field: schema.TickLastPrice, Value: 150.25}))
	assert.Len(t, got, 1)

	// The last subscriber leaving tears the wire subscription down.
	require.NoError(t, m.Unsubscribe(first))
	assert.Equal(t, 2, gw.sentCount())
	_, err = m.GetSnapshot(stock("AAPL"))
	require.ErrorIs(t, err, exception.ErrSubscriptionNotFound)
}

func TestTickFansOutToAllSubscribers(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true}
	m := newTestManager(gw, time.Second)

	var a, b int
	_, err := m.Subscribe(stock("AAPL"), func(string, model.Snapshot) { a++ })
	require.NoError(t, err)
	wireID := requestIDOf(t, gw)
	_, err = m.Subscribe(stock("AAPL"), func(string, model.Snapshot) { b++ })
	require.NoError(t, err)

	require.True(t, m.ApplyTick(schema.Tick{RequestID: wireID, Field: schema.TickLastPrice, Value: 1}))
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestSubscribeDisconnected(t *testing.T) {
	t.Parallel()

	m := newTestManager(&fakeGateway{connected: false}, time.Second)
	_, err := m.Subscribe(stock("AAPL"), nil)
	require.ErrorIs(t, err, exception.ErrNotConnected)
}

func TestUnsubscribeUnknownIsNoop(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true}
	m := newTestManager(gw, time.Second)
	require.NoError(t, m.Unsubscribe(12345))
	assert.Zero(t, gw.sentCount())
}

func TestTickUpdatesSnapshotAndCallback(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true}
	m := newTestManager(gw, time.Second)

	var got []model.Snapshot
	reqID, err := m.Subscribe(stock("AAPL"), func(symbol string, snap model.Snapshot) {
		assert.Equal(t, "AAPL", symbol)
		got = append(got, snap)
	})
	require.NoError(t, err)
	assert.Equal(t, reqID, requestIDOf(t, gw), "wire frame carries the returned request id")

	require.True(t, m.ApplyTick(schema.Tick{RequestID: reqID, Field: schema.TickBidPrice, Value: 150.20}))
	require.True(t, m.ApplyTick(schema.Tick{RequestID: reqID, Field: schema.TickAskPrice, Value: 150.30}))
	require.True(t, m.ApplyTick(schema.Tick{RequestID: reqID, Field: schema.TickLastPrice, Value: 150.25}))

	snap, err := m.GetSnapshot(stock("AAPL"))
	require.NoError(t, err)
	assert.InDelta(t, 150.20, snap.BidPrice, 1e-9)
	assert.InDelta(t, 150.30, snap.AskPrice, 1e-9)
	assert.InDelta(t, 150.25, snap.LastPrice, 1e-9)
	assert.Len(t, got, 3)

	price, err := m.GetCurrentPrice(t.Context(), stock("AAPL"))
	require.NoError(t, err)
	assert.InDelta(t, 150.25, price, 1e-9, "mid of bid/ask wins over last")
}

func TestTickAfterUnsubscribeDropped(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true}
	m := newTestManager(gw, time.Second)

	reqID, err := m.Subscribe(stock("AAPL"), nil)
	require.NoError(t, err)
	require.NoError(t, m.Unsubscribe(reqID))

	assert.False(t, m.ApplyTick(schema.Tick{RequestID: reqID, Field: schema.TickLastPrice, Value: 1}))
}

func TestGetCurrentPriceUnavailable(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true}
	m := newTestManager(gw, time.Second)
	m.priceWait = 30 * time.Millisecond

	// No subscription and no ticks: the temporary subscription times out
	// and is torn down again.
	_, err := m.GetCurrentPrice(t.Context(), stock("AAPL"))
	require.ErrorIs(t, err, exception.ErrPriceUnavailable)
	assert.Empty(t, m.ListSubscriptions())

	// Subscribed but silent.
	_, err = m.Subscribe(stock("AAPL"), nil)
	require.NoError(t, err)
	_, err = m.GetCurrentPrice(t.Context(), stock("AAPL"))
	require.ErrorIs(t, err, exception.ErrPriceUnavailable)
	assert.Len(t, m.ListSubscriptions(), 1, "the caller's subscription survives")
}

func TestGetCurrentPriceTemporarySubscription(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true}
	m := newTestManager(gw, time.Second)

	var (
		price float64
		err   error
		done  = make(chan struct{})
	)
	go func() {
		defer close(done)
		price, err = m.GetCurrentPrice(t.Context(), stock("AAPL"))
	}()

	require.Eventually(t, func() bool { return gw.sentCount() == 1 }, time.Second, time.Millisecond)
	require.True(t, m.ApplyTick(schema.Tick{RequestID: requestIDOf(t, gw), Field: schema.TickLastPrice, Value: 99.5}))

	<-done
	require.NoError(t, err)
	assert.InDelta(t, 99.5, price, 1e-9)
	assert.Empty(t, m.ListSubscriptions(), "temporary subscription is torn down")
}

func TestHistoricalBars(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true}
	m := newTestManager(gw, time.Second)

	var (
		bars []model.HistoricalBar
		err  error
		done = make(chan struct{})
	)
	go func() {
		defer close(done)
		bars, err = m.GetHistoricalBars(t.Context(), stock("AAPL"), "1 D", "5 mins", "TRADES", true)
	}()

	var reqID int64
	require.Eventually(t, func() bool { return gw.sentCount() == 1 }, time.Second, time.Millisecond)
	reqID = requestIDOf(t, gw)

	require.True(t, m.ApplyHistoricalBar(schema.HistoricalBar{RequestID: reqID, Time: 1700000000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}))
	require.True(t, m.ApplyHistoricalBar(schema.HistoricalBar{RequestID: reqID, Time: 1700000300, Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 20}))
	require.True(t, m.ApplyHistoricalEnd(schema.HistoricalEnd{RequestID: reqID, BarCount: 2}))

	<-done
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.InDelta(t, 1.5, bars[0].Close, 1e-9)
	assert.True(t, bars[1].Time.After(bars[0].Time))
}

func TestHistoricalBarsEmptySeries(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true}
	m := newTestManager(gw, time.Second)

	var (
		bars []model.HistoricalBar
		err  error
		done = make(chan struct{})
	)
	go func() {
		defer close(done)
		bars, err = m.GetHistoricalBars(t.Context(), stock("AAPL"), "1 D", "5 mins", "TRADES", true)
	}()

	require.Eventually(t, func() bool { return gw.sentCount() == 1 }, time.Second, time.Millisecond)
	require.True(t, m.ApplyHistoricalEnd(schema.HistoricalEnd{RequestID: requestIDOf(t, gw), BarCount: 0}))

	<-done
	require.ErrorIs(t, err, exception.ErrHistoricalDataEmpty)
	assert.Empty(t, bars)
}

func TestHistoricalBarsTimeout(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true}
	m := newTestManager(gw, 20*time.Millisecond)

	_, err := m.GetHistoricalBars(t.Context(), stock("AAPL"), "1 D", "5 mins", "TRADES", true)
	require.ErrorIs(t, err, exception.ErrHistoricalDataTimeout)

	// Late bars after the timeout are ignored.
	reqID := requestIDOf(t, gw)
	assert.False(t, m.ApplyHistoricalBar(schema.HistoricalBar{RequestID: reqID}))
	assert.False(t, m.ApplyHistoricalEnd(schema.HistoricalEnd{RequestID: reqID}))
}

func TestHistoricalBarsRejected(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true}
	m := newTestManager(gw, time.Second)

	var (
		err  error
		done = make(chan struct{})
	)
	go func() {
		defer close(done)
		_, err = m.GetHistoricalBars(t.Context(), stock("AAPL"), "1 D", "5 mins", "TRADES", true)
	}()

	require.Eventually(t, func() bool { return gw.sentCount() == 1 }, time.Second, time.Millisecond)
	require.True(t, m.FailRequest(requestIDOf(t, gw), 2103, "no data permissions"))

	<-done
	require.ErrorIs(t, err, exception.ErrHistoricalDataRejected)
}

func TestDisconnectFailsPendingHistorical(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true}
	m := newTestManager(gw, time.Second)

	var (
		err  error
		done = make(chan struct{})
	)
	go func() {
		defer close(done)
		_, err = m.GetHistoricalBars(t.Context(), stock("AAPL"), "1 D", "5 mins", "TRADES", true)
	}()

	require.Eventually(t, func() bool { return gw.sentCount() == 1 }, time.Second, time.Millisecond)
	m.OnDisconnect(assert.AnError)

	<-done
	require.ErrorIs(t, err, exception.ErrNotConnected)
}

func TestResubscribeAll(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true}
	m := newTestManager(gw, time.Second)

	_, err := m.Subscribe(stock("AAPL"), nil)
	require.NoError(t, err)
	_, err = m.Subscribe(stock("MSFT"), nil)
	require.NoError(t, err)
	require.Equal(t, 2, gw.sentCount())

	m.ResubscribeAll()
	assert.Equal(t, 4, gw.sentCount())
}
