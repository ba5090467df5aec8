package order

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/schema"
	"main/pkg/exception"
)

type fakeGateway struct {
	mu        sync.Mutex
	connected bool
	nextID    int64
	sent      [][]byte
	sendErr   error
}

func (g *fakeGateway) IsConnected() bool { return g.connected }

func (g *fakeGateway) NextOrderID() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	return id
}

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

func limitBuy(symbol string, qty, price float64) model.Order {
	return model.Order{
		Contract: model.Contract{
			Symbol:       symbol,
			SecurityType: enum.SecurityTypeStock,
			Exchange:     "SMART",
			Currency:     "USD",
		},
		Side:       enum.OrderSideBuy,
		Quantity:   qty,
		Kind:       enum.OrderKindLimit,
		LimitPrice: price,
	}
}

func TestPlaceOrderValidation(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true, nextID: 1}
	m := NewManager(gw, nil)

	_, err := m.PlaceOrder(model.Order{}, nil)
	require.ErrorIs(t, err, exception.ErrOrderInvalid)

	ord := limitBuy("AAPL", 0, 150.25)
	_, err = m.PlaceOrder(ord, nil)
	require.ErrorIs(t, err, exception.ErrOrderInvalid)

	ord = limitBuy("AAPL", 100, 0)
	_, err = m.PlaceOrder(ord, nil)
	require.ErrorIs(t, err, exception.ErrOrderInvalid)

	assert.Zero(t, gw.sentCount())
}

func TestPlaceOrderDisconnected(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: false, nextID: 1}
	m := NewManager(gw, nil)

	_, err := m.PlaceOrder(limitBuy("AAPL", 100, 150.25), nil)
	require.ErrorIs(t, err, exception.ErrNotConnected)
}

func TestPlaceOrderLifecycle(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true, nextID: 7}
	m := NewManager(gw, nil)

	var updates []model.OrderStatus
	id, err := m.PlaceOrder(limitBuy("AAPL", 100, 150.25), func(st model.OrderStatus) {
		updates = append(updates, st)
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.Equal(t, 1, gw.sentCount())

	status, err := m.GetOrderStatus(id)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatePending, status.State)
	assert.EqualValues(t, 7, status.ExternalID)
	assert.EqualValues(t, 100, status.RemainingQty)

	ok := m.ApplyStatus(schema.OrderStatus{OrderID: 7, Status: schema.StatusSubmitted})
	require.True(t, ok)

	// Partial fill of 40 at 150.20.
	_, _, ok = m.ApplyExecution(schema.Execution{OrderID: 7, ExecID: "e1", Quantity: 40, Price: 150.20})
	require.True(t, ok)
	status, err = m.GetOrderStatus(id)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatePartiallyFilled, status.State)
	assert.EqualValues(t, 40, status.FilledQty)
	assert.EqualValues(t, 60, status.RemainingQty)
	assert.InDelta(t, 150.20, status.AvgPrice, 1e-9)

	// Remaining 60 at 150.25, order completes at the volume weighted price.
	_, _, ok = m.ApplyExecution(schema.Execution{OrderID: 7, ExecID: "e2", Quantity: 60, Price: 150.25})
	require.True(t, ok)
	status, err = m.GetOrderStatus(id)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStateFilled, status.State)
	assert.EqualValues(t, 100, status.FilledQty)
	assert.Zero(t, status.RemainingQty)
	assert.InDelta(t, (40*150.20+60*150.25)/100, status.AvgPrice, 1e-9)

	require.Len(t, updates, 3)
	assert.Equal(t, enum.OrderStateFilled, updates[2].State)
}

func TestFilledQuantityMonotoneAndCapped(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true, nextID: 1}
	m := NewManager(gw, nil)

	id, err := m.PlaceOrder(limitBuy("AAPL", 50, 10), nil)
	require.NoError(t, err)

	require.True(t, m.ApplyStatus(schema.OrderStatus{OrderID: 1, Status: schema.StatusPartialFilled, FilledQty: 30, AvgPrice: 10}))
	require.True(t, m.ApplyStatus(schema.OrderStatus{OrderID: 1, Status: schema.StatusPartialFilled, FilledQty: 20, AvgPrice: 10}))

	status, err := m.GetOrderStatus(id)
	require.NoError(t, err)
	assert.EqualValues(t, 30, status.FilledQty, "stale smaller fill must not regress the count")

	// Over-reported fill is capped at the order quantity.
	require.True(t, m.ApplyStatus(schema.OrderStatus{OrderID: 1, Status: schema.StatusPartialFilled, FilledQty: 80, AvgPrice: 10}))
	status, err = m.GetOrderStatus(id)
	require.NoError(t, err)
	assert.EqualValues(t, 50, status.FilledQty)
}

func TestTerminalStateAbsorbsEvents(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true, nextID: 1}
	m := NewManager(gw, nil)

	id, err := m.PlaceOrder(limitBuy("MSFT", 10, 300), nil)
	require.NoError(t, err)

	require.True(t, m.ApplyStatus(schema.OrderStatus{OrderID: 1, Status: schema.StatusFilled, FilledQty: 10, AvgPrice: 300}))

	// A late Submitted must not resurrect the order.
	require.True(t, m.ApplyStatus(schema.OrderStatus{OrderID: 1, Status: schema.StatusSubmitted}))
	status, err := m.GetOrderStatus(id)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStateFilled, status.State)
}

func TestCancelledStatusIsTerminal(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true, nextID: 1}
	m := NewManager(gw, nil)

	var updates []model.OrderStatus
	id, err := m.PlaceOrder(limitBuy("AAPL", 10, 150), func(st model.OrderStatus) {
		updates = append(updates, st)
	})
	require.NoError(t, err)

	require.True(t, m.ApplyStatus(schema.OrderStatus{OrderID: 1, Status: schema.StatusSubmitted}))
	require.True(t, m.ApplyStatus(schema.OrderStatus{OrderID: 1, Status: schema.StatusCancelled, Remaining: 10}))

	status, err := m.GetOrderStatus(id)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStateCancelled, status.State)
	assert.Zero(t, status.FilledQty)

	// A late status must not resurrect the cancelled order, and the
	// absorbed event reaches no callback.
	require.True(t, m.ApplyStatus(schema.OrderStatus{OrderID: 1, Status: schema.StatusSubmitted}))
	status, err = m.GetOrderStatus(id)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStateCancelled, status.State)
	require.Len(t, updates, 2)
	assert.Equal(t, enum.OrderStateCancelled, updates[1].State)

	before := gw.sentCount()
	require.ErrorIs(t, m.CancelOrder(id), exception.ErrOrderAlreadyTerminal)
	assert.Equal(t, before, gw.sentCount())
}

func TestRejectedStatusIsTerminal(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true, nextID: 1}
	m := NewManager(gw, nil)

	var updates []model.OrderStatus
	id, err := m.PlaceOrder(limitBuy("AAPL", 10, 150), func(st model.OrderStatus) {
		updates = append(updates, st)
	})
	require.NoError(t, err)

	// A rejection can land straight from Pending, before any Submitted.
	require.True(t, m.ApplyStatus(schema.OrderStatus{OrderID: 1, Status: schema.StatusRejected}))

	status, err := m.GetOrderStatus(id)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStateRejected, status.State)

	// Absorbed after rejection.
	require.True(t, m.ApplyStatus(schema.OrderStatus{OrderID: 1, Status: schema.StatusPartialFilled, FilledQty: 5}))
	status, err = m.GetOrderStatus(id)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStateRejected, status.State)
	assert.Zero(t, status.FilledQty)
	require.Len(t, updates, 1)

	require.ErrorIs(t, m.CancelOrder(id), exception.ErrOrderAlreadyTerminal)
}

func TestCancelAfterFilled(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true, nextID: 1}
	m := NewManager(gw, nil)

	id, err := m.PlaceOrder(limitBuy("AAPL", 10, 150), nil)
	require.NoError(t, err)
	require.True(t, m.ApplyStatus(schema.OrderStatus{OrderID: 1, Status: schema.StatusFilled, FilledQty: 10, AvgPrice: 150}))

	before := gw.sentCount()
	err = m.CancelOrder(id)
	require.ErrorIs(t, err, exception.ErrOrderAlreadyTerminal)
	assert.Equal(t, before, gw.sentCount(), "terminal cancel must not reach the wire")
}

func TestConcurrentCancelOnFilled(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true, nextID: 1}
	m := NewManager(gw, nil)

	id, err := m.PlaceOrder(limitBuy("AAPL", 10, 150), nil)
	require.NoError(t, err)
	require.True(t, m.ApplyStatus(schema.OrderStatus{OrderID: 1, Status: schema.StatusFilled, FilledQty: 10, AvgPrice: 150}))

	before := gw.sentCount()
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.CancelOrder(id)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.ErrorIs(t, err, exception.ErrOrderAlreadyTerminal)
	}
	assert.Equal(t, before, gw.sentCount())
}

func TestCancelUnknownOrder(t *testing.T) {
	t.Parallel()

	m := NewManager(&fakeGateway{connected: true}, nil)
	require.ErrorIs(t, m.CancelOrder("nope"), exception.ErrOrderNotFound)
}

func TestModifyOrder(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true, nextID: 1}
	m := NewManager(gw, nil)

	id, err := m.PlaceOrder(limitBuy("AAPL", 100, 150.25), nil)
	require.NoError(t, err)

	newPrice := 151.00
	require.NoError(t, m.ModifyOrder(id, model.OrderFields{LimitPrice: &newPrice}))
	assert.Equal(t, 2, gw.sentCount(), "modify re-submits with the same external id")

	record, err := m.GetOrder(id)
	require.NoError(t, err)
	assert.InDelta(t, 151.00, record.Order.LimitPrice, 1e-9)
	assert.EqualValues(t, 1, record.ExternalID)

	bad := -5.0
	require.ErrorIs(t, m.ModifyOrder(id, model.OrderFields{LimitPrice: &bad}), exception.ErrOrderInvalid)
}

func TestApplyStatusUnknownExternalID(t *testing.T) {
	t.Parallel()

	m := NewManager(&fakeGateway{connected: true}, nil)
	assert.False(t, m.ApplyStatus(schema.OrderStatus{OrderID: 999, Status: schema.StatusSubmitted}))
	_, _, ok := m.ApplyExecution(schema.Execution{OrderID: 999, ExecID: "x"})
	assert.False(t, ok)
	assert.False(t, m.ApplyCommission(schema.Commission{ExecID: "x"}))
}

func TestApplyCommission(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true, nextID: 1}
	m := NewManager(gw, nil)

	id, err := m.PlaceOrder(limitBuy("AAPL", 10, 150), nil)
	require.NoError(t, err)
	_, _, ok := m.ApplyExecution(schema.Execution{OrderID: 1, ExecID: "e1", Quantity: 10, Price: 150})
	require.True(t, ok)
	require.True(t, m.ApplyCommission(schema.Commission{ExecID: "e1", Commission: 1.25, RealizedPnL: 42}))

	record, err := m.GetOrder(id)
	require.NoError(t, err)
	require.Len(t, record.Executions, 1)
	assert.InDelta(t, 1.25, record.Executions[0].Commission, 1e-9)
	assert.InDelta(t, 42, record.Executions[0].RealizedPnL, 1e-9)
}

func TestAttachError(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true, nextID: 5}
	m := NewManager(gw, nil)

	var last model.OrderStatus
	id, err := m.PlaceOrder(limitBuy("AAPL", 10, 150), func(st model.OrderStatus) { last = st })
	require.NoError(t, err)

	require.True(t, m.AttachError(5, 201, "order rejected: insufficient margin"))
	assert.Contains(t, last.LastError, "insufficient margin")

	status, err := m.GetOrderStatus(id)
	require.NoError(t, err)
	assert.Contains(t, status.LastError, "insufficient margin")
}

func TestListOrders(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true, nextID: 1}
	m := NewManager(gw, nil)

	aapl, err := m.PlaceOrder(limitBuy("AAPL", 10, 150), nil)
	require.NoError(t, err)
	_, err = m.PlaceOrder(limitBuy("MSFT", 5, 300), nil)
	require.NoError(t, err)

	require.True(t, m.ApplyStatus(schema.OrderStatus{OrderID: 1, Status: schema.StatusFilled, FilledQty: 10, AvgPrice: 150}))

	all := m.ListOrders(Filter{})
	assert.Len(t, all, 2)

	open := m.ListOrders(Filter{OpenOnly: true})
	require.Len(t, open, 1)
	assert.Equal(t, "MSFT", open[0].Order.Contract.Symbol)

	bySym := m.ListOrders(Filter{Symbol: "AAPL"})
	require.Len(t, bySym, 1)
	assert.Equal(t, aapl, bySym[0].InternalID)

	filled := m.ListOrders(Filter{State: enum.OrderStateFilled})
	assert.Len(t, filled, 1)
}

type rejectAllChecker struct{}

func (rejectAllChecker) Check(model.Order) error { return exception.ErrOrderRiskRejected }

func TestPreTradeCheckerBlocksSubmit(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{connected: true, nextID: 1}
	m := NewManager(gw, rejectAllChecker{})

	_, err := m.PlaceOrder(limitBuy("AAPL", 10, 150), nil)
	require.ErrorIs(t, err, exception.ErrOrderRiskRejected)
	assert.Zero(t, gw.sentCount())
}
