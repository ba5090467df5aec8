// Package order owns the authoritative order state machine, the
// internal/external id translation, and the submit/cancel/modify
// operations. All record mutation happens under one mutex; caller
// callbacks are always invoked with the lock released.
package order

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/codec"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/schema"
	"main/pkg/exception"
)

// Gateway is the sending surface the manager needs from the gateway client.
type Gateway interface {
	IsConnected() bool
	NextOrderID() int64
	Send(payload []byte) error
}

// PreTradeChecker validates an order before it reaches the wire.
type PreTradeChecker interface {
	Check(ord model.Order) error
}

// Callback receives order status snapshots after each lifecycle change.
type Callback func(status model.OrderStatus)

// Filter narrows ListOrders results. Zero value matches everything.
type Filter struct {
	Symbol   string
	State    enum.OrderState
	OpenOnly bool
}

// Manager is the order manager.
type Manager struct {
	gw      Gateway
	checker PreTradeChecker

	mu        sync.Mutex
	records   map[string]*model.OrderRecord
	extToInt  map[int64]string
	execToInt map[string]string
	callbacks map[string]Callback
}

// NewManager builds an order manager. checker may be nil to disable
// pre-trade checks.
func NewManager(gw Gateway, checker PreTradeChecker) *Manager {
	return &Manager{
		gw:        gw,
		checker:   checker,
		records:   make(map[string]*model.OrderRecord),
		extToInt:  make(map[int64]string),
		execToInt: make(map[string]string),
		callbacks: make(map[string]Callback),
	}
}

func validateOrder(ord model.Order) error {
	if ord.Contract.Symbol == "" {
		return errors.Wrap(exception.ErrOrderInvalid, "empty symbol")
	}
	if ord.Quantity <= 0 {
		return errors.Wrap(exception.ErrOrderInvalid, "quantity must be positive").With("qty", ord.Quantity)
	}
	if !ord.Side.IsAvailable() {
		return errors.Wrap(exception.ErrOrderInvalid, "unknown side")
	}
	if !ord.Kind.IsAvailable() {
		return errors.Wrap(exception.ErrOrderInvalid, "unknown order kind")
	}
	if ord.Kind.RequiresLimitPrice() && ord.LimitPrice <= 0 {
		return errors.Wrap(exception.ErrOrderInvalid, "limit price must be positive").With("limitPrice", ord.LimitPrice)
	}
	if ord.Kind.RequiresStopPrice() && ord.StopPrice <= 0 {
		return errors.Wrap(exception.ErrOrderInvalid, "stop price must be positive").With("stopPrice", ord.StopPrice)
	}
	return nil
}

// PlaceOrder validates, records and submits an order. It does not wait for
// gateway acknowledgment: the returned id is immediately usable with
// GetOrderStatus, and later failures surface through the callback.
func (m *Manager) PlaceOrder(ord model.Order, cb Callback) (string, error) {
	if ord.TimeInForce == 0 {
		ord.TimeInForce = enum.TimeInForceDay
	}
	if err := validateOrder(ord); err != nil {
		return "", err
	}
	if m.checker != nil {
		if err := m.checker.Check(ord); err != nil {
			return "", err
		}
	}
	if !m.gw.IsConnected() {
		return "", exception.ErrNotConnected
	}

	externalID := m.gw.NextOrderID()
	internalID := uuid.NewString()
	record := &model.OrderRecord{
		InternalID: internalID,
		ExternalID: externalID,
		Order:      ord,
		State:      enum.OrderStatePending,
		UpdatedAt:  time.Now().UTC(),
	}

	m.mu.Lock()
	m.records[internalID] = record
	m.extToInt[externalID] = internalID
	if cb != nil {
		m.callbacks[internalID] = cb
	}
	m.mu.Unlock()

	if err := m.gw.Send(codec.EncodePlaceOrder(ord.PlaceRequest(externalID))); err != nil {
		m.mu.Lock()
		delete(m.records, internalID)
		delete(m.extToInt, externalID)
		delete(m.callbacks, internalID)
		m.mu.Unlock()
		return "", errors.Wrap(err, "submit order")
	}

	logs.Infof("order placed, id: %s, ext: %d, %s %s %v %s",
		internalID, externalID, ord.Side, ord.Kind, ord.Quantity, ord.Contract.LocalSymbol())
	return internalID, nil
}

// CancelOrder dispatches a cancel request. Completion is observed through
// the order's status events; the gateway may still fill the order.
func (m *Manager) CancelOrder(orderID string) error {
	m.mu.Lock()
	record, ok := m.records[orderID]
	if !ok {
		m.mu.Unlock()
		return exception.ErrOrderNotFound
	}
	if record.State.IsTerminal() {
		m.mu.Unlock()
		return exception.ErrOrderAlreadyTerminal
	}
	externalID := record.ExternalID
	m.mu.Unlock()

	if err := m.gw.Send(codec.EncodeCancelOrder(schema.CancelOrderRequest{OrderID: externalID})); err != nil {
		return errors.Wrap(err, "cancel order").With("orderId", orderID)
	}
	return nil
}

// ModifyOrder re-submits the order with the same external id and updated
// fields. Preconditions match CancelOrder.
func (m *Manager) ModifyOrder(orderID string, fields model.OrderFields) error {
	m.mu.Lock()
	record, ok := m.records[orderID]
	if !ok {
		m.mu.Unlock()
		return exception.ErrOrderNotFound
	}
	if record.State.IsTerminal() {
		m.mu.Unlock()
		return exception.ErrOrderAlreadyTerminal
	}

	updated := record.Order
	if fields.Quantity != nil {
		updated.Quantity = *fields.Quantity
	}
	if fields.LimitPrice != nil {
		updated.LimitPrice = *fields.LimitPrice
	}
	if fields.StopPrice != nil {
		updated.StopPrice = *fields.StopPrice
	}
	externalID := record.ExternalID
	m.mu.Unlock()

	if err := validateOrder(updated); err != nil {
		return err
	}
	if err := m.gw.Send(codec.EncodePlaceOrder(updated.PlaceRequest(externalID))); err != nil {
		return errors.Wrap(err, "modify order").With("orderId", orderID)
	}

	m.mu.Lock()
	// Re-check: the order may have gone terminal while the wire call was
	// in flight. The gateway's reply will settle the final truth.
	if current, ok := m.records[orderID]; ok && !current.State.IsTerminal() {
		current.Order = updated
		current.UpdatedAt = time.Now().UTC()
	}
	m.mu.Unlock()
	return nil
}

// GetOrderStatus returns the caller-facing snapshot.
func (m *Manager) GetOrderStatus(orderID string) (model.OrderStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[orderID]
	if !ok {
		return model.OrderStatus{}, exception.ErrOrderNotFound
	}
	return record.Status(), nil
}

// GetOrder returns a deep copy of the full record.
func (m *Manager) GetOrder(orderID string) (model.OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[orderID]
	if !ok {
		return model.OrderRecord{}, exception.ErrOrderNotFound
	}
	return record.Clone(), nil
}

// ListOrders returns copies of every record matching the filter.
func (m *Manager) ListOrders(filter Filter) []model.OrderRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.OrderRecord, 0, len(m.records))
	for _, record := range m.records {
		if filter.Symbol != "" && record.Order.Contract.Symbol != filter.Symbol {
			continue
		}
		if filter.State != 0 && record.State != filter.State {
			continue
		}
		if filter.OpenOnly && record.State.IsTerminal() {
			continue
		}
		out = append(out, record.Clone())
	}
	return out
}
