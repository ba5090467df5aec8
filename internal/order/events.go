package order

import (
	"time"

	"github.com/yanun0323/logs"

	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/schema"
)

// ApplyStatus applies a gateway order status event. Returns false when the
// external id is unknown (orders placed by other sessions); the caller
// logs and drops those. Terminal orders absorb every later event.
func (m *Manager) ApplyStatus(ev schema.OrderStatus) bool {
	m.mu.Lock()
	internalID, ok := m.extToInt[ev.OrderID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	record := m.records[internalID]
	if record.State.IsTerminal() {
		m.mu.Unlock()
		return true
	}

	if next, known := stateFromStatus(ev.Status); known {
		if canTransition(record.State, next) {
			record.State = next
		} else if record.State != next {
			logs.Warnf("ignore illegal order transition %s -> %s, id: %s", record.State, next, internalID)
		}
	} else {
		logs.Warnf("unknown gateway order status %q, id: %s", ev.Status, internalID)
	}

	// Filled quantity is monotone and capped at the requested quantity.
	if ev.FilledQty > record.FilledQty {
		record.FilledQty = min(ev.FilledQty, record.Order.Quantity)
	}
	if ev.AvgPrice > 0 {
		record.AvgPrice = ev.AvgPrice
	}
	record.UpdatedAt = time.Now().UTC()

	cb := m.callbacks[internalID]
	status := record.Status()
	m.mu.Unlock()

	if cb != nil {
		cb(status)
	}
	return true
}

// ApplyExecution appends a fill to the matching record and accumulates
// filled quantity, promoting the state when fills sum to the full order.
// The originating order is returned so callers can attribute the fill.
func (m *Manager) ApplyExecution(ev schema.Execution) (model.Execution, model.Order, bool) {
	m.mu.Lock()
	internalID, ok := m.extToInt[ev.OrderID]
	if !ok {
		m.mu.Unlock()
		return model.Execution{}, model.Order{}, false
	}
	record := m.records[internalID]

	exec := model.Execution{
		ExecID:    ev.ExecID,
		Time:      time.Unix(ev.Time, 0).UTC(),
		Quantity:  ev.Quantity,
		Price:     ev.Price,
		Liquidity: ev.Liquidity,
	}
	record.Executions = append(record.Executions, exec)
	m.execToInt[ev.ExecID] = internalID

	if !record.State.IsTerminal() && ev.Quantity > 0 {
		filled := record.FilledQty + ev.Quantity
		if filled > record.Order.Quantity {
			filled = record.Order.Quantity
		}
		record.FilledQty = filled
		record.AvgPrice = vwap(record.Executions)
		if filled >= record.Order.Quantity {
			record.State = enum.OrderStateFilled
		} else {
			record.State = enum.OrderStatePartiallyFilled
		}
	}
	record.UpdatedAt = exec.Time

	cb := m.callbacks[internalID]
	status := record.Status()
	ord := record.Order
	m.mu.Unlock()

	if cb != nil {
		cb(status)
	}
	return exec, ord, true
}

// ApplyCommission attaches fees and realized PnL to a previously seen
// execution, matched by execution id.
func (m *Manager) ApplyCommission(ev schema.Commission) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	internalID, ok := m.execToInt[ev.ExecID]
	if !ok {
		return false
	}
	record := m.records[internalID]
	for i := range record.Executions {
		if record.Executions[i].ExecID == ev.ExecID {
			record.Executions[i].Commission = ev.Commission
			record.Executions[i].RealizedPnL = ev.RealizedPnL
			return true
		}
	}
	return false
}

// AttachError stores an order-scoped gateway error on the record and
// surfaces it through the callback.
func (m *Manager) AttachError(externalID int64, code int, msg string) bool {
	m.mu.Lock()
	internalID, ok := m.extToInt[externalID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	record := m.records[internalID]
	record.LastError = msg
	record.UpdatedAt = time.Now().UTC()

	cb := m.callbacks[internalID]
	status := record.Status()
	m.mu.Unlock()

	logs.Warnf("order error, id: %s, code: %d, msg: %s", internalID, code, msg)
	if cb != nil {
		cb(status)
	}
	return true
}

func vwap(execs []model.Execution) float64 {
	var qty, notional float64
	for _, e := range execs {
		qty += e.Quantity
		notional += e.Quantity * e.Price
	}
	if qty == 0 {
		return 0
	}
	return notional / qty
}
