package obs

import (
	"sync/atomic"
	"time"

	"main/internal/schema"
)

const (
	maxEventKind  = int(schema.EventError)
	maxErrorClass = int(schema.ErrorClassAccount)
)

// Metrics collects lightweight counters and latency stats.
type Metrics struct {
	eventCounts      [maxEventKind + 1]uint64
	errorClassCounts [maxErrorClass + 1]uint64
	queueDrops       uint64
	queueClosed      uint64
	reconnects       uint64
	panicsRecovered  uint64
	unknownOrders    uint64

	dispatchLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventCounts      map[schema.EventKind]uint64
	ErrorClassCounts map[schema.ErrorClass]uint64
	QueueDrops       uint64
	QueueClosed      uint64
	Reconnects       uint64
	PanicsRecovered  uint64
	UnknownOrders    uint64
	DispatchLatency  LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveEvent counts a dispatched event and tracks queue-to-handler latency.
func (m *Metrics) ObserveEvent(kind schema.EventKind, recvAt time.Time) {
	if m == nil {
		return
	}
	idx := int(kind)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
	if !recvAt.IsZero() {
		if delta := time.Since(recvAt); delta >= 0 {
			m.dispatchLatency.Observe(delta)
		}
	}
}

// IncErrorClass counts a classified gateway error report.
func (m *Metrics) IncErrorClass(class schema.ErrorClass) {
	if m == nil {
		return
	}
	idx := int(class)
	if idx >= 0 && idx < len(m.errorClassCounts) {
		atomic.AddUint64(&m.errorClassCounts[idx], 1)
	}
}

// IncQueueDrop records a full-queue publish attempt.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a closed-queue publish attempt.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// IncReconnect records one reconnect cycle.
func (m *Metrics) IncReconnect() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.reconnects, 1)
}

// IncPanicRecovered records a handler panic caught by the dispatcher.
func (m *Metrics) IncPanicRecovered() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.panicsRecovered, 1)
}

// IncUnknownOrder records an event for an external order id this session
// never issued.
func (m *Metrics) IncUnknownOrder() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.unknownOrders, 1)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	eventCounts := make(map[schema.EventKind]uint64)
	for i := range m.eventCounts {
		if v := atomic.LoadUint64(&m.eventCounts[i]); v > 0 {
			eventCounts[schema.EventKind(i)] = v
		}
	}
	classCounts := make(map[schema.ErrorClass]uint64)
	for i := range m.errorClassCounts {
		if v := atomic.LoadUint64(&m.errorClassCounts[i]); v > 0 {
			classCounts[schema.ErrorClass(i)] = v
		}
	}
	return Snapshot{
		EventCounts:      eventCounts,
		ErrorClassCounts: classCounts,
		QueueDrops:       atomic.LoadUint64(&m.queueDrops),
		QueueClosed:      atomic.LoadUint64(&m.queueClosed),
		Reconnects:       atomic.LoadUint64(&m.reconnects),
		PanicsRecovered:  atomic.LoadUint64(&m.panicsRecovered),
		UnknownOrders:    atomic.LoadUint64(&m.unknownOrders),
		DispatchLatency:  m.dispatchLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
