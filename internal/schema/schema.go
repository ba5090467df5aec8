package schema

import "time"

// SchemaVersion is the current gateway event schema version.
const SchemaVersion uint16 = 1

// EventKind defines the category of an asynchronous gateway event.
type EventKind uint16

const (
	EventUnknown EventKind = iota
	EventHandshakeAck
	EventNextValidID
	EventOrderStatus
	EventExecution
	EventCommission
	EventTick
	EventHistoricalBar
	EventHistoricalEnd
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventHandshakeAck:
		return "handshake_ack"
	case EventNextValidID:
		return "next_valid_id"
	case EventOrderStatus:
		return "order_status"
	case EventExecution:
		return "execution"
	case EventCommission:
		return "commission"
	case EventTick:
		return "tick"
	case EventHistoricalBar:
		return "historical_bar"
	case EventHistoricalEnd:
		return "historical_end"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is the decoded unit passed from the gateway read loop to the
// dispatcher. Exactly one payload pointer is set, matching Kind.
type Event struct {
	Kind   EventKind
	RecvAt time.Time

	HandshakeAck  *HandshakeAck  `json:"handshake_ack,omitempty"`
	NextValidID   *NextValidID   `json:"next_valid_id,omitempty"`
	OrderStatus   *OrderStatus   `json:"order_status,omitempty"`
	Execution     *Execution     `json:"execution,omitempty"`
	Commission    *Commission    `json:"commission,omitempty"`
	Tick          *Tick          `json:"tick,omitempty"`
	HistoricalBar *HistoricalBar `json:"historical_bar,omitempty"`
	HistoricalEnd *HistoricalEnd `json:"historical_end,omitempty"`
	Error         *ServerError   `json:"error,omitempty"`
}
