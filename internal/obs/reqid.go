package obs

import (
	"sync/atomic"
	"time"
)

// RequestIDGenerator creates monotonically increasing gateway request IDs.
// Seeding from the clock keeps IDs distinct across process restarts so a
// late reply from a previous session never matches a live request.
type RequestIDGenerator struct {
	next int64
}

// NewRequestIDGenerator returns a generator seeded with the given value.
func NewRequestIDGenerator(seed int64) *RequestIDGenerator {
	if seed == 0 {
		seed = time.Now().UTC().Unix() << 16
	}
	return &RequestIDGenerator{next: seed}
}

// Next returns the next request ID.
func (g *RequestIDGenerator) Next() int64 {
	if g == nil {
		return 0
	}
	return atomic.AddInt64(&g.next, 1)
}
