// Package state reduces executions into per-symbol net positions.
package state

import (
	"sync"

	"main/internal/model"
	"main/internal/model/enum"
)

// Book accumulates fills into positions. Average cost tracks the open
// side: adding to a position blends the cost, reducing keeps it, and
// crossing through zero restarts it at the crossing fill's price.
type Book struct {
	mu        sync.RWMutex
	positions map[string]model.Position
}

// NewBook creates an empty position book.
func NewBook() *Book {
	return &Book{positions: make(map[string]model.Position)}
}

// ApplyFill updates the symbol's position and returns the new value.
func (b *Book) ApplyFill(symbol string, side enum.OrderSide, qty, price float64) model.Position {
	if symbol == "" || qty <= 0 {
		return b.Position(symbol)
	}
	signed := qty
	if side == enum.OrderSideSell {
		signed = -qty
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	pos := b.positions[symbol]
	pos.Symbol = symbol
	next := pos.Quantity + signed

	switch {
	case pos.Quantity == 0 || sameSign(pos.Quantity, signed):
		total := abs(pos.Quantity) + qty
		pos.AvgCost = (abs(pos.Quantity)*pos.AvgCost + qty*price) / total
	case sameSign(next, pos.Quantity):
		// Reduced but did not cross zero; cost basis of the remainder
		// is unchanged.
	case next == 0:
		pos.AvgCost = 0
	default:
		// Crossed through zero: the residual opens at this fill.
		pos.AvgCost = price
	}
	pos.Quantity = next

	if next == 0 {
		delete(b.positions, symbol)
		return pos
	}
	b.positions[symbol] = pos
	return pos
}

// Position returns the current position for a symbol. A flat symbol
// returns a zero-quantity value.
func (b *Book) Position(symbol string) model.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	pos := b.positions[symbol]
	pos.Symbol = symbol
	return pos
}

// All returns a copy of every open position keyed by symbol.
func (b *Book) All() map[string]model.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]model.Position, len(b.positions))
	for symbol, pos := range b.positions {
		out[symbol] = pos
	}
	return out
}

// Count returns the number of open positions.
func (b *Book) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.positions)
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
