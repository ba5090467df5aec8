package state

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"main/internal/model"
)

// Snapshot captures open positions at a point in time.
type Snapshot struct {
	Timestamp int64           `json:"timestamp"`
	Positions []PositionEntry `json:"positions"`
}

// PositionEntry is a single symbol position entry.
type PositionEntry struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"qty"`
	AvgCost  float64 `json:"avgCost"`
}

// Snapshot builds a snapshot from the current book, sorted by symbol for
// stable output.
func (b *Book) Snapshot() Snapshot {
	all := b.All()
	entries := make([]PositionEntry, 0, len(all))
	for symbol, pos := range all {
		entries = append(entries, PositionEntry{
			Symbol:   symbol,
			Quantity: pos.Quantity,
			AvgCost:  pos.AvgCost,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Symbol < entries[j].Symbol
	})
	return Snapshot{
		Timestamp: time.Now().UTC().UnixNano(),
		Positions: entries,
	}
}

// Restore replaces the book's contents with the snapshot.
func (b *Book) Restore(snap Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions = make(map[string]model.Position, len(snap.Positions))
	for _, entry := range snap.Positions {
		if entry.Quantity == 0 {
			continue
		}
		b.positions[entry.Symbol] = model.Position{
			Symbol:   entry.Symbol,
			Quantity: entry.Quantity,
			AvgCost:  entry.AvgCost,
		}
	}
}

// WriteSnapshot writes a snapshot to disk as JSON.
func WriteSnapshot(path string, snap Snapshot) error {
	data, err := sonic.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create snapshot dir")
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "write snapshot")
	}
	return nil
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "read snapshot")
	}
	var snap Snapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, errors.Wrap(err, "decode snapshot")
	}
	return snap, nil
}
