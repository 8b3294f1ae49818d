package backtest

import (
	"sync"

	"meanrev-go/internal/broker"
)

// Ledger stores fills in memory for quick inspection.
type Ledger struct {
	mu    sync.Mutex
	fills []broker.Fill
}

// NewLedger creates an empty ledger optionally pre-sizing storage.
func NewLedger(capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	return &Ledger{fills: make([]broker.Fill, 0, capacity)}
}

// Record appends a fill to the ledger.
func (l *Ledger) Record(fill broker.Fill) {
	l.mu.Lock()
	l.fills = append(l.fills, fill)
	l.mu.Unlock()
}

// Snapshot returns a copy of the recorded fills.
func (l *Ledger) Snapshot() []broker.Fill {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]broker.Fill, len(l.fills))
	copy(out, l.fills)
	return out
}

// Reset clears all stored fills.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.fills = l.fills[:0]
	l.mu.Unlock()
}
