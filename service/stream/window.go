package stream

import (
	"sort"
	"sync"

	solsvc "github.com/brojonat/solwatch/service/solana"
)

// DefaultWindowSize caps the display window at the most recent transactions.
const DefaultWindowSize = 300

// Window is the in-memory sliding window of the most recent transactions,
// ordered newest-first by timestamp. The cap is a hard invariant: inserts
// beyond it evict the oldest entries.
//
// Only the manager's consumer side mutates the window; the ingestion
// pipeline never touches it directly.
type Window struct {
	mu    sync.Mutex
	max   int
	items []*solsvc.Transaction
}

// NewWindow creates a window holding at most max transactions.
// A non-positive max falls back to DefaultWindowSize.
func NewWindow(max int) *Window {
	if max <= 0 {
		max = DefaultWindowSize
	}
	return &Window{max: max}
}

// Insert prepends the transaction, re-sorts descending by timestamp, and
// truncates to the cap. Emitted transactions are not strictly ordered across
// wallets, so ordering is enforced here rather than in the pipeline.
func (w *Window) Insert(txn *solsvc.Transaction) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.items = append([]*solsvc.Transaction{txn}, w.items...)
	sort.SliceStable(w.items, func(i, j int) bool {
		return w.items[i].Timestamp.After(w.items[j].Timestamp)
	})
	if len(w.items) > w.max {
		w.items = w.items[:w.max]
	}
}

// Snapshot returns a copy of the current window contents, newest first.
func (w *Window) Snapshot() []*solsvc.Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]*solsvc.Transaction, len(w.items))
	copy(out, w.items)
	return out
}

// Len returns the number of transactions currently held.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}
