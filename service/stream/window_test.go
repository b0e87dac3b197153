package stream

import (
	"strconv"
	"testing"
	"time"

	solsvc "github.com/brojonat/solwatch/service/solana"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txnAt(id string, ts time.Time) *solsvc.Transaction {
	return &solsvc.Transaction{ID: id, Timestamp: ts}
}

func TestWindow_NewestFirst(t *testing.T) {
	w := NewWindow(10)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	// Insert out of order; the window re-sorts on every insert.
	w.Insert(txnAt("b", base.Add(2*time.Minute)))
	w.Insert(txnAt("a", base.Add(1*time.Minute)))
	w.Insert(txnAt("c", base.Add(3*time.Minute)))

	snap := w.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "c", snap[0].ID)
	assert.Equal(t, "b", snap[1].ID)
	assert.Equal(t, "a", snap[2].ID)
}

func TestWindow_EvictsOldestBeyondCap(t *testing.T) {
	w := NewWindow(300)
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 301; i++ {
		w.Insert(txnAt(strconv.Itoa(i), base.Add(time.Duration(i)*time.Second)))
	}

	assert.Equal(t, 300, w.Len())
	snap := w.Snapshot()
	assert.Equal(t, "300", snap[0].ID)
	assert.Equal(t, "1", snap[len(snap)-1].ID)
}

func TestWindow_SnapshotIsACopy(t *testing.T) {
	w := NewWindow(10)
	w.Insert(txnAt("a", time.Now()))

	snap := w.Snapshot()
	snap[0] = nil

	require.Len(t, w.Snapshot(), 1)
	assert.NotNil(t, w.Snapshot()[0])
}

func TestWindow_ZeroMaxUsesDefault(t *testing.T) {
	w := NewWindow(0)
	base := time.Now()
	for i := 0; i < DefaultWindowSize+5; i++ {
		w.Insert(txnAt(strconv.Itoa(i), base.Add(time.Duration(i)*time.Second)))
	}
	assert.Equal(t, DefaultWindowSize, w.Len())
}
