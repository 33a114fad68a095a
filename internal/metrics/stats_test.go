package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWindowSnapshot aggregates and resets.
func TestWindowSnapshot(t *testing.T) {
	var w Window
	w.Record(64, 20*time.Millisecond, 1.5)
	w.Record(64, 10*time.Millisecond, 0.5)
	w.Skip(30 * time.Millisecond)

	snap := w.Snapshot()
	assert.Equal(t, 2, snap.Steps)
	assert.Equal(t, 1, snap.Skipped)
	assert.InDelta(t, 2133.3333, snap.RowsPerSec, 1)
	assert.InDelta(t, 20.0, snap.AvgComputeMS, 1e-9)
	assert.InDelta(t, 1.0, snap.AvgGradNorm, 1e-12)
	assert.Equal(t, 0.5, snap.LastGradNorm)

	assert.Equal(t, Window{}, w, "window was not reset")
	assert.Equal(t, Snapshot{}, w.Snapshot())
}

// TestHistory covers Last, Best and the likelihood series.
func TestHistory(t *testing.T) {
	var h History
	_, ok := h.Last()
	assert.False(t, ok)
	_, ok = h.Best()
	assert.False(t, ok)

	h.Add(Epoch{Epoch: 1, LogLikelihood: -5})
	h.Add(Epoch{Epoch: 2, LogLikelihood: math.NaN()})
	h.Add(Epoch{Epoch: 3, LogLikelihood: -2})
	h.Add(Epoch{Epoch: 4, LogLikelihood: -3})
	require.Equal(t, 4, h.Len())

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, 4, last.Epoch)

	best, ok := h.Best()
	require.True(t, ok)
	assert.Equal(t, 3, best.Epoch)

	epochs, values := h.LogLikelihoods()
	assert.Equal(t, []float64{1, 3, 4}, epochs)
	assert.Equal(t, []float64{-5, -2, -3}, values)
}
