// Package metrics aggregates training statistics between epoch reports.
package metrics

import (
	"math"
	"time"
)

// Window accumulates per-batch measurements across an epoch.
type Window struct {
	rows     int
	compute  time.Duration
	steps    int
	skipped  int
	normSum  float64
	lastNorm float64
}

// Record adds a successful update to the window.
func (w *Window) Record(batchRows int, computeTime time.Duration, gradNorm float64) {
	w.rows += batchRows
	w.compute += computeTime
	w.steps++
	w.normSum += gradNorm
	w.lastNorm = gradNorm
}

// Skip counts a rejected update.
func (w *Window) Skip(computeTime time.Duration) {
	w.compute += computeTime
	w.skipped++
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Steps: w.steps, Skipped: w.skipped, LastGradNorm: w.lastNorm}
	if w.compute > 0 {
		snap.RowsPerSec = float64(w.rows) / w.compute.Seconds()
	}
	if n := w.steps + w.skipped; n > 0 {
		snap.AvgComputeMS = (w.compute.Seconds() * 1000) / float64(n)
	}
	if w.steps > 0 {
		snap.AvgGradNorm = w.normSum / float64(w.steps)
	}

	*w = Window{}
	return snap
}

// Snapshot represents loggable metrics.
type Snapshot struct {
	Steps        int
	Skipped      int
	RowsPerSec   float64
	AvgComputeMS float64
	AvgGradNorm  float64
	LastGradNorm float64
}

// Epoch is the record kept for one completed epoch.
type Epoch struct {
	Epoch         int
	LogLikelihood float64 // NaN when not evaluated
	Reconstruct   float64 // Mean squared reconstruction error, NaN when not evaluated
	Duration      time.Duration
	Snapshot
}

// History is the ordered list of epoch records of a run.
type History struct {
	Epochs []Epoch
}

// Add appends an epoch record.
func (h *History) Add(e Epoch) {
	h.Epochs = append(h.Epochs, e)
}

// Len returns the number of recorded epochs.
func (h *History) Len() int { return len(h.Epochs) }

// Last returns the most recent record and false when the history is empty.
func (h *History) Last() (Epoch, bool) {
	if len(h.Epochs) == 0 {
		return Epoch{}, false
	}
	return h.Epochs[len(h.Epochs)-1], true
}

// Best returns the record with the highest finite log-likelihood.
func (h *History) Best() (Epoch, bool) {
	best, found := Epoch{}, false
	for _, e := range h.Epochs {
		if math.IsNaN(e.LogLikelihood) || math.IsInf(e.LogLikelihood, 0) {
			continue
		}
		if !found || e.LogLikelihood > best.LogLikelihood {
			best, found = e, true
		}
	}
	return best, found
}

// LogLikelihoods returns the epoch numbers and values of every evaluated epoch.
func (h *History) LogLikelihoods() (epochs, values []float64) {
	for _, e := range h.Epochs {
		if math.IsNaN(e.LogLikelihood) {
			continue
		}
		epochs = append(epochs, float64(e.Epoch))
		values = append(values, e.LogLikelihood)
	}
	return epochs, values
}
