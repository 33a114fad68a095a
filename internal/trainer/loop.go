// Package trainer runs epochs of mini-batch updates over a binary dataset.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/rbm/internal/dataset"
	"github.com/born-ml/rbm/internal/metrics"
	"github.com/born-ml/rbm/internal/plot"
	"github.com/born-ml/rbm/internal/rbm"
	"github.com/born-ml/rbm/internal/serialization"
)

// Policy decides what happens when an update would produce NaN or Inf.
type Policy int

const (
	// Halt stops training and returns the error.
	Halt Policy = iota
	// Skip logs a warning, keeps the previous parameters and moves on.
	Skip
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case Halt:
		return "halt"
	case Skip:
		return "skip"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "halt":
		return Halt, nil
	case "skip":
		return Skip, nil
	default:
		return 0, fmt.Errorf("trainer: unknown non-finite policy %q", s)
	}
}

// Output file names inside RunConfig.OutputDir.
const (
	CheckpointFile = "model.rbm"
	HistoryPlot    = "likelihood.png"
	WeightsPlot    = "weights.png"
	HistogramPlot  = "weights_hist.png"
)

// histogramBins is the bin count of the weight histogram.
const histogramBins = 50

// EpochState is what a monitor sees after an epoch. Nothing in it shares
// memory with the model being trained.
type EpochState struct {
	Epoch  int
	Model  *rbm.Model
	Record metrics.Epoch

	// Model-side marginals (or samples) of the last successful update.
	// Nil when every batch of the run so far was skipped.
	LastVisible *mat.Dense
	LastHidden  *mat.Dense
}

// MonitorFunc observes a completed epoch. Returning an error stops training.
type MonitorFunc func(state EpochState) error

// RunConfig captures the knobs required by the training loop.
type RunConfig struct {
	Epochs      int
	Estimator   rbm.Estimator
	Likelihood  rbm.LikelihoodEstimator // nil disables the estimate
	EvalRows    int                     // Rows used for monitoring (0 = whole dataset)
	OnNonFinite Policy

	OutputDir  string // Empty disables every file output
	Checkpoint bool
	Plots      bool
	RunID      string // Generated when empty

	Monitor MonitorFunc
	Logger  *log.Logger
}

// Run trains m for cfg.Epochs passes over data.
//
// Each epoch visits contiguous batches of m.BatchSize() rows in dataset
// order, dropping a final partial batch, and applies one update per batch.
// Monitoring runs once per epoch after the last batch. The returned history
// holds every completed epoch, including when an error stops the run.
func Run(ctx context.Context, m *rbm.Model, data *mat.Dense, cfg RunConfig) (*metrics.History, error) {
	if cfg.Epochs <= 0 {
		return nil, errors.New("trainer: epochs must be > 0")
	}
	if cfg.Estimator == nil {
		return nil, errors.New("trainer: estimator is nil")
	}
	if _, c := data.Dims(); c != m.Visible() {
		r, _ := data.Dims()
		return nil, &rbm.ShapeError{Op: "trainer", Want: [2]int{-1, m.Visible()}, Got: [2]int{r, c}}
	}
	batches, err := dataset.Batches(data, m.BatchSize())
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		r, _ := data.Dims()
		return nil, fmt.Errorf("trainer: %d rows is less than one batch of %d", r, m.BatchSize())
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o750); err != nil {
			return nil, fmt.Errorf("trainer: create output dir: %w", err)
		}
	}
	eval := evalRows(data, cfg.EvalRows)

	logger.Printf("run=%s method=%s %s batches=%d epochs=%d",
		cfg.RunID, cfg.Estimator.Name(), m, len(batches), cfg.Epochs)

	history := &metrics.History{}
	var window metrics.Window
	var step int64
	var last *rbm.Gradient

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		start := time.Now()
		for b, batch := range batches {
			if err := ctx.Err(); err != nil {
				return history, err
			}

			t0 := time.Now()
			g, err := rbm.Update(m, cfg.Estimator, batch)
			elapsed := time.Since(t0)
			switch {
			case err == nil:
				step++
				last = g
				window.Record(m.BatchSize(), elapsed, g.Norm())
			case errors.Is(err, rbm.ErrNonFinite) && cfg.OnNonFinite == Skip:
				window.Skip(elapsed)
				logger.Printf("warning epoch=%d batch=%d skipped: %v", epoch, b, err)
			default:
				return history, fmt.Errorf("trainer: epoch %d batch %d: %w", epoch, b, err)
			}
		}

		record := metrics.Epoch{
			Epoch:         epoch,
			LogLikelihood: math.NaN(),
			Duration:      time.Since(start),
			Snapshot:      window.Snapshot(),
		}
		if cfg.Likelihood != nil {
			ll, err := cfg.Likelihood.Estimate(m, eval)
			if err != nil {
				return history, fmt.Errorf("trainer: epoch %d likelihood: %w", epoch, err)
			}
			record.LogLikelihood = ll
		}
		record.Reconstruct, err = m.ReconstructionError(eval)
		if err != nil {
			return history, fmt.Errorf("trainer: epoch %d reconstruction: %w", epoch, err)
		}
		history.Add(record)

		logger.Printf("epoch=%d steps=%d skipped=%d ll=%.4f recon=%.4f rows_per_sec=%.1f grad_norm=%.4f elapsed=%s",
			epoch, step, record.Skipped, record.LogLikelihood, record.Reconstruct,
			record.RowsPerSec, record.AvgGradNorm, record.Duration.Round(time.Millisecond))

		if err := writeOutputs(m, history, record, step, cfg); err != nil {
			return history, err
		}
		if cfg.Monitor != nil {
			state := EpochState{Epoch: epoch, Model: m.Clone(), Record: record}
			if last != nil {
				state.LastVisible = mat.DenseCopyOf(last.ModelVisible)
				state.LastHidden = mat.DenseCopyOf(last.ModelHidden)
			}
			if err := cfg.Monitor(state); err != nil {
				return history, fmt.Errorf("trainer: monitor: %w", err)
			}
		}
	}
	return history, nil
}

func writeOutputs(m *rbm.Model, history *metrics.History, record metrics.Epoch, step int64, cfg RunConfig) error {
	if cfg.OutputDir == "" {
		return nil
	}
	if cfg.Checkpoint {
		meta := &serialization.CheckpointMeta{
			RunID:         cfg.RunID,
			Method:        cfg.Estimator.Name(),
			Epoch:         record.Epoch,
			Step:          step,
			LogLikelihood: record.LogLikelihood,
		}
		// JSON cannot carry NaN.
		if math.IsNaN(meta.LogLikelihood) || math.IsInf(meta.LogLikelihood, 0) {
			meta.LogLikelihood = 0
		}
		if err := rbm.SaveFile(filepath.Join(cfg.OutputDir, CheckpointFile), m, meta); err != nil {
			return fmt.Errorf("trainer: checkpoint: %w", err)
		}
	}
	if cfg.Plots {
		if !math.IsNaN(record.LogLikelihood) {
			if err := plot.SaveHistory(history, cfg.Estimator.Name(), filepath.Join(cfg.OutputDir, HistoryPlot)); err != nil {
				return fmt.Errorf("trainer: %w", err)
			}
		}
		title := fmt.Sprintf("weights, epoch %d", record.Epoch)
		if err := plot.SaveWeights(m.Weights(), title, filepath.Join(cfg.OutputDir, WeightsPlot)); err != nil {
			return fmt.Errorf("trainer: %w", err)
		}
		if err := plot.SaveWeightHistogram(m.Weights(), histogramBins, title, filepath.Join(cfg.OutputDir, HistogramPlot)); err != nil {
			return fmt.Errorf("trainer: %w", err)
		}
	}
	return nil
}

func evalRows(data *mat.Dense, n int) *mat.Dense {
	r, c := data.Dims()
	if n <= 0 || n >= r {
		return data
	}
	return data.Slice(0, n, 0, c).(*mat.Dense)
}
