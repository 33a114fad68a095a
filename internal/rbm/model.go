package rbm

import (
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/rbm/internal/parallel"
)

// Default hyperparameters.
const (
	DefaultLearningRate = 1e-4
	DefaultWeightDecay  = 1e-3
	DefaultBatchSize    = 100

	// DefaultSteps is the truncation length of every chain and fixed-point iteration.
	DefaultSteps = 3

	// WeightInitScale scales the standard normal draws used for the weights.
	WeightInitScale = 0.01
	// BiasInitScale scales the standard normal draws used for both bias vectors.
	BiasInitScale = 0.01
)

// Config holds the construction parameters of a Model.
type Config struct {
	Visible      int     // N, number of visible units
	Hidden       int     // M, number of hidden units
	LearningRate float64 // Step size for every update (default: 1e-4)
	WeightDecay  float64 // L2 strength, used by the TAP estimator (default: 1e-3)
	BatchSize    int     // Mini-batch rows (default: 100)
}

// DefaultConfig returns a Config for an N×M machine with default hyperparameters.
func DefaultConfig(visible, hidden int) Config {
	return Config{
		Visible:      visible,
		Hidden:       hidden,
		LearningRate: DefaultLearningRate,
		WeightDecay:  DefaultWeightDecay,
		BatchSize:    DefaultBatchSize,
	}
}

// Validate verifies that every parameter is usable.
func (c Config) Validate() error {
	if c.Visible <= 0 {
		return fmt.Errorf("%w: visible must be > 0 (got %d)", ErrInvalidConfig, c.Visible)
	}
	if c.Hidden <= 0 {
		return fmt.Errorf("%w: hidden must be > 0 (got %d)", ErrInvalidConfig, c.Hidden)
	}
	if !(c.LearningRate > 0) {
		return fmt.Errorf("%w: learning_rate must be > 0 (got %v)", ErrInvalidConfig, c.LearningRate)
	}
	if !(c.WeightDecay >= 0) {
		return fmt.Errorf("%w: weight_decay must be >= 0 (got %v)", ErrInvalidConfig, c.WeightDecay)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch_size must be > 0 (got %d)", ErrInvalidConfig, c.BatchSize)
	}
	return nil
}

// NewRand returns a random source. A non-negative seed gives a deterministic
// stream; a negative seed draws from live entropy.
func NewRand(seed int64) *rand.Rand {
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed)) //nolint:gosec // Sampling noise, not security-sensitive
}

// Model is a binary-binary restricted Boltzmann machine.
//
// The parameters are owned by the Model and only change through Update,
// Apply or SetParameters. Shapes are fixed at construction.
type Model struct {
	cfg Config

	weights     *mat.Dense    // N×M
	visibleBias *mat.VecDense // N
	hiddenBias  *mat.VecDense // M

	// par splits elementwise maps across rows. Maps are pure per-entry
	// functions, so results do not depend on it.
	par parallel.Config
}

// NewModel creates a Model with Gaussian-initialized parameters drawn from rng.
// A nil rng uses live entropy.
func NewModel(cfg Config, rng *rand.Rand) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = NewRand(-1)
	}

	n, m := cfg.Visible, cfg.Hidden
	w := make([]float64, n*m)
	for i := range w {
		w[i] = WeightInitScale * rng.NormFloat64()
	}
	b := make([]float64, n)
	for i := range b {
		b[i] = BiasInitScale * rng.NormFloat64()
	}
	c := make([]float64, m)
	for i := range c {
		c[i] = BiasInitScale * rng.NormFloat64()
	}

	return &Model{
		cfg:         cfg,
		weights:     mat.NewDense(n, m, w),
		visibleBias: mat.NewVecDense(n, b),
		hiddenBias:  mat.NewVecDense(m, c),
		par:         parallel.DefaultConfig(),
	}, nil
}

// Config returns the construction parameters.
func (m *Model) Config() Config { return m.cfg }

// Visible returns N.
func (m *Model) Visible() int { return m.cfg.Visible }

// Hidden returns M.
func (m *Model) Hidden() int { return m.cfg.Hidden }

// LearningRate returns the update step size.
func (m *Model) LearningRate() float64 { return m.cfg.LearningRate }

// WeightDecay returns the L2 regularization strength.
func (m *Model) WeightDecay() float64 { return m.cfg.WeightDecay }

// BatchSize returns the mini-batch size used for training.
func (m *Model) BatchSize() int { return m.cfg.BatchSize }

// Weights returns a read-only view of the N×M weight matrix.
func (m *Model) Weights() mat.Matrix { return m.weights }

// VisibleBias returns a read-only view of the visible bias.
func (m *Model) VisibleBias() mat.Vector { return m.visibleBias }

// HiddenBias returns a read-only view of the hidden bias.
func (m *Model) HiddenBias() mat.Vector { return m.hiddenBias }

// SetParameters replaces all parameters with copies of w, b and c.
// Nothing is changed unless every shape matches and every value is finite.
func (m *Model) SetParameters(w mat.Matrix, b, c mat.Vector) error {
	n, h := m.cfg.Visible, m.cfg.Hidden
	if r, cols := w.Dims(); r != n || cols != h {
		return &ShapeError{Op: "set weights", Want: [2]int{n, h}, Got: [2]int{r, cols}}
	}
	if b.Len() != n {
		return &ShapeError{Op: "set visible bias", Want: [2]int{n, 1}, Got: [2]int{b.Len(), 1}}
	}
	if c.Len() != h {
		return &ShapeError{Op: "set hidden bias", Want: [2]int{h, 1}, Got: [2]int{c.Len(), 1}}
	}

	weights := mat.DenseCopyOf(w)
	visibleBias := mat.VecDenseCopyOf(b)
	hiddenBias := mat.VecDenseCopyOf(c)
	if err := checkFinite(weights, visibleBias, hiddenBias); err != nil {
		return err
	}

	m.weights, m.visibleBias, m.hiddenBias = weights, visibleBias, hiddenBias
	return nil
}

// CheckFinite returns a *NonFiniteError if any parameter is NaN or Inf.
func (m *Model) CheckFinite() error {
	return checkFinite(m.weights, m.visibleBias, m.hiddenBias)
}

// Clone returns a deep copy that shares no memory with m.
func (m *Model) Clone() *Model {
	return &Model{
		cfg:         m.cfg,
		weights:     mat.DenseCopyOf(m.weights),
		visibleBias: mat.VecDenseCopyOf(m.visibleBias),
		hiddenBias:  mat.VecDenseCopyOf(m.hiddenBias),
		par:         m.par,
	}
}

// SetParallelism replaces the row fan-out used by this model's solvers.
// It must not be called while one of them is running.
func (m *Model) SetParallelism(cfg parallel.Config) {
	m.par = cfg
}

// String returns a short description of the model shape.
func (m *Model) String() string {
	return fmt.Sprintf("RBM(visible=%d, hidden=%d, lr=%g, decay=%g, batch=%d)",
		m.cfg.Visible, m.cfg.Hidden, m.cfg.LearningRate, m.cfg.WeightDecay, m.cfg.BatchSize)
}

func checkFinite(w *mat.Dense, b, c *mat.VecDense) error {
	if i := firstNonFinite(denseData(w)); i >= 0 {
		return &NonFiniteError{Param: "weights", Index: i, Value: denseData(w)[i]}
	}
	if i := firstNonFinite(b.RawVector().Data); i >= 0 {
		return &NonFiniteError{Param: "visible_bias", Index: i, Value: b.AtVec(i)}
	}
	if i := firstNonFinite(c.RawVector().Data); i >= 0 {
		return &NonFiniteError{Param: "hidden_bias", Index: i, Value: c.AtVec(i)}
	}
	return nil
}

// checkVisible verifies that v is a P×N batch.
func (m *Model) checkVisible(op string, v mat.Matrix) error {
	if _, c := v.Dims(); c != m.cfg.Visible {
		r, _ := v.Dims()
		return &ShapeError{Op: op, Want: [2]int{-1, m.cfg.Visible}, Got: [2]int{r, c}}
	}
	return nil
}

// checkHidden verifies that h is a P×M batch.
func (m *Model) checkHidden(op string, h mat.Matrix) error {
	if _, c := h.Dims(); c != m.cfg.Hidden {
		r, _ := h.Dims()
		return &ShapeError{Op: op, Want: [2]int{-1, m.cfg.Hidden}, Got: [2]int{r, c}}
	}
	return nil
}
