package rbm

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Gradient is the ascent direction produced by an Estimator for one batch.
//
// All statistics are summed over the batch, not averaged.
type Gradient struct {
	Weights     *mat.Dense    // ΔW, N×M
	VisibleBias *mat.VecDense // Δb, N
	HiddenBias  *mat.VecDense // Δc, M

	// WeightDecay makes Apply subtract lr·decay·W from the weights.
	WeightDecay bool

	// Model-side statistics the gradient was built from, kept for monitoring.
	ModelVisible *mat.Dense
	ModelHidden  *mat.Dense
}

// Norm returns the Euclidean norm of all gradient entries.
func (g *Gradient) Norm() float64 {
	w := floats.Norm(denseData(g.Weights), 2)
	b := floats.Norm(g.VisibleBias.RawVector().Data, 2)
	c := floats.Norm(g.HiddenBias.RawVector().Data, 2)
	return math.Sqrt(w*w + b*b + c*c)
}

// Estimator computes a parameter gradient for a batch of visible data.
type Estimator interface {
	// Name identifies the estimator in logs and checkpoints.
	Name() string

	// Gradient reads the current parameters of m and returns the update
	// direction for batch. It never modifies m.
	Gradient(m *Model, batch mat.Matrix) (*Gradient, error)
}

// MCMC estimates the model-side statistics with a k-step Gibbs chain
// (contrastive divergence) started at the data.
type MCMC struct {
	Steps int        // Chain length (0 means DefaultSteps)
	Rand  *rand.Rand // Source of every Bernoulli draw (required)
}

// NewMCMC creates an MCMC estimator drawing from rng.
func NewMCMC(steps int, rng *rand.Rand) *MCMC {
	if steps <= 0 {
		steps = DefaultSteps
	}
	if rng == nil {
		rng = NewRand(-1)
	}
	return &MCMC{Steps: steps, Rand: rng}
}

// Name implements Estimator.
func (e *MCMC) Name() string { return "mcmc" }

// Gradient implements Estimator. The data-side hidden sample is drawn before
// the chain runs, so both consume the same rng in a fixed order.
func (e *MCMC) Gradient(m *Model, batch mat.Matrix) (*Gradient, error) {
	if e.Rand == nil {
		return nil, fmt.Errorf("mcmc gradient: %w", ErrNilRand)
	}
	dataHidden, err := m.SampleHiddenGivenVisible(batch, e.Rand)
	if err != nil {
		return nil, fmt.Errorf("mcmc gradient: %w", err)
	}
	modelVisible, modelHidden, err := m.RunChain(batch, stepsOrDefault(e.Steps), e.Rand)
	if err != nil {
		return nil, fmt.Errorf("mcmc gradient: %w", err)
	}
	return contrast(batch, dataHidden, modelVisible, modelHidden), nil
}

// MeanField estimates the model-side statistics with the naive mean-field
// fixed point. The data-side hidden activations are probabilities.
type MeanField struct {
	Steps int // Fixed-point iterations (0 means DefaultSteps)
}

// Name implements Estimator.
func (e *MeanField) Name() string { return "meanfield" }

// Gradient implements Estimator.
func (e *MeanField) Gradient(m *Model, batch mat.Matrix) (*Gradient, error) {
	dataHidden, err := m.HiddenProbabilities(batch)
	if err != nil {
		return nil, fmt.Errorf("mean field gradient: %w", err)
	}
	modelVisible, modelHidden, err := m.RunMeanField(batch, stepsOrDefault(e.Steps))
	if err != nil {
		return nil, fmt.Errorf("mean field gradient: %w", err)
	}
	return contrast(batch, dataHidden, modelVisible, modelHidden), nil
}

// TAP estimates the model-side statistics with the second-order TAP fixed
// point and adds the derivative of the Onsager free-energy correction to ΔW.
// Its updates apply weight decay.
type TAP struct {
	Steps int         // Fixed-point iterations (0 means DefaultSteps)
	Seed  OnsagerSeed // First-step hidden seed
}

// Name implements Estimator.
func (e *TAP) Name() string { return "tap" }

// Gradient implements Estimator.
func (e *TAP) Gradient(m *Model, batch mat.Matrix) (*Gradient, error) {
	dataHidden, err := m.HiddenProbabilities(batch)
	if err != nil {
		return nil, fmt.Errorf("tap gradient: %w", err)
	}
	modelVisible, modelHidden, err := m.RunTAPWithSeed(batch, stepsOrDefault(e.Steps), e.Seed)
	if err != nil {
		return nil, fmt.Errorf("tap gradient: %w", err)
	}
	g := contrast(batch, dataHidden, modelVisible, modelHidden)

	// ΔW += W ⊙ Σ_batch (v − v²) ⊗ (h − h²)
	var correction mat.Dense
	correction.Mul(variance(modelVisible).T(), variance(modelHidden))
	correction.MulElem(&correction, m.weights)
	g.Weights.Add(g.Weights, &correction)

	g.WeightDecay = true
	return g, nil
}

// contrast builds the data-minus-model gradient shared by every estimator.
func contrast(dataVisible mat.Matrix, dataHidden, modelVisible, modelHidden *mat.Dense) *Gradient {
	var positive, negative mat.Dense
	positive.Mul(dataVisible.T(), dataHidden)
	negative.Mul(modelVisible.T(), modelHidden)

	var dw mat.Dense
	dw.Sub(&positive, &negative)

	var db mat.VecDense
	db.SubVec(colSums(mat.DenseCopyOf(dataVisible)), colSums(modelVisible))
	var dc mat.VecDense
	dc.SubVec(colSums(dataHidden), colSums(modelHidden))

	return &Gradient{
		Weights:      &dw,
		VisibleBias:  &db,
		HiddenBias:   &dc,
		ModelVisible: modelVisible,
		ModelHidden:  modelHidden,
	}
}

func stepsOrDefault(steps int) int {
	if steps <= 0 {
		return DefaultSteps
	}
	return steps
}

// Apply performs one gradient-ascent step on m:
//
//	W += lr·ΔW            (− lr·decay·W when g.WeightDecay)
//	b += lr·Δb
//	c += lr·Δc
//
// The new parameters are computed before any are stored. If one of them is
// NaN or Inf, m is left unchanged and a *NonFiniteError is returned.
func Apply(m *Model, g *Gradient) error {
	n, h := m.cfg.Visible, m.cfg.Hidden
	if r, c := g.Weights.Dims(); r != n || c != h {
		return &ShapeError{Op: "apply gradient", Want: [2]int{n, h}, Got: [2]int{r, c}}
	}
	if g.VisibleBias.Len() != n || g.HiddenBias.Len() != h {
		return &ShapeError{Op: "apply gradient", Want: [2]int{n, h}, Got: [2]int{g.VisibleBias.Len(), g.HiddenBias.Len()}}
	}
	lr := m.cfg.LearningRate

	var w mat.Dense
	w.Scale(lr, g.Weights)
	if g.WeightDecay {
		var decay mat.Dense
		decay.Scale(lr*m.cfg.WeightDecay, m.weights)
		w.Sub(&w, &decay)
	}
	w.Add(m.weights, &w)

	var b, c mat.VecDense
	b.AddScaledVec(m.visibleBias, lr, g.VisibleBias)
	c.AddScaledVec(m.hiddenBias, lr, g.HiddenBias)

	if err := checkFinite(&w, &b, &c); err != nil {
		return err
	}
	m.weights, m.visibleBias, m.hiddenBias = &w, &b, &c
	return nil
}

// Update computes the gradient of est for batch and applies it to m.
// It is the single write path used during training.
func Update(m *Model, est Estimator, batch mat.Matrix) (*Gradient, error) {
	g, err := est.Gradient(m, batch)
	if err != nil {
		return nil, err
	}
	if err := Apply(m, g); err != nil {
		return g, fmt.Errorf("%s update: %w", est.Name(), err)
	}
	return g, nil
}
