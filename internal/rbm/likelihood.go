package rbm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LikelihoodEstimator approximates the mean log-likelihood of a batch.
// Training only uses it for monitoring.
type LikelihoodEstimator interface {
	Estimate(m *Model, batch mat.Matrix) (float64, error)
}

// MeanFieldLikelihood approximates log p(v) = −F(v) − log Z, with the
// partition function replaced by the Gibbs free energy of a mean-field
// (or TAP) fixed point started from each data row.
type MeanFieldLikelihood struct {
	Steps int  // Fixed-point iterations (0 means DefaultSteps)
	TAP   bool // Use the TAP fixed point and second-order free energy
}

// Estimate implements LikelihoodEstimator.
func (l MeanFieldLikelihood) Estimate(m *Model, batch mat.Matrix) (float64, error) {
	free, err := m.FreeEnergy(batch)
	if err != nil {
		return 0, fmt.Errorf("likelihood: %w", err)
	}

	var v, h *mat.Dense
	if l.TAP {
		v, h, err = m.RunTAP(batch, stepsOrDefault(l.Steps))
	} else {
		v, h, err = m.RunMeanField(batch, stepsOrDefault(l.Steps))
	}
	if err != nil {
		return 0, fmt.Errorf("likelihood: %w", err)
	}
	gibbs := m.gibbsFreeEnergy(v, h, l.TAP)

	// log p(v) ≈ −F(v) + G(m*, h*), averaged over rows.
	rows := float64(free.Len())
	return (floats.Sum(gibbs) - floats.Sum(free.RawVector().Data)) / rows, nil
}

// FreeEnergy returns F(v) = −b·v − Σ_a log(1 + exp(c_a + (vW)_a)) for every row of v.
func (m *Model) FreeEnergy(v mat.Matrix) (*mat.VecDense, error) {
	if err := m.checkVisible("free energy", v); err != nil {
		return nil, err
	}
	r, _ := v.Dims()
	act := m.field(v, m.weights, m.hiddenBias)

	var vb mat.VecDense
	vb.MulVec(v, m.visibleBias)

	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		f := -vb.AtVec(i)
		for _, x := range act.RawRowView(i) {
			f -= softplus(x)
		}
		out.SetVec(i, f)
	}
	return out, nil
}

// gibbsFreeEnergy evaluates, per row, the mean-field Gibbs free energy
//
//	G = Σ_i H(m_i) + Σ_a H(h_a) − b·m − c·h − mᵀWh
//
// where H(p) = p log p + (1−p) log(1−p). With tap set the second-order term
// −½ Σ_ia (m_i − m_i²) W_ia² (h_a − h_a²) is added.
func (m *Model) gibbsFreeEnergy(v, h *mat.Dense, tap bool) []float64 {
	r, _ := v.Dims()

	var vw mat.Dense
	vw.Mul(v, m.weights)

	var onsager *mat.Dense
	if tap {
		onsager = &mat.Dense{}
		onsager.Mul(variance(v), square(m.weights))
	}
	hVar := variance(h)

	out := make([]float64, r)
	b := m.visibleBias.RawVector().Data
	c := m.hiddenBias.RawVector().Data
	for i := 0; i < r; i++ {
		vRow, hRow := v.RawRowView(i), h.RawRowView(i)
		g := negEntropy(vRow) + negEntropy(hRow)
		g -= floats.Dot(b, vRow)
		g -= floats.Dot(c, hRow)
		g -= floats.Dot(vw.RawRowView(i), hRow)
		if tap {
			g -= 0.5 * floats.Dot(onsager.RawRowView(i), hVar.RawRowView(i))
		}
		out[i] = g
	}
	return out
}

// ReconstructionError returns the mean squared difference between batch and
// its one-step mean-field reconstruction.
func (m *Model) ReconstructionError(batch mat.Matrix) (float64, error) {
	v, _, err := m.RunMeanField(batch, 1)
	if err != nil {
		return 0, fmt.Errorf("reconstruction error: %w", err)
	}
	var diff mat.Dense
	diff.Sub(batch, v)
	r, c := diff.Dims()
	d := denseData(&diff)
	return floats.Dot(d, d) / float64(r*c), nil
}

func negEntropy(p []float64) float64 {
	var s float64
	for _, x := range p {
		s += xlogx(x) + xlogx(1-x)
	}
	return s
}

func xlogx(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return x * math.Log(x)
}

func softplus(x float64) float64 {
	return math.Max(x, 0) + math.Log1p(math.Exp(-math.Abs(x)))
}
