package rbm

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// HiddenProbabilities returns σ(vW + c), the conditional activation of every
// hidden unit given each row of v.
func (m *Model) HiddenProbabilities(v mat.Matrix) (*mat.Dense, error) {
	if err := m.checkVisible("hidden probabilities", v); err != nil {
		return nil, err
	}
	return m.hiddenGiven(v), nil
}

// VisibleProbabilities returns σ(hWᵀ + b).
func (m *Model) VisibleProbabilities(h mat.Matrix) (*mat.Dense, error) {
	if err := m.checkHidden("visible probabilities", h); err != nil {
		return nil, err
	}
	return m.visibleGiven(h), nil
}

// SampleHiddenGivenVisible draws a P×M binary sample of the hidden layer.
// Each entry is 1 when a uniform draw from rng falls below its probability.
// A nil rng is rejected with ErrNilRand.
func (m *Model) SampleHiddenGivenVisible(v mat.Matrix, rng *rand.Rand) (*mat.Dense, error) {
	if rng == nil {
		return nil, fmt.Errorf("sample hidden: %w", ErrNilRand)
	}
	if err := m.checkVisible("sample hidden", v); err != nil {
		return nil, err
	}
	return bernoulli(m.hiddenGiven(v), rng), nil
}

// SampleVisibleGivenHidden draws a P×N binary sample of the visible layer.
func (m *Model) SampleVisibleGivenHidden(h mat.Matrix, rng *rand.Rand) (*mat.Dense, error) {
	if rng == nil {
		return nil, fmt.Errorf("sample visible: %w", ErrNilRand)
	}
	if err := m.checkHidden("sample visible", h); err != nil {
		return nil, err
	}
	return bernoulli(m.visibleGiven(h), rng), nil
}

// RunChain runs a Gibbs chain of the given length from v0.
//
// Each step samples the hidden layer given the current visible state and then
// the visible layer given that hidden sample. The returned hidden sample is the
// one the returned visible sample was drawn from. With steps == 0 the visible
// state is a copy of v0 and the hidden state is sampled from it.
func (m *Model) RunChain(v0 mat.Matrix, steps int, rng *rand.Rand) (visible, hidden *mat.Dense, err error) {
	if steps < 0 {
		return nil, nil, fmt.Errorf("run chain: %w (got %d)", ErrInvalidSteps, steps)
	}
	if rng == nil {
		return nil, nil, fmt.Errorf("run chain: %w", ErrNilRand)
	}
	if err := m.checkVisible("run chain", v0); err != nil {
		return nil, nil, err
	}

	visible = mat.DenseCopyOf(v0)
	if steps == 0 {
		return visible, bernoulli(m.hiddenGiven(visible), rng), nil
	}
	for k := 0; k < steps; k++ {
		hidden = bernoulli(m.hiddenGiven(visible), rng)
		visible = bernoulli(m.visibleGiven(hidden), rng)
	}
	return visible, hidden, nil
}

func (m *Model) hiddenGiven(v mat.Matrix) *mat.Dense {
	out := m.field(v, m.weights, m.hiddenBias)
	m.sigmoidInPlace(out)
	return out
}

func (m *Model) visibleGiven(h mat.Matrix) *mat.Dense {
	out := m.field(h, m.weights.T(), m.visibleBias)
	m.sigmoidInPlace(out)
	return out
}

// bernoulli replaces each probability in p with a {0,1} draw. Entries are
// visited in row-major order so a seeded rng gives a reproducible sample.
func bernoulli(p *mat.Dense, rng *rand.Rand) *mat.Dense {
	r, _ := p.Dims()
	for i := 0; i < r; i++ {
		row := p.RawRowView(i)
		for j, prob := range row {
			if rng.Float64() < prob {
				row[j] = 1
			} else {
				row[j] = 0
			}
		}
	}
	return p
}
