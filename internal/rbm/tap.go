package rbm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// OnsagerSeed selects the previous-step hidden marginals used by the first
// hidden Onsager term of a TAP iteration, before any hidden update exists.
type OnsagerSeed int

const (
	// SeedNaiveMeanField seeds with one naive mean-field half-step, σ(v0W + c).
	SeedNaiveMeanField OnsagerSeed = iota
	// SeedNeutral seeds with 0.5 everywhere, which makes the first hidden
	// Onsager term vanish.
	SeedNeutral
)

// DefaultOnsagerSeed is the convention used by RunTAP and the TAP estimator.
const DefaultOnsagerSeed = SeedNaiveMeanField

// String returns the seed name.
func (s OnsagerSeed) String() string {
	switch s {
	case SeedNaiveMeanField:
		return "naive-mean-field"
	case SeedNeutral:
		return "neutral"
	default:
		return fmt.Sprintf("OnsagerSeed(%d)", int(s))
	}
}

// RunTAP iterates the second-order TAP equations from v0 using DefaultOnsagerSeed.
func (m *Model) RunTAP(v0 mat.Matrix, steps int) (visible, hidden *mat.Dense, err error) {
	return m.RunTAPWithSeed(v0, steps, DefaultOnsagerSeed)
}

// RunTAPWithSeed iterates the TAP equations from v0. Each step runs, in order:
//
//	onsager_h = ((v − v²)·W²) ⊙ (0.5 − h_prev)
//	h         = σ(vW + c + onsager_h)
//	onsager_v = ((h − h²)·(W²)ᵀ) ⊙ (0.5 − v)
//	v         = σ(hWᵀ + b + onsager_v)
//
// W² is the elementwise square. onsager_v uses the freshly updated h and the
// visible marginals from before the step. h_prev on the first step comes
// from seed. With steps == 0 the visible marginals are a copy of v0 and the
// hidden marginals are the seed.
func (m *Model) RunTAPWithSeed(v0 mat.Matrix, steps int, seed OnsagerSeed) (visible, hidden *mat.Dense, err error) {
	if steps < 0 {
		return nil, nil, fmt.Errorf("tap: %w (got %d)", ErrInvalidSteps, steps)
	}
	if err := m.checkVisible("tap", v0); err != nil {
		return nil, nil, err
	}

	visible = mat.DenseCopyOf(v0)
	hidden, err = m.onsagerSeed(visible, seed)
	if err != nil {
		return nil, nil, err
	}

	w2 := square(m.weights)
	for k := 0; k < steps; k++ {
		var onsagerH mat.Dense
		onsagerH.Mul(variance(visible), w2)
		onsagerH.MulElem(&onsagerH, reaction(hidden))

		next := m.field(visible, m.weights, m.hiddenBias)
		next.Add(next, &onsagerH)
		m.sigmoidInPlace(next)
		hidden = next

		var onsagerV mat.Dense
		onsagerV.Mul(variance(hidden), w2.T())
		onsagerV.MulElem(&onsagerV, reaction(visible))

		nextV := m.field(hidden, m.weights.T(), m.visibleBias)
		nextV.Add(nextV, &onsagerV)
		m.sigmoidInPlace(nextV)
		visible = nextV
	}
	return visible, hidden, nil
}

func (m *Model) onsagerSeed(v *mat.Dense, seed OnsagerSeed) (*mat.Dense, error) {
	switch seed {
	case SeedNaiveMeanField:
		return m.hiddenGiven(v), nil
	case SeedNeutral:
		r, _ := v.Dims()
		h := mat.NewDense(r, m.cfg.Hidden, nil)
		h.Apply(func(_, _ int, _ float64) float64 { return 0.5 }, h)
		return h, nil
	default:
		return nil, fmt.Errorf("tap: unknown onsager seed %v", seed)
	}
}
