package rbm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// RunMeanField iterates the naive mean-field equations from v0:
//
//	h = σ(vW + c)
//	v = σ(hWᵀ + b)
//
// Both returned matrices hold marginals in [0, 1]. With steps == 0 the visible
// marginals are an exact copy of v0 and the hidden marginals are σ(v0W + c).
func (m *Model) RunMeanField(v0 mat.Matrix, steps int) (visible, hidden *mat.Dense, err error) {
	if steps < 0 {
		return nil, nil, fmt.Errorf("mean field: %w (got %d)", ErrInvalidSteps, steps)
	}
	if err := m.checkVisible("mean field", v0); err != nil {
		return nil, nil, err
	}

	visible = mat.DenseCopyOf(v0)
	if steps == 0 {
		return visible, m.hiddenGiven(visible), nil
	}
	for k := 0; k < steps; k++ {
		hidden = m.hiddenGiven(visible)
		visible = m.visibleGiven(hidden)
	}
	return visible, hidden, nil
}
