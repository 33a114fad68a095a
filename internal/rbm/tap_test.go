package rbm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// tapStepReference computes one TAP step for a single row with plain loops.
func tapStepReference(w [][]float64, b, c, v, hPrev []float64) (vNext, h []float64) {
	n, nh := len(v), len(c)
	h = make([]float64, nh)
	for a := 0; a < nh; a++ {
		x := c[a]
		var ons float64
		for i := 0; i < n; i++ {
			x += v[i] * w[i][a]
			ons += (v[i] - v[i]*v[i]) * w[i][a] * w[i][a]
		}
		h[a] = sigmoid(x + ons*(0.5-hPrev[a]))
	}
	vNext = make([]float64, n)
	for i := 0; i < n; i++ {
		x := b[i]
		var ons float64
		for a := 0; a < nh; a++ {
			x += h[a] * w[i][a]
			ons += (h[a] - h[a]*h[a]) * w[i][a] * w[i][a]
		}
		vNext[i] = sigmoid(x + ons*(0.5-v[i]))
	}
	return vNext, h
}

// TestRunTAP_FirstStep pins the first step for both seed conventions. The
// input is fractional so the hidden Onsager term is nonzero.
func TestRunTAP_FirstStep(t *testing.T) {
	m := randomModel(t, 5, 3, 1.5, 31)
	v0 := uniformBatch(3, 5, 12)

	w := toRows(m.Weights())
	b := mat.Col(nil, 0, m.VisibleBias())
	c := mat.Col(nil, 0, m.HiddenBias())

	tests := []struct {
		seed OnsagerSeed
		prev func(v []float64) []float64
	}{
		{SeedNaiveMeanField, func(v []float64) []float64 {
			h := make([]float64, len(c))
			for a := range h {
				x := c[a]
				for i := range v {
					x += v[i] * w[i][a]
				}
				h[a] = sigmoid(x)
			}
			return h
		}},
		{SeedNeutral, func([]float64) []float64 { return []float64{0.5, 0.5, 0.5} }},
	}

	for _, tt := range tests {
		t.Run(tt.seed.String(), func(t *testing.T) {
			v, h, err := m.RunTAPWithSeed(v0, 1, tt.seed)
			require.NoError(t, err)
			for p, row := range toRows(v0) {
				wantV, wantH := tapStepReference(w, b, c, row, tt.prev(row))
				for i := range wantV {
					assert.InDelta(t, wantV[i], v.At(p, i), 1e-12)
				}
				for a := range wantH {
					assert.InDelta(t, wantH[a], h.At(p, a), 1e-12)
				}
			}
		})
	}
}

// TestRunTAP_SeedsDiffer checks that the seed choice reaches the result.
func TestRunTAP_SeedsDiffer(t *testing.T) {
	m := randomModel(t, 5, 3, 1.5, 31)
	v0 := uniformBatch(3, 5, 12)

	_, hNaive, err := m.RunTAPWithSeed(v0, 1, SeedNaiveMeanField)
	require.NoError(t, err)
	_, hNeutral, err := m.RunTAPWithSeed(v0, 1, SeedNeutral)
	require.NoError(t, err)
	assert.False(t, mat.EqualApprox(hNaive, hNeutral, 1e-9))
}

// TestRunTAP_MultiStep iterates the reference for several steps.
func TestRunTAP_MultiStep(t *testing.T) {
	m := randomModel(t, 4, 4, 0.8, 5)
	v0 := fixtureBatchN(4)

	v, h, err := m.RunTAP(v0, DefaultSteps)
	require.NoError(t, err)

	w := toRows(m.Weights())
	b := mat.Col(nil, 0, m.VisibleBias())
	c := mat.Col(nil, 0, m.HiddenBias())
	seed, err := m.HiddenProbabilities(v0)
	require.NoError(t, err)

	for p, vr := range toRows(v0) {
		hr := seed.RawRowView(p)
		for k := 0; k < DefaultSteps; k++ {
			vr, hr = tapStepReference(w, b, c, vr, hr)
		}
		for i := range vr {
			assert.InDelta(t, vr[i], v.At(p, i), 1e-12)
		}
		for a := range hr {
			assert.InDelta(t, hr[a], h.At(p, a), 1e-12)
		}
	}
}

// TestRunTAP_ApproachesMeanField checks that the Onsager correction vanishes
// as the weights shrink.
func TestRunTAP_ApproachesMeanField(t *testing.T) {
	v0 := uniformBatch(6, 8, 2)
	base := randomModel(t, 8, 5, 1, 9)

	var diffs []float64
	for _, eps := range []float64{1e-1, 1e-2, 1e-3} {
		m := base.Clone()
		var w mat.Dense
		w.Scale(eps, base.Weights())
		require.NoError(t, m.SetParameters(&w, base.VisibleBias(), base.HiddenBias()))

		vt, ht, err := m.RunTAP(v0, DefaultSteps)
		require.NoError(t, err)
		vm, hm, err := m.RunMeanField(v0, DefaultSteps)
		require.NoError(t, err)

		var dv, dh mat.Dense
		dv.Sub(vt, vm)
		dh.Sub(ht, hm)
		diffs = append(diffs, math.Max(maxAbs(&dv), maxAbs(&dh)))
	}

	assert.Greater(t, diffs[0], diffs[1])
	assert.Greater(t, diffs[1], diffs[2])
	assert.Less(t, diffs[2], 1e-5)
}

// TestRunTAP_Range checks that marginals stay in [0, 1] for strong weights.
func TestRunTAP_Range(t *testing.T) {
	m := randomModel(t, 10, 6, 20, 4)
	for _, seed := range []OnsagerSeed{SeedNaiveMeanField, SeedNeutral} {
		v, h, err := m.RunTAPWithSeed(uniformBatch(7, 10, 1), 6, seed)
		require.NoError(t, err)
		requireInRange(t, v, 0, 1)
		requireInRange(t, h, 0, 1)
	}
}

// TestRunTAP_Deterministic checks that repeated calls agree bit for bit.
func TestRunTAP_Deterministic(t *testing.T) {
	m := randomModel(t, 8, 5, 2, 12)
	v0 := uniformBatch(6, 8, 2)

	v1, h1, err := m.RunTAP(v0, 5)
	require.NoError(t, err)
	v2, h2, err := m.RunTAP(v0, 5)
	require.NoError(t, err)

	assert.True(t, mat.Equal(v1, v2))
	assert.True(t, mat.Equal(h1, h2))
}

// TestRunTAP_ZeroSteps returns v0 and the seed.
func TestRunTAP_ZeroSteps(t *testing.T) {
	m := fixture(t)
	v0 := uniformBatch(2, 4, 6)

	v, h, err := m.RunTAPWithSeed(v0, 0, SeedNeutral)
	require.NoError(t, err)
	assert.True(t, mat.Equal(v0, v))
	requireInRange(t, h, 0.5, 0.5)

	_, h, err = m.RunTAP(v0, 0)
	require.NoError(t, err)
	want, err := m.HiddenProbabilities(v0)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, h))
}

// TestRunTAP_Errors checks validation of steps, shapes and seeds.
func TestRunTAP_Errors(t *testing.T) {
	m := fixture(t)
	_, _, err := m.RunTAP(fixtureBatch(), -1)
	assert.ErrorIs(t, err, ErrInvalidSteps)

	_, _, err = m.RunTAP(mat.NewDense(1, 2, nil), 1)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, _, err = m.RunTAPWithSeed(fixtureBatch(), 1, OnsagerSeed(7))
	assert.Error(t, err)
	assert.Equal(t, "OnsagerSeed(7)", OnsagerSeed(7).String())
}

func maxAbs(a mat.Matrix) float64 {
	return math.Max(math.Abs(mat.Max(a)), math.Abs(mat.Min(a)))
}
