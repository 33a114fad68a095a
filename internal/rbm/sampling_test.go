package rbm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/rbm/internal/parallel"
)

// TestEndToEndScenario pins a 4×2 model on a known 2×4 batch: samples are
// binary with the right shape, and one mean-field step yields exactly
// σ(vW + c) as hidden marginals.
func TestEndToEndScenario(t *testing.T) {
	m := fixture(t)
	v := fixtureBatch()

	h, err := m.SampleHiddenGivenVisible(v, NewRand(3))
	require.NoError(t, err)
	r, c := h.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	requireBinary(t, h)

	_, hm, err := m.RunMeanField(v, 1)
	require.NoError(t, err)

	w, b := toRows(m.Weights()), []float64{m.HiddenBias().AtVec(0), m.HiddenBias().AtVec(1)}
	for p, row := range toRows(v) {
		for a := 0; a < 2; a++ {
			x := b[a]
			for i := range row {
				x += row[i] * w[i][a]
			}
			want := 1 / (1 + math.Exp(-x))
			assert.InDelta(t, want, hm.At(p, a), 1e-9, "hidden marginal (%d,%d)", p, a)
		}
	}
}

// TestSampling_Binary checks every sampler output is exactly 0 or 1.
func TestSampling_Binary(t *testing.T) {
	m := randomModel(t, 7, 5, 2, 11)
	rng := NewRand(5)
	v := uniformBatch(30, 7, 9)

	h, err := m.SampleHiddenGivenVisible(v, rng)
	require.NoError(t, err)
	requireBinary(t, h)

	vs, err := m.SampleVisibleGivenHidden(h, rng)
	require.NoError(t, err)
	requireBinary(t, vs)
	r, c := vs.Dims()
	assert.Equal(t, 30, r)
	assert.Equal(t, 7, c)

	cv, ch, err := m.RunChain(v, DefaultSteps, rng)
	require.NoError(t, err)
	requireBinary(t, cv)
	requireBinary(t, ch)
	r, c = ch.Dims()
	assert.Equal(t, 30, r)
	assert.Equal(t, 5, c)
}

// TestSampling_Reproducible checks that equal seeds give equal samples.
func TestSampling_Reproducible(t *testing.T) {
	m := randomModel(t, 6, 4, 1, 2)
	v := fixtureBatchN(6)

	v1, h1, err := m.RunChain(v, 3, NewRand(99))
	require.NoError(t, err)
	v2, h2, err := m.RunChain(v, 3, NewRand(99))
	require.NoError(t, err)

	assert.True(t, mat.Equal(v1, v2))
	assert.True(t, mat.Equal(h1, h2))
}

// TestSampling_Frequency checks that draws follow the activation probability.
func TestSampling_Frequency(t *testing.T) {
	cfg := DefaultConfig(3, 5)
	m, err := NewModel(cfg, NewRand(1))
	require.NoError(t, err)
	// Zero weights and c = log 3 give p = 0.75 for every hidden unit.
	c := mat.NewVecDense(5, []float64{math.Log(3), math.Log(3), math.Log(3), math.Log(3), math.Log(3)})
	require.NoError(t, m.SetParameters(mat.NewDense(3, 5, nil), mat.NewVecDense(3, nil), c))

	h, err := m.SampleHiddenGivenVisible(mat.NewDense(4000, 3, nil), NewRand(17))
	require.NoError(t, err)
	mean := mat.Sum(h) / (4000 * 5)
	assert.InDelta(t, 0.75, mean, 0.015)
}

// TestRunChain_ReturnsConsistentPair uses near-deterministic couplings so the
// visible sample must copy the hidden sample it was drawn from.
func TestRunChain_ReturnsConsistentPair(t *testing.T) {
	cfg := DefaultConfig(3, 3)
	m, err := NewModel(cfg, NewRand(1))
	require.NoError(t, err)
	w := mat.NewDense(3, 3, []float64{
		60, 0, 0,
		0, 60, 0,
		0, 0, 60,
	})
	bias := mat.NewVecDense(3, []float64{-30, -30, -30})
	require.NoError(t, m.SetParameters(w, bias, bias))

	v0 := mat.NewDense(2, 3, []float64{1, 0, 1, 0, 1, 1})
	v, h, err := m.RunChain(v0, 5, NewRand(8))
	require.NoError(t, err)
	assert.True(t, mat.Equal(v, h))
	assert.True(t, mat.Equal(v, v0))
}

// TestRunChain_ZeroSteps returns the initial state and a hidden sample of it.
func TestRunChain_ZeroSteps(t *testing.T) {
	m := fixture(t)
	v0 := fixtureBatch()
	v, h, err := m.RunChain(v0, 0, NewRand(1))
	require.NoError(t, err)
	assert.True(t, mat.Equal(v0, v))
	requireBinary(t, h)
}

// TestSampling_NilRand checks that every sampler rejects a missing source
// instead of panicking.
func TestSampling_NilRand(t *testing.T) {
	m := fixture(t)
	before := m.Clone()

	_, err := m.SampleHiddenGivenVisible(fixtureBatch(), nil)
	assert.ErrorIs(t, err, ErrNilRand)

	_, err = m.SampleVisibleGivenHidden(mat.NewDense(2, 2, nil), nil)
	assert.ErrorIs(t, err, ErrNilRand)

	_, _, err = m.RunChain(fixtureBatch(), 2, nil)
	assert.ErrorIs(t, err, ErrNilRand)

	assert.NotPanics(t, func() {
		_, err = (&MCMC{Steps: 2}).Gradient(m, fixtureBatch())
	})
	assert.ErrorIs(t, err, ErrNilRand)

	_, err = Update(m, &MCMC{Steps: 2}, fixtureBatch())
	assert.ErrorIs(t, err, ErrNilRand)
	assert.True(t, mat.Equal(before.Weights(), m.Weights()))
}

// TestSampling_ShapeMismatch checks that wrong widths fail fast.
func TestSampling_ShapeMismatch(t *testing.T) {
	m := fixture(t)
	rng := NewRand(1)

	_, err := m.SampleHiddenGivenVisible(mat.NewDense(2, 3, nil), rng)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = m.SampleVisibleGivenHidden(mat.NewDense(2, 4, nil), rng)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, _, err = m.RunChain(mat.NewDense(2, 5, nil), 1, rng)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = m.HiddenProbabilities(mat.NewDense(1, 2, nil))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = m.VisibleProbabilities(mat.NewDense(1, 4, nil))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, _, err = m.RunChain(fixtureBatch(), -1, rng)
	assert.ErrorIs(t, err, ErrInvalidSteps)
}

// fixtureBatchN returns a 3×n binary batch with a checkerboard pattern.
func fixtureBatchN(n int) *mat.Dense {
	x := mat.NewDense(3, n, nil)
	x.Apply(func(i, j int, _ float64) float64 { return float64((i + j) % 2) }, x)
	return x
}

// TestParallelismDoesNotChangeResults compares sequential and parallel maps.
func TestParallelismDoesNotChangeResults(t *testing.T) {
	m := randomModel(t, 12, 6, 1, 3)
	batch := uniformBatch(300, 12, 4)

	m.SetParallelism(parallel.Sequential())
	vs, hs, err := m.RunTAP(batch, DefaultSteps)
	require.NoError(t, err)

	p := m.Clone()
	p.SetParallelism(parallel.Config{Enabled: true, NumWorkers: 4, MinRows: 8})
	vp, hp, err := p.RunTAP(batch, DefaultSteps)
	require.NoError(t, err)

	assert.True(t, mat.Equal(vs, vp))
	assert.True(t, mat.Equal(hs, hp))
}
