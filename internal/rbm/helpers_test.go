package rbm

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// fixture returns a 4×2 model with hand-picked parameters.
func fixture(t *testing.T) *Model {
	t.Helper()
	cfg := DefaultConfig(4, 2)
	cfg.LearningRate = 0.1
	m, err := NewModel(cfg, NewRand(1))
	require.NoError(t, err)
	require.NoError(t, m.SetParameters(
		mat.NewDense(4, 2, []float64{
			0.5, -0.3,
			-0.2, 0.8,
			0.1, 0.4,
			-0.7, -0.1,
		}),
		mat.NewVecDense(4, []float64{0.1, -0.2, 0.3, 0.0}),
		mat.NewVecDense(2, []float64{-0.5, 0.25}),
	))
	return m
}

// fixtureBatch is a known 2×4 binary batch.
func fixtureBatch() *mat.Dense {
	return mat.NewDense(2, 4, []float64{
		1, 0, 1, 0,
		0, 1, 1, 1,
	})
}

// randomModel returns a model whose weights are scaled by scale.
func randomModel(t *testing.T, n, h int, scale float64, seed int64) *Model {
	t.Helper()
	m, err := NewModel(DefaultConfig(n, h), NewRand(seed))
	require.NoError(t, err)
	rng := NewRand(seed + 1)
	w := mat.NewDense(n, h, nil)
	w.Apply(func(_, _ int, _ float64) float64 { return scale * rng.NormFloat64() }, w)
	b := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		b.SetVec(i, rng.NormFloat64())
	}
	c := mat.NewVecDense(h, nil)
	for a := 0; a < h; a++ {
		c.SetVec(a, rng.NormFloat64())
	}
	require.NoError(t, m.SetParameters(w, b, c))
	return m
}

// uniformBatch returns a p×n matrix of uniform values in [0, 1).
func uniformBatch(p, n int, seed int64) *mat.Dense {
	rng := NewRand(seed)
	x := mat.NewDense(p, n, nil)
	x.Apply(func(_, _ int, _ float64) float64 { return rng.Float64() }, x)
	return x
}

// toRows copies a matrix into nested slices for the loop-based references.
func toRows(a mat.Matrix) [][]float64 {
	r, c := a.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		for j := range out[i] {
			out[i][j] = a.At(i, j)
		}
	}
	return out
}

func requireInRange(t *testing.T, a mat.Matrix, lo, hi float64) {
	t.Helper()
	r, c := a.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := a.At(i, j)
			require.True(t, v >= lo && v <= hi, "entry (%d,%d) = %v outside [%v, %v]", i, j, v, lo, hi)
		}
	}
}

func requireBinary(t *testing.T, a mat.Matrix) {
	t.Helper()
	r, c := a.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := a.At(i, j)
			require.True(t, v == 0 || v == 1, "entry (%d,%d) = %v is not binary", i, j, v)
		}
	}
}
