package rbm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/rbm/internal/parallel"
)

// sigmoid is the logistic function, evaluated without overflow for large |x|.
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// field returns x·w + bias with bias broadcast over rows.
func (m *Model) field(x, w mat.Matrix, bias *mat.VecDense) *mat.Dense {
	var out mat.Dense
	out.Mul(x, w)
	addRowVec(&out, bias, m.par)
	return &out
}

// addRowVec adds v to every row of a in place.
func addRowVec(a *mat.Dense, v *mat.VecDense, cfg parallel.Config) {
	b := v.RawVector().Data
	if v.RawVector().Inc != 1 {
		b = mat.Col(nil, 0, v)
	}
	r, _ := a.Dims()
	parallel.For(r, func(i int) {
		floats.Add(a.RawRowView(i), b)
	}, cfg)
}

// sigmoidInPlace replaces every entry of a with its logistic.
func (m *Model) sigmoidInPlace(a *mat.Dense) {
	r, _ := a.Dims()
	parallel.For(r, func(i int) {
		row := a.RawRowView(i)
		for j, x := range row {
			row[j] = sigmoid(x)
		}
	}, m.par)
}

// variance returns the Bernoulli variance m − m² of every entry of a.
func variance(a mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, m float64) float64 { return m - m*m }, a)
	return &out
}

// reaction returns 0.5 − m for every entry of a.
func reaction(a mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, _ int, m float64) float64 { return 0.5 - m }, a)
	return &out
}

// square returns the elementwise square of a.
func square(a mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.MulElem(a, a)
	return &out
}

// colSums returns the sum over rows of a as a vector of length cols(a).
func colSums(a *mat.Dense) *mat.VecDense {
	r, c := a.Dims()
	sum := make([]float64, c)
	for i := 0; i < r; i++ {
		floats.Add(sum, a.RawRowView(i))
	}
	return mat.NewVecDense(c, sum)
}

// firstNonFinite returns the index of the first NaN or Inf in data, or -1.
func firstNonFinite(data []float64) int {
	for i, x := range data {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return i
		}
	}
	return -1
}

// denseData returns the entries of a in row-major order.
func denseData(a *mat.Dense) []float64 {
	raw := a.RawMatrix()
	if raw.Stride == raw.Cols {
		return raw.Data[:raw.Rows*raw.Cols]
	}
	out := make([]float64, 0, raw.Rows*raw.Cols)
	for i := 0; i < raw.Rows; i++ {
		out = append(out, a.RawRowView(i)...)
	}
	return out
}
