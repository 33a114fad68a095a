// Package plot renders training curves and weight matrices to image files.
// The output format follows the file extension (.png, .svg, .pdf, ...).
package plot

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/born-ml/rbm/internal/metrics"
)

// Size of every saved figure.
const (
	Width  = 8 * vg.Inch
	Height = 6 * vg.Inch
)

// SaveHistory draws the per-epoch log-likelihood estimate of h.
func SaveHistory(h *metrics.History, title, path string) error {
	epochs, values := h.LogLikelihoods()
	if len(epochs) == 0 {
		return errors.New("plot: history has no log-likelihood values")
	}
	points := make(plotter.XYs, len(epochs))
	for i := range epochs {
		points[i] = plotter.XY{X: epochs[i], Y: values[i]}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "log-likelihood"
	p.Add(plotter.NewGrid())

	line, scatter, err := plotter.NewLinePoints(points)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(2)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(line, scatter)

	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("plot: save %s: %w", path, err)
	}
	return nil
}

// SaveWeights draws w as a heat map with visible units along x and hidden
// units along y.
func SaveWeights(w mat.Matrix, title, path string) error {
	g := weightGrid{w}
	if c, r := g.Dims(); c == 0 || r == 0 {
		return errors.New("plot: empty weight matrix")
	}

	hm := plotter.NewHeatMap(g, palette.Heat(64, 1))
	if hm.Min == hm.Max {
		hm.Min, hm.Max = hm.Min-0.5, hm.Max+0.5
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "visible unit"
	p.Y.Label.Text = "hidden unit"
	p.Add(hm)

	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("plot: save %s: %w", path, err)
	}
	return nil
}

// SaveWeightHistogram draws the distribution of the entries of w.
func SaveWeightHistogram(w mat.Matrix, bins int, title, path string) error {
	r, c := w.Dims()
	if r == 0 || c == 0 {
		return errors.New("plot: empty weight matrix")
	}
	values := make(plotter.Values, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			values = append(values, w.At(i, j))
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "weight"

	hist, err := plotter.NewHist(values, bins)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	p.Add(hist)

	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("plot: save %s: %w", path, err)
	}
	return nil
}

// weightGrid adapts an N×M weight matrix to plotter.GridXYZ.
type weightGrid struct {
	w mat.Matrix
}

func (g weightGrid) Dims() (c, r int) {
	n, m := g.w.Dims()
	return n, m
}

func (g weightGrid) Z(c, r int) float64 { return g.w.At(c, r) }

func (g weightGrid) X(c int) float64 { return float64(c) }

func (g weightGrid) Y(r int) float64 { return float64(r) }
