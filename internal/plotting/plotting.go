// Package plotting renders prior/posterior densities and experiment sweeps with gonum/plot.
// The output format follows the file extension (png, svg, pdf, ...).
package plotting

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gocalib/domain/calibration"
	"gocalib/domain/core"
	"gocalib/internal/distributions"
	"gocalib/internal/experiment"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// DefaultPoints is the number of density samples per curve
const DefaultPoints = 400

var (
	posteriorColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	posteriorFill  = color.RGBA{R: 31, G: 119, B: 180, A: 64}
	priorColor     = color.RGBA{R: 127, G: 127, B: 127, A: 255}
	meanColor      = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	boundColor     = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	truthColor     = color.RGBA{R: 255, G: 127, B: 14, A: 255}

	dashed = []vg.Length{vg.Points(5), vg.Points(3)}
)

var dists = distributions.NewDistributions()

// DensityCurve samples the Beta density at points interior abscissae of (0, 1).
// Endpoints are avoided since the density diverges there when a shape is below 1.
func DensityCurve(params calibration.BetaParameters, points int) (plotter.XYs, error) {
	if points < 2 {
		return nil, core.NewValidationError("points", fmt.Sprintf("must be >= 2, got %d", points))
	}

	xys := make(plotter.XYs, points)
	for i := range xys {
		x := (float64(i) + 0.5) / float64(points)
		y, err := dists.BetaPDF(x, params.Alpha, params.Beta)
		if err != nil {
			return nil, err
		}
		xys[i].X = x
		xys[i].Y = y
	}
	return xys, nil
}

// PlotPriorPosterior writes a figure of the prior and posterior densities of r to path
func PlotPriorPosterior(r *calibration.Result, path string) error {
	p, err := priorPosteriorPlot(r, fmt.Sprintf("Posterior after %d observations (width %.3f)", r.SampleSize(), r.Width()), math.NaN())
	if err != nil {
		return err
	}
	p.Legend.Top = true
	return save(path, 8*vg.Inch, 5*vg.Inch, [][]*plot.Plot{{p}})
}

// PlotTrials writes a grid with one prior/posterior panel per result.
// truth is drawn as a reference line on every panel; pass NaN to omit it.
func PlotTrials(results []*calibration.Result, title string, truth float64, path string) error {
	if len(results) == 0 {
		return core.NewValidationError("results", "must not be empty")
	}

	cols := 3
	if len(results) < cols {
		cols = len(results)
	}
	rows := (len(results) + cols - 1) / cols

	grid := make([][]*plot.Plot, rows)
	for i := range grid {
		grid[i] = make([]*plot.Plot, cols)
	}
	for i, r := range results {
		p, err := priorPosteriorPlot(r, fmt.Sprintf("%s n=%d", title, r.SampleSize()), truth)
		if err != nil {
			return err
		}
		grid[i/cols][i%cols] = p
	}

	return save(path, vg.Length(cols)*4*vg.Inch, vg.Length(rows)*3*vg.Inch, grid)
}

// PlotConvergence writes EMV and posterior mean against sample size.
// truth is drawn as a reference line; pass NaN to omit it.
func PlotConvergence(points []experiment.ConvergencePoint, truth float64, path string) error {
	if len(points) == 0 {
		return core.NewValidationError("points", "must not be empty")
	}

	p := plot.New()
	p.Title.Text = "Convergence of the posterior mean"
	p.X.Label.Text = "Sample size"
	p.Y.Label.Text = "Probability"
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())

	emvXYs := make(plotter.XYs, len(points))
	calXYs := make(plotter.XYs, len(points))
	for i, pt := range points {
		emvXYs[i] = plotter.XY{X: float64(pt.Size), Y: pt.EMV}
		calXYs[i] = plotter.XY{X: float64(pt.Size), Y: pt.Calibrated}
	}

	emvLine, emvPoints, err := plotter.NewLinePoints(emvXYs)
	if err != nil {
		return err
	}
	emvLine.Color = priorColor
	emvPoints.Color = priorColor
	emvPoints.Shape = draw.CircleGlyph{}

	calLine, err := plotter.NewLine(calXYs)
	if err != nil {
		return err
	}
	calLine.Color = posteriorColor
	calLine.Width = vg.Points(2)

	p.Add(emvLine, emvPoints, calLine)
	p.Legend.Add("EMV", emvLine, emvPoints)
	p.Legend.Add("Posterior mean", calLine)

	if !math.IsNaN(truth) {
		ref, err := horizontal(truth, emvXYs[0].X, emvXYs[len(emvXYs)-1].X, truthColor)
		if err != nil {
			return err
		}
		p.Add(ref)
		p.Legend.Add("True probability", ref)
	}

	return save(path, 8*vg.Inch, 5*vg.Inch, [][]*plot.Plot{{p}})
}

func priorPosteriorPlot(r *calibration.Result, title string, truth float64) (*plot.Plot, error) {
	if r == nil {
		return nil, core.NewValidationError("result", "must not be nil")
	}

	posterior, err := DensityCurve(r.PosteriorParameters(), DefaultPoints)
	if err != nil {
		return nil, err
	}
	prior, err := DensityCurve(r.PriorParameters(), DefaultPoints)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Probability"
	p.Y.Label.Text = "Density"
	p.X.Min, p.X.Max = 0, 1
	p.Add(plotter.NewGrid())

	postLine, err := plotter.NewLine(posterior)
	if err != nil {
		return nil, err
	}
	postLine.Color = posteriorColor
	postLine.Width = vg.Points(2)
	postLine.FillColor = posteriorFill

	priorLine, err := plotter.NewLine(prior)
	if err != nil {
		return nil, err
	}
	priorLine.Color = priorColor
	priorLine.Dashes = dashed

	top := peak(posterior)
	if pk := peak(prior); pk > top {
		top = pk
	}

	meanLine, err := vertical(r.MeanProbability().Float64(), top, meanColor)
	if err != nil {
		return nil, err
	}
	lowerLine, err := vertical(r.LowerBound().Float64(), top, boundColor)
	if err != nil {
		return nil, err
	}
	upperLine, err := vertical(r.UpperBound().Float64(), top, boundColor)
	if err != nil {
		return nil, err
	}

	p.Add(postLine, priorLine, meanLine, lowerLine, upperLine)
	p.Legend.Add("Posterior "+r.PosteriorParameters().String(), postLine)
	p.Legend.Add("Prior "+r.PriorParameters().String(), priorLine)
	p.Legend.Add(fmt.Sprintf("Mean %.3f", r.MeanProbability().Float64()), meanLine)
	p.Legend.Add(fmt.Sprintf("%.0f%% interval", r.ConfidenceLevel().Float64()*100), lowerLine)

	if !math.IsNaN(truth) {
		ref, err := vertical(truth, top, truthColor)
		if err != nil {
			return nil, err
		}
		p.Add(ref)
		p.Legend.Add("True probability", ref)
	}

	return p, nil
}

func vertical(x, height float64, c color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: height}})
	if err != nil {
		return nil, err
	}
	l.Color = c
	l.Dashes = dashed
	return l, nil
}

func horizontal(y, from, to float64, c color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: from, Y: y}, {X: to, Y: y}})
	if err != nil {
		return nil, err
	}
	l.Color = c
	l.Dashes = dashed
	return l, nil
}

func peak(xys plotter.XYs) float64 {
	top := 0.0
	for _, xy := range xys {
		if xy.Y > top && !math.IsInf(xy.Y, 0) {
			top = xy.Y
		}
	}
	return top
}

func save(path string, width, height vg.Length, grid [][]*plot.Plot) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		return core.NewValidationError("path", fmt.Sprintf("%q has no file extension", path))
	}

	canvas, err := draw.NewFormattedCanvas(width, height, format)
	if err != nil {
		return core.NewValidationError("path", err.Error())
	}

	dc := draw.New(canvas)
	tiles := draw.Tiles{
		Rows: len(grid),
		Cols: len(grid[0]),
		PadX: vg.Millimeter * 4,
		PadY: vg.Millimeter * 4,
	}
	for row, plots := range grid {
		for col, p := range plots {
			if p == nil {
				continue
			}
			p.Draw(tiles.At(dc, col, row))
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := canvas.WriteTo(f); err != nil {
		return err
	}
	return f.Close()
}
