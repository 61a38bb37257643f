// Package report renders a simulated latency fit as a figure.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/cwbudde/algo-auditory/internal/demo"
	"github.com/cwbudde/algo-auditory/measure/latency"
)

// Figure size.
const (
	width  = 8 * vg.Inch
	height = 6 * vg.Inch
)

// ErrEmptyReport is returned when there is nothing to draw.
var ErrEmptyReport = errors.New("report: no data points")

// FileName returns the image name for a simulation with the given true
// parameters.
func FileName(p latency.Params) string {
	return "Least-squares fit to noisy data, " + paramLabel(p) + ".png"
}

// Title returns the figure title for a simulation with the given true
// parameters.
func Title(p latency.Params) string {
	return "Least-squares fit to noisy sim, " + paramLabel(p)
}

func paramLabel(p latency.Params) string {
	return fmt.Sprintf("S=%s, Lmin=%s, x0=%s, a=%s",
		formatFloat(p.S), formatFloat(p.Lmin), formatFloat(p.X0), formatFloat(p.A))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Render draws the fitted predictions, the true curve and the noisy samples
// of rep and writes the figure to path. The format follows the extension.
func Render(rep demo.Report, path string) error {
	if len(rep.Stimulus) == 0 {
		return ErrEmptyReport
	}

	p := plot.New()
	p.Title.Text = Title(rep.Config.True)
	p.X.Label.Text = "simulated MAPP (Pa/s^2)"
	p.Y.Label.Text = "latency (msec)"

	fit, err := plotter.NewScatter(points(rep.Stimulus, rep.Fit.Predictions))
	if err != nil {
		return fmt.Errorf("report: fitted curve: %w", err)
	}
	fit.GlyphStyle.Shape = draw.CircleGlyph{}
	fit.GlyphStyle.Color = color.Black

	truth, err := plotter.NewLine(points(rep.Stimulus, rep.TrueLatency))
	if err != nil {
		return fmt.Errorf("report: true curve: %w", err)
	}
	truth.LineStyle.Color = color.Black

	noisy, err := plotter.NewScatter(points(rep.Stimulus, rep.Observed))
	if err != nil {
		return fmt.Errorf("report: samples: %w", err)
	}
	noisy.GlyphStyle.Shape = draw.CrossGlyph{}
	noisy.GlyphStyle.Color = color.Black

	p.Add(fit, truth, noisy)
	p.Legend.Add(fmt.Sprintf("Fit, r = %.3f", rep.R), fit)
	p.Legend.Add("True", truth)
	p.Legend.Add("Noisy error", noisy)
	p.Legend.Top = true

	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}

	return nil
}

// RenderToDir renders rep into dir under FileName and returns the full path.
func RenderToDir(rep demo.Report, dir string) (string, error) {
	path := filepath.Join(dir, FileName(rep.Config.True))

	return path, Render(rep, path)
}

func points(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, len(x))
	for i := range pts {
		pts[i].X = x[i]
		pts[i].Y = y[i]
	}

	return pts
}
