// Package monitor renders fit diagnostics: pull histograms and
// convergence plots as PNG files, and a standalone HTML report. It is a
// pure consumer of fit results; nothing here feeds back into the fit.
package monitor

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/trackfit/internal/track"
)

// FitSummary collects everything the diagnostics render for one run.
type FitSummary struct {
	RunID   string
	Truth   track.DVec
	Fitted  track.DVec
	Errors  track.DVec
	History []track.IterationSummary
	// Pulls are the per-hit residual pulls of the final iteration.
	Pulls []float64
}

// ParamPulls returns the per-parameter (fitted-truth)/error pulls.
func (s FitSummary) ParamPulls() track.DVec {
	var pulls track.DVec
	for i := 0; i < track.NParams; i++ {
		if s.Errors[i] > 0 {
			pulls[i] = (s.Fitted[i] - s.Truth[i]) / s.Errors[i]
		}
	}
	return pulls
}

// PullPlot writes a histogram of the residual pulls to path.
func PullPlot(pulls []float64, title, path string) error {
	if len(pulls) == 0 {
		return fmt.Errorf("no pulls to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "pull"
	p.Y.Label.Text = "hits"

	h, err := plotter.NewHist(plotter.Values(pulls), 16)
	if err != nil {
		return fmt.Errorf("failed to build pull histogram: %w", err)
	}
	p.Add(h)
	return savePlot(p, path)
}

// ConvergencePlot writes the chi-squared and annealing temperature per
// meta-iteration to path.
func ConvergencePlot(history []track.IterationSummary, path string) error {
	if len(history) == 0 {
		return fmt.Errorf("no iterations to plot")
	}
	p := plot.New()
	p.Title.Text = "Fit convergence"
	p.X.Label.Text = "meta-iteration"
	p.Y.Label.Text = "chi²"

	chisq := make(plotter.XYs, len(history))
	temp := make(plotter.XYs, len(history))
	for i, it := range history {
		chisq[i].X = float64(it.Iteration)
		chisq[i].Y = it.Chisq
		temp[i].X = float64(it.Iteration)
		temp[i].Y = it.VarianceScale
	}
	cl, err := plotter.NewLine(chisq)
	if err != nil {
		return fmt.Errorf("failed to build chisq line: %w", err)
	}
	tl, err := plotter.NewLine(temp)
	if err != nil {
		return fmt.Errorf("failed to build temperature line: %w", err)
	}
	tl.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(cl, tl)
	p.Legend.Add("chi²", cl)
	p.Legend.Add("variance scale", tl)
	p.Legend.Top = true
	return savePlot(p, path)
}

// DerivativePlot writes an exact-vs-linearized scatter for one
// parameter's DOCA sensitivity to path.
func DerivativePlot(exact, predicted []float64, name, path string) error {
	if len(exact) != len(predicted) || len(exact) == 0 {
		return fmt.Errorf("mismatched derivative samples: %d vs %d", len(exact), len(predicted))
	}
	p := plot.New()
	p.Title.Text = name + " DOCA change"
	p.X.Label.Text = "exact ΔDOCA (mm)"
	p.Y.Label.Text = "derivative ΔDOCA (mm)"

	xys := make(plotter.XYs, len(exact))
	for i := range exact {
		xys[i].X = exact[i]
		xys[i].Y = predicted[i]
	}
	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("failed to build derivative scatter: %w", err)
	}
	p.Add(sc)
	return savePlot(p, path)
}

func savePlot(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
