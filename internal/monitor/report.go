package monitor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/trackfit/internal/track"
)

// WriteFitReport renders a standalone HTML page with the convergence
// history and the parameter pulls of one fit run.
func WriteFitReport(w io.Writer, sum FitSummary) error {
	page := components.NewPage()
	page.PageTitle = "trackfit run " + sum.RunID

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Convergence", Subtitle: "run " + sum.RunID}),
		charts.WithYAxisOpts(opts.YAxis{Name: "chi²"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "iteration"}),
	)
	var labels []string
	var chisq, temps []opts.LineData
	for _, it := range sum.History {
		labels = append(labels, fmt.Sprintf("%d", it.Iteration))
		chisq = append(chisq, opts.LineData{Value: it.Chisq})
		temps = append(temps, opts.LineData{Value: it.VarianceScale})
	}
	line.SetXAxis(labels).
		AddSeries("chi²", chisq).
		AddSeries("variance scale", temps)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Parameter pulls", Subtitle: "(fit − truth)/error"}),
	)
	var names []string
	var pulls []opts.BarData
	pp := sum.ParamPulls()
	for i := 0; i < track.NParams; i++ {
		names = append(names, track.ParamName(i))
		pulls = append(pulls, opts.BarData{Value: pp[i]})
	}
	bar.SetXAxis(names).AddSeries("pull", pulls)

	page.AddCharts(line, bar)
	return page.Render(w)
}

// WriteFitReportFile renders the report into a file at path.
func WriteFitReportFile(path string, sum FitSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	defer f.Close()
	return WriteFitReport(f, sum)
}
