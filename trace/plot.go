// Package trace renders an optional diagnostic PNG of a chain's recorded
// logLikeGroup trace, mirroring this codebase's existing (narrower) use of
// gonum.org/v1/plot elsewhere in its tree. It is never invoked
// automatically by the driver; a caller opts in after a chain finishes.
package trace

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotLogLikelihood renders samples as a line plot and writes it as a PNG
// to path. It makes no judgement about convergence; it is a plain
// visualization utility.
func PlotLogLikelihood(samples []float64, path string) error {
	if len(samples) == 0 {
		return fmt.Errorf("trace: no samples to plot")
	}

	p := plot.New()
	p.Title.Text = "logLikeGroup trace"
	p.X.Label.Text = "recorded iteration"
	p.Y.Label.Text = "logLikeGroup"

	pts := make(plotter.XYs, len(samples))
	for i, v := range samples {
		pts[i].X = float64(i)
		pts[i].Y = v
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("trace: building line plot: %w", err)
	}
	p.Add(line)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("trace: saving plot to %s: %w", path, err)
	}
	return nil
}
