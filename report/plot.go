package report

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/weiihann/cardbench/characterize"
	"github.com/weiihann/cardbench/collision"
)

var (
	rseColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	biasColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// NewSweepPlot builds a log-x plot of RSE and absolute bias against the true
// cardinality. Crossings, if any, are overlaid as |relErr| at their n.
func NewSweepPlot(title string, points []characterize.SweepPoint, crossings []collision.Crossing) (*plot.Plot, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no sweep points to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "true cardinality"
	p.Y.Label.Text = "relative error"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}

	rse := make(plotter.XYs, len(points))
	bias := make(plotter.XYs, len(points))

	for i, pt := range points {
		rse[i].X = float64(pt.X)
		rse[i].Y = pt.RSE
		bias[i].X = float64(pt.X)
		bias[i].Y = math.Abs(pt.Bias)
	}

	rseLine, err := plotter.NewLine(rse)
	if err != nil {
		return nil, fmt.Errorf("rse line: %w", err)
	}
	rseLine.Color = rseColor

	biasLine, err := plotter.NewLine(bias)
	if err != nil {
		return nil, fmt.Errorf("bias line: %w", err)
	}
	biasLine.Color = biasColor
	biasLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(plotter.NewGrid(), rseLine, biasLine)
	p.Legend.Add("rse", rseLine)
	p.Legend.Add("|bias|", biasLine)

	if len(crossings) > 0 {
		overlay := make(plotter.XYs, 0, len(crossings))
		for _, c := range crossings {
			overlay = append(overlay, plotter.XY{X: float64(c.N), Y: math.Abs(c.RelErr)})
		}

		sc, err := plotter.NewScatter(overlay)
		if err != nil {
			return nil, fmt.Errorf("collision overlay: %w", err)
		}

		p.Add(sc)
		p.Legend.Add("first collision", sc)
	}

	return p, nil
}

// PlotSweep renders NewSweepPlot to path. The image format follows the
// file extension.
func PlotSweep(path, title string, points []characterize.SweepPoint, crossings []collision.Crossing) error {
	p, err := NewSweepPlot(title, points, crossings)
	if err != nil {
		return err
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}

	return nil
}
