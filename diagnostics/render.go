package diagnostics

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	bloomErrors "github.com/ezoic/bloomcast/pkg/errors"
)

const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 6 * vg.Inch
)

func toXYs(points []Point) plotter.XYs {
	pts := make(plotter.XYs, len(points))
	for i, p := range points {
		pts[i].X = p.X
		pts[i].Y = p.Y
	}
	return pts
}

// Render saves the scatter with its two reference lines as a PNG.
func (s *AbundanceScatter) Render(path string) error {
	p := plot.New()
	p.Title.Text = "Predicted Probability vs Observed Abundance"
	p.X.Label.Text = "log10(1 + cell count)"
	p.Y.Label.Text = "P(high)"
	p.Y.Min, p.Y.Max = 0, 1

	scatter, err := plotter.NewScatter(toXYs(s.Points))
	if err != nil {
		return bloomErrors.Wrap(err, "abundance scatter")
	}
	scatter.Color = plotter.DefaultLineStyle.Color
	p.Add(scatter)
	p.Legend.Add("Test predictions", scatter)

	maxX := 0.0
	for _, pt := range s.Points {
		if pt.X > maxX {
			maxX = pt.X
		}
	}
	if s.ThresholdLine > maxX {
		maxX = s.ThresholdLine
	}

	decision, err := plotter.NewLine(plotter.XYs{{X: 0, Y: s.DecisionLine}, {X: maxX, Y: s.DecisionLine}})
	if err != nil {
		return bloomErrors.Wrap(err, "decision line")
	}
	decision.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(decision)
	p.Legend.Add("Decision threshold", decision)

	threshold, err := plotter.NewLine(plotter.XYs{{X: s.ThresholdLine, Y: 0}, {X: s.ThresholdLine, Y: 1}})
	if err != nil {
		return bloomErrors.Wrap(err, "threshold line")
	}
	threshold.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	threshold.Color = color.RGBA{R: 196, A: 255}
	p.Add(threshold)
	p.Legend.Add("Count threshold", threshold)

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return bloomErrors.Wrap(err, "save abundance scatter")
	}
	return nil
}

// Render saves the probability time series as a PNG.
func (t *Timeline) Render(path string) error {
	p := plot.New()
	p.Title.Text = "Predicted Probability over Time"
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "P(high)"
	p.Y.Min, p.Y.Max = 0, 1
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	pts := make(plotter.XYs, len(t.Dates))
	for i := range t.Dates {
		pts[i].X = float64(t.Dates[i].Unix())
		pts[i].Y = t.Probs[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return bloomErrors.Wrap(err, "timeline line")
	}
	line.Width = vg.Points(1)
	p.Add(line)

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return bloomErrors.Wrap(err, "save timeline")
	}
	return nil
}

// Render saves the response scatter and its least-squares line as a PNG.
func (c *ResponseCurve) Render(path string) error {
	p := plot.New()
	p.Title.Text = "Response Curve: " + c.Covariate
	p.X.Label.Text = c.Covariate
	p.Y.Label.Text = "P(high)"

	scatter, err := plotter.NewScatter(toXYs(c.Points))
	if err != nil {
		return bloomErrors.Wrap(err, "response scatter")
	}
	scatter.Color = plotter.DefaultLineStyle.Color
	p.Add(scatter)
	p.Legend.Add("Test predictions", scatter)

	minX, maxX := c.Points[0].X, c.Points[0].X
	for _, pt := range c.Points {
		if pt.X < minX {
			minX = pt.X
		}
		if pt.X > maxX {
			maxX = pt.X
		}
	}
	line, err := plotter.NewLine(plotter.XYs{
		{X: minX, Y: c.At(minX)},
		{X: maxX, Y: c.At(maxX)},
	})
	if err != nil {
		return bloomErrors.Wrap(err, "response line")
	}
	line.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add("Least-squares fit", line)

	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return bloomErrors.Wrap(err, "save response curve")
	}
	return nil
}
