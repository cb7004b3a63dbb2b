package waveform

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// RenderPNG writes a static floor plot.
func RenderPNG(w io.Writer, t Trace, width, height vg.Length) error {
	p := plot.New()
	p.Title.Text = "Floor: " + t.Name
	p.X.Label.Text = "seconds"
	p.Y.Label.Text = "floor"

	steps := t.Steps()
	xys := make(plotter.XYs, len(steps))
	for i, s := range steps {
		xys[i] = plotter.XY{X: s.Seconds, Y: float64(s.Floor)}
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("failed to build floor line: %w", err)
	}
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("floor", line)

	if marks := t.Resets(); len(marks) > 0 {
		pts := make(plotter.XYs, len(marks))
		for i, m := range marks {
			pts[i] = plotter.XY{X: m.Seconds, Y: 0}
		}
		scatter, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("failed to build reset markers: %w", err)
		}
		p.Add(scatter)
		p.Legend.Add("reset", scatter)
	}

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}
