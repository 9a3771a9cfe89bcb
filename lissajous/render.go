package lissajous

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is generated when there is nothing to draw
var ErrNoData = errors.New("no samples to plot")

// Options control rendering.  Zero values take defaults
type Options struct {
	Title  string
	XLabel string
	YLabel string
	Width  vg.Length
	Height vg.Length
}

func (o Options) size(w, h vg.Length) (vg.Length, vg.Length) {
	if o.Width > 0 {
		w = o.Width
	}
	if o.Height > 0 {
		h = o.Height
	}
	return w, h
}

// RenderPNG draws y against x as connected points and writes a PNG to w
func RenderPNG(w io.Writer, x, y []float64, opts Options) error {
	x, y = Align(x, y)
	if len(x) == 0 {
		return ErrNoData
	}
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i] = plotter.XY{X: x[i], Y: y[i]}
	}
	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(0)
	line.Width = vg.Points(0.5)
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.Color = plotutil.Color(1)
	scatter.Radius = vg.Points(1.5)
	p.Add(line, scatter)

	width, height := opts.size(6*vg.Inch, 6*vg.Inch)
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// RenderHistory draws each series against its sample index and writes a PNG
// to w.  names label the series in the legend and may be shorter than series
func RenderHistory(w io.Writer, series [][]float64, names []string, opts Options) error {
	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Sample"
	p.Y.Label.Text = opts.YLabel
	drawn := 0
	for i, s := range series {
		if len(s) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(s))
		for j, v := range s {
			pts[j] = plotter.XY{X: float64(j), Y: v}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("series %d: %w", i, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		if i < len(names) {
			p.Legend.Add(names[i], line)
		}
		drawn++
	}
	if drawn == 0 {
		return ErrNoData
	}
	width, height := opts.size(14*vg.Inch, 6*vg.Inch)
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
