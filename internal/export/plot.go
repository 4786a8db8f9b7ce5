// Package export renders run results to image files with gonum/plot. The
// output format follows the file extension (.png, .svg, .pdf).
package export

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/pneustab/internal/dynamo"
)

const (
	DefaultWidth  = 10 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// DefaultColumns are the body coordinates plotted when none are named.
var DefaultColumns = []string{"heave", "roll", "pitch"}

// ColumnIndex finds a state column by label.
func ColumnIndex(res *dynamo.Result, name string) (int, error) {
	for i, c := range res.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("unknown column %q", name)
}

// Series extracts one state column against time.
func Series(res *dynamo.Result, column string) (plotter.XYs, error) {
	idx, err := ColumnIndex(res, column)
	if err != nil {
		return nil, err
	}
	pts := make(plotter.XYs, 0, len(res.States))
	for i, s := range res.States {
		if idx >= len(s) || i >= len(res.Times) {
			continue
		}
		pts = append(pts, plotter.XY{X: res.Times[i], Y: s[idx]})
	}
	return pts, nil
}

// TimeSeries builds a plot of the named columns against time.
func TimeSeries(res *dynamo.Result, title string, columns ...string) (*plot.Plot, error) {
	if len(columns) == 0 {
		columns = DefaultColumns
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Add(plotter.NewGrid())

	for i, col := range columns {
		pts, err := Series(res, col)
		if err != nil {
			return nil, err
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(col, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// Phase plots one column against another, for example roll against pitch.
func Phase(res *dynamo.Result, title, xCol, yCol string) (*plot.Plot, error) {
	xi, err := ColumnIndex(res, xCol)
	if err != nil {
		return nil, err
	}
	yi, err := ColumnIndex(res, yCol)
	if err != nil {
		return nil, err
	}
	pts := make(plotter.XYs, 0, len(res.States))
	for _, s := range res.States {
		if xi < len(s) && yi < len(s) {
			pts = append(pts, plotter.XY{X: s[xi], Y: s[yi]})
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xCol
	p.Y.Label.Text = yCol
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = plotutil.Color(0)
	line.Width = vg.Points(1)
	p.Add(plotter.NewGrid(), line)
	return p, nil
}

// SaveTimeSeries renders the named columns to path.
func SaveTimeSeries(res *dynamo.Result, title, path string, columns ...string) error {
	p, err := TimeSeries(res, title, columns...)
	if err != nil {
		return err
	}
	return p.Save(DefaultWidth, DefaultHeight, path)
}

func SavePhase(res *dynamo.Result, title, path, xCol, yCol string) error {
	p, err := Phase(res, title, xCol, yCol)
	if err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}
