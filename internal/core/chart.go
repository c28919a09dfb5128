package core

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// maxChartSeries is how many numeric columns are plotted.
const maxChartSeries = 2

// nominalLabelLimit is the row count above which per-bar x labels are
// replaced by the default numeric ticks.
const nominalLabelLimit = 30

// ChartSeries is one plotted column. Missing cells are NaN.
type ChartSeries struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// ChartData is the input of a grouped bar chart: one category per row and
// one series per numeric column.
type ChartData struct {
	Labels []string      `json:"labels"`
	Series []ChartSeries `json:"series"`
}

// ChartOptions controls rendering.
type ChartOptions struct {
	Title   string
	Width   int    // Points; default 640
	Height  int    // Points; default 360
	Format  string // "png" or "svg"; default "png"
	MaxBars int    // Rows drawn per series; 0 draws all
}

// BuildChart selects the first two numeric columns of ds, in column order.
// Categories are the row indexes 0..n-1.
func BuildChart(ds *Dataset) ChartData {
	data := ChartData{Labels: make([]string, ds.RowCount())}
	for i := range data.Labels {
		data.Labels[i] = strconv.Itoa(i)
	}

	for _, col := range ds.NumericColumns() {
		if len(data.Series) == maxChartSeries {
			break
		}
		values := make([]float64, len(col.Cells))
		for i, c := range col.Cells {
			if c.Missing {
				values[i] = math.NaN()
			} else {
				values[i] = c.Num
			}
		}
		data.Series = append(data.Series, ChartSeries{Name: col.Name, Values: values})
	}
	return data
}

// RenderChart draws data as a grouped bar chart and returns the encoded
// image. Missing values become zero-height bars. Data without series
// renders as empty axes.
func RenderChart(data ChartData, opts ChartOptions) ([]byte, error) {
	if opts.Width <= 0 {
		opts.Width = 640
	}
	if opts.Height <= 0 {
		opts.Height = 360
	}
	if opts.Format == "" {
		opts.Format = "png"
	}
	if opts.Format != "png" && opts.Format != "svg" {
		return nil, fmt.Errorf("unsupported chart format %q", opts.Format)
	}

	n := len(data.Labels)
	if opts.MaxBars > 0 && n > opts.MaxBars {
		n = opts.MaxBars
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Row"
	p.Y.Label.Text = "Value"
	p.Legend.Top = true

	if n > 0 && len(data.Series) > 0 {
		width := barWidth(opts.Width, n, len(data.Series))
		for i, s := range data.Series {
			values := make(plotter.Values, n)
			for j := 0; j < n && j < len(s.Values); j++ {
				v := s.Values[j]
				if math.IsNaN(v) || math.IsInf(v, 0) {
					v = 0
				}
				values[j] = v
			}

			bars, err := plotter.NewBarChart(values, width)
			if err != nil {
				return nil, fmt.Errorf("series %q: %w", s.Name, err)
			}
			bars.LineStyle.Width = vg.Length(0)
			bars.Color = plotutil.Color(i)
			bars.Offset = width * vg.Length(float64(i)-float64(len(data.Series)-1)/2)

			p.Add(bars)
			p.Legend.Add(s.Name, bars)
		}

		if n <= nominalLabelLimit {
			p.NominalX(data.Labels[:n]...)
		}
	}

	wt, err := p.WriterTo(vg.Points(float64(opts.Width)), vg.Points(float64(opts.Height)), opts.Format)
	if err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}

	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

// barWidth spreads the bars over most of the canvas, clamped to [1, 24]
// points per bar.
func barWidth(canvas, rows, series int) vg.Length {
	w := float64(canvas) * 0.8 / float64(rows*series)
	return vg.Points(math.Max(1, math.Min(24, w)))
}
