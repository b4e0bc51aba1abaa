// Package charts renders the monthly revenue and order line charts as PNG.
package charts

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"jaffle/internal/core"
)

// ErrNoData is returned when the series has no points to plot.
var ErrNoData = errors.New("no data to chart")

const (
	DefaultWidth  = 900
	DefaultHeight = 380

	yTickCount = 5
)

var (
	revenueColor = drawing.ColorFromHex("2ca02c")
	ordersColor  = drawing.ColorFromHex("ff7f0e")
)

// Options sizes a chart. Zero values fall back to the defaults.
type Options struct {
	Width  int
	Height int
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

type spec struct {
	title  string
	yName  string
	color  drawing.Color
	value  func(core.MonthlyPoint) float64
	label  func(core.MonthlyPoint) string
	tickFn func(float64) string
}

var revenueSpec = spec{
	title: "Revenue by Month",
	yName: "Revenue ($)",
	color: revenueColor,
	value: func(p core.MonthlyPoint) float64 { return p.Revenue.InexactFloat64() },
	label: func(p core.MonthlyPoint) string { return core.FormatCurrencyWhole(p.Revenue) },
	tickFn: func(v float64) string {
		return core.FormatCurrencyWhole(decimal.NewFromFloat(v))
	},
}

var ordersSpec = spec{
	title:  "Orders by Month",
	yName:  "Number of Orders",
	color:  ordersColor,
	value:  func(p core.MonthlyPoint) float64 { return float64(p.NumberOfOrders) },
	label:  func(p core.MonthlyPoint) string { return core.FormatCount(p.NumberOfOrders) },
	tickFn: func(v float64) string { return core.FormatCount(int64(math.Round(v))) },
}

// RenderRevenue writes the "Revenue by Month" chart.
func RenderRevenue(w io.Writer, series core.MonthlySeries, opts Options) error {
	return render(w, series, revenueSpec, opts)
}

// RenderOrders writes the "Orders by Month" chart.
func RenderOrders(w io.Writer, series core.MonthlySeries, opts Options) error {
	return render(w, series, ordersSpec, opts)
}

func render(w io.Writer, series core.MonthlySeries, sp spec, opts Options) error {
	if len(series) == 0 {
		return ErrNoData
	}
	ch := buildChart(series, sp, opts)
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s: %w", sp.title, err)
	}
	return nil
}

func buildChart(series core.MonthlySeries, sp spec, opts Options) chart.Chart {
	xs := make([]time.Time, len(series))
	ys := make([]float64, len(series))
	annotations := make([]chart.Value2, len(series))
	maxY := 0.0
	for i, p := range series {
		xs[i] = p.Month.Time()
		ys[i] = sp.value(p)
		maxY = math.Max(maxY, ys[i])
		annotations[i] = chart.Value2{
			XValue: chart.TimeToFloat64(xs[i]),
			YValue: ys[i],
			Label:  sp.label(p),
		}
	}

	// A single month still needs a non-empty X range; only the axis is
	// padded, the series keeps its one real point.
	xMax := xs[len(xs)-1]
	if len(xs) == 1 {
		xMax = xMax.AddDate(0, 1, 0)
	}

	yMax := niceCeil(maxY * 1.1)
	width, height := opts.size()

	return chart.Chart{
		Title:      sp.title,
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 24, Bottom: 24}},
		XAxis: chart.XAxis{
			Name:  "Month",
			Ticks: monthTicks(xs),
			Range: &chart.ContinuousRange{
				Min: chart.TimeToFloat64(xs[0]),
				Max: chart.TimeToFloat64(xMax),
			},
		},
		YAxis: chart.YAxis{
			Name:  sp.yName,
			Range: &chart.ContinuousRange{Min: 0, Max: yMax},
			Ticks: valueTicks(yMax, sp.tickFn),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    sp.title,
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: sp.color,
					StrokeWidth: 2,
					DotColor:    sp.color,
					DotWidth:    4,
				},
			},
			chart.AnnotationSeries{
				Name:        sp.title + " labels",
				Annotations: annotations,
			},
		},
	}
}

func monthTicks(months []time.Time) []chart.Tick {
	ticks := make([]chart.Tick, 0, len(months)+1)
	for _, m := range months {
		ticks = append(ticks, chart.Tick{Value: chart.TimeToFloat64(m), Label: m.Format("Jan 2006")})
	}
	if len(months) == 1 {
		next := months[0].AddDate(0, 1, 0)
		ticks = append(ticks, chart.Tick{Value: chart.TimeToFloat64(next), Label: next.Format("Jan 2006")})
	}
	return ticks
}

func valueTicks(max float64, format func(float64) string) []chart.Tick {
	ticks := make([]chart.Tick, 0, yTickCount+1)
	step := max / yTickCount
	for i := 0; i <= yTickCount; i++ {
		v := step * float64(i)
		ticks = append(ticks, chart.Tick{Value: v, Label: format(v)})
	}
	return ticks
}

// niceCeil rounds v up to 1, 2, 2.5 or 5 times a power of ten.
func niceCeil(v float64) float64 {
	if v <= 0 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if c := m * exp; c >= v {
			return c
		}
	}
	return 10 * exp
}
