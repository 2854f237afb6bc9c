package view

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

// Chart geometry, in SVG user units.
const (
	chartWidth = 640.0

	barGutter    = 140.0
	barValueRoom = 90.0
	barRow       = 32.0
	barThickness = 22.0
	barPad       = 8.0

	lineHeight = 320.0
	lineLeft   = 80.0
	lineRight  = 24.0
	lineTop    = 16.0
	lineBottom = 72.0
	yTickCount = 5

	pieSize   = 420.0
	pieRadius = 140.0
)

// viridis samples matplotlib's viridis colormap from dark to light.
var viridis = []string{
	"#440154", "#482878", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// categorical is the tab10 cycle.
var categorical = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

type Bar struct {
	Label string
	Value string
	Y     float64
	Width float64
	Color string
}

// BarChart is a horizontal bar chart. Bars keep the input order, top to
// bottom.
type BarChart struct {
	Title     string
	Width     float64
	Height    float64
	Gutter    float64
	Thickness float64
	Bars      []Bar
	Empty     bool
}

type Point struct {
	X     float64
	Y     float64
	Label string
	Value string
}

type Tick struct {
	Pos   float64
	Label string
}

// LineChart plots one series over evenly spaced categorical x positions.
type LineChart struct {
	Title      string
	Width      float64
	Height     float64
	PlotLeft   float64
	PlotRight  float64
	PlotTop    float64
	PlotBottom float64
	Points     []Point
	// Polyline is the SVG points attribute for the series.
	Polyline string
	YTicks   []Tick
	Empty    bool
}

type Slice struct {
	Label   string
	Value   string
	Percent string
	Color   string
	// Path is the SVG path of the wedge. A slice covering the whole pie has
	// no wedge and sets Full instead.
	Path     string
	Full     bool
	LabelX   float64
	LabelY   float64
	Anchor   string
	PercentX float64
	PercentY float64
}

// PieChart starts at twelve o'clock and runs counter-clockwise.
type PieChart struct {
	Title  string
	Size   float64
	CX     float64
	CY     float64
	Radius float64
	Slices []Slice
	Empty  bool
}

func productChart(rows []models.ProductRevenue) BarChart {
	chart := BarChart{
		Title:     "Revenue by Product",
		Width:     chartWidth,
		Gutter:    barGutter,
		Thickness: barThickness,
		Empty:     len(rows) == 0,
	}
	chart.Height = barPad*2 + barRow*float64(max(len(rows), 1))
	if chart.Empty {
		return chart
	}

	peak := 0.0
	for _, r := range rows {
		peak = math.Max(peak, r.Total.InexactFloat64())
	}
	plot := chartWidth - barGutter - barValueRoom

	chart.Bars = make([]Bar, len(rows))
	for i, r := range rows {
		width := 0.0
		if v := r.Total.InexactFloat64(); peak > 0 && v > 0 {
			width = v / peak * plot
		}
		chart.Bars[i] = Bar{
			Label: r.Product,
			Value: Currency(r.Total),
			Y:     round2(barPad + barRow*float64(i) + (barRow-barThickness)/2),
			Width: round2(width),
			Color: spread(viridis, i, len(rows)),
		}
	}
	return chart
}

func monthlyChart(rows []models.MonthlyRevenue) LineChart {
	chart := LineChart{
		Title:      "Monthly Revenue Trend",
		Width:      chartWidth,
		Height:     lineHeight,
		PlotLeft:   lineLeft,
		PlotRight:  chartWidth - lineRight,
		PlotTop:    lineTop,
		PlotBottom: lineHeight - lineBottom,
		Empty:      len(rows) == 0,
	}
	if chart.Empty {
		return chart
	}

	lo, hi := 0.0, 0.0
	for _, r := range rows {
		v := r.Total.InexactFloat64()
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}

	plotW := chart.PlotRight - chart.PlotLeft
	plotH := chart.PlotBottom - chart.PlotTop
	yFor := func(v float64) float64 {
		return chart.PlotBottom - (v-lo)/(hi-lo)*plotH
	}

	chart.Points = make([]Point, len(rows))
	for i, r := range rows {
		x := chart.PlotLeft + plotW/2
		if len(rows) > 1 {
			x = chart.PlotLeft + plotW*float64(i)/float64(len(rows)-1)
		}
		chart.Points[i] = Point{
			X:     round2(x),
			Y:     round2(yFor(r.Total.InexactFloat64())),
			Label: r.Month,
			Value: Currency(r.Total),
		}
		if i > 0 {
			chart.Polyline += " "
		}
		chart.Polyline += fmt.Sprintf("%.2f,%.2f", chart.Points[i].X, chart.Points[i].Y)
	}

	chart.YTicks = make([]Tick, yTickCount)
	for k := range yTickCount {
		v := lo + (hi-lo)*float64(k)/float64(yTickCount-1)
		chart.YTicks[k] = Tick{
			Pos:   round2(yFor(v)),
			Label: Currency(decimal.NewFromFloat(v)),
		}
	}
	return chart
}

// regionChart draws each region's share of revenue. Regions whose total is
// zero or negative have no meaningful share and are left out.
func regionChart(rows []models.RegionRevenue) PieChart {
	chart := PieChart{
		Title:  "Revenue Distribution by Region",
		Size:   pieSize,
		CX:     pieSize / 2,
		CY:     pieSize / 2,
		Radius: pieRadius,
	}

	positive := make([]models.RegionRevenue, 0, len(rows))
	total := decimal.Zero
	for _, r := range rows {
		if r.Total.IsPositive() {
			positive = append(positive, r)
			total = total.Add(r.Total)
		}
	}
	if len(positive) == 0 {
		chart.Empty = true
		return chart
	}

	hundred := decimal.NewFromInt(100)
	angle := math.Pi / 2
	chart.Slices = make([]Slice, len(positive))
	for i, r := range positive {
		share := r.Total.Div(total)
		sweep := share.InexactFloat64() * 2 * math.Pi
		mid := angle + sweep/2

		s := Slice{
			Label:   r.Region,
			Value:   Currency(r.Total),
			Percent: fmt.Sprintf("%.1f%%", share.Mul(hundred).InexactFloat64()),
			Color:   categorical[i%len(categorical)],
			Anchor:  "start",
		}
		if len(positive) == 1 {
			s.Full = true
		} else {
			s.Path = wedge(chart.CX, chart.CY, chart.Radius, angle, angle+sweep)
		}

		s.LabelX, s.LabelY = polar(chart.CX, chart.CY, chart.Radius*1.12, mid)
		if math.Cos(mid) < 0 {
			s.Anchor = "end"
		}
		if math.Abs(math.Cos(mid)) < 0.1 {
			s.Anchor = "middle"
		}
		s.PercentX, s.PercentY = polar(chart.CX, chart.CY, chart.Radius*0.6, mid)

		chart.Slices[i] = s
		angle += sweep
	}
	return chart
}

// wedge returns a path from the centre out to start, along the arc to end,
// and back. Angles are radians counter-clockwise from three o'clock.
func wedge(cx, cy, r, start, end float64) string {
	x1, y1 := polar(cx, cy, r, start)
	x2, y2 := polar(cx, cy, r, end)
	large := 0
	if end-start > math.Pi {
		large = 1
	}
	return fmt.Sprintf("M%.2f,%.2f L%.2f,%.2f A%.2f,%.2f 0 %d 0 %.2f,%.2f Z",
		cx, cy, x1, y1, r, r, large, x2, y2)
}

// polar maps an angle to SVG coordinates, where y grows downwards.
func polar(cx, cy, r, a float64) (float64, float64) {
	return round2(cx + r*math.Cos(a)), round2(cy - r*math.Sin(a))
}

func spread(palette []string, i, n int) string {
	if n <= 1 {
		return palette[len(palette)/2]
	}
	return palette[i*(len(palette)-1)/(n-1)]
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
