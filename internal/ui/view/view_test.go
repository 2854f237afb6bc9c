package view

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func scenarioReport() *models.Report {
	ds := &models.Dataset{
		Columns: []string{"Date", "Product", "Region", "Total"},
		Records: []models.SalesRecord{
			{Product: "Laptop", Region: "North", Total: dec("1000"), Fields: []string{"2024-01-05", "Laptop", "North", "1000"}},
			{Product: "Mouse", Region: "South", Total: dec("50"), Fields: []string{"2024-01-20", "Mouse", "South", "50"}},
			{Product: "Laptop", Region: "North", Total: dec("1200"), Fields: []string{"2024-02-01", "Laptop", "North", "1200"}},
		},
		Source: "sales_data.csv",
	}
	return &models.Report{
		Dataset: ds,
		Metrics: models.Metrics{
			TotalRevenue: dec("2250"),
			TotalSales:   3,
			AverageSale:  decimal.NewNullDecimal(dec("750")),
		},
		ByProduct: []models.ProductRevenue{
			{Product: "Mouse", Total: dec("50")},
			{Product: "Laptop", Total: dec("2200")},
		},
		ByMonth: []models.MonthlyRevenue{
			{Month: "2024-01", Total: dec("1050")},
			{Month: "2024-02", Total: dec("1200")},
		},
		ByRegion: []models.RegionRevenue{
			{Region: "North", Total: dec("2200")},
			{Region: "South", Total: dec("50")},
		},
		GeneratedAt:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		RecordCount:   3,
		SourceModTime: time.Now().Add(-3 * time.Minute),
	}
}

func TestBuild_MetricCards(t *testing.T) {
	page := Build(scenarioReport())

	require.Len(t, page.Cards, 3)
	assert.Equal(t, "Total Revenue", page.Cards[0].Label)
	assert.Equal(t, "$2,250", page.Cards[0].Value)
	assert.Equal(t, "Total Sales", page.Cards[1].Label)
	assert.Equal(t, "3", page.Cards[1].Value)
	assert.Equal(t, "Average Sale", page.Cards[2].Label)
	assert.Equal(t, "$750", page.Cards[2].Value)
	for _, c := range page.Cards {
		assert.False(t, c.Empty, c.ID)
	}

	assert.Equal(t, "sales_data.csv", page.Source)
	assert.Equal(t, "3 minutes ago", page.Freshness)
}

func TestBuild_ProductBarsKeepAscendingOrder(t *testing.T) {
	chart := Build(scenarioReport()).Products

	require.False(t, chart.Empty)
	require.Len(t, chart.Bars, 2)
	assert.Equal(t, "Mouse", chart.Bars[0].Label)
	assert.Equal(t, "Laptop", chart.Bars[1].Label)
	assert.Less(t, chart.Bars[0].Y, chart.Bars[1].Y)

	plot := chartWidth - barGutter - barValueRoom
	assert.Equal(t, plot, chart.Bars[1].Width)
	assert.InDelta(t, 50.0/2200.0*plot, chart.Bars[0].Width, 0.01)
	assert.Equal(t, "$2,200", chart.Bars[1].Value)
}

func TestBuild_MonthlyLine(t *testing.T) {
	chart := Build(scenarioReport()).Monthly

	require.False(t, chart.Empty)
	require.Len(t, chart.Points, 2)
	assert.Equal(t, "2024-01", chart.Points[0].Label)
	assert.Equal(t, "2024-02", chart.Points[1].Label)
	assert.Equal(t, chart.PlotLeft, chart.Points[0].X)
	assert.Equal(t, chart.PlotRight, chart.Points[1].X)

	// The peak sits on the top edge; zero sits on the bottom edge.
	assert.Equal(t, chart.PlotTop, chart.Points[1].Y)
	assert.Equal(t, "80.00,45.00 616.00,16.00", chart.Polyline)

	require.Len(t, chart.YTicks, yTickCount)
	assert.Equal(t, chart.PlotBottom, chart.YTicks[0].Pos)
	assert.Equal(t, "$0", chart.YTicks[0].Label)
	assert.Equal(t, "$1,200", chart.YTicks[yTickCount-1].Label)
}

func TestBuild_SingleMonthIsCentred(t *testing.T) {
	chart := monthlyChart([]models.MonthlyRevenue{{Month: "2024-05", Total: dec("10")}})

	require.Len(t, chart.Points, 1)
	assert.Equal(t, round2(chart.PlotLeft+(chart.PlotRight-chart.PlotLeft)/2), chart.Points[0].X)
}

func TestBuild_RegionPie(t *testing.T) {
	chart := Build(scenarioReport()).Regions

	require.False(t, chart.Empty)
	require.Len(t, chart.Slices, 2)

	north, south := chart.Slices[0], chart.Slices[1]
	assert.Equal(t, "North", north.Label)
	assert.Equal(t, "97.8%", north.Percent)
	assert.Equal(t, "2.2%", south.Percent)
	assert.NotEqual(t, north.Color, south.Color)

	// First wedge starts at twelve o'clock and takes the large arc.
	assert.True(t, strings.HasPrefix(north.Path, "M210.00,210.00 L210.00,70.00 A140.00,140.00 0 1 0 "), north.Path)
	assert.Contains(t, south.Path, " 0 0 0 ")
}

func TestRegionChart_SingleRegionIsFullCircle(t *testing.T) {
	chart := regionChart([]models.RegionRevenue{{Region: "West", Total: dec("42")}})

	require.Len(t, chart.Slices, 1)
	assert.True(t, chart.Slices[0].Full)
	assert.Empty(t, chart.Slices[0].Path)
	assert.Equal(t, "100.0%", chart.Slices[0].Percent)
}

func TestRegionChart_SkipsNonPositiveTotals(t *testing.T) {
	chart := regionChart([]models.RegionRevenue{
		{Region: "East", Total: dec("-20")},
		{Region: "North", Total: dec("30")},
		{Region: "South", Total: dec("10")},
		{Region: "West", Total: decimal.Zero},
	})

	require.Len(t, chart.Slices, 2)
	assert.Equal(t, "North", chart.Slices[0].Label)
	assert.Equal(t, "75.0%", chart.Slices[0].Percent)
	assert.Equal(t, "25.0%", chart.Slices[1].Percent)

	all := regionChart([]models.RegionRevenue{{Region: "East", Total: dec("-5")}})
	assert.True(t, all.Empty)
}

func TestBuild_RawTable(t *testing.T) {
	table := Build(scenarioReport()).Table

	assert.False(t, table.Empty)
	assert.Equal(t, []string{"Date", "Product", "Region", "Total"}, table.Columns)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"2024-01-20", "Mouse", "South", "50"}, table.Rows[1])
}

func TestBuild_EmptyReport(t *testing.T) {
	for name, report := range map[string]*models.Report{
		"nil report": nil,
		"empty dataset": {
			Dataset: &models.Dataset{Columns: []string{"Date", "Product", "Region", "Total"}},
			Metrics: models.Metrics{TotalRevenue: decimal.Zero},
		},
	} {
		t.Run(name, func(t *testing.T) {
			var page Page
			require.NotPanics(t, func() { page = Build(report) })

			assert.Equal(t, "$0", page.Cards[0].Value)
			assert.Equal(t, "0", page.Cards[1].Value)
			assert.Equal(t, NoData, page.Cards[2].Value)
			assert.True(t, page.Cards[2].Empty)

			assert.True(t, page.Products.Empty)
			assert.True(t, page.Monthly.Empty)
			assert.True(t, page.Regions.Empty)
			assert.True(t, page.Table.Empty)
			assert.Empty(t, page.Products.Bars)
			assert.Empty(t, page.Monthly.Points)
			assert.Empty(t, page.Regions.Slices)
		})
	}
}

func TestCurrency(t *testing.T) {
	tests := map[string]string{
		"2250":      "$2,250",
		"0":         "$0",
		"749.5":     "$750",
		"1234567.4": "$1,234,567",
		"-40":       "-$40",
		"2.5":       "$2",
		"3.5":       "$4",
		"0.5":       "$0",
		"-2.5":      "-$2",
	}
	for in, want := range tests {
		assert.Equal(t, want, Currency(dec(in)), in)
	}

	assert.Equal(t, "$1,250.50", CurrencyCents(dec("1250.5")))
	assert.Equal(t, "-$3.25", CurrencyCents(dec("-3.25")))
	assert.Equal(t, "$0.12", CurrencyCents(dec("0.125")))
}
