// Package view turns a Report into a render-ready page description. It does
// no aggregation: every number it shows comes from the Report, and it only
// formats values and computes chart geometry.
package view

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

const NoData = "No data"

// Page is the complete dashboard view tree in display order.
type Page struct {
	Title       string
	Source      string
	GeneratedAt time.Time
	// Freshness is a relative description of the data file's age, such as
	// "3 minutes ago".
	Freshness string

	Cards    []Card
	Products BarChart
	Monthly  LineChart
	Regions  PieChart
	Table    Table
}

type Card struct {
	ID    string
	Label string
	Value string
	Empty bool
}

// Table is the raw dataset, one row per record with every source column.
type Table struct {
	Columns []string
	Rows    [][]string
	Empty   bool
}

// Build is a pure function of the report apart from the relative freshness
// label.
func Build(report *models.Report) Page {
	page := Page{Title: "Sales Performance Dashboard"}
	if report == nil {
		report = &models.Report{}
	}

	page.GeneratedAt = report.GeneratedAt
	if report.Dataset != nil {
		page.Source = report.Dataset.Source
	}
	if !report.SourceModTime.IsZero() {
		page.Freshness = humanize.Time(report.SourceModTime)
	}

	page.Cards = metricCards(report.Metrics)
	page.Products = productChart(report.ByProduct)
	page.Monthly = monthlyChart(report.ByMonth)
	page.Regions = regionChart(report.ByRegion)
	page.Table = rawTable(report.Dataset)
	return page
}

func metricCards(m models.Metrics) []Card {
	empty := m.TotalSales == 0

	average := NoData
	if m.AverageSale.Valid {
		average = Currency(m.AverageSale.Decimal)
	}

	return []Card{
		{ID: "total-revenue", Label: "Total Revenue", Value: Currency(m.TotalRevenue), Empty: empty},
		{ID: "total-sales", Label: "Total Sales", Value: humanize.Comma(int64(m.TotalSales)), Empty: empty},
		{ID: "average-sale", Label: "Average Sale", Value: average, Empty: !m.AverageSale.Valid},
	}
}

func rawTable(ds *models.Dataset) Table {
	if ds == nil {
		return Table{Empty: true}
	}
	t := Table{
		Columns: ds.Columns,
		Rows:    make([][]string, 0, len(ds.Records)),
		Empty:   len(ds.Records) == 0,
	}
	for _, rec := range ds.Records {
		t.Rows = append(t.Rows, rec.Fields)
	}
	return t
}

// Currency formats an amount as whole dollars with thousands separators,
// e.g. "$2,250" or "-$40". Halves round to even.
func Currency(d decimal.Decimal) string {
	n := d.RoundBank(0).IntPart()
	if n < 0 {
		return "-$" + humanize.Comma(-n)
	}
	return "$" + humanize.Comma(n)
}

// CurrencyCents keeps two decimals, for axis and table labels where whole
// dollars lose too much.
func CurrencyCents(d decimal.Decimal) string {
	f := d.RoundBank(2).InexactFloat64()
	if f < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -f)
	}
	return "$" + humanize.FormatFloat("#,###.##", f)
}
