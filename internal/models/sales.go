package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthLayout formats the month key of a record. It sorts lexically in
// calendar order.
const MonthLayout = "2006-01"

type SalesRecord struct {
	Date    time.Time
	Month   string
	Product string
	Region  string
	Total   decimal.Decimal
	// Fields holds every raw cell of the source row, in Dataset.Columns order.
	Fields []string
}

// Dataset is the full set of sales records read from one load of the data
// file. It is never modified after the loader returns it.
type Dataset struct {
	Columns  []string
	Records  []SalesRecord
	Source   string
	ModTime  time.Time
	LoadedAt time.Time
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

type Metrics struct {
	TotalRevenue decimal.Decimal     `json:"total_revenue"`
	TotalSales   int                 `json:"total_sales"`
	AverageSale  decimal.NullDecimal `json:"average_sale"`
}

type ProductRevenue struct {
	Product string          `json:"product"`
	Total   decimal.Decimal `json:"total"`
}

type MonthlyRevenue struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

type RegionRevenue struct {
	Region string          `json:"region"`
	Total  decimal.Decimal `json:"total"`
}

// Report bundles everything the dashboard draws for one dataset.
type Report struct {
	Dataset       *Dataset         `json:"-"`
	Metrics       Metrics          `json:"metrics"`
	ByProduct     []ProductRevenue `json:"by_product"`
	ByMonth       []MonthlyRevenue `json:"by_month"`
	ByRegion      []RegionRevenue  `json:"by_region"`
	GeneratedAt   time.Time        `json:"generated_at"`
	RecordCount   int              `json:"record_count"`
	SourceModTime time.Time        `json:"source_mod_time"`
}
