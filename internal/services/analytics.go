package services

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

// ComputeMetrics derives the headline numbers. An empty dataset yields zero
// revenue, zero sales and an invalid AverageSale.
func ComputeMetrics(ds *models.Dataset) models.Metrics {
	m := models.Metrics{TotalRevenue: decimal.Zero}
	if ds == nil {
		return m
	}

	for _, rec := range ds.Records {
		m.TotalRevenue = m.TotalRevenue.Add(rec.Total)
	}
	m.TotalSales = len(ds.Records)

	if m.TotalSales > 0 {
		m.AverageSale = decimal.NewNullDecimal(m.TotalRevenue.Div(decimal.NewFromInt(int64(m.TotalSales))))
	}
	return m
}

// RevenueByProduct sums Total per product, smallest first.
func RevenueByProduct(ds *models.Dataset) []models.ProductRevenue {
	groups := groupTotals(ds, func(r models.SalesRecord) string { return r.Product })

	result := make([]models.ProductRevenue, 0, len(groups))
	for product, total := range groups {
		result = append(result, models.ProductRevenue{Product: product, Total: total})
	}
	slices.SortFunc(result, func(a, b models.ProductRevenue) int {
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c
		}
		return strings.Compare(a.Product, b.Product)
	})
	return result
}

// RevenueByMonth sums Total per calendar month in chronological order,
// independent of the order rows appear in the file.
func RevenueByMonth(ds *models.Dataset) []models.MonthlyRevenue {
	groups := groupTotals(ds, func(r models.SalesRecord) string { return r.Month })

	result := make([]models.MonthlyRevenue, 0, len(groups))
	for month, total := range groups {
		result = append(result, models.MonthlyRevenue{Month: month, Total: total})
	}
	slices.SortFunc(result, func(a, b models.MonthlyRevenue) int {
		return cmp.Compare(a.Month, b.Month)
	})
	return result
}

// RevenueByRegion sums Total per region, ordered by region name.
func RevenueByRegion(ds *models.Dataset) []models.RegionRevenue {
	groups := groupTotals(ds, func(r models.SalesRecord) string { return r.Region })

	result := make([]models.RegionRevenue, 0, len(groups))
	for region, total := range groups {
		result = append(result, models.RegionRevenue{Region: region, Total: total})
	}
	slices.SortFunc(result, func(a, b models.RegionRevenue) int {
		return cmp.Compare(a.Region, b.Region)
	})
	return result
}

func groupTotals(ds *models.Dataset, key func(models.SalesRecord) string) map[string]decimal.Decimal {
	groups := make(map[string]decimal.Decimal)
	if ds == nil {
		return groups
	}
	for _, rec := range ds.Records {
		k := key(rec)
		groups[k] = groups[k].Add(rec.Total)
	}
	return groups
}

func BuildReport(ds *models.Dataset) *models.Report {
	report := &models.Report{
		Dataset:     ds,
		Metrics:     ComputeMetrics(ds),
		ByProduct:   RevenueByProduct(ds),
		ByMonth:     RevenueByMonth(ds),
		ByRegion:    RevenueByRegion(ds),
		GeneratedAt: time.Now(),
		RecordCount: ds.Len(),
	}
	if ds != nil {
		report.SourceModTime = ds.ModTime
	}
	return report
}

// Analytics serves reports for the dataset currently held by the cache. The
// report for a given Dataset is built once and reused until the cache hands
// out a different Dataset.
type Analytics struct {
	cache  *DatasetCache
	logger *slog.Logger

	mu     sync.Mutex
	source *models.Dataset
	report *models.Report
}

func NewAnalytics(cache *DatasetCache, logger *slog.Logger) *Analytics {
	return &Analytics{
		cache:  cache,
		logger: logger,
	}
}

func (a *Analytics) Report(ctx context.Context) (*models.Report, error) {
	ds, err := a.cache.Get(ctx)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.report != nil && a.source == ds {
		return a.report, nil
	}

	a.report = BuildReport(ds)
	a.source = ds
	a.logger.Debug("report built",
		"records", a.report.RecordCount,
		"products", len(a.report.ByProduct),
		"months", len(a.report.ByMonth),
		"regions", len(a.report.ByRegion),
	)
	return a.report, nil
}

// Refresh drops the cached dataset so the next Report re-reads the file.
func (a *Analytics) Refresh() {
	a.cache.Invalidate(InvalidateManual)
}

func (a *Analytics) Stats() map[string]any {
	stats := a.cache.Stats()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.report != nil {
		stats["products"] = len(a.report.ByProduct)
		stats["months"] = len(a.report.ByMonth)
		stats["regions"] = len(a.report.ByRegion)
		stats["report_generated_at"] = a.report.GeneratedAt
	}
	return stats
}
