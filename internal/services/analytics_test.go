package services

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func record(date string, product, region string, total string) models.SalesRecord {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return models.SalesRecord{
		Date:    d,
		Month:   d.Format(models.MonthLayout),
		Product: product,
		Region:  region,
		Total:   decimal.RequireFromString(total),
		Fields:  []string{date, product, region, total},
	}
}

func dataset(records ...models.SalesRecord) *models.Dataset {
	return &models.Dataset{
		Columns: []string{"Date", "Product", "Region", "Total"},
		Records: records,
	}
}

func scenarioDataset() *models.Dataset {
	return dataset(
		record("2024-01-05", "Laptop", "North", "1000"),
		record("2024-01-20", "Mouse", "South", "50"),
		record("2024-02-01", "Laptop", "North", "1200"),
	)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBuildReport_EndToEndScenario(t *testing.T) {
	report := BuildReport(scenarioDataset())

	assert.True(t, report.Metrics.TotalRevenue.Equal(dec("2250")), "revenue %s", report.Metrics.TotalRevenue)
	assert.Equal(t, 3, report.Metrics.TotalSales)
	require.True(t, report.Metrics.AverageSale.Valid)
	assert.True(t, report.Metrics.AverageSale.Decimal.Equal(dec("750")))

	require.Len(t, report.ByProduct, 2)
	assert.Equal(t, "Mouse", report.ByProduct[0].Product)
	assert.True(t, report.ByProduct[0].Total.Equal(dec("50")))
	assert.Equal(t, "Laptop", report.ByProduct[1].Product)
	assert.True(t, report.ByProduct[1].Total.Equal(dec("2200")))

	require.Len(t, report.ByMonth, 2)
	assert.Equal(t, "2024-01", report.ByMonth[0].Month)
	assert.True(t, report.ByMonth[0].Total.Equal(dec("1050")))
	assert.Equal(t, "2024-02", report.ByMonth[1].Month)
	assert.True(t, report.ByMonth[1].Total.Equal(dec("1200")))

	regions := map[string]decimal.Decimal{}
	for _, r := range report.ByRegion {
		regions[r.Region] = r.Total
	}
	require.Len(t, regions, 2)
	assert.True(t, regions["North"].Equal(dec("2200")))
	assert.True(t, regions["South"].Equal(dec("50")))

	assert.Equal(t, 3, report.RecordCount)
}

func TestViews_SumToTotalRevenue(t *testing.T) {
	ds := dataset(
		record("2023-11-30", "Desk", "West", "199.99"),
		record("2024-03-01", "Chair", "East", "89.10"),
		record("2023-12-24", "Desk", "East", "0.01"),
		record("2024-03-15", "Lamp", "North", "35.35"),
		record("2024-01-02", "Chair", "West", "89.10"),
		record("2023-11-01", "Monitor", "South", "329.00"),
		record("2024-02-29", "Lamp", "South", "35.35"),
	)

	total := ComputeMetrics(ds).TotalRevenue

	sumProducts := decimal.Zero
	for _, v := range RevenueByProduct(ds) {
		sumProducts = sumProducts.Add(v.Total)
	}
	sumMonths := decimal.Zero
	for _, v := range RevenueByMonth(ds) {
		sumMonths = sumMonths.Add(v.Total)
	}
	sumRegions := decimal.Zero
	for _, v := range RevenueByRegion(ds) {
		sumRegions = sumRegions.Add(v.Total)
	}

	assert.True(t, total.Equal(dec("777.90")), "total %s", total)
	assert.True(t, sumProducts.Equal(total), "products %s", sumProducts)
	assert.True(t, sumMonths.Equal(total), "months %s", sumMonths)
	assert.True(t, sumRegions.Equal(total), "regions %s", sumRegions)
}

func TestComputeMetrics_CountAndAverage(t *testing.T) {
	ds := dataset(
		record("2024-01-01", "A", "N", "10"),
		record("2024-01-02", "B", "N", "20"),
		record("2024-01-03", "C", "S", "40"),
		record("2024-01-04", "D", "S", "30"),
	)

	m := ComputeMetrics(ds)

	assert.Equal(t, ds.Len(), m.TotalSales)
	require.True(t, m.AverageSale.Valid)
	expected := m.TotalRevenue.Div(decimal.NewFromInt(int64(m.TotalSales)))
	assert.True(t, m.AverageSale.Decimal.Equal(expected))
	assert.True(t, m.AverageSale.Decimal.Equal(dec("25")))
}

func TestEmptyDataset(t *testing.T) {
	for name, ds := range map[string]*models.Dataset{
		"zero rows":   dataset(),
		"nil dataset": nil,
	} {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				m := ComputeMetrics(ds)
				assert.True(t, m.TotalRevenue.IsZero())
				assert.Equal(t, 0, m.TotalSales)
				assert.False(t, m.AverageSale.Valid)

				assert.NotNil(t, RevenueByProduct(ds))
				assert.Empty(t, RevenueByProduct(ds))
				assert.Empty(t, RevenueByMonth(ds))
				assert.Empty(t, RevenueByRegion(ds))

				report := BuildReport(ds)
				assert.Equal(t, 0, report.RecordCount)
			})
		})
	}
}

func TestRevenueByMonth_ChronologicalOrder(t *testing.T) {
	ds := dataset(
		record("2024-03-10", "A", "N", "3"),
		record("2023-12-31", "A", "N", "12"),
		record("2024-01-15", "A", "N", "1"),
		record("2024-03-01", "A", "N", "3"),
		record("2023-10-02", "A", "N", "10"),
	)

	months := RevenueByMonth(ds)

	keys := make([]string, len(months))
	for i, m := range months {
		keys[i] = m.Month
	}
	assert.Equal(t, []string{"2023-10", "2023-12", "2024-01", "2024-03"}, keys)
	assert.True(t, months[3].Total.Equal(dec("6")))
}

func TestRevenueByProduct_AscendingWithNameTieBreak(t *testing.T) {
	ds := dataset(
		record("2024-01-01", "Zeta", "N", "5"),
		record("2024-01-01", "Alpha", "N", "5"),
		record("2024-01-01", "Big", "N", "100"),
		record("2024-01-01", "Small", "N", "1"),
	)

	got := RevenueByProduct(ds)

	names := make([]string, len(got))
	for i, p := range got {
		names[i] = p.Product
	}
	assert.Equal(t, []string{"Small", "Alpha", "Zeta", "Big"}, names)
}

func TestAnalytics_ReportReusedForSameDataset(t *testing.T) {
	path := writeCSV(t, sampleCSV)
	cache := NewDatasetCache(path, testLogger())
	a := NewAnalytics(cache, testLogger())

	first, err := a.Report(context.Background())
	require.NoError(t, err)
	second, err := a.Report(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first.Dataset, second.Dataset)

	a.Refresh()
	third, err := a.Report(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.True(t, third.Metrics.TotalRevenue.Equal(dec("2250")))
}

func TestAnalytics_Stats(t *testing.T) {
	path := writeCSV(t, sampleCSV)
	a := NewAnalytics(NewDatasetCache(path, testLogger()), testLogger())

	stats := a.Stats()
	assert.Equal(t, false, stats["cached"])

	_, err := a.Report(context.Background())
	require.NoError(t, err)

	stats = a.Stats()
	assert.Equal(t, true, stats["cached"])
	assert.Equal(t, 3, stats["record_count"])
	assert.Equal(t, 2, stats["products"])
	assert.Equal(t, 2, stats["months"])
	assert.Equal(t, 2, stats["regions"])
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	path := writeCSV(t, sampleCSV)
	a := NewAnalytics(NewDatasetCache(path, testLogger()), testLogger())

	var wg sync.WaitGroup
	reports := make([]*models.Report, 10)
	for i := range reports {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := a.Report(context.Background())
			assert.NoError(t, err)
			reports[i] = r
		}()
	}
	wg.Wait()

	for _, r := range reports[1:] {
		assert.Same(t, reports[0].Dataset, r.Dataset)
	}
}

func BenchmarkBuildReport(b *testing.B) {
	records := make([]models.SalesRecord, 10000)
	products := []string{"Laptop", "Mouse", "Keyboard", "Monitor", "Desk"}
	regions := []string{"North", "South", "East", "West"}
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range records {
		d := base.AddDate(0, 0, i%365)
		records[i] = models.SalesRecord{
			Date:    d,
			Month:   d.Format(models.MonthLayout),
			Product: products[i%len(products)],
			Region:  regions[i%len(regions)],
			Total:   decimal.NewFromFloat(float64(i%500) + 0.99),
		}
	}
	ds := dataset(records...)

	b.ResetTimer()
	for b.Loop() {
		_ = BuildReport(ds)
	}
}
