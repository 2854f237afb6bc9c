package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

// Required column names, matched case-insensitively against the header.
const (
	ColumnDate    = "Date"
	ColumnProduct = "Product"
	ColumnRegion  = "Region"
	ColumnTotal   = "Total"
)

const cancelCheckEvery = 1024

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
}

// LoadFunc produces a Dataset from the file at path.
type LoadFunc func(ctx context.Context, path string) (*models.Dataset, error)

type columnIndex struct {
	date, product, region, total int
}

// LoadCSV reads the sales file at path. Any row that cannot be parsed fails
// the whole load with ErrMalformedRow; a missing file or required column
// fails with ErrDataUnavailable. A header with no rows is a valid, empty
// Dataset.
func LoadCSV(ctx context.Context, path string) (*models.Dataset, error) {
	ctx, span := observability.StartSpan(ctx, "dataset.load", attribute.String("dataset.path", path))
	defer span.End()

	ds, err := loadCSV(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("dataset.records", ds.Len()))
	return ds, nil
}

func loadCSV(ctx context.Context, path string) (*models.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", apperrors.ErrDataUnavailable, path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", apperrors.ErrDataUnavailable, path, err)
	}

	ds, err := ReadCSV(ctx, file)
	if err != nil {
		return nil, err
	}
	ds.Source = path
	ds.ModTime = info.ModTime()
	return ds, nil
}

// ReadCSV parses a sales table from r. See LoadCSV for the error policy.
func ReadCSV(ctx context.Context, r io.Reader) (*models.Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: file is empty", apperrors.ErrDataUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", apperrors.ErrDataUnavailable, err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	idx, err := resolveColumns(columns)
	if err != nil {
		return nil, err
	}

	records := make([]models.SalesRecord, 0, 64)
	for {
		if len(records)%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("%w: load interrupted: %w", apperrors.ErrDataUnavailable, err)
			}
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedRow, err)
		}
		line, _ := reader.FieldPos(0)

		rec, err := parseRecord(row, idx)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", apperrors.ErrMalformedRow, line, err)
		}
		records = append(records, rec)
	}

	return &models.Dataset{
		Columns:  columns,
		Records:  records,
		LoadedAt: time.Now(),
	}, nil
}

func resolveColumns(columns []string) (columnIndex, error) {
	find := func(name string) int {
		for i, c := range columns {
			if strings.EqualFold(c, name) {
				return i
			}
		}
		return -1
	}

	idx := columnIndex{
		date:    find(ColumnDate),
		product: find(ColumnProduct),
		region:  find(ColumnRegion),
		total:   find(ColumnTotal),
	}

	var missing []string
	for name, i := range map[string]int{
		ColumnDate:    idx.date,
		ColumnProduct: idx.product,
		ColumnRegion:  idx.region,
		ColumnTotal:   idx.total,
	} {
		if i < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return idx, fmt.Errorf("%w: missing required columns: %s", apperrors.ErrDataUnavailable, strings.Join(missing, ", "))
	}
	return idx, nil
}

func parseRecord(row []string, idx columnIndex) (models.SalesRecord, error) {
	fields := make([]string, len(row))
	for i, f := range row {
		fields[i] = strings.TrimSpace(f)
	}

	date, err := parseDate(fields[idx.date])
	if err != nil {
		return models.SalesRecord{}, err
	}

	total, err := parseAmount(fields[idx.total])
	if err != nil {
		return models.SalesRecord{}, err
	}

	return models.SalesRecord{
		Date:    date,
		Month:   date.Format(models.MonthLayout),
		Product: fields[idx.product],
		Region:  fields[idx.region],
		Total:   total,
		Fields:  fields,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func parseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimPrefix(s, "$"), ",", "")
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("empty total")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unparseable total %q", s)
	}
	return d, nil
}
