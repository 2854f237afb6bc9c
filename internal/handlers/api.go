package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
	version   string
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger, version string) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
		version:   version,
	}
}

// RecordsResponse is the raw dataset as served by /api/records.
type RecordsResponse struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Count   int        `json:"count"`
}

// report fetches the current report, writing the error response itself
// when that fails.
func (h *APIHandlers) report(w http.ResponseWriter, r *http.Request) (*models.Report, bool) {
	report, err := h.analytics.Report(r.Context())
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return nil, false
	}
	return report, true
}

func reportHeaders(report *models.Report) map[string]string {
	headers := map[string]string{
		"Cache-Control": "no-cache",
	}
	if !report.SourceModTime.IsZero() {
		headers["Last-Modified"] = report.SourceModTime.UTC().Format(http.TimeFormat)
	}
	return headers
}

func (h *APIHandlers) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, report.Metrics, reportHeaders(report))
}

func (h *APIHandlers) HandleProductRevenue(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, report.ByProduct, reportHeaders(report))
}

func (h *APIHandlers) HandleMonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, report.ByMonth, reportHeaders(report))
}

func (h *APIHandlers) HandleRegionRevenue(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}
	errors.WriteSuccessWithHeaders(w, report.ByRegion, reportHeaders(report))
}

func (h *APIHandlers) HandleRecords(w http.ResponseWriter, r *http.Request) {
	report, ok := h.report(w, r)
	if !ok {
		return
	}

	resp := RecordsResponse{Rows: make([][]string, 0, report.RecordCount)}
	if ds := report.Dataset; ds != nil {
		resp.Columns = ds.Columns
		for _, rec := range ds.Records {
			resp.Rows = append(resp.Rows, rec.Fields)
		}
	}
	resp.Count = len(resp.Rows)

	errors.WriteSuccessWithHeaders(w, resp, reportHeaders(report))
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   h.version,
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}

// HandleRefresh drops the cached dataset and reloads it straight away so a
// broken file is reported to the caller rather than the next visitor.
func (h *APIHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	h.analytics.Refresh()

	report, ok := h.report(w, r)
	if !ok {
		return
	}

	h.logger.Info("dataset refreshed",
		"request_id", observability.GetRequestID(r.Context()),
		"records", report.RecordCount,
	)
	errors.WriteSuccess(w, map[string]any{
		"refreshed":       true,
		"record_count":    report.RecordCount,
		"source_mod_time": report.SourceModTime,
		"generated_at":    report.GeneratedAt,
	})
}
