package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
	"sales-dashboard/internal/ui/view"
)

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// HandleRefresh re-renders every dashboard section from the current report
// and patches them into the page by element ID.
func (h *SSEHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerWithRequest(r.Context(), h.logger)
	sse := datastar.NewSSE(w, r)

	report, err := h.analytics.Report(r.Context())
	if err != nil {
		appErr := errors.FromError(err)
		logger.Error("refresh data unavailable", "error", err)
		h.patchStatusError(sse, appErr, logger)
		return
	}

	page := view.Build(report)
	for _, c := range []templ.Component{
		templates.Status(page),
		templates.MetricCards(page.Cards),
		templates.ProductChart(page.Products),
		templates.MonthlyChart(page.Monthly),
		templates.RegionChart(page.Regions),
		templates.RawTable(page.Table),
	} {
		if err := sse.PatchElementTempl(c); err != nil {
			logger.Warn("patch elements", "error", err)
			return
		}
	}

	signals, err := json.Marshal(map[string]any{
		"recordCount": report.RecordCount,
		"generatedAt": report.GeneratedAt,
	})
	if err != nil {
		logger.Error("marshal refresh signals", "error", err)
		return
	}
	if err := sse.PatchSignals(signals); err != nil {
		logger.Warn("patch signals", "error", err)
	}
}

func (h *SSEHandlers) patchStatusError(sse *datastar.ServerSentEventGenerator, appErr *errors.AppError, logger *slog.Logger) {
	msg := appErr.Message
	if appErr.Details != "" {
		msg += ": " + appErr.Details
	}
	if err := sse.PatchElementTempl(templates.StatusError(msg)); err != nil {
		logger.Warn("patch status", "error", err)
	}
}
