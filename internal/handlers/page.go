package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
	"sales-dashboard/internal/ui/view"
)

const renderTimeout = 10 * time.Second

const pageTitle = "Sales Performance Dashboard"

type PageHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewPageHandlers(analytics *services.Analytics, logger *slog.Logger) *PageHandlers {
	return &PageHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// HandleDashboard renders the whole dashboard. When the data cannot be
// loaded it renders an error page instead, never a partial dashboard.
func (h *PageHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	logger := observability.LoggerWithRequest(ctx, h.logger)

	report, err := h.analytics.Report(ctx)
	if err != nil {
		appErr := errors.FromError(err)
		logger.Error("dashboard data unavailable", "error", err, "code", appErr.Code)
		h.write(ctx, w, appErr.StatusCode, templates.ErrorPage(pageTitle, appErr.Message, appErr.Details))
		return
	}

	ctx, span := observability.StartSpan(ctx, "dashboard.render")
	defer span.End()

	h.write(ctx, w, http.StatusOK, templates.Dashboard(view.Build(report)))
}

// write renders into a buffer first so a template failure can still become
// a clean 500.
func (h *PageHandlers) write(ctx context.Context, w http.ResponseWriter, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		observability.LoggerWithRequest(ctx, h.logger).Error("render page", "error", err)
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
