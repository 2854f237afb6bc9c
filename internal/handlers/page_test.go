package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageHandlers_Dashboard(t *testing.T) {
	h := NewPageHandlers(newTestAnalytics(t, testCSV), testLogger())

	w := httptest.NewRecorder()
	h.HandleDashboard(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "Sales Performance Dashboard")
	assert.Contains(t, body, "$2,250")
	assert.Contains(t, body, "$750")
	assert.Contains(t, body, "97.8%")
	assert.Contains(t, body, "<td>Mouse</td>")
}

func TestPageHandlers_EmptyDatasetStillRenders(t *testing.T) {
	h := NewPageHandlers(newTestAnalytics(t, "Date,Product,Region,Total\n"), testLogger())

	w := httptest.NewRecorder()
	h.HandleDashboard(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No data")
}

func TestPageHandlers_DataUnavailableShowsErrorPage(t *testing.T) {
	tests := map[string]func(t *testing.T) *PageHandlers{
		"missing file": func(t *testing.T) *PageHandlers {
			return NewPageHandlers(missingAnalytics(t), testLogger())
		},
		"missing column": func(t *testing.T) *PageHandlers {
			return NewPageHandlers(newTestAnalytics(t, "Date,Product,Total\n2024-01-01,Laptop,10\n"), testLogger())
		},
	}

	for name, build := range tests {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			build(t).HandleDashboard(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, http.StatusServiceUnavailable, w.Code)
			body := w.Body.String()
			assert.Contains(t, body, `role="alert"`)
			assert.Contains(t, body, "Sales data could not be loaded")
			assert.NotContains(t, body, `id="metrics"`)
		})
	}
}
