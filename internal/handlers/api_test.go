package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

const testCSV = `Date,Product,Region,Total
2024-01-05,Laptop,North,1000
2024-01-20,Mouse,South,50
2024-02-01,Laptop,North,1200
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestAnalytics(t *testing.T, content string) *services.Analytics {
	t.Helper()
	cache := services.NewDatasetCache(writeCSV(t, content), testLogger())
	return services.NewAnalytics(cache, testLogger())
}

func missingAnalytics(t *testing.T) *services.Analytics {
	t.Helper()
	cache := services.NewDatasetCache(filepath.Join(t.TempDir(), "missing.csv"), testLogger())
	return services.NewAnalytics(cache, testLogger())
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Details   string `json:"details"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env
}

func TestAPIHandlers_Metrics(t *testing.T) {
	h := NewAPIHandlers(newTestAnalytics(t, testCSV), testLogger(), "test")

	w := httptest.NewRecorder()
	h.HandleMetrics(w, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.NotEmpty(t, w.Header().Get("Last-Modified"))

	env := decode(t, w)
	require.True(t, env.Success)
	assert.JSONEq(t, `{"total_revenue":"2250","total_sales":3,"average_sale":"750"}`, string(env.Data))
}

func TestAPIHandlers_RevenueViews(t *testing.T) {
	h := NewAPIHandlers(newTestAnalytics(t, testCSV), testLogger(), "test")

	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name:    "products ascending",
			handler: h.HandleProductRevenue,
			want:    `[{"product":"Mouse","total":"50"},{"product":"Laptop","total":"2200"}]`,
		},
		{
			name:    "months chronological",
			handler: h.HandleMonthlyRevenue,
			want:    `[{"month":"2024-01","total":"1050"},{"month":"2024-02","total":"1200"}]`,
		},
		{
			name:    "regions",
			handler: h.HandleRegionRevenue,
			want:    `[{"region":"North","total":"2200"},{"region":"South","total":"50"}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handler(w, httptest.NewRequest(http.MethodGet, "/", nil))

			require.Equal(t, http.StatusOK, w.Code)
			env := decode(t, w)
			assert.True(t, env.Success)
			assert.JSONEq(t, tt.want, string(env.Data))
		})
	}
}

func TestAPIHandlers_Records(t *testing.T) {
	h := NewAPIHandlers(newTestAnalytics(t, testCSV), testLogger(), "test")

	w := httptest.NewRecorder()
	h.HandleRecords(w, httptest.NewRequest(http.MethodGet, "/api/records", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp RecordsResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	assert.Equal(t, []string{"Date", "Product", "Region", "Total"}, resp.Columns)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, []string{"2024-01-20", "Mouse", "South", "50"}, resp.Rows[1])
}

func TestAPIHandlers_EmptyDataset(t *testing.T) {
	h := NewAPIHandlers(newTestAnalytics(t, "Date,Product,Region,Total\n"), testLogger(), "test")

	w := httptest.NewRecorder()
	h.HandleMetrics(w, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total_revenue":"0","total_sales":0,"average_sale":null}`, string(decode(t, w).Data))

	w = httptest.NewRecorder()
	h.HandleProductRevenue(w, httptest.NewRequest(http.MethodGet, "/api/revenue/products", nil))
	assert.JSONEq(t, `[]`, string(decode(t, w).Data))
}

func TestAPIHandlers_DataUnavailable(t *testing.T) {
	h := NewAPIHandlers(missingAnalytics(t), testLogger(), "test")

	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	req = req.WithContext(observability.WithRequestID(req.Context(), "req-123"))
	w := httptest.NewRecorder()
	h.HandleMetrics(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DATA_UNAVAILABLE", env.Error.Code)
	assert.Equal(t, "req-123", env.Error.RequestID)
	assert.Contains(t, env.Error.Details, "missing.csv")
}

func TestAPIHandlers_MalformedRowIsDataUnavailable(t *testing.T) {
	h := NewAPIHandlers(newTestAnalytics(t, "Date,Product,Region,Total\nyesterday,Laptop,North,10\n"), testLogger(), "test")

	w := httptest.NewRecorder()
	h.HandleRegionRevenue(w, httptest.NewRequest(http.MethodGet, "/api/revenue/regions", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "line 2")
}

func TestAPIHandlers_Health(t *testing.T) {
	h := NewAPIHandlers(missingAnalytics(t), testLogger(), "1.2.3")

	w := httptest.NewRecorder()
	h.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var data map[string]string
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "1.2.3", data["version"])
	assert.NotEmpty(t, data["timestamp"])
}

func TestAPIHandlers_StatsAndRefresh(t *testing.T) {
	analytics := newTestAnalytics(t, testCSV)
	h := NewAPIHandlers(analytics, testLogger(), "test")

	w := httptest.NewRecorder()
	h.HandleRefresh(w, httptest.NewRequest(http.MethodPost, "/admin/refresh", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var refreshed map[string]any
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &refreshed))
	assert.Equal(t, true, refreshed["refreshed"])
	assert.Equal(t, 3.0, refreshed["record_count"])

	w = httptest.NewRecorder()
	h.HandleStats(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &stats))
	assert.Equal(t, true, stats["cached"])
	assert.Equal(t, 1.0, stats["generation"])
	assert.Equal(t, 2.0, stats["products"])
}

func TestAPIHandlers_RefreshReportsBrokenFile(t *testing.T) {
	h := NewAPIHandlers(missingAnalytics(t), testLogger(), "test")

	w := httptest.NewRecorder()
	h.HandleRefresh(w, httptest.NewRequest(http.MethodPost, "/admin/refresh", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
