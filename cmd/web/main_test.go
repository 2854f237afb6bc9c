package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
)

const testCSV = `Date,Product,Region,Total
2024-01-05,Laptop,North,1000
2024-01-20,Mouse,South,50
2024-02-01,Laptop,North,1200
`

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// runCLI executes the root command with args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		dataFile = ""
		summaryJSON = false
	})

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSummary_Text(t *testing.T) {
	out, err := runCLI(t, "summary", "--data", writeCSV(t, testCSV))
	require.NoError(t, err)

	for _, want := range []string{
		"Sales Performance Dashboard",
		"Total Revenue", "$2,250",
		"Total Sales", "3",
		"Average Sale", "$750",
		"Revenue by Product", "Mouse", "Laptop",
		"Monthly Revenue Trend", "2024-01", "2024-02",
		"Revenue Distribution by Region", "97.8%", "2.2%",
	} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, bytes.Index([]byte(out), []byte("Mouse")), bytes.Index([]byte(out), []byte("Laptop")))
}

func TestSummary_JSON(t *testing.T) {
	out, err := runCLI(t, "summary", "--json", "--data", writeCSV(t, testCSV))
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	metrics := report["metrics"].(map[string]any)
	assert.Equal(t, "2250", metrics["total_revenue"])
	assert.Equal(t, 3.0, metrics["total_sales"])
	assert.Len(t, report["by_month"], 2)
}

func TestSummary_MissingFile(t *testing.T) {
	_, err := runCLI(t, "summary", "--data", filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, apperrors.ErrDataUnavailable)
}

func TestWriteSummary_Empty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeSummary(&out, &models.Report{Dataset: &models.Dataset{}}))

	assert.Contains(t, out.String(), "No data")
	assert.Contains(t, out.String(), "$0")
}

func TestBuildHandler_FullStack(t *testing.T) {
	t.Setenv("DATA_FILE", writeCSV(t, testCSV))
	cfg, err := loadConfig()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics()
	analytics, _ := newAnalytics(cfg, logger, metrics)
	srv := server.NewServer(analytics, metrics, logger, version)

	ts := httptest.NewServer(buildHandler(cfg, logger, metrics, srv))
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
	assert.Contains(t, string(body), "$2,250")

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Contains(t, string(body), `sales_dashboard_http_requests_total{code="200",method="GET",route="GET /{$}"} 1`)
}

func TestStartWatcher_MissingDirectoryIsNotFatal(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	cache := services.NewDatasetCache(filepath.Join(t.TempDir(), "gone", "sales.csv"), logger)

	assert.Nil(t, startWatcher(cache, 10*time.Millisecond, logger))
	assert.Contains(t, logs.String(), "data file watcher disabled")
}

func TestStartWatcher_ExistingDirectory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := services.NewDatasetCache(writeCSV(t, testCSV), logger)

	watcher := startWatcher(cache, 10*time.Millisecond, logger)
	require.NotNil(t, watcher)
	assert.NoError(t, watcher.Stop())
}

func TestBuildHandler_MissingDataDirectoryServesErrorPage(t *testing.T) {
	t.Setenv("DATA_FILE", filepath.Join(t.TempDir(), "gone", "sales.csv"))
	cfg, err := loadConfig()
	require.NoError(t, err)
	require.True(t, cfg.Data.Watch)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetrics()
	analytics, cache := newAnalytics(cfg, logger, metrics)
	require.Nil(t, startWatcher(cache, cfg.Data.WatchDebounce, logger))

	ts := httptest.NewServer(buildHandler(cfg, logger, metrics, server.NewServer(analytics, metrics, logger, version)))
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, string(body), `role="alert"`)
	assert.Contains(t, string(body), "Sales data could not be loaded")
}
