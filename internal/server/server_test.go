package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

const testCSV = `Date,Product,Region,Total
2024-01-05,Laptop,North,1000
2024-01-20,Mouse,South,50
2024-02-01,Laptop,North,1200
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*Server, *observability.Metrics) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0o600))

	metrics := observability.NewMetrics()
	cache := services.NewDatasetCache(path, testLogger(), services.WithMetrics(metrics))
	return NewServer(services.NewAnalytics(cache, testLogger()), metrics, testLogger(), "test"), metrics
}

func TestServer_Routes(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		method       string
		path         string
		expectedCode int
		contentType  string
	}{
		{http.MethodGet, "/", http.StatusOK, "text/html"},
		{http.MethodGet, "/health", http.StatusOK, "application/json"},
		{http.MethodGet, "/admin/stats", http.StatusOK, "application/json"},
		{http.MethodPost, "/admin/refresh", http.StatusOK, "application/json"},
		{http.MethodGet, "/metrics", http.StatusOK, "text/plain"},
		{http.MethodGet, "/api/metrics", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/revenue/products", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/revenue/monthly", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/revenue/regions", http.StatusOK, "application/json"},
		{http.MethodGet, "/api/records", http.StatusOK, "application/json"},
		{http.MethodGet, "/sse/refresh", http.StatusOK, "text/event-stream"},
		{http.MethodGet, "/nonexistent", http.StatusNotFound, ""},
		{http.MethodGet, "/admin/refresh", http.StatusMethodNotAllowed, ""},
		{http.MethodPost, "/api/metrics", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.contentType != "" {
				assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), tt.contentType),
					"content type %q", w.Header().Get("Content-Type"))
			}
		})
	}
}

func TestServer_MetricsEndpointExposesCacheCounters(t *testing.T) {
	srv, _ := newTestServer(t)

	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	srv.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/metrics", nil))

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	assert.Contains(t, body, `sales_dashboard_dataset_cache_lookups_total{result="hit"} 1`)
	assert.Contains(t, body, `sales_dashboard_dataset_cache_lookups_total{result="miss"} 1`)
	assert.Contains(t, body, "sales_dashboard_dataset_records 3")
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: 2 * time.Second,
		},
	}
}

func TestGracefulServer_ShutdownRunsHooks(t *testing.T) {
	srv, _ := newTestServer(t)
	httpServer := &http.Server{Handler: srv}
	gs := NewGracefulServer(httpServer, testLogger(), testConfig())

	var ran atomic.Int32
	for range 3 {
		gs.RegisterShutdownHook(func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- gs.Serve(ctx, ln) }()

	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Equal(t, int32(3), ran.Load())
}

func TestGracefulServer_HookErrorIsReturned(t *testing.T) {
	gs := NewGracefulServer(&http.Server{Handler: http.NotFoundHandler()}, testLogger(), testConfig())
	hookErr := errors.New("flush failed")
	gs.RegisterShutdownHook(func(ctx context.Context) error { return hookErr })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = gs.Serve(ctx, ln)
	assert.ErrorIs(t, err, hookErr)
}

func TestGracefulServer_HooksRunAfterInFlightRequestsInOrder(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(150 * time.Millisecond)
		finished.Store(true)
		w.WriteHeader(http.StatusOK)
	})
	gs := NewGracefulServer(&http.Server{Handler: handler}, testLogger(), testConfig())

	var (
		mu    sync.Mutex
		order []int
	)
	for i := range 3 {
		gs.RegisterShutdownHook(func(ctx context.Context) error {
			if !finished.Load() {
				return errors.New("hook ran while a request was in flight")
			}
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
			return nil
		})
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- gs.Serve(ctx, ln) }()

	reqErr := make(chan error, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/slow")
		if err == nil {
			resp.Body.Close()
		}
		reqErr <- err
	}()

	<-started
	cancel()

	select {
	case err := <-result:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.NoError(t, <-reqErr)
	assert.Equal(t, []int{0, 1, 2}, order)
}
