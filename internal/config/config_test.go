package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8084", cfg.Address())
	assert.Equal(t, "sales_data.csv", cfg.Data.CSVFile)
	assert.True(t, cfg.Data.Watch)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("DATA_FILE", "/srv/data/sales.csv")
	t.Setenv("DATA_WATCH", "false")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SECURITY_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/srv/data/sales.csv", cfg.Data.CSVFile)
	assert.False(t, cfg.Data.Watch)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DATA_FILE=from-dotenv.csv\nSERVER_PORT=9100\n"), 0o600))
	t.Setenv("SERVER_PORT", "9200")
	t.Cleanup(func() { os.Unsetenv("DATA_FILE") })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv.csv", cfg.Data.CSVFile)
	// Real environment wins over .env.
	assert.Equal(t, 9200, cfg.Server.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port out of range", "SERVER_PORT", "70000"},
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"bad exporter", "OTEL_TRACES_EXPORTER", "zipkin"},
		{"zero rps", "SECURITY_RATE_LIMIT_RPS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}
}
