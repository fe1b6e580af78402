package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/topiclog/internal/logging"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 1000, cfg.DefaultCapacity)
	assert.Equal(t, int64(1<<20), cfg.MaxMessageSize)
	assert.Zero(t, cfg.MaxAge)
	assert.Zero(t, cfg.SweepInterval)
	assert.Equal(t, 30*time.Second, cfg.PollTimeout)
	assert.Equal(t, 60*time.Second, cfg.MaxPollTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, logging.LevelInfo, cfg.Level())
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.Topics)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("TOPICLOG_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("TOPICLOG_DEFAULT_CAPACITY", "50")
	t.Setenv("TOPICLOG_MAX_AGE", "1m")
	t.Setenv("TOPICLOG_SWEEP_INTERVAL", "5s")
	t.Setenv("TOPICLOG_LOG_LEVEL", "DEBUG")
	t.Setenv("TOPICLOG_LOG_FORMAT", "text")
	t.Setenv("TOPICLOG_TOPICS", "orders,payments")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, 50, cfg.DefaultCapacity)
	assert.Equal(t, time.Minute, cfg.MaxAge)
	assert.Equal(t, 5*time.Second, cfg.SweepInterval)
	assert.Equal(t, logging.LevelDebug, cfg.Level())
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, []string{"orders", "payments"}, cfg.Topics)

	opts := cfg.BrokerOptions()
	assert.Equal(t, 50, opts.DefaultCapacity)
	assert.Equal(t, time.Minute, opts.MaxAge)
	assert.Equal(t, 5*time.Second, opts.SweepInterval)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"malformed capacity", "TOPICLOG_DEFAULT_CAPACITY", "lots"},
		{"zero capacity", "TOPICLOG_DEFAULT_CAPACITY", "0"},
		{"malformed duration", "TOPICLOG_MAX_AGE", "soon"},
		{"sweep without max age", "TOPICLOG_SWEEP_INTERVAL", "1s"},
		{"unknown level", "TOPICLOG_LOG_LEVEL", "loud"},
		{"unknown format", "TOPICLOG_LOG_FORMAT", "xml"},
		{"poll timeout above max", "TOPICLOG_POLL_TIMEOUT", "2m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Parse()
			assert.Error(t, err)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TOPICLOG_DEFAULT_CAPACITY=7\n"), 0o600))
	t.Chdir(dir)

	// godotenv sets variables with os.Setenv; register cleanup through t.Setenv.
	t.Setenv("TOPICLOG_DEFAULT_CAPACITY", "")
	require.NoError(t, os.Unsetenv("TOPICLOG_DEFAULT_CAPACITY"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.DefaultCapacity)
}

func TestLoad_EnvironmentWinsOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TOPICLOG_DEFAULT_CAPACITY=7\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("TOPICLOG_DEFAULT_CAPACITY", "9")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.DefaultCapacity)
}

func TestLoad_MissingDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load()
	require.NoError(t, err)
}
