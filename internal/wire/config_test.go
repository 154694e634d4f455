package wire

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"PORT", "DATABASE_URL", "LOG_LEVEL", "GITHUB_TOKEN", "AUDIT_GRACE_SECONDS",
	"SIMILARITY_THRESHOLD", "DUPLICATE_SCAN_LIMIT", "DUPLICATE_SCAN_WORKERS",
	"REJECT_DUPLICATES", "SOURCE_CACHE_TTL_SECONDS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/promptkit")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.AuditGrace)
	assert.Empty(t, cfg.GitHubToken)
	assert.Equal(t, 0.85, cfg.Prompt.Threshold)
	assert.Equal(t, 500, cfg.Prompt.ScanLimit)
	assert.Equal(t, 4, cfg.Prompt.ScanWorkers)
	assert.True(t, cfg.Prompt.RejectDuplicates)
	assert.Equal(t, 5*time.Minute, cfg.Prompt.SourceCacheTTL)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/promptkit")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("GITHUB_TOKEN", "ghp_x")
	t.Setenv("AUDIT_GRACE_SECONDS", "5")
	t.Setenv("SIMILARITY_THRESHOLD", "0.7")
	t.Setenv("DUPLICATE_SCAN_LIMIT", "50")
	t.Setenv("DUPLICATE_SCAN_WORKERS", "8")
	t.Setenv("REJECT_DUPLICATES", "false")
	t.Setenv("SOURCE_CACHE_TTL_SECONDS", "60")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "ghp_x", cfg.GitHubToken)
	assert.Equal(t, 5*time.Second, cfg.AuditGrace)
	assert.Equal(t, 0.7, cfg.Prompt.Threshold)
	assert.Equal(t, 50, cfg.Prompt.ScanLimit)
	assert.Equal(t, 8, cfg.Prompt.ScanWorkers)
	assert.False(t, cfg.Prompt.RejectDuplicates)
	assert.Equal(t, time.Minute, cfg.Prompt.SourceCacheTTL)
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/promptkit")
	t.Setenv("SIMILARITY_THRESHOLD", "1.5")
	t.Setenv("DUPLICATE_SCAN_LIMIT", "-3")
	t.Setenv("REJECT_DUPLICATES", "maybe")
	t.Setenv("AUDIT_GRACE_SECONDS", "soon")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 0.85, cfg.Prompt.Threshold)
	assert.Equal(t, 500, cfg.Prompt.ScanLimit)
	assert.True(t, cfg.Prompt.RejectDuplicates)
	assert.Equal(t, 30*time.Second, cfg.AuditGrace)
}

func TestLoadConfig_MissingDatabaseURL(t *testing.T) {
	clearEnv(t)
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" Warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
}
