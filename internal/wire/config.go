package wire

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alanyang/promptkit/internal/domain/similarity"
	promptsvc "github.com/alanyang/promptkit/internal/service/prompt"
)

// Config is the process configuration, read once from the environment.
type Config struct {
	Port        string
	DatabaseURL string
	LogLevel    slog.Level
	GitHubToken string
	AuditGrace  time.Duration
	Prompt      promptsvc.Config
}

// LoadConfig reads the environment. Malformed numeric values fall back to
// their defaults; only a missing DATABASE_URL is an error.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:        envString("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    ParseLogLevel(os.Getenv("LOG_LEVEL")),
		GitHubToken: os.Getenv("GITHUB_TOKEN"),
		AuditGrace:  envDuration("AUDIT_GRACE_SECONDS", 30*time.Second),
		Prompt: promptsvc.Config{
			Threshold:        envFloat("SIMILARITY_THRESHOLD", similarity.DefaultThreshold),
			ScanLimit:        envInt("DUPLICATE_SCAN_LIMIT", 500),
			ScanWorkers:      envInt("DUPLICATE_SCAN_WORKERS", 4),
			RejectDuplicates: envBool("REJECT_DUPLICATES", true),
			SourceCacheTTL:   envDuration("SOURCE_CACHE_TTL_SECONDS", 5*time.Minute),
		},
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}

// ParseLogLevel maps debug|info|warn|error to a slog level. Anything else
// is info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			return f
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// envDuration reads an integer-seconds env var and returns a Duration.
// Falls back to defaultVal if the var is unset or invalid.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
