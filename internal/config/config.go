// Package config loads gymsync settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RemoteMemory selects the in-process remote table instead of Postgres.
const RemoteMemory = "memory"

// Config holds runtime settings. Environment variables take precedence over
// values from the .env file, which take precedence over defaults.
type Config struct {
	DBPath           string
	RemoteURL        string // Postgres DSN, RemoteMemory, or empty for no remote
	RemoteTable      string
	SyncWindowMonths int
	ProbeInterval    time.Duration
	MetricsAddr      string
	LogUseCases      bool
	Verbose          bool
}

// DefaultConfig returns the settings used when nothing is configured. The
// database lives under the user's home directory.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("finding home directory: %w", err)
	}
	return Config{
		DBPath:           filepath.Join(home, ".gymsync", "gymsync.db"),
		RemoteTable:      "gym_checkins",
		SyncWindowMonths: 12,
		ProbeInterval:    15 * time.Second,
		MetricsAddr:      ":9464",
	}, nil
}

// Load reads envFiles (".env" when none are given) and then the GYMSYNC_*
// environment variables. Missing env files are ignored; malformed values
// fall back to defaults.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("reading env file: %w", err)
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}
	cfg.DBPath = getEnv("GYMSYNC_DB", cfg.DBPath)
	cfg.RemoteURL = strings.TrimSpace(getEnv("GYMSYNC_REMOTE_URL", ""))
	cfg.RemoteTable = getEnv("GYMSYNC_REMOTE_TABLE", cfg.RemoteTable)
	cfg.SyncWindowMonths = getIntEnv("GYMSYNC_SYNC_WINDOW_MONTHS", cfg.SyncWindowMonths)
	cfg.ProbeInterval = getDurationEnv("GYMSYNC_PROBE_INTERVAL", cfg.ProbeInterval)
	cfg.MetricsAddr = getEnv("GYMSYNC_METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogUseCases = getBoolEnv("GYMSYNC_LOG_USE_CASES", false)
	cfg.Verbose = getBoolEnv("GYMSYNC_VERBOSE", false)
	return cfg, nil
}

// RemoteConfigured reports whether any remote table was selected.
func (c Config) RemoteConfigured() bool {
	return c.RemoteURL != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
