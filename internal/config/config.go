// Package config loads daemon settings from environment variables and the
// account list from a JSON file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the daemon-level settings loaded from environment variables.
// Account definitions live in a separate JSON file (AccountsPath) so they can
// be hot-reloaded without touching the process environment.
type Config struct {
	AccountsPath   string
	DBPath         string
	TickInterval   time.Duration
	ReloadInterval time.Duration
	MaxWorkers     int
}

// Load reads configuration from environment variables and returns a validated
// Config. All variables are optional with defaults: STREAKD_ACCOUNTS_PATH
// (accounts.json), STREAKD_DB_PATH (streakd.db), STREAKD_TICK_INTERVAL (1m),
// STREAKD_RELOAD_INTERVAL (30s), STREAKD_MAX_WORKERS (3).
func Load() (*Config, error) {
	accountsPath := "accounts.json"
	if v, ok := os.LookupEnv("STREAKD_ACCOUNTS_PATH"); ok && v != "" {
		accountsPath = v
	}

	dbPath := "streakd.db"
	if v, ok := os.LookupEnv("STREAKD_DB_PATH"); ok && v != "" {
		dbPath = v
	}

	tickInterval := time.Minute
	if v, ok := os.LookupEnv("STREAKD_TICK_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("STREAKD_TICK_INTERVAL has invalid duration %q: %w", v, err)
		}
		tickInterval = parsed
	}

	reloadInterval := 30 * time.Second
	if v, ok := os.LookupEnv("STREAKD_RELOAD_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("STREAKD_RELOAD_INTERVAL has invalid duration %q: %w", v, err)
		}
		reloadInterval = parsed
	}

	maxWorkers := 3
	if v, ok := os.LookupEnv("STREAKD_MAX_WORKERS"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("STREAKD_MAX_WORKERS must be a positive integer, got %q", v)
		}
		maxWorkers = parsed
	}

	return &Config{
		AccountsPath:   accountsPath,
		DBPath:         dbPath,
		TickInterval:   tickInterval,
		ReloadInterval: reloadInterval,
		MaxWorkers:     maxWorkers,
	}, nil
}
