// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server settings. Command-line flags override it.
type Config struct {
	DBPath        string
	Addr          string
	AdminEmail    string
	LogPath       string
	PendingTTL    time.Duration
	SweepInterval time.Duration
	TokenTTL      time.Duration
	// SignInRate is the number of sign-in attempts allowed per client
	// per minute.
	SignInRate int
	MaxUpload  int64
}

// Defaults.
const (
	DefaultDBPath        = "depot.sqlite3"
	DefaultAddr          = ":8080"
	DefaultAdminEmail    = "admin@depot.local"
	DefaultSweepInterval = time.Minute
	DefaultTokenTTL      = 7 * 24 * time.Hour
	DefaultSignInRate    = 5
	DefaultMaxUpload     = 5 << 20
)

// Load reads .env files (if present) and then the DEPOT_* environment
// variables. Variables already set in the environment win over .env.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	cfg := &Config{
		DBPath:     getEnv("DEPOT_DB", DefaultDBPath),
		Addr:       getEnv("DEPOT_ADDR", DefaultAddr),
		AdminEmail: getEnv("DEPOT_ADMIN_EMAIL", DefaultAdminEmail),
		LogPath:    getEnv("DEPOT_LOG", ""),
	}

	var err error
	if cfg.PendingTTL, err = getDuration("DEPOT_PENDING_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getDuration("DEPOT_SWEEP_INTERVAL", DefaultSweepInterval); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = getDuration("DEPOT_TOKEN_TTL", DefaultTokenTTL); err != nil {
		return nil, err
	}
	if cfg.SignInRate, err = getInt("DEPOT_SIGNIN_RATE", DefaultSignInRate); err != nil {
		return nil, err
	}
	maxUpload, err := getInt("DEPOT_MAX_UPLOAD", DefaultMaxUpload)
	if err != nil {
		return nil, err
	}
	cfg.MaxUpload = int64(maxUpload)

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q: want a duration like 30m or 24h", key, v)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: want a non-negative integer", key, v)
	}
	return n, nil
}
