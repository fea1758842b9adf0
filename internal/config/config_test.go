package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var keys = []string{
	"DEPOT_DB", "DEPOT_ADDR", "DEPOT_ADMIN_EMAIL", "DEPOT_LOG", "DEPOT_PENDING_TTL",
	"DEPOT_SWEEP_INTERVAL", "DEPOT_TOKEN_TTL", "DEPOT_SIGNIN_RATE", "DEPOT_MAX_UPLOAD",
}

// clearEnv unsets every DEPOT_ variable for the test and restores them after.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DBPath != DefaultDBPath {
		t.Errorf("expected db %q, got %q", DefaultDBPath, cfg.DBPath)
	}
	if cfg.Addr != DefaultAddr {
		t.Errorf("expected addr %q, got %q", DefaultAddr, cfg.Addr)
	}
	if cfg.PendingTTL != 0 {
		t.Errorf("expected expiry disabled, got %v", cfg.PendingTTL)
	}
	if cfg.TokenTTL != DefaultTokenTTL {
		t.Errorf("expected token ttl %v, got %v", DefaultTokenTTL, cfg.TokenTTL)
	}
	if cfg.MaxUpload != DefaultMaxUpload {
		t.Errorf("expected max upload %d, got %d", DefaultMaxUpload, cfg.MaxUpload)
	}
}

func TestLoadEnvFileAndOverride(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "depot.env")
	content := "DEPOT_DB=/var/lib/depot.db\nDEPOT_PENDING_TTL=72h\nDEPOT_SIGNIN_RATE=10\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DEPOT_SIGNIN_RATE", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DBPath != "/var/lib/depot.db" {
		t.Errorf("expected db from file, got %q", cfg.DBPath)
	}
	if cfg.PendingTTL != 72*time.Hour {
		t.Errorf("expected 72h pending ttl, got %v", cfg.PendingTTL)
	}
	if cfg.SignInRate != 3 {
		t.Errorf("expected environment to win over file, got %d", cfg.SignInRate)
	}
}

func TestLoadInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEPOT_PENDING_TTL", "soon")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("expected error for invalid duration")
	}

	clearEnv(t)
	t.Setenv("DEPOT_MAX_UPLOAD", "-1")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("expected error for negative size")
	}
}
