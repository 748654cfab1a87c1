package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{
		"PROMPTAUDIT_FQDN", "PROMPTAUDIT_BEARER_TOKEN", "PROMPTAUDIT_CACHE_DIR",
		"PROMPTAUDIT_NO_HISTORY", "PROMPTAUDIT_HISTORY_DB", "PROMPTAUDIT_TIMEOUT",
		"PROMPTAUDIT_LOG_LEVEL", "PROMPTAUDIT_LOG_FORMAT",
	} {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	os.Args = []string{"promptaudit"}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.CacheDir != defaultCacheDir {
		t.Errorf("CacheDir = %q, want %q", cfg.CacheDir, defaultCacheDir)
	}
	if cfg.HistoryDB != defaultHistoryDB {
		t.Errorf("HistoryDB = %q, want %q", cfg.HistoryDB, defaultHistoryDB)
	}
	if cfg.Timeout != defaultTimeout {
		t.Errorf("Timeout = %s, want %s", cfg.Timeout, defaultTimeout)
	}
	if cfg.FQDN != "" {
		t.Errorf("FQDN = %q, want empty", cfg.FQDN)
	}
	if cfg.ClearCache {
		t.Error("ClearCache should default to false")
	}
	if cfg.LogLevel != defaultLogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, defaultLogLevel)
	}
}

func TestEnvVarOverride(t *testing.T) {
	clearEnv(t)
	os.Args = []string{"promptaudit"}
	t.Setenv("PROMPTAUDIT_FQDN", "pbx.example.com")
	t.Setenv("PROMPTAUDIT_BEARER_TOKEN", "tok-123")
	t.Setenv("PROMPTAUDIT_TIMEOUT", "10s")
	t.Setenv("PROMPTAUDIT_NO_HISTORY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.FQDN != "pbx.example.com" {
		t.Errorf("FQDN = %q", cfg.FQDN)
	}
	if cfg.BearerToken != "tok-123" {
		t.Errorf("BearerToken = %q", cfg.BearerToken)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %s, want 10s", cfg.Timeout)
	}
	if !cfg.NoHistory {
		t.Error("NoHistory should be true")
	}
}

func TestCLIFlagsPrecedence(t *testing.T) {
	clearEnv(t)
	os.Args = []string{"promptaudit", "--fqdn", "cli.example.com", "--log-level", "warn"}
	t.Setenv("PROMPTAUDIT_FQDN", "env.example.com")
	t.Setenv("PROMPTAUDIT_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.FQDN != "cli.example.com" {
		t.Errorf("FQDN = %q, want cli.example.com", cfg.FQDN)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
}

func TestValidateRejectsScheme(t *testing.T) {
	clearEnv(t)
	os.Args = []string{"promptaudit", "--fqdn", "https://pbx.example.com"}

	if _, err := Load(); err == nil {
		t.Fatal("expected error for fqdn with scheme")
	}
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	clearEnv(t)
	os.Args = []string{"promptaudit", "--log-level", "verbose"}

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestBaseURLAndToken(t *testing.T) {
	cfg := &Config{FQDN: "pbx.example.com/", BearerToken: "Bearer abc.def.ghi"}

	if got := cfg.BaseURL(); got != "https://pbx.example.com" {
		t.Errorf("BaseURL = %q", got)
	}
	if got := cfg.Token(); got != "abc.def.ghi" {
		t.Errorf("Token = %q", got)
	}

	// A token without the prefix passes through untouched.
	cfg.BearerToken = "abc.def.ghi"
	if got := cfg.Token(); got != "abc.def.ghi" {
		t.Errorf("Token = %q", got)
	}
}
