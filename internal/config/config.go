package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds all runtime configuration for the prompt audit run.
// Precedence: CLI flags > env vars > defaults.
type Config struct {
	FQDN        string // PBX hostname (host or host:port, no scheme)
	BearerToken string // XAPI bearer token
	CacheDir    string
	ClearCache  bool
	NoHistory   bool
	HistoryDB   string
	Timeout     time.Duration
	LogLevel    string
	LogFormat   string // log output format: "text" or "json"
}

// defaults
const (
	defaultCacheDir  = "./output"
	defaultHistoryDB = "promptaudit-history.db"
	defaultTimeout   = 30 * time.Second
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
)

// envPrefix is the prefix for all promptaudit environment variables.
const envPrefix = "PROMPTAUDIT_"

// Load parses configuration from CLI flags and environment variables.
// Precedence: CLI flags > env vars > defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	fs := flag.NewFlagSet("promptaudit", flag.ContinueOnError)

	fs.StringVar(&cfg.FQDN, "fqdn", "", "PBX hostname, without scheme (e.g. pbx.example.com)")
	fs.StringVar(&cfg.BearerToken, "bearer-token", "", "XAPI bearer token (a leading \"Bearer \" prefix is stripped)")
	fs.StringVar(&cfg.CacheDir, "cache-dir", defaultCacheDir, "directory for the cached snapshot documents")
	fs.BoolVar(&cfg.ClearCache, "clear", false, "remove the cache directory before running")
	fs.BoolVar(&cfg.NoHistory, "no-history", false, "skip recording the run in the history database")
	fs.StringVar(&cfg.HistoryDB, "history-db", defaultHistoryDB, "path to the run-history SQLite database")
	fs.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "per-request HTTP timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log output format (text, json)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	applyEnvOverrides(fs, cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides checks environment variables for any flag that was not
// explicitly provided on the command line. This preserves the precedence:
// CLI flags > env vars > defaults.
func applyEnvOverrides(fs *flag.FlagSet, cfg *Config) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	envMap := map[string]string{
		"fqdn":         envPrefix + "FQDN",
		"bearer-token": envPrefix + "BEARER_TOKEN",
		"cache-dir":    envPrefix + "CACHE_DIR",
		"no-history":   envPrefix + "NO_HISTORY",
		"history-db":   envPrefix + "HISTORY_DB",
		"timeout":      envPrefix + "TIMEOUT",
		"log-level":    envPrefix + "LOG_LEVEL",
		"log-format":   envPrefix + "LOG_FORMAT",
	}

	for flagName, envVar := range envMap {
		if set[flagName] {
			continue
		}
		val, ok := os.LookupEnv(envVar)
		if !ok || val == "" {
			continue
		}
		switch flagName {
		case "fqdn":
			cfg.FQDN = val
		case "bearer-token":
			cfg.BearerToken = val
		case "cache-dir":
			cfg.CacheDir = val
		case "no-history":
			cfg.NoHistory = val == "1" || strings.EqualFold(val, "true")
		case "history-db":
			cfg.HistoryDB = val
		case "timeout":
			if d, err := time.ParseDuration(val); err == nil {
				cfg.Timeout = d
			}
		case "log-level":
			cfg.LogLevel = val
		case "log-format":
			cfg.LogFormat = val
		}
	}
}

// validate checks that the config values are sane. The FQDN and token are
// not required here: a run served entirely from cache needs neither, so
// their absence is only an error once a live fetch is attempted.
func (c *Config) validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.CacheDir == "" {
		return fmt.Errorf("cache-dir must not be empty")
	}
	if c.HistoryDB == "" {
		return fmt.Errorf("history-db must not be empty")
	}

	if strings.Contains(c.FQDN, "://") {
		return fmt.Errorf("fqdn must not include a scheme, got %q", c.FQDN)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("log-format must be one of text, json; got %q", c.LogFormat)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)

	return nil
}

// BaseURL returns the https base URL for the configured PBX.
func (c *Config) BaseURL() string {
	return "https://" + strings.TrimRight(c.FQDN, "/")
}

// Token returns the bearer token with any leading "Bearer " prefix stripped,
// so a token pasted straight from an Authorization header still works.
func (c *Config) Token() string {
	return strings.TrimPrefix(c.BearerToken, "Bearer ")
}

// SlogHandler returns a slog.Handler configured with the appropriate format
// (text or json) and log level.
func (c *Config) SlogHandler(w *os.File) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SlogLevel returns the slog.Level corresponding to the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
