// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Server  ServerConfig
	Catalog CatalogConfig
	Cache   CacheConfig
	Feed    FeedConfig
	Session SessionConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed browser origins (default: *)
	// Inbound requests per second allowed per client IP (default: 20)
	RateLimitRPS   float64
	RateLimitBurst int
}

// CatalogConfig holds the remote catalog API configuration.
type CatalogConfig struct {
	BaseURL string
	// Per-request timeout (default: 10s)
	Timeout time.Duration
	// Outbound requests per second per endpoint (default: 5)
	RequestsPerSecond float64
	Burst             int
}

// CacheConfig holds the catalog page cache configuration.
type CacheConfig struct {
	// Enabled allows disabling the page cache entirely (default: true)
	Enabled bool
	// Path is the SQLite file (default: ~/Reelhouse/cache/catalog.db)
	Path string
	// TTL is how long a cached page is served without asking upstream (default: 10m)
	TTL time.Duration
}

// FeedConfig holds the feed engine thresholds and scroll geometry.
type FeedConfig struct {
	InitialPageSize   int
	FirstPassMinItems int
	FirstPassMaxRows  int
	RowSize           int
	RelaxedMinItems   int
	MaxScanAttempts   int
	BackfillCeiling   int
	ForceMinItems     int
	RowExtendSize     int

	ScrollDistance float64       // vertical load distance (default: 500)
	ScrollThrottle time.Duration // minimum gap between evaluations (default: 200ms)
	ItemWidth      int
	PageWidth      int
	LoadDistance   int // horizontal load distance (default: 500)
}

// SessionConfig holds feed session lifecycle configuration.
type SessionConfig struct {
	TTL           time.Duration // idle time before a session is swept (default: 30m)
	MaxPerOwner   int           // oldest sessions are evicted beyond this (default: 4)
	SweepInterval time.Duration // default: 1m
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load is LoadConfig with explicit command-line arguments.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("reelhouse", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed origins (default: *)")

	// Catalog flags
	catalogURL := fs.String("catalog-url", "", "Base URL of the remote catalog API")
	catalogTimeout := fs.String("catalog-timeout", "", "Catalog request timeout (default: 10s)")
	catalogRPS := fs.String("catalog-rps", "", "Catalog requests per second (default: 5)")

	// Cache flags
	cacheEnabled := fs.String("cache-enabled", "", "Enable the catalog page cache (default: true)")
	cachePath := fs.String("cache-path", "", "Path to the catalog page cache database")
	cacheTTL := fs.String("cache-ttl", "", "Catalog page cache TTL (default: 10m)")

	// Feed flags
	pageSize := fs.String("page-size", "", "Catalog page size (default: 200)")

	// Session flags
	sessionTTL := fs.String("session-ttl", "", "Idle feed session lifetime (default: 30m)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins:    splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
			RateLimitRPS:   getFloatConfigValue("", "SERVER_RATE_LIMIT_RPS", 20),
			RateLimitBurst: getIntConfigValue("", "SERVER_RATE_LIMIT_BURST", 40),
		},
		Catalog: CatalogConfig{
			BaseURL:           strings.TrimRight(getConfigValue(*catalogURL, "CATALOG_BASE_URL", "http://localhost:3000/api"), "/"),
			RequestsPerSecond: getFloatConfigValue(*catalogRPS, "CATALOG_RPS", 5),
			Burst:             getIntConfigValue("", "CATALOG_BURST", 5),
		},
		Cache: CacheConfig{
			Enabled: getBoolConfigValue(*cacheEnabled, "CATALOG_CACHE_ENABLED", true),
			Path:    getConfigValue(*cachePath, "CATALOG_CACHE_PATH", ""),
		},
		Feed: FeedConfig{
			InitialPageSize:   getIntConfigValue(*pageSize, "FEED_PAGE_SIZE", 200),
			FirstPassMinItems: getIntConfigValue("", "FEED_FIRST_PASS_MIN_ITEMS", 4),
			FirstPassMaxRows:  getIntConfigValue("", "FEED_FIRST_PASS_MAX_ROWS", 5),
			RowSize:           getIntConfigValue("", "FEED_ROW_SIZE", 10),
			RelaxedMinItems:   getIntConfigValue("", "FEED_RELAXED_MIN_ITEMS", 3),
			MaxScanAttempts:   getIntConfigValue("", "FEED_MAX_SCAN_ATTEMPTS", 50),
			BackfillCeiling:   getIntConfigValue("", "FEED_BACKFILL_CEILING", 300),
			ForceMinItems:     getIntConfigValue("", "FEED_FORCE_MIN_ITEMS", 1),
			RowExtendSize:     getIntConfigValue("", "FEED_ROW_EXTEND_SIZE", 5),
			ScrollDistance:    getFloatConfigValue("", "FEED_SCROLL_DISTANCE", 500),
			ItemWidth:         getIntConfigValue("", "FEED_ITEM_WIDTH", 220),
			PageWidth:         getIntConfigValue("", "FEED_PAGE_WIDTH", 1100),
			LoadDistance:      getIntConfigValue("", "FEED_ROW_LOAD_DISTANCE", 500),
		},
		Session: SessionConfig{
			MaxPerOwner: getIntConfigValue("", "SESSION_MAX_PER_OWNER", 4),
		},
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		dst       *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*catalogTimeout, "CATALOG_TIMEOUT", "10s", &cfg.Catalog.Timeout},
		{*cacheTTL, "CATALOG_CACHE_TTL", "10m", &cfg.Cache.TTL},
		{"", "FEED_SCROLL_THROTTLE", "200ms", &cfg.Feed.ScrollThrottle},
		{*sessionTTL, "SESSION_TTL", "30m", &cfg.Session.TTL},
		{"", "SESSION_SWEEP_INTERVAL", "1m", &cfg.Session.SweepInterval},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	// Expand cache path (defaults to ~/Reelhouse/cache/catalog.db).
	if err := cfg.expandCachePath(); err != nil {
		return nil, fmt.Errorf("invalid cache path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Catalog.BaseURL == "" {
		return errors.New("CATALOG_BASE_URL is required")
	}
	u, err := url.Parse(c.Catalog.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid catalog base url: %s", c.Catalog.BaseURL)
	}

	if c.Cache.Enabled && c.Cache.Path == "" {
		return errors.New("cache path cannot be empty when the cache is enabled")
	}

	if c.Feed.InitialPageSize <= 0 {
		return fmt.Errorf("invalid page size: %d (must be positive)", c.Feed.InitialPageSize)
	}
	if c.Feed.ForceMinItems > c.Feed.RelaxedMinItems || c.Feed.RelaxedMinItems > c.Feed.FirstPassMinItems {
		return fmt.Errorf("feed thresholds must satisfy force (%d) <= relaxed (%d) <= first pass (%d)",
			c.Feed.ForceMinItems, c.Feed.RelaxedMinItems, c.Feed.FirstPassMinItems)
	}

	if c.Session.MaxPerOwner < 1 {
		return fmt.Errorf("invalid max sessions per owner: %d", c.Session.MaxPerOwner)
	}

	return nil
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandCachePath expands ~ and makes the path absolute.
func (c *Config) expandCachePath() error {
	if !c.Cache.Enabled {
		return nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Reelhouse", "cache", "catalog.db")

	expanded, err := expandPath(c.Cache.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Cache.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
