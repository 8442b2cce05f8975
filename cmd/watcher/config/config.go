// Package config provides configuration parsing and management for the
// watcher.
//
// It handles both command-line flags and environment variables, with flags
// taking precedence over environment variables. The Config struct contains
// all runtime configuration for the watcher including:
//   - Site identification and API access (URL, token)
//   - Interval timing (interval length, tick resolution)
//   - Storage backend settings (memory or redis)
//   - Logging configuration (level, format)
//   - TLS configuration (cert, key, CA files)
//
// Supported configuration sources (in order of precedence):
//  1. Command-line flags
//  2. Environment variables
//  3. Default values
package config

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/HatiCode/pricewatch/pkg/tls"
)

// Config holds all watcher configuration.
type Config struct {
	Listen    string
	LogFormat string
	LogLevel  string

	Storage       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	TLS tls.Config

	APIURL        string
	APIToken      string
	Site          string
	ClientTimeout time.Duration

	IntervalLength time.Duration
	Tick           time.Duration
	DefaultBudget  int
}

// ParseFlags parses command-line flags and environment variables into a
// Config. Environment variables are used as fallbacks when flags are not
// provided. Each watcher instance monitors a single site.
func ParseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8082"), "HTTP listen address")

	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.StringVar(&cfg.Storage, "storage", getEnv("STORAGE", "memory"), "Storage backend: memory or redis")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	flag.DurationVar(&cfg.RedisTTL, "redis-ttl", getEnvDuration("REDIS_TTL", 0), "Redis observation TTL (0 = keep forever)")

	flag.BoolVar(&cfg.TLS.Enabled, "tls-enabled", getEnvBool("TLS_ENABLED", false), "Enable TLS for HTTP server")
	flag.StringVar(&cfg.TLS.CertFile, "tls-cert-file", getEnv("TLS_CERT_FILE", ""), "TLS certificate file")
	flag.StringVar(&cfg.TLS.KeyFile, "tls-key-file", getEnv("TLS_KEY_FILE", ""), "TLS private key file")
	flag.StringVar(&cfg.TLS.CAFile, "tls-ca-file", getEnv("TLS_CA_FILE", ""), "TLS CA certificate file for client verification")

	flag.StringVar(&cfg.APIURL, "api-url", getEnv("API_URL", "https://api.amber.com.au"), "Price API base URL")
	flag.StringVar(&cfg.APIToken, "api-token", getEnv("API_TOKEN", ""), "Price API bearer token (required)")
	flag.StringVar(&cfg.Site, "site", getEnv("SITE", ""), "Site identifier to monitor (required)")
	flag.DurationVar(&cfg.ClientTimeout, "client-timeout", getEnvDuration("CLIENT_TIMEOUT", 10*time.Second), "Price API request timeout")

	flag.DurationVar(&cfg.IntervalLength, "interval-length", getEnvDuration("INTERVAL_LENGTH", 5*time.Minute), "Price interval length")
	flag.DurationVar(&cfg.Tick, "tick", getEnvDuration("TICK", time.Second), "Poll decision tick resolution")
	flag.IntVar(&cfg.DefaultBudget, "default-budget", getEnvInt("DEFAULT_BUDGET", 0), "Poll budget assumed before rate-limit headers are seen")

	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	return cfg
}

var siteNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_-]{0,251}[a-zA-Z0-9])?$`)

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Site == "" {
		return fmt.Errorf("--site is required")
	}
	if !siteNameRegex.MatchString(c.Site) {
		return fmt.Errorf("invalid site name %q (must be alphanumeric with dash/underscore, 1-253 chars)", c.Site)
	}
	if c.APIToken == "" {
		return fmt.Errorf("--api-token is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("--api-url cannot be empty")
	}
	if c.Storage != "memory" && c.Storage != "redis" {
		return fmt.Errorf("invalid storage backend %q (must be memory or redis)", c.Storage)
	}
	if c.IntervalLength <= 0 {
		return fmt.Errorf("interval length must be > 0")
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be > 0")
	}
	if c.Tick >= c.IntervalLength {
		return fmt.Errorf("tick (%v) must be shorter than the interval length (%v)", c.Tick, c.IntervalLength)
	}
	if c.DefaultBudget < 0 {
		return fmt.Errorf("default budget cannot be negative")
	}
	if c.ClientTimeout <= 0 {
		return fmt.Errorf("client timeout must be > 0")
	}
	if err := c.TLS.Validate(); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
