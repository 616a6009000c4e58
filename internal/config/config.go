package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Auth      AuthConfig      `json:"auth"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Audit     AuditConfig     `json:"audit"`
}

type ServerConfig struct {
	Port        string `json:"port"`
	Environment string `json:"environment"`
}

type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

type AuthConfig struct {
	Secret      string `json:"secret"`
	ExpiryHours int    `json:"expiry_hours"`
}

// RateLimitConfig mirrors the admission-control section of the config
// file. Endpoint patterns are regular expressions matched against the
// full request path; declaration order decides precedence.
type RateLimitConfig struct {
	Enabled         bool              `json:"enabled"`
	Strategy        string            `json:"strategy"`
	ResponseHeaders bool              `json:"response_headers"`
	Default         RateLimitSettings `json:"default"`
	Endpoints       []EndpointLimit   `json:"endpoints"`
	CounterTTL      int               `json:"counter_ttl_seconds"`
	SweepInterval   int               `json:"sweep_interval_seconds"`
}

type RateLimitSettings struct {
	Limit         int    `json:"limit"`
	RefreshPeriod int    `json:"refresh_period"`
	Unit          string `json:"unit"`
}

type EndpointLimit struct {
	Pattern       string `json:"pattern"`
	Limit         int    `json:"limit"`
	RefreshPeriod int    `json:"refresh_period"`
	Unit          string `json:"unit"`
}

type AuditConfig struct {
	Enabled         bool     `json:"enabled"`
	LogRequestBody  bool     `json:"log_request_body"`
	LogResponseBody bool     `json:"log_response_body"`
	LogQueryParams  bool     `json:"log_query_params"`
	MaxBodySize     int      `json:"max_body_size"`
	ExcludePaths    []string `json:"exclude_paths"`
	BufferSize      int      `json:"buffer_size"`
	RetentionDays   int      `json:"retention_days"`
}

func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := defaults()
	if err := json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			Environment: "development",
		},
		Auth: AuthConfig{
			ExpiryHours: 1,
		},
		RateLimit: RateLimitConfig{
			Enabled:         true,
			Strategy:        "IP_ADDRESS",
			ResponseHeaders: true,
			Default: RateLimitSettings{
				Limit:         100,
				RefreshPeriod: 60,
				Unit:          "SECONDS",
			},
			CounterTTL:    600,
			SweepInterval: 60,
		},
		Audit: AuditConfig{
			Enabled:        true,
			LogRequestBody: true,
			LogQueryParams: true,
			MaxBodySize:    4000,
			ExcludePaths: []string{
				"^/health$",
				"^/favicon\\.ico$",
			},
		},
	}
}

// Secrets and deployment-specific values come from the environment so
// the config file can be committed.
func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Auth.Secret = secret
	}
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
}

// Validate rejects configurations that would otherwise fail at request
// time. Malformed patterns and unknown time units are startup errors;
// an unknown strategy is not (it falls back to IP_ADDRESS later).
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required (or set DATABASE_DSN)")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required (or set JWT_SECRET)")
	}

	if err := validateSettings("rate_limit.default", c.RateLimit.Default.Limit, c.RateLimit.Default.RefreshPeriod, c.RateLimit.Default.Unit); err != nil {
		return err
	}

	for i, ep := range c.RateLimit.Endpoints {
		if _, err := regexp.Compile(ep.Pattern); err != nil {
			return fmt.Errorf("rate_limit.endpoints[%d]: invalid pattern %q: %w", i, ep.Pattern, err)
		}
		name := fmt.Sprintf("rate_limit.endpoints[%d]", i)
		if err := validateSettings(name, ep.Limit, ep.RefreshPeriod, ep.Unit); err != nil {
			return err
		}
	}

	for i, pattern := range c.Audit.ExcludePaths {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("audit.exclude_paths[%d]: invalid pattern %q: %w", i, pattern, err)
		}
	}

	if c.Audit.MaxBodySize <= 0 {
		return fmt.Errorf("audit.max_body_size must be positive")
	}

	return nil
}

func validateSettings(name string, limit, refreshPeriod int, unit string) error {
	if limit <= 0 {
		return fmt.Errorf("%s: limit must be positive, got %d", name, limit)
	}
	if refreshPeriod <= 0 {
		return fmt.Errorf("%s: refresh_period must be positive, got %d", name, refreshPeriod)
	}
	if _, err := ParseUnit(unit); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// ParseUnit converts a config time unit name into a duration of one
// unit. Names match the Java TimeUnit constants the config format
// inherited.
func ParseUnit(unit string) (time.Duration, error) {
	switch strings.ToUpper(unit) {
	case "MILLISECONDS":
		return time.Millisecond, nil
	case "SECONDS":
		return time.Second, nil
	case "MINUTES":
		return time.Minute, nil
	case "HOURS":
		return time.Hour, nil
	case "DAYS":
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown time unit %q", unit)
	}
}

// Window returns the refresh period as a duration.
func (s RateLimitSettings) Window() (time.Duration, error) {
	unit, err := ParseUnit(s.Unit)
	if err != nil {
		return 0, err
	}
	return time.Duration(s.RefreshPeriod) * unit, nil
}

func (e EndpointLimit) Window() (time.Duration, error) {
	unit, err := ParseUnit(e.Unit)
	if err != nil {
		return 0, err
	}
	return time.Duration(e.RefreshPeriod) * unit, nil
}
