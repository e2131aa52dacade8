// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis (feed session cache and rate limiting). Optional; in-memory
	// fallbacks are used when unset.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`

	// JWT Authentication. JWTPreviousSecret is set during secret rotation so
	// tokens signed with the old secret keep validating until they expire.
	JWTSecret         string `koanf:"jwt_secret"`
	JWTPreviousSecret string `koanf:"jwt_previous_secret"`

	// CORS allowed origins, comma-separated. Empty disables CORS handling.
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"`

	// R2 (Cloudflare Object Storage) for video, thumbnail, avatar and
	// resume uploads.
	R2BucketName      string `koanf:"r2_bucket_name"`
	R2AccessKeyID     string `koanf:"r2_access_key_id"`
	R2SecretAccessKey string `koanf:"r2_secret_access_key"`
	R2Endpoint        string `koanf:"r2_endpoint"`

	// Feed ranking
	FeedCalibrationPath   string `koanf:"feed_calibration_path"`    // Optional JSON weight overrides
	FeedSessionTTLMinutes int    `koanf:"feed_session_ttl_minutes"` // Default: 30

	// Tracing
	TracingEnabled      bool    `koanf:"tracing_enabled"`
	TracingExporterType string  `koanf:"tracing_exporter_type"` // otlp-grpc or otlp-http
	TracingOTLPEndpoint string  `koanf:"tracing_otlp_endpoint"`
	TracingSamplingRate float64 `koanf:"tracing_sampling_rate"`

	// Profiling exposes /debug/pprof endpoints. Development only.
	ProfilingEnabled bool `koanf:"profiling_enabled"`

	// Canary deployment routing
	CanaryEnabled        bool    `koanf:"canary_enabled"`
	CanaryTrafficPercent float64 `koanf:"canary_traffic_percent"`
	CanaryVersion        string  `koanf:"canary_version"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL       = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret         = errors.New("JWT_SECRET is required")
	ErrMissingR2BucketName      = errors.New("R2_BUCKET_NAME is required")
	ErrMissingR2AccessKeyID     = errors.New("R2_ACCESS_KEY_ID is required")
	ErrMissingR2SecretAccessKey = errors.New("R2_SECRET_ACCESS_KEY is required")
	ErrMissingR2Endpoint        = errors.New("R2_ENDPOINT is required")
	ErrInvalidPort              = errors.New("PORT must be a valid integer")
	ErrInvalidSessionTTL        = errors.New("FEED_SESSION_TTL_MINUTES must be > 0")
	ErrInvalidSamplingRate      = errors.New("TRACING_SAMPLING_RATE must be between 0.0 and 1.0")
	ErrInvalidCanaryPercent     = errors.New("CANARY_TRAFFIC_PERCENT must be between 0 and 100")
)

// Default values for non-secret configuration.
const (
	DefaultPort                  = 8080
	DefaultEnv                   = "development"
	DefaultFeedSessionTTLMinutes = 30
	DefaultTracingExporterType   = "otlp-http"
	DefaultTracingSamplingRate   = 0.1
)

// source resolves a configuration key against the environment first and the
// loaded file second. Environment variables always win.
type source struct {
	k *koanf.Koanf
}

func (s source) str(envKey, fileKey string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return s.k.String(fileKey)
}

func (s source) strDefault(envKey, fileKey, fallback string) string {
	if v := s.str(envKey, fileKey); v != "" {
		return v
	}
	return fallback
}

// strAny tries several environment keys in order before falling back to the
// file value, then the default.
func (s source) strAny(envKeys []string, fileKey, fallback string) string {
	for _, key := range envKeys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	if v := s.k.String(fileKey); v != "" {
		return v
	}
	return fallback
}

func (s source) boolean(envKey, fileKey string) bool {
	if v := os.Getenv(envKey); v != "" {
		switch strings.ToLower(v) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return s.k.Bool(fileKey)
}

// integer resolves an int key, trying each env key in order. A zero file
// value falls back to the default, so 0 cannot be expressed in the file.
func (s source) integer(envKeys []string, fileKey string, fallback int) (int, error) {
	for _, key := range envKeys {
		if v := os.Getenv(key); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if v := s.k.Int(fileKey); v != 0 {
		return v, nil
	}
	return fallback, nil
}

func (s source) float(envKey, fileKey string, fallback float64) (float64, error) {
	if v := os.Getenv(envKey); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if v := s.k.Float64(fileKey); v != 0 {
		return v, nil
	}
	return fallback, nil
}

// Load reads configuration from environment variables and an optional YAML
// file. Returns the loaded config and a slice of validation errors, empty
// when the config is usable.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}
	src := source{k: k}

	var loadErrs []error
	collect := func(err error) {
		if err != nil {
			loadErrs = append(loadErrs, err)
		}
	}

	// SWIPEHIRE_PORT wins over the plain PORT most platforms inject.
	port, err := src.integer([]string{"SWIPEHIRE_PORT", "PORT"}, "port", DefaultPort)
	collect(err)
	sessionTTL, err := src.integer([]string{"FEED_SESSION_TTL_MINUTES"}, "feed_session_ttl_minutes", DefaultFeedSessionTTLMinutes)
	collect(err)
	samplingRate, err := src.float("TRACING_SAMPLING_RATE", "tracing_sampling_rate", DefaultTracingSamplingRate)
	collect(err)
	canaryPercent, err := src.float("CANARY_TRAFFIC_PERCENT", "canary_traffic_percent", 0)
	collect(err)

	cfg := &Config{
		Port:                  port,
		Env:                   src.strAny([]string{"SWIPEHIRE_ENV", "ENV", "GO_ENV"}, "env", DefaultEnv),
		DatabaseURL:           src.str("DATABASE_URL", "database_url"),
		RedisAddr:             src.str("REDIS_ADDR", "redis_addr"),
		RedisPassword:         src.str("REDIS_PASSWORD", "redis_password"),
		JWTSecret:             src.str("JWT_SECRET", "jwt_secret"),
		JWTPreviousSecret:     src.str("JWT_PREVIOUS_SECRET", "jwt_previous_secret"),
		CORSAllowedOrigins:    src.str("CORS_ALLOWED_ORIGINS", "cors_allowed_origins"),
		R2BucketName:          src.str("R2_BUCKET_NAME", "r2_bucket_name"),
		R2AccessKeyID:         src.str("R2_ACCESS_KEY_ID", "r2_access_key_id"),
		R2SecretAccessKey:     src.str("R2_SECRET_ACCESS_KEY", "r2_secret_access_key"),
		R2Endpoint:            src.str("R2_ENDPOINT", "r2_endpoint"),
		FeedCalibrationPath:   src.str("FEED_CALIBRATION_PATH", "feed_calibration_path"),
		FeedSessionTTLMinutes: sessionTTL,
		TracingEnabled:        src.boolean("TRACING_ENABLED", "tracing_enabled"),
		TracingExporterType:   src.strDefault("TRACING_EXPORTER_TYPE", "tracing_exporter_type", DefaultTracingExporterType),
		TracingOTLPEndpoint:   src.str("TRACING_OTLP_ENDPOINT", "tracing_otlp_endpoint"),
		TracingSamplingRate:   samplingRate,
		ProfilingEnabled:      src.boolean("PROFILING_ENABLED", "profiling_enabled"),
		CanaryEnabled:         src.boolean("CANARY_ENABLED", "canary_enabled"),
		CanaryTrafficPercent:  canaryPercent,
		CanaryVersion:         src.str("CANARY_VERSION", "canary_version"),
	}

	return cfg, append(loadErrs, cfg.Validate()...)
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}

	// R2 is optional as a whole, but setting any field makes the rest
	// mandatory. A partially configured bucket is a deploy mistake.
	if c.R2BucketName != "" || c.R2AccessKeyID != "" || c.R2SecretAccessKey != "" || c.R2Endpoint != "" {
		for _, f := range []struct {
			value string
			err   error
		}{
			{c.R2BucketName, ErrMissingR2BucketName},
			{c.R2AccessKeyID, ErrMissingR2AccessKeyID},
			{c.R2SecretAccessKey, ErrMissingR2SecretAccessKey},
			{c.R2Endpoint, ErrMissingR2Endpoint},
		} {
			if f.value == "" {
				errs = append(errs, f.err)
			}
		}
	}

	if c.FeedSessionTTLMinutes <= 0 {
		errs = append(errs, ErrInvalidSessionTTL)
	}
	if c.TracingSamplingRate < 0 || c.TracingSamplingRate > 1 {
		errs = append(errs, ErrInvalidSamplingRate)
	}
	if c.CanaryTrafficPercent < 0 || c.CanaryTrafficPercent > 100 {
		errs = append(errs, ErrInvalidCanaryPercent)
	}

	return errs
}

// GetJWTSecrets returns the current and previous JWT secrets. The previous
// secret is empty unless a rotation is in progress.
func (c *Config) GetJWTSecrets() (current, previous string) {
	return c.JWTSecret, c.JWTPreviousSecret
}

// LogSummary returns the configuration as loggable key/value pairs with
// every secret masked.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                     strconv.Itoa(c.Port),
		"env":                      c.Env,
		"database_url":             maskDatabaseURL(c.DatabaseURL),
		"redis_addr":               c.RedisAddr,
		"redis_password":           maskSecret(c.RedisPassword),
		"jwt_secret":               maskSecret(c.JWTSecret),
		"jwt_previous_secret":      maskSecret(c.JWTPreviousSecret),
		"cors_allowed_origins":     c.CORSAllowedOrigins,
		"r2_bucket_name":           c.R2BucketName,
		"r2_access_key_id":         maskSecret(c.R2AccessKeyID),
		"r2_secret_access_key":     maskSecret(c.R2SecretAccessKey),
		"r2_endpoint":              c.R2Endpoint,
		"feed_calibration_path":    c.FeedCalibrationPath,
		"feed_session_ttl_minutes": strconv.Itoa(c.FeedSessionTTLMinutes),
		"tracing_enabled":          strconv.FormatBool(c.TracingEnabled),
		"tracing_exporter_type":    c.TracingExporterType,
		"tracing_otlp_endpoint":    c.TracingOTLPEndpoint,
		"tracing_sampling_rate":    fmt.Sprintf("%g", c.TracingSamplingRate),
		"profiling_enabled":        strconv.FormatBool(c.ProfilingEnabled),
		"canary_enabled":           strconv.FormatBool(c.CanaryEnabled),
		"canary_traffic_percent":   fmt.Sprintf("%g", c.CanaryTrafficPercent),
		"canary_version":           c.CanaryVersion,
	}
}

// maskSecret keeps the first 4 characters of secrets long enough to stay
// unguessable and masks everything else.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL replaces the password portion of a connection URL.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return maskSecret(s)
	}
	if u.User == nil {
		return s
	}
	if _, hasPassword := u.User.Password(); !hasPassword {
		return s
	}
	u.User = url.UserPassword(u.User.Username(), "****")
	return u.String()
}
