// Package models - Service configuration and operational settings.
//
// Configuration Philosophy:
// - Hierarchical configuration with logical grouping (server, upstream, etc.)
// - Environment-friendly defaults that work out of the box
// - Comprehensive validation to catch misconfigurations early
// - Support for multiple deployment scenarios (development, production, cloud)
package models

import (
	"errors"
	"fmt"
	"time"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeSQLite   = "sqlite"
	StorageTypePostgres = "postgres"
)

// Provider type constants
const (
	ProviderTypeCatalog = "catalog"
	ProviderTypeHTTP    = "http"
)

// Config is the root configuration structure containing all service settings.
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`               // HTTP server configuration
	Upstream      UpstreamConfig      `yaml:"upstream" json:"upstream"`           // Recommendation provider
	Security      SecurityConfig      `yaml:"security" json:"security"`           // Rate limiting
	Storage       StorageConfig       `yaml:"storage" json:"storage"`             // History persistence
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`             // Structured logging
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`             // Prometheus metrics
	Observability ObservabilityConfig `yaml:"observability" json:"observability"` // Tracing
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
	CORS         CORSConfig    `yaml:"cors" json:"cors"`
}

type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" json:"allowed_headers"`
	MaxAge         int      `yaml:"max_age" json:"max_age"`
}

// UpstreamConfig selects and tunes the recommendation provider. The catalog
// provider runs in-process; the http provider calls an external completion
// API with retries and client-side pacing.
type UpstreamConfig struct {
	Provider          string        `yaml:"provider" json:"provider"`
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	APIKey            string        `yaml:"api_key" json:"api_key"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	InitialRetryDelay time.Duration `yaml:"initial_retry_delay" json:"initial_retry_delay"`
	MaxRetryDelay     time.Duration `yaml:"max_retry_delay" json:"max_retry_delay"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int           `yaml:"burst" json:"burst"`
}

type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig tunes the sliding window admission limiter.
type RateLimitConfig struct {
	Enabled         bool          `yaml:"enabled" json:"enabled"`
	MaxRequests     int           `yaml:"max_requests" json:"max_requests"`
	Window          time.Duration `yaml:"window" json:"window"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

type StorageConfig struct {
	Type     string         `yaml:"type" json:"type"`
	Path     string         `yaml:"path" json:"path"`
	Database DatabaseConfig `yaml:"database" json:"database"`
}

type DatabaseConfig struct {
	DSN          string `yaml:"dsn" json:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns" json:"max_idle_conns"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"` // "stdout" or "otlp"
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration with production-ready defaults.
//
// Default Values Rationale:
// - Port 8080: standard non-privileged HTTP port
// - 30-second read timeout, 5-minute write timeout: streams are long-lived
// - Memory storage: works without external dependencies
// - Rate limiting on (10 req/min): prevent abuse from the start
// - Catalog provider: deterministic output without upstream credentials
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
			TLSEnabled:   false,
			CORS: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"*"},
				MaxAge:         86400,
			},
		},
		Upstream: UpstreamConfig{
			Provider:          ProviderTypeCatalog,
			RequestTimeout:    30 * time.Second,
			MaxRetries:        2,
			InitialRetryDelay: time.Second,
			MaxRetryDelay:     10 * time.Second,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled:         true,
				MaxRequests:     10,
				Window:          time.Minute,
				CleanupInterval: 5 * time.Minute,
			},
		},
		Storage: StorageConfig{
			Type: StorageTypeMemory,
			Database: DatabaseConfig{
				MaxOpenConns: 25,
				MaxIdleConns: 5,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "movie-agent",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

// Validate checks the configuration for invalid combinations. It is called
// once at startup after file and environment loading.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.TLSEnabled {
		if c.Server.TLSCertFile == "" || c.Server.TLSKeyFile == "" {
			errs = append(errs, errors.New("tls_cert_file and tls_key_file are required when TLS is enabled"))
		}
	}

	switch c.Upstream.Provider {
	case ProviderTypeCatalog:
	case ProviderTypeHTTP:
		if c.Upstream.BaseURL == "" {
			errs = append(errs, errors.New("upstream base_url is required for the http provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported upstream provider: %s", c.Upstream.Provider))
	}
	if c.Upstream.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("upstream max_retries must be non-negative, got %d", c.Upstream.MaxRetries))
	}

	if c.Security.RateLimit.Enabled {
		rl := c.Security.RateLimit
		if rl.MaxRequests < 1 {
			errs = append(errs, fmt.Errorf("rate limit max_requests must be at least 1, got %d", rl.MaxRequests))
		}
		if rl.Window <= 0 {
			errs = append(errs, fmt.Errorf("rate limit window must be positive, got %s", rl.Window))
		}
		if rl.CleanupInterval <= 0 {
			errs = append(errs, fmt.Errorf("rate limit cleanup_interval must be positive, got %s", rl.CleanupInterval))
		}
	}

	switch c.Storage.Type {
	case StorageTypeMemory:
	case StorageTypeSQLite:
		if c.Storage.Path == "" && c.Storage.Database.DSN == "" {
			errs = append(errs, errors.New("storage path or database dsn is required for sqlite storage"))
		}
	case StorageTypePostgres:
		if c.Storage.Database.DSN == "" {
			errs = append(errs, errors.New("database dsn is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage type: %s", c.Storage.Type))
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
			errs = append(errs, fmt.Errorf("metrics port must be between 1 and 65535, got %d", c.Metrics.Port))
		}
		if c.Metrics.Port == c.Server.Port {
			errs = append(errs, errors.New("metrics port must differ from server port"))
		}
	}

	return errors.Join(errs...)
}
