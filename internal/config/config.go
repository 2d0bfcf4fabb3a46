// Package config loads service configuration from a YAML file and
// MOVIEAGENT_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imWayneWY/movie-agent-web-app-sub000/internal/models"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*models.Config, error) {
	// Start with default configuration
	config := models.NewDefaultConfig()

	// Load from file if provided and exists
	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	loadFromEnvironment(config)

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *models.Config) {
	// Server configuration
	if port := os.Getenv("MOVIEAGENT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if host := os.Getenv("MOVIEAGENT_HOST"); host != "" {
		config.Server.Host = host
	}

	if timeout := os.Getenv("MOVIEAGENT_READ_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.ReadTimeout = d
		}
	}

	if timeout := os.Getenv("MOVIEAGENT_WRITE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.WriteTimeout = d
		}
	}

	if timeout := os.Getenv("MOVIEAGENT_IDLE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.IdleTimeout = d
		}
	}

	if tls := os.Getenv("MOVIEAGENT_TLS_ENABLED"); tls != "" {
		config.Server.TLSEnabled = strings.ToLower(tls) == "true"
	}

	if certFile := os.Getenv("MOVIEAGENT_TLS_CERT_FILE"); certFile != "" {
		config.Server.TLSCertFile = certFile
	}

	if keyFile := os.Getenv("MOVIEAGENT_TLS_KEY_FILE"); keyFile != "" {
		config.Server.TLSKeyFile = keyFile
	}

	// Upstream provider configuration
	if provider := os.Getenv("MOVIEAGENT_UPSTREAM_PROVIDER"); provider != "" {
		config.Upstream.Provider = provider
	}

	if baseURL := os.Getenv("MOVIEAGENT_UPSTREAM_BASE_URL"); baseURL != "" {
		config.Upstream.BaseURL = baseURL
	}

	if apiKey := os.Getenv("MOVIEAGENT_UPSTREAM_API_KEY"); apiKey != "" {
		config.Upstream.APIKey = apiKey
	}

	if timeout := os.Getenv("MOVIEAGENT_UPSTREAM_REQUEST_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Upstream.RequestTimeout = d
		}
	}

	if retries := os.Getenv("MOVIEAGENT_UPSTREAM_MAX_RETRIES"); retries != "" {
		if n, err := strconv.Atoi(retries); err == nil {
			config.Upstream.MaxRetries = n
		}
	}

	if delay := os.Getenv("MOVIEAGENT_UPSTREAM_INITIAL_RETRY_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			config.Upstream.InitialRetryDelay = d
		}
	}

	if delay := os.Getenv("MOVIEAGENT_UPSTREAM_MAX_RETRY_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			config.Upstream.MaxRetryDelay = d
		}
	}

	if rps := os.Getenv("MOVIEAGENT_UPSTREAM_REQUESTS_PER_SECOND"); rps != "" {
		if f, err := strconv.ParseFloat(rps, 64); err == nil {
			config.Upstream.RequestsPerSecond = f
		}
	}

	// Rate limit configuration
	if enabled := os.Getenv("MOVIEAGENT_RATE_LIMIT_ENABLED"); enabled != "" {
		config.Security.RateLimit.Enabled = strings.ToLower(enabled) == "true"
	}

	if maxReq := os.Getenv("MOVIEAGENT_RATE_LIMIT_MAX_REQUESTS"); maxReq != "" {
		if n, err := strconv.Atoi(maxReq); err == nil {
			config.Security.RateLimit.MaxRequests = n
		}
	}

	if window := os.Getenv("MOVIEAGENT_RATE_LIMIT_WINDOW"); window != "" {
		if d, err := time.ParseDuration(window); err == nil {
			config.Security.RateLimit.Window = d
		}
	}

	if cleanup := os.Getenv("MOVIEAGENT_RATE_LIMIT_CLEANUP_INTERVAL"); cleanup != "" {
		if d, err := time.ParseDuration(cleanup); err == nil {
			config.Security.RateLimit.CleanupInterval = d
		}
	}

	// Storage configuration
	if storageType := os.Getenv("MOVIEAGENT_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = storageType
	}

	if storagePath := os.Getenv("MOVIEAGENT_STORAGE_PATH"); storagePath != "" {
		config.Storage.Path = storagePath
	}

	if dsn := os.Getenv("MOVIEAGENT_DATABASE_DSN"); dsn != "" {
		config.Storage.Database.DSN = dsn
	}

	if maxOpen := os.Getenv("MOVIEAGENT_DATABASE_MAX_OPEN_CONNS"); maxOpen != "" {
		if conns, err := strconv.Atoi(maxOpen); err == nil {
			config.Storage.Database.MaxOpenConns = conns
		}
	}

	if maxIdle := os.Getenv("MOVIEAGENT_DATABASE_MAX_IDLE_CONNS"); maxIdle != "" {
		if conns, err := strconv.Atoi(maxIdle); err == nil {
			config.Storage.Database.MaxIdleConns = conns
		}
	}

	// Logging configuration
	if level := os.Getenv("MOVIEAGENT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if format := os.Getenv("MOVIEAGENT_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	if output := os.Getenv("MOVIEAGENT_LOG_OUTPUT"); output != "" {
		config.Logging.Output = output
	}

	if filePath := os.Getenv("MOVIEAGENT_LOG_FILE_PATH"); filePath != "" {
		config.Logging.FilePath = filePath
	}

	// Metrics configuration
	if metrics := os.Getenv("MOVIEAGENT_METRICS_ENABLED"); metrics != "" {
		config.Metrics.Enabled = strings.ToLower(metrics) == "true"
	}

	if path := os.Getenv("MOVIEAGENT_METRICS_PATH"); path != "" {
		config.Metrics.Path = path
	}

	if port := os.Getenv("MOVIEAGENT_METRICS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Metrics.Port = p
		}
	}

	// Observability configuration
	if name := os.Getenv("MOVIEAGENT_SERVICE_NAME"); name != "" {
		config.Observability.ServiceName = name
	}

	if tracing := os.Getenv("MOVIEAGENT_TRACING_ENABLED"); tracing != "" {
		config.Observability.Tracing.Enabled = strings.ToLower(tracing) == "true"
	}

	if exporter := os.Getenv("MOVIEAGENT_TRACING_EXPORTER"); exporter != "" {
		config.Observability.Tracing.Exporter = exporter
	}

	if endpoint := os.Getenv("MOVIEAGENT_TRACING_OTLP_ENDPOINT"); endpoint != "" {
		config.Observability.Tracing.OTLPEndpoint = endpoint
	}

	if rate := os.Getenv("MOVIEAGENT_TRACING_SAMPLE_RATE"); rate != "" {
		if f, err := strconv.ParseFloat(rate, 64); err == nil {
			config.Observability.Tracing.SampleRate = f
		}
	}
}

// SaveExample saves an example configuration file
func SaveExample(filePath string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()

	// Example upstream configuration
	config.Upstream.Provider = models.ProviderTypeHTTP
	config.Upstream.BaseURL = "https://api.example.com/v1"
	config.Upstream.APIKey = "sk-your-api-key-here"

	// Example SQLite history store
	config.Storage.Type = models.StorageTypeSQLite
	config.Storage.Path = "./data/history.db"

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
