// Package config provides configuration loading and management for the sync server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lodgeworks/channelsync/internal/telemetry"
)

// EnvPrefix is the prefix for environment variables overriding
// application-level settings (e.g. CHANNELSYNC_LOG_LEVEL).
const EnvPrefix = "CHANNELSYNC"

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// Server configures the administrative HTTP API
	Server ServerConfig `yaml:"server,omitempty"`

	// Database configures the PostgreSQL connection
	Database *DatabaseConfig `yaml:"database,omitempty"`

	// Redis configures the queue transport
	Redis RedisConfig `yaml:"redis,omitempty"`

	// Queue configures stream names, consumer counts and retry budgets
	Queue QueueConfig `yaml:"queue,omitempty"`

	// Remote configures defaults for the channel-manager API client
	Remote RemoteConfig `yaml:"remote,omitempty"`

	// Resilience configures rate limiter and circuit breaker defaults
	Resilience ResilienceConfig `yaml:"resilience,omitempty"`

	// Telemetry configures OpenTelemetry tracing and metrics export
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// ServerConfig defines HTTP server settings
type ServerConfig struct {
	// Address is the listen address for the admin API (default ":8080")
	Address string `yaml:"address,omitempty"`
}

// RedisConfig defines Redis connection settings for the queue transport
type RedisConfig struct {
	// Addr is the Redis host:port
	Addr string `yaml:"addr"`

	// Password is the optional Redis password
	Password string `yaml:"password,omitempty"`

	// DB is the Redis logical database number
	DB int `yaml:"db,omitempty"`
}

// QueueConfig defines queue transport settings
type QueueConfig struct {
	// OutboundStream is the stream carrying outbound push messages
	OutboundStream string `yaml:"outboundStream,omitempty"`

	// InboundStream is the stream carrying inbound pull triggers
	InboundStream string `yaml:"inboundStream,omitempty"`

	// ConsumerGroup is the consumer group name shared by worker instances
	ConsumerGroup string `yaml:"consumerGroup,omitempty"`

	// MaxAttempts is the delivery attempt budget before dead-lettering
	MaxAttempts int `yaml:"maxAttempts,omitempty"`

	// OutboundConsumers is the number of concurrent outbound consumers
	OutboundConsumers int `yaml:"outboundConsumers,omitempty"`
}

// RemoteConfig defines channel-manager API client settings
type RemoteConfig struct {
	// Timeout is the per-request timeout (e.g. "30s")
	Timeout string `yaml:"timeout,omitempty"`

	// MaxRetries is the maximum attempt count for retryable failures
	MaxRetries int `yaml:"maxRetries,omitempty"`

	// PageSize is the page size used for list endpoints
	PageSize int `yaml:"pageSize,omitempty"`
}

// ResilienceConfig defines rate limiter and circuit breaker defaults,
// applied per remote account
type ResilienceConfig struct {
	// RateLimitCapacity is the token bucket capacity
	RateLimitCapacity int `yaml:"rateLimitCapacity,omitempty"`

	// RateLimitWindow is the refill window (e.g. "5m")
	RateLimitWindow string `yaml:"rateLimitWindow,omitempty"`

	// FailureThreshold is the consecutive-failure count that opens the breaker
	FailureThreshold int `yaml:"failureThreshold,omitempty"`

	// ResetTimeout is how long the breaker stays open (e.g. "60s")
	ResetTimeout string `yaml:"resetTimeout,omitempty"`

	// HalfOpenMaxRequests is the consecutive-success count that closes the breaker
	HalfOpenMaxRequests int `yaml:"halfOpenMaxRequests,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password
	// This is the recommended approach for production deployments
	// The file should contain only the password with optional trailing whitespace
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxConns is the maximum number of pooled connections
	MaxConns int32 `yaml:"maxConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from CHANNELSYNC_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		// Use filepath.Clean to prevent path traversal attacks
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}

		password := strings.TrimSpace(string(data))
		return password, nil
	}

	if envPassword := os.Getenv("CHANNELSYNC_DATABASE_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or CHANNELSYNC_DATABASE_PASSWORD environment variable",
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	escapedPassword := url.QueryEscape(password)

	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		escapedPassword,
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)

	return connString, nil
}

// Defaults applied by Validate when fields are unset.
const (
	DefaultServerAddress       = ":8080"
	DefaultOutboundStream      = "channelsync:outbound"
	DefaultInboundStream       = "channelsync:inbound"
	DefaultConsumerGroup       = "channelsync-workers"
	DefaultMaxAttempts         = 5
	DefaultOutboundConsumers   = 1
	DefaultRemoteTimeout       = 30 * time.Second
	DefaultMaxRetries          = 3
	DefaultPageSize            = 100
	DefaultRateLimitCapacity   = 100
	DefaultRateLimitWindow     = 5 * time.Minute
	DefaultFailureThreshold    = 5
	DefaultResetTimeout        = 60 * time.Second
	DefaultHalfOpenMaxRequests = 3
)

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for consistency and fills in defaults.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		c.Server.Address = DefaultServerAddress
	}

	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.Queue.OutboundStream == "" {
		c.Queue.OutboundStream = DefaultOutboundStream
	}
	if c.Queue.InboundStream == "" {
		c.Queue.InboundStream = DefaultInboundStream
	}
	if c.Queue.ConsumerGroup == "" {
		c.Queue.ConsumerGroup = DefaultConsumerGroup
	}
	if c.Queue.MaxAttempts <= 0 {
		c.Queue.MaxAttempts = DefaultMaxAttempts
	}
	if c.Queue.OutboundConsumers <= 0 {
		c.Queue.OutboundConsumers = DefaultOutboundConsumers
	}

	if c.Remote.MaxRetries <= 0 {
		c.Remote.MaxRetries = DefaultMaxRetries
	}
	if c.Remote.PageSize <= 0 {
		c.Remote.PageSize = DefaultPageSize
	}
	if _, err := c.RemoteTimeout(); err != nil {
		return err
	}

	if c.Resilience.RateLimitCapacity <= 0 {
		c.Resilience.RateLimitCapacity = DefaultRateLimitCapacity
	}
	if c.Resilience.FailureThreshold <= 0 {
		c.Resilience.FailureThreshold = DefaultFailureThreshold
	}
	if c.Resilience.HalfOpenMaxRequests <= 0 {
		c.Resilience.HalfOpenMaxRequests = DefaultHalfOpenMaxRequests
	}
	if _, err := c.RateLimitWindow(); err != nil {
		return err
	}
	if _, err := c.ResetTimeout(); err != nil {
		return err
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

// RemoteTimeout returns the parsed per-request timeout.
func (c *Config) RemoteTimeout() (time.Duration, error) {
	return parseDurationOrDefault(c.Remote.Timeout, DefaultRemoteTimeout, "remote.timeout")
}

// RateLimitWindow returns the parsed token-bucket refill window.
func (c *Config) RateLimitWindow() (time.Duration, error) {
	return parseDurationOrDefault(c.Resilience.RateLimitWindow, DefaultRateLimitWindow, "resilience.rateLimitWindow")
}

// ResetTimeout returns the parsed circuit-breaker reset timeout.
func (c *Config) ResetTimeout() (time.Duration, error) {
	return parseDurationOrDefault(c.Resilience.ResetTimeout, DefaultResetTimeout, "resilience.resetTimeout")
}

func parseDurationOrDefault(value string, fallback time.Duration, field string) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", field)
	}
	return d, nil
}
