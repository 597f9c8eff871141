// Package config provides the unified configuration system for nebula-fdw.
// It defines a single BaseConfig structure shared by every connector so that
// batching, timeouts, retries and observability are tuned the same way
// everywhere.
//
// The configuration is organized into logical sections:
//   - Performance: batch size of each page fetch
//   - Timeouts: per-request and connection timeouts of the transports
//   - Reliability: transport retries and rate limiting
//   - Observability: metrics, tracing, logging
//
// Example usage:
//
//	cfg := config.NewBaseConfig("points", "qdrant")
//	cfg.Performance.BatchSize = 500
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"time"

	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

// BaseConfig is the single unified configuration structure that all connectors use.
// Connectors that need more settings should embed it with the yaml inline tag.
type BaseConfig struct {
	// Name identifies the connector instance
	Name string `yaml:"name" json:"name"`
	// Type specifies the connector id (e.g., "qdrant", "cognito", "s3")
	Type string `yaml:"type" json:"type"`

	// Performance settings control page sizes
	Performance PerformanceConfig `yaml:"performance" json:"performance"`

	// Timeouts define transport timeout durations
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`

	// Reliability settings for the transport layer
	Reliability ReliabilityConfig `yaml:"reliability" json:"reliability"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// PerformanceConfig contains page size settings.
type PerformanceConfig struct {
	// BatchSize caps the number of records requested per fetch
	BatchSize int `yaml:"batch_size" json:"batch_size"`
}

// TimeoutConfig contains all timeout-related settings.
// These prevent a fetch from hanging indefinitely.
type TimeoutConfig struct {
	// Request timeout for individual operations
	Request time.Duration `yaml:"request" json:"request"`
	// Connection timeout for establishing connections
	Connection time.Duration `yaml:"connection" json:"connection"`
	// Idle timeout before closing inactive connections
	Idle time.Duration `yaml:"idle" json:"idle"`
}

// ReliabilityConfig contains transport retry and rate limiting settings.
// The scan protocol itself never retries; these apply beneath it.
type ReliabilityConfig struct {
	// RetryAttempts sets maximum retry attempts for failed requests
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts"`
	// RetryDelay is the initial delay between retries
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
	// RetryMultiplier increases delay exponentially
	RetryMultiplier float64 `yaml:"retry_multiplier" json:"retry_multiplier"`
	// MaxRetryDelay caps the maximum retry delay
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" json:"max_retry_delay"`
	// RateLimitPerSec limits requests per second (0 = unlimited)
	RateLimitPerSec int `yaml:"rate_limit_per_sec" json:"rate_limit_per_sec"`
	// RateBurst is the limiter bucket size
	RateBurst int `yaml:"rate_burst" json:"rate_burst"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// EnableMetrics activates metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing emits scan.begin and scan.fetch spans
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
}

// DefaultBatchSize is the number of records requested per fetch unless
// a connector or configuration says otherwise.
const DefaultBatchSize = 1000

// NewBaseConfig creates a new BaseConfig with sensible defaults.
//
// Parameters:
//   - name: The connector instance name
//   - connectorType: The connector id (e.g., "qdrant")
func NewBaseConfig(name, connectorType string) *BaseConfig {
	return &BaseConfig{
		Name: name,
		Type: connectorType,
		Performance: PerformanceConfig{
			BatchSize: DefaultBatchSize,
		},
		Timeouts: TimeoutConfig{
			Request:    30 * time.Second,
			Connection: 10 * time.Second,
			Idle:       90 * time.Second,
		},
		Reliability: ReliabilityConfig{
			RetryAttempts:   3,
			RetryDelay:      time.Second,
			RetryMultiplier: 2.0,
			MaxRetryDelay:   30 * time.Second,
			RateLimitPerSec: 0,
			RateBurst:       1,
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			EnableTracing: false,
		},
	}
}

// Validate validates the configuration for correctness.
func (bc *BaseConfig) Validate() error {
	if bc.Name == "" {
		return errors.New(errors.ErrorTypeConfig, "name is required")
	}
	if bc.Type == "" {
		return errors.New(errors.ErrorTypeConfig, "type is required")
	}
	if bc.Performance.BatchSize <= 0 {
		return errors.New(errors.ErrorTypeConfig, "batch_size must be positive")
	}
	if bc.Reliability.RetryAttempts < 0 {
		return errors.New(errors.ErrorTypeConfig, "retry_attempts cannot be negative")
	}
	if bc.Reliability.RetryMultiplier < 1 && bc.Reliability.RetryAttempts > 0 {
		return errors.New(errors.ErrorTypeConfig, "retry_multiplier must be at least 1")
	}
	if bc.Reliability.RateLimitPerSec < 0 {
		return errors.New(errors.ErrorTypeConfig, "rate_limit_per_sec cannot be negative")
	}
	return nil
}

// IsRateLimited returns true if rate limiting is enabled
func (r *ReliabilityConfig) IsRateLimited() bool {
	return r.RateLimitPerSec > 0
}

// Burst returns the limiter bucket size, at least 1
func (r *ReliabilityConfig) Burst() int {
	if r.RateBurst <= 0 {
		return 1
	}
	return r.RateBurst
}
