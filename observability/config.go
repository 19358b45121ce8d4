package observability

import (
	"fmt"
	"time"

	"github.com/kbukum/mobilekit/version"
)

// Config configures OpenTelemetry export for a test run.
type Config struct {
	// Enabled turns on the OTLP exporters. When false the global no-op
	// providers stay in place and spans and metrics are discarded.
	Enabled bool `mapstructure:"enabled"`
	// ServiceName is reported as service.name. Filled from settings when empty.
	ServiceName string `mapstructure:"service_name"`
	// ServiceVersion is reported as service.version. Defaults to the
	// build version of the test binary.
	ServiceVersion string `mapstructure:"service_version"`
	// Environment is the deployment environment (local, ci, farm).
	Environment string `mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `mapstructure:"endpoint"`
	// Insecure allows plain HTTP to the collector.
	Insecure bool `mapstructure:"insecure"`
	// SampleRate is the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate"`
	// MetricInterval is the metric export interval.
	MetricInterval time.Duration `mapstructure:"metric_interval"`
}

// DefaultConfig returns sensible defaults for a local collector.
func DefaultConfig(serviceName string) Config {
	return Config{
		ServiceName:    serviceName,
		ServiceVersion: version.Short(),
		Environment:    "local",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		SampleRate:     1.0,
		MetricInterval: 15 * time.Second,
	}
}

// ApplyDefaults fills unset fields from DefaultConfig. SampleRate is only
// defaulted while observability is disabled, since 0 is a valid rate.
func (c *Config) ApplyDefaults(serviceName string) {
	d := DefaultConfig(serviceName)
	if c.ServiceName == "" {
		c.ServiceName = d.ServiceName
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = d.ServiceVersion
	}
	if c.Environment == "" {
		c.Environment = d.Environment
	}
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	if c.MetricInterval <= 0 {
		c.MetricInterval = d.MetricInterval
	}
	if !c.Enabled && c.SampleRate == 0 {
		c.SampleRate = d.SampleRate
	}
}

// Validate checks the exporter settings.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("observability.endpoint is required when observability is enabled")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("observability.sample_rate must be between 0 and 1 (got: %v)", c.SampleRate)
	}
	return nil
}
