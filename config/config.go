// Package config provides configuration loading and management for
// Centinela.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete Centinela configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	NATS      NATSConfig      `yaml:"nats"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	// Path is the database file path (":memory:" for ephemeral runs).
	Path string `yaml:"path"`
}

// FetchConfig configures the page fetcher.
type FetchConfig struct {
	// Timeout is the fixed per-fetch timeout.
	Timeout time.Duration `yaml:"timeout"`
	// UserAgent overrides the default browser user agent.
	UserAgent string `yaml:"user_agent"`
	// MaxContentSize caps the response body in bytes.
	MaxContentSize int64 `yaml:"max_content_size"`
}

// MonitorConfig configures the monitoring run.
type MonitorConfig struct {
	// Workers is the size of the page-processing pool.
	Workers int `yaml:"workers"`
	// Interval between runs when the monitor loops (0 = single pass).
	Interval time.Duration `yaml:"interval"`
}

// DiscoveryConfig configures page discovery.
type DiscoveryConfig struct {
	// MaxPages caps one discovery pass.
	MaxPages int `yaml:"max_pages"`
	// IgnoreGlobs drops discovered URLs whose path matches any glob,
	// e.g. "/checkout/**".
	IgnoreGlobs []string `yaml:"ignore_globs"`
}

// NATSConfig configures the optional JetStream worker.
type NATSConfig struct {
	// URL is the NATS server URL (empty disables messaging).
	URL string `yaml:"url"`
	// Stream is the JetStream stream holding scan requests.
	Stream string `yaml:"stream"`
	// ScanSubject is the subject scan requests arrive on.
	ScanSubject string `yaml:"scan_subject"`
	// EventSubject is the subject change events are published to.
	EventSubject string `yaml:"event_subject"`
	// Durable is the durable consumer name.
	Durable string `yaml:"durable"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics (empty disables it).
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "centinela.db",
		},
		Fetch: FetchConfig{
			Timeout:        20 * time.Second,
			MaxContentSize: 10 << 20,
		},
		Monitor: MonitorConfig{
			Workers: 8,
		},
		Discovery: DiscoveryConfig{
			MaxPages: 30,
		},
		NATS: NATSConfig{
			Stream:       "CENTINELA",
			ScanSubject:  "centinela.scan",
			EventSubject: "centinela.events",
			Durable:      "centinela-monitor",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Monitor.Workers <= 0 {
		return fmt.Errorf("monitor.workers must be positive")
	}
	if c.Discovery.MaxPages <= 0 {
		return fmt.Errorf("discovery.max_pages must be positive")
	}
	if c.NATS.URL != "" {
		if c.NATS.Stream == "" || c.NATS.ScanSubject == "" {
			return fmt.Errorf("nats.stream and nats.scan_subject are required when nats.url is set")
		}
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}

	if other.Fetch.Timeout != 0 {
		c.Fetch.Timeout = other.Fetch.Timeout
	}
	if other.Fetch.UserAgent != "" {
		c.Fetch.UserAgent = other.Fetch.UserAgent
	}
	if other.Fetch.MaxContentSize != 0 {
		c.Fetch.MaxContentSize = other.Fetch.MaxContentSize
	}

	if other.Monitor.Workers != 0 {
		c.Monitor.Workers = other.Monitor.Workers
	}
	if other.Monitor.Interval != 0 {
		c.Monitor.Interval = other.Monitor.Interval
	}

	if other.Discovery.MaxPages != 0 {
		c.Discovery.MaxPages = other.Discovery.MaxPages
	}
	if len(other.Discovery.IgnoreGlobs) > 0 {
		c.Discovery.IgnoreGlobs = other.Discovery.IgnoreGlobs
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Stream != "" {
		c.NATS.Stream = other.NATS.Stream
	}
	if other.NATS.ScanSubject != "" {
		c.NATS.ScanSubject = other.NATS.ScanSubject
	}
	if other.NATS.EventSubject != "" {
		c.NATS.EventSubject = other.NATS.EventSubject
	}
	if other.NATS.Durable != "" {
		c.NATS.Durable = other.NATS.Durable
	}

	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
}
