// Package config handles agentloop daemon configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./agentloop.yaml, ~/.config/agentloop/config.yaml,
// /etc/agentloop/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"agentloop.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "agentloop", "config.yaml"))
	}

	paths = append(paths, "/etc/agentloop/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all daemon configuration.
type Config struct {
	Listen   ListenConfig  `yaml:"listen"`
	Model    ModelConfig   `yaml:"model"`
	Engine   EngineConfig  `yaml:"engine"`
	Storage  StorageConfig `yaml:"storage"`
	Tools    ToolsConfig   `yaml:"tools"`
	LogLevel string        `yaml:"log_level"`
	LogJSON  bool          `yaml:"log_json"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// Addr returns the address:port string for net.Listen.
func (c ListenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

// ModelConfig selects and configures the model provider.
type ModelConfig struct {
	// Provider is one of anthropic, openai, mock.
	Provider    string  `yaml:"provider"`
	Name        string  `yaml:"name"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	System      string  `yaml:"system"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// EngineConfig tunes turn execution.
type EngineConfig struct {
	// StepBudget caps model consultations per turn (default 10).
	StepBudget int `yaml:"step_budget"`
	// MaxRetries is the extra attempt count for transient failures.
	MaxRetries int `yaml:"max_retries"`
	// RetryBackoffMS is the pause between retries in milliseconds.
	RetryBackoffMS int `yaml:"retry_backoff_ms"`
}

// RetryBackoff returns the backoff as a duration.
func (c EngineConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// StorageConfig selects the persistence backends. Empty paths fall back to
// in-memory implementations.
type StorageConfig struct {
	// AuditDB is the sqlite file for the tool invocation ledger.
	AuditDB string `yaml:"audit_db"`
	// DocumentsDB is the sqlite file for the retrieval index.
	DocumentsDB string `yaml:"documents_db"`
}

// ToolsConfig enables the built-in tools.
type ToolsConfig struct {
	FetchEnabled     bool `yaml:"fetch_enabled"`
	SearchEnabled    bool `yaml:"search_enabled"`
	InvokeTimeoutSec int  `yaml:"invoke_timeout_sec"`
}

// Load reads configuration from a YAML file. Environment variables in the
// file body ($VAR or ${VAR}) are expanded before parsing, so API keys can
// stay out of the file itself.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration: mock provider, in-memory
// storage, both built-in tools enabled.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Model: ModelConfig{
			Provider:   "mock",
			TimeoutSec: 60,
		},
		Engine: EngineConfig{
			StepBudget:     10,
			MaxRetries:     0,
			RetryBackoffMS: 200,
		},
		Tools: ToolsConfig{
			FetchEnabled:     true,
			SearchEnabled:    true,
			InvokeTimeoutSec: 30,
		},
		LogLevel: "info",
	}
}

// Validate checks provider selection and required credentials.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Model.Provider) {
	case "mock":
	case "anthropic", "openai":
		if c.Model.APIKey == "" {
			return fmt.Errorf("model provider %q requires api_key", c.Model.Provider)
		}
	default:
		return fmt.Errorf("unknown model provider %q (want anthropic, openai or mock)", c.Model.Provider)
	}

	if c.Engine.StepBudget < 0 {
		return fmt.Errorf("engine step_budget must not be negative")
	}

	return nil
}
