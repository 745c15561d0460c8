// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding the config path.
const EnvConfig = "LECTERN_CONFIG"

// Environment represents the deployment the client talks to.
type Environment string

const (
	// Development is a local API server.
	Development Environment = "development"
	// Staging is a pre-production API.
	Staging Environment = "staging"
	// Production is the live API.
	Production Environment = "production"
)

// Config is the master configuration for Lectern.
type Config struct {
	// Environment selects which override section applies.
	Environment Environment `yaml:"environment"`

	// EnvFile is a dotenv file loaded before variable expansion.
	// Relative paths resolve against the config file's directory.
	EnvFile string `yaml:"env_file"`

	// API configures the HTTP client.
	API APIConfig `yaml:"api"`

	// State configures persisted session storage.
	State StateConfig `yaml:"state"`

	// Display configures terminal output.
	Display DisplayConfig `yaml:"display"`

	// Per-environment overrides, applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	API     *APIConfig     `yaml:"api,omitempty"`
	State   *StateConfig   `yaml:"state,omitempty"`
	Display *DisplayConfig `yaml:"display,omitempty"`
}

// APIConfig configures the HTTP client.
type APIConfig struct {
	// BaseURL is the API root, including any path prefix.
	// Default: ${LECTERN_API_URL:-http://localhost:8000/api}
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each request, as a Go duration string.
	// Default: 30s
	Timeout string `yaml:"timeout"`

	// RequestsPerSecond limits the client's request rate. Zero
	// disables the limit.
	// Default: 0 (development), 10 (production)
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// UserAgent replaces the default lectern/<version> User-Agent.
	UserAgent string `yaml:"user_agent"`
}

// StateConfig configures persisted session storage.
type StateConfig struct {
	// File is the JSON state file. Empty selects the platform default.
	// Default: ${LECTERN_STATE_FILE:-}
	File string `yaml:"file"`
}

// DisplayConfig configures terminal output.
type DisplayConfig struct {
	// ColorScheme is "auto", "light", or "dark". It is the system
	// preference used when no theme has been persisted.
	// Default: auto
	ColorScheme string `yaml:"color_scheme"`

	// Width is the wrap width for rendered descriptions. Zero uses
	// the terminal width, falling back to 80.
	Width int `yaml:"width"`
}

// colorSchemes are the accepted display.color_scheme values.
var colorSchemes = []string{"auto", "light", "dark"}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		API: APIConfig{
			BaseURL: "${LECTERN_API_URL:-http://localhost:8000/api}",
			Timeout: "30s",
		},
		State: StateConfig{
			File: "${LECTERN_STATE_FILE:-}",
		},
		Display: DisplayConfig{
			ColorScheme: "auto",
		},
	}
}

// Load loads configuration from the file named by LECTERN_CONFIG, or
// returns the expanded defaults when it is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvConfig)
	if configPath == "" {
		cfg := Default()
		cfg.applyEnvironmentOverrides()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()

	if cfg.EnvFile != "" {
		envFile := cfg.EnvFile
		if !filepath.IsAbs(envFile) {
			envFile = filepath.Join(filepath.Dir(path), envFile)
		}
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("config: loading env_file %s: %w", envFile, err)
		}
	}

	cfg.expandVariables()
	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production defaults: rate-limited client.
		if overrides == nil {
			overrides = &ConfigOverrides{
				API: &APIConfig{RequestsPerSecond: 10},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.API != nil {
		if overrides.API.BaseURL != "" {
			c.API.BaseURL = overrides.API.BaseURL
		}
		if overrides.API.Timeout != "" {
			c.API.Timeout = overrides.API.Timeout
		}
		if overrides.API.RequestsPerSecond != 0 {
			c.API.RequestsPerSecond = overrides.API.RequestsPerSecond
		}
		if overrides.API.UserAgent != "" {
			c.API.UserAgent = overrides.API.UserAgent
		}
	}

	if overrides.State != nil && overrides.State.File != "" {
		c.State.File = overrides.State.File
	}

	if overrides.Display != nil {
		if overrides.Display.ColorScheme != "" {
			c.Display.ColorScheme = overrides.Display.ColorScheme
		}
		if overrides.Display.Width != 0 {
			c.Display.Width = overrides.Display.Width
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.API.BaseURL = expandVars(c.API.BaseURL, vars)
	c.State.File = expandVars(c.State.File, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, preferring
// vars over the environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// RequestTimeout returns api.timeout as a duration.
func (c *Config) RequestTimeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config: api.timeout: %w", err)
	}
	return timeout, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.API.BaseURL == "" {
		errs = append(errs, fmt.Errorf("api.base_url is required"))
	} else if parsed, err := url.Parse(c.API.BaseURL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url must be an http or https URL, got %q", c.API.BaseURL))
	}

	if timeout, err := c.RequestTimeout(); err != nil {
		errs = append(errs, err)
	} else if timeout <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout must be positive"))
	}

	if c.API.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("api.requests_per_second must not be negative"))
	}

	if !slices.Contains(colorSchemes, c.Display.ColorScheme) {
		errs = append(errs, fmt.Errorf("display.color_scheme must be one of: %v", colorSchemes))
	}

	if c.Display.Width < 0 {
		errs = append(errs, fmt.Errorf("display.width must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
