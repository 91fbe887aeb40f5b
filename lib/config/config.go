// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment names a deployment profile.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Storage backends for the session credential.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Environment variables consulted after the file is read.
const (
	EnvConfigPath  = "DAILYFIX_CONFIG"
	EnvHomeserver  = "DAILYFIX_HOMESERVER"
	EnvAnalysisURL = "DAILYFIX_ANALYSIS_URL"
)

// Config is the complete dailyfix configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	// Homeserver is the Matrix homeserver the client logs into.
	Homeserver ServiceConfig `yaml:"homeserver"`

	// Analysis is the conversation analysis service.
	Analysis ServiceConfig `yaml:"analysis"`

	Sync    SyncConfig    `yaml:"sync"`
	Storage StorageConfig `yaml:"storage"`

	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the per-environment sections. Zero fields leave the
// base value in place.
type Overrides struct {
	Homeserver *ServiceConfig `yaml:"homeserver,omitempty"`
	Analysis   *ServiceConfig `yaml:"analysis,omitempty"`
	Sync       *SyncConfig    `yaml:"sync,omitempty"`
	Storage    *StorageConfig `yaml:"storage,omitempty"`
}

// ServiceConfig locates a remote HTTP service.
type ServiceConfig struct {
	URL string `yaml:"url"`

	// Timeout bounds each request, e.g. "30s".
	Timeout time.Duration `yaml:"timeout"`
}

// SyncConfig tunes the polling loops.
type SyncConfig struct {
	RoomListInterval time.Duration `yaml:"room_list_interval"`
	RoomInterval     time.Duration `yaml:"room_interval"`

	// MessageLimit is how many recent messages a room view fetches.
	MessageLimit int `yaml:"message_limit"`

	// StateConcurrency caps parallel room-state requests during a
	// room-list cycle.
	StateConcurrency int `yaml:"state_concurrency"`
}

// StorageConfig selects where the session credential is persisted.
type StorageConfig struct {
	// Backend is one of "file", "sqlite", or "memory".
	Backend string `yaml:"backend"`

	// Path is the file or database path. Unused by the memory backend.
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Environment: Development,
		Homeserver: ServiceConfig{
			URL:     "http://localhost:8008",
			Timeout: 30 * time.Second,
		},
		Analysis: ServiceConfig{
			URL:     "http://localhost:8000",
			Timeout: 60 * time.Second,
		},
		Sync: SyncConfig{
			RoomListInterval: 5 * time.Second,
			RoomInterval:     3 * time.Second,
			MessageLimit:     50,
			StateConcurrency: 8,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Path:    "${DAILYFIX_STATE:-${HOME}/.local/state/dailyfix}/session.json",
		},
	}
}

// Load reads the file named by DAILYFIX_CONFIG. It fails when the
// variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your dailyfix.yaml, or use --config", EnvConfigPath)
	}
	return LoadFile(path)
}

// LoadFile reads a configuration file over the defaults, applies the
// section for the selected environment, then the URL environment
// variables, then path expansion.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.finish()
	return cfg, nil
}

// FromEnvironment returns the defaults with environment overrides and
// path expansion applied. The CLI uses it when no file is configured.
func FromEnvironment() *Config {
	cfg := Default()
	cfg.finish()
	return cfg
}

func (c *Config) finish() {
	c.applyEnvironmentOverrides()
	if value := os.Getenv(EnvHomeserver); value != "" {
		c.Homeserver.URL = value
	}
	if value := os.Getenv(EnvAnalysisURL); value != "" {
		c.Analysis.URL = value
	}
	c.Storage.Path = expandVars(c.Storage.Path, map[string]string{"HOME": os.Getenv("HOME")})
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.Homeserver != nil {
		mergeService(&c.Homeserver, *overrides.Homeserver)
	}
	if overrides.Analysis != nil {
		mergeService(&c.Analysis, *overrides.Analysis)
	}
	if sync := overrides.Sync; sync != nil {
		if sync.RoomListInterval > 0 {
			c.Sync.RoomListInterval = sync.RoomListInterval
		}
		if sync.RoomInterval > 0 {
			c.Sync.RoomInterval = sync.RoomInterval
		}
		if sync.MessageLimit > 0 {
			c.Sync.MessageLimit = sync.MessageLimit
		}
		if sync.StateConcurrency > 0 {
			c.Sync.StateConcurrency = sync.StateConcurrency
		}
	}
	if storage := overrides.Storage; storage != nil {
		if storage.Backend != "" {
			c.Storage.Backend = storage.Backend
		}
		if storage.Path != "" {
			c.Storage.Path = storage.Path
		}
	}
}

func mergeService(base *ServiceConfig, override ServiceConfig) {
	if override.URL != "" {
		base.URL = override.URL
	}
	if override.Timeout > 0 {
		base.Timeout = override.Timeout
	}
}

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^{}]|\$\{[^}]*\})*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. Defaults may
// themselves contain one level of ${VAR}.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, fallback := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return expandVars(fallback, vars)
	})
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]Environment{Development, Staging, Production}, c.Environment) {
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}
	for name, service := range map[string]ServiceConfig{"homeserver": c.Homeserver, "analysis": c.Analysis} {
		parsed, err := url.Parse(service.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errs = append(errs, fmt.Errorf("%s.url must be an absolute URL, got %q", name, service.URL))
		}
		if service.Timeout < 0 {
			errs = append(errs, fmt.Errorf("%s.timeout must not be negative", name))
		}
	}
	if c.Sync.RoomListInterval <= 0 || c.Sync.RoomInterval <= 0 {
		errs = append(errs, fmt.Errorf("sync intervals must be positive"))
	}
	if c.Sync.MessageLimit <= 0 {
		errs = append(errs, fmt.Errorf("sync.message_limit must be positive"))
	}
	if c.Sync.StateConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("sync.state_concurrency must be positive"))
	}
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be one of file, sqlite, memory; got %q", c.Storage.Backend))
	}

	return errors.Join(errs...)
}
