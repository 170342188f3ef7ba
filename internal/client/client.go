package client

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mytwin/twin-admin/internal/auth"
	"github.com/mytwin/twin-admin/internal/environment"
)

// Config holds common client configuration
type Config struct {
	StateDir        string
	Timeout         time.Duration
	RefreshInterval time.Duration
	UserAgent       string
	Debug           bool
	Environments    map[environment.Environment]environment.Config
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		RefreshInterval: auth.DefaultRefreshInterval,
		UserAgent:       "twin-admin-cli/dev",
	}
}

// fileConfig is the YAML layout of the optional config file.
//
//	timeout: 10s
//	refreshInterval: 5m
//	environments:
//	  prod:
//	    graphqlUrl: https://staging.example.com/graphql
type fileConfig struct {
	Timeout         string                                         `yaml:"timeout"`
	RefreshInterval string                                         `yaml:"refreshInterval"`
	Environments    map[environment.Environment]environment.Config `yaml:"environments"`
}

// LoadConfigFile applies the settings of a YAML config file on top of cfg.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", fc.Timeout, err)
		}
		cfg.Timeout = d
	}

	if fc.RefreshInterval != "" {
		d, err := time.ParseDuration(fc.RefreshInterval)
		if err != nil {
			return fmt.Errorf("invalid refreshInterval %q: %w", fc.RefreshInterval, err)
		}
		cfg.RefreshInterval = d
	}

	for name, env := range fc.Environments {
		if _, err := environment.Parse(string(name)); err != nil {
			return err
		}
		if cfg.Environments == nil {
			cfg.Environments = make(map[environment.Environment]environment.Config)
		}
		cfg.Environments[name] = env
	}

	return nil
}
