// Package config holds the settings shared by the client, the
// workflows and the command line tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"digital.vasic.salamoonder/pkg/env"
)

// Config holds runtime configuration.
type Config struct {
	// APIKey authenticates every task API call.
	APIKey string `yaml:"api_key"`

	// BaseURL is the task API base URL.
	BaseURL string `yaml:"base_url"`

	// IntegrityURL is the base of the Twitch GQL host the
	// integrity workflow posts to.
	IntegrityURL string `yaml:"integrity_url"`

	// ClientID is the default Twitch client id.
	ClientID string `yaml:"client_id"`

	// MaxRetries bounds pending polls per task.
	MaxRetries int `yaml:"max_retries"`

	// PollInterval is the delay between polls.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Timeout applies to each HTTP request.
	Timeout time.Duration `yaml:"timeout"`

	// Verbose enables debug logging of API traffic.
	Verbose bool `yaml:"verbose"`
}

// Default returns a Config with the production defaults and no
// API key.
func Default() *Config {
	return &Config{
		BaseURL:      "https://salamoonder.com/api",
		IntegrityURL: "https://gql.twitch.tv",
		ClientID:     "kimne78kx3ncx6brgo4mv6wki5h1ko",
		MaxRetries:   120,
		PollInterval: time.Second,
		Timeout:      30 * time.Second,
	}
}

// Load reads a YAML file over the defaults. Keys absent from the
// file keep their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays the SALAMOONDER_* variables visible through l.
// Unset variables leave the current value alone.
func (c *Config) ApplyEnv(l env.Loader) error {
	if v := l.GetAPIKey("salamoonder"); v != "" {
		c.APIKey = v
	}
	if v := l.Get(env.BaseURLVar); v != "" {
		c.BaseURL = v
	}
	if v := l.Get(env.IntegrityURLVar); v != "" {
		c.IntegrityURL = v
	}
	if v := l.Get(env.ClientIDVar); v != "" {
		c.ClientID = v
	}
	if v := l.Get(env.MaxRetriesVar); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", env.MaxRetriesVar, err)
		}
		c.MaxRetries = n
	}
	if v := l.Get(env.PollIntervalVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", env.PollIntervalVar, err)
		}
		c.PollInterval = d
	}
	if v := l.Get(env.TimeoutVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", env.TimeoutVar, err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.APIKey == "":
		return errors.New("api key is required")
	case c.BaseURL == "":
		return errors.New("base url is required")
	case c.PollInterval <= 0:
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	case c.MaxRetries < 0:
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	case c.Timeout < 0:
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}
