// Package config loads harness configuration from the environment and the optional
// scenario settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"tengw/scenarios"
	"tengw/shared"
)

// Config holds the process-level configuration.
type Config struct {
	Env          string        `env:"GATEWAY_ENV"          envDefault:"sepolia"`
	URL          string        `env:"GATEWAY_URL"`
	ChainID      int64         `env:"GATEWAY_CHAIN_ID"`
	PrivateKey   string        `env:"GATEWAY_PRIVATE_KEY"`
	HTTPTimeout  time.Duration `env:"GATEWAY_HTTP_TIMEOUT" envDefault:"30s"`
	LogLevel     string        `env:"LOG_LEVEL"            envDefault:"info"`
	LogFormat    string        `env:"LOG_FORMAT"`
	ScenarioFile string        `env:"SCENARIO_CONFIG"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Network resolves the configured environment and applies URL and chain ID overrides.
func (c Config) Network() (shared.NetworkConfig, error) {
	n, err := shared.Lookup(c.Env)
	if err != nil {
		return shared.NetworkConfig{}, err
	}
	n = n.WithOverrides(c.URL, c.ChainID)
	if err := n.Validate(); err != nil {
		return shared.NetworkConfig{}, err
	}
	return n, nil
}

// LoadSettings returns scenario settings: defaults, then the YAML file at path (if
// path is non-empty), then SCENARIO_* environment overrides.
func LoadSettings(path string) (scenarios.Settings, error) {
	settings := scenarios.DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return scenarios.Settings{}, fmt.Errorf("read scenario config: %w", err)
		}
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return scenarios.Settings{}, fmt.Errorf("parse scenario config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&settings, env.Options{Prefix: "SCENARIO_"}); err != nil {
		return scenarios.Settings{}, fmt.Errorf("parse env: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return scenarios.Settings{}, err
	}
	return settings, nil
}

// ErrNoPrivateKey is returned by RequirePrivateKey when none is configured.
var ErrNoPrivateKey = errors.New("GATEWAY_PRIVATE_KEY not set")

// RequirePrivateKey returns the configured private key or ErrNoPrivateKey.
func (c Config) RequirePrivateKey() (string, error) {
	if c.PrivateKey == "" {
		return "", ErrNoPrivateKey
	}
	return c.PrivateKey, nil
}
