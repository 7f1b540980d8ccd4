package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if RENTRADAR_CONFIG is set
//  3. env (prefix RENTRADAR_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("RENTRADAR_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: RENTRADAR_ADDR, RENTRADAR_PORTAL_API_KEY, ...
	// Map env keys like RENTRADAR_MAX_RETURN -> max_return (flat keys).
	envProvider := env.Provider("RENTRADAR_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "rentradar_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Widely used provider keys work without the prefix.
	if cfg.AIAPIKey == "" {
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			cfg.AIAPIKey = key
		} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.AIAPIKey = key
			if cfg.AIProvider == "" {
				cfg.AIProvider = "openai"
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.PortalMonthlyCap <= 0 {
		return fmt.Errorf("%w: portal_monthly_cap must be positive", ErrInvalidConfig)
	}
	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("%w: cache_ttl_seconds must be positive", ErrInvalidConfig)
	}
	if c.MaxReturn <= 0 {
		return fmt.Errorf("%w: max_return must be positive", ErrInvalidConfig)
	}
	return nil
}
