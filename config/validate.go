package config

import (
	"fmt"
	"net/url"
)

// Validate checks wallet config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.Node.Endpoint == "" {
		return fmt.Errorf("node.endpoint is required")
	}
	u, err := url.Parse(cfg.Node.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("node.endpoint must be an http(s) URL")
	}
	if cfg.Node.Timeout < 0 {
		return fmt.Errorf("node.timeout must not be negative")
	}
	if cfg.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	return nil
}

// FeeOverridesApplied reports whether any protocol fee constant is
// overridden. Callers warn loudly on mainnet.
func FeeOverridesApplied(cfg *Config) bool {
	return cfg.Fees.Base != 0 || cfg.Fees.PerByte != 0 || cfg.Fees.MinBaseValue != 0
}
