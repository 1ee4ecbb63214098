// Package config handles wallet runtime configuration.
//
// Configuration is split into two categories:
//   - Protocol rules: fee schedule and minimum-value floor, fixed per network
//   - Wallet settings: runtime configuration, can vary per installation
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds wallet runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// Node connection
	Node NodeConfig

	// Fee schedule overrides (zero = protocol default)
	Fees FeeConfig

	// Query cache
	Cache CacheConfig

	// Logging
	Log LogConfig
}

// NodeConfig holds the node RPC connection settings.
type NodeConfig struct {
	Endpoint string        `conf:"node.endpoint"`
	Timeout  time.Duration `conf:"node.timeout"`
}

// FeeConfig overrides protocol fee constants. Zero fields keep the
// network default; overriding on mainnet builds transactions the ledger
// will reject, so this exists for private test networks only.
type FeeConfig struct {
	Base         uint64 `conf:"fees.base"`
	PerByte      uint64 `conf:"fees.perbyte"`
	MinBaseValue uint64 `conf:"fees.minvalue"`
}

// CacheConfig holds the read-through query cache settings.
type CacheConfig struct {
	Enabled bool          `conf:"cache.enabled"`
	TTL     time.Duration `conf:"cache.ttl"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingpay
//	macOS:   ~/Library/Application Support/Klingpay
//	Windows: %APPDATA%\Klingpay
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingpay"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Klingpay")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Klingpay")
		}
		return filepath.Join(home, "AppData", "Roaming", "Klingpay")
	default:
		return filepath.Join(home, ".klingpay")
	}
}

// KeystoreDir returns the keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.DataDir, string(c.Network), "keystore")
}

// CacheDir returns the query cache directory.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, string(c.Network), "cache")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingpay.conf")
}
