// Package config provides configuration types and defaults for the
// dukaan relay.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dukaanlabs/dukaan/internal/tracing"
)

// Config holds all configuration options for the relay daemon.
type Config struct {
	Listen  string         `mapstructure:"listen"`
	MCP     MCPConfig      `mapstructure:"mcp"`
	Cache   CacheConfig    `mapstructure:"cache"`
	Mock    MockConfig     `mapstructure:"mock"`
	Tracing tracing.Config `mapstructure:"tracing"`
}

// MCPConfig holds the outbound tool server connection settings.
type MCPConfig struct {
	// Endpoint is the tool server URL. Required to serve live traffic;
	// when empty the relay runs in mock-only mode.
	Endpoint string `mapstructure:"endpoint"`

	// Token is sent as a bearer credential. Prefer the
	// DUKAAN_MCP_TOKEN environment variable over the config file.
	Token string `mapstructure:"token"`

	// Timeout bounds each outbound HTTP call.
	Timeout time.Duration `mapstructure:"timeout"`

	// ClientName identifies this relay in the handshake.
	ClientName string `mapstructure:"client_name"`
}

// CacheConfig holds the product-detail cache settings.
type CacheConfig struct {
	// Enabled controls the read-through cache in front of
	// get_product_details. Disable to hit the remote on every call.
	Enabled bool `mapstructure:"enabled"`

	// TTL is how long a cached record stays valid.
	TTL time.Duration `mapstructure:"ttl"`
}

// MockConfig holds the canned-response fallback settings.
type MockConfig struct {
	// Enabled controls whether the relay may serve canned responses
	// when the remote server is unreachable.
	Enabled bool `mapstructure:"enabled"`

	// FixturesPath points at a YAML file of canned responses keyed by
	// tool name. When empty, built-in sample data is used. The file is
	// hot-reloaded on change.
	FixturesPath string `mapstructure:"fixtures_path"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	tr := tracing.DefaultConfig()
	tr.FilePath = DefaultTracesFilePath()

	return Config{
		Listen: "127.0.0.1:8457",
		MCP: MCPConfig{
			Timeout:    30 * time.Second,
			ClientName: "dukaan-relay",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     10 * time.Minute,
		},
		Mock: MockConfig{
			Enabled: true,
		},
		Tracing: tr,
	}
}

// DefaultTracesFilePath returns the default path for trace file export,
// or "" if the home directory is unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "dukaan", "traces", "traces.jsonl")
}

// DefaultLogFilePath returns the default debug log location.
func DefaultLogFilePath() string {
	return filepath.Join(os.TempDir(), "dukaan-debug.log")
}

// Validate rejects configurations the daemon cannot start with.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.MCP.Endpoint == "" && !c.Mock.Enabled {
		return fmt.Errorf("either mcp.endpoint or mock.enabled must be set")
	}
	if c.MCP.Timeout < 0 {
		return fmt.Errorf("mcp.timeout must not be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	return nil
}
