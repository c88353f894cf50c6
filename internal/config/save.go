package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// defaultConfigTemplate is written when no config file exists. Comments
// document every field so the file is self-describing.
const defaultConfigTemplate = `# dukaan relay configuration

# Address the local API listens on.
listen: "127.0.0.1:8457"

mcp:
  # Tool server URL, e.g. "https://mcp.example.com/mcp".
  endpoint: ""
  # Bearer token. Prefer the DUKAAN_MCP_TOKEN environment variable.
  token: ""
  # Per-call timeout.
  timeout: 30s
  # Client name declared in the handshake.
  client_name: "dukaan-relay"

cache:
  # Read-through cache for product details.
  enabled: true
  ttl: 10m

mock:
  # Serve canned responses when the remote server is unreachable.
  enabled: true
  # Optional YAML file of canned responses keyed by tool name.
  # fixtures_path: ".dukaan/fixtures.yaml"

tracing:
  enabled: false
  # Options: "none", "file", "stdout", "otlp"
  exporter: "file"
  # file_path: "~/.config/dukaan/traces/traces.jsonl"
  # otlp_endpoint: "localhost:4317"
  sample_rate: 1.0
  service_name: "dukaan-relay"
`

// WriteDefaultConfig creates a commented default config file at the
// given path. Fails if the file already exists. The write is atomic
// (temp file then rename).
func WriteDefaultConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".dukaan.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.WriteString(defaultConfigTemplate); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
