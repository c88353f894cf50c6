// Package cmd implements the dukaan CLI.
package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dukaanlabs/dukaan/internal/config"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:     "dukaan",
	Short:   "Backend relay for the dukaan shopping front-end",
	Long: `dukaan relays tool invocations from the shopping front-end to a remote
MCP tool server, manages the protocol session, and normalizes catalog
responses into structured product records.`,
	Version: version,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .dukaan/config.yaml or ~/.config/dukaan/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"enable debug logging")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("listen", defaults.Listen)
	viper.SetDefault("mcp.endpoint", defaults.MCP.Endpoint)
	viper.SetDefault("mcp.token", defaults.MCP.Token)
	viper.SetDefault("mcp.timeout", defaults.MCP.Timeout)
	viper.SetDefault("mcp.client_name", defaults.MCP.ClientName)
	viper.SetDefault("cache.enabled", defaults.Cache.Enabled)
	viper.SetDefault("cache.ttl", defaults.Cache.TTL)
	viper.SetDefault("mock.enabled", defaults.Mock.Enabled)
	viper.SetDefault("mock.fixtures_path", defaults.Mock.FixturesPath)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	// Secrets belong in the environment, not the config file.
	_ = viper.BindEnv("mcp.token", "DUKAAN_MCP_TOKEN")
	_ = viper.BindEnv("mcp.endpoint", "DUKAAN_MCP_ENDPOINT")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .dukaan/config.yaml (current directory)
		// 2. ~/.config/dukaan/config.yaml (user config)
		if _, err := os.Stat(".dukaan/config.yaml"); err == nil {
			viper.SetConfigFile(".dukaan/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "dukaan"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create a commented default.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := ".dukaan/config.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If the write fails, continue with defaults.
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
