// Easyremote drives streaming devices on the local network from a numeric
// keypad, a daily schedule, an HTTP surface and an MQTT bridge.
//
// Each device is controlled over its External Control Protocol: the
// controller replays per-app keypress recipes to reach a show, then polls
// the media player (query/media-player) until it reports the liveness marker.
//
// Usage:
//
//	easyremote [command] [flags]
//
// See 'easyremote --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/easyremote/internal/config"
	"github.com/muurk/easyremote/internal/logging"
	"github.com/muurk/easyremote/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	envFile    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "easyremote",
	Short: "Keypad and schedule controller for streaming devices",
	Long: `Easyremote launches shows on streaming devices by replaying remote-control
keypresses over the External Control Protocol (port 8060).

Shows are bound to keypad buttons and to a daily schedule. The run command
starts the controller loop together with the optional HTTP status surface,
the MQTT bridge and a terminal rendering of the LED display.

Configuration is read from the OS config directory unless --config is given.
MQTT credentials come from MQTT_USERNAME and MQTT_PASSWORD, optionally loaded
from a .env file.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: OS config directory)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file with MQTT credentials")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when empty unless "+logging.LogLevelEnvVar+" is set")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the configuration and the MQTT credentials.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.LoadCredentials(envFile); err != nil {
		return nil, err
	}
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "easyremote %s\n%s\n", version.Full(), version.Platform())
	},
}
