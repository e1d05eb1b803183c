// Psufhem switches a power supply through a FHEM home-automation server.
//
// It talks to FHEMWEB's command interface, handling the rolling csrf token,
// and can run as a long-lived control API with an optional MQTT bridge.
//
// Usage:
//
//	psufhem [command] [flags]
//
// Settings are read from $XDG_CONFIG_HOME/psufhem/config.yaml, overlaid by
// PSUFHEM_* environment variables (a .env file in the working directory is
// honoured). See 'psufhem --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/muurk/psufhem/internal/logging"
	"github.com/muurk/psufhem/internal/version"
)

// errReported marks errors that were already rendered to the user
var errReported = errors.New("error already reported")

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "psufhem",
	Short: "PSU power control through FHEM",
	Long: `Switch a power supply on and off through a FHEM home-automation server.

psufhem sends 'set <device> on|off' and 'jsonlist2 <device>' to FHEMWEB,
refreshing the csrf token when FHEM rotates it.

Run 'psufhem config init' to create a settings file, then 'psufhem state'.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine; a broken one is not
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return logging.Initialize(logLevel)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (default $XDG_CONFIG_HOME/psufhem/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("psufhem %s\n", version.Full())
	},
}
