package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/psufhem/internal/settings"
	"github.com/muurk/psufhem/internal/ui"
)

var initForce bool

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)

	configInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing settings file")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or edit settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Long: `Print the settings after the environment overlay has been applied,
followed by the server, MQTT and watch sections of the settings file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, file, err := settings.Resolve(configPath)
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}

		mqtt := file.MQTTSettings()
		if mqtt.Password != "" {
			mqtt.Password = "****"
		}
		doc := map[string]any{
			"file": file.Path(),
			"fhem": map[string]any{
				settings.KeyAddress:     cfg.Address,
				settings.KeyDeviceName:  cfg.DeviceName,
				settings.KeyVerifyTLS:   cfg.VerifyTLS,
				settings.KeyOnValue:     cfg.OnValue,
				settings.KeyOffValue:    cfg.OffValue,
				settings.KeyReadingName: cfg.ReadingName,
				"enabled":               cfg.Enabled(),
			},
			"server": file.ServerSettings(),
			"mqtt":   mqtt,
			"watch":  map[string]any{"interval": file.WatchInterval().String()},
		}

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(doc)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a single FHEM setting",
	Long: `Store a single FHEM setting in the settings file.

Keys: address, device_name (alias deviceName), verify_tls, set_on, set_off, reading.
Set address to an empty string to disable power control.`,
	Example: `  psufhem config set address http://fhem.local:8083
  psufhem config set device_name psu
  psufhem config set verify_tls true`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := settings.LoadFile(configPath)
		if err != nil {
			return err
		}
		if err := file.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := file.Save(); err != nil {
			return err
		}
		ui.NewPrinter(nil).PrintSuccess("Setting saved", map[string]string{
			"Key":   args[0],
			"Value": args[1],
			"File":  file.Path(),
		})
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a settings file with defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = settings.GetConfigPath(); err != nil {
				return err
			}
		}
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("settings file %s already exists (use --force to overwrite)", path)
		}

		file := settings.NewFile(path)
		defaults := settings.Defaults()
		file.FHEM = map[string]any{
			settings.KeyAddress:     defaults.Address,
			settings.KeyDeviceName:  defaults.DeviceName,
			settings.KeyVerifyTLS:   defaults.VerifyTLS,
			settings.KeyOnValue:     defaults.OnValue,
			settings.KeyOffValue:    defaults.OffValue,
			settings.KeyReadingName: defaults.ReadingName,
		}
		file.Server = file.ServerSettings()
		file.Watch.Interval = file.WatchInterval()
		if err := file.Save(); err != nil {
			return err
		}

		ui.NewPrinter(nil).PrintSuccess("Settings file created", map[string]string{
			"File": path,
			"Next": "psufhem config set address http://<host>:8083",
		})
		return nil
	},
}
