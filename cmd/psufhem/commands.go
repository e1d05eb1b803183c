package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/psufhem/internal/discovery"
	"github.com/muurk/psufhem/internal/fhem"
	"github.com/muurk/psufhem/internal/logging"
	"github.com/muurk/psufhem/internal/settings"
	"github.com/muurk/psufhem/internal/ui"
)

// Command flags
var (
	scanTimeout int
	scanSave    bool
	showToken   bool
	refreshSecs int
)

func init() {
	rootCmd.AddCommand(onCmd)
	rootCmd.AddCommand(offCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(dashboardCmd)

	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Scan timeout in seconds")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "Store the first FHEM found as the address")
	tokenCmd.Flags().BoolVar(&showToken, "show", false, "Print the full token instead of a redacted prefix")
	dashboardCmd.Flags().IntVar(&refreshSecs, "refresh", 10, "State refresh interval in seconds (0 disables)")
}

// session is the resolved configuration plus a client reading from it
type session struct {
	cfg    settings.Configuration
	file   *settings.File
	holder *settings.Holder
	client *fhem.Client
}

func openSession(opts ...fhem.Option) (*session, error) {
	cfg, file, err := settings.Resolve(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	holder := settings.NewHolder(cfg)
	opts = append([]fhem.Option{fhem.WithLogger(logging.Named("fhem"))}, opts...)
	return &session{
		cfg:    cfg,
		file:   file,
		holder: holder,
		client: fhem.NewClient(holder, opts...),
	}, nil
}

// params are shown in command headers
func (s *session) params() map[string]string {
	return map[string]string{
		"Device":  s.cfg.DeviceName,
		"Address": s.cfg.Address,
	}
}

// requireEnabled prints guidance when no address is configured
func (s *session) requireEnabled(p *ui.Printer, title string) error {
	if s.cfg.Enabled() {
		return nil
	}
	p.PrintError(title, errors.New("no FHEM address configured"), []string{
		"Set one with 'psufhem config set address http://<host>:8083'",
		"Or export PSUFHEM_ADDRESS",
		"Try 'psufhem scan --save' to find FHEM on the local network",
	})
	return errReported
}

func reportError(p *ui.Printer, title string, err error) error {
	p.PrintError(title, errors.New(fhem.ShortMessage(err)), ui.HintLines(fhem.Hint(err)))
	logging.Debug("Command failed", zap.Error(err))
	return errReported
}

var onCmd = &cobra.Command{
	Use:   "on",
	Short: "Switch the PSU on",
	Long: `Send 'set <device_name> <set_on>' to FHEM.

Success means FHEM accepted the request; use 'psufhem state' to confirm
the device followed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPower(cmd.Context(), true)
	},
}

var offCmd = &cobra.Command{
	Use:   "off",
	Short: "Switch the PSU off",
	Long:  `Send 'set <device_name> <set_off>' to FHEM.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPower(cmd.Context(), false)
	},
}

func runPower(ctx context.Context, on bool) error {
	p := ui.NewPrinter(nil)
	s, err := openSession()
	if err != nil {
		return err
	}

	title, verb, value := "PSU Off", "off", s.cfg.OffValue
	if on {
		title, verb, value = "PSU On", "on", s.cfg.OnValue
	}
	if err := s.requireEnabled(p, title); err != nil {
		return err
	}

	p.PrintHeader(title, "psufhem "+verb, s.params())

	if on {
		err = s.client.TurnOn(ctx)
	} else {
		err = s.client.TurnOff(ctx)
	}
	if err != nil {
		return reportError(p, "Command not sent", err)
	}

	p.PrintSuccess("Command sent", map[string]string{
		"Command": fhem.SetCommand(s.cfg.DeviceName, value),
	})
	return nil
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Query the PSU state",
	Long: `Send 'jsonlist2 <device_name>' to FHEM and interpret the configured reading.

The reading is compared with set_off first, then set_on. Values starting
with 'set_' mean FHEM is still switching and are reported as off.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ui.NewPrinter(nil)
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.requireEnabled(p, "PSU State"); err != nil {
			return err
		}

		p.PrintHeader("PSU State", "psufhem state", s.params())
		on, err := s.client.State(cmd.Context())
		if err != nil {
			return reportError(p, "State query failed", err)
		}
		p.Newline()
		p.PrintState(s.cfg.DeviceName, on)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Fetch the current FHEMWEB csrf token",
	Long: `Query FHEM once and print the csrf token it handed out.

Useful to check that the FHEMWEB instance has csrfToken enabled. The
token is redacted unless --show is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ui.NewPrinter(nil)
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.requireEnabled(p, "CSRF Token"); err != nil {
			return err
		}

		if err := s.client.LoadToken(cmd.Context()); err != nil {
			return reportError(p, "Token request failed", err)
		}

		token := s.client.Token()
		switch {
		case token == "":
			token = "(none: FHEMWEB sent no X-FHEM-csrfToken header)"
		case !showToken:
			token = logging.RedactToken(token)
		}
		p.PrintSuccess("Token received", map[string]string{
			"Address": s.cfg.Address,
			"Token":   token,
		})
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for FHEM servers on the network",
	Long: `Browse mDNS for HTTP services that look like FHEMWEB.

FHEM announces itself when an mdns/Bonjour helper is configured; servers
that do not announce can still be set manually.`,
	Example: `  # Scan for 5 seconds (default)
  psufhem scan

  # Scan longer and store the first hit as the address
  psufhem scan --timeout 15 --save`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(nil)
	fmt.Printf("Scanning for FHEM servers (timeout: %ds)...\n\n", scanTimeout)

	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(scanTimeout) * time.Second

	candidates, err := scanner.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(candidates) == 0 {
		p.PrintError("No FHEM servers found", nil, []string{
			"Check that FHEM announces itself over mDNS",
			"Try increasing --timeout for slower networks",
			"Set the address manually with 'psufhem config set address <url>'",
		})
		return nil
	}

	fmt.Printf("Found %d server(s):\n\n", len(candidates))
	for i, c := range candidates {
		fmt.Printf("%d. %s\n", i+1, c.Instance)
		fmt.Printf("   Host:    %s\n", c.Hostname)
		fmt.Printf("   URL:     %s\n", c.BaseURL())
		if len(c.Metadata) > 0 {
			fmt.Printf("   Metadata: %v\n", c.Metadata)
		}
		fmt.Println()
	}

	if !scanSave {
		fmt.Println("Use 'psufhem config set address <url>' to select a server")
		return nil
	}

	file, err := settings.LoadFile(configPath)
	if err != nil {
		return err
	}
	if err := file.Set(settings.KeyAddress, candidates[0].BaseURL()); err != nil {
		return err
	}
	if err := file.Save(); err != nil {
		return err
	}
	p.PrintSuccess("Address saved", map[string]string{
		"Address": candidates[0].BaseURL(),
		"File":    file.Path(),
	})
	return nil
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive power dashboard",
	Long: `Open a terminal dashboard showing the PSU state.

Keys: o on, f off, r refresh, q quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := ui.NewPrinter(nil)
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.requireEnabled(p, "Dashboard"); err != nil {
			return err
		}
		if !ui.IsTerminal() {
			return fmt.Errorf("dashboard requires an interactive terminal")
		}

		m := ui.NewDashboard(s.client, s.cfg.DeviceName, s.cfg.Address).
			WithErrorFormatter(fhem.ShortMessage).
			WithRefreshInterval(time.Duration(refreshSecs) * time.Second)
		return ui.RunDashboard(m)
	},
}
