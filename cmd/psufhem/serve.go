package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/psufhem/internal/fhem"
	"github.com/muurk/psufhem/internal/logging"
	"github.com/muurk/psufhem/internal/metrics"
	"github.com/muurk/psufhem/internal/mqtt"
	"github.com/muurk/psufhem/internal/psu"
	"github.com/muurk/psufhem/internal/server"
	"github.com/muurk/psufhem/internal/settings"
)

// Serve flags
var (
	listenAddr string
	certPath   string
	keyPath    string
)

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default from settings, :8086)")
	serveCmd.Flags().StringVar(&certPath, "cert", "", "Path to TLS certificate file")
	serveCmd.Flags().StringVar(&keyPath, "key", "", "Path to TLS private key file")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP control API",
	Long: `Run the PSU control API.

Routes:
  GET  /api/psu              current state (briefly cached)
  POST /api/psu/on|off       switch the PSU
  POST /api/settings/reload  re-read the settings file
  GET  /api/events           WebSocket stream of state changes
  GET  /metrics              Prometheus metrics
  GET  /healthz              liveness

SIGHUP reloads the settings. When mqtt.broker is set, state is also
published to <prefix>/state and commands are accepted on <prefix>/set.`,
	Example: `  # Serve on the default port
  psufhem serve --log-level info

  # Serve over TLS
  psufhem serve --listen :8443 --cert fullchain.pem --key privkey.pem`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, file, err := settings.Resolve(configPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	logger := logging.GetLogger()

	holder := settings.NewHolder(cfg)
	collector := metrics.NewCollector()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collector,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client := fhem.NewClient(holder,
		fhem.WithLogger(logging.Named("fhem")),
		fhem.WithObserver(collector),
	)
	plugin := psu.New(holder, client, func() (settings.Configuration, error) {
		c, _, err := settings.Resolve(configPath)
		return c, err
	})
	watcher := psu.NewWatcher(plugin, file.WatchInterval())

	serverConfig := server.ConfigFrom(file.ServerSettings())
	if listenAddr != "" {
		serverConfig.Listen = listenAddr
	}
	if certPath != "" || keyPath != "" {
		serverConfig.CertPath = certPath
		serverConfig.KeyPath = keyPath
	}
	srv, err := server.New(serverConfig, plugin,
		server.WithWatcher(watcher),
		server.WithGatherer(registry),
	)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	plugin.OnStartup(ctx, nil)
	if !cfg.Enabled() {
		logger.Warn("No FHEM address configured, power control is disabled")
	}

	events, unsubscribe := watcher.Subscribe()
	defer unsubscribe()
	go collector.Follow(events)

	if mqttSettings := file.MQTTSettings(); mqttSettings.Broker != "" {
		bridge, err := mqtt.Connect(mqttSettings, plugin)
		if err != nil {
			return err
		}
		defer bridge.Close()
		bridge.OnCommand(watcher.Poke)

		mqttEvents, mqttUnsubscribe := watcher.Subscribe()
		defer mqttUnsubscribe()
		go bridge.Follow(mqttEvents)
	}

	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("State watcher stopped", zap.Error(err))
		}
	}()

	return srv.Start(ctx)
}
