package psu

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/psufhem/internal/fhem"
	"github.com/muurk/psufhem/internal/logging"
	"github.com/muurk/psufhem/internal/settings"
)

// PluginName identifies this adapter to a host registrar.
const PluginName = "fhem"

var errNoLoader = errors.New("no settings loader configured")

// Controller is the power-control contract offered to a host.
type Controller interface {
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	State(ctx context.Context) bool
}

// Registrar is implemented by hosts that accept power-control plugins.
type Registrar interface {
	Register(name string, c Controller) error
}

// Loader produces a fresh Configuration, e.g. by re-reading the config file.
type Loader func() (settings.Configuration, error)

// Plugin adapts the FHEM client to the Controller contract. Each host owns
// its own instance.
type Plugin struct {
	holder *settings.Holder
	client *fhem.Client
	load   Loader
	logger *zap.Logger
}

// New creates a plugin. The client must read its configuration from holder.
func New(holder *settings.Holder, client *fhem.Client, load Loader) *Plugin {
	return &Plugin{
		holder: holder,
		client: client,
		load:   load,
		logger: logging.Named("psu"),
	}
}

// WithLogger replaces the plugin logger and returns the plugin.
func (p *Plugin) WithLogger(l *zap.Logger) *Plugin {
	if l != nil {
		p.logger = l
	}
	return p
}

// Settings returns the configuration currently in effect.
func (p *Plugin) Settings() settings.Configuration {
	return p.holder.Current()
}

// Enabled reports whether a FHEM address is configured.
func (p *Plugin) Enabled() bool {
	return p.holder.Current().Enabled()
}

// OnStartup primes the csrf token and registers with the host, if it can.
func (p *Plugin) OnStartup(ctx context.Context, reg Registrar) {
	p.primeToken(ctx)

	if reg == nil {
		p.logger.Warn("Host does not support plugin registration")
		return
	}
	if err := reg.Register(PluginName, p); err != nil {
		p.logger.Error("Plugin registration failed", zap.Error(err))
		return
	}
	p.logger.Info("Registered power control plugin", zap.String("name", PluginName))
}

// ReloadSettings loads the configuration, publishes it in one swap and
// primes the token against the (possibly new) server. A failed load keeps
// the previous configuration.
func (p *Plugin) ReloadSettings(ctx context.Context) error {
	if p.load == nil {
		return errNoLoader
	}

	cfg, err := p.load()
	if err != nil {
		p.logger.Error("Failed to reload settings", zap.Error(err))
		return fmt.Errorf("failed to reload settings: %w", err)
	}

	p.logger.Debug("Settings loaded",
		zap.String(settings.KeyAddress, cfg.Address),
		zap.String(settings.KeyDeviceName, cfg.DeviceName),
		zap.Bool(settings.KeyVerifyTLS, cfg.VerifyTLS),
		zap.String(settings.KeyOnValue, cfg.OnValue),
		zap.String(settings.KeyOffValue, cfg.OffValue),
		zap.String(settings.KeyReadingName, cfg.ReadingName),
	)

	prev := p.holder.Replace(cfg)
	if prev.Address != cfg.Address {
		// the old server's token means nothing to the new one
		p.client.ResetToken()
	}

	p.primeToken(ctx)
	return nil
}

// TurnOn implements Controller.
func (p *Plugin) TurnOn(ctx context.Context) error {
	return p.client.TurnOn(ctx)
}

// TurnOff implements Controller.
func (p *Plugin) TurnOff(ctx context.Context) error {
	return p.client.TurnOff(ctx)
}

// State implements Controller. Failures are logged and reported as off.
func (p *Plugin) State(ctx context.Context) bool {
	on, err := p.client.State(ctx)
	if err != nil {
		p.logger.Debug("State query failed, reporting off", zap.String("reason", fhem.ShortMessage(err)))
		return false
	}
	return on
}

func (p *Plugin) primeToken(ctx context.Context) {
	if !p.Enabled() {
		p.logger.Info("FHEM address not configured, power control disabled")
		return
	}
	if err := p.client.LoadToken(ctx); err != nil {
		p.logger.Warn("Failed to load csrf token", zap.String("reason", fhem.ShortMessage(err)))
	}
}
