// Package mqtt bridges the PSU state and power commands to an MQTT broker.
//
// State changes are published retained to <prefix>/state as ON or OFF.
// Payloads on <prefix>/set switch the PSU.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/muurk/psufhem/internal/logging"
	"github.com/muurk/psufhem/internal/psu"
	"github.com/muurk/psufhem/internal/settings"
)

const (
	PayloadOn  = "ON"
	PayloadOff = "OFF"

	AvailabilityOnline  = "online"
	AvailabilityOffline = "offline"

	qos            = 1
	connectTimeout = 10 * time.Second
	commandTimeout = 30 * time.Second
)

// Client is the part of paho.Client the bridge uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Unsubscribe(topics ...string) paho.Token
	Disconnect(quiesce uint)
}

// Topics derived from a prefix.
type Topics struct {
	State        string
	Set          string
	Availability string
}

// NewTopics builds the topic set below prefix.
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = settings.DefaultTopicPrefix
	}
	return Topics{
		State:        prefix + "/state",
		Set:          prefix + "/set",
		Availability: prefix + "/availability",
	}
}

// Bridge connects a Controller to MQTT.
type Bridge struct {
	client     Client
	controller psu.Controller
	topics     Topics
	logger     *zap.Logger

	// afterCommand runs after a command from MQTT was dispatched
	afterCommand func()
}

// Connect dials the broker described by cfg and returns a bridge for ctrl.
func Connect(cfg settings.MQTTSettings, ctrl psu.Controller) (*Bridge, error) {
	if cfg.Broker == "" {
		return nil, errors.New("no MQTT broker configured")
	}
	topics := NewTopics(cfg.TopicPrefix)

	opts := paho.NewClientOptions().AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetWill(topics.Availability, AvailabilityOffline, qos, true)

	b := &Bridge{
		controller: ctrl,
		topics:     topics,
		logger:     logging.Named("mqtt"),
	}

	// resubscribe after every reconnect
	opts.SetOnConnectHandler(func(paho.Client) {
		if err := b.Start(); err != nil {
			b.logger.Error("Failed to start MQTT bridge", zap.Error(err))
		}
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		b.logger.Warn("MQTT connection lost", zap.Error(err))
	})

	client := paho.NewClient(opts)
	b.client = client

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, err)
	}

	b.logger.Info("Connected to MQTT broker",
		zap.String("broker", cfg.Broker),
		zap.String("state_topic", topics.State),
	)
	return b, nil
}

// NewBridge wraps an already connected client.
func NewBridge(client Client, prefix string, ctrl psu.Controller) *Bridge {
	return &Bridge{
		client:     client,
		controller: ctrl,
		topics:     NewTopics(prefix),
		logger:     logging.Named("mqtt"),
	}
}

// OnCommand registers fn to run after each command received over MQTT.
func (b *Bridge) OnCommand(fn func()) {
	b.afterCommand = fn
}

// Topics returns the bridge topics.
func (b *Bridge) Topics() Topics {
	return b.topics
}

// Start announces availability and subscribes to the command topic.
func (b *Bridge) Start() error {
	if err := wait(b.client.Publish(b.topics.Availability, qos, true, AvailabilityOnline)); err != nil {
		return fmt.Errorf("failed to publish availability: %w", err)
	}
	if err := wait(b.client.Subscribe(b.topics.Set, qos, b.handleSet)); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", b.topics.Set, err)
	}
	return nil
}

// PublishEvent publishes ev as retained state. Disabled events publish
// nothing, leaving the last known state in place.
func (b *Bridge) PublishEvent(ev psu.Event) error {
	if !ev.Enabled {
		return nil
	}
	payload := PayloadOff
	if ev.On {
		payload = PayloadOn
	}
	if err := wait(b.client.Publish(b.topics.State, qos, true, payload)); err != nil {
		return fmt.Errorf("failed to publish state: %w", err)
	}
	b.logger.Debug("Published state", zap.String("topic", b.topics.State), zap.String("payload", payload))
	return nil
}

// Follow publishes events from ch until it is closed.
func (b *Bridge) Follow(ch <-chan psu.Event) {
	for ev := range ch {
		if err := b.PublishEvent(ev); err != nil {
			b.logger.Error("MQTT publish failed", zap.Error(err))
		}
	}
}

// Close marks the bridge offline and disconnects.
func (b *Bridge) Close() {
	_ = wait(b.client.Publish(b.topics.Availability, qos, true, AvailabilityOffline))
	_ = wait(b.client.Unsubscribe(b.topics.Set))
	b.client.Disconnect(250)
}

func (b *Bridge) handleSet(_ paho.Client, msg paho.Message) {
	payload := string(msg.Payload())
	on, ok := ParseCommand(payload)
	if !ok {
		b.logger.Warn("Ignoring unrecognized MQTT command",
			zap.String("topic", msg.Topic()),
			zap.String("payload", payload),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	if on {
		err = b.controller.TurnOn(ctx)
	} else {
		err = b.controller.TurnOff(ctx)
	}
	if err != nil {
		b.logger.Error("MQTT power command failed", zap.Bool("on", on), zap.Error(err))
		return
	}
	b.logger.Info("Power command from MQTT", zap.Bool("on", on))

	if b.afterCommand != nil {
		b.afterCommand()
	}
}

// ParseCommand maps a command payload to a power state.
func ParseCommand(payload string) (on bool, ok bool) {
	switch strings.TrimSpace(payload) {
	case "ON", "on", "1", "true":
		return true, true
	case "OFF", "off", "0", "false":
		return false, true
	default:
		return false, false
	}
}

func wait(token paho.Token) error {
	if !token.WaitTimeout(connectTimeout) {
		return errors.New("timed out waiting for broker")
	}
	return token.Error()
}
