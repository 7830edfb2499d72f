package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/muurk/easyremote/internal/config"
	"github.com/muurk/easyremote/internal/logging"
	"github.com/muurk/easyremote/internal/scheduler"
	"github.com/muurk/easyremote/internal/state"
)

// Topic layout under the configured prefix.
const (
	availabilityTopic = "availability"
	statusTopic       = "status"
	commandTopic      = "command"

	payloadOnline  = "online"
	payloadOffline = "offline"

	qos            = 1
	publishTimeout = 5 * time.Second
)

// Command actions accepted on the command topic.
const (
	ActionLaunch     = "launch"
	ActionPowerOff   = "power_off"
	ActionVolumeUp   = "volume_up"
	ActionVolumeDown = "volume_down"
	ActionRefresh    = "refresh"
	ActionButton     = "button"
)

var (
	// ErrUnknownAction means a command payload named an action the bridge does not handle.
	ErrUnknownAction = errors.New("unknown action")

	// ErrMissingShow means a launch command had no show.
	ErrMissingShow = errors.New("launch command needs a show")
)

// Submitter queues input events. *scheduler.Scheduler implements it.
type Submitter interface {
	Submit(e scheduler.Event) bool
}

// StateSource supplies the device states to publish. *state.Tracker
// implements it.
type StateSource interface {
	Snapshot() []state.DeviceState
}

// Command is the JSON payload of <prefix>/command/<device>.
type Command struct {
	Action string `json:"action"`
	Show   string `json:"show,omitempty"`
	Button int    `json:"button,omitempty"`
}

// Bridge publishes device status to an MQTT broker and turns command
// messages into scheduler events.
type Bridge struct {
	client paho.Client
	prefix string
	sub    Submitter
}

// NewBridge creates a bridge for the configured broker. It does not connect.
func NewBridge(cfg config.MQTT, sub Submitter) *Bridge {
	prefix := strings.TrimSuffix(cfg.TopicPrefix, "/")

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.SetWill(prefix+"/"+availabilityTopic, payloadOffline, qos, true)

	b := &Bridge{prefix: prefix, sub: sub}
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logging.Warn("MQTT connection lost", zap.Error(err))
	})
	opts.SetOnConnectHandler(func(c paho.Client) {
		logging.Info("MQTT connected",
			zap.String("broker", cfg.Broker),
			zap.Int("port", cfg.Port),
			zap.Bool("authenticated", cfg.Username != ""))
		if err := b.onConnect(c); err != nil {
			logging.Error("MQTT setup failed", zap.Error(err))
		}
	})
	b.client = paho.NewClient(opts)
	return b
}

// newBridgeWithClient wraps an already connected client. The caller runs
// onConnect itself.
func newBridgeWithClient(client paho.Client, prefix string, sub Submitter) *Bridge {
	return &Bridge{client: client, prefix: strings.TrimSuffix(prefix, "/"), sub: sub}
}

// Connect dials the broker. Subscriptions are (re)made on every connect.
func (b *Bridge) Connect(ctx context.Context) error {
	token := b.client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return nil
}

// onConnect subscribes to the command topic and announces availability.
func (b *Bridge) onConnect(c paho.Client) error {
	topic := b.prefix + "/" + commandTopic + "/+"
	if err := wait(c.Subscribe(topic, qos, b.handleMessage)); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	logging.Debug("Subscribed to MQTT command topic", zap.String("topic", topic))

	if err := wait(c.Publish(b.prefix+"/"+availabilityTopic, qos, true, payloadOnline)); err != nil {
		return fmt.Errorf("failed to publish availability: %w", err)
	}
	return nil
}

// Disconnect marks the bridge offline and closes the connection.
func (b *Bridge) Disconnect() {
	if b.client.IsConnected() {
		_ = wait(b.client.Publish(b.prefix+"/"+availabilityTopic, qos, true, payloadOffline))
	}
	b.client.Disconnect(250)
}

func (b *Bridge) handleMessage(_ paho.Client, msg paho.Message) {
	device, ok := b.deviceFromTopic(msg.Topic())
	if !ok {
		logging.Warn("Invalid MQTT command topic", zap.String("topic", msg.Topic()))
		return
	}
	e, err := ParseCommand(device, msg.Payload())
	if err != nil {
		logging.Warn("Rejected MQTT command", zap.String("device", device), zap.Error(err))
		return
	}
	if !b.sub.Submit(e) {
		logging.Warn("Dropped MQTT command", zap.Stringer("event", e))
	}
}

func (b *Bridge) deviceFromTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, b.prefix+"/"+commandTopic+"/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}

// ParseCommand turns a command payload for device into a scheduler event.
func ParseCommand(device string, payload []byte) (scheduler.Event, error) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return scheduler.Event{}, fmt.Errorf("invalid command payload: %w", err)
	}
	switch cmd.Action {
	case ActionLaunch:
		if cmd.Show == "" {
			return scheduler.Event{}, ErrMissingShow
		}
		return scheduler.LaunchShow(device, cmd.Show), nil
	case ActionPowerOff:
		return scheduler.PowerOffDevice(device), nil
	case ActionVolumeUp:
		return scheduler.ChangeVolume(device, true), nil
	case ActionVolumeDown:
		return scheduler.ChangeVolume(device, false), nil
	case ActionRefresh:
		return scheduler.Refresh(), nil
	case ActionButton:
		return scheduler.ButtonPress(cmd.Button), nil
	}
	return scheduler.Event{}, fmt.Errorf("%w %q", ErrUnknownAction, cmd.Action)
}

// PublishStatus publishes one device state, retained.
func (b *Bridge) PublishStatus(s state.DeviceState) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	topic := b.prefix + "/" + statusTopic + "/" + s.Name
	if err := wait(b.client.Publish(topic, qos, true, payload)); err != nil {
		return fmt.Errorf("failed to publish status: %w", err)
	}
	return nil
}

// PublishAll publishes every device state.
func (b *Bridge) PublishAll(src StateSource) error {
	var errs []error
	for _, s := range src.Snapshot() {
		if err := b.PublishStatus(s); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Run publishes every device state every interval until ctx is done.
func (b *Bridge) Run(ctx context.Context, src StateSource, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := b.PublishAll(src); err != nil {
			logging.Debug("MQTT status publish failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func wait(t paho.Token) error {
	if !t.WaitTimeout(publishTimeout) {
		return errors.New("timed out waiting for broker")
	}
	return t.Error()
}
