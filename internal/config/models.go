package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the entire controller configuration file.
// It is loaded once at startup and treated as immutable afterwards.
type Config struct {
	Version     int                `yaml:"version"`
	Port        int                `yaml:"port"`
	Devices     []Device           `yaml:"devices"`
	Shows       []Show             `yaml:"shows"`
	Apps        map[int]*AppTuning `yaml:"apps,omitempty"` // Keyed by app id
	Buttons     map[int]*Button    `yaml:"buttons,omitempty"`
	Schedule    []Schedule         `yaml:"schedule,omitempty"`
	LiveMarkers []string           `yaml:"live_markers,omitempty"`
	Reboot      []string           `yaml:"reboot_recipe,omitempty"`
	Intervals   Intervals          `yaml:"intervals"`
	Transport   Transport          `yaml:"transport"`
	Server      Server             `yaml:"server"`
	MQTT        MQTT               `yaml:"mqtt"`
}

// Device is one streaming device on the local network.
// The first configured device is the primary device driven by the keypad.
type Device struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port,omitempty"`  // Defaults to Config.Port
	Label   string `yaml:"label,omitempty"` // Shown on the "starting" screen
}

// Addr returns the host:port used to reach the device.
func (d Device) Addr() string {
	return net.JoinHostPort(d.Address, strconv.Itoa(d.Port))
}

// DisplayLabel returns the label, falling back to the device name.
func (d Device) DisplayLabel() string {
	if d.Label != "" {
		return d.Label
	}
	return d.Name
}

// Show is one catalog entry: a show reachable inside a streaming app.
type Show struct {
	Name         string   `yaml:"name"`
	App          int      `yaml:"app"`
	Channel      string   `yaml:"channel,omitempty"`       // Display name of the app
	Color        string   `yaml:"color"`                   // "#RRGGBB"
	Button       *int     `yaml:"button,omitempty"`        // Keypad button that launches it on the primary device
	ListPosition int      `yaml:"list_position,omitempty"` // Rows to page through in a guide or saved list
	Recipe       []string `yaml:"recipe,omitempty"`        // Overrides the app's navigation recipe
}

// AppTuning overrides per-app navigation constants.
type AppTuning struct {
	SearchMoves   *int     `yaml:"search_moves,omitempty"`
	WarmUp        Duration `yaml:"warm_up,omitempty"`
	ConfirmPolls  int      `yaml:"confirm_polls,omitempty"`
	MaxRelaunches *int     `yaml:"max_relaunches,omitempty"`
	ConfirmAbsent bool     `yaml:"confirm_absent,omitempty"`
}

// Button actions.
const (
	ActionLaunch     = "launch"
	ActionPowerOff   = "power_off"
	ActionVolumeUp   = "volume_up"
	ActionVolumeDown = "volume_down"
	ActionRefresh    = "refresh"
)

// Button maps a keypad button to an action.
type Button struct {
	Action string `yaml:"action"`
	Show   string `yaml:"show,omitempty"`
	Device string `yaml:"device,omitempty"` // Defaults to the primary device
}

// Schedule is the daily plan for one device.
type Schedule struct {
	Device     string     `yaml:"device"`
	Start      *TimeOfDay `yaml:"start,omitempty"`
	Stop       *TimeOfDay `yaml:"stop,omitempty"`
	Show       string     `yaml:"show,omitempty"`
	Reboot     bool       `yaml:"reboot,omitempty"`
	RebootLead Duration   `yaml:"reboot_lead,omitempty"` // How long before Start to reboot
}

// Intervals are the scheduler loop timings.
type Intervals struct {
	Tick       Duration `yaml:"tick"`
	Refresh    Duration `yaml:"refresh"`
	Interact   Duration `yaml:"interact"`
	FireWindow Duration `yaml:"fire_window"`
}

// Transport configures the device HTTP client.
type Transport struct {
	Timeout     Duration `yaml:"timeout"`
	MaxAttempts int      `yaml:"max_attempts"`
	RetryDelay  Duration `yaml:"retry_delay"`
	GateDelay   Duration `yaml:"gate_delay"`
}

// Server configures the HTTP status surface. Empty Listen disables it.
// The surface is served over TLS when both CertFile and KeyFile are set.
type Server struct {
	Listen   string `yaml:"listen,omitempty"`
	CertFile string `yaml:"cert_file,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`
}

// TLS reports whether the status surface is served over TLS.
func (s Server) TLS() bool {
	return s.CertFile != "" && s.KeyFile != ""
}

// MQTT configures the broker bridge. Empty Broker disables it.
// Credentials are never read from or written to the YAML file.
type MQTT struct {
	Broker      string `yaml:"broker,omitempty"`
	Port        int    `yaml:"port,omitempty"`
	ClientID    string `yaml:"client_id,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
	Username    string `yaml:"-"`
	Password    string `yaml:"-"`
}

// Enabled reports whether a broker is configured.
func (m MQTT) Enabled() bool {
	return m.Broker != ""
}

// Duration is a time.Duration that reads and writes as "15s", "20m".
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q at line %d: %w", s, value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// TimeOfDay is a wall-clock "HH:MM".
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" in 24-hour form.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q (expected HH:MM)", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// On returns the instant of t on the calendar day of day, in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

// Add returns t shifted by d, wrapping around midnight.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	minutes := (t.Hour*60 + t.Minute + int(d/time.Minute)) % (24 * 60)
	if minutes < 0 {
		minutes += 24 * 60
	}
	return TimeOfDay{Hour: minutes / 60, Minute: minutes % 60}
}

// String returns "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *TimeOfDay) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*t = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (t TimeOfDay) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// ParseColor parses "#RRGGBB" (or "0xRRGGBB") into a 24-bit value.
func ParseColor(s string) (uint32, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "#"), "0x")
	if len(trimmed) != 6 {
		return 0, fmt.Errorf("invalid color %q (expected #RRGGBB)", s)
	}
	v, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return uint32(v), nil
}

// Primary returns the primary device.
func (c *Config) Primary() Device {
	if len(c.Devices) == 0 {
		return Device{}
	}
	return c.Devices[0]
}

// Device looks up a device by name.
func (c *Config) Device(name string) (Device, bool) {
	for _, d := range c.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return Device{}, false
}

// Show looks up a show by name.
func (c *Config) Show(name string) (Show, bool) {
	for _, s := range c.Shows {
		if s.Name == name {
			return s, true
		}
	}
	return Show{}, false
}

// ButtonMap returns every keypad binding, including the ones declared on shows.
func (c *Config) ButtonMap() map[int]Button {
	out := make(map[int]Button, len(c.Buttons)+len(c.Shows))
	for n, b := range c.Buttons {
		if b != nil {
			out[n] = *b
		}
	}
	for _, s := range c.Shows {
		if s.Button != nil {
			out[*s.Button] = Button{Action: ActionLaunch, Show: s.Name}
		}
	}
	return out
}
