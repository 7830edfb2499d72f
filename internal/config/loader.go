package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	appName    = "easyremote"
	configFile = "config.yaml"

	// DefaultPort is the External Control Protocol port streaming devices listen on.
	DefaultPort = 8060

	// UsernameEnvVar and PasswordEnvVar carry the MQTT credentials.
	UsernameEnvVar = "MQTT_USERNAME"
	PasswordEnvVar = "MQTT_PASSWORD"
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// GetConfigDir returns the OS-appropriate configuration directory for the application.
//   - Linux: $XDG_CONFIG_HOME/easyremote or $HOME/.config/easyremote
//   - macOS: $HOME/.config/easyremote
//   - Windows: %LOCALAPPDATA%\easyremote
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Default returns the built-in configuration: two devices, three shows,
// the keypad layout and the daily schedule.
func Default() *Config {
	show1, show2, show3 := 0, 1, 2
	netflixMoves, paramountMoves := 5, 6

	cfg := &Config{
		Version: 1,
		Port:    DefaultPort,
		Devices: []Device{
			{Name: "primary", Address: "192.168.86.38", Label: "living room"},
			{Name: "secondary", Address: "192.168.86.42", Label: "bedroom"},
		},
		Shows: []Show{
			{Name: "Good Witch", App: 12, Channel: "Netflix", Color: "#FF0000", Button: &show1},
			{Name: "Star Trek: Picard", App: 31440, Channel: "Paramount+", Color: "#00FFFF", Button: &show2},
			{Name: "Hallmark Movies & Mysteries", App: 298229, Channel: "FrndlyTV", Color: "#008000", Button: &show3, ListPosition: 4},
		},
		Apps: map[int]*AppTuning{
			12:    {SearchMoves: &netflixMoves},
			31440: {SearchMoves: &paramountMoves},
		},
		Buttons: map[int]*Button{
			3: {Action: ActionPowerOff},
			5: {Action: ActionVolumeUp},
			6: {Action: ActionVolumeDown},
		},
		Schedule: []Schedule{
			{Device: "primary", Start: &TimeOfDay{6, 29}, Stop: &TimeOfDay{21, 0}, Show: "Good Witch", Reboot: true},
			{Device: "secondary", Start: &TimeOfDay{19, 29}, Stop: &TimeOfDay{22, 0}, Show: "Good Witch", Reboot: true, RebootLead: Duration(10 * time.Minute)},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every zero-valued setting with its default.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	for i := range c.Devices {
		if c.Devices[i].Port == 0 {
			c.Devices[i].Port = c.Port
		}
	}
	for i := range c.Schedule {
		if c.Schedule[i].Reboot && c.Schedule[i].RebootLead == 0 {
			c.Schedule[i].RebootLead = Duration(20 * time.Minute)
		}
	}
	if c.Intervals.Tick == 0 {
		c.Intervals.Tick = Duration(50 * time.Millisecond)
	}
	if c.Intervals.Refresh == 0 {
		c.Intervals.Refresh = Duration(time.Hour)
	}
	if c.Intervals.Interact == 0 {
		c.Intervals.Interact = Duration(20 * time.Minute)
	}
	if c.Intervals.FireWindow == 0 {
		c.Intervals.FireWindow = Duration(time.Hour)
	}
	if c.Transport.Timeout == 0 {
		c.Transport.Timeout = Duration(10 * time.Second)
	}
	if c.Transport.MaxAttempts == 0 {
		c.Transport.MaxAttempts = 3
	}
	if c.Transport.RetryDelay == 0 {
		c.Transport.RetryDelay = Duration(2 * time.Second)
	}
	if c.Transport.GateDelay == 0 {
		c.Transport.GateDelay = Duration(2 * time.Second)
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = appName
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = appName
	}
}

// Validate checks cross references and value ranges.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version: %d (expected 1)", c.Version)
	}
	if len(c.Devices) == 0 {
		return errors.New("at least one device is required")
	}

	devices := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		if d.Name == "" {
			return fmt.Errorf("device %d: name is required", i)
		}
		if d.Address == "" {
			return fmt.Errorf("device %q: address is required", d.Name)
		}
		if devices[d.Name] {
			return fmt.Errorf("device %q: duplicate name", d.Name)
		}
		devices[d.Name] = true
	}

	shows := make(map[string]bool, len(c.Shows))
	buttons := make(map[int]string)
	for _, s := range c.Shows {
		if s.Name == "" {
			return errors.New("show name is required")
		}
		if shows[s.Name] {
			return fmt.Errorf("show %q: duplicate name", s.Name)
		}
		shows[s.Name] = true
		if s.App <= 0 {
			return fmt.Errorf("show %q: app id must be positive", s.Name)
		}
		if _, err := ParseColor(s.Color); err != nil {
			return fmt.Errorf("show %q: %w", s.Name, err)
		}
		if s.Button != nil {
			if other, ok := buttons[*s.Button]; ok {
				return fmt.Errorf("button %d bound to both %q and %q", *s.Button, other, s.Name)
			}
			buttons[*s.Button] = s.Name
		}
	}

	for n, b := range c.Buttons {
		if b == nil {
			continue
		}
		if other, ok := buttons[n]; ok {
			return fmt.Errorf("button %d bound to both %q and %s", n, other, b.Action)
		}
		switch b.Action {
		case ActionLaunch:
			if !shows[b.Show] {
				return fmt.Errorf("button %d: unknown show %q", n, b.Show)
			}
		case ActionPowerOff, ActionVolumeUp, ActionVolumeDown, ActionRefresh:
		default:
			return fmt.Errorf("button %d: unknown action %q", n, b.Action)
		}
		if b.Device != "" && !devices[b.Device] {
			return fmt.Errorf("button %d: unknown device %q", n, b.Device)
		}
	}

	for _, s := range c.Schedule {
		if !devices[s.Device] {
			return fmt.Errorf("schedule: unknown device %q", s.Device)
		}
		if s.Start != nil && !shows[s.Show] {
			return fmt.Errorf("schedule for %q: unknown show %q", s.Device, s.Show)
		}
	}

	if c.Transport.MaxAttempts < 1 {
		return fmt.Errorf("transport.max_attempts must be at least 1, got %d", c.Transport.MaxAttempts)
	}

	return nil
}

// Load reads the configuration from path. An empty path means the default
// location; a missing file at the default location yields Default().
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadCredentials fills the MQTT credentials from the environment, loading
// envFile first when it exists. Values already in the environment win.
func (c *Config) LoadCredentials(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	c.MQTT.Username = os.Getenv(UsernameEnvVar)
	c.MQTT.Password = os.Getenv(PasswordEnvVar)
	return nil
}

// Save writes the configuration to path atomically (temp file and rename).
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# easyremote configuration
# MQTT credentials are read from MQTT_USERNAME / MQTT_PASSWORD (or a .env
# file) and are never stored here.

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
