// Package config provides the controller configuration for easyremote.
//
// The configuration is a YAML file listing the streaming devices, the show
// catalog, per-app navigation tuning, keypad bindings, the daily schedule and
// loop intervals. It is loaded once at startup and never mutated afterwards.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/easyremote/config.yaml or $HOME/.config/easyremote/config.yaml
//   - macOS: $HOME/.config/easyremote/config.yaml
//   - Windows: %LOCALAPPDATA%\easyremote\config.yaml
//
// When no file exists at the default location the built-in Default() is used.
//
// # Security
//
// MQTT credentials are NEVER stored in the YAML file. LoadCredentials reads
// them from MQTT_USERNAME and MQTT_PASSWORD, optionally loading a .env file
// first.
//
// # Usage Example
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.LoadCredentials(".env"); err != nil {
//	    return err
//	}
//	primary := cfg.Primary()
//	fmt.Println(primary.Addr()) // 192.168.86.38:8060
package config
