package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/muurk/easyremote/internal/config"
)

// Device represents a streaming device found on the network
type Device struct {
	// Instance is the advertised service instance name (e.g., "Living Room Roku")
	Instance string

	// Hostname is the mDNS hostname (e.g., "Roku-Ultra.local.")
	Hostname string

	// IP is the device address, IPv4 when one was advertised
	IP string

	// Port is the External Control Protocol port
	Port int

	// Model and Serial come from TXT records when the device publishes them
	Model  string
	Serial string

	// Metadata contains every TXT record
	Metadata map[string]string

	// DiscoveredAt is when the device was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d Device) String() string {
	return fmt.Sprintf("%s (%s) at %s", d.Instance, d.Hostname, d.Addr())
}

// Addr returns the control address, host:port.
func (d Device) Addr() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

// ToConfig returns a configuration entry for the device under name.
func (d Device) ToConfig(name string) config.Device {
	return config.Device{
		Name:    name,
		Address: d.IP,
		Port:    d.Port,
		Label:   d.Instance,
	}
}
