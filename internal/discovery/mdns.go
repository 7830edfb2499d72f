package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/easyremote/internal/config"
	"github.com/muurk/easyremote/internal/ecp"
	"github.com/muurk/easyremote/internal/logging"
)

const (
	// ServiceType is the mDNS service streaming devices advertise. Devices
	// with screen mirroring publish it even though control happens over ECP.
	ServiceType = "_airplay._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 10 * time.Second

	// DefaultVendor is matched against instance names, hostnames and the
	// manufacturer/model TXT records.
	DefaultVendor = "roku"
)

// BrowseFunc browses service in domain, sending entries until ctx is done.
// It must return immediately; entries arrive asynchronously.
type BrowseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// Scanner handles mDNS device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration

	// Service is the mDNS service type to browse
	Service string

	// Vendor filters entries by case-insensitive substring. Empty accepts all.
	Vendor string

	// Prober, when set, keeps only devices answering on the control port.
	Prober ecp.Prober

	browse BrowseFunc
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
		Service: ServiceType,
		Vendor:  DefaultVendor,
		Prober:  ecp.NewTCPProber(),
		browse:  zeroconfBrowse,
	}
}

// SetBrowser replaces the mDNS browser.
func (s *Scanner) SetBrowser(b BrowseFunc) {
	s.browse = b
}

func zeroconfBrowse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}
	return resolver.Browse(ctx, service, domain, entries)
}

// Scan discovers devices until the timeout elapses or ctx is done. Devices
// are returned in discovery order, one per address.
func (s *Scanner) Scan(ctx context.Context) ([]Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var devices []Device
	collected := make(chan struct{})

	go func() {
		defer close(collected)
		seen := make(map[string]bool)
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				d, ok := s.parseServiceEntry(entry)
				if !ok || seen[d.IP] {
					continue
				}
				if s.Prober != nil && !s.Prober.Reachable(ctx, d.Addr()) {
					logging.Debug("Ignoring device without control port", zap.String("address", d.Addr()))
					continue
				}
				seen[d.IP] = true
				devices = append(devices, d)
				logging.Debug("Discovered device", zap.Stringer("device", d))
			}
		}
	}()

	logging.Info("Scanning for devices",
		zap.String("service", s.Service),
		zap.Duration("timeout", s.Timeout))

	if err := s.browse(ctx, s.Service, ServiceDomain, entries); err != nil {
		cancel()
		<-collected
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-collected
	return devices, nil
}

// parseServiceEntry converts a zeroconf service entry to a Device.
// It reports false when the entry has no address or fails the vendor filter.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) (Device, bool) {
	if entry == nil {
		return Device{}, false
	}

	metadata := make(map[string]string, len(entry.Text))
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	if !s.matchesVendor(entry, metadata) {
		return Device{}, false
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return Device{}, false
	}

	serial := metadata["serialNumber"]
	if serial == "" {
		serial = metadata["deviceid"]
	}

	return Device{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         config.DefaultPort,
		Model:        metadata["model"],
		Serial:       serial,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}, true
}

func (s *Scanner) matchesVendor(entry *zeroconf.ServiceEntry, metadata map[string]string) bool {
	if s.Vendor == "" {
		return true
	}
	vendor := strings.ToLower(s.Vendor)
	for _, v := range []string{entry.Instance, entry.HostName, metadata["manufacturer"], metadata["model"]} {
		if strings.Contains(strings.ToLower(v), vendor) {
			return true
		}
	}
	return false
}
