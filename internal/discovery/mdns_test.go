package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func entry(instance, host, ip string, txt ...string) *zeroconf.ServiceEntry {
	e := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: instance, Service: ServiceType, Domain: ServiceDomain},
		HostName:      host,
		Port:          7000,
		Text:          txt,
	}
	if ip != "" {
		e.AddrIPv4 = []net.IP{net.ParseIP(ip)}
	}
	return e
}

type fakeProber map[string]bool

func (p fakeProber) Reachable(ctx context.Context, address string) bool {
	return p[address]
}

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name       string
		entry      *zeroconf.ServiceEntry
		wantOK     bool
		wantIP     string
		wantModel  string
		wantSerial string
	}{
		{
			name:       "vendor in instance name",
			entry:      entry("Roku Ultra", "living-room.local.", "192.168.86.38", "model=4800X", "serialNumber=X00123"),
			wantOK:     true,
			wantIP:     "192.168.86.38",
			wantModel:  "4800X",
			wantSerial: "X00123",
		},
		{
			name:       "vendor in manufacturer record",
			entry:      entry("Bedroom TV", "tv.local.", "192.168.86.42", "manufacturer=Roku", "deviceid=AA:BB:CC"),
			wantOK:     true,
			wantIP:     "192.168.86.42",
			wantSerial: "AA:BB:CC",
		},
		{
			name:  "other vendor",
			entry: entry("Apple TV", "apple-tv.local.", "192.168.86.50", "model=AppleTV6,2"),
		},
		{
			name:  "no address",
			entry: entry("Roku Express", "roku.local.", ""),
		},
		{
			name:  "nil entry",
			entry: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := scanner.parseServiceEntry(tt.entry)
			if ok != tt.wantOK {
				t.Fatalf("parseServiceEntry() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.IP != tt.wantIP || got.Model != tt.wantModel || got.Serial != tt.wantSerial {
				t.Errorf("parseServiceEntry() = %+v", got)
			}
			if got.Port != 8060 {
				t.Errorf("Port = %d, want the control port 8060", got.Port)
			}
		})
	}
}

func TestScanner_parseServiceEntry_IPv6(t *testing.T) {
	scanner := NewScanner()
	e := entry("Roku", "roku.local.", "")
	e.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}

	got, ok := scanner.parseServiceEntry(e)
	if !ok || got.IP != "fe80::1" {
		t.Errorf("parseServiceEntry() = %+v, %v", got, ok)
	}
}

func TestScanner_EmptyVendorAcceptsAll(t *testing.T) {
	scanner := NewScanner()
	scanner.Vendor = ""
	if _, ok := scanner.parseServiceEntry(entry("Apple TV", "apple-tv.local.", "10.0.0.5")); !ok {
		t.Error("parseServiceEntry() rejected an entry with no vendor filter")
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
	if scanner.Service != ServiceType || scanner.Vendor != DefaultVendor || scanner.Prober == nil {
		t.Errorf("NewScanner() = %+v", scanner)
	}
}

func TestScanner_Scan(t *testing.T) {
	scanner := NewScanner()
	scanner.Timeout = 100 * time.Millisecond
	scanner.Prober = fakeProber{"192.168.86.38:8060": true, "192.168.86.42:8060": true}

	var browsed string
	scanner.SetBrowser(func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
		browsed = service + " " + domain
		go func() {
			for _, e := range []*zeroconf.ServiceEntry{
				entry("Roku Ultra", "a.local.", "192.168.86.38"),
				entry("Roku Ultra", "a.local.", "192.168.86.38"),
				entry("Apple TV", "b.local.", "192.168.86.50"),
				entry("Roku TV", "c.local.", "192.168.86.77"),
				entry("Roku Express", "d.local.", "192.168.86.42"),
			} {
				select {
				case entries <- e:
				case <-ctx.Done():
					return
				}
			}
		}()
		return nil
	})

	devices, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if browsed != "_airplay._tcp local." {
		t.Errorf("browsed %q", browsed)
	}
	if len(devices) != 2 {
		t.Fatalf("Scan() = %v, want 2 devices", devices)
	}
	if devices[0].IP != "192.168.86.38" || devices[1].IP != "192.168.86.42" {
		t.Errorf("Scan() order = %s, %s", devices[0].IP, devices[1].IP)
	}
}

func TestScanner_ScanBrowseError(t *testing.T) {
	scanner := NewScanner()
	scanner.SetBrowser(func(context.Context, string, string, chan<- *zeroconf.ServiceEntry) error {
		return errors.New("no multicast interface")
	})

	if _, err := scanner.Scan(context.Background()); err == nil {
		t.Error("Scan() error = nil, want browse failure")
	}
}

func TestScanner_ScanCancelled(t *testing.T) {
	scanner := NewScanner()
	scanner.SetBrowser(func(context.Context, string, string, chan<- *zeroconf.ServiceEntry) error {
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	devices, err := scanner.Scan(ctx)
	if err != nil || len(devices) != 0 {
		t.Errorf("Scan() = %v, %v", devices, err)
	}
	if time.Since(start) > time.Second {
		t.Error("Scan() ignored the cancelled context")
	}
}
