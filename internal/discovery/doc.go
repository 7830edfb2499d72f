// Package discovery finds streaming devices on the local network over mDNS.
//
// Devices that support screen mirroring advertise the "_airplay._tcp"
// service. The scanner browses it, keeps entries whose instance name,
// hostname or manufacturer/model TXT records mention the vendor, and then
// confirms each candidate answers on the External Control Protocol port
// (8060) before reporting it.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	scanner.Timeout = 5 * time.Second
//	devices, err := scanner.Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	for i, d := range devices {
//	    fmt.Println(d)
//	    cfg.Devices = append(cfg.Devices, d.ToConfig(fmt.Sprintf("device%d", i+1)))
//	}
//
// # Network Requirements
//
//   - Requires multicast support on the network interface
//   - Devices must be on the same local network segment
//   - Firewall must allow mDNS (UDP port 5353)
package discovery
