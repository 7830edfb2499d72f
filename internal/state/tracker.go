package state

import (
	"context"
	"sync"
	"time"

	"github.com/muurk/easyremote/internal/catalog"
	"github.com/muurk/easyremote/internal/config"
	"github.com/muurk/easyremote/internal/ecp"
	"github.com/muurk/easyremote/internal/logging"
)

// Sender issues one command to a device. *ecp.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, address string, cmd ecp.Command) (string, error)
}

// DeviceState is the cached view of one device.
type DeviceState struct {
	Name      string        `json:"name"`
	Address   string        `json:"address"`
	Reachable bool          `json:"reachable"`
	ActiveApp catalog.AppID `json:"active_app"`
	Show      string        `json:"show,omitempty"`
	Player    string        `json:"player,omitempty"`
	Updated   time.Time     `json:"updated"`
}

// AppName returns the display name of the active app.
func (s DeviceState) AppName() string {
	return s.ActiveApp.String()
}

// Tracker holds the last known state of every configured device.
type Tracker struct {
	mu      sync.RWMutex
	devices map[string]config.Device
	order   []string
	states  map[string]DeviceState

	sender  Sender
	prober  ecp.Prober
	catalog *catalog.Catalog
	now     func() time.Time
}

// NewTracker creates a tracker for devices. Every device starts unreachable
// with no app until the first Refresh.
func NewTracker(devices []config.Device, sender Sender, prober ecp.Prober, cat *catalog.Catalog) *Tracker {
	t := &Tracker{
		devices: make(map[string]config.Device, len(devices)),
		states:  make(map[string]DeviceState, len(devices)),
		sender:  sender,
		prober:  prober,
		catalog: cat,
		now:     time.Now,
	}
	for _, d := range devices {
		t.devices[d.Name] = d
		t.order = append(t.order, d.Name)
		t.states[d.Name] = DeviceState{Name: d.Name, Address: d.Addr()}
	}
	return t
}

// SetNow replaces the clock used for Updated timestamps.
func (t *Tracker) SetNow(now func() time.Time) {
	t.now = now
}

// Device returns the configuration of a tracked device.
func (t *Tracker) Device(name string) (config.Device, bool) {
	d, ok := t.devices[name]
	return d, ok
}

// Names returns the tracked device names in configuration order.
func (t *Tracker) Names() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Refresh probes a device and re-reads its active app. A device that answers
// the TCP probe but not the media-player query counts as unreachable. When
// the active app changed since the last look, the show is re-derived from the
// catalog (first show owned by the app) or cleared.
func (t *Tracker) Refresh(ctx context.Context, name string) DeviceState {
	dev, ok := t.devices[name]
	if !ok {
		return DeviceState{Name: name}
	}
	prev := t.Get(name)

	next := DeviceState{
		Name:    name,
		Address: dev.Addr(),
		Updated: t.now(),
	}

	if t.prober.Reachable(ctx, dev.Addr()) {
		media, err := t.sender.Send(ctx, dev.Addr(), ecp.QueryMediaPlayer)
		if err == nil {
			next.Reachable = true
			next.Player = ecp.PlayerState(media)
		}
	}

	if next.Reachable {
		body, err := t.sender.Send(ctx, dev.Addr(), ecp.QueryActiveApp)
		if err == nil {
			if id, ok := ecp.ParseActiveApp(body); ok {
				next.ActiveApp = catalog.AppID(id)
			}
		}
	}

	switch {
	case next.ActiveApp == prev.ActiveApp:
		next.Show = prev.Show
	case next.ActiveApp != catalog.AppUnknown && t.catalog != nil:
		if show, ok := t.catalog.FirstShowForApp(next.ActiveApp); ok {
			next.Show = show.Name
		}
	}
	if next.ActiveApp == catalog.AppUnknown {
		next.Show = ""
	}

	t.mu.Lock()
	t.states[name] = next
	t.mu.Unlock()

	logging.LogDeviceState(name, next.Reachable, int(next.ActiveApp), next.Show)
	return next
}

// RefreshAll refreshes every device in configuration order.
func (t *Tracker) RefreshAll(ctx context.Context) []DeviceState {
	out := make([]DeviceState, 0, len(t.order))
	for _, name := range t.order {
		if ctx.Err() != nil {
			break
		}
		out = append(out, t.Refresh(ctx, name))
	}
	return out
}

// Get returns the cached state without touching the device. Unknown names
// return a zero state carrying only the name.
func (t *Tracker) Get(name string) DeviceState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.states[name]; ok {
		return s
	}
	return DeviceState{Name: name}
}

// Set records the app and show the sequencer just drove a device to.
// Reachability is left as is.
func (t *Tracker) Set(name string, app catalog.AppID, show string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.states[name]
	if !ok {
		return
	}
	s.ActiveApp = app
	s.Show = show
	s.Updated = t.now()
	t.states[name] = s
}

// MarkReachable overrides the cached reachability.
func (t *Tracker) MarkReachable(name string, reachable bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.states[name]; ok {
		s.Reachable = reachable
		t.states[name] = s
	}
}

// Snapshot returns every device state, in configuration order.
func (t *Tracker) Snapshot() []DeviceState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]DeviceState, 0, len(t.states))
	for _, name := range t.order {
		out = append(out, t.states[name])
	}
	return out
}
