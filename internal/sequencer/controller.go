package sequencer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/easyremote/internal/catalog"
	"github.com/muurk/easyremote/internal/config"
	"github.com/muurk/easyremote/internal/display"
	"github.com/muurk/easyremote/internal/ecp"
	"github.com/muurk/easyremote/internal/logging"
	"github.com/muurk/easyremote/internal/state"
)

// Operation names used in errors, logs and metrics.
const (
	OpLaunch    = "launch"
	OpPowerOff  = "power_off"
	OpVolume    = "volume"
	OpKeepAlive = "keep_alive"
	OpReboot    = "reboot"
	OpRefresh   = "refresh"
)

// Sequencer states, as logged.
const (
	stateIdle       = "idle"
	stateExiting    = "exiting"
	stateLaunching  = "launching"
	stateNavigating = "navigating"
	stateConfirming = "confirming"
)

// Fixed pauses around power-off and volume changes.
const (
	powerOffSettle = 10 * time.Second
	powerOffQuery  = 5 * time.Second
	volumeHold     = 250 * time.Millisecond
	exitSettle     = time.Second
)

// Observer is told about every finished operation.
type Observer interface {
	ObserveSequence(op, device string, d time.Duration, err error)
}

// Options configure a RemoteController. Zero values take defaults.
type Options struct {
	GateDelay   time.Duration
	LiveMarkers []string
	Clock       Clock
	Observer    Observer
}

// RemoteController drives devices through command sequences. All operations
// share one busy gate, so no two sequences interleave.
type RemoteController struct {
	sender   state.Sender
	tracker  *state.Tracker
	catalog  *catalog.Catalog
	display  display.Presenter
	clock    Clock
	observer Observer

	gate      gate
	gateDelay time.Duration
	markers   []string
	primary   string
}

// New creates a controller. The first tracked device is the primary one:
// launches on it show NowPlaying, launches elsewhere show DeviceStarting.
func New(sender state.Sender, tracker *state.Tracker, cat *catalog.Catalog, presenter display.Presenter, opts Options) *RemoteController {
	c := &RemoteController{
		sender:    sender,
		tracker:   tracker,
		catalog:   cat,
		display:   presenter,
		clock:     opts.Clock,
		observer:  opts.Observer,
		gateDelay: opts.GateDelay,
		markers:   opts.LiveMarkers,
	}
	if c.clock == nil {
		c.clock = SystemClock{}
	}
	if c.gateDelay <= 0 {
		c.gateDelay = DefaultGateDelay
	}
	if len(c.markers) == 0 {
		c.markers = ecp.DefaultLiveMarkers
	}
	if names := tracker.Names(); len(names) > 0 {
		c.primary = names[0]
	}
	return c
}

// Busy reports whether a sequence holds the gate.
func (c *RemoteController) Busy() bool {
	return c.gate.held()
}

// Tracker returns the state tracker the controller reads and writes.
func (c *RemoteController) Tracker() *state.Tracker {
	return c.tracker
}

// Catalog returns the show catalog.
func (c *RemoteController) Catalog() *catalog.Catalog {
	return c.catalog
}

// Launch drives device to show. If the show's app is already running only
// its shortcut and the show recipe run; otherwise the running app is exited
// (or the device powered on), the show's app launched and navigated.
// The display shows NowPlaying while it runs.
func (c *RemoteController) Launch(ctx context.Context, device, showName string) error {
	return c.launchShow(ctx, device, showName, false)
}

// Start is a scheduled Launch. A start on any device but the primary one
// shows DeviceStarting instead of NowPlaying.
func (c *RemoteController) Start(ctx context.Context, device, showName string) error {
	return c.launchShow(ctx, device, showName, true)
}

func (c *RemoteController) launchShow(ctx context.Context, device, showName string, scheduled bool) (err error) {
	start := c.clock.Now()
	defer func() { c.observe(OpLaunch, device, start, err) }()

	dev, ok := c.tracker.Device(device)
	if !ok {
		return wrap(OpLaunch, device, showName, ErrUnknownDevice)
	}
	show, ok := c.catalog.Show(showName)
	if !ok {
		return wrap(OpLaunch, device, showName, ErrUnknownShow)
	}
	profile, ok := c.catalog.Profile(show.App)
	if !ok {
		return wrap(OpLaunch, device, showName, ErrUnknownShow)
	}

	if err := c.gate.acquire(ctx, c.clock, c.gateDelay); err != nil {
		return wrap(OpLaunch, device, showName, err)
	}
	defer c.gate.release()

	current := c.tracker.Get(device)
	if !current.Reachable {
		logging.Warn("Skipping launch on unreachable device",
			zap.String("device", device), zap.String("show", show.Name))
		return wrap(OpLaunch, device, show.Name, ErrUnreachable)
	}
	defer c.restoreOnError(&err)

	s := c.session(dev, show, profile)
	s.announce = scheduled && dev.Name != c.primary
	s.log.Info("Launch requested",
		zap.String("show", show.Name),
		zap.Stringer("app", show.App),
		zap.Stringer("active_app", current.ActiveApp))

	if err := c.launch(ctx, s, current); err != nil {
		return wrap(OpLaunch, device, show.Name, err)
	}
	return nil
}

func (c *RemoteController) launch(ctx context.Context, s *session, current state.DeviceState) error {
	if current.ActiveApp == s.show.App {
		s.transition(stateIdle, stateNavigating, zap.String("path", "shortcut"))
		c.showLaunching(s)
		if err := s.run(ctx, s.profile.Shortcut); err != nil {
			return err
		}
		if err := s.run(ctx, s.show.Recipe); err != nil {
			return err
		}
	} else {
		if c.catalog.Known(current.ActiveApp) {
			if err := c.exit(ctx, s.dev, current); err != nil {
				return err
			}
		} else {
			s.log.Debug("No known app running, powering on")
			if err := s.press(ctx, ecp.KeyPowerOn, 1, 0); err != nil {
				return err
			}
		}

		s.transition(stateIdle, stateLaunching)
		c.showLaunching(s)
		if err := s.launchApp(ctx); err != nil {
			return err
		}
		s.transition(stateLaunching, stateNavigating)
		if err := s.run(ctx, s.show.Recipe); err != nil {
			return err
		}
	}

	if s.profile.ConfirmLive {
		s.transition(stateNavigating, stateConfirming)
		if err := s.confirm(ctx); err != nil {
			c.tracker.Set(s.dev.Name, s.show.App, "")
			s.transition(stateConfirming, stateIdle, zap.Error(err))
			return err
		}
	}

	c.tracker.Set(s.dev.Name, s.show.App, s.show.Name)
	c.display.Show(display.Default())
	s.transition(stateNavigating, stateIdle)
	return nil
}

func (c *RemoteController) showLaunching(s *session) {
	if s.announce {
		c.display.Show(display.DeviceStarting(s.dev.DisplayLabel()))
		return
	}
	c.display.Show(display.NowPlaying(s.show))
}

// restoreOnError puts the idle screen back when an operation stops midway.
func (c *RemoteController) restoreOnError(err *error) {
	if *err != nil {
		c.display.Show(display.Default())
	}
}

// exit runs the running app's exit recipe once. Live-style exits read the
// media player first to pick the back count.
func (c *RemoteController) exit(ctx context.Context, dev config.Device, current state.DeviceState) error {
	profile, ok := c.catalog.Profile(current.ActiveApp)
	if !ok {
		return nil
	}

	var color uint32
	if show, ok := c.catalog.Show(current.Show); ok {
		color = show.Color
	}
	c.display.Show(display.Exiting(current.Show, color))

	s := c.session(dev, catalog.Show{Name: current.Show, App: current.ActiveApp}, profile)
	s.transition(stateIdle, stateExiting, zap.Stringer("app", current.ActiveApp))

	live := false
	if profile.LiveExit != nil {
		body, err := s.send(ctx, ecp.QueryMediaPlayer)
		live = err == nil && ecp.IsLive(body, c.markers...)
	}
	if err := s.run(ctx, profile.ExitRecipe(live)); err != nil {
		return err
	}
	return s.sleep(ctx, exitSettle)
}

// PowerOff exits the running app, returns home and puts the device to sleep.
func (c *RemoteController) PowerOff(ctx context.Context, device string) (err error) {
	start := c.clock.Now()
	defer func() { c.observe(OpPowerOff, device, start, err) }()

	s, current, err := c.begin(ctx, OpPowerOff, device)
	if err != nil {
		return err
	}
	defer c.gate.release()
	defer c.restoreOnError(&err)

	if c.catalog.Known(current.ActiveApp) {
		if err := c.exit(ctx, s.dev, current); err != nil {
			return wrap(OpPowerOff, device, "", err)
		}
	}

	c.display.Show(display.PowerOff())
	s.log.Info("Powering off")
	if err := s.press(ctx, ecp.KeyHome, 1, powerOffSettle); err != nil {
		return wrap(OpPowerOff, device, "", err)
	}
	if body, err := s.send(ctx, ecp.QueryActiveApp); err == nil {
		id, _ := ecp.ParseActiveApp(body)
		s.log.Debug("Active app after home", zap.Stringer("app", catalog.AppID(id)))
	}
	if err := s.sleep(ctx, powerOffQuery); err != nil {
		return wrap(OpPowerOff, device, "", err)
	}
	if err := s.press(ctx, ecp.KeyPowerOff, 1, 0); err != nil {
		return wrap(OpPowerOff, device, "", err)
	}

	c.tracker.Set(device, catalog.AppUnknown, "")
	c.display.Show(display.Default())
	return nil
}

// Volume presses VolumeUp or VolumeDown once.
func (c *RemoteController) Volume(ctx context.Context, device string, up bool) (err error) {
	start := c.clock.Now()
	defer func() { c.observe(OpVolume, device, start, err) }()

	s, _, err := c.begin(ctx, OpVolume, device)
	if err != nil {
		return err
	}
	defer c.gate.release()
	defer c.restoreOnError(&err)

	key := ecp.KeyVolumeDown
	if up {
		key = ecp.KeyVolumeUp
	}
	c.display.Show(display.Volume(up))
	if err := s.press(ctx, key, 1, volumeHold); err != nil {
		return wrap(OpVolume, device, "", err)
	}
	c.display.Show(display.Default())
	return nil
}

// KeepAlive pokes a device playing an app that prompts when idle. Nothing is
// sent when the player is paused or stopped, or the app does not need it.
func (c *RemoteController) KeepAlive(ctx context.Context, device string) (err error) {
	start := c.clock.Now()
	defer func() { c.observe(OpKeepAlive, device, start, err) }()

	s, current, err := c.begin(ctx, OpKeepAlive, device)
	if err != nil {
		return err
	}
	defer c.gate.release()

	profile, ok := c.catalog.Profile(current.ActiveApp)
	if !ok || !profile.KeepAlive {
		return nil
	}
	s.profile = profile

	body, err := s.send(ctx, ecp.QueryMediaPlayer)
	if err != nil {
		return nil
	}
	if ecp.IsPausedOrStopped(body) {
		s.log.Debug("Player idle, no keep-alive needed")
		return nil
	}
	s.log.Info("Sending keep-alive", zap.Stringer("app", current.ActiveApp))
	if err := s.press(ctx, ecp.KeyUp, 1, 0); err != nil {
		return wrap(OpKeepAlive, device, "", err)
	}
	return nil
}

// Reboot walks the settings menu to restart the device.
func (c *RemoteController) Reboot(ctx context.Context, device string) (err error) {
	start := c.clock.Now()
	defer func() { c.observe(OpReboot, device, start, err) }()

	s, current, err := c.begin(ctx, OpReboot, device)
	if err != nil {
		return err
	}
	defer c.gate.release()

	if c.catalog.Known(current.ActiveApp) {
		if err := c.exit(ctx, s.dev, current); err != nil {
			return wrap(OpReboot, device, "", err)
		}
	} else if err := s.press(ctx, ecp.KeyPowerOn, 1, 0); err != nil {
		return wrap(OpReboot, device, "", err)
	}

	s.log.Info("Rebooting device")
	if err := s.run(ctx, c.catalog.RebootRecipe()); err != nil {
		return wrap(OpReboot, device, "", err)
	}
	c.tracker.Set(device, catalog.AppUnknown, "")
	return nil
}

// RefreshAll re-reads every device under the gate, showing Loading while it
// runs.
func (c *RemoteController) RefreshAll(ctx context.Context) (states []state.DeviceState, err error) {
	start := c.clock.Now()
	defer func() { c.observe(OpRefresh, "all", start, err) }()

	if err := c.gate.acquire(ctx, c.clock, c.gateDelay); err != nil {
		return nil, wrap(OpRefresh, "all", "", err)
	}
	defer c.gate.release()

	c.display.Show(display.Loading())
	states = c.tracker.RefreshAll(ctx)
	c.display.Show(display.Default())
	return states, nil
}

// begin resolves the device, takes the gate and checks reachability. On
// success the caller owns the gate and must release it.
func (c *RemoteController) begin(ctx context.Context, op, device string) (*session, state.DeviceState, error) {
	dev, ok := c.tracker.Device(device)
	if !ok {
		return nil, state.DeviceState{}, wrap(op, device, "", ErrUnknownDevice)
	}
	if err := c.gate.acquire(ctx, c.clock, c.gateDelay); err != nil {
		return nil, state.DeviceState{}, wrap(op, device, "", err)
	}
	current := c.tracker.Get(device)
	if !current.Reachable {
		c.gate.release()
		logging.Debug("Skipping operation on unreachable device",
			zap.String("op", op), zap.String("device", device))
		return nil, current, wrap(op, device, "", ErrUnreachable)
	}
	return c.session(dev, catalog.Show{}, &catalog.AppProfile{KeyDelay: catalog.DefaultKeyDelay}), current, nil
}

func (c *RemoteController) session(dev config.Device, show catalog.Show, profile *catalog.AppProfile) *session {
	return &session{
		c:       c,
		dev:     dev,
		show:    show,
		profile: profile,
		log: logging.GetLogger().With(
			zap.String("device", dev.Name),
			zap.String("run", uuid.NewString()),
		),
	}
}

func (c *RemoteController) observe(op, device string, start time.Time, err error) {
	if c.observer != nil {
		c.observer.ObserveSequence(op, device, c.clock.Now().Sub(start), err)
	}
}
