package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/easyremote/internal/catalog"
	"github.com/muurk/easyremote/internal/config"
	"github.com/muurk/easyremote/internal/logging"
	"github.com/muurk/easyremote/internal/state"
)

// DefaultQueueSize is how many input events may wait for the loop.
const DefaultQueueSize = 16

// Controller runs command sequences. *sequencer.RemoteController
// implements it.
type Controller interface {
	Launch(ctx context.Context, device, show string) error
	Start(ctx context.Context, device, show string) error
	PowerOff(ctx context.Context, device string) error
	Volume(ctx context.Context, device string, up bool) error
	KeepAlive(ctx context.Context, device string) error
	Reboot(ctx context.Context, device string) error
	RefreshAll(ctx context.Context) ([]state.DeviceState, error)
}

// StateReader reads cached device state. *state.Tracker implements it.
type StateReader interface {
	Get(name string) state.DeviceState
	Names() []string
}

// DefaultScreen redraws the idle screen when something else is up.
// *display.Manager implements it.
type DefaultScreen interface {
	ShowDefault()
}

// Scheduler is the cooperative main loop. Each step handles at most one
// queued event, then the refresh and interaction timers.
type Scheduler struct {
	ctrl    Controller
	states  StateReader
	screen  DefaultScreen
	catalog *catalog.Catalog
	buttons map[int]config.Button
	rules   []*Rule
	events  chan Event

	tick     time.Duration
	refresh  time.Duration
	interact time.Duration
	window   time.Duration

	lastRefresh  time.Time
	lastInteract time.Time
	now          func() time.Time
}

// New builds a scheduler from the loaded configuration.
func New(cfg *config.Config, cat *catalog.Catalog, ctrl Controller, states StateReader, screen DefaultScreen) *Scheduler {
	return &Scheduler{
		ctrl:     ctrl,
		states:   states,
		screen:   screen,
		catalog:  cat,
		buttons:  cfg.ButtonMap(),
		rules:    RulesFromSchedule(cfg.Schedule),
		events:   make(chan Event, DefaultQueueSize),
		tick:     cfg.Intervals.Tick.D(),
		refresh:  cfg.Intervals.Refresh.D(),
		interact: cfg.Intervals.Interact.D(),
		window:   cfg.Intervals.FireWindow.D(),
		now:      time.Now,
	}
}

// SetNow replaces the wall clock Run passes to Step.
func (s *Scheduler) SetNow(now func() time.Time) {
	s.now = now
}

// Rules returns the time-of-day rules.
func (s *Scheduler) Rules() []*Rule {
	return s.rules
}

// Submit queues an event without blocking. It returns false and drops the
// event when the queue is full.
func (s *Scheduler) Submit(e Event) bool {
	select {
	case s.events <- e:
		logging.Debug("Event queued", zap.Stringer("event", e))
		return true
	default:
		logging.Warn("Event queue full, dropping event", zap.Stringer("event", e))
		return false
	}
}

// Pending returns the number of queued events.
func (s *Scheduler) Pending() int {
	return len(s.events)
}

// Run steps the loop every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	tick := s.tick
	if tick <= 0 {
		tick = 50 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	logging.Info("Scheduler started",
		zap.Duration("refresh", s.refresh),
		zap.Duration("interact", s.interact),
		zap.Int("rules", len(s.rules)))

	s.Step(ctx, s.now())
	for {
		select {
		case <-ctx.Done():
			logging.Info("Scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Step(ctx, s.now())
		}
	}
}

// Step runs one pass of the loop at now.
func (s *Scheduler) Step(ctx context.Context, now time.Time) {
	select {
	case e := <-s.events:
		s.dispatch(ctx, e)
	default:
	}
	if ctx.Err() != nil {
		return
	}

	if s.lastRefresh.IsZero() || now.Sub(s.lastRefresh) >= s.refresh {
		s.lastRefresh = now
		if _, err := s.ctrl.RefreshAll(ctx); err != nil {
			logging.Warn("Refresh failed", zap.Error(err))
		}
	}

	if s.lastInteract.IsZero() || now.Sub(s.lastInteract) >= s.interact {
		s.lastInteract = now
		s.interactAll(ctx, now)
	}
}

func (s *Scheduler) interactAll(ctx context.Context, now time.Time) {
	s.screen.ShowDefault()
	for _, name := range s.states.Names() {
		if !s.states.Get(name).Reachable {
			continue
		}
		if err := s.ctrl.KeepAlive(ctx, name); err != nil {
			logging.Debug("Keep-alive failed", zap.String("device", name), zap.Error(err))
		}
	}
	s.evaluateRules(ctx, now)
}

// evaluateRules fires every due rule. A rule whose device is unreachable
// still uses up its day.
func (s *Scheduler) evaluateRules(ctx context.Context, now time.Time) {
	for _, r := range s.rules {
		date, due := r.Due(now, s.window)
		if !due {
			continue
		}
		r.MarkFired(date)
		logging.Info("Rule fired",
			zap.String("rule", r.Name),
			zap.String("action", r.Action),
			zap.Stringer("at", r.At))

		if err := s.fire(ctx, r); err != nil {
			logging.Warn("Rule action failed", zap.String("rule", r.Name), zap.Error(err))
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, r *Rule) error {
	switch r.Action {
	case ActionStart:
		show, ok := s.catalog.Show(r.Show)
		if ok && s.states.Get(r.Device).ActiveApp == show.App {
			logging.Debug("Show's app already running, leaving it",
				zap.String("device", r.Device), zap.String("show", r.Show))
			return nil
		}
		return s.ctrl.Start(ctx, r.Device, r.Show)
	case ActionStop:
		return s.ctrl.PowerOff(ctx, r.Device)
	case ActionReboot:
		return s.ctrl.Reboot(ctx, r.Device)
	}
	return nil
}

func (s *Scheduler) dispatch(ctx context.Context, e Event) {
	logging.Info("Handling event", zap.Stringer("event", e))

	device := e.Device
	if device == "" {
		device = s.primary()
	}

	var err error
	switch e.Kind {
	case EventButton:
		err = s.press(ctx, e.Button)
	case EventLaunch:
		err = s.ctrl.Launch(ctx, device, e.Show)
	case EventPowerOff:
		err = s.ctrl.PowerOff(ctx, device)
	case EventVolume:
		err = s.ctrl.Volume(ctx, device, e.Up)
	case EventRefresh:
		_, err = s.ctrl.RefreshAll(ctx)
	}
	if err != nil {
		logging.Warn("Event failed", zap.Stringer("event", e), zap.Error(err))
	}
}

func (s *Scheduler) press(ctx context.Context, n int) error {
	b, ok := s.buttons[n]
	if !ok {
		logging.Debug("Unbound button", zap.Int("button", n))
		return nil
	}
	device := b.Device
	if device == "" {
		device = s.primary()
	}

	switch b.Action {
	case config.ActionLaunch:
		return s.ctrl.Launch(ctx, device, b.Show)
	case config.ActionPowerOff:
		return s.ctrl.PowerOff(ctx, device)
	case config.ActionVolumeUp:
		return s.ctrl.Volume(ctx, device, true)
	case config.ActionVolumeDown:
		return s.ctrl.Volume(ctx, device, false)
	case config.ActionRefresh:
		_, err := s.ctrl.RefreshAll(ctx)
		return err
	}
	return nil
}

func (s *Scheduler) primary() string {
	if names := s.states.Names(); len(names) > 0 {
		return names[0]
	}
	return ""
}
