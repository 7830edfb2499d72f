package sequencer

import (
	"context"
	"errors"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/easyremote/internal/catalog"
	"github.com/muurk/easyremote/internal/config"
	"github.com/muurk/easyremote/internal/display"
	"github.com/muurk/easyremote/internal/ecp"
	"github.com/muurk/easyremote/internal/state"
)

const (
	primaryAddr   = "192.168.86.38:8060"
	secondaryAddr = "192.168.86.42:8060"

	liveBody    = `<player error="false" state="play"><is_live>true</is_live></player>`
	playingBody = `<player error="false" state="play"><is_live>false</is_live></player>`
	pausedBody  = `<player error="false" state="pause"><is_live>false</is_live></player>`
	netflixApp  = "<?xml version=\"1.0\" encoding=\"UTF-8\" ?>\n<active-app>\n\t<app id=\"12\" type=\"appl\">Netflix</app>\n</active-app>"
)

type sent struct {
	addr string
	path string
}

// fakeSender answers queries from a table keyed by path. When block is set
// the first command waits for it to close, after closing started.
type fakeSender struct {
	mu        sync.Mutex
	responses map[string]string
	sent      []sent

	block   chan struct{}
	started chan struct{}
	once    sync.Once
}

func (f *fakeSender) Send(ctx context.Context, address string, cmd ecp.Command) (string, error) {
	if f.block != nil {
		f.once.Do(func() {
			close(f.started)
			<-f.block
		})
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{addr: address, path: cmd.Path})
	body, ok := f.responses[cmd.Path]
	if !ok && cmd.Method == "GET" {
		return "", errors.New("no response")
	}
	return body, nil
}

func (f *fakeSender) paths(addr string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.sent {
		if addr == "" || s.addr == addr {
			out = append(out, s.path)
		}
	}
	return out
}

func (f *fakeSender) count(path string) int {
	n := 0
	for _, p := range f.paths("") {
		if p == path {
			n++
		}
	}
	return n
}

// fakeClock advances only when slept on. real adds a wall-clock pause per
// sleep so spinning waiters do not starve the test.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	real   time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	if c.real > 0 {
		time.Sleep(c.real)
	}
	runtime.Gosched()
	return ctx.Err()
}

func (c *fakeClock) slept(d time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.sleeps {
		if s == d {
			return true
		}
	}
	return false
}

type fakeProber struct{}

func (fakeProber) Reachable(ctx context.Context, address string) bool { return true }

type observed struct {
	op, device string
	err        error
}

type fakeObserver struct {
	mu  sync.Mutex
	got []observed
}

func (o *fakeObserver) ObserveSequence(op, device string, d time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.got = append(o.got, observed{op, device, err})
}

type fixture struct {
	c        *RemoteController
	sender   *fakeSender
	tracker  *state.Tracker
	screens  *display.Recorder
	clock    *fakeClock
	observer *fakeObserver
}

func newFixture(t *testing.T, sender *fakeSender) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Shows = append(cfg.Shows, config.Show{Name: "Pluto News", App: 74519, Color: "#FFFF00"})
	cat, err := catalog.New(cfg)
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	if sender.responses == nil {
		sender.responses = map[string]string{}
	}

	tr := state.NewTracker(cfg.Devices, sender, fakeProber{}, cat)
	tr.MarkReachable("primary", true)
	tr.MarkReachable("secondary", true)

	f := &fixture{
		sender:   sender,
		tracker:  tr,
		screens:  &display.Recorder{},
		clock:    &fakeClock{now: time.Date(2024, 3, 1, 6, 29, 0, 0, time.UTC)},
		observer: &fakeObserver{},
	}
	f.c = New(sender, tr, cat, f.screens, Options{Clock: f.clock, Observer: f.observer})
	return f
}

func repeat(path string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = path
	}
	return out
}

func seq(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestLaunch_Unreachable(t *testing.T) {
	f := newFixture(t, &fakeSender{})
	f.tracker.MarkReachable("primary", false)

	err := f.c.Launch(context.Background(), "primary", "Good Witch")
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("Launch() error = %v, want ErrUnreachable", err)
	}
	if got := f.sender.paths(""); len(got) != 0 {
		t.Errorf("sent = %v, want nothing", got)
	}
	if f.c.Busy() {
		t.Error("gate still held after unreachable launch")
	}
}

func TestLaunch_FromUnknownApp(t *testing.T) {
	f := newFixture(t, &fakeSender{})

	if err := f.c.Launch(context.Background(), "primary", "Good Witch"); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	want := seq(
		[]string{"keypress/PowerOn", "launch/12"},
		[]string{"keypress/Select", "keypress/Left"},
		repeat("keypress/Down", 5),
		[]string{"keypress/Select"},
		[]string{
			"keypress/Lit_G", "keypress/Lit_o", "keypress/Lit_o", "keypress/Lit_d", "keypress/Lit_%20",
			"keypress/Lit_W", "keypress/Lit_i", "keypress/Lit_t", "keypress/Lit_c", "keypress/Lit_h",
		},
		repeat("keypress/Right", 5),
		[]string{"keypress/Select"},
	)
	if got := f.sender.paths(primaryAddr); !reflect.DeepEqual(got, want) {
		t.Errorf("sent =\n%v\nwant\n%v", got, want)
	}

	s := f.tracker.Get("primary")
	if s.ActiveApp != catalog.AppNetflix || s.Show != "Good Witch" {
		t.Errorf("state = %v/%q, want 12/Good Witch", s.ActiveApp, s.Show)
	}
	if !f.clock.slept(15 * time.Second) {
		t.Error("Launch() did not wait out the Netflix warm-up")
	}

	kinds := f.screens.Kinds()
	if !reflect.DeepEqual(kinds, []display.Kind{display.KindNowPlaying, display.KindDefault}) {
		t.Errorf("screens = %v, want [now_playing default]", kinds)
	}
}

func TestLaunch_ExitsLiveApp(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		backs int
	}{
		{"live", liveBody, 4},
		{"not live", playingBody, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &fakeSender{responses: map[string]string{"query/media-player": tt.body}})
			f.tracker.Set("primary", catalog.AppPluto, "Pluto News")

			if err := f.c.Launch(context.Background(), "primary", "Good Witch"); err != nil {
				t.Fatalf("Launch() error = %v", err)
			}

			got := f.sender.paths(primaryAddr)
			want := seq(
				[]string{"query/media-player"},
				repeat("keypress/Back", tt.backs),
				[]string{"keypress/Down", "keypress/Select", "launch/12"},
			)
			if len(got) < len(want) || !reflect.DeepEqual(got[:len(want)], want) {
				t.Errorf("sent prefix = %v, want %v", got[:min(len(got), len(want))], want)
			}
			if n := f.sender.count("launch/12"); n != 1 {
				t.Errorf("launches = %d, want 1", n)
			}
			if f.sender.count("keypress/PowerOn") != 0 {
				t.Error("PowerOn sent while an app was running")
			}
			if kinds := f.screens.Kinds(); kinds[0] != display.KindExiting {
				t.Errorf("first screen = %v, want exiting", kinds[0])
			}
		})
	}
}

func TestLaunch_SameAppUsesShortcut(t *testing.T) {
	f := newFixture(t, &fakeSender{})
	f.tracker.Set("primary", catalog.AppParamount, "Star Trek: Picard")

	if err := f.c.Launch(context.Background(), "primary", "Star Trek: Picard"); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	want := seq(
		repeat("keypress/Back", 2),
		[]string{"keypress/Left"},
		repeat("keypress/Up", 10),
		repeat("keypress/Down", 7),
		repeat("keypress/Select", 3),
	)
	if got := f.sender.paths(primaryAddr); !reflect.DeepEqual(got, want) {
		t.Errorf("sent = %v, want %v", got, want)
	}
}

func TestLaunch_ListPosition(t *testing.T) {
	f := newFixture(t, &fakeSender{})
	f.tracker.Set("primary", catalog.AppFrndly, "")

	if err := f.c.Launch(context.Background(), "primary", "Hallmark Movies & Mysteries"); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	// back*2, up*20 shortcut, then down*list with the show's position.
	if n := f.sender.count("keypress/Down"); n != 4 {
		t.Errorf("down presses = %d, want 4", n)
	}
}

func TestLaunch_SecondaryDeviceShowsNowPlaying(t *testing.T) {
	f := newFixture(t, &fakeSender{})

	if err := f.c.Launch(context.Background(), "secondary", "Star Trek: Picard"); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	want := []display.Kind{display.KindNowPlaying, display.KindDefault}
	if kinds := f.screens.Kinds(); !reflect.DeepEqual(kinds, want) {
		t.Errorf("screens = %v, want %v", kinds, want)
	}
	if got := f.sender.paths(primaryAddr); len(got) != 0 {
		t.Errorf("primary received %v", got)
	}
}

func TestStart(t *testing.T) {
	tests := []struct {
		device string
		want   display.Kind
	}{
		{"primary", display.KindNowPlaying},
		{"secondary", display.KindDeviceStarting},
	}
	for _, tt := range tests {
		t.Run(tt.device, func(t *testing.T) {
			f := newFixture(t, &fakeSender{})

			if err := f.c.Start(context.Background(), tt.device, "Star Trek: Picard"); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			screens := f.screens.Screens()
			if screens[0].Kind != tt.want {
				t.Errorf("first screen = %v, want %v", screens[0].Kind, tt.want)
			}
			if tt.want == display.KindDeviceStarting && screens[0].Device != "bedroom" {
				t.Errorf("starting screen device = %q, want bedroom", screens[0].Device)
			}
			if last, _ := f.screens.Last(); last.Kind != display.KindDefault {
				t.Errorf("last screen = %v, want default", last.Kind)
			}
			if s := f.tracker.Get(tt.device); s.Show != "Star Trek: Picard" {
				t.Errorf("show = %q, want Star Trek: Picard", s.Show)
			}
		})
	}
}

// cancelingSender cancels the operation once a given command goes out.
type cancelingSender struct {
	*fakeSender
	path   string
	cancel context.CancelFunc
}

func (s cancelingSender) Send(ctx context.Context, address string, cmd ecp.Command) (string, error) {
	body, err := s.fakeSender.Send(ctx, address, cmd)
	if cmd.Path == s.path {
		s.cancel()
	}
	return body, err
}

func TestLaunch_CancelledRestoresDefault(t *testing.T) {
	f := newFixture(t, &fakeSender{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := cancelingSender{fakeSender: f.sender, path: "launch/12", cancel: cancel}
	c := New(sender, f.tracker, f.c.Catalog(), f.screens, Options{Clock: f.clock})

	err := c.Launch(ctx, "primary", "Good Witch")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Launch() error = %v, want context.Canceled", err)
	}
	want := []display.Kind{display.KindNowPlaying, display.KindDefault}
	if kinds := f.screens.Kinds(); !reflect.DeepEqual(kinds, want) {
		t.Errorf("screens = %v, want %v", kinds, want)
	}
	if c.Busy() {
		t.Error("gate still held after cancelled launch")
	}
}

func TestLaunch_Confirmation(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		f := newFixture(t, &fakeSender{responses: map[string]string{"query/media-player": liveBody}})

		if err := f.c.Launch(context.Background(), "primary", "Pluto News"); err != nil {
			t.Fatalf("Launch() error = %v", err)
		}
		if n := f.sender.count("launch/74519"); n != 1 {
			t.Errorf("launches = %d, want 1", n)
		}
		if s := f.tracker.Get("primary"); s.Show != "Pluto News" {
			t.Errorf("show = %q, want Pluto News", s.Show)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		f := newFixture(t, &fakeSender{responses: map[string]string{"query/media-player": playingBody}})

		err := f.c.Launch(context.Background(), "primary", "Pluto News")
		if !errors.Is(err, ErrConfirmationTimeout) {
			t.Fatalf("Launch() error = %v, want ErrConfirmationTimeout", err)
		}
		var seqErr *SequenceError
		if !errors.As(err, &seqErr) || seqErr.Op != OpLaunch || seqErr.Show != "Pluto News" {
			t.Errorf("error = %#v, want launch SequenceError", err)
		}
		// One launch plus two relaunches.
		if n := f.sender.count("launch/74519"); n != 3 {
			t.Errorf("launches = %d, want 3", n)
		}
		s := f.tracker.Get("primary")
		if s.ActiveApp != catalog.AppPluto || s.Show != "" {
			t.Errorf("state = %v/%q, want Pluto with no show", s.ActiveApp, s.Show)
		}
		if last, _ := f.screens.Last(); last.Kind != display.KindDefault {
			t.Errorf("last screen = %v, want default", last.Kind)
		}
		if f.c.Busy() {
			t.Error("gate still held after failed launch")
		}
	})
}

func TestLaunch_UnknownNames(t *testing.T) {
	f := newFixture(t, &fakeSender{})

	if err := f.c.Launch(context.Background(), "attic", "Good Witch"); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("unknown device error = %v", err)
	}
	if err := f.c.Launch(context.Background(), "primary", "Nope"); !errors.Is(err, ErrUnknownShow) {
		t.Errorf("unknown show error = %v", err)
	}
	if err := f.c.Volume(context.Background(), "attic", true); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("volume on unknown device error = %v", err)
	}
	if got := f.sender.paths(""); len(got) != 0 {
		t.Errorf("sent = %v, want nothing", got)
	}
}

func TestLaunch_Serialized(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{}), started: make(chan struct{})}
	f := newFixture(t, sender)
	f.clock.real = time.Millisecond

	errs := make(chan error, 2)
	go func() { errs <- f.c.Launch(context.Background(), "primary", "Good Witch") }()
	<-sender.started

	if !f.c.Busy() {
		t.Fatal("Busy() = false while a launch is sending")
	}
	go func() { errs <- f.c.Launch(context.Background(), "secondary", "Star Trek: Picard") }()
	time.Sleep(20 * time.Millisecond)
	if got := sender.paths(secondaryAddr); len(got) != 0 {
		t.Fatalf("second launch sent %v while the first held the gate", got)
	}

	close(sender.block)
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("Launch() error = %v", err)
		}
	}

	all := sender.paths("")
	sender.mu.Lock()
	order := make([]string, len(sender.sent))
	for i, s := range sender.sent {
		order[i] = s.addr
	}
	sender.mu.Unlock()
	switched := 0
	for i := 1; i < len(order); i++ {
		if order[i] != order[i-1] {
			switched++
		}
	}
	if switched != 1 {
		t.Errorf("sequences interleaved across %d commands: %v", len(all), order)
	}

	kinds := f.screens.Kinds()
	for i := 1; i < len(kinds); i += 2 {
		if kinds[i] != display.KindDefault {
			t.Errorf("screens = %v, want each launch screen followed by default", kinds)
			break
		}
	}
}

func TestLaunch_GateWaitCancelled(t *testing.T) {
	f := newFixture(t, &fakeSender{})
	f.c.gate.tryAcquire()
	defer f.c.gate.release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.c.Launch(ctx, "primary", "Good Witch")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Launch() error = %v, want context.Canceled", err)
	}
	if got := f.sender.paths(""); len(got) != 0 {
		t.Errorf("sent = %v, want nothing", got)
	}
}

func TestPowerOff(t *testing.T) {
	f := newFixture(t, &fakeSender{responses: map[string]string{"query/active-app": netflixApp}})
	f.tracker.Set("primary", catalog.AppNetflix, "Good Witch")

	if err := f.c.PowerOff(context.Background(), "primary"); err != nil {
		t.Fatalf("PowerOff() error = %v", err)
	}

	got := f.sender.paths(primaryAddr)
	tail := []string{"keypress/Home", "query/active-app", "keypress/PowerOff"}
	if len(got) < len(tail) || !reflect.DeepEqual(got[len(got)-len(tail):], tail) {
		t.Errorf("sent = %v, want it to end with %v", got, tail)
	}
	// Netflix exit recipe plus the three power-off commands.
	if len(got) != 16+len(tail) {
		t.Errorf("commands = %d, want %d", len(got), 16+len(tail))
	}
	if s := f.tracker.Get("primary"); s.ActiveApp != catalog.AppUnknown || s.Show != "" {
		t.Errorf("state after power off = %v/%q", s.ActiveApp, s.Show)
	}
	want := []display.Kind{display.KindExiting, display.KindPowerOff, display.KindDefault}
	if kinds := f.screens.Kinds(); !reflect.DeepEqual(kinds, want) {
		t.Errorf("screens = %v, want %v", kinds, want)
	}
	if !f.clock.slept(powerOffSettle) {
		t.Error("PowerOff() did not settle after Home")
	}
}

func TestVolume(t *testing.T) {
	tests := []struct {
		up   bool
		want string
	}{
		{true, "keypress/VolumeUp"},
		{false, "keypress/VolumeDown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			f := newFixture(t, &fakeSender{})
			if err := f.c.Volume(context.Background(), "primary", tt.up); err != nil {
				t.Fatalf("Volume() error = %v", err)
			}
			if got := f.sender.paths(primaryAddr); !reflect.DeepEqual(got, []string{tt.want}) {
				t.Errorf("sent = %v, want [%s]", got, tt.want)
			}
			screens := f.screens.Screens()
			if len(screens) != 2 || screens[0].Kind != display.KindVolume || screens[0].Up != tt.up {
				t.Errorf("screens = %+v", screens)
			}
			if !f.clock.slept(volumeHold) {
				t.Error("Volume() did not hold the volume screen")
			}
		})
	}
}

func TestKeepAlive(t *testing.T) {
	tests := []struct {
		name   string
		app    catalog.AppID
		body   string
		wantUp bool
	}{
		{"playing netflix", catalog.AppNetflix, playingBody, true},
		{"paused netflix", catalog.AppNetflix, pausedBody, false},
		{"app without keep-alive", catalog.AppParamount, playingBody, false},
		{"no app", catalog.AppUnknown, playingBody, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &fakeSender{responses: map[string]string{"query/media-player": tt.body}})
			f.tracker.Set("primary", tt.app, "")

			if err := f.c.KeepAlive(context.Background(), "primary"); err != nil {
				t.Fatalf("KeepAlive() error = %v", err)
			}
			if got := f.sender.count("keypress/Up") == 1; got != tt.wantUp {
				t.Errorf("sent Up = %v, want %v (sent %v)", got, tt.wantUp, f.sender.paths(""))
			}
		})
	}
}

func TestReboot(t *testing.T) {
	f := newFixture(t, &fakeSender{})

	if err := f.c.Reboot(context.Background(), "primary"); err != nil {
		t.Fatalf("Reboot() error = %v", err)
	}
	got := f.sender.paths(primaryAddr)
	if len(got) != 31 || got[0] != "keypress/PowerOn" || got[1] != "keypress/Home" {
		t.Errorf("sent %d commands starting %v, want PowerOn then the 30-press walk", len(got), got[:min(len(got), 2)])
	}
	if got[len(got)-1] != "keypress/Select" {
		t.Errorf("last command = %s, want keypress/Select", got[len(got)-1])
	}
}

func TestRefreshAll(t *testing.T) {
	f := newFixture(t, &fakeSender{responses: map[string]string{
		"query/active-app":   netflixApp,
		"query/media-player": playingBody,
	}})

	states, err := f.c.RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("states = %d, want 2", len(states))
	}
	for _, s := range states {
		if !s.Reachable || s.ActiveApp != catalog.AppNetflix {
			t.Errorf("%s = %+v, want reachable on Netflix", s.Name, s)
		}
	}
	want := []display.Kind{display.KindLoading, display.KindDefault}
	if kinds := f.screens.Kinds(); !reflect.DeepEqual(kinds, want) {
		t.Errorf("screens = %v, want %v", kinds, want)
	}
}

func TestObserver(t *testing.T) {
	f := newFixture(t, &fakeSender{})
	f.tracker.MarkReachable("secondary", false)

	_ = f.c.Volume(context.Background(), "primary", true)
	_ = f.c.Launch(context.Background(), "secondary", "Good Witch")

	f.observer.mu.Lock()
	defer f.observer.mu.Unlock()
	if len(f.observer.got) != 2 {
		t.Fatalf("observed = %d, want 2", len(f.observer.got))
	}
	if o := f.observer.got[0]; o.op != OpVolume || o.device != "primary" || o.err != nil {
		t.Errorf("first = %+v", o)
	}
	if o := f.observer.got[1]; o.op != OpLaunch || !errors.Is(o.err, ErrUnreachable) {
		t.Errorf("second = %+v", o)
	}
}

func TestSequenceError(t *testing.T) {
	err := wrap(OpLaunch, "primary", "Good Witch", ErrUnreachable)
	if got := err.Error(); !strings.Contains(got, `launch "Good Witch" on primary`) {
		t.Errorf("Error() = %q", got)
	}
	if wrap(OpVolume, "primary", "", nil) != nil {
		t.Error("wrap(nil) should be nil")
	}
	if got := wrap(OpVolume, "primary", "", ErrUnreachable).Error(); got != "volume on primary: device unreachable" {
		t.Errorf("Error() = %q", got)
	}
}
