package display

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/muurk/easyremote/internal/catalog"
)

var testShows = []catalog.Show{
	{Name: "Good Witch", App: catalog.AppNetflix, Color: 0xFF0000},
	{Name: "Star Trek: Picard", App: catalog.AppParamount, Color: 0x00FFFF},
	{Name: "Hallmark Movies & Mysteries", App: catalog.AppFrndly, Color: 0x008000},
}

func texts(blocks []Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.Text
	}
	return out
}

func TestLayout(t *testing.T) {
	tests := []struct {
		name   string
		screen Screen
		want   []string
	}{
		{"loading", Loading(), []string{"LOADING", "PLEASE WAIT"}},
		{"default", Default(), []string{"Good Witch", "Star Trek: Picard", "Hallmark Movies & Mysteries"}},
		{"now playing", NowPlaying(testShows[0]), []string{"NOW PLAYING", "Good Witch"}},
		{"exiting", Exiting("Star Trek: Picard", 0x00FFFF), []string{"EXITING", "Star Trek: Picard"}},
		{"exiting unknown show", Exiting("", 0), []string{"EXITING"}},
		{"volume up", Volume(true), []string{"SOUND UP"}},
		{"volume down", Volume(false), []string{"SOUND DOWN"}},
		{"power off", PowerOff(), []string{"POWER OFF", "GOODBYE"}},
		{"device starting", DeviceStarting("bedroom"), []string{"BEDROOM TV", "STARTING"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := texts(Layout(tt.screen, testShows))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Layout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLayout_Colors(t *testing.T) {
	def := Layout(Default(), testShows)
	for i, b := range def {
		if b.Color != testShows[i].Color {
			t.Errorf("default line %d color = %06X, want %06X", i, b.Color, testShows[i].Color)
		}
	}

	np := Layout(NowPlaying(testShows[1]), testShows)
	if np[0].Color != White || np[1].Color != 0x00FFFF {
		t.Errorf("now playing colors = %06X %06X", np[0].Color, np[1].Color)
	}

	if c := Layout(Volume(true), nil)[0].Color; c != VolumeUp {
		t.Errorf("volume up color = %06X, want %06X", c, VolumeUp)
	}
	if c := Layout(Exiting("x", 0), nil)[1].Color; c != White {
		t.Errorf("exiting without color = %06X, want white", c)
	}
}

func TestLayout_Positions(t *testing.T) {
	blocks := Layout(Loading(), nil)
	if blocks[0].Y >= blocks[1].Y {
		t.Errorf("rows = %d, %d, want first above second", blocks[0].Y, blocks[1].Y)
	}
	for _, b := range Layout(Default(), testShows) {
		if b.X < 0 || b.X >= Width || b.Y < 0 || b.Y >= Height {
			t.Errorf("block %q at (%d,%d) is off the matrix", b.Text, b.X, b.Y)
		}
	}
	if a, b := Layout(Default(), testShows), Layout(Default(), testShows); !reflect.DeepEqual(a, b) {
		t.Error("Layout() is not deterministic")
	}
}

func TestManager(t *testing.T) {
	var frames []Frame
	m := NewManager(testShows, RendererFunc(func(f Frame) error {
		frames = append(frames, f)
		return nil
	}))

	m.Show(Loading())
	if m.DefaultShowing() {
		t.Error("DefaultShowing() = true after Loading")
	}

	m.ShowDefault()
	m.ShowDefault()
	if !m.DefaultShowing() {
		t.Error("DefaultShowing() = false after ShowDefault")
	}
	if len(frames) != 2 {
		t.Errorf("frames = %d, want 2 (second ShowDefault is a no-op)", len(frames))
	}

	m.Show(NowPlaying(testShows[2]))
	if m.DefaultShowing() {
		t.Error("DefaultShowing() = true after NowPlaying")
	}
	cur := m.Current()
	if cur.Screen.Kind != KindNowPlaying || cur.Blocks[1].Text != "Hallmark Movies & Mysteries" {
		t.Errorf("Current() = %+v", cur)
	}
}

func TestManager_AddRendererDrawsCurrent(t *testing.T) {
	m := NewManager(testShows)
	m.Show(PowerOff())

	var got []Frame
	m.AddRenderer(RendererFunc(func(f Frame) error {
		got = append(got, f)
		return nil
	}))
	if len(got) != 1 || got[0].Screen.Kind != KindPowerOff {
		t.Errorf("late renderer frames = %+v, want the power-off frame", got)
	}
}

func TestManager_RendererErrorDoesNotStopOthers(t *testing.T) {
	var calls int
	failing := RendererFunc(func(f Frame) error { return errors.New("gone") })
	counting := RendererFunc(func(f Frame) error { calls++; return nil })

	m := NewManager(testShows, failing, counting)
	m.Show(Volume(false))
	if calls != 1 {
		t.Errorf("second renderer calls = %d, want 1", calls)
	}
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, true)

	if err := term.Render(Frame{Screen: Loading(), Blocks: Layout(Loading(), nil)}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, clearScreen) {
		t.Error("Render() should clear first")
	}
	for _, want := range []string{"LOADING", "PLEASE WAIT"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	view := View(Frame{Blocks: []Block{{Text: "second", Y: 20}, {Text: "first", Y: 2}}})
	if strings.Index(view, "first") > strings.Index(view, "second") {
		t.Errorf("View() should order blocks top to bottom:\n%s", view)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	if _, ok := r.Last(); ok {
		t.Error("Last() on empty recorder should be false")
	}
	r.Show(Loading())
	r.Show(Default())

	if got := r.Kinds(); !reflect.DeepEqual(got, []Kind{KindLoading, KindDefault}) {
		t.Errorf("Kinds() = %v", got)
	}
	if last, _ := r.Last(); last.Kind != KindDefault {
		t.Errorf("Last() = %v, want default", last.Kind)
	}
}

func TestHex(t *testing.T) {
	if got := Hex(0x00FFFF); got != "#00FFFF" {
		t.Errorf("Hex() = %q, want #00FFFF", got)
	}
}
