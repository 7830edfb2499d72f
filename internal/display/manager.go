package display

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/easyremote/internal/catalog"
	"github.com/muurk/easyremote/internal/logging"
)

// Presenter shows screens. The sequencer and scheduler only see this.
type Presenter interface {
	Show(s Screen)
}

// Frame is a laid-out screen.
type Frame struct {
	Screen Screen    `json:"screen"`
	Blocks []Block   `json:"blocks"`
	At     time.Time `json:"at"`
}

// Renderer draws a frame, replacing whatever it drew before.
type Renderer interface {
	Render(f Frame) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(f Frame) error

// Render calls f.
func (fn RendererFunc) Render(f Frame) error {
	return fn(f)
}

// Manager lays out screens and fans them out to renderers. It remembers the
// current frame and whether the default screen is up.
type Manager struct {
	mu             sync.Mutex
	shows          []catalog.Show
	renderers      []Renderer
	current        Frame
	defaultShowing bool
	now            func() time.Time
}

// NewManager creates a manager drawing the default screen from shows.
func NewManager(shows []catalog.Show, renderers ...Renderer) *Manager {
	return &Manager{
		shows:     shows,
		renderers: renderers,
		now:       time.Now,
	}
}

// AddRenderer attaches another renderer and draws the current frame on it.
func (m *Manager) AddRenderer(r Renderer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renderers = append(m.renderers, r)
	if m.current.Blocks != nil {
		render(r, m.current)
	}
}

// Show lays out s and draws it on every renderer.
func (m *Manager) Show(s Screen) {
	m.mu.Lock()
	defer m.mu.Unlock()

	frame := Frame{Screen: s, Blocks: Layout(s, m.shows), At: m.now()}
	if frame.Blocks == nil {
		frame.Blocks = []Block{}
	}
	m.current = frame
	m.defaultShowing = s.Kind == KindDefault

	logging.Debug("Display", zap.String("screen", s.Kind.String()), zap.String("show", s.Show))
	for _, r := range m.renderers {
		render(r, frame)
	}
}

// ShowDefault draws the default screen unless it is already up.
func (m *Manager) ShowDefault() {
	if m.DefaultShowing() {
		return
	}
	m.Show(Default())
}

// DefaultShowing reports whether the default screen is up.
func (m *Manager) DefaultShowing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaultShowing
}

// Current returns the last frame drawn.
func (m *Manager) Current() Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func render(r Renderer, f Frame) {
	if err := r.Render(f); err != nil {
		logging.Warn("Display renderer failed", zap.Error(err))
	}
}

// Recorder is a Presenter that keeps every screen it is shown.
type Recorder struct {
	mu      sync.Mutex
	screens []Screen
}

// Show records s.
func (r *Recorder) Show(s Screen) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.screens = append(r.screens, s)
}

// Screens returns the screens shown so far.
func (r *Recorder) Screens() []Screen {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Screen, len(r.screens))
	copy(out, r.screens)
	return out
}

// Kinds returns the kinds of the screens shown so far.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, len(r.screens))
	for i, s := range r.screens {
		out[i] = s.Kind
	}
	return out
}

// Last returns the most recent screen.
func (r *Recorder) Last() (Screen, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.screens) == 0 {
		return Screen{}, false
	}
	return r.screens[len(r.screens)-1], true
}
