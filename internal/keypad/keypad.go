package keypad

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/easyremote/internal/catalog"
	"github.com/muurk/easyremote/internal/config"
	"github.com/muurk/easyremote/internal/display"
	"github.com/muurk/easyremote/internal/scheduler"
	"github.com/muurk/easyremote/internal/state"
	"github.com/muurk/easyremote/internal/ui"
)

// refreshEvery is how often the device list is re-read from the tracker.
const refreshEvery = time.Second

// Submitter queues input events. *scheduler.Scheduler implements it.
type Submitter interface {
	Submit(e scheduler.Event) bool
}

// StateSource supplies the device list. *state.Tracker implements it.
type StateSource interface {
	Snapshot() []state.DeviceState
}

// Options wires the keypad to the rest of the program.
type Options struct {
	Buttons map[int]config.Button
	Shows   []catalog.Show
	Primary string
	Events  Submitter
	States  StateSource
	Feed    *Feed
	Busy    func() bool
}

type tickMsg time.Time

type keyMap struct {
	Press   key.Binding
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Press, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Press, k.Refresh},
		{k.Help, k.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Press: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("0-9", "press button"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh devices"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// button is one bound keypad button.
type button struct {
	n     int
	label string
	color uint32
}

// Model is the Bubble Tea model of the terminal keypad.
type Model struct {
	opts    Options
	buttons []button
	bound   map[int]bool

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	frame   *display.Frame
	devices []state.DeviceState
	status  string
}

// New creates a keypad model.
func New(opts Options) Model {
	colors := make(map[string]uint32, len(opts.Shows))
	for _, s := range opts.Shows {
		colors[s.Name] = s.Color
	}

	m := Model{
		opts:    opts,
		bound:   make(map[int]bool, len(opts.Buttons)),
		keys:    newKeyMap(),
		help:    help.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	for n, b := range opts.Buttons {
		m.bound[n] = true
		m.buttons = append(m.buttons, button{n: n, label: label(b, opts.Primary), color: buttonColor(b, colors)})
	}
	sort.Slice(m.buttons, func(i, j int) bool { return m.buttons[i].n < m.buttons[j].n })
	return m
}

func label(b config.Button, primary string) string {
	var s string
	switch b.Action {
	case config.ActionLaunch:
		s = b.Show
	case config.ActionPowerOff:
		s = "Power off"
	case config.ActionVolumeUp:
		s = "Volume +"
	case config.ActionVolumeDown:
		s = "Volume -"
	case config.ActionRefresh:
		s = "Refresh"
	default:
		s = b.Action
	}
	if b.Device != "" && b.Device != primary {
		s += " (" + b.Device + ")"
	}
	return s
}

func buttonColor(b config.Button, shows map[string]uint32) uint32 {
	switch b.Action {
	case config.ActionLaunch:
		if c, ok := shows[b.Show]; ok && c != 0 {
			return c
		}
	case config.ActionVolumeUp:
		return display.VolumeUp
	case config.ActionVolumeDown:
		return display.VolumeDown
	}
	return display.White
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, func() tea.Msg { return tickMsg(time.Now()) }}
	if m.opts.Feed != nil {
		cmds = append(cmds, m.opts.Feed.wait())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Refresh):
			m.submit(scheduler.Refresh())
		case key.Matches(msg, m.keys.Press):
			n := int(msg.String()[0] - '0')
			if !m.bound[n] {
				m.status = fmt.Sprintf("button %d is not bound", n)
				return m, nil
			}
			m.submit(scheduler.ButtonPress(n))
		}
		return m, nil

	case frameMsg:
		f := display.Frame(msg)
		m.frame = &f
		return m, m.opts.Feed.wait()

	case tickMsg:
		if m.opts.States != nil {
			m.devices = m.opts.States.Snapshot()
		}
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) submit(e scheduler.Event) {
	if m.opts.Events == nil || !m.opts.Events.Submit(e) {
		m.status = "busy, " + e.String() + " dropped"
		return
	}
	m.status = "queued " + e.String()
}

var (
	titleStyle  = lipgloss.NewStyle().Foreground(ui.PrimaryColor).Bold(true).Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(ui.MutedColor)
	keyCapStyle = lipgloss.NewStyle().Foreground(ui.TextColor).Bold(true)
)

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("EASYREMOTE KEYPAD"))
	b.WriteString("\n\n")

	if m.frame != nil {
		b.WriteString(display.View(*m.frame))
	} else {
		b.WriteString(mutedStyle.Render("  waiting for display..."))
	}
	b.WriteString("\n\n")

	for _, btn := range m.buttons {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(display.Hex(btn.color)))
		b.WriteString(fmt.Sprintf("  %s %s\n", keyCapStyle.Render(fmt.Sprintf("[%d]", btn.n)), style.Render(btn.label)))
	}
	b.WriteString("\n")

	for _, d := range m.devices {
		b.WriteString("  " + deviceLine(d) + "\n")
	}

	status := m.status
	if m.opts.Busy != nil && m.opts.Busy() {
		status = m.spinner.View() + " working"
	}
	if status != "" {
		b.WriteString("\n  " + mutedStyle.Render(status) + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return b.String()
}

func deviceLine(d state.DeviceState) string {
	marker := lipgloss.NewStyle().Foreground(ui.ErrorColor).Render(ui.FailureMarker)
	if d.Reachable {
		marker = lipgloss.NewStyle().Foreground(ui.SuccessColor).Render(ui.SuccessMarker)
	}
	line := fmt.Sprintf("%s %s", marker, d.Name)
	if !d.ActiveApp.IsUnknown() {
		line += " " + mutedStyle.Render("·") + " " + d.AppName()
	}
	if d.Show != "" {
		line += " " + mutedStyle.Render("·") + " " + d.Show
	}
	return line
}

// Run shows the keypad until the user quits or ctx is done.
func Run(ctx context.Context, m Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
