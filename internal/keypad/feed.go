package keypad

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/easyremote/internal/display"
)

// frameMsg carries a rendered frame into the model.
type frameMsg display.Frame

// Feed hands display frames to the keypad model. It implements
// display.Renderer and never blocks: when the model falls behind, only the
// newest frame is kept.
type Feed struct {
	frames chan display.Frame
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{frames: make(chan display.Frame, 1)}
}

// Render implements display.Renderer.
func (f *Feed) Render(frame display.Frame) error {
	for {
		select {
		case f.frames <- frame:
			return nil
		default:
		}
		select {
		case <-f.frames:
		default:
		}
	}
}

// wait returns a command delivering the next frame.
func (f *Feed) wait() tea.Cmd {
	return func() tea.Msg {
		return frameMsg(<-f.frames)
	}
}
