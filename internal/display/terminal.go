package display

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// clearScreen moves the cursor home and clears the terminal.
const clearScreen = "\x1b[H\x1b[2J"

var matrixBorder = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#626262")).
	Padding(0, 1)

// Terminal draws frames as colored text in a bordered box, standing in for
// the LED matrix.
type Terminal struct {
	mu    sync.Mutex
	out   io.Writer
	clear bool
}

// NewTerminal creates a terminal renderer. With clear set, every frame wipes
// the screen first.
func NewTerminal(out io.Writer, clear bool) *Terminal {
	return &Terminal{out: out, clear: clear}
}

// Render implements Renderer.
func (t *Terminal) Render(f Frame) error {
	view := View(f)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.clear {
		view = clearScreen + view
	}
	_, err := io.WriteString(t.out, view+"\n")
	return err
}

// View renders a frame as a string: one line per block, top to bottom,
// indented by the block's column.
func View(f Frame) string {
	blocks := make([]Block, len(f.Blocks))
	copy(blocks, f.Blocks)
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Y < blocks[j].Y })

	lines := make([]string, 0, len(blocks))
	for _, b := range blocks {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(Hex(b.Color)))
		lines = append(lines, strings.Repeat(" ", b.X/CharWidth)+style.Render(b.Text))
	}
	return matrixBorder.Render(strings.Join(lines, "\n"))
}

// Hex formats a 24-bit color as "#RRGGBB".
func Hex(c uint32) string {
	return fmt.Sprintf("#%06X", c&0xFFFFFF)
}
