package display

import (
	"fmt"
	"strings"

	"github.com/muurk/easyremote/internal/catalog"
)

// Kind names a screen.
type Kind int

const (
	KindLoading Kind = iota
	KindDefault
	KindNowPlaying
	KindExiting
	KindVolume
	KindPowerOff
	KindDeviceStarting
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindDefault:
		return "default"
	case KindNowPlaying:
		return "now_playing"
	case KindExiting:
		return "exiting"
	case KindVolume:
		return "volume"
	case KindPowerOff:
		return "power_off"
	case KindDeviceStarting:
		return "device_starting"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	for c := KindLoading; c <= KindDeviceStarting; c++ {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown screen kind %q", text)
}

// Palette
const (
	White      uint32 = 0xFFFFFF
	VolumeUp   uint32 = 0xFF4500
	VolumeDown uint32 = 0x8B008B
)

// Screen is one thing the display can show, with its payload.
type Screen struct {
	Kind   Kind   `json:"kind"`
	Show   string `json:"show,omitempty"`
	Color  uint32 `json:"color,omitempty"`
	Up     bool   `json:"up,omitempty"`
	Device string `json:"device,omitempty"`
}

func Loading() Screen {
	return Screen{Kind: KindLoading}
}

func Default() Screen {
	return Screen{Kind: KindDefault}
}

func NowPlaying(show catalog.Show) Screen {
	return Screen{Kind: KindNowPlaying, Show: show.Name, Color: show.Color}
}

// Exiting shows the show being left. An empty name is allowed when the
// running show is not known.
func Exiting(show string, color uint32) Screen {
	return Screen{Kind: KindExiting, Show: show, Color: color}
}

func Volume(up bool) Screen {
	return Screen{Kind: KindVolume, Up: up}
}

func PowerOff() Screen {
	return Screen{Kind: KindPowerOff}
}

// DeviceStarting announces a scheduled start on a device other than the one
// the keypad drives.
func DeviceStarting(label string) Screen {
	return Screen{Kind: KindDeviceStarting, Device: label}
}

// Matrix geometry in pixels.
const (
	Width     = 64
	Height    = 32
	CharWidth = 5
)

// Block is one line of text placed on the matrix.
type Block struct {
	Text  string `json:"text"`
	Color uint32 `json:"color"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
}

// Rows for two-line and three-line screens.
var (
	twoLineRows   = []int{Height/2 - 12, Height/2 + 2}
	threeLineRows = []int{Height/2 - 12, Height/2 - 3, Height/2 + 3}
)

// Layout places a screen's text. It is pure: the same screen and shows always
// give the same blocks.
func Layout(s Screen, shows []catalog.Show) []Block {
	switch s.Kind {
	case KindLoading:
		return twoLines("LOADING", White, "PLEASE WAIT", White)
	case KindDefault:
		blocks := make([]Block, 0, len(shows))
		for i, show := range shows {
			y := threeLineRows[len(threeLineRows)-1] + (i-len(threeLineRows)+1)*6
			if i < len(threeLineRows) {
				y = threeLineRows[i]
			}
			blocks = append(blocks, place(show.Name, show.Color, y))
		}
		return blocks
	case KindNowPlaying:
		return twoLines("NOW PLAYING", White, s.Show, colorOr(s.Color))
	case KindExiting:
		if s.Show == "" {
			return []Block{place("EXITING", White, twoLineRows[0])}
		}
		return twoLines("EXITING", White, s.Show, colorOr(s.Color))
	case KindVolume:
		if s.Up {
			return []Block{place("SOUND UP", VolumeUp, Height/2)}
		}
		return []Block{place("SOUND DOWN", VolumeDown, Height/2)}
	case KindPowerOff:
		return twoLines("POWER OFF", White, "GOODBYE", White)
	case KindDeviceStarting:
		return twoLines(strings.ToUpper(s.Device)+" TV", White, "STARTING", White)
	}
	return nil
}

func twoLines(first string, firstColor uint32, second string, secondColor uint32) []Block {
	return []Block{
		place(first, firstColor, twoLineRows[0]),
		place(second, secondColor, twoLineRows[1]),
	}
}

// place centers text horizontally; text wider than the matrix starts at 0.
func place(text string, color uint32, y int) Block {
	x := (Width - len([]rune(text))*CharWidth) / 2
	if x < 0 {
		x = 0
	}
	return Block{Text: text, Color: color, X: x, Y: y}
}

func colorOr(c uint32) uint32 {
	if c == 0 {
		return White
	}
	return c
}
