package ecp

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Key is a remote-control key name as the device expects it in a keypress path.
type Key string

const (
	KeyHome       Key = "Home"
	KeyRight      Key = "Right"
	KeyLeft       Key = "Left"
	KeyUp         Key = "Up"
	KeyDown       Key = "Down"
	KeyBack       Key = "Back"
	KeySelect     Key = "Select"
	KeyVolumeUp   Key = "VolumeUp"
	KeyVolumeDown Key = "VolumeDown"
	KeyPowerOn    Key = "PowerOn"
	KeyPowerOff   Key = "PowerOff"
)

// literalPrefix marks a keypress that types one character.
const literalPrefix = "Lit_"

// ParseKey resolves a key name case-insensitively ("right", "Right", "RIGHT").
func ParseKey(name string) (Key, bool) {
	for _, k := range []Key{
		KeyHome, KeyRight, KeyLeft, KeyUp, KeyDown, KeyBack, KeySelect,
		KeyVolumeUp, KeyVolumeDown, KeyPowerOn, KeyPowerOff,
	} {
		if strings.EqualFold(string(k), name) {
			return k, true
		}
	}
	return "", false
}

// Command is one request to a device: a keypress, a launch or a query.
type Command struct {
	Method string
	Path   string
}

// String returns the request path.
func (c Command) String() string {
	return c.Path
}

// IsQuery reports whether the command returns a payload.
func (c Command) IsQuery() bool {
	return c.Method == http.MethodGet
}

// IsLiteral reports whether the command types a character.
func (c Command) IsLiteral() bool {
	return strings.HasPrefix(c.Path, "keypress/"+literalPrefix)
}

// IsLaunch reports whether the command launches an app.
func (c Command) IsLaunch() bool {
	return strings.HasPrefix(c.Path, "launch/")
}

// Keypress builds a keypress command.
func Keypress(k Key) Command {
	return Command{Method: http.MethodPost, Path: "keypress/" + string(k)}
}

// Literal builds a keypress command typing r. The character is path escaped
// so spaces and punctuation survive ("Lit_%20", "Lit_%3F").
func Literal(r rune) Command {
	return Command{Method: http.MethodPost, Path: "keypress/" + literalPrefix + url.PathEscape(string(r))}
}

// Launch builds a launch command for an app id.
func Launch(app int) Command {
	return Command{Method: http.MethodPost, Path: "launch/" + strconv.Itoa(app)}
}

var (
	// QueryActiveApp asks which app is in the foreground.
	QueryActiveApp = Command{Method: http.MethodGet, Path: "query/active-app"}

	// QueryMediaPlayer asks for the media player state.
	QueryMediaPlayer = Command{Method: http.MethodGet, Path: "query/media-player"}
)
