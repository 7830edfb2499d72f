package ecp

import (
	"regexp"
	"strconv"
	"strings"
)

// HomeScreenMarker appears on the app line of an active-app response when no
// app is running ("<app>Roku</app>").
const HomeScreenMarker = "Roku"

// DefaultLiveMarkers are the media-player substrings that signal live
// playback. Streaming sticks and boxes report the first, TVs the second.
var DefaultLiveMarkers = []string{
	"<is_live>true</is_live>",
	`<is_live blocked="false">true</is_live>`,
}

// Player states reported by the media-player query.
const (
	PlayerPlay   = "play"
	PlayerPause  = "pause"
	PlayerStop   = "stop"
	PlayerClose  = "close"
	PlayerBuffer = "buffer"
	PlayerNone   = "none"
)

var (
	lineSplit     = regexp.MustCompile(`[\r\n]+`)
	appIDPattern  = regexp.MustCompile(`id="(\d+)"`)
	playerPattern = regexp.MustCompile(`<player[^>]*\bstate="([a-z]+)"`)
)

// ParseActiveApp extracts the app id from an active-app response. The app
// element is on the third line of the document. ok is false for the home
// screen and for anything that does not match.
func ParseActiveApp(body string) (app int, ok bool) {
	lines := lineSplit.Split(strings.TrimSpace(body), -1)
	if len(lines) < 3 {
		return 0, false
	}
	line := lines[2]
	if strings.Contains(line, HomeScreenMarker) && !appIDPattern.MatchString(line) {
		return 0, false
	}
	m := appIDPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// IsLive reports whether a media-player response carries a liveness marker.
// With no markers given, DefaultLiveMarkers are used.
func IsLive(body string, markers ...string) bool {
	if len(markers) == 0 {
		markers = DefaultLiveMarkers
	}
	for _, m := range markers {
		if m != "" && strings.Contains(body, m) {
			return true
		}
	}
	return false
}

// PlayerState returns the state attribute of the player element, or
// PlayerNone when the response has none.
func PlayerState(body string) string {
	m := playerPattern.FindStringSubmatch(body)
	if m == nil {
		return PlayerNone
	}
	return m[1]
}

// IsPausedOrStopped reports whether playback is idle.
func IsPausedOrStopped(body string) bool {
	switch PlayerState(body) {
	case PlayerPause, PlayerStop:
		return true
	}
	return false
}
