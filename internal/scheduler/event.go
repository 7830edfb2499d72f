package scheduler

import "fmt"

// EventKind identifies what an input event asks for.
type EventKind int

const (
	EventButton EventKind = iota
	EventLaunch
	EventPowerOff
	EventVolume
	EventRefresh
)

func (k EventKind) String() string {
	switch k {
	case EventButton:
		return "button"
	case EventLaunch:
		return "launch"
	case EventPowerOff:
		return "power_off"
	case EventVolume:
		return "volume"
	case EventRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Event is one queued input: a keypad button or a request from the HTTP or
// MQTT surfaces. Device empty means the primary device.
type Event struct {
	Kind   EventKind
	Button int
	Device string
	Show   string
	Up     bool
}

// String returns a short description for logs.
func (e Event) String() string {
	switch e.Kind {
	case EventButton:
		return fmt.Sprintf("button %d", e.Button)
	case EventLaunch:
		return fmt.Sprintf("launch %q on %s", e.Show, e.device())
	case EventVolume:
		dir := "down"
		if e.Up {
			dir = "up"
		}
		return fmt.Sprintf("volume %s on %s", dir, e.device())
	case EventRefresh:
		return "refresh"
	default:
		return fmt.Sprintf("%s on %s", e.Kind, e.device())
	}
}

func (e Event) device() string {
	if e.Device == "" {
		return "primary device"
	}
	return e.Device
}

// ButtonPress is the event for keypad button n.
func ButtonPress(n int) Event {
	return Event{Kind: EventButton, Button: n}
}

// LaunchShow asks for show on device.
func LaunchShow(device, show string) Event {
	return Event{Kind: EventLaunch, Device: device, Show: show}
}

// PowerOffDevice asks for device to be powered off.
func PowerOffDevice(device string) Event {
	return Event{Kind: EventPowerOff, Device: device}
}

// ChangeVolume asks for one volume step on device.
func ChangeVolume(device string, up bool) Event {
	return Event{Kind: EventVolume, Device: device, Up: up}
}

// Refresh asks for every device to be re-read.
func Refresh() Event {
	return Event{Kind: EventRefresh}
}
