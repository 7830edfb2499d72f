// Package scheduler is the controller's main loop.
//
// Run calls Step every tick. A step handles at most one queued event (a
// keypad button, or a launch/power-off/volume request from the HTTP or MQTT
// surfaces), then refreshes every device once per refresh interval, and once
// per interaction interval redraws the idle screen, sends keep-alives and
// evaluates the daily rules.
//
// Events queue on a buffered channel. Submit never blocks; when the queue is
// full the event is dropped with a warning. Nothing preempts a running
// sequence: an event waits until control returns to the top of the loop.
//
// # Daily Rules
//
// Each configured schedule becomes up to three rules:
//
//	schedule:
//	  - device: primary
//	    start: "06:29"       # launch the show
//	    stop: "21:00"        # power off
//	    show: Good Witch
//	    reboot: true         # reboot reboot_lead (20m) before start
//
// A rule fires once when now falls in [At, At+fire_window) and records the
// date of that occurrence, so it never fires twice on the same day.
package scheduler
