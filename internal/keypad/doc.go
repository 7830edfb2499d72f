// Package keypad is a terminal stand-in for the physical keypad and LED
// matrix.
//
// The Bubble Tea model lists every bound button with the show color it
// launches, mirrors the display frames it receives through a Feed, and shows
// the tracked device state. Digit keys press the matching button: the press
// is submitted to the scheduler exactly as a hardware press would be, so the
// busy gate and the one-event-per-tick rule still apply.
//
// # Usage Example
//
//	feed := keypad.NewFeed()
//	manager.AddRenderer(feed)
//	m := keypad.New(keypad.Options{
//	    Buttons: cfg.ButtonMap(),
//	    Shows:   cat.Shows(),
//	    Primary: cfg.Primary().Name,
//	    Events:  sched,
//	    States:  tracker,
//	    Feed:    feed,
//	    Busy:    ctrl.Busy,
//	})
//	return keypad.Run(ctx, m)
package keypad
