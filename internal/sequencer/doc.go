// Package sequencer turns "play show X on device Y" into the keypresses,
// launches and queries that get the device there.
//
// # Launching a Show
//
// Launch reads the cached device state and picks one of two paths:
//
//   - The show's app is already running: the app's shortcut recipe returns to
//     its navigation root, then the show's recipe runs. Nothing is launched.
//   - Anything else: the running app, if the catalog knows it, is exited with
//     its exit recipe (or the device is powered on), the show's app is
//     launched, its post-launch recipe runs, then the show's recipe.
//
// Apps flagged ConfirmLive are then polled for live playback and relaunched
// a bounded number of times. When every relaunch is spent Launch fails with
// ErrConfirmationTimeout.
//
// # Serialization
//
// Every operation holds one process-wide busy gate while it talks to a device.
// A second caller waits, re-checking the gate every GateDelay, until the first
// finishes or its own context is cancelled. Sequences never interleave, even
// across devices.
//
// # Usage Example
//
//	c := sequencer.New(ecpClient, tracker, cat, displayManager, sequencer.Options{})
//	if err := c.Launch(ctx, "primary", "Good Witch"); err != nil {
//	    if errors.Is(err, sequencer.ErrUnreachable) {
//	        // device was off the network at the last refresh
//	    }
//	}
//
// Transport failures of individual keypresses are ignored: the device
// protocol has no acknowledgement, so the fixed delays between commands are
// timing assumptions rather than guarantees.
package sequencer
