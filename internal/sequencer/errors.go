package sequencer

import (
	"errors"
	"fmt"
)

var (
	// ErrUnreachable means the device was not reachable at the last refresh.
	// No command was sent.
	ErrUnreachable = errors.New("device unreachable")

	// ErrUnknownDevice means the device name is not configured.
	ErrUnknownDevice = errors.New("unknown device")

	// ErrUnknownShow means the show name is not in the catalog.
	ErrUnknownShow = errors.New("unknown show")

	// ErrConfirmationTimeout means live playback was never confirmed after
	// every relaunch was spent.
	ErrConfirmationTimeout = errors.New("playback not confirmed")
)

// SequenceError describes a failed controller operation.
type SequenceError struct {
	Op     string // launch, power_off, volume, keep_alive, reboot
	Device string
	Show   string
	Err    error
}

// Error implements the error interface
func (e *SequenceError) Error() string {
	if e.Show != "" {
		return fmt.Sprintf("%s %q on %s: %v", e.Op, e.Show, e.Device, e.Err)
	}
	return fmt.Sprintf("%s on %s: %v", e.Op, e.Device, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *SequenceError) Unwrap() error {
	return e.Err
}

func wrap(op, device, show string, err error) error {
	if err == nil {
		return nil
	}
	return &SequenceError{Op: op, Device: device, Show: show, Err: err}
}
