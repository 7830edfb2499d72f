// Package state caches what each streaming device is doing.
//
// Refresh probes a device and asks it for its active app; Get reads the
// cache; Set is the write-through the sequencer uses right after it launches
// a show, so the next decision does not wait for the hourly refresh.
package state
