// Package logging provides structured logging for easyremote.
//
// This package wraps zap logger with convenience functions for the logging
// patterns used throughout the controller: general messages plus a few
// domain helpers for device commands and sequencer transitions.
//
// # Log Levels
//
//   - Debug: every keypress and query sent to a device
//   - Info: sequencer transitions, state refreshes, schedule rules firing
//   - Warn: failed commands (treated as no-ops), dropped input events
//   - Error: startup failures and surfaces that stop unexpectedly
//
// # Structured Logging
//
//	logging.Info("Launching show",
//	    zap.String("device", "primary"),
//	    zap.String("show", "Good Witch"),
//	    zap.Int("app", 12),
//	)
//
// # Silent Mode
//
// Logging is silent unless a level is passed to Initialize or the
// EASYREMOTE_LOG_LEVEL environment variable is set:
//
//	EASYREMOTE_LOG_LEVEL=debug easyremote run
//
// Network credentials are never passed as log fields.
package logging
