// Package ui provides terminal output components for the easyremote CLI.
//
// This package uses Lipgloss (and Bubble Tea for one-shot rendering) to print
// styled output for one-shot commands. Unlike the interactive keypad, these
// components follow a "run once and exit" pattern.
//
// # Components
//
//   - Header: command banner showing operation name and parameters
//   - Result: success, failure and warning boxes with details
//   - Tables: device state, show catalog and scan results
//   - Confirm: typed-phrase confirmation before overwriting files
//
// # Usage Pattern
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Launch", "easyremote launch", map[string]string{
//	    "Device": "primary",
//	    "Show":   "Good Witch",
//	})
//	if err := ctrl.Launch(ctx, "primary", "Good Witch"); err != nil {
//	    p.PrintError("Launch failed", err, []string{"Check the device is powered on"})
//	    return err
//	}
//	p.PrintSuccess("Good Witch launched", nil)
//
// # Logging Integration
//
// This package expects logging to be controlled via the EASYREMOTE_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated UI output to be displayed cleanly.
package ui
