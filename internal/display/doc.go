// Package display renders the controller's small set of screens.
//
// A Screen names what to show (loading, default menu, now playing, exiting,
// volume, power off, device starting). Layout turns it into text blocks on a
// 64x32 matrix; Manager keeps the current frame and the "default is up" flag
// and hands every frame to its renderers. Terminal draws frames with
// lipgloss; the server mirrors them to websocket clients.
package display
