package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/muurk/easyremote/internal/catalog"
	"github.com/muurk/easyremote/internal/discovery"
	"github.com/muurk/easyremote/internal/state"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(MutedColor)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle.Padding(0, 1)
			}
			return TableCellStyle.Padding(0, 1)
		})
}

// RenderDeviceTable renders tracked device state, one row per device.
func RenderDeviceTable(states []state.DeviceState) string {
	t := newTable("DEVICE", "ADDRESS", "REACHABLE", "APP", "SHOW", "PLAYER")
	for _, s := range states {
		reachable := FailureMarker
		if s.Reachable {
			reachable = SuccessMarker
		}
		app := "-"
		if !s.ActiveApp.IsUnknown() {
			app = fmt.Sprintf("%s (%d)", s.AppName(), s.ActiveApp)
		}
		t.Row(s.Name, s.Address, reachable, app, orDash(s.Show), orDash(s.Player))
	}
	return t.Render()
}

// RenderShowTable renders the show catalog.
func RenderShowTable(shows []catalog.Show) string {
	t := newTable("SHOW", "APP", "CHANNEL", "COLOR", "BUTTON")
	for _, s := range shows {
		button := "-"
		if s.Button != catalog.NoButton {
			button = strconv.Itoa(s.Button)
		}
		hex := fmt.Sprintf("#%06X", s.Color)
		t.Row(s.Name, fmt.Sprintf("%s (%d)", s.App, s.App), s.Channel, StyledColor(hex).Render(hex), button)
	}
	return t.Render()
}

// RenderScanTable renders discovered devices.
func RenderScanTable(devices []discovery.Device) string {
	t := newTable("NAME", "ADDRESS", "HOSTNAME", "MODEL", "SERIAL")
	for _, d := range devices {
		t.Row(d.Instance, d.Addr(), d.Hostname, orDash(d.Model), orDash(d.Serial))
	}
	return t.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
