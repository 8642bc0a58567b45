// internal/ui/table.go

// Package ui renders the host roster for the terminal: a styled table
// for the list command and an interactive picker for switch.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"loon/internal/models"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(highlight)

	activeStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true)

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	footerStyle = lipgloss.NewStyle().
			Foreground(subtle)
)

var hostHeaders = []string{"Alias", "Username", "IP address", "Port"}

// RenderHosts produces the display table for the list command, marking
// the active record as <alias>.
func RenderHosts(reg models.Registry) string {
	rows := make([][]string, 0, len(reg.Available))
	active := make([]bool, 0, len(reg.Available))
	for _, h := range reg.Available {
		alias := h.Alias
		isActive := h.Equal(reg.Active)
		if isActive {
			alias = "<" + alias + ">"
		}
		rows = append(rows, []string{alias, h.Username, h.Address, fmt.Sprintf("%d", h.Port)})
		active = append(active, isActive)
	}

	widths := make([]int, len(hostHeaders))
	for i, h := range hostHeaders {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(formatRow(hostHeaders, widths)))
	b.WriteString("\n")
	for i, row := range rows {
		style := rowStyle
		if active[i] {
			style = activeStyle
		}
		b.WriteString(style.Render(formatRow(row, widths)))
		b.WriteString("\n")
	}
	b.WriteString(footerStyle.Render("<active host>"))
	return b.String()
}

func formatRow(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for i, cell := range cells {
		padded[i] = cell + strings.Repeat(" ", widths[i]-len(cell))
	}
	return strings.Join(padded, "  ")
}
