package ui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var (
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	blurredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1)

	statusMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}).
				Render

	errorMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF0000")).
				Render

	docStyle = lipgloss.NewStyle().Padding(1, 2)

	activeBorder   = lipgloss.NewStyle().BorderStyle(lipgloss.ThickBorder()).BorderForeground(lipgloss.Color("205")).Padding(1, 2)
	inactiveBorder = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240")).Padding(1, 2)
)

// stateColors colors ledger update statuses and push states.
var stateColors = map[string]lipgloss.Color{
	"Added":      lipgloss.Color("250"),
	"Pending":    lipgloss.Color("214"),
	"InProgress": lipgloss.Color("214"),
	"Updated":    lipgloss.Color("42"),
	"Up-to-date": lipgloss.Color("42"),
	"Completed":  lipgloss.Color("42"),
	"Failed":     lipgloss.Color("196"),
}

func stateStyle(s string) lipgloss.Style {
	if c, ok := stateColors[s]; ok {
		return lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	return lipgloss.NewStyle()
}

// panes returns the border styles for a left/right split, highlighting the focused side.
func panes(leftFocused bool, width int) (lipgloss.Style, lipgloss.Style) {
	w := max(width/2-6, 20)
	active, inactive := activeBorder.Width(w), inactiveBorder.Width(w)
	if leftFocused {
		return active, inactive
	}
	return inactive, active
}

func newTable(columns []table.Column, height int) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(max(height, 3)),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)
	return t
}
