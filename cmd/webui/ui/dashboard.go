package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxLogLines bounds the session log tail shown under the table.
const maxLogLines = 8

type DashboardModel struct {
	Session *Session
	Table   table.Model
	Targets []TargetEntry
	Form    ActionFormModel
	Focus   int
	Logs    []string
	Status  string
	Err     error
	width   int
}

type TargetEntry struct {
	Name     string
	Versions []string
}

func (e TargetEntry) Latest() string {
	if len(e.Versions) == 0 {
		return "-"
	}
	return e.Versions[len(e.Versions)-1]
}

type TargetSelectedMsg struct {
	Target string
}

type targetsLoadedMsg struct {
	Targets []TargetEntry
	Err     error
}

type logsLoadedMsg struct {
	Logs []string
	Err  error
}

type logoutMsg struct{}

func NewDashboardModel(s *Session, width, height int) DashboardModel {
	columns := []table.Column{
		{Title: "Target type", Width: 24},
		{Title: "Versions", Width: 9},
		{Title: "Latest", Width: 12},
	}
	return DashboardModel{
		Session: s,
		Table:   newTable(columns, height-14),
		Form:    NewActionFormModel("Inventory actions", "", s, dashboardActions, max(width/2-8, 20), height/2),
		Focus:   FocusTable,
		width:   width,
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return m.RefreshCmd()
}

// RefreshCmd lists target types and then each one's versions.
func (m DashboardModel) RefreshCmd() tea.Cmd {
	s := m.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		names, err := s.Targets(ctx)
		if err != nil {
			return targetsLoadedMsg{Err: err}
		}
		entries := make([]TargetEntry, 0, len(names))
		for _, n := range names {
			versions, err := s.Versions(ctx, n)
			if err != nil {
				return targetsLoadedMsg{Err: fmt.Errorf("%s: %w", n, err)}
			}
			entries = append(entries, TargetEntry{Name: n, Versions: versions})
		}
		return targetsLoadedMsg{Targets: entries}
	}
}

func (m DashboardModel) logsCmd() tea.Cmd {
	s := m.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		logs, err := s.Logs(ctx)
		return logsLoadedMsg{Logs: logs, Err: err}
	}
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.Focus == FocusForm {
			if msg.String() == "tab" && !m.Form.Filling() {
				m.Focus = FocusTable
				m.Table.Focus()
				return m, nil
			}
			m.Form, cmd = m.Form.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "tab", "n":
			m.Focus = FocusForm
			m.Table.Blur()
			return m, nil
		case "r":
			m.Status = "refreshing..."
			return m, m.RefreshCmd()
		case "l":
			return m, m.logsCmd()
		case "x":
			return m, func() tea.Msg { return logoutMsg{} }
		case "enter":
			selected := m.Table.SelectedRow()
			if len(selected) > 0 {
				return m, func() tea.Msg {
					return TargetSelectedMsg{Target: selected[0]}
				}
			}
		case "q":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.Table.SetHeight(max(msg.Height-14, 3))
		m.Form, _ = m.Form.Update(tea.WindowSizeMsg{Width: max(msg.Width/2-8, 20), Height: max(msg.Height/2, 8)})
		return m, nil

	case targetsLoadedMsg:
		m.Status = ""
		m.Err = msg.Err
		if msg.Err != nil {
			return m, nil
		}
		m.Targets = msg.Targets
		rows := make([]table.Row, len(msg.Targets))
		for i, t := range msg.Targets {
			rows[i] = table.Row{t.Name, strconv.Itoa(len(t.Versions)), t.Latest()}
		}
		m.Table.SetRows(rows)
		return m, nil

	case logsLoadedMsg:
		m.Err = msg.Err
		m.Logs = msg.Logs
		if len(m.Logs) > maxLogLines {
			m.Logs = m.Logs[len(m.Logs)-maxLogLines:]
		}
		return m, nil

	case actionDoneMsg:
		m.Form.Done(msg)
		if msg.Err != nil {
			return m, nil
		}
		m.Status = msg.Log
		m.Focus = FocusTable
		m.Table.Focus()
		return m, m.RefreshCmd()
	}

	if m.Focus == FocusTable {
		m.Table, cmd = m.Table.Update(msg)
	} else {
		m.Form, cmd = m.Form.Update(msg)
	}
	return m, cmd
}

func (m DashboardModel) View() string {
	var b strings.Builder
	who := m.Session.UserID
	if m.Session.IsAdmin {
		who += " (admin)"
	}
	b.WriteString(titleStyle.Render("FOTA Manager - Target types") + "  " + blurredStyle.Render(who) + "\n\n")
	b.WriteString(m.Table.View())
	if m.Status != "" {
		b.WriteString("\n" + statusMessageStyle(m.Status))
	}
	if m.Err != nil {
		b.WriteString("\n" + errorMessageStyle(m.Err.Error()))
	}
	if len(m.Logs) > 0 {
		b.WriteString("\n\n" + headerStyle.Render("Session log:") + "\n" + blurredStyle.Render(strings.Join(m.Logs, "\n")))
	}

	leftStyle, rightStyle := panes(m.Focus == FocusTable, m.width)
	content := lipgloss.JoinHorizontal(lipgloss.Top, leftStyle.Render(b.String()), rightStyle.Render(m.Form.View()))
	help := helpStyle.Render("Enter: Open • Tab/n: Actions • r: Refresh • l: Session log • x: Logout • q: Quit")
	return lipgloss.JoinVertical(lipgloss.Left, content, help)
}
