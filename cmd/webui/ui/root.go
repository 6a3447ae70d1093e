package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	requestTimeout = 15 * time.Second
	// uploadTimeout covers multipart firmware uploads.
	uploadTimeout = 5 * time.Minute
	pollInterval  = 250 * time.Millisecond
)

type state int

const (
	stateLogin state = iota
	stateDashboard
	stateTarget
)

// BackToDashboardMsg signals transition back to dashboard
type BackToDashboardMsg struct{}

type logoutDoneMsg struct{}

type RootModel struct {
	State     state
	Session   *Session
	Login     LoginModel
	Dashboard DashboardModel
	Detail    TargetDetailModel
	Quitting  bool
	width     int
	height    int
}

func NewRootModel(server string) RootModel {
	s := NewSession()
	return RootModel{
		State:   stateLogin,
		Session: s,
		Login:   NewLoginModel(s, server),
	}
}

func (m RootModel) Init() tea.Cmd {
	return m.Login.Init()
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.Quitting = true
			return m, tea.Quit
		}

	case loginResultMsg:
		if msg.Err == nil {
			m.State = stateDashboard
			m.Login.Busy = false
			m.Dashboard = NewDashboardModel(m.Session, m.width, m.height)
			return m, m.Dashboard.Init()
		}

	case logoutMsg:
		s := m.Session
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			_ = s.Logout(ctx)
			return logoutDoneMsg{}
		}

	case logoutDoneMsg:
		m.State = stateLogin
		m.Login = NewLoginModel(m.Session, m.Session.BaseURL)
		return m, m.Login.Init()
	}

	switch m.State {
	case stateLogin:
		m.Login, cmd = m.Login.Update(msg)

	case stateDashboard:
		if sel, ok := msg.(TargetSelectedMsg); ok {
			m.State = stateTarget
			m.Detail = NewTargetDetailModel(m.Session, sel.Target, m.width, m.height)
			return m, m.Detail.Init()
		}
		m.Dashboard, cmd = m.Dashboard.Update(msg)

	case stateTarget:
		if _, ok := msg.(BackToDashboardMsg); ok {
			m.State = stateDashboard
			return m, m.Dashboard.RefreshCmd()
		}
		m.Detail, cmd = m.Detail.Update(msg)
	}

	return m, cmd
}

func (m RootModel) View() string {
	if m.Quitting {
		return "Bye!\n"
	}
	switch m.State {
	case stateLogin:
		return m.Login.View()
	case stateDashboard:
		return m.Dashboard.View()
	case stateTarget:
		return m.Detail.View()
	}
	return "Unknown state"
}
