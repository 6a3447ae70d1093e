package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type LoginModel struct {
	Session  *Session
	Inputs   []textinput.Model
	FocusIdx int
	Err      error
	Busy     bool
}

const (
	inputServer = iota
	inputUserID
	inputPassword
)

// loginResultMsg carries the outcome of the /login call.
type loginResultMsg struct {
	Err error
}

func NewLoginModel(s *Session, server string) LoginModel {
	inputs := make([]textinput.Model, 3)

	inputs[inputServer] = textinput.New()
	inputs[inputServer].Placeholder = "http://127.0.0.1:9400"
	inputs[inputServer].Focus()
	inputs[inputServer].Prompt = "Server: "
	inputs[inputServer].SetValue(server)

	inputs[inputUserID] = textinput.New()
	inputs[inputUserID].Placeholder = "admin"
	inputs[inputUserID].Prompt = "User ID: "

	inputs[inputPassword] = textinput.New()
	inputs[inputPassword].Placeholder = "password"
	inputs[inputPassword].EchoMode = textinput.EchoPassword
	inputs[inputPassword].Prompt = "Password: "

	for i := range inputs {
		inputs[i].PromptStyle = blurredStyle
	}
	inputs[inputServer].PromptStyle = focusedStyle

	return LoginModel{
		Session:  s,
		Inputs:   inputs,
		FocusIdx: 0,
	}
}

func (m LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m LoginModel) Update(msg tea.Msg) (LoginModel, tea.Cmd) {
	cmds := make([]tea.Cmd, len(m.Inputs))

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.Busy {
			return m, nil
		}
		switch msg.Type {
		case tea.KeyEnter:
			if m.FocusIdx == len(m.Inputs)-1 {
				m.Busy = true
				m.Err = nil
				return m, m.LoginCmd()
			}
			m.nextInput()
		case tea.KeyTab, tea.KeyDown:
			m.nextInput()
		case tea.KeyShiftTab, tea.KeyUp:
			m.prevInput()
		}

	case loginResultMsg:
		m.Busy = false
		m.Err = msg.Err
		if msg.Err != nil {
			m.Inputs[inputPassword].SetValue("")
		}
		return m, nil
	}

	for i := range m.Inputs {
		m.Inputs[i], cmds[i] = m.Inputs[i].Update(msg)
	}

	return m, tea.Batch(cmds...)
}

func (m *LoginModel) setFocus(i int) {
	m.Inputs[m.FocusIdx].Blur()
	m.Inputs[m.FocusIdx].PromptStyle = blurredStyle
	m.FocusIdx = i
	m.Inputs[m.FocusIdx].Focus()
	m.Inputs[m.FocusIdx].PromptStyle = focusedStyle
}

func (m *LoginModel) nextInput() {
	m.setFocus((m.FocusIdx + 1) % len(m.Inputs))
}

func (m *LoginModel) prevInput() {
	m.setFocus((m.FocusIdx - 1 + len(m.Inputs)) % len(m.Inputs))
}

// LoginCmd snapshots the form values; the returned command runs off the UI loop.
func (m LoginModel) LoginCmd() tea.Cmd {
	server := m.Inputs[inputServer].Value()
	userID := strings.TrimSpace(m.Inputs[inputUserID].Value())
	password := m.Inputs[inputPassword].Value()
	s := m.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return loginResultMsg{Err: s.Login(ctx, server, userID, password)}
	}
}

func (m LoginModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("FOTA Manager - Login") + "\n\n")

	for i := range m.Inputs {
		b.WriteString(m.Inputs[i].View())
		if i < len(m.Inputs)-1 {
			b.WriteRune('\n')
		}
	}

	b.WriteString("\n\n")
	if m.Busy {
		b.WriteString(statusMessageStyle("Signing in..."))
	} else {
		b.WriteString(blurredStyle.Render("Press Tab to change fields, Enter on the password to sign in"))
	}

	if m.Err != nil {
		b.WriteString("\n\n")
		b.WriteString(errorMessageStyle(m.Err.Error()))
	}

	return docStyle.Render(b.String())
}
