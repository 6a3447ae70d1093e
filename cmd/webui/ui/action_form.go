package ui

import (
	"context"
	"fmt"
	"strings"

	"fota-manager/backend/app/dto"
	"fota-manager/backend/app/services"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type FormState int

const (
	StateSelecting FormState = iota
	StateFilling
)

type actionItem struct {
	title, desc string
	index       int
}

func (i actionItem) Title() string       { return i.title }
func (i actionItem) Description() string { return i.desc }
func (i actionItem) FilterValue() string { return i.title }

// actionDoneMsg reports a submitted action. Job is set for pushes.
type actionDoneMsg struct {
	Action string
	Log    string
	Job    *services.PushJob
	Err    error
}

type FieldDef struct {
	Key         string
	Name        string
	Placeholder string
	Required    bool
	Secret      bool
}

type ActionDef struct {
	Name        string
	Description string
	Fields      []FieldDef
	AdminOnly   bool
	// Run talks to the server; target is the target type in view, if any.
	Run func(ctx context.Context, s *Session, target string, v map[string]string) (string, *services.PushJob, error)
}

var (
	fieldVersion  = FieldDef{Key: "version", Name: "Version", Placeholder: "e.g. 2.0.0", Required: true}
	fieldSerial   = FieldDef{Key: "vcu_serial", Name: "VCU serial", Placeholder: "e.g. SN001", Required: true}
	fieldFilePath = FieldDef{Key: "file", Name: "Binary path", Placeholder: "/path/to/firmware.bin", Required: true}
)

var addUserAction = ActionDef{
	Name:        "Add user",
	Description: "Create a login for another operator",
	AdminOnly:   true,
	Fields: []FieldDef{
		{Key: "user_id", Name: "User ID", Placeholder: "operator", Required: true},
		{Key: "password", Name: "Password", Required: true, Secret: true},
	},
	Run: func(ctx context.Context, s *Session, _ string, v map[string]string) (string, *services.PushJob, error) {
		if err := s.AddUser(ctx, v["user_id"], v["password"]); err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("user %s added", v["user_id"]), nil, nil
	},
}

// dashboardActions act on the inventory as a whole.
var dashboardActions = []ActionDef{
	{
		Name:        "Create target type",
		Description: "New target type with its first firmware binary",
		Fields: []FieldDef{
			{Key: "name", Name: "Target type", Placeholder: "e.g. ECU-X", Required: true},
			fieldVersion,
			fieldFilePath,
		},
		Run: func(ctx context.Context, s *Session, _ string, v map[string]string) (string, *services.PushJob, error) {
			if err := s.CreateTarget(ctx, v["name"], v["version"], v["file"]); err != nil {
				return "", nil, err
			}
			return fmt.Sprintf("target type %s created with %s", v["name"], v["version"]), nil, nil
		},
	},
	addUserAction,
}

// targetActions act on the target type shown in the detail view.
var targetActions = []ActionDef{
	{
		Name:        "Push firmware",
		Description: "Send a stored version to one device",
		Fields:      []FieldDef{fieldSerial, fieldVersion},
		Run: func(ctx context.Context, s *Session, target string, v map[string]string) (string, *services.PushJob, error) {
			job, err := s.StartPush(ctx, target, v["vcu_serial"], v["version"])
			if err != nil {
				return "", nil, err
			}
			return fmt.Sprintf("push %s -> %s started (%s)", job.ToVersion, job.VCUSerial, job.State), job, nil
		},
	},
	{
		Name:        "Add device",
		Description: "Register a vehicle unit in the ledger",
		Fields: []FieldDef{
			fieldSerial,
			{Key: "ip_address", Name: "IP address", Placeholder: "e.g. 10.0.0.5"},
			{Key: "firmware_version", Name: "Installed version", Placeholder: "e.g. 1.0.0"},
		},
		Run: func(ctx context.Context, s *Session, target string, v map[string]string) (string, *services.PushJob, error) {
			req := dto.AddDeviceRequest{Target: target, VCUSerial: v["vcu_serial"], IPAddress: v["ip_address"], FirmwareVersion: v["firmware_version"]}
			if err := s.AddDevice(ctx, req); err != nil {
				return "", nil, err
			}
			return fmt.Sprintf("device %s added", v["vcu_serial"]), nil, nil
		},
	},
	{
		Name:        "Upload version",
		Description: "Store a new firmware binary for this target type",
		Fields:      []FieldDef{fieldVersion, fieldFilePath},
		Run: func(ctx context.Context, s *Session, target string, v map[string]string) (string, *services.PushJob, error) {
			if err := s.AddVersion(ctx, target, v["version"], v["file"]); err != nil {
				return "", nil, err
			}
			return fmt.Sprintf("version %s uploaded", v["version"]), nil, nil
		},
	},
	addUserAction,
}

// ActionFormModel picks an action from a list and then collects its fields.
type ActionFormModel struct {
	Target   string
	Session  *Session
	Actions  []ActionDef
	State    FormState
	List     list.Model
	Inputs   []textinput.Model
	Focused  int
	Selected int
	// Prefill seeds fields by key when an action is opened.
	Prefill map[string]string
	Busy    bool
	Err     error
}

func NewActionFormModel(title, target string, session *Session, actions []ActionDef, width, height int) ActionFormModel {
	var allowed []ActionDef
	for _, a := range actions {
		if a.AdminOnly && !session.IsAdmin {
			continue
		}
		allowed = append(allowed, a)
	}
	items := make([]list.Item, 0, len(allowed))
	for i, a := range allowed {
		items = append(items, actionItem{title: a.Name, desc: a.Description, index: i})
	}

	l := list.New(items, list.NewDefaultDelegate(), width, max(height, 8))
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	return ActionFormModel{
		Target:  target,
		Session: session,
		Actions: allowed,
		State:   StateSelecting,
		List:    l,
		Prefill: map[string]string{},
	}
}

func (m *ActionFormModel) initInputs() {
	if m.Selected < 0 || m.Selected >= len(m.Actions) {
		m.Selected = 0
	}
	a := m.Actions[m.Selected]
	m.Inputs = make([]textinput.Model, len(a.Fields))
	for i, field := range a.Fields {
		ti := textinput.New()
		ti.Placeholder = field.Placeholder
		ti.CharLimit = 256
		if field.Secret {
			ti.EchoMode = textinput.EchoPassword
		}
		if v := m.Prefill[field.Key]; v != "" {
			ti.SetValue(v)
		}
		if i == 0 {
			ti.Focus()
		}
		m.Inputs[i] = ti
	}
	m.Focused = 0
	m.Err = nil
}

func (m ActionFormModel) Init() tea.Cmd {
	return nil
}

// Filling reports whether the form is collecting field values.
func (m ActionFormModel) Filling() bool { return m.State == StateFilling }

// Done applies the outcome of a submitted action.
func (m *ActionFormModel) Done(msg actionDoneMsg) {
	m.Busy = false
	if msg.Err != nil {
		m.Err = msg.Err
		return
	}
	m.State = StateSelecting
	m.Inputs = nil
}

func (m ActionFormModel) Update(msg tea.Msg) (ActionFormModel, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	if len(m.Actions) == 0 {
		return m, nil
	}

	if m.State == StateSelecting {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch msg.String() {
			case "enter":
				if i, ok := m.List.SelectedItem().(actionItem); ok {
					m.Selected = i.index
					m.State = StateFilling
					m.initInputs()
					return m, textinput.Blink
				}
			case "up", "k":
				m.List.CursorUp()
				return m, nil
			case "down", "j":
				m.List.CursorDown()
				return m, nil
			}
		case tea.WindowSizeMsg:
			m.List.SetWidth(msg.Width)
			m.List.SetHeight(msg.Height)
		}
		m.List, cmd = m.List.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		if m.Busy {
			return m, nil
		}
		switch key.String() {
		case "esc":
			m.State = StateSelecting
			return m, nil
		case "enter":
			if m.Focused == len(m.Inputs) {
				cmd = m.submit()
				return m, cmd
			} else if m.Focused == len(m.Inputs)+1 {
				m.State = StateSelecting
				return m, nil
			}
			m.move(1)
			return m, nil
		case "tab", "down":
			m.move(1)
			return m, nil
		case "shift+tab", "up":
			m.move(-1)
			return m, nil
		}
	}
	if m.Focused >= 0 && m.Focused < len(m.Inputs) {
		m.Inputs[m.Focused], cmd = m.Inputs[m.Focused].Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// move cycles focus over the inputs plus the Submit and Back buttons.
func (m *ActionFormModel) move(delta int) {
	n := len(m.Inputs) + 2
	m.Focused = (m.Focused + delta + n) % n
	for i := range m.Inputs {
		if i == m.Focused {
			m.Inputs[i].Focus()
		} else {
			m.Inputs[i].Blur()
		}
	}
}

func (m ActionFormModel) values() map[string]string {
	a := m.Actions[m.Selected]
	v := make(map[string]string, len(a.Fields))
	for i, f := range a.Fields {
		val := m.Inputs[i].Value()
		if !f.Secret {
			val = strings.TrimSpace(val)
		}
		v[f.Key] = val
	}
	return v
}

// missing returns the first required field left empty.
func (m ActionFormModel) missing() string {
	v := m.values()
	for _, f := range m.Actions[m.Selected].Fields {
		if f.Required && v[f.Key] == "" {
			return f.Name
		}
	}
	return ""
}

func (m *ActionFormModel) submit() tea.Cmd {
	if name := m.missing(); name != "" {
		m.Err = fmt.Errorf("%s is required", name)
		return nil
	}
	m.Busy = true
	m.Err = nil
	a := m.Actions[m.Selected]
	s, target, v := m.Session, m.Target, m.values()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		defer cancel()
		log, job, err := a.Run(ctx, s, target, v)
		return actionDoneMsg{Action: a.Name, Log: log, Job: job, Err: err}
	}
}

func (m ActionFormModel) renderButton(text string, focused bool) string {
	if focused {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("205")).Padding(0, 3).Bold(true).Render(text)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("254")).Background(lipgloss.Color("240")).Padding(0, 3).Render(text)
}

func (m ActionFormModel) View() string {
	if len(m.Actions) == 0 {
		return blurredStyle.Render("No actions available")
	}
	if m.State == StateSelecting {
		return m.List.View()
	}

	a := m.Actions[m.Selected]
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Render(a.Name) + "\n\n")

	for i, field := range a.Fields {
		label := field.Name
		if field.Required {
			label += " *"
		}
		ls := labelStyle
		if i == m.Focused {
			ls = ls.Foreground(lipgloss.Color("205")).Bold(true)
		}
		b.WriteString(ls.Render(label) + "\n")
		b.WriteString(m.Inputs[i].View() + "\n\n")
	}

	submit := m.renderButton("Submit", m.Focused == len(m.Inputs))
	back := m.renderButton("Back", m.Focused == len(m.Inputs)+1)
	b.WriteString("\n" + lipgloss.JoinHorizontal(lipgloss.Top, submit, lipgloss.NewStyle().MarginLeft(2).Render(back)))

	if m.Busy {
		b.WriteString("\n\n" + statusMessageStyle("Working..."))
	}
	if m.Err != nil {
		b.WriteString("\n\n" + errorMessageStyle(m.Err.Error()))
	}
	return b.String()
}
