package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fota-manager/backend/app/dto"
	"fota-manager/backend/app/models"
	"fota-manager/backend/app/services"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TargetDetailModel shows the device ledger of one target type next to the
// action form and the progress of the last push.
type TargetDetailModel struct {
	Session *Session
	Target  string
	Width   int
	Height  int

	Devices  table.Model
	Records  []models.DeviceRecord
	Versions []string
	NextSlNo int

	Form       ActionFormModel
	Log        viewport.Model
	LogContent string

	Progress progress.Model
	Job      *services.PushJob

	Focus int
	Err   error
}

const (
	FocusTable = iota
	FocusForm
)

type targetLoadedMsg struct {
	Target   string
	Devices  *dto.DeviceListResponse
	Versions []string
	Err      error
}

type pollJobMsg struct {
	ID string
}

type jobUpdatedMsg struct {
	Job *services.PushJob
	Err error
}

func NewTargetDetailModel(s *Session, target string, width, height int) TargetDetailModel {
	columns := []table.Column{
		{Title: "Sl", Width: 4},
		{Title: "VCU serial", Width: 14},
		{Title: "IP", Width: 15},
		{Title: "Version", Width: 10},
		{Title: "Status", Width: 11},
	}
	vp := viewport.New(max(width/2-8, 20), 6)
	vp.Style = lipgloss.NewStyle().PaddingLeft(1)

	return TargetDetailModel{
		Session:  s,
		Target:   target,
		Width:    width,
		Height:   height,
		Devices:  newTable(columns, height-14),
		Form:     NewActionFormModel("Actions on "+target, target, s, targetActions, max(width/2-8, 20), height/2),
		Log:      vp,
		Progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(max(width/2-12, 20))),
		Focus:    FocusTable,
	}
}

func (m TargetDetailModel) Init() tea.Cmd {
	return m.load()
}

func (m TargetDetailModel) load() tea.Cmd {
	s, target := m.Session, m.Target
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		devs, err := s.Devices(ctx, target)
		if err != nil {
			return targetLoadedMsg{Target: target, Err: err}
		}
		versions, err := s.Versions(ctx, target)
		return targetLoadedMsg{Target: target, Devices: devs, Versions: versions, Err: err}
	}
}

func (m TargetDetailModel) pollAfter(id string) tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return pollJobMsg{ID: id} })
}

func (m TargetDetailModel) fetchJob(id string) tea.Cmd {
	s := m.Session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		job, err := s.Job(ctx, id)
		return jobUpdatedMsg{Job: job, Err: err}
	}
}

func (m *TargetDetailModel) appendLog(format string, args ...interface{}) {
	line := time.Now().Format(time.TimeOnly) + " " + fmt.Sprintf(format, args...)
	if m.LogContent == "" {
		m.LogContent = line
	} else {
		m.LogContent += "\n" + line
	}
	m.Log.SetContent(m.LogContent)
	m.Log.GotoBottom()
}

// prefill seeds the push form with the selected device and the newest version.
func (m *TargetDetailModel) prefill() {
	if row := m.Devices.SelectedRow(); len(row) > 1 {
		m.Form.Prefill["vcu_serial"] = row[1]
	}
	if n := len(m.Versions); n > 0 {
		m.Form.Prefill["version"] = m.Versions[n-1]
	}
}

func (m *TargetDetailModel) setFocus(f int) {
	m.Focus = f
	if f == FocusTable {
		m.Devices.Focus()
		return
	}
	m.Devices.Blur()
	m.prefill()
}

func (m *TargetDetailModel) resize(width, height int) {
	m.Width, m.Height = width, height
	m.Devices.SetHeight(max(height-14, 3))
	m.Log.Width = max(width/2-8, 20)
	m.Progress.Width = max(width/2-12, 20)
	m.Form, _ = m.Form.Update(tea.WindowSizeMsg{Width: max(width/2-8, 20), Height: max(height/2, 8)})
}

func (m TargetDetailModel) Update(msg tea.Msg) (TargetDetailModel, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.Focus == FocusForm && m.Form.Filling() {
				break
			}
			return m, func() tea.Msg { return BackToDashboardMsg{} }
		case "tab":
			if m.Focus == FocusForm && m.Form.Filling() {
				break
			}
			if m.Focus == FocusTable {
				m.setFocus(FocusForm)
			} else {
				m.setFocus(FocusTable)
			}
			return m, nil
		case "f1":
			m.setFocus(FocusTable)
			return m, nil
		case "f2":
			m.setFocus(FocusForm)
			return m, nil
		case "r":
			if m.Focus == FocusTable {
				return m, m.load()
			}
		case "p":
			if m.Focus == FocusTable && len(m.Actions()) > 0 {
				// shortcut into the push form for the selected row
				m.setFocus(FocusForm)
				m.Form.Selected = 0
				m.Form.State = StateFilling
				m.Form.initInputs()
				return m, nil
			}
		}

	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case targetLoadedMsg:
		if msg.Target != m.Target {
			return m, nil
		}
		m.Err = msg.Err
		if msg.Devices != nil {
			m.Records = msg.Devices.Devices
			m.NextSlNo = msg.Devices.NextSlNo
			rows := make([]table.Row, len(m.Records))
			for i, r := range m.Records {
				sl := r.SlNoRaw
				if r.SlNo > 0 {
					sl = strconv.Itoa(r.SlNo)
				}
				rows[i] = table.Row{sl, r.VCUSerial, r.IPAddress, r.LastFirmwareVersion, string(r.UpdateStatus)}
			}
			m.Devices.SetRows(rows)
		}
		if msg.Versions != nil {
			m.Versions = msg.Versions
		}
		return m, nil

	case actionDoneMsg:
		m.Form.Done(msg)
		if msg.Err != nil {
			m.appendLog("%s failed: %v", msg.Action, msg.Err)
			return m, nil
		}
		m.appendLog("%s", msg.Log)
		cmds = append(cmds, m.load())
		if msg.Job != nil {
			m.Job = msg.Job
			if !msg.Job.State.Terminal() {
				cmds = append(cmds, m.pollAfter(msg.Job.ID))
			}
		}
		m.setFocus(FocusTable)
		return m, tea.Batch(cmds...)

	case pollJobMsg:
		if m.Job == nil || m.Job.ID != msg.ID {
			return m, nil
		}
		return m, m.fetchJob(msg.ID)

	case jobUpdatedMsg:
		if msg.Err != nil {
			m.appendLog("push status: %v", msg.Err)
			return m, nil
		}
		m.Job = msg.Job
		if !msg.Job.State.Terminal() {
			return m, m.pollAfter(msg.Job.ID)
		}
		if msg.Job.Error != "" {
			m.appendLog("push %s -> %s %s: %s", msg.Job.ToVersion, msg.Job.VCUSerial, msg.Job.State, msg.Job.Error)
		} else {
			m.appendLog("push %s -> %s %s", msg.Job.ToVersion, msg.Job.VCUSerial, msg.Job.State)
		}
		return m, m.load()
	}

	if m.Focus == FocusTable {
		m.Devices, cmd = m.Devices.Update(msg)
	} else {
		m.Form, cmd = m.Form.Update(msg)
	}
	cmds = append(cmds, cmd)

	m.Log, cmd = m.Log.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// Actions lists what the current user may do on this target type.
func (m TargetDetailModel) Actions() []ActionDef { return m.Form.Actions }

func (m TargetDetailModel) jobView() string {
	j := m.Job
	head := fmt.Sprintf("Push %s: %s -> %s  ", j.VCUSerial, j.FromVersion, j.ToVersion)
	return lipgloss.JoinVertical(lipgloss.Left,
		head+stateStyle(string(j.State)).Render(string(j.State)),
		m.Progress.ViewAs(j.Progress),
	)
}

func (m TargetDetailModel) View() string {
	versions := "none"
	if len(m.Versions) > 0 {
		versions = strings.Join(m.Versions, ", ")
	}
	left := lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(m.Target),
		labelStyle.Render("Versions: ")+versions,
		"",
		m.Devices.View(),
		blurredStyle.Render(fmt.Sprintf("%d devices, next Sl No %d", len(m.Records), m.NextSlNo)),
	)
	if m.Err != nil {
		left += "\n" + errorMessageStyle(m.Err.Error())
	}

	right := m.Form.View()
	if m.Job != nil {
		right = lipgloss.JoinVertical(lipgloss.Left, right, "", m.jobView())
	}
	if m.LogContent != "" {
		sep := blurredStyle.Render(strings.Repeat("─", max(m.Width/2-8, 10)))
		right = lipgloss.JoinVertical(lipgloss.Left, right, sep, headerStyle.Render("Activity:"), m.Log.View())
	}

	leftStyle, rightStyle := panes(m.Focus == FocusTable, m.Width)
	content := lipgloss.JoinHorizontal(lipgloss.Top, leftStyle.Render(left), rightStyle.Render(right))
	help := helpStyle.Render("F1: Devices • F2: Actions • Tab: Switch • p: Push selected • r: Refresh • Esc: Targets")

	return lipgloss.JoinVertical(lipgloss.Left, content, help)
}
