// Package console is the operator screen for a running notifyd: it
// polls session state over the trigger HTTP surface, shows the pending
// pairing code, and fires jobs on demand.
package console

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	stateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(72)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

const pollEvery = 2 * time.Second

type tickMsg time.Time

type statusMsg struct {
	state string
	qr    string
	err   error
}

type actionMsg struct {
	text string
	err  error
}

type Model struct {
	baseURL    string
	client     *http.Client
	state      string
	qr         string
	lastAction string
	err        error
}

func NewModel(baseURL string) Model {
	return Model{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
		state:   "UNKNOWN",
	}
}

func Run(baseURL string) error {
	_, err := tea.NewProgram(NewModel(baseURL)).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchStatus, tick())
}

func tick() tea.Cmd {
	return tea.Tick(pollEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tea.Batch(m.fetchStatus, tick())
	case statusMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.state = msg.state
		m.qr = msg.qr
		return m, nil
	case actionMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.lastAction = msg.text
		return m, m.fetchStatus
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "c":
			return m, m.post("/session/connect", "session connect requested")
		case "l":
			return m, m.post("/session/logout", "session logged out")
		case "r":
			return m, m.post("/jobs/reminders", "reminder dispatch")
		case "e":
			return m, m.post("/jobs/recurrence", "recurrence expansion")
		case "d":
			return m, m.post("/jobs/digest", "daily digest")
		}
	}
	return m, nil
}

func (m Model) View() string {
	state := stateStyle.Render(m.state)
	if m.state != "CONNECTED" {
		state = errorStyle.Render(m.state)
	}

	var body strings.Builder
	body.WriteString("Session: " + state + "\n")
	if m.qr != "" {
		body.WriteString("Pairing code pending — scan from the dashboard:\n")
		body.WriteString(truncate(m.qr, 64) + "\n")
	}
	if m.lastAction != "" {
		body.WriteString("Last action: " + m.lastAction + "\n")
	}

	lines := []string{
		headerStyle.Render("notifyd @ " + m.baseURL),
		panelStyle.Render(strings.TrimRight(body.String(), "\n")),
	}
	if m.err != nil {
		lines = append(lines, errorStyle.Render("error: "+m.err.Error()))
	}
	lines = append(lines, footerStyle.Render("c connect · l logout · r reminders · e recurrence · d digest · q quit"))
	return strings.Join(lines, "\n")
}

func (m Model) fetchStatus() tea.Msg {
	var out statusMsg
	if err := m.getJSON("/session/status", &struct {
		State *string `json:"state"`
	}{&out.state}); err != nil {
		return statusMsg{err: err}
	}
	if err := m.getJSON("/session/qr", &struct {
		QR *string `json:"qr"`
	}{&out.qr}); err != nil {
		return statusMsg{err: err}
	}
	return out
}

func (m Model) getJSON(path string, into any) error {
	resp, err := m.client.Get(m.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(into)
}

func (m Model) post(path, label string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.client.Post(m.baseURL+path, "application/json", nil)
		if err != nil {
			return actionMsg{err: err}
		}
		defer resp.Body.Close()

		var body struct {
			Success bool            `json:"success"`
			Error   string          `json:"error"`
			Counts  json.RawMessage `json:"counts"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return actionMsg{err: err}
		}
		if !body.Success {
			return actionMsg{err: fmt.Errorf("%s failed: %s", label, body.Error)}
		}
		text := label
		if len(body.Counts) > 0 {
			text += " " + string(body.Counts)
		}
		return actionMsg{text: text}
	}
}

func truncate(v string, max int) string {
	if len(v) <= max {
		return v
	}
	return v[:max] + "…"
}
