package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PowerClient is what the dashboard drives. fhem.Client implements it.
type PowerClient interface {
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	State(ctx context.Context) (bool, error)
}

// ErrorFormatter turns an error into a one-line message.
type ErrorFormatter func(error) string

// DefaultRefreshInterval is how often the dashboard re-reads the state
const DefaultRefreshInterval = 10 * time.Second

// requestTimeout bounds one dashboard operation, including a token retry
const requestTimeout = 25 * time.Second

type stateMsg struct {
	on  bool
	err error
	at  time.Time
}

type commandMsg struct {
	on  bool
	err error
}

type refreshTickMsg time.Time

// Dashboard is the interactive power dashboard
type Dashboard struct {
	client  PowerClient
	device  string
	address string
	format  ErrorFormatter
	refresh time.Duration

	Spinner spinner.Model
	Busy    bool
	Action  string

	Known   bool
	On      bool
	Err     error
	Updated time.Time

	width int
}

// NewDashboard creates a dashboard for one device. It starts busy with the
// state query issued by Init.
func NewDashboard(client PowerClient, device, address string) Dashboard {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	return Dashboard{
		client:  client,
		device:  device,
		address: address,
		format:  func(err error) string { return err.Error() },
		refresh: DefaultRefreshInterval,
		Spinner: s,
		Busy:    true,
		Action:  "Reading state",
		width:   GetTerminalWidth(),
	}
}

// WithErrorFormatter sets how errors are shown
func (m Dashboard) WithErrorFormatter(f ErrorFormatter) Dashboard {
	if f != nil {
		m.format = f
	}
	return m
}

// WithRefreshInterval sets the automatic refresh period; zero disables it
func (m Dashboard) WithRefreshInterval(d time.Duration) Dashboard {
	m.refresh = d
	return m
}

// Init implements tea.Model
func (m Dashboard) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, m.queryState(), m.scheduleRefresh())
}

// Update implements tea.Model
func (m Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = clampWidth(msg.Width)

	case commandMsg:
		if msg.err != nil {
			m.Busy = false
			m.Err = msg.err
			return m, nil
		}
		// Confirm what the device actually did
		m.Action = "Reading state"
		return m, m.queryState()

	case stateMsg:
		m.Busy = false
		m.Action = ""
		m.Err = msg.err
		m.Updated = msg.at
		if msg.err == nil {
			m.Known = true
			m.On = msg.on
		}

	case refreshTickMsg:
		if m.Busy {
			return m, m.scheduleRefresh()
		}
		m.Busy = true
		m.Action = "Reading state"
		return m, tea.Batch(m.queryState(), m.scheduleRefresh())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Dashboard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	}

	if m.Busy {
		return m, nil
	}

	switch msg.String() {
	case "o":
		m.Busy = true
		m.Action = "Switching on"
		return m, m.switchPower(true)
	case "f":
		m.Busy = true
		m.Action = "Switching off"
		return m, m.switchPower(false)
	case "r":
		m.Busy = true
		m.Action = "Reading state"
		return m, m.queryState()
	}
	return m, nil
}

func (m Dashboard) queryState() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		on, err := client.State(ctx)
		return stateMsg{on: on, err: err, at: time.Now()}
	}
}

func (m Dashboard) switchPower(on bool) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		var err error
		if on {
			err = client.TurnOn(ctx)
		} else {
			err = client.TurnOff(ctx)
		}
		return commandMsg{on: on, err: err}
	}
}

func (m Dashboard) scheduleRefresh() tea.Cmd {
	if m.refresh <= 0 {
		return nil
	}
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

// View implements tea.Model
func (m Dashboard) View() string {
	params := map[string]string{
		"Device":  m.device,
		"Address": m.address,
	}
	header := RenderHeader("PSU Control", "psufhem dashboard", params, m.width)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")

	b.WriteString("  Power   ")
	b.WriteString(RenderPowerBadge(m.On, m.Known))
	if !m.Updated.IsZero() {
		b.WriteString(HelpStyle.Render("   updated " + m.Updated.Format("15:04:05")))
	}
	b.WriteString("\n\n")

	switch {
	case m.Busy:
		b.WriteString(fmt.Sprintf("  %s %s...\n\n", m.Spinner.View(), m.Action))
	case m.Err != nil:
		b.WriteString("  " + ErrorMessageStyle.Render(FailureMarker+" "+m.format(m.Err)) + "\n\n")
	default:
		b.WriteString("\n\n")
	}

	b.WriteString(HelpStyle.Render("  o on • f off • r refresh • q quit"))
	b.WriteString("\n")
	return b.String()
}

func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

// RunDashboard runs the dashboard until the user quits
func RunDashboard(m Dashboard) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
