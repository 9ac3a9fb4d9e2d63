// ABOUTME: Relay TUI showing the stream, reframer progress and connected players
// ABOUTME: bubbletea model with keys for play, stop and seeking
package relay

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SeekStep is how far the arrow keys move playback
const SeekStep = 10 * time.Second

// Status holds relay state for the TUI
type Status struct {
	Name     string
	Port     int
	Track    string
	Session  string
	State    string
	Stream   StreamStats
	Resyncs  uint64
	Dropped  uint64
	Clients  []ClientInfo
	Duration time.Duration
}

// TUI manages the relay status display
type TUI struct {
	program  *tea.Program
	updates  chan Status
	quitChan chan struct{}
	control  Controller

	mu     sync.Mutex
	closed bool
}

type tuiModel struct {
	status    Status
	startTime time.Time
	quitting  bool
	quitChan  chan struct{}
	control   Controller
}

type tickMsg time.Time
type statusMsg Status

func (m tuiModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
			return m, tea.Quit
		case "p", " ":
			if m.control != nil {
				m.control.Play(m.status.Stream.Position.Seconds())
			}
		case "s":
			if m.control != nil {
				m.control.Stop()
			}
		case "left", "right":
			if m.control != nil {
				pos := m.status.Stream.Position
				if msg.String() == "left" {
					pos -= SeekStep
				} else {
					pos += SeekStep
				}
				if pos < 0 {
					pos = 0
				}
				m.control.Seek(pos.Seconds())
			}
		}

	case tickMsg:
		return m, tickEvery()

	case statusMsg:
		m.status = Status(msg)
		return m, nil
	}

	return m, nil
}

func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func (m tuiModel) View() string {
	if m.quitting {
		return "Shutting down relay...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86"))
	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250"))
	clientHeaderStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("220"))

	var b strings.Builder
	field := func(name, value string) {
		b.WriteString(headerStyle.Render(name + ": "))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	b.WriteString(titleStyle.Render("flacframe relay"))
	b.WriteString("\n\n")

	field("Relay", m.status.Name)
	field("Port", fmt.Sprintf("%d", m.status.Port))
	field("Uptime", time.Since(m.startTime).Round(time.Second).String())
	field("Track", m.status.Track)

	st := m.status.Stream
	if st.SampleRate > 0 {
		field("Format", fmt.Sprintf("FLAC %d Hz, %d bit, %d ch", st.SampleRate, st.BitsPerSample, st.Channels))
	}
	field("State", m.status.State)
	if session := m.status.Session; len(session) >= 8 {
		field("Session", session[:8])
	}
	position := formatClock(st.Position)
	if m.status.Duration > 0 {
		position += " / " + formatClock(m.status.Duration)
	}
	field("Position", position)
	field("Frames", fmt.Sprintf("%d sent, %d KiB", st.FramesSent, st.BytesSent/1024))
	if m.status.Resyncs > 0 {
		field("Resyncs", fmt.Sprintf("%d (%d bytes dropped)", m.status.Resyncs, m.status.Dropped))
	}
	b.WriteString("\n")

	b.WriteString(clientHeaderStyle.Render(fmt.Sprintf("Connected Players (%d)", len(m.status.Clients))))
	b.WriteString("\n\n")

	if len(m.status.Clients) == 0 {
		b.WriteString(valueStyle.Render("  No players connected"))
		b.WriteString("\n")
	} else {
		for _, c := range m.status.Clients {
			stream := "idle"
			if c.Streaming {
				stream = "flac"
			}
			b.WriteString(fmt.Sprintf("  • %s", c.Name))
			b.WriteString(valueStyle.Render(fmt.Sprintf(" (%s, %s, vol %d)", stream, c.State, c.Volume)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("p play  s stop  ←/→ seek  q quit"))

	return b.String()
}

// NewTUI creates a relay TUI. control may be nil.
func NewTUI(control Controller) *TUI {
	return &TUI{
		updates:  make(chan Status, 10),
		quitChan: make(chan struct{}, 1),
		control:  control,
	}
}

// Start runs the TUI until the user quits or Stop is called.
func (t *TUI) Start(name string, port int) error {
	m := tuiModel{
		status: Status{
			Name:  name,
			Port:  port,
			Track: "Initializing...",
		},
		startTime: time.Now(),
		quitChan:  t.quitChan,
		control:   t.control,
	}

	program := tea.NewProgram(m, tea.WithAltScreen())
	t.mu.Lock()
	t.program = program
	t.mu.Unlock()

	go func() {
		for status := range t.updates {
			program.Send(statusMsg(status))
		}
	}()

	_, err := program.Run()
	return err
}

// Update sends a status update without blocking
func (t *TUI) Update(status Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.updates <- status:
	default:
	}
}

// Stop stops the TUI
func (t *TUI) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.closed = true
	if t.program != nil {
		t.program.Quit()
	}
	close(t.updates)
}

// QuitChan signals when the user wants to quit
func (t *TUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
