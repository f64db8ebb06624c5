package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"notesrag/internal/domain"
	"notesrag/internal/history"
)

// visibleTurns is how many recent turns the transcript view shows.
const visibleTurns = 10

var suggestions = []string{
	"Summarize the main points",
	"What are the key takeaways?",
	"Explain this in simple terms",
	"What are the important dates mentioned?",
}

// ChatPort is the TUI-facing subset of the RAG service.
type ChatPort interface {
	Ask(ctx context.Context, question string) ([]domain.Turn, error)
	Export() string
}

type answerMsg struct {
	turns []domain.Turn
	err   error
}

type exportedMsg struct {
	path string
	err  error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	service    ChatPort
	input      textinput.Model
	viewport   viewport.Model
	turns      []domain.Turn
	header     string
	summary    string
	status     string
	thinking   bool
	suggestion int
	ready      bool
	now        func() time.Time
}

// New creates a chat model. header and summary describe the processed library.
func New(service ChatPort, header, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your documents"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		service:    service,
		input:      ti,
		viewport:   vp,
		header:     header,
		summary:    summary,
		status:     "Library processed. Ask away. tab: suggestion  ctrl+s: export  ctrl+c: quit",
		suggestion: -1,
		now:        time.Now,
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header+summary, status, input box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil
	case answerMsg:
		m.thinking = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.turns = msg.turns
			m.status = "Ready."
		}
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case exportedMsg:
		if msg.err != nil {
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = "Exported to " + msg.path
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.thinking {
				return m, nil
			}
			// One question at a time: the pipeline transcript is not synchronized.
			m.thinking = true
			m.status = "Thinking..."
			m.input.SetValue("")
			m.suggestion = -1
			return m, m.ask(q)
		case "tab":
			m.suggestion = (m.suggestion + 1) % len(suggestions)
			m.input.SetValue(suggestions[m.suggestion])
			m.input.CursorEnd()
			return m, nil
		case "ctrl+s":
			return m, m.export()
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	svc := m.service
	return func() tea.Msg {
		turns, err := svc.Ask(context.Background(), question)
		return answerMsg{turns: turns, err: err}
	}
}

func (m Model) export() tea.Cmd {
	svc := m.service
	name := history.ExportFileName(m.now())
	return func() tea.Msg {
		text := svc.Export()
		if text == "" {
			return exportedMsg{err: fmt.Errorf("nothing to export yet")}
		}
		return exportedMsg{path: name, err: os.WriteFile(name, []byte(text), 0o644)}
	}
}

// View renders the layout: header, transcript, input and status.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Chat with Your Notes  " + m.header)
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.turns) == 0 {
		return "No questions yet."
	}
	turns := m.turns
	var b strings.Builder
	if len(turns) > visibleTurns {
		fmt.Fprintf(&b, "(%d earlier messages hidden)\n\n", len(turns)-visibleTurns)
		turns = turns[len(turns)-visibleTurns:]
	}
	width := max(10, m.viewport.Width-4)
	for _, t := range turns {
		if t.User {
			b.WriteString(userStyle.Width(width).Render("You: " + t.Content))
		} else {
			b.WriteString(botStyle.Width(width).Render("Notes: " + t.Content))
		}
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)
