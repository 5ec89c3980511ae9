// Package ui is the terminal chat client: a viewport of conversation
// history, a textarea for the next question, and a spinner while the
// assistant works.
package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"lectern/internal/models"
)

// QueryService answers questions within a session.
type QueryService interface {
	Query(ctx context.Context, query, sessionID string) (string, []models.Source)
	CreateSession() string
}

var (
	colorText    = lipgloss.Color("#cdd6f4")
	colorSubtext = lipgloss.Color("#9399b2")
	colorUser    = lipgloss.Color("#ef9f76")
	colorAnswer  = lipgloss.Color("#a6e3a1")
	colorAccent  = lipgloss.Color("#cba6f7")
	colorBorder  = lipgloss.Color("#45475a")
	colorActive  = lipgloss.Color("#f9e2af")

	styleBase = lipgloss.NewStyle().Foreground(colorText)

	styleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	styleFocusBorder = styleBorder.
				BorderForeground(colorActive)

	styleUserHeader = lipgloss.NewStyle().
			Foreground(colorUser).
			Bold(true).
			MarginTop(1)

	styleAnswerHeader = lipgloss.NewStyle().
				Foreground(colorAnswer).
				Bold(true).
				MarginTop(1)

	styleSources = lipgloss.NewStyle().
			Foreground(colorSubtext).
			Italic(true)
)

type state int

const (
	stateReady state = iota
	stateThinking
)

// Model is the bubbletea model for the chat client.
type Model struct {
	service   QueryService
	sessionID string

	textarea   textarea.Model
	viewport   viewport.Model
	spinner    spinner.Model
	state      state
	transcript string

	width  int
	height int
}

// NewModel creates the chat client bound to a fresh session.
func NewModel(service QueryService) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about the course materials..."
	ta.Focus()
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 500
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorSubtext)

	vp := viewport.New(80, 20)
	welcome := styleAnswerHeader.Render("Lectern") + "\n" +
		styleBase.Render("Ask me anything about the ingested courses. Ctrl+C to quit.")
	vp.SetContent(welcome)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorAccent)

	return Model{
		service:    service,
		sessionID:  service.CreateSession(),
		textarea:   ta,
		viewport:   vp,
		spinner:    sp,
		state:      stateReady,
		transcript: welcome,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

type answerMsg struct {
	answer  string
	sources []models.Source
}

func (m Model) ask(query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 180*time.Second)
		defer cancel()
		answer, sources := m.service.Query(ctx, query, m.sessionID)
		return answerMsg{answer: answer, sources: sources}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		viewportHeight := msg.Height - 7 // borders, status line, input
		if viewportHeight < 5 {
			viewportHeight = 5
		}
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = viewportHeight
		m.textarea.SetWidth(msg.Width - 4)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if !msg.Alt && m.state == stateReady {
				input := strings.TrimSpace(m.textarea.Value())
				if input == "" {
					break
				}
				m.appendBlock(styleUserHeader.Render("You"), input)
				m.textarea.Reset()
				m.state = stateThinking
				return m, tea.Batch(m.ask(input), m.spinner.Tick)
			}
		}

	case answerMsg:
		body := msg.answer
		if len(msg.sources) > 0 {
			var labels []string
			for _, src := range msg.sources {
				labels = append(labels, src.Text)
			}
			body += "\n" + styleSources.Render("Sources: "+strings.Join(labels, ", "))
		}
		m.appendBlock(styleAnswerHeader.Render("Lectern"), body)
		m.state = stateReady

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) appendBlock(header, body string) {
	m.transcript += "\n" + header + "\n" + styleBase.Render(body) + "\n"
	m.viewport.SetContent(m.transcript)
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	status := "Enter to send"
	if m.state == stateThinking {
		status = m.spinner.View() + " Thinking..."
	}

	inputStyle := styleBorder
	if m.state == stateReady {
		inputStyle = styleFocusBorder
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		styleBorder.Render(m.viewport.View()),
		styleSources.Render(status),
		inputStyle.Render(m.textarea.View()),
	)
}
