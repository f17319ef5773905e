// Package tui is the interactive chat client. It polls the daemon while an
// answer is being generated, mirroring the thinking indicator a web chat
// would show.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/docchat/docchat/internal/session"
)

// Backend is the slice of the daemon API the chat screen needs.
type Backend interface {
	Ask(ctx context.Context, sessionID, question string) error
	Messages(ctx context.Context, sessionID string) ([]session.Message, bool, error)
	Clear(ctx context.Context, sessionID string) error
}

const pollInterval = 400 * time.Millisecond

// sampleQuestions are starter prompts shown while the conversation is empty.
// Tab cycles them into the input.
var sampleQuestions = []string{
	"What is the main topic of this document?",
	"Can you summarize the key points?",
	"What are the important details mentioned?",
	"Are there any specific recommendations?",
}

type Model struct {
	backend   Backend
	sessionID string
	docName   string

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keys     keyMap

	width  int
	height int

	thinking  bool
	messages  []session.Message
	status    string
	sampleIdx int
	err       error
}

type submittedMsg struct{ err error }
type clearedMsg struct{ err error }
type pollTickMsg struct{}
type transcriptMsg struct {
	messages []session.Message
	thinking bool
	err      error
}

// NewModel creates the chat screen for an existing session. docName is shown
// in the header and may be empty when no document is attached yet.
func NewModel(backend Backend, sessionID, docName string) Model {
	vp := viewport.New(78, 20)
	vp.SetContent(emptyGreeting())

	ti := textinput.New()
	ti.Placeholder = "Ask a question about your PDF..."
	ti.Prompt = "> "
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points

	return Model{
		backend:   backend,
		sessionID: sessionID,
		docName:   docName,
		viewport:  vp,
		input:     ti,
		spinner:   sp,
		keys:      defaultKeys(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.transcriptCmd())
}

func (m Model) transcriptCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		msgs, thinking, err := m.backend.Messages(ctx, m.sessionID)
		return transcriptMsg{messages: msgs, thinking: thinking, err: err}
	}
}

func (m Model) askCmd(question string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return submittedMsg{err: m.backend.Ask(ctx, m.sessionID, question)}
	}
}

func (m Model) clearCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return clearedMsg{err: m.backend.Clear(ctx, m.sessionID)}
	}
}

func pollCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return pollTickMsg{}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.setTranscript()

	case transcriptMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Could not load conversation: " + msg.err.Error()
			break
		}
		m.err = nil
		wasThinking := m.thinking
		m.messages = msg.messages
		m.thinking = msg.thinking
		m.setTranscript()
		if m.thinking {
			cmds = append(cmds, pollCmd())
			if !wasThinking {
				cmds = append(cmds, m.spinner.Tick)
			}
		} else if wasThinking {
			m.status = ""
			m.input.Focus()
			cmds = append(cmds, textinput.Blink)
		}

	case submittedMsg:
		if msg.err != nil {
			m.thinking = false
			m.status = "Could not send question: " + msg.err.Error()
			m.input.Focus()
			break
		}
		cmds = append(cmds, pollCmd(), m.spinner.Tick)

	case clearedMsg:
		if msg.err != nil {
			m.status = "Could not clear conversation: " + msg.err.Error()
			break
		}
		m.messages = nil
		m.status = "Conversation cleared"
		m.viewport.SetContent(emptyGreeting())

	case pollTickMsg:
		if m.thinking {
			cmds = append(cmds, m.transcriptCmd())
		}

	case spinner.TickMsg:
		if m.thinking {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Clear):
			if !m.thinking {
				cmds = append(cmds, m.clearCmd())
			}
			return m, tea.Batch(cmds...)
		case key.Matches(msg, m.keys.Submit):
			question := strings.TrimSpace(m.input.Value())
			if m.thinking || question == "" {
				return m, nil
			}
			// Echo the question locally so it shows up before the
			// next poll round-trips.
			m.messages = append(m.messages, session.Message{
				Role:      "user",
				Content:   question,
				CreatedAt: time.Now(),
			})
			m.thinking = true
			m.status = ""
			m.input.SetValue("")
			m.input.Blur()
			m.setTranscript()
			cmds = append(cmds, m.askCmd(question))
			return m, tea.Batch(cmds...)
		case key.Matches(msg, m.keys.Sample):
			if !m.thinking {
				m.input.SetValue(sampleQuestions[m.sampleIdx%len(sampleQuestions)])
				m.input.CursorEnd()
				m.sampleIdx++
			}
			return m, nil
		case key.Matches(msg, m.keys.PageUp):
			m.viewport.HalfViewUp()
			return m, nil
		case key.Matches(msg, m.keys.PageDown):
			m.viewport.HalfViewDown()
			return m, nil
		}

		if !m.thinking {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.viewport.Width = m.width - 4
	// Header, input line, and status line each take a row plus borders.
	m.viewport.Height = m.height - 7
	if m.viewport.Height < 3 {
		m.viewport.Height = 3
	}
	m.input.Width = m.width - 8
}

// setTranscript rebuilds the viewport content from the message list and
// scrolls to the latest exchange.
func (m *Model) setTranscript() {
	if len(m.messages) == 0 {
		return
	}
	m.viewport.SetContent(renderTranscript(m.messages, m.viewport.Width))
	m.viewport.GotoBottom()
}

func emptyGreeting() string {
	var b strings.Builder
	b.WriteString("Ask a question about your document to get started.\n\n")
	b.WriteString("Sample questions (tab cycles them into the input):\n")
	for _, q := range sampleQuestions {
		b.WriteString("  • " + q + "\n")
	}
	return b.String()
}

func renderTranscript(messages []session.Message, width int) string {
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.Role {
		case "assistant":
			b.WriteString(assistantLabel.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(renderMarkdown(msg.Content, width))
		default:
			b.WriteString(userLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderMarkdown pretty-prints assistant answers; on any renderer failure
// the raw text is shown instead.
func renderMarkdown(text string, width int) string {
	wrap := width - 2
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return text + "\n"
	}
	out, err := r.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}

func (m Model) View() string {
	title := "docchat"
	if m.docName != "" {
		title += " — " + m.docName
	}
	header := headerStyle.Render(title)

	body := panelStyle.Width(m.viewport.Width + 2).Render(m.viewport.View())

	var inputLine string
	if m.thinking {
		inputLine = m.spinner.View() + " Thinking..."
	} else {
		inputLine = m.input.View()
	}

	status := m.status
	if status == "" {
		status = "enter: ask | tab: sample question | ctrl+l: clear | esc: quit"
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s\n", header, body, inputLine, statusStyle.Render(status))
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	userLabel = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))
	assistantLabel = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("213"))
)

type keyMap struct {
	Submit   key.Binding
	Sample   key.Binding
	Clear    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Submit:   key.NewBinding(key.WithKeys("enter")),
		Sample:   key.NewBinding(key.WithKeys("tab")),
		Clear:    key.NewBinding(key.WithKeys("ctrl+l")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "esc")),
	}
}
