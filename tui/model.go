package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"kbchat/client"
	"kbchat/highlight"
	"kbchat/models"
)

// Asker is the slice of the API client the TUI needs; tests substitute a fake.
type Asker interface {
	Ask(ctx context.Context, prompt, sessionID string) (*models.KBResponse, error)
}

type state int

const (
	// stateConfiguring: waiting on the config fetch, input disabled.
	stateConfiguring state = iota
	// stateIdle: input enabled, nothing in flight.
	stateIdle
	// stateAwaiting: one request in flight, input disabled.
	stateAwaiting
	// stateBroken: config fetch failed; terminal and unrecoverable.
	stateBroken
)

type (
	configLoadedMsg struct {
		asker Asker
		err   error
	}
	responseMsg struct {
		resp *models.KBResponse
	}
	errMsg struct {
		err error
	}
)

// Model is the chat client driver. Exactly one request is in flight at a
// time: input stays disabled from submit until response or failure.
type Model struct {
	baseURL string
	asker   Asker

	state     state
	sessionID string
	messages  []models.ChatMessage
	errText   string

	input    textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	ready    bool
	width    int
	height   int
}

// NewModel builds a model that resolves its endpoint from baseURL's
// /config.json before accepting input.
func NewModel(baseURL string) Model {
	ti := textinput.New()
	ti.Placeholder = "Ask the encyclopedia..."
	ti.CharLimit = 2000

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	return Model{
		baseURL: baseURL,
		state:   stateConfiguring,
		input:   ti,
		spinner: s,
	}
}

// NewModelWithAsker skips the config fetch and starts idle. Used by tests.
func NewModelWithAsker(asker Asker) Model {
	m := NewModel("")
	m.asker = asker
	m.state = stateIdle
	m.input.Focus()
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	if m.state == stateConfiguring {
		cmds = append(cmds, fetchConfig(m.baseURL))
	}
	return tea.Batch(cmds...)
}

func fetchConfig(baseURL string) tea.Cmd {
	return func() tea.Msg {
		c, err := client.FromConfig(context.Background(), baseURL)
		if err != nil {
			return configLoadedMsg{err: err}
		}
		return configLoadedMsg{asker: c}
	}
}

func ask(asker Asker, prompt, sessionID string) tea.Cmd {
	return func() tea.Msg {
		resp, err := asker.Ask(context.Background(), prompt, sessionID)
		if err != nil {
			return errMsg{err: err}
		}
		return responseMsg{resp: resp}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := m.height - 6
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.viewport.SetContent(m.transcriptView())

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if m.state != stateIdle {
				break
			}
			prompt := strings.TrimSpace(m.input.Value())
			if prompt == "" {
				// Empty submits never reach the network.
				break
			}
			m.messages = append(m.messages, models.ChatMessage{
				Role:    models.RoleUser,
				Content: prompt,
			})
			m.input.Reset()
			m.input.Blur()
			m.state = stateAwaiting
			m.errText = ""
			m.refreshViewport()
			return m, tea.Batch(ask(m.asker, prompt, m.sessionID), m.spinner.Tick)
		}

	case configLoadedMsg:
		if msg.err != nil {
			// Permanent: the client never retries its bootstrap.
			m.state = stateBroken
			m.errText = "Could not load chat configuration. Please reload later."
			return m, nil
		}
		m.asker = msg.asker
		m.state = stateIdle
		m.input.Focus()
		return m, textinput.Blink

	case responseMsg:
		m.sessionID = msg.resp.SessionID
		m.messages = append(m.messages, models.ChatMessage{
			Role:      models.RoleBot,
			Content:   msg.resp.Response,
			Citations: msg.resp.Citations,
		})
		m.state = stateIdle
		m.input.Focus()
		m.refreshViewport()
		return m, textinput.Blink

	case errMsg:
		// Transient: surface an apology and return to idle for a retry.
		m.errText = "Sorry, something went wrong. Please try again."
		m.state = stateIdle
		m.input.Focus()
		m.refreshViewport()
		return m, textinput.Blink

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state == stateAwaiting || m.state == stateConfiguring {
			cmds = append(cmds, cmd)
		}
	}

	if m.state == stateIdle {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.transcriptView())
	m.viewport.GotoBottom()
}

// transcriptView renders the conversation, marking cited spans inline and
// listing sources with their excerpts under each answer.
func (m Model) transcriptView() string {
	var b strings.Builder
	for _, msg := range m.messages {
		if msg.Role == models.RoleUser {
			b.WriteString(userLabelStyle.Render("You: "))
			b.WriteString(textStyle.Render(msg.Content))
		} else {
			b.WriteString(botLabelStyle.Render("Bot: "))
			b.WriteString(highlight.Annotate(msg.Content, msg.Citations, AnsiWrap))
			if footer := highlight.Footer(msg.Citations); footer != "" {
				b.WriteString("\n")
				b.WriteString(footerStyle.Render(footer))
			}
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("kbchat"))
	b.WriteString("\n\n")

	switch m.state {
	case stateBroken:
		b.WriteString(errorStyle.Render(m.errText))
		b.WriteString("\n")
		return b.String()
	case stateConfiguring:
		b.WriteString(fmt.Sprintf("%s loading configuration...\n", m.spinner.View()))
		return b.String()
	}

	if m.ready {
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
	} else {
		b.WriteString(m.transcriptView())
	}

	if m.state == stateAwaiting {
		b.WriteString(fmt.Sprintf("%s thinking...\n", m.spinner.View()))
	} else {
		if m.errText != "" {
			b.WriteString(errorStyle.Render(m.errText))
			b.WriteString("\n")
		}
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	return b.String()
}

// SessionID exposes the current continuity token.
func (m Model) SessionID() string {
	return m.sessionID
}
