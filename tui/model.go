// Package tui is the interactive chat front end for the transcript
// assistant, built on Bubble Tea.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/ai-fo/nexus/router"
)

// ChatPort is the TUI-facing subset of the router.
type ChatPort interface {
	Chat(ctx context.Context, sessionKey, message string) (router.Reply, error)
	ClearSession(sessionKey string)
}

// Model is the Bubble Tea model for the chat session.
type Model struct {
	router    ChatPort
	sessionID string
	input     textinput.Model
	viewport  viewport.Model
	lines     []string
	status    string
	ready     bool
}

// New creates a chat model bound to a fresh session.
func New(rt ChatPort) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Posez votre question et appuyez sur Entrée"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		router:    rt,
		sessionID: uuid.NewString(),
		input:     ti,
		viewport:  vp,
		status:    "Prêt. Ctrl+L efface l'historique, Ctrl+C quitte.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		vh := msg.Height - ch - ih - 3
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = vh
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m = m.send(q)
				m.input.SetValue("")
				return m, nil
			}
		case "ctrl+l":
			m.router.ClearSession(m.sessionID)
			m.lines = nil
			m.status = "Historique effacé."
			m.viewport.SetContent("")
			return m, nil
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

func (m Model) send(message string) Model {
	m.lines = append(m.lines, userStyle.Render("Vous : ")+message)

	reply, err := m.router.Chat(context.Background(), m.sessionID, message)
	if err != nil {
		m.status = "Erreur : " + err.Error()
		return m
	}
	if reply.Welcome != "" {
		m.lines = append(m.lines, assistantStyle.Render("Assistant : ")+reply.Welcome)
	}
	m.lines = append(m.lines, assistantStyle.Render("Assistant : ")+reply.Answer, "")
	m.status = fmt.Sprintf("Type de réponse : %s", reply.Meta.Kind)

	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
	return m
}

func (m Model) View() string {
	if !m.ready {
		return "Chargement..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Assistant transcriptions")
	chat := chatBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + chat + "\n" + input + "\n" + status
}

var (
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
