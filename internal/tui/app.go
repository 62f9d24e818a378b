// Package tui is the terminal front-end: a contact sidebar, a
// conversation view, and a composer, all rendered from chatview state.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/chatzone/chatzone/internal/chatclient"
	"github.com/chatzone/chatzone/internal/chatview"
	"github.com/chatzone/chatzone/internal/models"
	"github.com/chatzone/chatzone/internal/realtime"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sidebarWidth = 28

var (
	sidebarStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderRight(true).PaddingRight(1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	onlineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selfMsgStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	otherMsgStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	timeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// Options configure the chat UI.
type Options struct {
	Client *chatclient.Client
	Logger *zap.Logger
}

// Run starts the chat UI and blocks until the user quits. Returns
// chatview.ErrUnauthenticated when there is no session; the caller
// tells the user to log in.
func Run(ctx context.Context, opts Options) error {
	bridge, err := opts.Client.Realtime(ctx)
	if err != nil {
		return err
	}
	defer bridge.Close()

	// OnChange fires from the bridge's read goroutine; program.Send is
	// how off-loop state changes reach the update loop.
	var program *tea.Program
	controller := chatview.NewController(chatview.Deps{
		Session:  opts.Client,
		Users:    opts.Client,
		Messages: opts.Client,
		Sender:   opts.Client,
		Bridge:   bridge,
		Logger:   opts.Logger,
		OnChange: func() {
			if program != nil {
				program.Send(refreshMsg{})
			}
		},
	})
	defer controller.Close()

	if err := controller.Start(ctx); err != nil {
		if errors.Is(err, chatview.ErrUnauthenticated) {
			return chatview.ErrUnauthenticated
		}
		return fmt.Errorf("start chat view: %w", err)
	}

	program = tea.NewProgram(newModel(ctx, controller), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

type refreshMsg struct{}

type selectDoneMsg struct{ err error }

type submitDoneMsg struct{ err error }

// Model implements the chat UI.
type Model struct {
	ctx        context.Context
	controller *chatview.Controller

	viewport viewport.Model
	input    textarea.Model

	width  int
	height int
	ready  bool

	cursor int // highlighted contact in the sidebar
	notice string
}

func newModel(ctx context.Context, controller *chatview.Controller) *Model {
	input := textarea.New()
	input.Placeholder = "Type your message..."
	input.CharLimit = 0
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()

	return &Model{
		ctx:        ctx,
		controller: controller,
		input:      input,
	}
}

func (m *Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		return m, nil

	case refreshMsg:
		m.refreshViewport()
		return m, nil

	case selectDoneMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		m.refreshViewport()
		return m, nil

	case submitDoneMsg:
		// Failure keeps the buffer for a retry; success cleared the
		// composer, so mirror that in the widget.
		if msg.err != nil {
			m.notice = "send failed: " + msg.err.Error()
		} else {
			m.input.Reset()
		}
		return m, nil

	case tea.KeyMsg:
		m.notice = ""
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+p":
			m.moveCursor(-1)
			return m, nil
		case "ctrl+n":
			m.moveCursor(1)
			return m, nil
		case "ctrl+o":
			return m, m.selectCmd()
		case "ctrl+d":
			m.controller.Deselect()
			m.refreshViewport()
			return m, nil
		default:
			// Enter submits; shift+enter falls through to the textarea
			// as a newline.
			if chatview.IsSubmitKey(msg.String()) {
				return m, m.submitCmd()
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) moveCursor(delta int) {
	users := m.controller.Users()
	if len(users) == 0 {
		return
	}
	m.cursor = (m.cursor + delta + len(users)) % len(users)
}

// selectCmd opens the conversation under the cursor. Select does the
// bulk load and the resubscribe, so it runs as a command, off the
// update loop.
func (m *Model) selectCmd() tea.Cmd {
	users := m.controller.Users()
	if m.cursor >= len(users) {
		return nil
	}
	counterpartID := users[m.cursor].ID
	return func() tea.Msg {
		return selectDoneMsg{err: m.controller.Select(m.ctx, counterpartID)}
	}
}

func (m *Model) submitCmd() tea.Cmd {
	m.controller.Composer().SetText(m.input.Value())
	return func() tea.Msg {
		return submitDoneMsg{err: m.controller.Submit(m.ctx)}
	}
}

func (m *Model) layout() {
	chatWidth := m.width - sidebarWidth - 2
	if chatWidth < 20 {
		chatWidth = 20
	}
	chatHeight := m.height - m.input.Height() - 3
	if chatHeight < 3 {
		chatHeight = 3
	}
	m.viewport = viewport.New(chatWidth, chatHeight)
	m.input.SetWidth(chatWidth)
	m.refreshViewport()
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m *Model) renderMessages() string {
	msgs := m.controller.Messages()
	if !m.controller.Active() {
		return statusStyle.Render("No chat selected; pick a contact (ctrl+p/ctrl+n, ctrl+o to open).")
	}

	self := m.controller.Self()
	var b strings.Builder
	for _, msg := range msgs {
		b.WriteString(m.renderMessage(msg, self.ID))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderMessage(msg models.Message, selfID uuid.UUID) string {
	name := "You"
	style := selfMsgStyle
	if msg.SenderID != selfID {
		style = otherMsgStyle
		if contact, ok := m.controller.Contact(msg.SenderID); ok {
			name = contact.DisplayName()
		} else {
			name = msg.SenderID.String()[:8]
		}
	}
	stamp := timeStyle.Render(msg.CreatedAt.Local().Format("15:04"))
	return fmt.Sprintf("%s %s\n%s", style.Render(name), stamp, msg.Text)
}

func (m *Model) renderSidebar() string {
	var b strings.Builder
	b.WriteString("Chats\n")

	if m.controller.Status() == realtime.StatusSubscribed {
		b.WriteString(statusStyle.Render("Status: Connected"))
	} else {
		b.WriteString(statusStyle.Render("Status: Connecting..."))
	}
	b.WriteString("\n\n")

	selected := m.controller.Counterpart()
	for i, user := range m.controller.Users() {
		line := user.DisplayName()
		if user.IsOnline {
			line = onlineStyle.Render("● ") + line
		} else {
			line = "  " + line
		}
		if user.ID == selected {
			line += " *"
		}
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return sidebarStyle.Width(sidebarWidth).Render(b.String())
}

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	chat := m.viewport.View() + "\n" + m.input.View()
	if m.notice != "" {
		chat += "\n" + noticeStyle.Render(m.notice)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), " "+chat)
}
