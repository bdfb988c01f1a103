package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/diogo/detectchat/internal/chat"
	"github.com/diogo/detectchat/internal/history"
	"github.com/diogo/detectchat/internal/models"
	"github.com/diogo/detectchat/internal/render"
)

// Message types for the TUI
type (
	// replyMsg carries the outcome of one detect call back into the event loop
	replyMsg struct {
		reply chat.Reply
	}
	copiedMsg struct {
		err error
	}
	persistedMsg struct {
		err error
	}
)

// Observer receives a snapshot of the log after every change
type Observer interface {
	Observe(msgs []models.Message) error
}

// Options configures the chat model
type Options struct {
	Logger     zerolog.Logger
	Ordered    bool
	BackendURL string
	Render     render.Options
	// Observer is optional; the history recorder when transcripts are saved
	Observer Observer
	// CopyToClipboard copies every system reply as it arrives
	CopyToClipboard bool
}

// copyFunc is replaced in tests
var copyFunc = clipboard.WriteAll

// Model represents the TUI state
type Model struct {
	ctx      context.Context
	detector chat.Detector
	logger   zerolog.Logger
	observer Observer

	backendURL string
	renderOpts render.Options
	autoCopy   bool

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	state  chat.State
	notice string
	ready  bool

	width  int
	height int
}

// NewChatModel creates a new chat TUI model
func NewChatModel(ctx context.Context, d chat.Detector, opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Type your message here..."
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	if opts.Render.Width == 0 {
		opts.Render = render.DefaultOptions()
	}

	return Model{
		ctx:        ctx,
		detector:   d,
		logger:     opts.Logger,
		observer:   opts.Observer,
		backendURL: opts.BackendURL,
		renderOpts: opts.Render,
		autoCopy:   opts.CopyToClipboard,
		textarea:   ta,
		spinner:    s,
		state:      chat.NewState(opts.Ordered),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// State returns the chat state
func (m Model) State() chat.State {
	return m.state
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		inputHeight := 6
		statusHeight := 1
		padding := 2

		vpHeight := max(m.height-headerHeight-inputHeight-statusHeight-padding, 5)
		contentWidth := m.width - 4

		if !m.ready {
			m.viewport = viewport.New(contentWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = vpHeight
		}
		m.textarea.SetWidth(contentWidth - 4)
		m.updateViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "ctrl+y":
			last, ok := m.state.LastReply()
			if !ok {
				m.notice = "Nothing to copy yet"
				return m, nil
			}
			return m, copyText(last.Text)

		case "enter":
			return m.handleEnter()
		}

	case replyMsg:
		before := m.state.Len()
		m.state = m.state.Resolve(msg.reply)
		m.textarea.Reset()
		m.updateViewport()
		m.viewport.GotoBottom()

		if m.state.Len() > before {
			cmds = append(cmds, m.persist())
			if m.autoCopy {
				if last, ok := m.state.LastReply(); ok {
					cmds = append(cmds, copyText(last.Text))
				}
			}
		}

	case copiedMsg:
		if msg.err != nil {
			m.logger.Warn().Err(msg.err).Msg("clipboard copy failed")
			m.notice = "Could not copy to clipboard"
		} else {
			m.notice = "Copied last reply to clipboard"
		}

	case persistedMsg:
		if msg.err != nil {
			m.logger.Error().Err(msg.err).Msg("saving transcript failed")
			m.notice = "Transcript could not be saved"
		}

	case spinner.TickMsg:
		if m.state.InFlight() > 0 {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	// Only key presses reach the textarea to keep escape sequences out of the input
	if _, ok := msg.(tea.KeyMsg); ok {
		m.textarea, cmd = m.textarea.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleEnter submits the input; blank input is ignored
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	state, sub, ok := m.state.SetInput(m.textarea.Value()).Submit()
	if !ok {
		return m, nil
	}

	wasIdle := m.state.InFlight() == 0
	m.state = state
	m.notice = ""
	m.updateViewport()
	m.viewport.GotoBottom()

	cmds := []tea.Cmd{m.exchange(sub), m.persist()}
	if wasIdle {
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

// exchange runs the detect call for sub off the event loop
func (m Model) exchange(sub chat.Submission) tea.Cmd {
	ctx, d, logger := m.ctx, m.detector, m.logger
	return func() tea.Msg {
		return replyMsg{reply: chat.Exchange(ctx, d, logger, sub)}
	}
}

// persist hands the current log to the observer
func (m Model) persist() tea.Cmd {
	if m.observer == nil {
		return nil
	}
	obs, msgs := m.observer, m.state.Messages()
	return func() tea.Msg {
		return persistedMsg{err: obs.Observe(msgs)}
	}
}

func copyText(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{err: copyFunc(text)}
	}
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	var sections []string
	contentWidth := m.width - 4

	// Header
	headerParts := []string{titleStyle.Render("✦ Detect Chat")}
	if m.backendURL != "" {
		headerParts = append(headerParts,
			hintStyle.Render("  •  "),
			subtitleStyle.Render(m.backendURL),
		)
	}
	if m.state.Ordered() {
		headerParts = append(headerParts,
			hintStyle.Render("  •  "),
			subtitleStyle.Render("ordered"),
		)
	}
	header := headerStyle.Width(contentWidth).Render(lipgloss.JoinHorizontal(lipgloss.Center, headerParts...))
	sections = append(sections, header)

	// Messages
	messagesContent := m.viewport.View()
	if m.state.Len() == 0 {
		messagesContent = m.renderWelcome()
	}
	sections = append(sections, messagesAreaStyle.
		Width(contentWidth).
		Height(m.viewport.Height).
		Render(messagesContent))

	// Input
	inputParts := []string{inputLabelStyle.Render("You")}
	if pending := m.pendingLine(); pending != "" {
		inputParts = append(inputParts, pending)
	}
	inputParts = append(inputParts, m.textarea.View())
	sections = append(sections, inputPanelStyle.Width(contentWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, inputParts...),
	))

	sections = append(sections, m.renderStatusBar(contentWidth))

	if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// pendingLine reports outstanding requests while any are in flight
func (m Model) pendingLine() string {
	n := m.state.InFlight()
	if n == 0 {
		return ""
	}

	text := "waiting for reply"
	if n > 1 {
		text = fmt.Sprintf("waiting for %d replies", n)
	}
	if held := m.state.Held(); held > 0 {
		text += fmt.Sprintf(" (%d held)", held)
	}
	return m.spinner.View() + " " + hintStyle.Render(text)
}

func (m Model) renderWelcome() string {
	width := m.viewport.Width - 4

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		titleStyle.Width(width).Align(lipgloss.Center).Render("✦"),
		"",
		welcomeStyle.Width(width).Render("Type a message below. Replies from the detection service appear here."),
	)

	topPadding := max((m.viewport.Height-lipgloss.Height(content))/2, 0)
	return strings.Repeat("\n", topPadding) + content
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m Model) renderStatusBar(width int) string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Ctrl+Y", "Copy reply"},
		{"Esc", "Quit"},
		{"↑↓", "Scroll"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, lipgloss.JoinHorizontal(
			lipgloss.Center,
			statusKeyStyle.Render(s.key),
			statusDescStyle.Render(" "+s.desc),
		))
	}

	bar := strings.Join(items, "  │  ")
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(bar)
}

// updateViewport refreshes the viewport content with styled messages
func (m *Model) updateViewport() {
	if !m.ready {
		return
	}

	var content strings.Builder
	bubbleWidth := m.viewport.Width - 6

	for i, msg := range m.state.Messages() {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(m.renderMessage(msg, bubbleWidth))
		content.WriteString("\n")
	}

	m.viewport.SetContent(content.String())
}

// renderMessage renders one log entry with the label and bubble for its kind
func (m Model) renderMessage(msg models.Message, width int) string {
	switch msg.Kind {
	case models.KindPrompt:
		return userLabelStyle.Render("⬤ You") + "\n" +
			userBubbleStyle.Width(width).Render(msg.Text)

	case models.KindWarning:
		out := warningLabelStyle.Render("⚠ System") + "\n" +
			warningBubbleStyle.Width(width).Render(msg.Text)
		return out + m.renderDetails(msg)

	case models.KindFailure:
		return failureLabelStyle.Render("✗ System") + "\n" +
			failureBubbleStyle.Width(width).Render(msg.Text)

	default:
		rendered := render.Reply(msg.Text, m.renderOpts.WithWidth(width-4))
		out := replyLabelStyle.Render("✦ System") + "\n" +
			replyBubbleStyle.Width(width).Render(rendered)
		return out + m.renderDetails(msg)
	}
}

func (m Model) renderDetails(msg models.Message) string {
	line := history.DetailLine(msg.Anomaly, msg.Sensitive)
	if line == "" {
		return ""
	}
	return "\n" + detailStyle.Render(line)
}

// RunChat starts the chat TUI and returns the final state
func RunChat(ctx context.Context, d chat.Detector, opts Options) (chat.State, error) {
	m := NewChatModel(ctx, d, opts)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		return fm.State(), err
	}
	return m.State(), err
}
