package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/detectchat/internal/history"
)

// HistoryStore defines the store operations needed by the selector
type HistoryStore interface {
	ListConversations() ([]*history.Conversation, error)
}

// historyLoadedMsg is sent when conversations are loaded
type historyLoadedMsg struct {
	conversations []*history.Conversation
	err           error
}

// HistorySelectorModel lets the user pick a saved transcript
type HistorySelectorModel struct {
	store HistoryStore

	conversations []*history.Conversation
	cursor        int

	loading   bool
	err       error
	confirmed bool
	selected  *history.Conversation

	width  int
	height int
	ready  bool
}

// NewHistorySelectorModel creates a new history selector model
func NewHistorySelectorModel(store HistoryStore) HistorySelectorModel {
	return HistorySelectorModel{
		store:   store,
		loading: true,
	}
}

// Init starts loading conversations
func (m HistorySelectorModel) Init() tea.Cmd {
	return m.loadConversations()
}

func (m HistorySelectorModel) loadConversations() tea.Cmd {
	return func() tea.Msg {
		conversations, err := m.store.ListConversations()
		return historyLoadedMsg{conversations: conversations, err: err}
	}
}

// Update handles messages and updates the model
func (m HistorySelectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case historyLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.conversations = msg.conversations

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		}

		if m.loading || len(m.conversations) == 0 {
			return m, nil
		}

		switch msg.String() {
		case "up", "k":
			m.cursor--
			if m.cursor < 0 {
				m.cursor = len(m.conversations) - 1
			}

		case "down", "j":
			m.cursor++
			if m.cursor >= len(m.conversations) {
				m.cursor = 0
			}

		case "home", "g":
			m.cursor = 0

		case "end", "G":
			m.cursor = len(m.conversations) - 1

		case "enter":
			m.confirmed = true
			m.selected = m.conversations[m.cursor]
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the selector
func (m HistorySelectorModel) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}
	if m.loading {
		return loadingStyle.Render("  Loading conversations...")
	}
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("  Error: %v", m.err))
	}

	contentWidth := max(m.width-4, 40)

	return lipgloss.JoinVertical(lipgloss.Left,
		listHeaderStyle.Render("Saved conversations"),
		m.renderList(contentWidth),
		m.renderStatusBar(contentWidth),
	)
}

func (m HistorySelectorModel) renderList(width int) string {
	if len(m.conversations) == 0 {
		return listPanelStyle.Width(width).Render(hintStyle.Render("No saved conversations"))
	}

	maxItems := max(5, m.height-10)
	offset := 0
	if m.cursor >= maxItems {
		offset = m.cursor - maxItems + 1
	}
	end := min(offset+maxItems, len(m.conversations))

	var items []string
	if offset > 0 {
		items = append(items, hintStyle.Render("  ..."))
	}
	for i := offset; i < end; i++ {
		items = append(items, m.renderItem(i, m.conversations[i]))
	}
	if end < len(m.conversations) {
		items = append(items, hintStyle.Render("  ..."))
	}

	return listPanelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (m HistorySelectorModel) renderItem(index int, conv *history.Conversation) string {
	cursor := "  "
	style := listItemStyle
	if index == m.cursor {
		cursor = listCursorStyle.Render("> ")
		style = listSelectedStyle
	}

	meta := fmt.Sprintf(" %d msgs · %s", conv.MessageCount, history.FormatRelativeTime(conv.UpdatedAt))
	return cursor + style.Render(conv.Title) + listMetaStyle.Render(meta)
}

func (m HistorySelectorModel) renderStatusBar(width int) string {
	items := []string{
		statusKeyStyle.Render("↑↓") + statusDescStyle.Render(" Navigate"),
		statusKeyStyle.Render("Enter") + statusDescStyle.Render(" Show"),
		statusKeyStyle.Render("Esc") + statusDescStyle.Render(" Quit"),
	}
	return statusBarStyle.Width(width).Align(lipgloss.Center).Render(strings.Join(items, "  │  "))
}

// Result returns the selected conversation and whether the user confirmed it
func (m HistorySelectorModel) Result() (*history.Conversation, bool) {
	return m.selected, m.confirmed
}

// RunHistorySelector starts the selector and returns the chosen conversation,
// or nil when the user quit without choosing.
func RunHistorySelector(store HistoryStore) (*history.Conversation, error) {
	p := tea.NewProgram(NewHistorySelectorModel(store), tea.WithAltScreen())

	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	if hm, ok := final.(HistorySelectorModel); ok {
		if conv, confirmed := hm.Result(); confirmed {
			return conv, nil
		}
	}
	return nil, nil
}
