// Package tui provides the terminal user interface for detectchat.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/detectchat/internal/errors"
	"github.com/diogo/detectchat/internal/render"
)

// Color variables (updated from theme)
var (
	colorBorder  lipgloss.Color
	colorUser    lipgloss.Color
	colorReply   lipgloss.Color
	colorWarning lipgloss.Color
	colorError   lipgloss.Color
	colorAccent  lipgloss.Color
	colorText    lipgloss.Color
	colorTextDim lipgloss.Color
)

// Style variables (rebuilt when theme changes)
var (
	headerStyle       lipgloss.Style
	titleStyle        lipgloss.Style
	subtitleStyle     lipgloss.Style
	hintStyle         lipgloss.Style
	messagesAreaStyle lipgloss.Style

	// Message bubbles and labels, one pair per message kind
	userLabelStyle     lipgloss.Style
	userBubbleStyle    lipgloss.Style
	replyLabelStyle    lipgloss.Style
	replyBubbleStyle   lipgloss.Style
	warningLabelStyle  lipgloss.Style
	warningBubbleStyle lipgloss.Style
	failureLabelStyle  lipgloss.Style
	failureBubbleStyle lipgloss.Style

	// Anomaly and sensitive entity line under a reply
	detailStyle lipgloss.Style

	inputPanelStyle lipgloss.Style
	inputLabelStyle lipgloss.Style
	loadingStyle    lipgloss.Style

	statusBarStyle  lipgloss.Style
	statusKeyStyle  lipgloss.Style
	statusDescStyle lipgloss.Style

	errorStyle   lipgloss.Style
	noticeStyle  lipgloss.Style
	welcomeStyle lipgloss.Style

	// History selector
	listHeaderStyle   lipgloss.Style
	listPanelStyle    lipgloss.Style
	listItemStyle     lipgloss.Style
	listSelectedStyle lipgloss.Style
	listCursorStyle   lipgloss.Style
	listMetaStyle     lipgloss.Style
)

func init() {
	ApplyTheme(render.TokyoNightTheme)
}

// ApplyTheme refreshes all styles from theme
func ApplyTheme(theme render.TUITheme) {
	colorBorder = theme.Border
	colorUser = theme.User
	colorReply = theme.Reply
	colorWarning = theme.Warning
	colorError = theme.Error
	colorAccent = theme.Accent
	colorText = theme.Text
	colorTextDim = theme.TextDim

	rebuildStyles()
}

func bubble(border lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Foreground(colorText).
		Padding(0, 1)
}

func label(fg lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(fg).
		Bold(true)
}

// rebuildStyles creates all lipgloss styles with current color values
func rebuildStyles() {
	headerStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 2).
		MarginBottom(1)

	titleStyle = lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true)

	subtitleStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	hintStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Italic(true)

	messagesAreaStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(1)

	// User messages sit on the right, system messages on the left
	userLabelStyle = label(colorUser).MarginLeft(4)
	userBubbleStyle = bubble(colorUser).MarginLeft(4)

	replyLabelStyle = label(colorReply)
	replyBubbleStyle = bubble(colorReply).MarginRight(4)

	warningLabelStyle = label(colorWarning)
	warningBubbleStyle = bubble(colorWarning).
		Foreground(colorWarning).
		MarginRight(4)

	failureLabelStyle = label(colorError)
	failureBubbleStyle = bubble(colorError).
		Foreground(colorError).
		MarginRight(4)

	detailStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Italic(true).
		PaddingLeft(2)

	inputPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		MarginTop(1)

	inputLabelStyle = lipgloss.NewStyle().
		Foreground(colorUser).
		Bold(true).
		MarginRight(1)

	loadingStyle = lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true)

	statusBarStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		MarginTop(1)

	statusKeyStyle = lipgloss.NewStyle().
		Foreground(colorText).
		Bold(true)

	statusDescStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)

	errorStyle = lipgloss.NewStyle().
		Foreground(colorError).
		Bold(true)

	noticeStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Italic(true).
		PaddingLeft(1)

	welcomeStyle = lipgloss.NewStyle().
		Foreground(colorTextDim).
		Align(lipgloss.Center)

	listHeaderStyle = lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true).
		MarginBottom(1).
		PaddingLeft(1)

	listPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(1, 2)

	listItemStyle = lipgloss.NewStyle().
		Foreground(colorText)

	listSelectedStyle = lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true)

	listCursorStyle = lipgloss.NewStyle().
		Foreground(colorAccent)

	listMetaStyle = lipgloss.NewStyle().
		Foreground(colorTextDim)
}

// FormatError returns a styled error message with the details carried by
// structured errors.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	errStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errStyle.Render(fmt.Sprintf("✗ %v", err)))

	if status := errors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	if endpoint := errors.GetEndpoint(err); endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", endpoint)))
	}

	if body := errors.GetResponseBody(err); body != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n\n  %s", strings.ReplaceAll(body, "\n", "\n  "))))
		return sb.String()
	}

	switch {
	case errors.IsConfigError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Run 'detectchat config show' to check your settings"))
	case errors.IsNetworkError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Check that the detection service is running and reachable"))
	case errors.IsTimeoutError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Request timed out. Raise timeout_seconds or try again"))
	}

	return sb.String()
}
