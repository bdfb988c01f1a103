package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/diogo/detectchat/internal/models"
)

// ExportFormat represents the format for exporting conversations
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
)

// ParseExportFormat maps a user-supplied name or file extension to a format
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "md", "markdown":
		return ExportFormatMarkdown, nil
	case "json":
		return ExportFormatJSON, nil
	}
	return "", fmt.Errorf("unknown export format %q (use markdown or json)", s)
}

// Export renders a conversation in the given format
func (s *Store) Export(id string, format ExportFormat) ([]byte, error) {
	switch format {
	case ExportFormatJSON:
		return s.ExportToJSON(id)
	case ExportFormatMarkdown, "":
		md, err := s.ExportToMarkdown(id)
		return []byte(md), err
	}
	return nil, fmt.Errorf("unknown export format %q", format)
}

// ExportToMarkdown exports a conversation to Markdown format
func (s *Store) ExportToMarkdown(id string) (string, error) {
	conv, err := s.GetConversation(id)
	if err != nil {
		return "", err
	}
	return FormatMarkdown(conv), nil
}

// FormatMarkdown renders a loaded conversation as Markdown
func FormatMarkdown(conv *Conversation) string {
	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(conv.Title)
	sb.WriteString("\n\n")

	if conv.BackendURL != "" {
		sb.WriteString("**Backend:** ")
		sb.WriteString(conv.BackendURL)
		sb.WriteString("\n")
	}
	sb.WriteString("**Created:** ")
	sb.WriteString(conv.CreatedAt.Format("2006-01-02 15:04:05"))
	sb.WriteString("\n")
	sb.WriteString("**Updated:** ")
	sb.WriteString(conv.UpdatedAt.Format("2006-01-02 15:04:05"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("**Messages:** %d", len(conv.Messages)))
	sb.WriteString("\n\n---\n\n")

	for i, msg := range conv.Messages {
		sb.WriteString("## ")
		sb.WriteString(roleLabel(msg))
		if !msg.Timestamp.IsZero() {
			sb.WriteString(" (")
			sb.WriteString(msg.Timestamp.Format("15:04:05"))
			sb.WriteString(")")
		}
		sb.WriteString("\n\n")

		sb.WriteString(msg.Text)
		sb.WriteString("\n")

		if detail := DetailLine(msg.Anomaly, msg.Sensitive); detail != "" {
			sb.WriteString("\n> ")
			sb.WriteString(detail)
			sb.WriteString("\n")
		}

		if i < len(conv.Messages)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String()
}

func roleLabel(msg Message) string {
	if msg.Sender == models.SenderUser {
		return "User"
	}
	switch msg.Kind {
	case models.KindWarning:
		return "System (warning)"
	case models.KindFailure:
		return "System (error)"
	}
	return "System"
}

// DetailLine summarizes detection details, e.g. "anomaly: B-PER · sensitive: B-PER=John".
// It returns "" when there is nothing to show.
func DetailLine(anomaly string, sensitive []models.SensitiveEntity) string {
	var parts []string
	if anomaly != "" {
		parts = append(parts, "anomaly: "+anomaly)
	}
	if len(sensitive) > 0 {
		entities := make([]string, len(sensitive))
		for i, e := range sensitive {
			entities[i] = e.Entity + "=" + e.Value
		}
		parts = append(parts, "sensitive: "+strings.Join(entities, ", "))
	}
	return strings.Join(parts, " · ")
}

// ExportToJSON exports a conversation to JSON format
func (s *Store) ExportToJSON(id string) ([]byte, error) {
	conv, err := s.GetConversation(id)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(conv, "", "  ")
}

// FormatRelativeTime formats a time as a relative string like "2h ago" or "yesterday"
func FormatRelativeTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 min ago"
		}
		return fmt.Sprintf("%d min ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 48*time.Hour:
		return "yesterday"
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
