package models

import (
	"slices"
	"time"
)

// Sender identifies who authored a message
type Sender string

const (
	SenderUser   Sender = "user"
	SenderSystem Sender = "system"
)

// MessageKind refines system messages for display and persistence
type MessageKind string

const (
	KindPrompt  MessageKind = "prompt"  // user input
	KindReply   MessageKind = "reply"   // generated text
	KindWarning MessageKind = "warning" // backend warning
	KindFailure MessageKind = "failure" // fallback after a failed call
)

// Message is one entry of the chat log. Values are never modified after creation.
type Message struct {
	Sender    Sender
	Kind      MessageKind
	Text      string
	Anomaly   string
	Sensitive []SensitiveEntity
	Timestamp time.Time
}

// NewUserMessage creates the message appended when the user submits input
func NewUserMessage(text string) Message {
	return Message{
		Sender:    SenderUser,
		Kind:      KindPrompt,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewReplyMessage creates the system message for a decoded detect result
func NewReplyMessage(result *DetectResult) Message {
	kind := KindReply
	if result.Kind == ResultWarning {
		kind = KindWarning
	}
	return Message{
		Sender:    SenderSystem,
		Kind:      kind,
		Text:      result.ReplyText(),
		Anomaly:   result.Anomaly,
		Sensitive: slices.Clone(result.Sensitive),
		Timestamp: time.Now(),
	}
}

// NewFailureMessage creates the fallback system message
func NewFailureMessage() Message {
	return Message{
		Sender:    SenderSystem,
		Kind:      KindFailure,
		Text:      FallbackReply,
		Timestamp: time.Now(),
	}
}

// IsUser reports whether the user authored the message
func (m Message) IsUser() bool {
	return m.Sender == SenderUser
}
