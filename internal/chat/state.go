// Package chat holds the chat widget state and the request/reply cycle
// shared by the terminal UI and the one-shot ask command.
package chat

import (
	"maps"
	"slices"
	"strings"

	"github.com/diogo/detectchat/internal/models"
)

// Submission identifies one accepted prompt. Seq increases by one per submission.
type Submission struct {
	Seq    int
	Prompt string
}

// Reply is the system message produced for a submission
type Reply struct {
	Seq     int
	Message models.Message
}

// State is the widget state. Transitions return a new State and never
// modify the receiver, so older values stay valid snapshots.
type State struct {
	messages []models.Message
	input    string

	// ordered releases replies by Seq instead of arrival
	ordered     bool
	nextSeq     int
	nextRelease int
	held        map[int]models.Message
	inFlight    int
}

// NewState returns an empty state
func NewState(ordered bool) State {
	return State{ordered: ordered}
}

// Messages returns a copy of the log
func (s State) Messages() []models.Message {
	return slices.Clone(s.messages)
}

// Len returns the number of messages in the log
func (s State) Len() int {
	return len(s.messages)
}

// Input returns the input buffer
func (s State) Input() string {
	return s.input
}

// InFlight returns how many submissions are awaiting a reply
func (s State) InFlight() int {
	return s.inFlight
}

// Ordered reports whether replies are released in submission order
func (s State) Ordered() bool {
	return s.ordered
}

// Held returns how many replies arrived early and wait for an earlier one
func (s State) Held() int {
	return len(s.held)
}

// LastReply returns the most recent system message
func (s State) LastReply() (models.Message, bool) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if !s.messages[i].IsUser() {
			return s.messages[i], true
		}
	}
	return models.Message{}, false
}

// SetInput replaces the input buffer
func (s State) SetInput(input string) State {
	s.input = input
	return s
}

// Submit accepts the current input. Whitespace-only input is ignored and the
// state is returned unchanged with ok=false. Otherwise the user message is
// appended and the returned Submission must be resolved exactly once.
func (s State) Submit() (State, Submission, bool) {
	if strings.TrimSpace(s.input) == "" {
		return s, Submission{}, false
	}

	sub := Submission{Seq: s.nextSeq, Prompt: s.input}

	s.messages = append(slices.Clip(s.messages), models.NewUserMessage(s.input))
	s.nextSeq++
	s.inFlight++

	return s, sub, true
}

// Resolve applies a reply. The input buffer is cleared once per resolved submission.
func (s State) Resolve(reply Reply) State {
	if s.inFlight > 0 {
		s.inFlight--
	}
	s.input = ""

	if !s.ordered {
		s.messages = append(slices.Clip(s.messages), reply.Message)
		return s
	}

	held := maps.Clone(s.held)
	if held == nil {
		held = make(map[int]models.Message)
	}
	held[reply.Seq] = reply.Message

	msgs := slices.Clip(s.messages)
	for {
		msg, ok := held[s.nextRelease]
		if !ok {
			break
		}
		msgs = append(msgs, msg)
		delete(held, s.nextRelease)
		s.nextRelease++
	}

	s.messages = msgs
	s.held = held
	return s
}
