package chat

import (
	"testing"

	"github.com/diogo/detectchat/internal/models"
)

func reply(seq int, text string) Reply {
	return Reply{Seq: seq, Message: models.NewReplyMessage(models.NewGenerated(text))}
}

func texts(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func equalTexts(got []models.Message, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i].Text != want[i] {
			return false
		}
	}
	return true
}

func TestSubmit_BlankInputIsNoop(t *testing.T) {
	for _, input := range []string{"", " ", "   ", "\t\n", "   "} {
		s := NewState(false).SetInput(input)

		next, _, ok := s.Submit()
		if ok {
			t.Errorf("Submit(%q) should be a no-op", input)
		}
		if next.Len() != 0 {
			t.Errorf("Submit(%q) appended %d messages", input, next.Len())
		}
		if next.Input() != input {
			t.Errorf("Submit(%q) changed input to %q", input, next.Input())
		}
		if next.InFlight() != 0 {
			t.Errorf("Submit(%q) left a call in flight", input)
		}
	}
}

func TestSubmit_AppendsUserMessageFirst(t *testing.T) {
	s := NewState(false).SetInput("  Hi  ")

	next, sub, ok := s.Submit()
	if !ok {
		t.Fatal("Submit() should accept non-blank input")
	}
	if sub.Prompt != "  Hi  " {
		t.Errorf("Prompt = %q, input should be sent as typed", sub.Prompt)
	}

	msgs := next.Messages()
	if len(msgs) != 1 || msgs[0].Sender != models.SenderUser || msgs[0].Text != "  Hi  " {
		t.Fatalf("Messages() = %v", texts(msgs))
	}
	if next.InFlight() != 1 {
		t.Errorf("InFlight() = %d, want 1", next.InFlight())
	}

	// The original value is untouched
	if s.Len() != 0 {
		t.Error("Submit must not modify the receiver")
	}
}

func TestResolve_ClearsInput(t *testing.T) {
	s, sub, _ := NewState(false).SetInput("Hi").Submit()
	s = s.Resolve(reply(sub.Seq, "Hello!"))

	if s.Input() != "" {
		t.Errorf("Input() = %q, want empty", s.Input())
	}
	if s.InFlight() != 0 {
		t.Errorf("InFlight() = %d, want 0", s.InFlight())
	}

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len(Messages()) = %d, want 2", len(msgs))
	}
	if msgs[0].Sender != models.SenderUser || msgs[0].Text != "Hi" {
		t.Errorf("first message = %+v", msgs[0])
	}
	if msgs[1].Sender != models.SenderSystem || msgs[1].Text != "Hello!" {
		t.Errorf("second message = %+v", msgs[1])
	}
}

func TestResolve_ArrivalOrder(t *testing.T) {
	s := NewState(false)

	s, first, _ := s.SetInput("one").Submit()
	s, second, _ := s.SetInput("two").Submit()

	s = s.Resolve(reply(second.Seq, "reply two"))
	s = s.Resolve(reply(first.Seq, "reply one"))

	if !equalTexts(s.Messages(), "one", "two", "reply two", "reply one") {
		t.Errorf("Messages() = %v", texts(s.Messages()))
	}
}

func TestResolve_SubmissionOrder(t *testing.T) {
	s := NewState(true)

	s, first, _ := s.SetInput("one").Submit()
	s, second, _ := s.SetInput("two").Submit()
	s, third, _ := s.SetInput("three").Submit()

	s = s.Resolve(reply(third.Seq, "reply three"))
	if s.Len() != 3 || s.Held() != 1 {
		t.Fatalf("early reply should be held: len=%d held=%d", s.Len(), s.Held())
	}

	s = s.Resolve(reply(first.Seq, "reply one"))
	if !equalTexts(s.Messages(), "one", "two", "three", "reply one") {
		t.Fatalf("Messages() = %v", texts(s.Messages()))
	}

	s = s.Resolve(reply(second.Seq, "reply two"))
	if !equalTexts(s.Messages(), "one", "two", "three", "reply one", "reply two", "reply three") {
		t.Errorf("Messages() = %v", texts(s.Messages()))
	}
	if s.Held() != 0 || s.InFlight() != 0 {
		t.Errorf("held=%d inFlight=%d, want 0/0", s.Held(), s.InFlight())
	}
}

func TestState_SnapshotsAreIndependent(t *testing.T) {
	base, sub, _ := NewState(true).SetInput("a").Submit()
	base2, sub2, _ := base.SetInput("b").Submit()

	branchA := base2.Resolve(reply(sub2.Seq, "held"))
	branchB := base2.Resolve(reply(sub.Seq, "first"))

	if branchA.Held() != 1 || branchB.Held() != 0 {
		t.Errorf("held maps leaked between snapshots: %d, %d", branchA.Held(), branchB.Held())
	}
	if base2.Held() != 0 {
		t.Error("base state must not see held replies")
	}

	msgs := branchB.Messages()
	msgs[0].Text = "mutated"
	if branchB.Messages()[0].Text != "a" {
		t.Error("Messages() must return a copy")
	}
}

func TestState_LogOnlyGrows(t *testing.T) {
	s := NewState(false)
	prev := 0

	inputs := []string{"a", " ", "b", "", "c"}
	var subs []Submission
	for _, in := range inputs {
		var sub Submission
		var ok bool
		s, sub, ok = s.SetInput(in).Submit()
		if ok {
			subs = append(subs, sub)
		}
		if s.Len() < prev {
			t.Fatalf("log shrank from %d to %d", prev, s.Len())
		}
		prev = s.Len()
	}

	for _, sub := range subs {
		s = s.Resolve(reply(sub.Seq, "r"))
		if s.Len() != prev+1 {
			t.Fatalf("each resolve should add exactly one message")
		}
		prev = s.Len()
	}

	if s.Len() != 2*len(subs) {
		t.Errorf("Len() = %d, want %d", s.Len(), 2*len(subs))
	}
}

func TestState_LastReply(t *testing.T) {
	s := NewState(false)
	if _, ok := s.LastReply(); ok {
		t.Error("empty state has no reply")
	}

	s, sub, _ := s.SetInput("Hi").Submit()
	if _, ok := s.LastReply(); ok {
		t.Error("user message is not a reply")
	}

	s = s.Resolve(reply(sub.Seq, "Hello!"))
	last, ok := s.LastReply()
	if !ok || last.Text != "Hello!" {
		t.Errorf("LastReply() = %q, %v", last.Text, ok)
	}
}
