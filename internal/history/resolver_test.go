package history

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func createTitled(t *testing.T, store *Store, title string) *Conversation {
	t.Helper()
	conv, err := store.CreateConversation("")
	if err != nil {
		t.Fatalf("CreateConversation failed: %v", err)
	}
	if err := store.UpdateTitle(conv.ID, title); err != nil {
		t.Fatalf("UpdateTitle failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	return conv
}

func TestResolver_Aliases(t *testing.T) {
	store := newTestStore(t)
	conv1 := createTitled(t, store, "Billing question")
	conv2 := createTitled(t, store, "Password reset")
	conv3 := createTitled(t, store, "Billing follow-up")

	resolver := NewResolver(store)

	tests := []struct {
		ref  string
		want string
	}{
		{"@last", conv3.ID},
		{"@LAST", conv3.ID},
		{"@latest", conv3.ID},
		{"@first", conv1.ID},
		{"@oldest", conv1.ID},
		{"1", conv3.ID},
		{"2", conv2.ID},
		{"3", conv1.ID},
		{conv2.ID, conv2.ID},
		{"password", conv2.ID},
		{"  question ", conv1.ID},
	}

	for _, tt := range tests {
		got, err := resolver.Resolve(tt.ref)
		if err != nil {
			t.Errorf("Resolve(%q) error: %v", tt.ref, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Resolve(%q) = %s, want %s", tt.ref, got, tt.want)
		}
	}
}

func TestResolver_IDPrefix(t *testing.T) {
	store := newTestStore(t)
	conv := createTitled(t, store, "only")

	resolver := NewResolver(store)

	got, err := resolver.Resolve(conv.ID[:8])
	if err != nil || got != conv.ID {
		t.Errorf("Resolve(prefix) = %s, %v", got, err)
	}
}

func TestResolver_Errors(t *testing.T) {
	store := newTestStore(t)
	resolver := NewResolver(store)

	if _, err := resolver.Resolve("@last"); !errors.Is(err, ErrNoConversations) {
		t.Errorf("empty store error = %v", err)
	}

	createTitled(t, store, "Billing question")
	createTitled(t, store, "Billing follow-up")

	tests := []struct {
		ref     string
		wantErr error
		wantMsg string
	}{
		{"", ErrEmptyRef, "empty reference"},
		{"0", ErrRefNotFound, "out of range"},
		{"9", ErrRefNotFound, "out of range"},
		{"billing", ErrAmbiguousRef, "Billing question"},
		{"nothing-like-this", ErrRefNotFound, "nothing-like-this"},
	}

	for _, tt := range tests {
		_, err := resolver.Resolve(tt.ref)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Resolve(%q) error = %v, want %v", tt.ref, err, tt.wantErr)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantMsg) {
			t.Errorf("Resolve(%q) error = %q, want it to mention %q", tt.ref, err, tt.wantMsg)
		}
	}
}

// fixedCatalog serves a prepared list so ID collisions can be set up
type fixedCatalog []*Conversation

func (c fixedCatalog) ListConversations() ([]*Conversation, error) { return c, nil }

func (c fixedCatalog) GetConversation(id string) (*Conversation, error) {
	for _, conv := range c {
		if conv.ID == id {
			return conv, nil
		}
	}
	return nil, ErrRefNotFound
}

func TestResolver_AmbiguousPrefixFallsBackToTitle(t *testing.T) {
	catalog := fixedCatalog{
		{ID: "abcd1111", Title: "Billing notes"},
		{ID: "abcd2222", Title: "Password reset"},
		{ID: "ffff0000", Title: "abcd draft"},
	}
	resolver := NewResolver(catalog)

	got, err := resolver.Resolve("abcd")
	if err != nil || got != "ffff0000" {
		t.Errorf("Resolve(abcd) = %s, %v; want the title match", got, err)
	}

	if _, err := resolver.Resolve("ABCD2"); err != nil {
		t.Errorf("prefix match should ignore case, got %v", err)
	}

	if _, err := resolver.Resolve("abc"); !errors.Is(err, ErrRefNotFound) {
		t.Errorf("prefixes shorter than %d should not match IDs, got %v", minPrefix, err)
	}
}

func TestResolver_ResolveWithInfo(t *testing.T) {
	store := newTestStore(t)
	conv := createTitled(t, store, "Hello")
	_ = store.AddMessage(conv.ID, replyMsg("hi"))

	got, err := NewResolver(store).ResolveWithInfo("@last")
	if err != nil {
		t.Fatalf("ResolveWithInfo failed: %v", err)
	}
	if got.ID != conv.ID || len(got.Messages) != 1 {
		t.Errorf("got %s with %d messages", got.ID, len(got.Messages))
	}
}

func TestListAliases(t *testing.T) {
	aliases := ListAliases()
	for _, want := range []string{"@last", "@first", "@oldest", "1, 2, 3"} {
		if !strings.Contains(aliases, want) {
			t.Errorf("ListAliases() missing %q", want)
		}
	}
}
