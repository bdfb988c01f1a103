package history

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmptyRef        = errors.New("empty reference")
	ErrNoConversations = errors.New("no conversations found")
	ErrRefNotFound     = errors.New("no conversation matching reference")
	ErrAmbiguousRef    = errors.New("reference matches multiple conversations")
)

// minPrefix is the shortest ID prefix accepted as a reference
const minPrefix = 4

// Catalog is the part of the store a Resolver reads
type Catalog interface {
	ListConversations() ([]*Conversation, error)
	GetConversation(id string) (*Conversation, error)
}

// Resolver turns the references users type (aliases, list positions, ID
// prefixes, title words) into conversation IDs.
type Resolver struct {
	catalog Catalog
}

func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// refMatcher inspects ref against the newest-first list. matched reports
// whether ref had this matcher's form; later matchers run only when it is false.
type refMatcher func(ref string, convs []*Conversation) (id string, matched bool, err error)

var refMatchers = []refMatcher{matchAlias, matchPosition, matchID, matchTitle}

// Resolve returns the ID ref points at. Matchers run in order: alias, list
// position, exact ID or unique prefix, then title substring.
func (r *Resolver) Resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", ErrEmptyRef
	}

	convs, err := r.catalog.ListConversations()
	if err != nil {
		return "", fmt.Errorf("failed to list conversations: %w", err)
	}
	if len(convs) == 0 {
		return "", ErrNoConversations
	}

	for _, match := range refMatchers {
		if id, ok, err := match(ref, convs); ok || err != nil {
			return id, err
		}
	}
	return "", fmt.Errorf("%w: %q", ErrRefNotFound, ref)
}

// ResolveWithInfo resolves ref and loads the conversation with its messages
func (r *Resolver) ResolveWithInfo(ref string) (*Conversation, error) {
	id, err := r.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return r.catalog.GetConversation(id)
}

func matchAlias(ref string, convs []*Conversation) (string, bool, error) {
	switch strings.ToLower(ref) {
	case "@last", "@latest":
		return convs[0].ID, true, nil
	case "@first", "@oldest":
		return convs[len(convs)-1].ID, true, nil
	}
	return "", false, nil
}

func matchPosition(ref string, convs []*Conversation) (string, bool, error) {
	n, err := strconv.Atoi(ref)
	if err != nil {
		return "", false, nil
	}
	if n < 1 || n > len(convs) {
		return "", true, fmt.Errorf("%w: position %d out of range (1-%d)", ErrRefNotFound, n, len(convs))
	}
	return convs[n-1].ID, true, nil
}

// matchID accepts the full ID or a prefix that only one conversation has.
// An ambiguous prefix falls through so title search can still match.
func matchID(ref string, convs []*Conversation) (string, bool, error) {
	prefix := strings.ToLower(ref)
	var found []string
	for _, c := range convs {
		if c.ID == prefix {
			return c.ID, true, nil
		}
		if len(prefix) >= minPrefix && strings.HasPrefix(c.ID, prefix) {
			found = append(found, c.ID)
		}
	}
	if len(found) == 1 {
		return found[0], true, nil
	}
	return "", false, nil
}

func matchTitle(ref string, convs []*Conversation) (string, bool, error) {
	needle := strings.ToLower(ref)
	var hits []*Conversation
	for _, c := range convs {
		if strings.Contains(strings.ToLower(c.Title), needle) {
			hits = append(hits, c)
		}
	}

	switch len(hits) {
	case 0:
		return "", false, nil
	case 1:
		return hits[0].ID, true, nil
	}

	titles := make([]string, len(hits))
	for i, c := range hits {
		titles[i] = strconv.Quote(c.Title)
	}
	return "", true, fmt.Errorf("%w: %q matches %s; use the ID or a longer title",
		ErrAmbiguousRef, ref, strings.Join(titles, ", "))
}

// ListAliases describes the references Resolve accepts
func ListAliases() string {
	return `References:
  @last, @latest   Most recently updated conversation
  @first, @oldest  Oldest conversation
  1, 2, 3          Position in 'history list' (1 is the newest)
  <id>             Full ID, or a prefix of 4+ characters only one ID has
  text             A word from the title; must match exactly one conversation`
}
