// Package render formats replies and transcripts for the terminal.
package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Options configures how a reply is rendered. It is comparable so it can key the caches.
type Options struct {
	// Width is the word-wrap column
	Width int

	// Style is a glamour style name ("dark", "light", "notty", "dracula", ...) or a JSON file path
	Style string

	EnableEmoji      bool
	PreserveNewLines bool
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		Width:            80,
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
	}
}

func (o Options) WithWidth(width int) Options {
	o.Width = width
	return o
}

func (o Options) WithStyle(style string) Options {
	o.Style = style
	return o
}

// defaultCapacity is how many rendered replies the shared renderer keeps
const defaultCapacity = 256

type replyKey struct {
	opts Options
	text string
}

// Renderer turns reply text into terminal output. It keeps one glamour
// renderer per option set and remembers rendered replies, because the chat
// view renders the whole log again on every update. Safe for concurrent use.
type Renderer struct {
	mu       sync.Mutex
	terms    map[Options]*glamour.TermRenderer
	replies  map[replyKey]string
	order    []replyKey
	capacity int
}

// NewRenderer returns a Renderer remembering at most capacity replies.
// The oldest reply is forgotten first.
func NewRenderer(capacity int) *Renderer {
	if capacity < 1 {
		capacity = 1
	}
	return &Renderer{
		terms:    make(map[Options]*glamour.TermRenderer),
		replies:  make(map[replyKey]string),
		capacity: capacity,
	}
}

var shared = NewRenderer(defaultCapacity)

// Markdown renders content with the shared renderer.
func Markdown(content string, opts Options) (string, error) {
	return shared.Markdown(content, opts)
}

// Reply renders a system reply with the shared renderer.
func Reply(text string, opts Options) string {
	return shared.Reply(text, opts)
}

// Markdown renders content without remembering the result
func (r *Renderer) Markdown(content string, opts Options) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.render(content, opts)
}

// Reply renders a system reply trimmed of surrounding newlines. Rendering
// errors fall back to the plain text so the reply is always shown. Blank
// text and failed renders are returned as-is and not remembered.
func (r *Renderer) Reply(text string, opts Options) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	key := replyKey{opts: opts, text: text}

	r.mu.Lock()
	defer r.mu.Unlock()

	if out, ok := r.replies[key]; ok {
		return out
	}

	out, err := r.render(text, opts)
	if err != nil {
		return text
	}
	out = strings.Trim(out, "\n")

	if len(r.order) >= r.capacity {
		delete(r.replies, r.order[0])
		r.order = r.order[1:]
	}
	r.replies[key] = out
	r.order = append(r.order, key)

	return out
}

// size returns how many rendered replies are remembered
func (r *Renderer) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.replies)
}

// render must be called with r.mu held; glamour renderers are not safe for concurrent Render calls
func (r *Renderer) render(content string, opts Options) (string, error) {
	term, ok := r.terms[opts]
	if !ok {
		var err error
		term, err = newTermRenderer(opts)
		if err != nil {
			return "", err
		}
		r.terms[opts] = term
	}
	return term.Render(content)
}

func newTermRenderer(opts Options) (*glamour.TermRenderer, error) {
	style := opts.Style
	if style == "" {
		style = DefaultOptions().Style
	}

	// WithStylePath accepts both glamour's standard style names and JSON files
	termOpts := []glamour.TermRendererOption{
		glamour.WithStylePath(style),
		glamour.WithWordWrap(opts.Width),
	}
	if opts.EnableEmoji {
		termOpts = append(termOpts, glamour.WithEmoji())
	}
	if opts.PreserveNewLines {
		termOpts = append(termOpts, glamour.WithPreservedNewLines())
	}

	return glamour.NewTermRenderer(termOpts...)
}
