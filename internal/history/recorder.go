package history

import (
	"sync"

	"github.com/diogo/detectchat/internal/models"
)

// Recorder persists a live chat log. It is fed full snapshots of the
// append-only log and stores only the messages it has not seen yet.
// The conversation is created lazily, so a session without messages leaves nothing behind.
type Recorder struct {
	store      *Store
	backendURL string

	mu     sync.Mutex
	convID string
	saved  int
}

// NewRecorder creates a recorder for a new conversation
func NewRecorder(store *Store, backendURL string) *Recorder {
	return &Recorder{store: store, backendURL: backendURL}
}

// Observe stores msgs[saved:]
func (r *Recorder) Observe(msgs []models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(msgs) <= r.saved {
		return nil
	}

	if r.convID == "" {
		conv, err := r.store.CreateConversation(r.backendURL)
		if err != nil {
			return err
		}
		r.convID = conv.ID
	}

	for _, msg := range msgs[r.saved:] {
		if err := r.store.AddMessage(r.convID, FromModel(msg)); err != nil {
			return err
		}
		r.saved++
	}

	return nil
}

// ConversationID returns the conversation being written, or "" before the first message
func (r *Recorder) ConversationID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.convID
}

// Saved returns how many messages have been stored
func (r *Recorder) Saved() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved
}
