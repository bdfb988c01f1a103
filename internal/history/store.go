// Package history provides local transcript storage backed by SQLite.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/diogo/detectchat/internal/models"
)

// DBFile is the database file created under the store directory
const DBFile = "history.db"

// maxTitleLen bounds titles derived from the first prompt, in runes
const maxTitleLen = 50

// ErrNotFound is returned when a conversation does not exist
var ErrNotFound = errors.New("conversation not found")

// Message is one persisted chat message
type Message struct {
	Sender    models.Sender            `json:"sender"`
	Kind      models.MessageKind       `json:"kind"`
	Text      string                   `json:"text"`
	Anomaly   string                   `json:"anomaly,omitempty"`
	Sensitive []models.SensitiveEntity `json:"sensitive_data,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
}

// FromModel converts a chat message for storage
func FromModel(m models.Message) Message {
	return Message{
		Sender:    m.Sender,
		Kind:      m.Kind,
		Text:      m.Text,
		Anomaly:   m.Anomaly,
		Sensitive: m.Sensitive,
		Timestamp: m.Timestamp,
	}
}

// Conversation is one saved chat session
type Conversation struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	BackendURL string    `json:"backend_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Messages   []Message `json:"messages"`

	// MessageCount is filled by ListConversations, which does not load messages
	MessageCount int `json:"-"`
}

// Store manages transcript persistence
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the history database in baseDir
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	dbPath := filepath.Join(baseDir, DBFile)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serializes writers from concurrent replies
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db, path: dbPath}

	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	PRAGMA foreign_keys = ON;
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		backend_url TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		sender TEXT NOT NULL,
		kind TEXT NOT NULL,
		text TEXT NOT NULL,
		anomaly TEXT NOT NULL DEFAULT '',
		sensitive_json TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		PRIMARY KEY (conversation_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateConversation creates an empty conversation
func (s *Store) CreateConversation(backendURL string) (*Conversation, error) {
	now := time.Now()
	conv := &Conversation{
		ID:         uuid.New().String(),
		Title:      fmt.Sprintf("Chat %s", now.Format("2006-01-02 15:04")),
		BackendURL: backendURL,
		CreatedAt:  now,
		UpdatedAt:  now,
		Messages:   []Message{},
	}

	_, err := s.db.Exec(
		`INSERT INTO conversations (id, title, backend_url, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		conv.ID, conv.Title, conv.BackendURL, now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return conv, nil
}

// GetConversation retrieves a conversation and its messages
func (s *Store) GetConversation(id string) (*Conversation, error) {
	conv := &Conversation{}
	var created, updated int64

	err := s.db.QueryRow(
		`SELECT id, title, backend_url, created_at, updated_at FROM conversations WHERE id = ?`, id,
	).Scan(&conv.ID, &conv.Title, &conv.BackendURL, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}
	conv.CreatedAt = time.Unix(0, created)
	conv.UpdatedAt = time.Unix(0, updated)

	rows, err := s.db.Query(
		`SELECT sender, kind, text, anomaly, sensitive_json, created_at FROM messages WHERE conversation_id = ? ORDER BY seq`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	defer rows.Close()

	conv.Messages = []Message{}
	for rows.Next() {
		var (
			msg       Message
			sensitive string
			ts        int64
		)
		if err := rows.Scan(&msg.Sender, &msg.Kind, &msg.Text, &msg.Anomaly, &sensitive, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if err := json.Unmarshal([]byte(sensitive), &msg.Sensitive); err != nil {
			return nil, fmt.Errorf("failed to decode sensitive data: %w", err)
		}
		if len(msg.Sensitive) == 0 {
			msg.Sensitive = nil
		}
		msg.Timestamp = time.Unix(0, ts)
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}

	conv.MessageCount = len(conv.Messages)
	return conv, nil
}

// ListConversations returns all conversations without messages, most recent first
func (s *Store) ListConversations() ([]*Conversation, error) {
	rows, err := s.db.Query(`
		SELECT c.id, c.title, c.backend_url, c.created_at, c.updated_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c
		ORDER BY c.updated_at DESC, c.rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*Conversation
	for rows.Next() {
		conv := &Conversation{}
		var created, updated int64
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.BackendURL, &created, &updated, &conv.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conv.CreatedAt = time.Unix(0, created)
		conv.UpdatedAt = time.Unix(0, updated)
		conversations = append(conversations, conv)
	}

	return conversations, rows.Err()
}

// AddMessage appends a message. The first user message becomes the title.
func (s *Store) AddMessage(id string, msg Message) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM messages WHERE conversation_id = ?`, id,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("failed to read message sequence: %w", err)
	}

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to read conversation: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	sensitive := msg.Sensitive
	if sensitive == nil {
		sensitive = []models.SensitiveEntity{}
	}
	sensitiveJSON, err := json.Marshal(sensitive)
	if err != nil {
		return fmt.Errorf("failed to encode sensitive data: %w", err)
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, seq, sender, kind, text, anomaly, sensitive_json, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, next, string(msg.Sender), string(msg.Kind), msg.Text, msg.Anomaly, string(sensitiveJSON), ts.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	now := time.Now().UnixNano()
	if msg.Sender == models.SenderUser && !s.hasUserMessageBefore(ctx, tx, id, next) {
		_, err = tx.ExecContext(ctx, `UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`, TitleFromPrompt(msg.Text), now, id)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, now, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	return tx.Commit()
}

func (s *Store) hasUserMessageBefore(ctx context.Context, tx *sql.Tx, id string, seq int) bool {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND sender = ? AND seq < ?`,
		id, string(models.SenderUser), seq,
	).Scan(&n)
	return err == nil && n > 0
}

// UpdateTitle updates the title of a conversation
func (s *Store) UpdateTitle(id, title string) error {
	res, err := s.db.Exec(`UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`, title, time.Now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("failed to update title: %w", err)
	}
	return expectOne(res, id)
}

// DeleteConversation removes a conversation and its messages
func (s *Store) DeleteConversation(id string) error {
	if _, err := s.db.Exec(`DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	res, err := s.db.Exec(`DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return expectOne(res, id)
}

// ClearAll deletes all conversations
func (s *Store) ClearAll() error {
	if _, err := s.db.Exec(`DELETE FROM messages; DELETE FROM conversations;`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// TitleFromPrompt derives a one-line title from a prompt
func TitleFromPrompt(prompt string) string {
	title := strings.Join(strings.Fields(prompt), " ")
	if utf8.RuneCountInString(title) > maxTitleLen {
		title = string([]rune(title)[:maxTitleLen]) + "..."
	}
	return title
}
