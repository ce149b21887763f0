package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/teemow/mahakaal/internal/conversation"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "mahakaal_chats.db"

// DefaultListLimit bounds List when no positive limit is given.
const DefaultListLimit = 50

var (
	// ErrNotFound is returned when a session id does not exist.
	ErrNotFound = errors.New("chat session not found")

	// ErrEmptyTitle is returned by Rename for blank titles.
	ErrEmptyTitle = errors.New("title cannot be empty")
)

// Session is a stored chat conversation.
type Session struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Store is a SQLite backed session store. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS chat_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id INTEGER NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	content TEXT,
	tool_call_id TEXT,
	tool_calls TEXT,
	name TEXT,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, id);
CREATE INDEX IF NOT EXISTS idx_chat_sessions_updated ON chat_sessions(updated_at);
`

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	s := &Store{db: db, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger.Debug("session store opened", slog.String("path", path))
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create starts a new session. An empty title becomes "Chat YYYY-MM-DD HH:MM".
func (s *Store) Create(ctx context.Context, title string) (*Session, error) {
	now := s.now()
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Chat " + now.Format("2006-01-02 15:04")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (title, created_at, updated_at) VALUES (?, ?, ?)`,
		title, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read session id: %w", err)
	}

	return &Session{
		ID:        id,
		Title:     title,
		CreatedAt: fromMillis(now.UnixMilli()),
		UpdatedAt: fromMillis(now.UnixMilli()),
	}, nil
}

// AppendMessages adds messages to the end of a session and touches its
// updated_at timestamp.
func (s *Store) AppendMessages(ctx context.Context, id int64, msgs ...conversation.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UnixMilli()
	res, err := tx.ExecContext(ctx, `UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("failed to touch session %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	} else if n == 0 {
		return fmt.Errorf("session %d: %w", id, ErrNotFound)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chat_messages (session_id, role, content, tool_call_id, tool_calls, name, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		var toolCalls sql.NullString
		if len(m.ToolCalls) > 0 {
			raw, err := json.Marshal(m.ToolCalls)
			if err != nil {
				return fmt.Errorf("failed to encode tool calls: %w", err)
			}
			toolCalls = sql.NullString{String: string(raw), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, id, string(m.Role), m.Content,
			nullString(m.ToolCallID), toolCalls, nullString(m.Name), now); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit messages: %w", err)
	}
	return nil
}

const sessionColumns = `
	s.id, s.title, s.created_at, s.updated_at,
	(SELECT COUNT(*) FROM chat_messages m WHERE m.session_id = s.id)`

// List returns the most recently updated sessions first.
func (s *Store) List(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM chat_sessions s ORDER BY s.updated_at DESC, s.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Get returns one session.
func (s *Store) Get(ctx context.Context, id int64) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM chat_sessions s WHERE s.id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	return sess, err
}

// Messages returns the messages of a session in insertion order.
func (s *Store) Messages(ctx context.Context, id int64) ([]conversation.Message, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, tool_call_id, tool_calls, name
		FROM chat_messages WHERE session_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	msgs := []conversation.Message{}
	for rows.Next() {
		var (
			role                             string
			content, callID, toolCalls, name sql.NullString
		)
		if err := rows.Scan(&role, &content, &callID, &toolCalls, &name); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		m := conversation.Message{
			Role:       conversation.Role(role),
			Content:    content.String,
			ToolCallID: callID.String,
			Name:       name.String,
		}
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &m.ToolCalls); err != nil {
				return nil, fmt.Errorf("failed to decode tool calls: %w", err)
			}
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return msgs, nil
}

// Rename changes the title of a session.
func (s *Store) Rename(ctx context.Context, id int64, title string) (*Session, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	res, err := s.db.ExecContext(ctx, `UPDATE chat_sessions SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return nil, fmt.Errorf("failed to rename session %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("failed to check affected rows: %w", err)
	} else if n == 0 {
		return nil, fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	return s.Get(ctx, id)
}

// Delete removes a session and all of its messages.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete messages of session %d: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	} else if n == 0 {
		return fmt.Errorf("session %d: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var (
		sess             Session
		created, updated int64
	)
	if err := row.Scan(&sess.ID, &sess.Title, &created, &updated, &sess.MessageCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	sess.CreatedAt = fromMillis(created)
	sess.UpdatedAt = fromMillis(updated)
	return &sess, nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
