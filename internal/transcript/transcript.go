// Package transcript archives completed chats for the researchers. The
// archive is write-only from the chat's side: nothing is ever loaded back
// into a live session.
package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"ThinkChat/internal/session"
)

// Record is one archived session
type Record struct {
	SessionID    string            `json:"session_id"`
	StartTime    time.Time         `json:"start_time"`
	CompletedAt  time.Time         `json:"completed_at"`
	Mode         string            `json:"mode"`
	ThinkingTime float64           `json:"thinking_time"`
	VerifyCode   string            `json:"verify_code"`
	Messages     []session.Message `json:"messages"`
}

// Store writes records to SQLite
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the archive at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createSessionsTable := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		start_time DATETIME,
		completed_at DATETIME,
		mode TEXT,
		thinking_time REAL,
		verify_code TEXT
	);`

	createMessagesTable := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT,
		role TEXT,
		content TEXT,
		timestamp DATETIME,
		FOREIGN KEY(session_id) REFERENCES sessions(id)
	);`

	if _, err := db.Exec(createSessionsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	if _, err := db.Exec(createMessagesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create messages table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Save archives a record. A session archived twice (after an operator
// reset reuses the id) replaces the earlier copy.
func (s *Store) Save(ctx context.Context, rec Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO sessions (id, start_time, completed_at, mode, thinking_time, verify_code) VALUES (?, ?, ?, ?, ?, ?)",
		rec.SessionID, rec.StartTime, rec.CompletedAt, rec.Mode, rec.ThinkingTime, rec.VerifyCode,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", rec.SessionID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	for _, msg := range rec.Messages {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO messages (session_id, role, content, timestamp) VALUES (?, ?, ?, ?)",
			rec.SessionID, string(msg.Role), msg.Content, msg.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// List returns every archived record, oldest first
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, start_time, completed_at, mode, thinking_time, verify_code FROM sessions ORDER BY completed_at",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.SessionID, &rec.StartTime, &rec.CompletedAt, &rec.Mode, &rec.ThinkingTime, &rec.VerifyCode); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	for i := range records {
		msgs, err := s.messages(ctx, records[i].SessionID)
		if err != nil {
			return nil, err
		}
		records[i].Messages = msgs
	}
	return records, nil
}

func (s *Store) messages(ctx context.Context, sessionID string) ([]session.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content, timestamp FROM messages WHERE session_id = ? ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	messages := []session.Message{}
	for rows.Next() {
		var msg session.Message
		var role string
		if err := rows.Scan(&role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = session.Role(role)
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Export writes every record as one JSON object per line
func (s *Store) Export(ctx context.Context, w io.Writer) (int, error) {
	records, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return 0, fmt.Errorf("failed to encode record: %w", err)
		}
	}
	return len(records), nil
}
