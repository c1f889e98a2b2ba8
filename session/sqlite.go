package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go sqlite driver

	"github.com/momentumhq/momentum/core"
)

// SQLiteStore is a durable core.SessionStore persisting one row per
// transcript turn. Rows are ordered by a per-thread sequence number assigned
// at append time, so load order always equals insertion order.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) a transcript database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewSQLiteStoreWithDB wraps an existing database handle, applying migrations.
func NewSQLiteStoreWithDB(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS transcript_turns (
			thread_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			event_id TEXT NOT NULL,
			turn_id TEXT NOT NULL,
			author TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			content TEXT,
			PRIMARY KEY (thread_id, seq)
		);
	`)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Get loads the full transcript for a thread in insertion order. Unknown
// threads yield an empty session.
func (s *SQLiteStore) Get(threadID string) (*core.Session, error) {
	rows, err := s.db.Query(
		`SELECT event_id, turn_id, author, timestamp, content
		 FROM transcript_turns WHERE thread_id = ? ORDER BY seq`, threadID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	defer rows.Close()

	sess := core.NewSession(threadID)
	for rows.Next() {
		var (
			ev      core.Event
			ts      string
			content sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.TurnID, &ev.Author, &ts, &content); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		ev.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		if content.Valid && content.String != "" {
			var c core.Content
			if err := json.Unmarshal([]byte(content.String), &c); err != nil {
				return nil, fmt.Errorf("decode turn content: %w", err)
			}
			ev.Content = &c
		}
		sess.AddEvent(ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	return sess, nil
}

// AppendEvent persists one turn at the next sequence position for the thread.
func (s *SQLiteStore) AppendEvent(threadID string, ev core.Event) error {
	var content any
	if ev.Content != nil {
		raw, err := json.Marshal(ev.Content)
		if err != nil {
			return fmt.Errorf("encode turn content: %w", err)
		}
		content = string(raw)
	}

	_, err := s.db.Exec(
		`INSERT INTO transcript_turns (thread_id, seq, event_id, turn_id, author, timestamp, content)
		 VALUES (?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM transcript_turns WHERE thread_id = ?),
			?, ?, ?, ?, ?)`,
		threadID, threadID, ev.ID, ev.TurnID, ev.Author,
		ev.Timestamp.UTC().Format(time.RFC3339Nano), content)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}
