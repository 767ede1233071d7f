// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists chat sessions and their exchanges in SQLite,
// so past research conversations can be listed and exported.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"
)

// Store manages the session history SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path, creating the
// parent directory and schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			model TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS exchanges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL REFERENCES sessions(id),
			at TEXT NOT NULL,
			query TEXT NOT NULL,
			response TEXT,
			tool_calls INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exchanges_session_id ON exchanges(session_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Session is one chat run.
type Session struct {
	ID        int64
	StartedAt time.Time
	Model     string
	Exchanges int
}

// Exchange is one query/response pair within a session.
type Exchange struct {
	ID        int64
	SessionID int64
	At        time.Time
	Query     string
	Response  string
	ToolCalls int
}

// BeginSession records the start of a chat run and returns its ID.
func (s *Store) BeginSession(ctx context.Context, model string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (started_at, model) VALUES (?, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano), model,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading session id: %w", err)
	}
	return id, nil
}

// RecordExchange appends one query/response pair to a session.
func (s *Store) RecordExchange(ctx context.Context, sessionID int64, query, response string, toolCalls int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges (session_id, at, query, response, tool_calls) VALUES (?, ?, ?, ?, ?)`,
		sessionID, time.Now().UTC().Format(time.RFC3339Nano), query, response, toolCalls,
	)
	if err != nil {
		return fmt.Errorf("inserting exchange: %w", err)
	}
	return nil
}

// Sessions lists every recorded session, most recent first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.started_at, s.model, count(e.id)
		 FROM sessions s LEFT JOIN exchanges e ON e.session_id = s.id
		 GROUP BY s.id ORDER BY s.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var started string
		if err := rows.Scan(&sess.ID, &started, &sess.Model, &sess.Exchanges); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sess.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Exchanges returns a session's exchanges in order.
func (s *Store) Exchanges(ctx context.Context, sessionID int64) ([]Exchange, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, at, query, response, tool_calls
		 FROM exchanges WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []Exchange
	for rows.Next() {
		var ex Exchange
		var at string
		if err := rows.Scan(&ex.ID, &ex.SessionID, &at, &ex.Query, &ex.Response, &ex.ToolCalls); err != nil {
			return nil, fmt.Errorf("scanning exchange: %w", err)
		}
		ex.At, _ = time.Parse(time.RFC3339Nano, at)
		exchanges = append(exchanges, ex)
	}
	return exchanges, rows.Err()
}

type exportExchange struct {
	At        string `yaml:"at" json:"at"`
	Query     string `yaml:"query" json:"query"`
	Response  string `yaml:"response" json:"response"`
	ToolCalls int    `yaml:"tool_calls" json:"tool_calls"`
}

type exportSession struct {
	ID        int64            `yaml:"id" json:"id"`
	StartedAt string           `yaml:"started_at" json:"started_at"`
	Model     string           `yaml:"model,omitempty" json:"model,omitempty"`
	Exchanges []exportExchange `yaml:"exchanges" json:"exchanges"`
}

func (s *Store) exportSession(ctx context.Context, sessionID int64) (exportSession, error) {
	var started, model string
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at, model FROM sessions WHERE id = ?`, sessionID,
	).Scan(&started, &model)
	if err == sql.ErrNoRows {
		return exportSession{}, fmt.Errorf("no session %d", sessionID)
	}
	if err != nil {
		return exportSession{}, fmt.Errorf("querying session: %w", err)
	}

	exchanges, err := s.Exchanges(ctx, sessionID)
	if err != nil {
		return exportSession{}, err
	}

	out := exportSession{ID: sessionID, StartedAt: started, Model: model}
	for _, ex := range exchanges {
		out.Exchanges = append(out.Exchanges, exportExchange{
			At:        ex.At.Format(time.RFC3339Nano),
			Query:     ex.Query,
			Response:  ex.Response,
			ToolCalls: ex.ToolCalls,
		})
	}
	return out, nil
}

// ExportYAML writes one session as YAML to w.
func (s *Store) ExportYAML(ctx context.Context, sessionID int64, w io.Writer) error {
	out, err := s.exportSession(ctx, sessionID)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// ExportJSON writes one session as indented JSON to w.
func (s *Store) ExportJSON(ctx context.Context, sessionID int64, w io.Writer) error {
	out, err := s.exportSession(ctx, sessionID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	return nil
}

// SessionRecorder binds a store and session ID to the chat loop's
// Recorder interface.
type SessionRecorder struct {
	store     *Store
	sessionID int64
	ctx       context.Context
}

// Recorder returns a recorder that logs exchanges to the given session.
func (s *Store) Recorder(ctx context.Context, sessionID int64) *SessionRecorder {
	return &SessionRecorder{store: s, sessionID: sessionID, ctx: ctx}
}

// RecordExchange implements the chat loop's Recorder.
func (r *SessionRecorder) RecordExchange(query, response string, toolCalls int) error {
	return r.store.RecordExchange(r.ctx, r.sessionID, query, response, toolCalls)
}
