package agent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pawsense/vetagent/pkg/types"
)

// ErrSessionNotFound is returned when a session ID has no stored state.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists conversation state between turns. Implementations
// must be safe for concurrent use; the engine serializes turns per session
// but different sessions hit the store in parallel.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*types.ConversationState, error)
	Save(ctx context.Context, state *types.ConversationState) error
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// MemorySessionStore keeps sessions in process memory. Used by tests and by
// deployments that accept losing sessions on restart.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string][]byte)}
}

// Load returns a deep copy of the stored state.
func (s *MemorySessionStore) Load(ctx context.Context, sessionID string) (*types.ConversationState, error) {
	s.mu.RLock()
	data, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	var state types.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("agent: decode session %s: %w", sessionID, err)
	}
	return &state, nil
}

// Save snapshots the state. Serializing through JSON keeps the stored copy
// independent of later mutations by the caller.
func (s *MemorySessionStore) Save(ctx context.Context, state *types.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("agent: encode session %s: %w", state.SessionID, err)
	}
	s.mu.Lock()
	s.sessions[state.SessionID] = data
	s.mu.Unlock()
	return nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (s *MemorySessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// Close is a no-op.
func (s *MemorySessionStore) Close() error { return nil }

var _ SessionStore = (*MemorySessionStore)(nil)

// SQLiteSessionStore checkpoints sessions to a SQLite database so a restart
// resumes conversations where they left off.
type SQLiteSessionStore struct {
	db *sql.DB
}

// NewSQLiteSessionStore opens (and creates, if needed) the checkpoint
// database at path.
func NewSQLiteSessionStore(path string) (*SQLiteSessionStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("agent: open session database: %w", err)
	}
	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent sessions.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			state      TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("agent: apply session schema: %w", err)
	}
	return &SQLiteSessionStore{db: db}, nil
}

// Load reads one session checkpoint.
func (s *SQLiteSessionStore) Load(ctx context.Context, sessionID string) (*types.ConversationState, error) {
	var data string
	err := s.db.QueryRowContext(ctx, "SELECT state FROM sessions WHERE id = ?", sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("agent: load session %s: %w", sessionID, err)
	}
	var state types.ConversationState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("agent: decode session %s: %w", sessionID, err)
	}
	return &state, nil
}

// Save upserts one session checkpoint.
func (s *SQLiteSessionStore) Save(ctx context.Context, state *types.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("agent: encode session %s: %w", state.SessionID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		state.SessionID, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("agent: save session %s: %w", state.SessionID, err)
	}
	return nil
}

// Delete removes one session checkpoint.
func (s *SQLiteSessionStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("agent: delete session %s: %w", sessionID, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}

var _ SessionStore = (*SQLiteSessionStore)(nil)
