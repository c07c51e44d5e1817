package upstream

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrSessionNotFound indicates the session-id has no live upstream session,
// either because it was never created or because it expired and was evicted.
var ErrSessionNotFound = errors.New("upstream session not found")

// Manager maps session-id to upstream Session, process-wide, guarded by its
// own mutex. Never held across awaits: callers lock, copy or mutate, unlock.
type Manager struct {
	sessions map[string]*Session
	ttl      time.Duration
	mu       sync.RWMutex
	log      *slog.Logger
}

// NewManager creates a session manager with the given default TTL.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		log:      slog.With("component", "upstream.manager"),
	}
}

// CreateOrReplace opens a new session for sessionID, closing any prior
// session under that id first. Invariant: at most one session per
// session-id; replacing a session closes the prior one.
func (m *Manager) CreateOrReplace(sessionID string, conn Conn, model ModelConfig) *Session {
	now := time.Now()
	session := &Session{
		ID:        sessionID,
		Conn:      conn,
		Model:     model,
		CreatedAt: now,
		LastUsed:  now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	prior, existed := m.sessions[sessionID]
	m.sessions[sessionID] = session
	m.mu.Unlock()

	if existed {
		if err := prior.Conn.Close(); err != nil {
			m.log.Warn("failed to close replaced session", "session_id", sessionID, "error", err)
		}
	}

	return session
}

// Get returns the session for sessionID, or ErrSessionNotFound if it is
// missing or expired. Expired entries are evicted as a side effect.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	if session.expired(time.Now()) {
		m.evict(sessionID, session)
		return nil, fmt.Errorf("%w: %s (expired)", ErrSessionNotFound, sessionID)
	}

	return session, nil
}

// Touch extends a session's expiry by the manager's TTL.
func (m *Manager) Touch(sessionID string) error {
	session, err := m.Get(sessionID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	session.LastUsed = time.Now()
	session.ExpiresAt = session.LastUsed.Add(m.ttl)
	m.mu.Unlock()

	return nil
}

// Validate issues a trivial upstream query to confirm the connection is
// alive. On failure the session is evicted and the error is returned.
func (m *Manager) Validate(sessionID string) error {
	session, err := m.Get(sessionID)
	if err != nil {
		return err
	}

	session.Lock()
	pingErr := session.Conn.Ping()
	session.Unlock()

	if pingErr != nil {
		m.evict(sessionID, session)
		return fmt.Errorf("upstream validation failed for session %s: %w", sessionID, pingErr)
	}

	return nil
}

// Disconnect closes and removes a session.
func (m *Manager) Disconnect(sessionID string) error {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	return session.Conn.Close()
}

// BuildStatus returns a serializable snapshot of sessionID's session.
func (m *Manager) BuildStatus(sessionID string) (Status, error) {
	session, err := m.Get(sessionID)
	if err != nil {
		return Status{}, err
	}

	return Status{
		ID:        session.ID,
		Model:     session.Model.Model,
		CreatedAt: session.CreatedAt,
		LastUsed:  session.LastUsed,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (m *Manager) evict(sessionID string, session *Session) {
	m.mu.Lock()
	if current, ok := m.sessions[sessionID]; ok && current == session {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if err := session.Conn.Close(); err != nil {
		m.log.Warn("failed to close evicted session", "session_id", sessionID, "error", err)
	}
}
