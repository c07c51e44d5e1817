package ptyio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrSessionNotFound is returned by Get for an unregistered or already
// unregistered session-id.
var ErrSessionNotFound = errors.New("pty session not found")

// Registry is a process-wide, thread-safe mapping from session-id to
// *Session. Never held across awaits.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	log      *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		log:      slog.With("component", "ptyio.registry"),
	}
}

// Register stores session under id, replacing and closing any prior entry.
func (r *Registry) Register(id string, session *Session) {
	r.mu.Lock()
	prior, existed := r.sessions[id]
	r.sessions[id] = session
	r.mu.Unlock()

	if existed && prior != session {
		if err := prior.Close(); err != nil {
			r.log.Warn("failed to close replaced pty session", "session_id", id, "error", err)
		}
	}
}

// Unregister removes and closes the session under id, if any.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	session, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if ok {
		if err := session.Close(); err != nil {
			r.log.Warn("failed to close unregistered pty session", "session_id", id, "error", err)
		}
	}
}

// Get returns the session registered under id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}
