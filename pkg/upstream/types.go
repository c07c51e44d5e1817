// Package upstream maintains the lifecycle of authenticated upstream-provider
// connections (§4.9): one per session-id, with TTL-based expiry and a mutex
// guarding concurrent model calls on the shared connection.
package upstream

import (
	"sync"
	"time"
)

// ModelConfig is the model configuration attached to a session.
type ModelConfig struct {
	Model       string
	Function    string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Conn is the upstream connection handle. The concrete driver is out of
// scope (§1 Non-goals/Deliberately out of scope); Conn wraps whatever the
// caller constructs (e.g. a *sql.DB, a gRPC client) behind a narrow
// interface this package never inspects.
type Conn interface {
	// Ping issues a trivial round-trip query used by Validate.
	Ping() error
	// Close releases the underlying connection.
	Close() error
}

// Session is an authenticated upstream-provider connection.
type Session struct {
	ID        string
	Conn      Conn
	Model     ModelConfig
	CreatedAt time.Time
	LastUsed  time.Time
	ExpiresAt time.Time

	// mu guards concurrent model calls on the shared connection: a single
	// upstream connection is not safe for concurrent queries.
	mu sync.Mutex
}

// Lock acquires the session's call mutex. Callers must Unlock when the
// upstream call completes.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session's call mutex.
func (s *Session) Unlock() { s.mu.Unlock() }

func (s *Session) expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Status is a serializable snapshot of a session, safe to expose over the API.
type Status struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
	ExpiresAt time.Time `json:"expires_at"`
}
