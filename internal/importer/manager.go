package importer

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrSessionNotFound is returned when a session id has no live session.
var ErrSessionNotFound = errors.New("import session not found")

// Manager is the in-memory registry of live import sessions. Sessions exist
// only between first file pick and commit or cancellation; anything idle past
// the TTL is swept.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager constructs an empty session registry.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create opens a new session scoped to the given shop.
func (m *Manager) Create(shopID uint) *Session {
	session := newSession(uuid.NewString(), shopID)
	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()
	return session
}

// Get returns the live session for an id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Remove drops the session from the registry.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions idle past maxIdle along with anything already
// committed or abandoned, returning how many were dropped.
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	var stale []string
	for id, session := range m.sessions {
		state := session.State()
		if state == StateCommitted || state == StateAbandoned || session.lastTouched().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if len(stale) > 0 {
		logrus.WithField("sessions", len(stale)).Debug("swept expired import sessions")
	}
	return len(stale)
}
