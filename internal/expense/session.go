package expense

import (
	"sync"
	"time"
)

// Session holds the extracted receipt text while the system waits for a
// user's answer to a clarifying question. At most one session exists per
// user; a new receipt from the same user overwrites it.
type Session struct {
	RawText   string    `json:"raw_text"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionStore holds at most one pending session per user.
type SessionStore interface {
	// Put stores a session for a user, replacing any existing one
	Put(userID string, session Session) error

	// Take removes and returns the session for a user
	Take(userID string) (Session, bool, error)

	// HasPending reports whether a session exists for a user
	HasPending(userID string) (bool, error)
}

// MemorySessionStore implements SessionStore in process memory.
// A TTL of zero means sessions never expire.
type MemorySessionStore struct {
	mu         sync.Mutex
	sessions   map[string]Session
	ttl        time.Duration
	timeSource TimeSource
}

// NewMemorySessionStore creates a MemorySessionStore with the given TTL.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return NewMemorySessionStoreWithDeps(ttl, &defaultTimeSource{})
}

// NewMemorySessionStoreWithDeps creates a MemorySessionStore with a custom
// time source for testing.
func NewMemorySessionStoreWithDeps(ttl time.Duration, timeSource TimeSource) *MemorySessionStore {
	return &MemorySessionStore{
		sessions:   make(map[string]Session),
		ttl:        ttl,
		timeSource: timeSource,
	}
}

// Put stores a session for a user, replacing any existing one.
func (m *MemorySessionStore) Put(userID string, session Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = session
	return nil
}

// Take removes and returns the session for a user. Expired sessions are
// deleted and reported as absent.
func (m *MemorySessionStore) Take(userID string) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[userID]
	if !ok {
		return Session{}, false, nil
	}
	delete(m.sessions, userID)

	if m.expired(session) {
		return Session{}, false, nil
	}
	return session, true, nil
}

// HasPending reports whether a live session exists for a user.
func (m *MemorySessionStore) HasPending(userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[userID]
	if !ok {
		return false, nil
	}
	if m.expired(session) {
		delete(m.sessions, userID)
		return false, nil
	}
	return true, nil
}

func (m *MemorySessionStore) expired(session Session) bool {
	if m.ttl <= 0 {
		return false
	}
	return m.timeSource.Now().Sub(session.CreatedAt) > m.ttl
}
