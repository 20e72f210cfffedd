package dashboard

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultSessionTTL is how long an unused session is kept.
	DefaultSessionTTL = 30 * time.Minute
	// DefaultMaxSessions bounds the number of live sessions.
	DefaultMaxSessions = 1000
)

// storedSession wraps a session with its last access time.
type storedSession struct {
	session  *Session
	lastUsed time.Time
}

// Store keeps dashboard sessions between page loads, keyed by an opaque ID,
// so fallback state and notices survive reloads. Idle sessions expire and the
// least recently used one is evicted when full. Safe for concurrent use.
type Store struct {
	newSession func() *Session
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*storedSession
}

// NewStore creates a Store that builds sessions with newSession.
// Non-positive limits fall back to the defaults.
func NewStore(newSession func() *Session, ttl time.Duration, maxEntries int) *Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxSessions
	}
	return &Store{
		newSession: newSession,
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		sessions:   make(map[string]*storedSession),
	}
}

// Acquire returns the live session for id. An unknown or expired id gets a
// new session under a fresh ID, which is returned alongside it.
func (st *Store) Acquire(id string) (string, *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.now()
	if e, ok := st.sessions[id]; ok {
		if now.Sub(e.lastUsed) < st.ttl {
			e.lastUsed = now
			return id, e.session
		}
		delete(st.sessions, id)
	}

	st.sweep(now)
	if len(st.sessions) >= st.maxEntries {
		st.evictLeastRecent()
	}

	id = uuid.NewString()
	s := st.newSession()
	st.sessions[id] = &storedSession{session: s, lastUsed: now}
	return id, s
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *Store) sweep(now time.Time) {
	for id, e := range st.sessions {
		if now.Sub(e.lastUsed) >= st.ttl {
			delete(st.sessions, id)
		}
	}
}

func (st *Store) evictLeastRecent() {
	var oldestID string
	var oldest time.Time
	for id, e := range st.sessions {
		if oldestID == "" || e.lastUsed.Before(oldest) {
			oldestID, oldest = id, e.lastUsed
		}
	}
	if oldestID != "" {
		delete(st.sessions, oldestID)
	}
}
