package session

import (
	"context"
	"sync"
	"time"
)

// Ensure MemoryStore implements the Store interface
var _ Store = (*MemoryStore)(nil)

type memorySession struct {
	data     map[string]string
	lastSeen time.Time
}

// MemoryStore keeps sessions in process memory. Sessions idle longer than ttl
// are dropped by CleanupExpired; any read or write refreshes the idle clock.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an in-memory session store
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, sid, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sid]
	if !ok {
		return "", ErrKeyNotFound
	}
	sess.lastSeen = m.now()

	value, ok := sess.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (m *MemoryStore) Set(_ context.Context, sid, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sid]
	if !ok {
		sess = &memorySession{data: make(map[string]string)}
		m.sessions[sid] = sess
	}
	sess.data[key] = value
	sess.lastSeen = m.now()
	return nil
}

func (m *MemoryStore) DeleteKey(_ context.Context, sid, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[sid]; ok {
		delete(sess.data, key)
		sess.lastSeen = m.now()
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sid)
	return nil
}

func (m *MemoryStore) CleanupExpired(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.ttl)
	count := 0
	for sid, sess := range m.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(m.sessions, sid)
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
