// Package session provides per-browser session storage keyed by an opaque,
// cookie-carried identifier. The relay treats session values as an open-ended
// string-to-string mapping; the auth adapter decides what goes in it.
package session

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned when a session has no value for the given key
var ErrKeyNotFound = errors.New("session key not found")

// Store is the backend contract: per-session key/value storage. Eviction and
// TTL policy belong to the backend, not to callers.
type Store interface {
	// Get returns the value for key in session sid, or ErrKeyNotFound.
	Get(ctx context.Context, sid, key string) (string, error)

	// Set writes key=value into session sid, creating the session if needed.
	Set(ctx context.Context, sid, key, value string) error

	// DeleteKey removes a single key from session sid. Removing an absent
	// key is not an error.
	DeleteKey(ctx context.Context, sid, key string) error

	// Delete removes the whole session.
	Delete(ctx context.Context, sid string) error

	// CleanupExpired removes sessions idle past their TTL and reports how
	// many were dropped.
	CleanupExpired(ctx context.Context) (int, error)

	// Close releases backend resources.
	Close() error
}

// Session is a per-request view over one session in a Store. Handlers and the
// auth adapter receive it explicitly instead of pulling state off the request.
type Session struct {
	id    string
	store Store
}

// New binds a session id to a store
func New(id string, store Store) *Session {
	return &Session{id: id, store: store}
}

// ID returns the opaque session identifier
func (s *Session) ID() string {
	return s.id
}

func (s *Session) Get(ctx context.Context, key string) (string, error) {
	return s.store.Get(ctx, s.id, key)
}

func (s *Session) Set(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.id, key, value)
}

func (s *Session) DeleteKey(ctx context.Context, key string) error {
	return s.store.DeleteKey(ctx, s.id, key)
}
