// Package memory implements an in-process session store for development and
// tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xenking/mercado-storefront/internal/session"
)

var _ session.Store = (*SessionStore)(nil)

type entry struct {
	values  map[string]string
	touched time.Time
}

// SessionStore keeps session values in a map. Contents are lost on restart.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*entry
	now      func() time.Time
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

func (s *SessionStore) Get(_ context.Context, sid, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sid]
	if !ok {
		return "", false, nil
	}
	e.touched = s.now()
	v, ok := e.values[key]
	return v, ok, nil
}

func (s *SessionStore) Set(_ context.Context, sid, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sid]
	if !ok {
		e = &entry{values: make(map[string]string)}
		s.sessions[sid] = e
	}
	e.values[key] = value
	e.touched = s.now()
	return nil
}

func (s *SessionStore) Delete(_ context.Context, sid string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sid]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(e.values, k)
	}
	if len(e.values) == 0 {
		delete(s.sessions, sid)
	}
	return nil
}

// DeleteIdle removes sessions not touched since before and reports how many
// were removed.
func (s *SessionStore) DeleteIdle(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for sid, e := range s.sessions {
		if e.touched.Before(before) {
			delete(s.sessions, sid)
			n++
		}
	}
	return n, nil
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
