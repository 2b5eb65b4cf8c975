package core

import (
	"sync"

	"github.com/dkarev/pokerboard/internal/domain"
)

// SessionStore is the in-memory map of room id to session. It is constructed
// once in main and injected; nothing reads it through a package global.
//
// Update runs the whole read-modify-write under the store mutex, so two
// commands racing on the same room can never lose an update. Room counts are
// small, one mutex for the whole store is enough.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.SessionData
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]domain.SessionData)}
}

// Get returns a copy of the room's session, lazily creating a blank one for
// unseen room ids. It never fails.
func (s *SessionStore) Get(roomID string) domain.SessionData {
	s.mu.RLock()
	sess, ok := s.sessions[roomID]
	s.mu.RUnlock()
	if ok {
		return sess.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[roomID]; ok {
		return sess.Clone()
	}
	sess = domain.NewSessionData()
	s.sessions[roomID] = sess
	return sess.Clone()
}

// Update applies fn to the room's current session and stores the result.
// If fn returns an error nothing is written and the stored session is
// unchanged. The returned session is a copy the caller may keep.
func (s *SessionStore) Update(roomID string, fn func(domain.SessionData) (domain.SessionData, error)) (domain.SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.sessions[roomID]
	if !ok {
		cur = domain.NewSessionData()
	}
	next, err := fn(cur.Clone())
	if err != nil {
		return domain.SessionData{}, err
	}
	s.sessions[roomID] = next
	return next.Clone(), nil
}
