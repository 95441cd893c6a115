package memory

import (
	"sync"

	"trivia-bot/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionStore.
type SessionStore struct {
	mu    sync.RWMutex
	byKey map[sessionKey]*app.Session
	byID  map[string]*app.Session
}

type sessionKey struct {
	ownerID   string
	channelID string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		byKey: make(map[sessionKey]*app.Session),
		byID:  make(map[string]*app.Session),
	}
}

func (s *SessionStore) Insert(session *app.Session) bool {
	key := sessionKey{session.OwnerID(), session.ChannelID()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[key]; ok {
		return false
	}
	s.byKey[key] = session
	s.byID[session.ID()] = session
	return true
}

func (s *SessionStore) Get(ownerID, channelID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.byKey[sessionKey{ownerID, channelID}]
	return session, ok
}

func (s *SessionStore) GetByID(id string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.byID[id]
	return session, ok
}

func (s *SessionStore) Delete(session *app.Session) bool {
	key := sessionKey{session.OwnerID(), session.ChannelID()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.byKey[key]; !ok || current != session {
		return false
	}
	delete(s.byKey, key)
	delete(s.byID, session.ID())
	return true
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}
