package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-bot/internal/app"
	"trivia-bot/internal/infra/memory"
)

// SessionStore is a Redis-aware implementation of app.SessionStore.
// Notes:
//   - Rounds live in process; the local memory.SessionStore owns the
//     insert-if-absent guarantee.
//   - Redis holds a liveness marker per (owner, channel) that expires with
//     the round timeout, so operators can see active rounds across instances.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	local  *memory.SessionStore
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client: client,
		ttl:    ttl,
		local:  memory.NewSessionStore(),
	}
}

func (s *SessionStore) Insert(session *app.Session) bool {
	if !s.local.Insert(session) {
		return false
	}
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.OwnerID(), session.ChannelID()), session.ID(), s.ttl).Err()
	return true
}

func (s *SessionStore) Get(ownerID, channelID string) (*app.Session, bool) {
	return s.local.Get(ownerID, channelID)
}

func (s *SessionStore) GetByID(id string) (*app.Session, bool) {
	return s.local.GetByID(id)
}

func (s *SessionStore) Delete(session *app.Session) bool {
	if !s.local.Delete(session) {
		return false
	}
	_ = s.client.Del(context.Background(), s.key(session.OwnerID(), session.ChannelID())).Err()
	return true
}

func (s *SessionStore) Len() int {
	return s.local.Len()
}

func (s *SessionStore) key(ownerID, channelID string) string {
	return "trivia:session:" + ownerID + ":" + channelID
}
