package store

import (
	"context"
	"encoding/json"

	"askyourdocs-client/internal/constant"
	"askyourdocs-client/internal/entity"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps the serialized session record in an in-process cache.
// The record survives a Clear/restore cycle but not a process restart, so
// it serves development and tests rather than production use.
type MemoryStore struct {
	cache *cache.Cache
	key   string
}

func NewMemoryStore(userId string) *MemoryStore {
	// Session blobs never expire; the record is overwritten wholesale on
	// every transcript mutation.
	c := cache.New(cache.NoExpiration, 0)
	return &MemoryStore{
		cache: c,
		key:   constant.SessionStoreKeyPrefix + userId,
	}
}

func (s *MemoryStore) Load(_ context.Context) (*entity.Session, bool) {
	raw, found := s.cache.Get(s.key)
	if !found {
		return nil, false
	}
	data, ok := raw.([]byte)
	if !ok {
		return nil, false
	}

	var session entity.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, false
	}
	if session.Transcript == nil {
		return nil, false
	}
	return &session, true
}

func (s *MemoryStore) Save(_ context.Context, session *entity.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.cache.Set(s.key, data, cache.NoExpiration)
	return nil
}
