package store

import (
	"context"
	"encoding/json"
	"fmt"

	"askyourdocs-client/internal/constant"
	"askyourdocs-client/internal/entity"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the serialized session record as a single JSON blob
// under a fixed key, no TTL. Concurrent tabs sharing the same key clobber
// each other wholesale; that is accepted, not guarded against.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client, userId string) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		key: constant.SessionStoreKeyPrefix + userId,
	}
}

// NewRedisClient parses the configured URL and pings the server.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func (s *RedisStore) Load(ctx context.Context) (*entity.Session, bool) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil {
		// redis.Nil and transport errors are both treated as a miss.
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

func (s *RedisStore) Save(ctx context.Context, session *entity.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("write session record: %w", err)
	}
	return nil
}
