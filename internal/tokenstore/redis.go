package tokenstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/waabox/qmsdeck/internal/domain"
)

const (
	redisFieldAccess  = "access_token"
	redisFieldRefresh = "refresh_token"
)

// RedisStore keeps the pair in a Redis hash so several dashboard processes can
// share one session. Both fields are written in a single MULTI/EXEC.
type RedisStore struct {
	rdb redis.UniversalClient
	key string
	ttl time.Duration
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore. ttl <= 0 stores the session without expiry.
func NewRedisStore(rdb redis.UniversalClient, key string, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, key: key, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context) (domain.CredentialPair, error) {
	vals, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return domain.CredentialPair{}, &StoreError{Backend: "redis", Operation: "get", Cause: err}
	}
	return normalize(domain.CredentialPair{
		AccessToken:  vals[redisFieldAccess],
		RefreshToken: vals[redisFieldRefresh],
	}), nil
}

func (s *RedisStore) Set(ctx context.Context, pair domain.CredentialPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	if pair.IsZero() {
		return s.Clear(ctx)
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		pipe.HSet(ctx, s.key, redisFieldAccess, pair.AccessToken, redisFieldRefresh, pair.RefreshToken)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return &StoreError{Backend: "redis", Operation: "set", Cause: err}
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return &StoreError{Backend: "redis", Operation: "clear", Cause: err}
	}
	return nil
}
