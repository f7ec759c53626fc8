package tokenstore

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/waabox/qmsdeck/internal/config"
	"github.com/waabox/qmsdeck/internal/domain"
)

// Open builds the Store selected by cfg.Session.Store.
// The returned close function releases backend resources and is never nil.
func Open(cfg config.Config) (Store, func() error, error) {
	noop := func() error { return nil }
	switch name := cfg.SessionStoreOrDefault(); name {
	case "memory":
		return NewMemoryStore(domain.CredentialPair{}), noop, nil
	case "file":
		return NewFileStore(cfg.SessionPathOrDefault()), noop, nil
	case "keyring":
		return NewKeyringStore(cfg.KeyringServiceOrDefault(), cfg.KeyringUserOrDefault()), noop, nil
	case "redis":
		if cfg.Session.RedisAddr == "" {
			return nil, noop, fmt.Errorf("opening redis session store: session.redis_addr is empty")
		}
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Session.RedisAddr})
		return NewRedisStore(rdb, cfg.RedisKeyOrDefault(), cfg.Session.RedisTTL.Duration), rdb.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown session store %q", name)
	}
}
