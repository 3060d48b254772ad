package store

import (
	"context"
	"fmt"
	"time"

	"github.com/zhiyu220/MCP-demo/internal/config"
)

// Open builds the transcript backend selected by session.store.
func Open(ctx context.Context, cfg config.SessionConfig) (Transcript, error) {
	switch cfg.Store {
	case config.SessionStoreMemory:
		return NewMemoryStore(), nil
	case "", config.SessionStoreFile:
		return NewFileStore(cfg.Path)
	case config.SessionStoreRedis:
		ttl, err := config.DurationOrDefault(cfg.Redis.TTL, config.DefaultSessionRedisTTL)
		if err != nil {
			return nil, fmt.Errorf("session.redis.ttl: %w", err)
		}
		s := NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			WithPrefix(cfg.Redis.Prefix),
			WithTTL(ttl),
		)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := s.Ping(pingCtx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("connect to redis %s: %w", cfg.Redis.Addr, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported session store %q (supported: memory, file, redis)", cfg.Store)
	}
}
