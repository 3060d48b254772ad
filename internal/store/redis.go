package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zhiyu220/MCP-demo/internal/conversation"

	backend "github.com/redis/go-redis/v9"
)

// farFuture scores index members that never expire.
const farFuture = 4102444800 // 2100-01-01

// RedisStore keeps each transcript in a list, its metadata in a string key,
// and an index ZSET scored by expiry for lazy cleanup.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func NewRedisStore(address, password string, db int, opts ...RedisOption) *RedisStore {
	return NewRedisStoreFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "mcphost:session:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) entriesKey(sessionID string) string {
	return s.prefix + sessionID
}

func (s *RedisStore) metaKey(sessionID string) string {
	return s.prefix + sessionID + ":meta"
}

func (s *RedisStore) indexKey() string {
	return s.prefix + "index"
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, msg conversation.Message) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	entry := NewEntry(msg)
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	meta, err := s.loadMeta(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}
	meta.ID = sessionID
	touch(&meta, entry)
	metaData, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.entriesKey(sessionID), data)
	pipe.Set(ctx, s.metaKey(sessionID), metaData, s.ttl)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.entriesKey(sessionID), s.ttl)
	}

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = farFuture
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: sessionID})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) loadMeta(ctx context.Context, sessionID string) (SessionMeta, error) {
	raw, err := s.client.Get(ctx, s.metaKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return SessionMeta{}, ErrSessionNotFound
		}
		return SessionMeta{}, fmt.Errorf("get session meta: %w", err)
	}
	var meta SessionMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return SessionMeta{}, fmt.Errorf("decode session meta: %w", err)
	}
	return meta, nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]TranscriptEntry, error) {
	values, err := s.client.LRange(ctx, s.entriesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read transcript from redis: %w", err)
	}
	if len(values) == 0 {
		return nil, ErrSessionNotFound
	}

	entries := make([]TranscriptEntry, 0, len(values))
	for _, v := range values {
		var entry TranscriptEntry
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			return nil, fmt.Errorf("decode transcript entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// List prunes expired index members before reading the remaining metadata.
func (s *RedisStore) List(ctx context.Context) ([]SessionMeta, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("prune expired sessions: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]SessionMeta, 0, len(ids))
	for _, id := range ids {
		meta, err := s.loadMeta(ctx, id)
		if errors.Is(err, ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, meta)
	}
	sortSessions(out)
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.entriesKey(sessionID), s.metaKey(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete from redis: %w", err)
	}
	if del.Val() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
