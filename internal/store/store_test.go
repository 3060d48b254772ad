package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zhiyu220/MCP-demo/internal/config"
	"github.com/zhiyu220/MCP-demo/internal/conversation"
	apperrors "github.com/zhiyu220/MCP-demo/internal/errors"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runTranscriptContract exercises behavior every backend shares.
func runTranscriptContract(t *testing.T, s Transcript) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	history := []conversation.Message{
		conversation.System("you are a weather assistant"),
		conversation.User("台北今天天氣如何?"),
		conversation.Assistant(`{"tool_calls":[{"name":"get_weather_now","arguments":{"city":"Taipei"}}]}`),
		conversation.Tool("get_weather_now", "晴, 25°C"),
		conversation.Assistant("台北今天晴天,25 度。"),
	}
	for _, msg := range history {
		require.NoError(t, s.Append(ctx, "s1", msg))
	}
	require.NoError(t, s.Append(ctx, "s2", conversation.User("hello")))

	entries, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, entries, len(history))
	assert.Equal(t, history, Messages(entries))
	for _, e := range entries {
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
	}

	sessions, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	byID := map[string]SessionMeta{}
	for _, m := range sessions {
		byID[m.ID] = m
	}
	assert.Equal(t, 5, byID["s1"].Messages)
	assert.Equal(t, "台北今天天氣如何?", byID["s1"].Title)
	assert.Equal(t, 1, byID["s2"].Messages)

	require.NoError(t, s.Delete(ctx, "s1"))
	_, err = s.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "s1"), ErrSessionNotFound)

	sessions, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s2", sessions[0].ID)

	err = s.Append(ctx, "../escape", conversation.User("x"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestMemoryStore(t *testing.T) {
	runTranscriptContract(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	runTranscriptContract(t, s)
}

func TestFileStore_ReopenKeepsSessions(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "abc", conversation.User("first")))
	require.NoError(t, s.Append(ctx, "abc", conversation.Assistant("second")))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	entries, err := reopened.Load(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[1].Content)

	_, err = os.Stat(filepath.Join(dir, indexFileName))
	assert.NoError(t, err)
}

func TestFileStore_SkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "abc", conversation.User("ok")))

	f, err := os.OpenFile(filepath.Join(dir, "abc"+transcriptExt), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, s.Append(ctx, "abc", conversation.Assistant("still ok")))

	entries, err := s.Load(ctx, "abc")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "still ok", entries[1].Content)
}

func TestFileStore_RequiresPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	return mr, client
}

func TestRedisStore(t *testing.T) {
	_, client := newMiniRedis(t)
	s := NewRedisStoreFromClient(client)
	defer s.Close()
	runTranscriptContract(t, s)
}

func TestRedisStore_TTL(t *testing.T) {
	mr, client := newMiniRedis(t)
	s := NewRedisStoreFromClient(client, WithPrefix("test:"), WithTTL(time.Minute))
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "abc", conversation.User("hi")))
	assert.True(t, mr.Exists("test:abc"))
	assert.True(t, mr.Exists("test:abc:meta"))
	assert.Equal(t, time.Minute, mr.TTL("test:abc"))

	mr.FastForward(2 * time.Minute)

	_, err := s.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionSink(t *testing.T) {
	mem := NewMemoryStore()
	sink := Bind(mem, "bound")
	assert.Equal(t, "bound", sink.SessionID())

	require.NoError(t, sink.Append(context.Background(), conversation.User("hello")))
	entries, err := mem.Load(context.Background(), "bound")
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestTitleTruncation(t *testing.T) {
	long := strings.Repeat("天", 100)
	title := truncateTitle(long)
	assert.Equal(t, titleMaxRunes, len([]rune(title)))
	assert.True(t, strings.HasSuffix(title, "…"))
	assert.Equal(t, "short", truncateTitle("short"))
}

func TestValidateSessionID(t *testing.T) {
	assert.NoError(t, ValidateSessionID(NewSessionID()))
	assert.NoError(t, ValidateSessionID("my_session-1"))
	assert.Error(t, ValidateSessionID(""))
	assert.Error(t, ValidateSessionID("a/b"))
	assert.Error(t, ValidateSessionID(strings.Repeat("a", 65)))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.SessionConfig{Store: config.SessionStoreMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, config.SessionConfig{Store: config.SessionStoreFile, Path: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	s, err = Open(ctx, config.SessionConfig{
		Store: config.SessionStoreRedis,
		Redis: config.RedisSessionConfig{Addr: mr.Addr(), Prefix: "x:", TTL: "1h"},
	})
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.SessionConfig{Store: "postgres"})
	assert.Error(t, err)

	_, err = Open(ctx, config.SessionConfig{
		Store: config.SessionStoreRedis,
		Redis: config.RedisSessionConfig{Addr: mr.Addr(), TTL: "soon"},
	})
	assert.True(t, err != nil && !errors.Is(err, apperrors.ErrNotFound))
}
