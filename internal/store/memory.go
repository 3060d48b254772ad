package store

import (
	"context"
	"sort"
	"sync"

	"github.com/zhiyu220/MCP-demo/internal/conversation"
)

// MemoryStore keeps transcripts for the life of the process.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string][]TranscriptEntry
	sessions map[string]SessionMeta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:  make(map[string][]TranscriptEntry),
		sessions: make(map[string]SessionMeta),
	}
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, msg conversation.Message) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	entry := NewEntry(msg)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = append(s.entries[sessionID], entry)
	meta := s.sessions[sessionID]
	meta.ID = sessionID
	touch(&meta, entry)
	s.sessions[sessionID] = meta
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) ([]TranscriptEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, ok := s.entries[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := make([]TranscriptEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]SessionMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SessionMeta, 0, len(s.sessions))
	for _, meta := range s.sessions {
		out = append(out, meta)
	}
	sortSessions(out)
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	delete(s.entries, sessionID)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// sortSessions orders by most recent activity first.
func sortSessions(sessions []SessionMeta) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].UpdatedAt.Equal(sessions[j].UpdatedAt) {
			return sessions[i].ID > sessions[j].ID
		}
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
}
