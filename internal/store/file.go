package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/zhiyu220/MCP-demo/internal/conversation"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
)

const (
	indexFileName   = "index.json"
	lockFileName    = "sessions.lock"
	transcriptExt   = ".jsonl"
	lockRetryDelay  = 50 * time.Millisecond
	maxEntryLineLen = 4 << 20
)

type sessionIndex struct {
	Sessions map[string]SessionMeta `json:"sessions"`
}

// FileStore writes one JSONL transcript per session plus an index file.
// Mutations hold an flock on the directory so concurrent processes
// sharing the same path do not interleave index writes.
type FileStore struct {
	basePath    string
	lock        *flock.Flock
	lockTimeout time.Duration
}

func NewFileStore(basePath string) (*FileStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("session path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{
		basePath:    basePath,
		lock:        flock.New(filepath.Join(basePath, lockFileName)),
		lockTimeout: 5 * time.Second,
	}, nil
}

func (s *FileStore) Path() string {
	return s.basePath
}

func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := s.lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire session lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("session store %s is locked by another process", s.basePath)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			slog.Error("Failed to release session lock", "path", s.basePath, "error", err)
		}
	}()
	return fn()
}

func (s *FileStore) transcriptPath(sessionID string) string {
	return filepath.Join(s.basePath, sessionID+transcriptExt)
}

func (s *FileStore) Append(ctx context.Context, sessionID string, msg conversation.Message) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	entry := NewEntry(msg)
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return s.withLock(ctx, func() error {
		if err := s.appendLine(sessionID, data); err != nil {
			return fmt.Errorf("append transcript: %w", err)
		}

		index, err := s.loadIndex()
		if err != nil {
			return err
		}
		meta := index.Sessions[sessionID]
		meta.ID = sessionID
		touch(&meta, entry)
		index.Sessions[sessionID] = meta
		return s.saveIndex(index)
	})
}

func (s *FileStore) appendLine(sessionID string, data []byte) error {
	f, err := os.OpenFile(s.transcriptPath(sessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}
	return f.Sync()
}

func (s *FileStore) Load(ctx context.Context, sessionID string) ([]TranscriptEntry, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	f, err := os.Open(s.transcriptPath(sessionID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	defer f.Close()

	var entries []TranscriptEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEntryLineLen)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var entry TranscriptEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			slog.Warn("Skipping corrupt transcript line", "session", sessionID, "line", line, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return entries, nil
}

func (s *FileStore) List(ctx context.Context) ([]SessionMeta, error) {
	index, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	out := make([]SessionMeta, 0, len(index.Sessions))
	for _, meta := range index.Sessions {
		out = append(out, meta)
	}
	sortSessions(out)
	return out, nil
}

func (s *FileStore) Delete(ctx context.Context, sessionID string) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}
	return s.withLock(ctx, func() error {
		index, err := s.loadIndex()
		if err != nil {
			return err
		}
		_, indexed := index.Sessions[sessionID]

		err = os.Remove(s.transcriptPath(sessionID))
		removed := err == nil
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if !indexed && !removed {
			return ErrSessionNotFound
		}

		delete(index.Sessions, sessionID)
		return s.saveIndex(index)
	})
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) loadIndex() (*sessionIndex, error) {
	index := &sessionIndex{Sessions: make(map[string]SessionMeta)}
	data, err := os.ReadFile(filepath.Join(s.basePath, indexFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return index, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, index); err != nil {
		return nil, fmt.Errorf("decode session index: %w", err)
	}
	if index.Sessions == nil {
		index.Sessions = make(map[string]SessionMeta)
	}
	return index, nil
}

func (s *FileStore) saveIndex(index *sessionIndex) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(filepath.Join(s.basePath, indexFileName), bytes.NewReader(data))
}
