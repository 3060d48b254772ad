// Package store persists conversation transcripts per session.
package store

import (
	"context"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/zhiyu220/MCP-demo/internal/conversation"
	apperrors "github.com/zhiyu220/MCP-demo/internal/errors"

	"github.com/oklog/ulid/v2"
)

var ErrSessionNotFound = fmt.Errorf("session: %w", apperrors.ErrNotFound)

// --- Session index ---

type SessionMeta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  int       `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// --- Transcript (one entry per appended message) ---

type TranscriptEntry struct {
	ID        string            `json:"id"` // ULID
	Timestamp time.Time         `json:"ts"`
	Role      conversation.Role `json:"role"`
	Content   string            `json:"content"`
	Name      string            `json:"name,omitempty"`
}

type Transcript interface {
	Append(ctx context.Context, sessionID string, msg conversation.Message) error
	Load(ctx context.Context, sessionID string) ([]TranscriptEntry, error)
	List(ctx context.Context) ([]SessionMeta, error)
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

func NewEntry(msg conversation.Message) TranscriptEntry {
	return TranscriptEntry{
		ID:        ulid.Make().String(),
		Timestamp: time.Now().UTC(),
		Role:      msg.Role,
		Content:   msg.Content,
		Name:      msg.Name,
	}
}

func (e TranscriptEntry) Message() conversation.Message {
	return conversation.Message{Role: e.Role, Content: e.Content, Name: e.Name}
}

func Messages(entries []TranscriptEntry) []conversation.Message {
	out := make([]conversation.Message, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message())
	}
	return out
}

// NewSessionID returns a sortable, unique session identifier.
func NewSessionID() string {
	return ulid.Make().String()
}

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func ValidateSessionID(id string) error {
	if !sessionIDPattern.MatchString(id) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid session id %q", id))
	}
	return nil
}

const titleMaxRunes = 60

// touch updates meta for one appended entry. The first user message names the session.
func touch(meta *SessionMeta, entry TranscriptEntry) {
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = entry.Timestamp
	}
	meta.UpdatedAt = entry.Timestamp
	meta.Messages++
	if meta.Title == "" && entry.Role == conversation.RoleUser {
		meta.Title = truncateTitle(entry.Content)
	}
}

func truncateTitle(s string) string {
	if utf8.RuneCountInString(s) <= titleMaxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:titleMaxRunes-1]) + "…"
}

// SessionSink binds a transcript to one session id.
type SessionSink struct {
	store     Transcript
	sessionID string
}

func Bind(t Transcript, sessionID string) *SessionSink {
	return &SessionSink{store: t, sessionID: sessionID}
}

func (s *SessionSink) SessionID() string {
	return s.sessionID
}

func (s *SessionSink) Append(ctx context.Context, msg conversation.Message) error {
	return s.store.Append(ctx, s.sessionID, msg)
}
