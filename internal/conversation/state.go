// Package conversation holds the ordered message history sent to the model.
package conversation

import (
	"fmt"
	"sync"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// Message is one entry of the history. Name is only set on tool messages.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func Tool(name, content string) Message {
	return Message{Role: RoleTool, Name: name, Content: content}
}

func (m Message) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("invalid role %q", m.Role)
	}
	if m.Role == RoleTool && m.Name == "" {
		return fmt.Errorf("tool message requires a name")
	}
	if m.Role != RoleTool && m.Name != "" {
		return fmt.Errorf("name is only allowed on tool messages")
	}
	return nil
}

// State is an append-only message log. Entries are never edited in place.
type State struct {
	mu       sync.RWMutex
	messages []Message
}

func NewState(initial ...Message) *State {
	s := &State{messages: make([]Message, 0, len(initial)+8)}
	s.messages = append(s.messages, initial...)
	return s
}

func (s *State) Append(msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return nil
}

// History returns a copy of the messages in the order they were appended.
func (s *State) History() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *State) Last() (Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}
