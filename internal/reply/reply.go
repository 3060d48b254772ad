// Package reply decodes raw model output into a typed decision: a final
// answer or a batch of tool calls.
package reply

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// MaxDecodeAttempts bounds how many layers of JSON string encoding are unwrapped.
const MaxDecodeAttempts = 3

type Kind int

const (
	KindFinalText Kind = iota
	KindToolCalls
	KindStructuredFinal
)

func (k Kind) String() string {
	switch k {
	case KindFinalText:
		return "final_text"
	case KindToolCalls:
		return "tool_calls"
	case KindStructuredFinal:
		return "structured_final"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Parsed is exactly one of FinalText, ToolCalls or StructuredFinal.
// Text is set for the two final kinds, ToolCalls only for KindToolCalls.
type Parsed struct {
	Kind      Kind
	Text      string
	ToolCalls []ToolCall
}

func FinalText(text string) Parsed {
	return Parsed{Kind: KindFinalText, Text: text}
}

func StructuredFinal(text string) Parsed {
	return Parsed{Kind: KindStructuredFinal, Text: text}
}

func ToolCalls(calls []ToolCall) Parsed {
	return Parsed{Kind: KindToolCalls, ToolCalls: calls}
}

func (p Parsed) IsFinal() bool {
	return p.Kind != KindToolCalls
}

var (
	leadingFence  = regexp.MustCompile("(?i)^```(?:json)?")
	trailingFence = regexp.MustCompile("```$")
)

// StripFence removes one leading ``` or ```json marker and one trailing ```.
func StripFence(raw string) string {
	s := strings.TrimSpace(raw)
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Parse never fails: anything that does not decode into an envelope is
// returned as FinalText of the fence-stripped input.
func Parse(raw string) Parsed {
	stripped := StripFence(raw)

	candidate := stripped
	for attempt := 0; attempt < MaxDecodeAttempts; attempt++ {
		var decoded any
		if err := json.Unmarshal([]byte(candidate), &decoded); err != nil {
			break
		}

		if obj, ok := decoded.(map[string]any); ok {
			parsed, err := fromEnvelope(obj)
			if err != nil {
				return FinalText(stripped)
			}
			return parsed
		}

		next, ok := decoded.(string)
		if !ok {
			break
		}
		candidate = next
	}

	return FinalText(stripped)
}

// ParseValue accepts a reply that was already decoded by the transport.
func ParseValue(v any) Parsed {
	switch value := v.(type) {
	case map[string]any:
		parsed, err := fromEnvelope(value)
		if err != nil {
			encoded, _ := json.Marshal(value)
			return FinalText(string(encoded))
		}
		return parsed
	case string:
		return Parse(value)
	case []byte:
		return Parse(string(value))
	case nil:
		return FinalText("")
	default:
		return FinalText(fmt.Sprint(value))
	}
}

func fromEnvelope(obj map[string]any) (Parsed, error) {
	rawCalls, _ := obj["tool_calls"].([]any)
	if len(rawCalls) == 0 {
		return StructuredFinal(contentText(obj["content"])), nil
	}

	calls := make([]ToolCall, 0, len(rawCalls))
	for i, raw := range rawCalls {
		call, err := decodeCall(raw)
		if err != nil {
			return Parsed{}, fmt.Errorf("tool_calls[%d]: %w", i, err)
		}
		calls = append(calls, call)
	}
	return ToolCalls(calls), nil
}

// contentText keeps non-string content instead of dropping it.
func contentText(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	default:
		encoded, err := json.Marshal(c)
		if err != nil {
			return fmt.Sprint(c)
		}
		return string(encoded)
	}
}

func decodeCall(raw any) (ToolCall, error) {
	entry, ok := raw.(map[string]any)
	if !ok {
		return ToolCall{}, fmt.Errorf("entry is %T, want object", raw)
	}

	name, _ := entry["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return ToolCall{}, fmt.Errorf("missing tool name")
	}

	args, err := decodeArguments(entry["arguments"])
	if err != nil {
		return ToolCall{}, fmt.Errorf("tool %s: %w", name, err)
	}
	return ToolCall{Name: name, Arguments: args}, nil
}

func decodeArguments(raw any) (map[string]any, error) {
	switch value := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return value, nil
	case string:
		if strings.TrimSpace(value) == "" {
			return map[string]any{}, nil
		}
		var args map[string]any
		if err := json.Unmarshal([]byte(value), &args); err != nil {
			return nil, fmt.Errorf("decode arguments: %w", err)
		}
		if args == nil {
			args = map[string]any{}
		}
		return args, nil
	default:
		return nil, fmt.Errorf("arguments is %T, want object", raw)
	}
}
