package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const SessionIDKey contextKey = "session_id"
const TurnIDKey contextKey = "turn_id"

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(SessionIDKey).(string); ok {
		return id
	}
	return ""
}

func WithTurnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TurnIDKey, id)
}

func GetTurnID(ctx context.Context) string {
	if id, ok := ctx.Value(TurnIDKey).(string); ok {
		return id
	}
	return ""
}

// Attrs returns the correlation ids carried by ctx as slog key/value pairs.
func Attrs(ctx context.Context) []any {
	attrs := make([]any, 0, 4)
	if id := GetSessionID(ctx); id != "" {
		attrs = append(attrs, string(SessionIDKey), id)
	}
	if id := GetTurnID(ctx); id != "" {
		attrs = append(attrs, string(TurnIDKey), id)
	}
	return attrs
}

// From returns the default logger annotated with the ids carried by ctx.
func From(ctx context.Context) *slog.Logger {
	return slog.Default().With(Attrs(ctx)...)
}
