package orchestrator

import (
	"errors"
	"fmt"

	apperrors "github.com/zhiyu220/MCP-demo/internal/errors"
)

type Kind string

const (
	KindUnregisteredTool Kind = "unregistered_tool"
	KindModel            Kind = "model"
	KindProtocol         Kind = "protocol"
	KindMaxRounds        Kind = "max_rounds"
	KindCancelled        Kind = "cancelled"
)

// TurnError is the typed failure of one turn. Every kind except
// KindMaxRounds ends the session.
type TurnError struct {
	Kind    Kind
	Message string
	Tool    string
	Round   int
	Cause   error
}

func (e *TurnError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Tool != "" {
		msg += " (tool " + e.Tool + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *TurnError) Unwrap() error {
	return e.Cause
}

func (e *TurnError) Fatal() bool {
	return e.Kind != KindMaxRounds
}

// IsFatal reports whether err should end the interactive session.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var turnErr *TurnError
	if errors.As(err, &turnErr) {
		return turnErr.Fatal()
	}
	return true
}

// KindOf returns the turn error kind carried by err, or "" if none.
func KindOf(err error) Kind {
	var turnErr *TurnError
	if errors.As(err, &turnErr) {
		return turnErr.Kind
	}
	return ""
}

func unregisteredTool(name string, round int) *TurnError {
	return &TurnError{
		Kind:    KindUnregisteredTool,
		Message: "model requested a tool that is not registered",
		Tool:    name,
		Round:   round,
		Cause:   apperrors.ErrUnregisteredTool,
	}
}

func maxRounds(limit int) *TurnError {
	return &TurnError{
		Kind:    KindMaxRounds,
		Message: fmt.Sprintf("no final answer after %d rounds", limit),
		Round:   limit,
		Cause:   apperrors.ErrMaxRounds,
	}
}
