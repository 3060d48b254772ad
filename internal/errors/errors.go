package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrInvalidInput - caller supplied bad arguments or configuration
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - session, tool or model not found
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied - provider rejected credentials
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTransient - timeout, rate limit or network failure
	ErrTransient = errors.New("transient error")

	// ErrInvalidModelOutput - model returned malformed structured output
	ErrInvalidModelOutput = errors.New("invalid model output")

	// ErrUnregisteredTool - model requested a tool the server never advertised
	ErrUnregisteredTool = errors.New("unregistered tool")

	// ErrProtocol - MCP session or transport failure
	ErrProtocol = errors.New("protocol error")

	// ErrMaxRounds - a turn exceeded its round budget
	ErrMaxRounds = errors.New("max rounds exceeded")

	// ErrInternal - anything else
	ErrInternal = errors.New("internal error")
)
