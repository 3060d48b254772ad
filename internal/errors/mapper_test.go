package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorClassifies(t *testing.T) {
	m := NewDefaultErrorMapper()

	cases := []struct {
		in   error
		want error
	}{
		{errors.New("error, status code: 429, message: Rate limit reached"), ErrTransient},
		{errors.New("error, status code: 401, message: Incorrect API key"), ErrPermissionDenied},
		{errors.New("model llama9 not found"), ErrNotFound},
		{errors.New("dial tcp 127.0.0.1:11434: connection refused"), ErrTransient},
		{context.DeadlineExceeded, ErrTransient},
		{errors.New("boom"), ErrInternal},
	}
	for _, tc := range cases {
		got := m.MapError(tc.in)
		assert.ErrorIs(t, got, tc.want, "input %q", tc.in)
	}
}

func TestMapErrorKeepsCategorized(t *testing.T) {
	m := NewDefaultErrorMapper()
	in := fmt.Errorf("call weather: %w", ErrProtocol)

	assert.Same(t, in, m.MapError(in))
	assert.Equal(t, "ErrProtocol", m.Category(in))
	assert.ErrorIs(t, m.MapError(context.Canceled), context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Transient("slow")))
	assert.False(t, IsRetryable(InvalidInput("bad")))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(nil))
}

func TestWrapWithCategoryKeepsCause(t *testing.T) {
	cause := errors.New("socket closed")
	err := WrapWithCategory(cause, "list tools", ErrProtocol)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrProtocol)
	assert.Equal(t, "list tools: protocol error: socket closed", err.Error())
}

func TestCategoryOf(t *testing.T) {
	assert.Nil(t, CategoryOf(nil))
	assert.Same(t, ErrTransient, CategoryOf(errors.New("too many requests")))
	assert.Same(t, ErrProtocol, CategoryOf(Protocol("closed")))
	assert.Same(t, ErrInternal, CategoryOf(errors.New("boom")))
	assert.Same(t, ErrInternal, CategoryOf(context.Canceled))
}
