package lsperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageIncludesFeatureAndMethod(t *testing.T) {
	err := NewFeature(CapabilityUnsupported, "rename", "textDocument/rename", errors.New("no rename provider"))
	assert.Contains(t, err.Error(), "rename")
	assert.Contains(t, err.Error(), "textDocument/rename")
	assert.Contains(t, err.Error(), "no rename provider")
}

func TestIsMatchesByKindNotByCause(t *testing.T) {
	err := New(Timeout, "textDocument/hover", errors.New("deadline exceeded"))
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.False(t, errors.Is(err, ErrCancelled))
}

func TestKindOfUnwrapsWrappedErrors(t *testing.T) {
	base := New(PoolSaturated, "", errors.New("no bindings available"))
	wrapped := fmt.Errorf("dispatch failed: %w", base)
	assert.Equal(t, PoolSaturated, KindOf(wrapped))
	assert.Equal(t, Unknown, KindOf(errors.New("plain error")))
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	err := New(InternalError, "shutdown", cause)
	assert.Same(t, cause, errors.Unwrap(err))
}
