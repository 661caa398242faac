package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntCoercesStringNumbers(t *testing.T) {
	tree := Tree{"editor": Tree{"tabSize": "4"}}
	v, err := Int(tree, "editor.tabSize")
	require.NoError(t, err)
	assert.Equal(t, 4, v)
}

func TestBoolOrFallsBackWhenUnset(t *testing.T) {
	tree := Tree{}
	assert.True(t, BoolOr(tree, "editor.insertSpaces", true))
}

func TestIntOrFallsBackOnWrongType(t *testing.T) {
	tree := Tree{"mode": "strict"}
	assert.Equal(t, 7, IntOr(tree, "mode", 7))
}
