package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnvSubstitutesKnownVars(t *testing.T) {
	require.NoError(t, os.Setenv("LSP_CLIENT_TEST_ROOT", "/repo"))
	defer os.Unsetenv("LSP_CLIENT_TEST_ROOT")

	tree := Tree{
		"workspace": Tree{"root": "${LSP_CLIENT_TEST_ROOT}/src"},
		"include":   []any{"${LSP_CLIENT_TEST_ROOT}/vendor"},
	}
	expanded := ExpandEnv(tree)

	workspace, ok := expanded["workspace"].(Tree)
	require.True(t, ok)
	assert.Equal(t, "/repo/src", workspace["root"])

	include, ok := expanded["include"].([]any)
	require.True(t, ok)
	assert.Equal(t, "/repo/vendor", include[0])
}

func TestExpandEnvLeavesUnsetPlaceholder(t *testing.T) {
	tree := Tree{"path": "${LSP_CLIENT_DEFINITELY_UNSET}"}
	expanded := ExpandEnv(tree)
	assert.Equal(t, "${LSP_CLIENT_DEFINITELY_UNSET}", expanded["path"])
}
