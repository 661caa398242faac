package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAMLFileNormalizesNestedMappings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	contents := "editor:\n  tabSize: 2\n  insertSpaces: true\nlanguages:\n  - go\n  - rust\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	tree, err := LoadYAMLFile(path)
	require.NoError(t, err)

	editor, ok := tree["editor"].(Tree)
	require.True(t, ok, "nested mapping should normalize to Tree, got %T", tree["editor"])
	assert.Equal(t, 2, editor["tabSize"])
	assert.Equal(t, true, editor["insertSpaces"])

	langs, ok := tree["languages"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"go", "rust"}, langs)
}

func TestLoadYAMLFileMissingFileErrors(t *testing.T) {
	_, err := LoadYAMLFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
