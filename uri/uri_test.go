package uri

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripAbsolutePath(t *testing.T) {
	p := "/tmp/project/main.go"
	u := FromPath(p)
	assert.Equal(t, "file:///tmp/project/main.go", u)

	back, err := ToPath(u)
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestFromPathWindowsDriveLetter(t *testing.T) {
	u := FromPath(`C:\Users\dev\project\main.go`)
	assert.Equal(t, "file:///C:/Users/dev/project/main.go", u)

	back, err := ToPath(u)
	require.NoError(t, err)
	assert.Equal(t, "C:/Users/dev/project/main.go", back)
}

func TestToPathRejectsNonFileScheme(t *testing.T) {
	_, err := ToPath("https://example.com/a.go")
	assert.Error(t, err)
}

func TestPathMapperTranslateRoundTrip(t *testing.T) {
	m, err := NewPathMapper("/home/user/project", "/workspace")
	require.NoError(t, err)

	container := m.TranslatePathIn("/home/user/project/src/main.go")
	assert.Equal(t, "/workspace/src/main.go", container)

	host := m.TranslatePathOut(container)
	assert.Equal(t, "/home/user/project/src/main.go", host)
}

func TestNoopPathMapperPassesThrough(t *testing.T) {
	m := NoopPathMapper()
	assert.Equal(t, "/a/b", m.TranslatePathIn("/a/b"))
	assert.Equal(t, "/a/b", m.TranslatePathOut("/a/b"))
}
