package uri

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlobToURIPrefixKeepsWildcardSuffixLiteral(t *testing.T) {
	assert.Equal(t, "file:///repo/strict/*", GlobToURIPrefix("/repo/strict/*"))
	assert.Equal(t, "file:///repo/*", GlobToURIPrefix("/repo/*"))
}

func TestGlobToURIPrefixWithNoWildcardIsExact(t *testing.T) {
	assert.Equal(t, "file:///repo/strict/main.go", GlobToURIPrefix("/repo/strict/main.go"))
}

func TestGlobToURIPrefixWildcardAtRoot(t *testing.T) {
	assert.Equal(t, "file:///*", GlobToURIPrefix("/*"))
}

func TestSplitLiteralPrefixSeparatesAtLastSlashBeforeWildcard(t *testing.T) {
	literal, rest := splitLiteralPrefix("/repo/services/*/main.go")
	assert.Equal(t, "/repo/services", literal)
	assert.Equal(t, "/*/main.go", rest)
}

func TestSplitLiteralPrefixNoWildcardReturnsWholeGlobAsLiteral(t *testing.T) {
	literal, rest := splitLiteralPrefix("/repo/main.go")
	assert.Equal(t, "/repo/main.go", literal)
	assert.Empty(t, rest)
}
