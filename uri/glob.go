package uri

import (
	"strings"

	"github.com/yosida95/uritemplate/v3"
)

// GlobToURIPrefix expands a caller-supplied path glob (e.g.
// "/repo/services/*") into the percent-encoded file:// URI prefix the
// Configuration Store matches scope registrations against. Only the
// literal (non-wildcard) leading segments are percent-encoded through a
// URI template expansion; the wildcard suffix is preserved for the
// store's own glob matcher.
func GlobToURIPrefix(glob string) string {
	literal, wildcard := splitLiteralPrefix(glob)
	if literal == "" {
		// wildcard already carries the leading "/" split off the root
		// (e.g. "/*" -> wildcard "/*"); FromPath("/") would duplicate it.
		return "file://" + wildcard
	}

	tmpl, err := uritemplate.New("{+path}")
	if err != nil {
		return FromPath(literal) + wildcard
	}
	values := uritemplate.Values{}
	values.Set("path", uritemplate.String(strings.TrimPrefix(FromPath(literal), "file://")))
	expanded, err := tmpl.Expand(values)
	if err != nil {
		return FromPath(literal) + wildcard
	}
	return "file://" + expanded + wildcard
}

// splitLiteralPrefix separates a glob's fixed leading path from its first
// wildcard segment onward.
func splitLiteralPrefix(glob string) (literal, rest string) {
	idx := strings.IndexAny(glob, "*?[")
	if idx < 0 {
		return glob, ""
	}
	slash := strings.LastIndex(glob[:idx], "/")
	if slash < 0 {
		return "", glob
	}
	return glob[:slash], glob[slash:]
}
