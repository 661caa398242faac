package uri

import (
	"fmt"
	"path"
	"strings"

	"github.com/observerw/lsp-client/lsperr"
)

// PathMapper translates between a host filesystem root and a container's
// mounted root, adapted from utils/pathmap.go's DockerPathMapper and
// generalized to implement transport.PathTranslator (TranslatePathIn /
// TranslatePathOut) so any Transport can opt into it rather than it being
// wired specifically into a bridge type.
type PathMapper struct {
	hostRoot      string
	containerRoot string
	enabled       bool
}

// NewPathMapper builds an enabled mapper between hostRoot and containerRoot.
func NewPathMapper(hostRoot, containerRoot string) (*PathMapper, error) {
	if hostRoot == "" {
		return nil, lsperr.New(lsperr.InvalidParams, "", fmt.Errorf("host root cannot be empty"))
	}
	containerRoot = strings.TrimSuffix(containerRoot, "/")
	if !strings.HasPrefix(containerRoot, "/") {
		return nil, lsperr.New(lsperr.InvalidParams, "", fmt.Errorf("container root must be absolute"))
	}
	return &PathMapper{
		hostRoot:      normalizeSeparators(hostRoot),
		containerRoot: containerRoot,
		enabled:       true,
	}, nil
}

// NoopPathMapper returns a disabled mapper, used when no container
// translation is configured — every method is a passthrough.
func NoopPathMapper() *PathMapper {
	return &PathMapper{enabled: false}
}

func normalizeSeparators(p string) string {
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// TranslatePathIn maps a host path (what the caller sees) to the path the
// server should see, satisfying transport.PathTranslator.
func (m *PathMapper) TranslatePathIn(hostPath string) string {
	if !m.enabled {
		return hostPath
	}
	clean := normalizeSeparators(hostPath)
	if !hasPrefixFold(clean, m.hostRoot) {
		return hostPath // outside the mount; leave untranslated, caller's request will fail server-side
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(clean, m.hostRoot), "/")
	if rel == "" {
		return m.containerRoot
	}
	return path.Clean(path.Join(m.containerRoot, rel))
}

// TranslatePathOut maps a server-reported path back to the host path the
// caller expects to see.
func (m *PathMapper) TranslatePathOut(serverPath string) string {
	if !m.enabled {
		return serverPath
	}
	clean := normalizeSeparators(serverPath)
	if !strings.HasPrefix(clean, m.containerRoot) {
		return serverPath
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(clean, m.containerRoot), "/")
	if rel == "" {
		return m.hostRoot
	}
	return path.Clean(path.Join(m.hostRoot, rel))
}

func (m *PathMapper) Enabled() bool { return m.enabled }
