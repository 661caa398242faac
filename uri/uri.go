// Package uri implements the Path/URI Layer (§4.L): conversion between
// absolute host paths and file:// URIs, percent-encoding-aware, with
// Windows drive-letter handling. Adapted from utils/uri.go, generalized
// into its own package and stripped of the bridge-specific "return as-is
// for unknown schemes" leniency where the core needs a hard error instead.
package uri

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/observerw/lsp-client/lsperr"
)

// IsWindowsAbsPath reports whether p looks like a Windows absolute path
// (C:\... or C:/...), independent of the runtime OS.
func IsWindowsAbsPath(p string) bool {
	if len(p) < 2 {
		return false
	}
	letter := p[0]
	isLetter := (letter >= 'A' && letter <= 'Z') || (letter >= 'a' && letter <= 'z')
	return isLetter && p[1] == ':'
}

// FromPath converts an absolute host path into a file:// URI with
// percent-encoded path segments. Best-effort: this mirrors the teacher's
// PathToFileURI but panics-never — a malformed empty path still yields a
// deterministic (if useless) URI rather than an error, since callers that
// need strict validation call FromPathStrict.
func FromPath(path string) string {
	u, err := FromPathStrict(path)
	if err != nil {
		return "file://" + filepath.ToSlash(path)
	}
	return u
}

// FromPathStrict is FromPath but returns an error for an empty path.
func FromPathStrict(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", lsperr.New(lsperr.InvalidParams, "", fmt.Errorf("path is empty"))
	}

	isWindowsAbs := IsWindowsAbsPath(path)
	if !isWindowsAbs {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	slashPath := strings.ReplaceAll(path, "\\", "/")
	if isWindowsAbs {
		slashPath = strings.ReplaceAll(slashPath, "//", "/")
	} else {
		slashPath = filepath.ToSlash(filepath.Clean(path))
	}

	// Windows drive-letter paths need a leading slash in the URI path,
	// checked independent of runtime OS since a container host may run
	// Linux while mapping a Windows workspace.
	if len(slashPath) >= 2 && slashPath[1] == ':' {
		slashPath = "/" + slashPath
	}

	u := url.URL{Scheme: "file", Path: slashPath}
	return u.String(), nil
}

// ToPath converts a file:// URI back into an OS path, decoding percent
// escapes. Returns an error for non-file schemes so callers can distinguish
// "not a file URI" from a malformed one.
func ToPath(fileURI string) (string, error) {
	u, err := url.Parse(fileURI)
	if err != nil {
		return "", lsperr.New(lsperr.ProtocolError, "", fmt.Errorf("invalid uri %q: %w", fileURI, err))
	}
	if u.Scheme != "file" {
		return "", lsperr.New(lsperr.ProtocolError, "", fmt.Errorf("not a file uri: %s", fileURI))
	}

	if u.Host != "" {
		p, err := url.PathUnescape(u.Path)
		if err != nil {
			return "", lsperr.New(lsperr.ProtocolError, "", fmt.Errorf("bad path escape: %w", err))
		}
		return filepath.FromSlash("//" + u.Host + p), nil
	}

	p, err := url.PathUnescape(u.Path)
	if err != nil {
		return "", lsperr.New(lsperr.ProtocolError, "", fmt.Errorf("bad path escape: %w", err))
	}
	if strings.HasPrefix(p, "/") && len(p) >= 3 && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p), nil
}

// Canonical resolves a path to its absolute, slash-normalized form, used by
// the URI round-trip test property (§8): FromPath(Canonical(p)) round-trips
// through ToPath.
func Canonical(path string) string {
	if IsWindowsAbsPath(path) {
		return strings.ReplaceAll(path, "\\", "/")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(abs)
}
