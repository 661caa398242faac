// Package config implements the Configuration Store (§4.K): a global
// settings tree plus an ordered list of glob-scoped overlays, deep-merged
// on resolution. Not present in the teacher (which only has static
// launch-time config, lsp/types.go's LanguageServerConfig); built new
// against the LSP workspace/configuration and workspace/didChangeConfiguration
// shapes, using the same ordered-registration-wins policy the teacher's
// go-ordered-map dependency (via mcp-go) already models for insertion
// order.
package config

import (
	"path"
	"strings"
	"sync"

	omap "github.com/wk8/go-ordered-map/v2"

	"github.com/observerw/lsp-client/uri"
)

// Tree is a settings subtree: JSON-object-shaped, arbitrarily nested.
type Tree map[string]any

// Broadcaster is the minimal surface the store needs to push configuration
// changes; the session package's pool satisfies this.
type Broadcaster interface {
	Broadcast(method string, params any)
}

// ChangeListener is invoked after any mutation, with a human-readable
// reason for diagnostics (e.g. "update_global", "add_scope:/repo/svc/*").
type ChangeListener func(reason string)

// scopeEntry pairs a registered overlay with the percent-encoded URI-space
// glob (uri.GlobToURIPrefix) the store actually matches incoming file://
// URIs against, computed once at registration time.
type scopeEntry struct {
	patch   Tree
	uriGlob string
}

// Store holds the global tree and ordered scope overlays.
type Store struct {
	mu     sync.RWMutex
	global Tree
	scopes *omap.OrderedMap[string, scopeEntry] // host-path glob -> entry, insertion order preserved

	broadcaster Broadcaster
	listeners   []ChangeListener
}

func New(broadcaster Broadcaster) *Store {
	return &Store{
		global:      Tree{},
		scopes:      omap.New[string, scopeEntry](),
		broadcaster: broadcaster,
	}
}

// OnChange registers a listener invoked after every mutation.
func (s *Store) OnChange(l ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// UpdateGlobal deep-merges patch into the global tree and notifies bindings.
func (s *Store) UpdateGlobal(patch Tree) {
	s.mu.Lock()
	s.global = deepMerge(s.global, patch)
	s.mu.Unlock()
	s.notify("update_global")
}

// AddScope registers (or replaces, if glob was already registered) an
// overlay patch for glob, applied on top of global for matching URIs.
// Later registrations win at conflicting leaves against earlier ones with
// the same glob; distinct globs are applied in registration order (§9 Open
// Questions decision, DESIGN.md). glob is a host path pattern (the shape a
// caller already has from launch config or a workspace root); it is
// converted once, here, into the percent-encoded URI-space glob Resolve
// actually matches against, so resolution never has to translate an
// incoming URI back into a host path.
func (s *Store) AddScope(glob string, patch Tree) {
	s.mu.Lock()
	if existing, ok := s.scopes.Get(glob); ok {
		patch = deepMerge(existing.patch, patch)
	}
	s.scopes.Set(glob, scopeEntry{patch: patch, uriGlob: uri.GlobToURIPrefix(glob)})
	s.mu.Unlock()
	s.notify("add_scope:" + glob)
}

// RemoveScope drops a previously registered scope.
func (s *Store) RemoveScope(glob string) {
	s.mu.Lock()
	s.scopes.Delete(glob)
	s.mu.Unlock()
	s.notify("remove_scope:" + glob)
}

// Resolve computes the effective tree for a file:// URI: global merged
// with every scope whose URI-space glob matches, applied in registration
// order. Matching happens directly against fileURI (percent-encoded, as
// received) rather than a host path decoded back out of it, so a URI whose
// scheme or encoding uri.ToPath can't invert (e.g. untitled: buffers) still
// resolves against any scope registered for it.
func (s *Store) Resolve(fileURI string) Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := deepMerge(Tree{}, s.global)
	for pair := s.scopes.Oldest(); pair != nil; pair = pair.Next() {
		if globMatch(pair.Value.uriGlob, fileURI) {
			result = deepMerge(result, pair.Value.patch)
		}
	}
	return result
}

// Section extracts a dotted path (e.g. "python.analysis") out of a
// resolved tree, mirroring the shape workspace/configuration requests ask
// for per-item.
func Section(t Tree, section string) any {
	if section == "" {
		return t
	}
	var cur any = map[string]any(t)
	for _, part := range strings.Split(section, ".") {
		m, ok := cur.(Tree)
		if !ok {
			if mm, ok2 := cur.(map[string]any); ok2 {
				m = Tree(mm)
			} else {
				return nil
			}
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	return cur
}

func (s *Store) notify(reason string) {
	s.mu.RLock()
	listeners := append([]ChangeListener(nil), s.listeners...)
	s.mu.RUnlock()

	if s.broadcaster != nil {
		s.broadcaster.Broadcast("workspace/didChangeConfiguration", map[string]any{"settings": nil})
	}
	for _, l := range listeners {
		l(reason)
	}
}

// globMatch reports whether target (a URI-space glob's target, though the
// same slash-segment shape works for plain host paths too) matches glob.
func globMatch(glob, target string) bool {
	ok, err := path.Match(glob, target)
	if err == nil && ok {
		return true
	}
	// Directory-prefix globs like "file:///repo/svc/*" should also match
	// nested paths beneath the matched directory, not just direct children.
	if strings.HasSuffix(glob, "/*") {
		prefix := strings.TrimSuffix(glob, "*")
		return strings.HasPrefix(target, prefix)
	}
	return false
}

// deepMerge merges patch into base: maps merge recursively, everything
// else (including arrays) replaces wholesale, and a patch value of nil
// (explicit JSON null) deletes the key from the result. base is not
// mutated; a new Tree is returned.
func deepMerge(base, patch Tree) Tree {
	out := make(Tree, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		patchSub, patchIsTree := asTree(v)
		baseSub, baseIsTree := asTree(out[k])
		if patchIsTree && baseIsTree {
			out[k] = deepMerge(baseSub, patchSub)
		} else {
			out[k] = v
		}
	}
	return out
}

func asTree(v any) (Tree, bool) {
	switch t := v.(type) {
	case Tree:
		return t, true
	case map[string]any:
		return Tree(t), true
	default:
		return nil, false
	}
}
