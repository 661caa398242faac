package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeBroadcaster struct{ calls []string }

func (f *fakeBroadcaster) Broadcast(method string, params any) {
	f.calls = append(f.calls, method)
}

func TestDeepMergeDisjointLeavesAssociative(t *testing.T) {
	a := Tree{"x": Tree{"a": 1}}
	b := Tree{"x": Tree{"b": 2}}
	c := Tree{"x": Tree{"c": 3}}

	left := deepMerge(deepMerge(a, b), c)
	right := deepMerge(a, deepMerge(b, c))

	assert.Equal(t, left, right)
	assert.Equal(t, Tree{"a": 1, "b": 2, "c": 3}, left["x"])
}

func TestDeepMergeLaterWinsAtConflict(t *testing.T) {
	a := Tree{"mode": "basic"}
	b := Tree{"mode": "strict"}
	assert.Equal(t, "strict", deepMerge(a, b)["mode"])
}

func TestDeepMergeExplicitNullUnsetsKey(t *testing.T) {
	a := Tree{"x": 1, "y": 2}
	patch := Tree{"x": nil}
	merged := deepMerge(a, patch)
	_, present := merged["x"]
	assert.False(t, present)
	assert.Equal(t, 2, merged["y"])
}

func TestDeepMergeArraysReplaceWholesale(t *testing.T) {
	a := Tree{"list": []int{1, 2, 3}}
	b := Tree{"list": []int{9}}
	assert.Equal(t, []int{9}, deepMerge(a, b)["list"])
}

func TestStoreResolveMergesGlobalAndMatchingScopes(t *testing.T) {
	b := &fakeBroadcaster{}
	s := New(b)
	s.UpdateGlobal(Tree{"python": Tree{"analysis": Tree{"typeCheckingMode": "basic"}}})
	s.AddScope("/repo/strict/*", Tree{"python": Tree{"analysis": Tree{"typeCheckingMode": "strict"}}})

	loose := s.Resolve("file:///repo/loose/a.py")
	assert.Equal(t, "basic", Section(loose, "python.analysis.typeCheckingMode"))

	strict := s.Resolve("file:///repo/strict/b.py")
	assert.Equal(t, "strict", Section(strict, "python.analysis.typeCheckingMode"))

	assert.Contains(t, b.calls, "workspace/didChangeConfiguration")
}

func TestStoreResolveMatchesInURISpaceWithoutDecodingBack(t *testing.T) {
	s := New(nil)
	s.AddScope("/repo/strict/*", Tree{"mode": "strict"})

	// AddScope's host-path glob is converted to a URI-space glob once at
	// registration; Resolve compares that directly against the incoming
	// (already percent-encoded) URI instead of decoding the URI back into
	// a host path first.
	resolved := s.Resolve("file:///repo/strict/weird%20name.py")
	assert.Equal(t, "strict", resolved["mode"])

	outside := s.Resolve("file:///repo/loose/weird%20name.py")
	_, present := outside["mode"]
	assert.False(t, present)
}

func TestStoreScopeRegistrationOrderResolvesConflicts(t *testing.T) {
	s := New(nil)
	s.AddScope("/repo/*", Tree{"mode": "first"})
	s.AddScope("/repo/*", Tree{"mode": "second"})

	resolved := s.Resolve("file:///repo/a.py")
	assert.Equal(t, "second", resolved["mode"])
}
