package pool

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMember struct {
	mu       sync.Mutex
	requests []string
}

func (f *fakeMember) SendRequest(ctx context.Context, method string, params, result any) error {
	f.mu.Lock()
	f.requests = append(f.requests, method)
	f.mu.Unlock()
	return nil
}

func (f *fakeMember) SendNotification(ctx context.Context, method string, params any) error {
	f.mu.Lock()
	f.requests = append(f.requests, "notify:"+method)
	f.mu.Unlock()
	return nil
}

func TestDocumentScopedRoutingIsStableForSameURISet(t *testing.T) {
	m1, m2, m3 := &fakeMember{}, &fakeMember{}, &fakeMember{}
	p := New(m1, m2, m3)

	uris := []string{"file:///repo/a.go"}
	for i := 0; i < 5; i++ {
		require.NoError(t, p.RequestDocumentScoped(context.Background(), uris, "textDocument/hover", nil, nil))
	}

	total := len(m1.requests) + len(m2.requests) + len(m3.requests)
	assert.Equal(t, 5, total)
	// exactly one member should have received all 5, proving stable routing
	counts := []int{len(m1.requests), len(m2.requests), len(m3.requests)}
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	assert.Equal(t, 5, max)
}

func TestNotifyDocumentScopedLandsOnSameMemberAsRequestDocumentScoped(t *testing.T) {
	m1, m2, m3 := &fakeMember{}, &fakeMember{}, &fakeMember{}
	p := New(m1, m2, m3)

	uris := []string{"file:///repo/a.go"}
	require.NoError(t, p.RequestDocumentScoped(context.Background(), uris, "textDocument/hover", nil, nil))
	require.NoError(t, p.NotifyDocumentScoped(uris, "textDocument/didChange", nil))
	require.NoError(t, p.NotifyDocumentScoped(uris, "textDocument/didSave", nil))

	members := []*fakeMember{m1, m2, m3}
	var owner *fakeMember
	hits := 0
	for _, m := range members {
		if len(m.requests) > 0 {
			owner = m
			hits++
		}
	}
	require.Equal(t, 1, hits, "document-affinity notifications must land on exactly one binding, not fan out")
	assert.Equal(t, []string{"textDocument/hover", "notify:textDocument/didChange", "notify:textDocument/didSave"}, owner.requests)
}

func TestWorkspaceScopedRoutingPrefersLeastOutstanding(t *testing.T) {
	m1, m2 := &fakeMember{}, &fakeMember{}
	p := New(m1, m2)

	// Force m1's slot outstanding count up manually via acquire/no-release.
	require.NoError(t, p.acquire(context.Background(), p.slots[0]))

	for i := 0; i < 4; i++ {
		require.NoError(t, p.RequestWorkspaceScoped(context.Background(), "workspace/symbol", nil, nil))
	}
	total := len(m1.requests) + len(m2.requests)
	assert.Equal(t, 4, total)
	assert.Empty(t, m1.requests)
	assert.Len(t, m2.requests, 4)
}

func TestBroadcastReachesEveryMember(t *testing.T) {
	m1, m2 := &fakeMember{}, &fakeMember{}
	p := New(m1, m2)
	p.Broadcast("workspace/didChangeConfiguration", nil)

	assert.Contains(t, m1.requests, "notify:workspace/didChangeConfiguration")
	assert.Contains(t, m2.requests, "notify:workspace/didChangeConfiguration")
}

func TestRemoveTakesMemberOutOfRotation(t *testing.T) {
	m1, m2 := &fakeMember{}, &fakeMember{}
	p := New(m1, m2)
	p.Remove(m1)
	assert.Equal(t, 1, p.Len())
}
