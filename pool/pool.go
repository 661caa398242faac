// Package pool implements the Server Pool (§4.J): document-scoped requests
// are routed by consistent hashing of their URI set so a document's state
// stays partitioned on one binding; workspace-scoped requests use
// least-outstanding-requests; configuration-style operations broadcast to
// every binding. Grounded on original_source's server/base.py multi-binding
// shape and the request_all() broadcast pattern in client/base.py, with the
// load-balancing policy itself grounded on the routing shape seen in
// other_examples' lsp_manager (route to the binding with fewest active
// requests).
package pool

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/observerw/lsp-client/lsperr"
)

// Member is the operations a pool needs from a binding. client.Binding
// satisfies this; kept as a narrow interface so pool has no import cycle
// with client and tests can use fakes.
type Member interface {
	SendRequest(ctx context.Context, method string, params, result any) error
	SendNotification(ctx context.Context, method string, params any) error
}

type slot struct {
	member      Member
	outstanding int64
	inFlight    chan struct{} // bounded backpressure window
}

// Pool holds N equivalent bindings.
type Pool struct {
	mu    sync.RWMutex
	slots []*slot
}

// InFlightWindow bounds how many concurrent requests a single binding may
// have outstanding before routing blocks awaiting a free slot (§4.J
// backpressure).
const InFlightWindow = 32

// New builds a pool over the given members.
func New(members ...Member) *Pool {
	p := &Pool{}
	for _, m := range members {
		p.slots = append(p.slots, &slot{member: m, inFlight: make(chan struct{}, InFlightWindow)})
	}
	return p
}

// Add appends a binding to the pool (e.g. after a lazy respawn).
func (p *Pool) Add(m Member) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slots = append(p.slots, &slot{member: m, inFlight: make(chan struct{}, InFlightWindow)})
}

// Remove drops a binding from rotation (§4.H: a binding that fails mid-run
// is removed from the pool).
func (p *Pool) Remove(m Member) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.slots {
		if s.member == m {
			p.slots = append(p.slots[:i], p.slots[i+1:]...)
			return
		}
	}
}

func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.slots)
}

// pickDocument chooses a binding by consistent hashing of the sorted URI
// set, so the same document set always lands on the same binding as long
// as the pool size is stable.
func (p *Pool) pickDocument(uris []string) (*slot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.slots) == 0 {
		return nil, lsperr.New(lsperr.Terminated, "", nil)
	}
	sorted := append([]string(nil), uris...)
	sort.Strings(sorted)
	h := fnv.New32a()
	for _, u := range sorted {
		_, _ = h.Write([]byte(u))
	}
	idx := int(h.Sum32()) % len(p.slots)
	if idx < 0 {
		idx += len(p.slots)
	}
	return p.slots[idx], nil
}

// pickLeastOutstanding chooses the binding with the fewest currently
// outstanding requests, for workspace-scoped calls.
func (p *Pool) pickLeastOutstanding() (*slot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.slots) == 0 {
		return nil, lsperr.New(lsperr.Terminated, "", nil)
	}
	best := p.slots[0]
	for _, s := range p.slots[1:] {
		if atomic.LoadInt64(&s.outstanding) < atomic.LoadInt64(&best.outstanding) {
			best = s
		}
	}
	return best, nil
}

func (p *Pool) acquire(ctx context.Context, s *slot) error {
	select {
	case s.inFlight <- struct{}{}:
		atomic.AddInt64(&s.outstanding, 1)
		return nil
	case <-ctx.Done():
		return lsperr.New(lsperr.Timeout, "", ctx.Err())
	}
}

func (p *Pool) release(s *slot) {
	atomic.AddInt64(&s.outstanding, -1)
	<-s.inFlight
}

// ResolveDocumentMember returns the binding that owns uris under the
// document-affinity policy, without acquiring its in-flight window. Used by
// callers (the session's document sync guard) that need to bracket
// didOpen/didClose on the exact binding a subsequent RequestDocumentScoped
// call for the same URIs will land on.
func (p *Pool) ResolveDocumentMember(uris []string) (Member, error) {
	s, err := p.pickDocument(uris)
	if err != nil {
		return nil, err
	}
	return s.member, nil
}

// RequestDocumentScoped routes a request to the single binding owning
// uris, per §4.J's document-affinity policy.
func (p *Pool) RequestDocumentScoped(ctx context.Context, uris []string, method string, params, result any) error {
	s, err := p.pickDocument(uris)
	if err != nil {
		return err
	}
	if err := p.acquire(ctx, s); err != nil {
		return err
	}
	defer p.release(s)
	return s.member.SendRequest(ctx, method, params, result)
}

// NotifyDocumentScoped sends a notification to the single binding owning
// uris, per §4.J's document-affinity policy — the same binding a
// RequestDocumentScoped call for the same URIs, or the didOpen that opened
// them, landed on. Unlike RequestDocumentScoped this does not acquire the
// in-flight window: notifications are fire-and-forget and must not block
// behind a full request queue.
func (p *Pool) NotifyDocumentScoped(uris []string, method string, params any) error {
	s, err := p.pickDocument(uris)
	if err != nil {
		return err
	}
	return s.member.SendNotification(context.Background(), method, params)
}

// RequestWorkspaceScoped routes a request to the least-loaded binding.
func (p *Pool) RequestWorkspaceScoped(ctx context.Context, method string, params, result any) error {
	s, err := p.pickLeastOutstanding()
	if err != nil {
		return err
	}
	if err := p.acquire(ctx, s); err != nil {
		return err
	}
	defer p.release(s)
	return s.member.SendRequest(ctx, method, params, result)
}

// Broadcast fans a notification out to every binding, used for
// configuration pushes and shutdown/exit sequencing.
func (p *Pool) Broadcast(method string, params any) {
	p.mu.RLock()
	slots := append([]*slot(nil), p.slots...)
	p.mu.RUnlock()

	var wg sync.WaitGroup
	for _, s := range slots {
		wg.Add(1)
		go func(s *slot) {
			defer wg.Done()
			_ = s.member.SendNotification(context.Background(), method, params)
		}(s)
	}
	wg.Wait()
}

// Members returns a snapshot of every binding, e.g. for RequestAll during
// initialize/shutdown.
func (p *Pool) Members() []Member {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Member, len(p.slots))
	for i, s := range p.slots {
		out[i] = s.member
	}
	return out
}
