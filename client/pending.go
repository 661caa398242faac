// Package client implements the request/response correlation core: the
// Pending Table, the Handler Registry, the Inbound Dispatcher, and the
// Binding that wires a transport's byte stream through all three. This is
// the component the rest of the engine builds on (session, pool, docsync).
package client

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/observerw/lsp-client/lsperr"
	"github.com/observerw/lsp-client/rpc"
)

// outcome is what a pending request's waiter eventually receives: either a
// decoded result, an RPC-level error from the server, or a core error kind
// (Cancelled/Timeout/Terminated).
type outcome struct {
	result json.RawMessage
	rpcErr *rpc.RPCError
	err    error
}

// pendingEntry is the completion slot for one outstanding client-issued
// request. result is a single-buffered channel standing in for the
// original's oneshot channel (original_source's ShotTable).
type pendingEntry struct {
	method string
	result chan outcome
	once   sync.Once
}

func (e *pendingEntry) complete(o outcome) {
	e.once.Do(func() { e.result <- o })
}

// PendingTable maps outstanding request ids to their completion slot. It
// realizes SPEC_FULL.md §4.D: id → entry is a bijection for the entry's
// lifetime, and completion, cancellation and shutdown are each one-shot.
type PendingTable struct {
	mu      sync.Mutex
	entries map[string]*pendingEntry
	sendFn  func(id, method string, cancel bool) error // emits $/cancelRequest
}

// NewPendingTable builds an empty table. sendCancel is invoked by Cancel to
// emit $/cancelRequest on the wire for requests that were already sent.
func NewPendingTable(sendCancel func(id string) error) *PendingTable {
	return &PendingTable{
		entries: make(map[string]*pendingEntry),
		sendFn: func(id, _ string, _ bool) error {
			return sendCancel(id)
		},
	}
}

// NewID generates a fresh request id. UUIDs avoid any risk of collision
// across concurrently outstanding requests, per SPEC_FULL.md §3.
func NewID() string {
	return uuid.NewString()
}

// Insert registers a new pending entry for id and returns the channel its
// waiter should receive from exactly once.
func (t *PendingTable) Insert(id, method string) <-chan outcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := &pendingEntry{method: method, result: make(chan outcome, 1)}
	t.entries[id] = entry
	return entry.result
}

// Complete decodes raw against no schema here (the caller decodes; this
// layer only routes bytes) and wakes the id's waiter. A completion for an
// unknown id is a protocol violation from the server's side and is logged,
// not propagated, since the wire itself is otherwise healthy.
func (t *PendingTable) Complete(id string, result json.RawMessage, rpcErr *rpc.RPCError) error {
	t.mu.Lock()
	entry, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	if !ok {
		return lsperr.New(lsperr.ProtocolError, "", fmt.Errorf("response for unknown or already-completed id %q", id))
	}
	entry.complete(outcome{result: result, rpcErr: rpcErr})
	return nil
}

// Cancel removes id's pending entry, wakes its waiter with Cancelled, and
// emits $/cancelRequest on the wire.
func (t *PendingTable) Cancel(id string) {
	t.mu.Lock()
	entry, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	if !ok {
		return
	}
	entry.complete(outcome{err: lsperr.New(lsperr.Cancelled, entry.method, nil)})
	_ = t.sendFn(id, entry.method, true)
}

// Timeout removes id's entry and wakes its waiter with Timeout rather than
// Cancelled; like Cancel, it also emits $/cancelRequest so the server stops
// working on the request. SendRequest uses it when the caller's context
// deadline expires.
func (t *PendingTable) Timeout(id string) {
	t.mu.Lock()
	entry, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	if !ok {
		return
	}
	entry.complete(outcome{err: lsperr.New(lsperr.Timeout, entry.method, nil)})
	_ = t.sendFn(id, entry.method, true)
}

// DrainTerminated cancels every still-pending entry with Terminated, used
// when a binding shuts down. The table is empty afterward, satisfying the
// request/response bijection property (§8.1).
func (t *PendingTable) DrainTerminated() {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[string]*pendingEntry)
	t.mu.Unlock()

	for _, entry := range entries {
		entry.complete(outcome{err: lsperr.New(lsperr.Terminated, entry.method, nil)})
	}
}

// Len reports the number of currently outstanding requests, used by tests
// asserting the bijection property.
func (t *PendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
