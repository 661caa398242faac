package client

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	list "github.com/bahlo/generic-list-go"

	"github.com/observerw/lsp-client/rpc"
)

// NotificationHandler processes a server-initiated notification. It should
// return promptly; long work should be offloaded by the handler itself.
type NotificationHandler func(ctx context.Context, params json.RawMessage)

// RequestHandler processes a server-initiated request and returns either a
// JSON-marshalable result or an *rpc.RPCError.
type RequestHandler func(ctx context.Context, params json.RawMessage) (any, *rpc.RPCError)

// Registry is the Handler Registry component (§4.F): notification handlers
// fan out in registration order per method (backed by an ordered linked
// list, the same structure mcp-go itself uses for its own tool
// bookkeeping — reused here for the identical "insertion order matters"
// requirement), request handlers are single-responder per method.
//
// Registration is only accepted before Freeze is called, mirroring the
// "only before initialized" rule so the wire is guaranteed idle while the
// method tables are being built.
type Registry struct {
	mu       sync.Mutex
	notifs   map[string]*list.List[NotificationHandler]
	requests map[string]RequestHandler
	frozen   atomic.Bool
}

func NewRegistry() *Registry {
	return &Registry{
		notifs:   make(map[string]*list.List[NotificationHandler]),
		requests: make(map[string]RequestHandler),
	}
}

var errFrozen = errRegistryFrozen{}

type errRegistryFrozen struct{}

func (errRegistryFrozen) Error() string {
	return "handler registry is frozen; register before the session enters initialized"
}

type errDuplicateRequestHandler struct{ method string }

func (e errDuplicateRequestHandler) Error() string {
	return "request handler already registered for method " + e.method
}

// OnNotification registers h to run, in order, whenever method arrives as a
// server notification.
func (r *Registry) OnNotification(method string, h NotificationHandler) error {
	if r.frozen.Load() {
		return errFrozen
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.notifs[method]
	if !ok {
		l = list.New[NotificationHandler]()
		r.notifs[method] = l
	}
	l.PushBack(h)
	return nil
}

// OnRequest registers the single handler for a server-initiated request
// method. Registering a second handler for the same method is rejected.
func (r *Registry) OnRequest(method string, h RequestHandler) error {
	if r.frozen.Load() {
		return errFrozen
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.requests[method]; exists {
		return errDuplicateRequestHandler{method: method}
	}
	r.requests[method] = h
	return nil
}

// Freeze marks the registry read-only; called once the session transitions
// into initialized. It only rejects further registration: Notifications and
// Request still take the registry mutex on every lookup.
func (r *Registry) Freeze() {
	r.frozen.Store(true)
}

// Notifications returns the ordered handler list for method, or nil.
func (r *Registry) Notifications(method string) []NotificationHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.notifs[method]
	if !ok {
		return nil
	}
	out := make([]NotificationHandler, 0, l.Len())
	for e := l.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value)
	}
	return out
}

// Request returns the single handler for method, if any.
func (r *Registry) Request(method string) (RequestHandler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.requests[method]
	return h, ok
}
