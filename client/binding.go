package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/observerw/lsp-client/lsperr"
	"github.com/observerw/lsp-client/logger"
	"github.com/observerw/lsp-client/rpc"
	"github.com/observerw/lsp-client/transport"
)

// BindingState is the lifecycle state of a single server connection, per
// the Server binding data model in SPEC_FULL.md §3.
type BindingState int

const (
	StateNew BindingState = iota
	StateInitializing
	StateReady
	StateDraining
	StateDown
)

func (s BindingState) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDraining:
		return "draining"
	case StateDown:
		return "down"
	default:
		return "new"
	}
}

// writeJob is one queued outbound frame, serialized through Binding's
// writer goroutine per §4.C ("writes are serialized through a bounded
// queue; a writer task drains the queue").
type writeJob struct {
	body []byte
	done chan error
}

// Binding couples a Transport's duplex stream to a Frame Codec, a Pending
// Table, and a Handler Registry, and owns the dedicated reader/writer
// goroutines that keep the reader a pure producer (§4.C, §4.E).
type Binding struct {
	transport transport.Transport
	framer    *rpc.Framer
	pending   *PendingTable
	registry  *Registry
	dispatch  *dispatcher

	writeCh chan writeJob

	mu    sync.RWMutex
	state BindingState

	closeOnce sync.Once
	closed    chan struct{}

	ServerCapabilities json.RawMessage // set after initialize (session package interprets it)
}

// NewBinding starts the underlying transport and wires up the reader,
// writer, and dispatcher. The binding starts in StateNew; call Initialize
// (session package) to drive it to StateReady.
func NewBinding(ctx context.Context, t transport.Transport) (*Binding, error) {
	stream, err := t.Start(ctx)
	if err != nil {
		return nil, lsperr.New(lsperr.InternalError, "", fmt.Errorf("start transport: %w", err))
	}

	b := &Binding{
		transport: t,
		framer:    rpc.NewFramer(stream),
		registry:  NewRegistry(),
		writeCh:   make(chan writeJob, 64),
		closed:    make(chan struct{}),
	}
	b.pending = NewPendingTable(b.sendCancel)
	b.dispatch = newDispatcher(b.pending, b.registry, b.sendReply)

	go b.readLoop(ctx)
	go b.writeLoop()

	return b, nil
}

func (b *Binding) State() BindingState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *Binding) setState(s BindingState) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// MarkInitializing/MarkReady let the session package drive this binding's
// state through the initialize handshake without exposing setState itself.
func (b *Binding) MarkInitializing() { b.setState(StateInitializing) }
func (b *Binding) MarkReady()        { b.setState(StateReady) }

// Registry exposes the handler registry so feature modules can register
// notification/request handlers before the session freezes it.
func (b *Binding) Registry() *Registry { return b.registry }

func (b *Binding) readLoop(ctx context.Context) {
	for {
		raw, err := b.framer.ReadFrame()
		if err != nil {
			if err != io.EOF {
				logger.Debug("binding read loop error", "err", err)
			}
			b.terminate()
			return
		}
		msg, err := rpc.Decode(raw)
		if err != nil {
			logger.Warn("dropping malformed frame", "err", err)
			continue
		}
		b.dispatch.Dispatch(ctx, msg)
	}
}

func (b *Binding) writeLoop() {
	for {
		select {
		case job := <-b.writeCh:
			err := b.writeWithRetry(job.body)
			if job.done != nil {
				job.done <- err
			}
		case <-b.closed:
			return
		}
	}
}

// writeWithRetry makes up to 3 write attempts, backing off exponentially
// (starting at 50ms) between them, before giving up, per §7 propagation
// policy.
func (b *Binding) writeWithRetry(body []byte) error {
	var err error
	backoff := 50 * time.Millisecond
	for attempt := 0; attempt < 3; attempt++ {
		err = b.framer.WriteFrame(body)
		if err == nil {
			return nil
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	b.terminate()
	return lsperr.New(lsperr.Terminated, "", fmt.Errorf("write failed after retries: %w", err))
}

func (b *Binding) enqueueWrite(body []byte) error {
	done := make(chan error, 1)
	select {
	case b.writeCh <- writeJob{body: body, done: done}:
	case <-b.closed:
		return lsperr.New(lsperr.Terminated, "", nil)
	}
	select {
	case err := <-done:
		return err
	case <-b.closed:
		return lsperr.New(lsperr.Terminated, "", nil)
	}
}

// SendRequest sends a request and blocks until a response arrives, ctx is
// done, or the binding terminates. result, if non-nil, receives the decoded
// success payload; a server-side error is returned as an *rpc.RPCError.
func (b *Binding) SendRequest(ctx context.Context, method string, params any, result any) error {
	id := NewID()
	body, err := rpc.EncodeRequest(id, method, params)
	if err != nil {
		return err
	}

	ch := b.pending.Insert(id, method)

	if err := b.enqueueWrite(body); err != nil {
		b.pending.Cancel(id)
		return err
	}

	select {
	case o := <-ch:
		if o.err != nil {
			return o.err
		}
		if o.rpcErr != nil {
			return o.rpcErr
		}
		if result != nil && len(o.result) > 0 {
			if err := json.Unmarshal(o.result, result); err != nil {
				return lsperr.New(lsperr.ProtocolError, method, fmt.Errorf("decode result: %w", err))
			}
		}
		return nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			b.pending.Timeout(id)
			return lsperr.New(lsperr.Timeout, method, ctx.Err())
		}
		b.pending.Cancel(id)
		return lsperr.New(lsperr.Cancelled, method, ctx.Err())
	case <-b.closed:
		return lsperr.New(lsperr.Terminated, method, nil)
	}
}

// SendNotification sends a fire-and-forget notification.
func (b *Binding) SendNotification(ctx context.Context, method string, params any) error {
	body, err := rpc.EncodeNotification(method, params)
	if err != nil {
		return err
	}
	return b.enqueueWrite(body)
}

func (b *Binding) sendCancel(id string) error {
	body, err := rpc.EncodeNotification(rpc.MethodCancelRequest, rpc.CancelParams{ID: id})
	if err != nil {
		return err
	}
	return b.enqueueWrite(body)
}

func (b *Binding) sendReply(rawID []byte, result any, rpcErr *rpc.RPCError) {
	body, err := rpc.EncodeResponse(rawID, result, rpcErr)
	if err != nil {
		logger.Error("failed to encode reply", "err", err)
		return
	}
	if err := b.enqueueWrite(body); err != nil {
		logger.Debug("failed to send reply", "err", err)
	}
}

// terminate marks the binding down, drains its pending table with
// Terminated, and stops the dispatcher's worker pool.
func (b *Binding) terminate() {
	b.closeOnce.Do(func() {
		b.setState(StateDown)
		close(b.closed)
		b.pending.DrainTerminated()
		b.dispatch.Close()
	})
}

// Close closes the frame codec's stream so the peer, and this binding's own
// reader, observe a clean EOF, then waits up to gracePeriod for that to
// unwind readLoop into terminate() on its own. Only once the grace period
// elapses without a clean termination does it fall back to Kill(), per
// §4.C's shutdown grace period ("half-close, wait, then force").
func (b *Binding) Close(gracePeriod time.Duration) error {
	select {
	case <-b.closed:
		return nil
	default:
	}

	_ = b.framer.Close()
	select {
	case <-b.closed:
	case <-time.After(gracePeriod):
		_ = b.transport.Kill()
		b.terminate()
	}
	return nil
}

// Done reports whether the binding has terminated.
func (b *Binding) Done() <-chan struct{} { return b.closed }
