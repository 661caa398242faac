package client

import (
	"context"
	"sync"

	"github.com/observerw/lsp-client/logger"
	"github.com/observerw/lsp-client/rpc"
)

// dispatcher is the Inbound Dispatcher (§4.E). It classifies frames handed
// to it by a Binding's reader goroutine and routes them to the pending
// table, the handler registry, or a synthesized error response — never
// doing handler work inline, so the reader stays a pure producer per the
// server-initiated reentrancy requirement (§9 Design Notes).
//
// Request handler execution runs on a bounded worker pool, grounded on
// original_source's _server_request_worker (reads a channel, spawns a
// per-request task). Notification fan-out does not use that pool:
// notifications for a given method must be observed by handlers in arrival
// order (§5/§8.5), which a shared worker pool cannot guarantee since two
// idle workers can finish in either order; each method instead gets its own
// single-goroutine queue, following the same one-goroutine-per-key
// serialization shape as dshills-keystorm's lua.Executor (a channel feeding
// exactly one consumer goroutine), so different methods still fan out
// concurrently while same-method delivery stays ordered.
type dispatcher struct {
	pending  *PendingTable
	registry *Registry
	reply    func(rawID []byte, result any, rpcErr *rpc.RPCError)

	jobs chan func()
	wg   sync.WaitGroup

	notifyMu     sync.Mutex
	notifyQueues map[string]chan func()
}

const dispatcherWorkers = 8

func newDispatcher(pending *PendingTable, registry *Registry, reply func([]byte, any, *rpc.RPCError)) *dispatcher {
	d := &dispatcher{
		pending:      pending,
		registry:     registry,
		reply:        reply,
		jobs:         make(chan func(), 256),
		notifyQueues: make(map[string]chan func()),
	}
	for i := 0; i < dispatcherWorkers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.jobs {
		runSafely(job)
	}
}

// notificationQueue returns the serial delivery queue for method, spawning
// its single consumer goroutine on first use.
func (d *dispatcher) notificationQueue(method string) chan func() {
	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()
	q, ok := d.notifyQueues[method]
	if ok {
		return q
	}
	q = make(chan func(), 64)
	d.notifyQueues[method] = q
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for job := range q {
			runSafely(job)
		}
	}()
	return q
}

func runSafely(job func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("dispatcher handler panicked", "recovered", r)
		}
	}()
	job()
}

// Dispatch routes one decoded frame. Called from the reader goroutine; must
// never block on handler work.
func (d *dispatcher) Dispatch(ctx context.Context, msg *rpc.Message) {
	switch msg.Kind {
	case rpc.KindResponse:
		if err := d.pending.Complete(msg.ID, msg.Result, msg.Err); err != nil {
			logger.Debug("dropping response for stale id", "id", msg.ID, "err", err)
		}

	case rpc.KindNotification:
		handlers := d.registry.Notifications(msg.Method)
		if len(handlers) == 0 {
			logger.Debug("unhandled notification", "method", msg.Method)
			return
		}
		params := msg.Params
		d.notificationQueue(msg.Method) <- func() {
			for _, h := range handlers {
				h(ctx, params)
			}
		}

	case rpc.KindRequest:
		handler, ok := d.registry.Request(msg.Method)
		rawID := msg.RawID()
		if !ok {
			logger.Warn("unhandled server request", "method", msg.Method)
			d.reply(rawID, nil, &rpc.RPCError{Code: rpc.CodeMethodNotFound, Message: "method not found: " + msg.Method})
			return
		}
		params := msg.Params
		d.enqueue(func() {
			result, rpcErr := handler(ctx, params)
			if rpcErr == nil {
				d.reply(rawID, result, nil)
			} else {
				d.reply(rawID, nil, rpcErr)
			}
		})

	default:
		logger.Debug("dropping frame of unknown kind")
	}
}

func (d *dispatcher) enqueue(job func()) {
	d.jobs <- job
}

func (d *dispatcher) Close() {
	close(d.jobs)
	d.notifyMu.Lock()
	for _, q := range d.notifyQueues {
		close(q)
	}
	d.notifyMu.Unlock()
	d.wg.Wait()
}
