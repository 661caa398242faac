// Package session implements the Lifecycle Controller (§4.H): it drives
// one or more server bindings through initialize -> initialized -> running
// -> shutting-down -> terminated, and exposes the scoped, capability-checked
// operation surface callers use once running. Grounded on the teacher's
// LanguageClient connect/Initialize/Shutdown/Exit sequence in
// lsp/methods.go and lsp/handler.go, generalized from a single connection
// to a pool of equivalent bindings per original_source's server/base.py
// multi-binding session shape.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/myleshyson/lsprotocol-go/protocol"

	"github.com/observerw/lsp-client/capability"
	"github.com/observerw/lsp-client/client"
	"github.com/observerw/lsp-client/config"
	"github.com/observerw/lsp-client/docsync"
	"github.com/observerw/lsp-client/logger"
	"github.com/observerw/lsp-client/lsperr"
	"github.com/observerw/lsp-client/pool"
	"github.com/observerw/lsp-client/transport"
	"github.com/observerw/lsp-client/uri"
)

// State is the Session lifecycle state (§3 Data Model, Session).
type State int

const (
	StateConstructed State = iota
	StateInitializing
	StateRunning
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting-down"
	case StateTerminated:
		return "terminated"
	default:
		return "constructed"
	}
}

// ShutdownGrace bounds how long Shutdown waits, after sending exit, for a
// binding's reader to observe EOF before its transport is killed (§4.C).
const ShutdownGrace = 2 * time.Second

// member wraps one binding with its own guard, kept so a binding going down
// mid-run can be located and evicted from every collaborator at once.
type member struct {
	binding *client.Binding
	guard   *docsync.Guard
}

// Session ties a Server Pool, a Configuration Store and a capability
// Composer into the single object callers acquire and release scoped
// operations through. All caller-visible operations are valid only while
// State() == StateRunning (§3).
type Session struct {
	mu       sync.RWMutex
	state    State
	composer *capability.Composer
	surface  *capability.Surface
	pool     *pool.Pool
	cfg      *config.Store
	members  map[*client.Binding]*member

	initParams func() protocol.InitializeParams
}

// Option customizes session construction.
type Option func(*Session)

// WithInitializeParams overrides the InitializeParams sent to every
// binding; by default only Capabilities is set. Capabilities is always
// replaced by the composer's, whatever f returns.
func WithInitializeParams(f func() protocol.InitializeParams) Option {
	return func(s *Session) { s.initParams = f }
}

// New constructs a session over one transport per equivalent server
// binding, drives every binding through initialize/initialized, and
// returns only once running or with a fatal error (§4.H: "a binding that
// fails to initialize fails the whole session").
func New(ctx context.Context, transports []transport.Transport, composer *capability.Composer, opts ...Option) (*Session, error) {
	if len(transports) == 0 {
		return nil, lsperr.New(lsperr.InternalError, "", fmt.Errorf("session requires at least one transport"))
	}

	s := &Session{
		state:   StateConstructed,
		composer: composer,
		members: make(map[*client.Binding]*member),
	}
	for _, o := range opts {
		o(s)
	}
	s.pool = pool.New()
	s.cfg = config.New(s.pool)

	s.setState(StateInitializing)

	bindings := make([]*client.Binding, 0, len(transports))
	for _, t := range transports {
		b, err := client.NewBinding(ctx, t)
		if err != nil {
			s.teardown(bindings)
			return nil, lsperr.New(lsperr.InternalError, "", fmt.Errorf("start binding: %w", err))
		}
		bindings = append(bindings, b)
	}

	for _, b := range bindings {
		if err := s.initializeBinding(ctx, b); err != nil {
			s.teardown(bindings)
			s.setState(StateTerminated)
			return nil, err
		}
	}

	s.setState(StateRunning)
	return s, nil
}

func (s *Session) initializeBinding(ctx context.Context, b *client.Binding) error {
	b.MarkInitializing()
	params := protocol.InitializeParams{}
	if s.initParams != nil {
		params = s.initParams()
	}
	params.Capabilities = *s.composer.BuildClientCapabilities()

	var result protocol.InitializeResult
	if err := b.SendRequest(ctx, "initialize", params, &result); err != nil {
		return lsperr.New(lsperr.InternalError, "initialize", err)
	}

	surface, err := s.composer.Validate(&result.Capabilities)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.surface = surface
	s.mu.Unlock()
	s.composer.Bind(surface, b.Registry())

	if err := b.SendNotification(ctx, "initialized", protocol.InitializedParams{}); err != nil {
		return lsperr.New(lsperr.InternalError, "initialized", err)
	}

	// Registration is only valid before the session enters initialized
	// (§4.F); freezing here, right after "initialized" is sent, is what
	// actually realizes that invariant instead of leaving it enforceable
	// only in tests.
	b.Registry().Freeze()

	b.MarkReady()
	g := docsync.New(b)
	s.mu.Lock()
	s.members[b] = &member{binding: b, guard: g}
	s.mu.Unlock()
	s.pool.Add(b)

	go func() {
		<-b.Done()
		s.MarkDown(b)
	}()

	logger.Info("binding ready", "state", b.State().String())
	return nil
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Surface exposes the validated capability surface, e.g. for Tool
// Exposition to enumerate reachable operations.
func (s *Session) Surface() *capability.Surface {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.surface
}

// Pool exposes the underlying pool for feature modules that need routing
// beyond the guard-scoped helpers (e.g. workspace-wide operations).
func (s *Session) Pool() *pool.Pool { return s.pool }

// Config exposes the configuration store.
func (s *Session) Config() *config.Store { return s.cfg }

// requireRunning is the guard every caller-visible operation must pass.
func (s *Session) requireRunning() error {
	if s.State() != StateRunning {
		return lsperr.New(lsperr.Terminated, "", fmt.Errorf("session is %s, not running", s.State()))
	}
	return nil
}

// WithDocuments opens paths on the binding that will serve a document-scoped
// call, runs body with the resolved URIs, and closes them per docsync's
// reference-counting rules. The binding is chosen up front by consistent
// hashing so open/close and the scoped requests inside body land on the
// same binding (§4.J document affinity).
func (s *Session) WithDocuments(ctx context.Context, paths []string, detect docsync.LanguageDetector, body func(uris []string) error) error {
	if err := s.requireRunning(); err != nil {
		return err
	}
	b, err := s.pickForPaths(paths)
	if err != nil {
		return err
	}
	return b.guard.WithDocuments(ctx, paths, detect, body)
}

func (s *Session) pickForPaths(paths []string) (*member, error) {
	uris := make([]string, len(paths))
	for i, p := range paths {
		uris[i] = uri.FromPath(p)
	}

	target, err := s.pool.ResolveDocumentMember(uris)
	if err != nil {
		return nil, err
	}
	b, ok := target.(*client.Binding)
	if !ok {
		return nil, lsperr.New(lsperr.InternalError, "", fmt.Errorf("pool member is not a binding"))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[b]
	if !ok {
		return nil, lsperr.New(lsperr.Terminated, "", fmt.Errorf("resolved binding is no longer registered"))
	}
	return m, nil
}

// RequestDocumentScoped issues a document-scoped request through the pool's
// consistent-hash routing (§4.J), bracketed by the owning binding's Document
// Sync Guard so didOpen precedes and didClose follows the wire call for
// every URI involved (§4.I, Testable Property 3): no feature call site
// reaches the wire without going through this ordering.
func (s *Session) RequestDocumentScoped(ctx context.Context, uris []string, method string, params, result any) error {
	if err := s.requireRunning(); err != nil {
		return err
	}
	paths := make([]string, len(uris))
	for i, u := range uris {
		p, err := uri.ToPath(u)
		if err != nil {
			return err
		}
		paths[i] = p
	}
	return s.WithDocuments(ctx, paths, docsync.DefaultLanguageDetector, func(scopedURIs []string) error {
		return s.pool.RequestDocumentScoped(ctx, scopedURIs, method, params, result)
	})
}

// NotifyDocumentScoped sends a document-scoped notification to the single
// binding that owns uris under the pool's document-affinity policy (§4.J),
// the same binding that received the didOpen for those URIs. Unlike
// RequestDocumentScoped this does not bracket with the Document Sync
// Guard: callers use it for traffic about an already-open document
// (didChange, didSave), not to open one.
func (s *Session) NotifyDocumentScoped(uris []string, method string, params any) error {
	if err := s.requireRunning(); err != nil {
		return err
	}
	return s.pool.NotifyDocumentScoped(uris, method, params)
}

// RequestWorkspaceScoped issues a workspace-scoped request via
// least-outstanding-requests routing (§4.J).
func (s *Session) RequestWorkspaceScoped(ctx context.Context, method string, params, result any) error {
	if err := s.requireRunning(); err != nil {
		return err
	}
	return s.pool.RequestWorkspaceScoped(ctx, method, params, result)
}

// Broadcast fans a notification to every binding (e.g. configuration
// pushes, watched-file batches).
func (s *Session) Broadcast(method string, params any) error {
	if err := s.requireRunning(); err != nil {
		return err
	}
	s.pool.Broadcast(method, params)
	return nil
}

// MarkDown evicts a binding that failed mid-run: its outstanding requests
// are already being cancelled with Terminated by the binding itself; the
// pool removes it from rotation, and if no bindings remain the session
// transitions to shutting-down (§4.H failure policy).
func (s *Session) MarkDown(b *client.Binding) {
	s.mu.Lock()
	delete(s.members, b)
	remaining := len(s.members)
	s.mu.Unlock()

	s.pool.Remove(b)
	logger.Warn("binding marked down", "remaining", remaining)

	if remaining == 0 {
		go s.Shutdown(context.Background())
	}
}

// Shutdown moves the session to shutting-down, so new caller operations are
// refused, then sends shutdown+exit to every binding and closes it, giving
// each binding up to ShutdownGrace to reach EOF before its transport is
// killed (§4.H: running -> shutting-down -> terminated). Requests already in
// flight are not waited for; they end when their binding terminates.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateShuttingDown || s.state == StateTerminated {
		s.mu.Unlock()
		return nil
	}
	s.state = StateShuttingDown
	members := make([]*member, 0, len(s.members))
	for _, m := range s.members {
		members = append(members, m)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, m := range members {
		wg.Add(1)
		go func(m *member) {
			defer wg.Done()
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			var result any
			_ = m.binding.SendRequest(shutdownCtx, "shutdown", nil, &result)
			_ = m.binding.SendNotification(shutdownCtx, "exit", nil)
			_ = m.binding.Close(ShutdownGrace)
		}(m)
	}
	wg.Wait()

	s.setState(StateTerminated)
	logger.Info("session terminated")
	return nil
}

func (s *Session) teardown(bindings []*client.Binding) {
	for _, b := range bindings {
		_ = b.Close(1 * time.Second)
	}
}
