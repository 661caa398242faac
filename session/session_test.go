package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/observerw/lsp-client/capability"
	"github.com/observerw/lsp-client/lsptest"
	"github.com/observerw/lsp-client/rpc"
	"github.com/observerw/lsp-client/transport"
	"github.com/observerw/lsp-client/uri"
)

// serveInitializeHandshake plays the server side of one initialize round
// trip: reads the initialize request, replies with empty capabilities, then
// reads the initialized notification.
func serveInitializeHandshake(t *testing.T, framer *rpc.Framer) {
	t.Helper()

	raw, err := framer.ReadFrame()
	require.NoError(t, err)
	msg, err := rpc.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, "initialize", msg.Method)

	body, err := rpc.EncodeResponse(json.RawMessage(`"`+msg.ID+`"`), map[string]any{"capabilities": map[string]any{}}, nil)
	require.NoError(t, err)
	require.NoError(t, framer.WriteFrame(body))

	raw, err = framer.ReadFrame()
	require.NoError(t, err)
	msg, err = rpc.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, "initialized", msg.Method)
}

// serveShutdownHandshake plays the server side of a shutdown/exit sequence.
func serveShutdownHandshake(t *testing.T, framer *rpc.Framer) {
	t.Helper()

	raw, err := framer.ReadFrame()
	require.NoError(t, err)
	msg, err := rpc.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, "shutdown", msg.Method)

	body, err := rpc.EncodeResponse(json.RawMessage(`"`+msg.ID+`"`), nil, nil)
	require.NoError(t, err)
	require.NoError(t, framer.WriteFrame(body))

	raw, err = framer.ReadFrame()
	require.NoError(t, err)
	msg, err = rpc.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, "exit", msg.Method)
}

func TestNewSessionReachesRunningAfterHandshake(t *testing.T) {
	tr, serverConn := lsptest.PipePair()
	serverFramer := rpc.NewFramer(serverConn)

	done := make(chan struct{})
	go func() {
		defer close(done)
		serveInitializeHandshake(t, serverFramer)
	}()

	composer := capability.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := New(ctx, []transport.Transport{tr}, composer)
	require.NoError(t, err)
	<-done

	assert.Equal(t, StateRunning, s.State())
	assert.NotNil(t, s.Surface())
	assert.Equal(t, 1, s.Pool().Len())
}

func TestNewSessionFailsWhenBindingRejectsInitialize(t *testing.T) {
	tr, serverConn := lsptest.PipePair()
	serverFramer := rpc.NewFramer(serverConn)

	done := make(chan struct{})
	go func() {
		defer close(done)
		raw, err := serverFramer.ReadFrame()
		require.NoError(t, err)
		msg, err := rpc.Decode(raw)
		require.NoError(t, err)
		body, err := rpc.EncodeResponse(json.RawMessage(`"`+msg.ID+`"`), nil, &rpc.RPCError{Code: rpc.CodeInternalError, Message: "boom"})
		require.NoError(t, err)
		require.NoError(t, serverFramer.WriteFrame(body))
	}()

	composer := capability.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := New(ctx, []transport.Transport{tr}, composer)
	<-done
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestSessionShutdownDrainsBindingsAndTerminates(t *testing.T) {
	tr, serverConn := lsptest.PipePair()
	serverFramer := rpc.NewFramer(serverConn)

	initDone := make(chan struct{})
	go func() {
		defer close(initDone)
		serveInitializeHandshake(t, serverFramer)
	}()

	composer := capability.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := New(ctx, []transport.Transport{tr}, composer)
	require.NoError(t, err)
	<-initDone

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		serveShutdownHandshake(t, serverFramer)
	}()

	require.NoError(t, s.Shutdown(context.Background()))
	<-shutdownDone

	assert.Equal(t, StateTerminated, s.State())
}

func TestSessionOperationsRejectedWhenNotRunning(t *testing.T) {
	s := &Session{state: StateShuttingDown}
	err := s.RequestWorkspaceScoped(context.Background(), "workspace/symbol", nil, nil)
	assert.Error(t, err)
}

// TestRequestDocumentScopedBracketsWithDidOpenAndDidClose is the S2-style
// end-to-end check: a document-scoped request reaching the wire must be
// preceded by didOpen for its URI and followed by didClose, with no other
// document-scoped traffic for that URI in between (§4.I, §5, Testable
// Property 3).
func TestRequestDocumentScopedBracketsWithDidOpenAndDidClose(t *testing.T) {
	tr, serverConn := lsptest.PipePair()
	serverFramer := rpc.NewFramer(serverConn)

	initDone := make(chan struct{})
	go func() {
		defer close(initDone)
		serveInitializeHandshake(t, serverFramer)
	}()

	composer := capability.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := New(ctx, []transport.Transport{tr}, composer)
	require.NoError(t, err)
	<-initDone

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.go")
	require.NoError(t, os.WriteFile(path, []byte("package p\n"), 0o644))
	docURI := uri.FromPath(path)

	var seenMethods []string
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)

		raw, err := serverFramer.ReadFrame()
		require.NoError(t, err)
		msg, err := rpc.Decode(raw)
		require.NoError(t, err)
		seenMethods = append(seenMethods, msg.Method)
		require.Equal(t, "textDocument/didOpen", msg.Method)

		raw, err = serverFramer.ReadFrame()
		require.NoError(t, err)
		msg, err = rpc.Decode(raw)
		require.NoError(t, err)
		seenMethods = append(seenMethods, msg.Method)
		require.Equal(t, "textDocument/hover", msg.Method)
		body, err := rpc.EncodeResponse(json.RawMessage(`"`+msg.ID+`"`), map[string]any{}, nil)
		require.NoError(t, err)
		require.NoError(t, serverFramer.WriteFrame(body))

		raw, err = serverFramer.ReadFrame()
		require.NoError(t, err)
		msg, err = rpc.Decode(raw)
		require.NoError(t, err)
		seenMethods = append(seenMethods, msg.Method)
		require.Equal(t, "textDocument/didClose", msg.Method)
	}()

	var result any
	err = s.RequestDocumentScoped(ctx, []string{docURI}, "textDocument/hover", map[string]any{}, &result)
	require.NoError(t, err)
	<-serverDone

	assert.Equal(t, []string{"textDocument/didOpen", "textDocument/hover", "textDocument/didClose"}, seenMethods)
}

// TestMultiBindingDocumentAffinityKeepsChangeTrafficOnSameBinding builds a
// two-binding session and checks that document-scoped notification traffic
// (didChange) lands on the same binding that received the document's
// didOpen, rather than fanning out to every binding in the pool (§4.J).
func TestMultiBindingDocumentAffinityKeepsChangeTrafficOnSameBinding(t *testing.T) {
	tr1, conn1 := lsptest.PipePair()
	tr2, conn2 := lsptest.PipePair()
	framer1 := rpc.NewFramer(conn1)
	framer2 := rpc.NewFramer(conn2)

	initDone := make(chan struct{})
	go func() {
		defer close(initDone)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); serveInitializeHandshake(t, framer1) }()
		go func() { defer wg.Done(); serveInitializeHandshake(t, framer2) }()
		wg.Wait()
	}()

	composer := capability.New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := New(ctx, []transport.Transport{tr1, tr2}, composer)
	require.NoError(t, err)
	<-initDone
	require.Equal(t, 2, s.Pool().Len())

	var mu sync.Mutex
	var log []string // "b1:method" / "b2:method" in arrival order

	serve := func(label string, framer *rpc.Framer) {
		for {
			raw, err := framer.ReadFrame()
			if err != nil {
				return
			}
			msg, err := rpc.Decode(raw)
			if err != nil {
				return
			}
			mu.Lock()
			log = append(log, label+":"+msg.Method)
			mu.Unlock()
			if msg.Method == "textDocument/hover" {
				body, encErr := rpc.EncodeResponse(json.RawMessage(`"`+msg.ID+`"`), map[string]any{}, nil)
				require.NoError(t, encErr)
				require.NoError(t, framer.WriteFrame(body))
			}
		}
	}
	go serve("b1", framer1)
	go serve("b2", framer2)

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.go")
	require.NoError(t, os.WriteFile(path, []byte("package p\n"), 0o644))
	docURI := uri.FromPath(path)

	var result any
	require.NoError(t, s.RequestDocumentScoped(ctx, []string{docURI}, "textDocument/hover", map[string]any{}, &result))
	require.NoError(t, s.NotifyDocumentScoped([]string{docURI}, "textDocument/didChange", map[string]any{}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(log) >= 4
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	var owner string
	for _, e := range log {
		if strings.HasSuffix(e, ":textDocument/didOpen") {
			owner = e[:2]
		}
	}
	require.NotEmpty(t, owner, "expected didOpen to have landed on exactly one binding")

	sawChange := false
	for _, e := range log {
		if strings.HasSuffix(e, ":textDocument/didChange") {
			sawChange = true
			assert.Equal(t, owner, e[:2], "didChange must land on the same binding that opened the document")
		}
	}
	assert.True(t, sawChange, "expected didChange to have been observed on some binding")

	_ = conn1.Close()
	_ = conn2.Close()
}
