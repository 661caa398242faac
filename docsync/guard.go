// Package docsync implements the Document Sync Guard (§4.I): reference
// counted didOpen/didClose bracketing around scoped operations, grounded on
// original_source's sync_file context manager in client/base.py.
package docsync

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/myleshyson/lsprotocol-go/protocol"

	"github.com/observerw/lsp-client/lsperr"
	"github.com/observerw/lsp-client/uri"
)

// Notifier is the minimal surface the guard needs from a binding: sending
// didOpen/didClose notifications. Kept narrow so the guard has no
// dependency on client.Binding directly, per the ownership boundary in
// SPEC_FULL.md §3 ("a binding exclusively owns ... its sync entries").
type Notifier interface {
	SendNotification(ctx context.Context, method string, params any) error
}

type entry struct {
	openCount  int
	version    int32
	inFlight   sync.WaitGroup
	languageID protocol.LanguageKind

	// closing is non-nil while this entry's didClose is being sent (after
	// the 1->0 transition, until the notification round trip completes and
	// the entry is removed from the map). A concurrent open() for the same
	// URI must wait on it rather than create a fresh entry, or its didOpen
	// could reach the wire before, or interleaved with, the still-pending
	// didClose (§4.I, Testable Property 3).
	closing chan struct{}
}

// Guard tracks open documents for one binding.
type Guard struct {
	notifier Notifier

	mu      sync.Mutex
	entries map[string]*entry
}

func New(notifier Notifier) *Guard {
	return &Guard{notifier: notifier, entries: make(map[string]*entry)}
}

// LanguageDetector maps a host path to the LSP language identifier used in
// didOpen; feature modules or the caller supply this since the core does
// not hardcode a language table.
type LanguageDetector func(path string) protocol.LanguageKind

var DefaultLanguageDetector LanguageDetector = func(path string) protocol.LanguageKind {
	return protocol.LanguageKind("plaintext")
}

// WithDocuments opens every unique path (incrementing its ref count, and
// emitting didOpen on the 0→1 transition), runs body, then decrements and
// emits didClose on the 1→0 transition. body receives the resolved URIs in
// the same order as paths.
func (g *Guard) WithDocuments(ctx context.Context, paths []string, detect LanguageDetector, body func(uris []string) error) error {
	if detect == nil {
		detect = DefaultLanguageDetector
	}

	uris := make([]string, len(paths))
	opened := make([]string, 0, len(paths))

	for i, p := range paths {
		u, err := g.open(ctx, p, detect)
		if err != nil {
			g.closeAll(ctx, opened)
			return err
		}
		uris[i] = u
		opened = append(opened, u)
	}

	// body's execution window is tracked per-entry so a concurrent close
	// from an overlapping WithDocuments call waits for it to drain before
	// emitting didClose, satisfying the strict-ordering requirement in
	// §4.I / §5. Release happens before this call's own closeAll so a
	// call that is itself the last closer never waits on its own window.
	for _, u := range opened {
		g.mu.Lock()
		if e, ok := g.entries[u]; ok {
			e.inFlight.Add(1)
		}
		g.mu.Unlock()
	}

	err := body(uris)

	for _, u := range opened {
		g.mu.Lock()
		if e, ok := g.entries[u]; ok {
			e.inFlight.Done()
		}
		g.mu.Unlock()
	}

	g.closeAll(ctx, opened)
	return err
}

func (g *Guard) open(ctx context.Context, path string, detect LanguageDetector) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", lsperr.New(lsperr.FileNotFound, "", fmt.Errorf("read %s: %w", path, err))
	}
	u := uri.FromPath(path)

	var e *entry
	var firstOpen bool
	var version int32
	for {
		g.mu.Lock()
		existing, ok := g.entries[u]
		if ok && existing.closing != nil {
			wait := existing.closing
			g.mu.Unlock()
			<-wait
			continue
		}
		if !ok {
			existing = &entry{languageID: detect(path)}
			g.entries[u] = existing
		}
		existing.openCount++
		e = existing
		firstOpen = e.openCount == 1
		version = e.version
		g.mu.Unlock()
		break
	}

	if firstOpen {
		params := protocol.DidOpenTextDocumentParams{
			TextDocument: protocol.TextDocumentItem{
				Uri:        protocol.DocumentUri(u),
				LanguageId: e.languageID,
				Version:    version,
				Text:       string(data),
			},
		}
		if err := g.notifier.SendNotification(ctx, "textDocument/didOpen", params); err != nil {
			g.mu.Lock()
			e.openCount--
			g.mu.Unlock()
			return "", err
		}
	}
	return u, nil
}

func (g *Guard) closeAll(ctx context.Context, uris []string) {
	for _, u := range uris {
		g.close(ctx, u)
	}
}

func (g *Guard) close(ctx context.Context, u string) {
	g.mu.Lock()
	e, ok := g.entries[u]
	if !ok {
		g.mu.Unlock()
		return
	}
	e.openCount--
	lastClose := e.openCount == 0
	if lastClose {
		// Pin the entry in place instead of deleting it here: a racing
		// open() for u must block on e.closing rather than fabricate a new
		// entry and fire didOpen while this didClose is still in flight.
		e.closing = make(chan struct{})
	}
	g.mu.Unlock()

	if !lastClose {
		return
	}

	// Wait for any in-flight scoped operations referencing u before
	// emitting didClose, so didClose strictly follows completion (§4.I).
	e.inFlight.Wait()

	params := protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(u)},
	}
	_ = g.notifier.SendNotification(ctx, "textDocument/didClose", params)

	g.mu.Lock()
	delete(g.entries, u)
	g.mu.Unlock()
	close(e.closing)
}

// OpenCount reports the current reference count for a URI, for tests.
func (g *Guard) OpenCount(u string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.entries[u]; ok {
		return e.openCount
	}
	return 0
}
