// Package features ships the concrete capability fragments (§4.M): one
// Go type per LSP concern, each implementing capability.Feature. Grounded
// on the teacher's method implementations in lsp/methods.go (request
// shapes, timeouts, null-response handling) and on original_source's
// per-capability Protocol split (one file per concern under
// capability/request/, capability/notification/, capability/server_request/).
package features

import (
	"context"
	"time"

	"github.com/myleshyson/lsprotocol-go/protocol"

	"github.com/observerw/lsp-client/capability"
	"github.com/observerw/lsp-client/session"
)

// Requester is the subset of Session a feature's operations need to issue
// calls; kept narrow to avoid a features->session->features import cycle
// concern and to make each operation's dependency explicit.
type Requester interface {
	RequestDocumentScoped(ctx context.Context, uris []string, method string, params, result any) error
	RequestWorkspaceScoped(ctx context.Context, method string, params, result any) error
	NotifyDocumentScoped(uris []string, method string, params any) error
	Broadcast(method string, params any) error
}

var _ Requester = (*session.Session)(nil)

// TextDocumentSync contributes the synchronization client capability for
// didOpen/didChange/didClose/didSave. The composer does not attach it on its
// own, and the Document Sync Guard sends didOpen/didClose whether or not it
// is attached. Unlike every other feature here it does not gate on a server
// capability flag: CheckServerCaps accepts every server without inspecting
// the negotiated TextDocumentSync value, and NotifyDidChange sends whatever
// change events the caller builds, whole-document or incremental; sync is
// assumed supported by any spec-conformant server.
type TextDocumentSync struct {
	fullSync bool // set to true by every CheckServerCaps call; nothing reads it
}

func NewTextDocumentSync() *TextDocumentSync { return &TextDocumentSync{} }

func (f *TextDocumentSync) Name() string          { return "textDocumentSync" }
func (f *TextDocumentSync) Category() capability.Category { return capability.CategoryTextDocument }
func (f *TextDocumentSync) Methods() []string {
	return []string{
		"textDocument/didOpen",
		"textDocument/didChange",
		"textDocument/didClose",
		"textDocument/didSave",
	}
}

func (f *TextDocumentSync) FillClientCaps(caps *protocol.ClientCapabilities) {
	ensureTextDocument(caps)
	caps.TextDocument.Synchronization = &protocol.TextDocumentSyncClientCapabilities{
		DidSave: true,
	}
}

func (f *TextDocumentSync) CheckServerCaps(caps *protocol.ServerCapabilities) error {
	// Sync is not optional in the protocol; a server that omits it still
	// gets full-document sync by default per the spec's fallback rule.
	f.fullSync = true
	return nil
}

func (f *TextDocumentSync) Bind(b *capability.Binder) {}

// NotifyDidChange sends changes for an already-open document; callers build
// the change set (whole-document or incremental) themselves, per the
// teacher's DidChange, which takes the change slice as-is rather than
// interpreting it (§4.I: "callers needing live edits use the explicit
// notify_did_change operation"). Routed to the single binding holding uri's
// affinity (§4.J) rather than broadcast, since only the binding that
// received the matching didOpen tracks this document's state.
func NotifyDidChange(ctx context.Context, r Requester, uri string, version int32, changes []protocol.TextDocumentContentChangeEvent) error {
	params := protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			Uri:     protocol.DocumentUri(uri),
			Version: version,
		},
		ContentChanges: changes,
	}
	return r.NotifyDocumentScoped([]string{uri}, "textDocument/didChange", params)
}

// NotifyDidSave sends textDocument/didSave, including the saved text when
// text is non-nil (it does not check whether the server asked for
// IncludeText), following the teacher's
// map-based optional-field construction. Routed by document affinity like
// NotifyDidChange, for the same reason.
func NotifyDidSave(ctx context.Context, r Requester, uri string, text *string) error {
	params := map[string]any{
		"textDocument": map[string]any{"uri": uri},
	}
	if text != nil {
		params["text"] = *text
	}
	return r.NotifyDocumentScoped([]string{uri}, "textDocument/didSave", params)
}

func boolPtr(b bool) *bool { return &b }

// defaultTimeout mirrors the per-operation timeouts lsp/methods.go hardcodes
// (10s for cheap lookups, 30-60s for search-shaped requests); operations in
// this package accept a context instead so callers own the deadline, and
// no code in this package reads this constant.
const defaultTimeout = 30 * time.Second
