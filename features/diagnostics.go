package features

import (
	"context"
	"encoding/json"

	"github.com/myleshyson/lsprotocol-go/protocol"

	"github.com/observerw/lsp-client/capability"
)

// Diagnostics exposes the pull-model diagnostic requests added in LSP 3.17
// (textDocument/diagnostic, workspace/diagnostic), grounded on
// lsp/methods.go's DocumentDiagnostics/WorkspaceDiagnostic.
type Diagnostics struct{}

func (Diagnostics) Name() string                  { return "diagnostics" }
func (Diagnostics) Category() capability.Category { return capability.CategoryTextDocument }
func (Diagnostics) Methods() []string {
	return []string{"textDocument/diagnostic", "workspace/diagnostic"}
}
func (Diagnostics) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureTextDocument(c)
	c.TextDocument.Diagnostic = &protocol.DiagnosticClientCapabilities{}
}
func (Diagnostics) CheckServerCaps(c *protocol.ServerCapabilities) error {
	if c.DiagnosticProvider == nil {
		return unsupported("diagnostics", "textDocument/diagnostic")
	}
	return nil
}
func (Diagnostics) Bind(*capability.Binder) {}

func RequestDocumentDiagnostics(ctx context.Context, r Requester, uri, identifier, previousResultID string) (*protocol.DocumentDiagnosticReport, error) {
	params := protocol.DocumentDiagnosticParams{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)},
	}
	if identifier != "" {
		params.Identifier = identifier
	}
	if previousResultID != "" {
		params.PreviousResultId = previousResultID
	}
	var result protocol.DocumentDiagnosticReport
	if err := r.RequestDocumentScoped(ctx, []string{uri}, "textDocument/diagnostic", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func RequestWorkspaceDiagnostics(ctx context.Context, r Requester, identifier string) (*protocol.WorkspaceDiagnosticReport, error) {
	params := protocol.WorkspaceDiagnosticParams{
		Identifier:        identifier,
		PreviousResultIds: []protocol.PreviousResultId{},
	}
	var result protocol.WorkspaceDiagnosticReport
	if err := r.RequestWorkspaceScoped(ctx, "workspace/diagnostic", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PublishedDiagnostics receives server-pushed textDocument/publishDiagnostics
// notifications, the complement to the pull model above. Kept as a separate
// feature since a server may support one, the other, or both.
type PublishedDiagnostics struct {
	handler func(protocol.PublishDiagnosticsParams)
}

func NewPublishedDiagnostics(handler func(protocol.PublishDiagnosticsParams)) *PublishedDiagnostics {
	return &PublishedDiagnostics{handler: handler}
}

func (f *PublishedDiagnostics) Name() string                  { return "publishedDiagnostics" }
func (f *PublishedDiagnostics) Category() capability.Category { return capability.CategoryTextDocument }
func (f *PublishedDiagnostics) Methods() []string {
	return []string{"textDocument/publishDiagnostics"}
}
func (f *PublishedDiagnostics) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureTextDocument(c)
	c.TextDocument.PublishDiagnostics = &protocol.PublishDiagnosticsClientCapabilities{}
}
func (f *PublishedDiagnostics) CheckServerCaps(*protocol.ServerCapabilities) error { return nil }
func (f *PublishedDiagnostics) Bind(b *capability.Binder) {
	_ = b.Registry.OnNotification("textDocument/publishDiagnostics", func(ctx context.Context, raw json.RawMessage) {
		if f.handler == nil {
			return
		}
		var params protocol.PublishDiagnosticsParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return
		}
		f.handler(params)
	})
}
