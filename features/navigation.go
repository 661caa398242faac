package features

import (
	"context"
	"fmt"

	"github.com/myleshyson/lsprotocol-go/protocol"

	"github.com/observerw/lsp-client/capability"
)

// Hover exposes textDocument/hover, grounded on lsp/methods.go's Hover
// (null-response handling: a server with no hover info returns nil, nil).
type Hover struct{}

func (Hover) Name() string                     { return "hover" }
func (Hover) Category() capability.Category    { return capability.CategoryTextDocument }
func (Hover) Methods() []string                { return []string{"textDocument/hover"} }
func (Hover) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureTextDocument(c)
	c.TextDocument.Hover = &protocol.HoverClientCapabilities{
		ContentFormat: []protocol.MarkupKind{protocol.MarkupKindMarkdown, protocol.MarkupKindPlainText},
	}
}
func (Hover) CheckServerCaps(c *protocol.ServerCapabilities) error {
	if c.HoverProvider == nil {
		return unsupported("hover", "textDocument/hover")
	}
	return nil
}
func (Hover) Bind(*capability.Binder) {}

// RequestHover asks the server for hover information at a position; a nil
// result (both return values nil) means the server had nothing to say.
func RequestHover(ctx context.Context, r Requester, uri string, line, character uint32) (*protocol.Hover, error) {
	params := protocol.HoverParams{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)},
		Position:     protocol.Position{Line: line, Character: character},
	}
	var result *protocol.Hover
	if err := r.RequestDocumentScoped(ctx, []string{uri}, "textDocument/hover", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Definition exposes textDocument/definition.
type Definition struct{}

func (Definition) Name() string                  { return "definition" }
func (Definition) Category() capability.Category { return capability.CategoryTextDocument }
func (Definition) Methods() []string             { return []string{"textDocument/definition"} }
func (Definition) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureTextDocument(c)
	c.TextDocument.Definition = &protocol.DefinitionClientCapabilities{LinkSupport: true}
}
func (Definition) CheckServerCaps(c *protocol.ServerCapabilities) error {
	if c.DefinitionProvider == nil {
		return unsupported("definition", "textDocument/definition")
	}
	return nil
}
func (Definition) Bind(*capability.Binder) {}

func RequestDefinition(ctx context.Context, r Requester, uri string, line, character uint32) ([]protocol.Or2[protocol.LocationLink, protocol.Location], error) {
	params := protocol.DefinitionParams{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)},
		Position:     protocol.Position{Line: line, Character: character},
	}
	var result []protocol.Or2[protocol.LocationLink, protocol.Location]
	if err := r.RequestDocumentScoped(ctx, []string{uri}, "textDocument/definition", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// References exposes textDocument/references.
type References struct{}

func (References) Name() string                  { return "references" }
func (References) Category() capability.Category { return capability.CategoryTextDocument }
func (References) Methods() []string             { return []string{"textDocument/references"} }
func (References) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureTextDocument(c)
	c.TextDocument.References = &protocol.ReferenceClientCapabilities{}
}
func (References) CheckServerCaps(c *protocol.ServerCapabilities) error {
	if c.ReferencesProvider == nil {
		return unsupported("references", "textDocument/references")
	}
	return nil
}
func (References) Bind(*capability.Binder) {}

func RequestReferences(ctx context.Context, r Requester, uri string, line, character uint32, includeDeclaration bool) ([]protocol.Location, error) {
	params := protocol.ReferenceParams{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)},
		Position:     protocol.Position{Line: line, Character: character},
		Context:      protocol.ReferenceContext{IncludeDeclaration: includeDeclaration},
	}
	var result []protocol.Location
	if err := r.RequestDocumentScoped(ctx, []string{uri}, "textDocument/references", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DocumentSymbols exposes textDocument/documentSymbol.
type DocumentSymbols struct{}

func (DocumentSymbols) Name() string                  { return "documentSymbols" }
func (DocumentSymbols) Category() capability.Category { return capability.CategoryTextDocument }
func (DocumentSymbols) Methods() []string             { return []string{"textDocument/documentSymbol"} }
func (DocumentSymbols) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureTextDocument(c)
	c.TextDocument.DocumentSymbol = &protocol.DocumentSymbolClientCapabilities{HierarchicalDocumentSymbolSupport: true}
}
func (DocumentSymbols) CheckServerCaps(c *protocol.ServerCapabilities) error {
	if c.DocumentSymbolProvider == nil {
		return unsupported("documentSymbols", "textDocument/documentSymbol")
	}
	return nil
}
func (DocumentSymbols) Bind(*capability.Binder) {}

func RequestDocumentSymbols(ctx context.Context, r Requester, uri string) ([]protocol.DocumentSymbol, error) {
	params := protocol.DocumentSymbolParams{TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)}}
	var result []protocol.DocumentSymbol
	if err := r.RequestDocumentScoped(ctx, []string{uri}, "textDocument/documentSymbol", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// WorkspaceSymbols exposes workspace/symbol.
type WorkspaceSymbols struct{}

func (WorkspaceSymbols) Name() string                  { return "workspaceSymbols" }
func (WorkspaceSymbols) Category() capability.Category { return capability.CategoryWorkspace }
func (WorkspaceSymbols) Methods() []string             { return []string{"workspace/symbol"} }
func (WorkspaceSymbols) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureWorkspace(c)
	c.Workspace.Symbol = &protocol.WorkspaceSymbolClientCapabilities{}
}
func (WorkspaceSymbols) CheckServerCaps(c *protocol.ServerCapabilities) error {
	if c.WorkspaceSymbolProvider == nil {
		return unsupported("workspaceSymbols", "workspace/symbol")
	}
	return nil
}
func (WorkspaceSymbols) Bind(*capability.Binder) {}

func RequestWorkspaceSymbols(ctx context.Context, r Requester, query string) ([]protocol.WorkspaceSymbol, error) {
	params := protocol.WorkspaceSymbolParams{Query: query}
	var result []protocol.WorkspaceSymbol
	if err := r.RequestWorkspaceScoped(ctx, "workspace/symbol", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CallHierarchy exposes prepareCallHierarchy plus the two follow-up
// requests, grounded on lsp/methods.go's PrepareCallHierarchy/
// IncomingCalls/OutgoingCalls trio.
type CallHierarchy struct{}

func (CallHierarchy) Name() string                  { return "callHierarchy" }
func (CallHierarchy) Category() capability.Category { return capability.CategoryTextDocument }
func (CallHierarchy) Methods() []string {
	return []string{
		"textDocument/prepareCallHierarchy",
		"callHierarchy/incomingCalls",
		"callHierarchy/outgoingCalls",
	}
}
func (CallHierarchy) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureTextDocument(c)
	c.TextDocument.CallHierarchy = &protocol.CallHierarchyClientCapabilities{}
}
func (CallHierarchy) CheckServerCaps(c *protocol.ServerCapabilities) error {
	if c.CallHierarchyProvider == nil {
		return unsupported("callHierarchy", "textDocument/prepareCallHierarchy")
	}
	return nil
}
func (CallHierarchy) Bind(*capability.Binder) {}

func PrepareCallHierarchy(ctx context.Context, r Requester, uri string, line, character uint32) ([]protocol.CallHierarchyItem, error) {
	params := protocol.CallHierarchyPrepareParams{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)},
		Position:     protocol.Position{Line: line, Character: character},
	}
	var result []protocol.CallHierarchyItem
	if err := r.RequestDocumentScoped(ctx, []string{uri}, "textDocument/prepareCallHierarchy", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func IncomingCalls(ctx context.Context, r Requester, item protocol.CallHierarchyItem) ([]protocol.CallHierarchyIncomingCall, error) {
	params := protocol.CallHierarchyIncomingCallsParams{Item: item}
	var result []protocol.CallHierarchyIncomingCall
	if err := r.RequestWorkspaceScoped(ctx, "callHierarchy/incomingCalls", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func OutgoingCalls(ctx context.Context, r Requester, item protocol.CallHierarchyItem) ([]protocol.CallHierarchyOutgoingCall, error) {
	params := protocol.CallHierarchyOutgoingCallsParams{Item: item}
	var result []protocol.CallHierarchyOutgoingCall
	if err := r.RequestWorkspaceScoped(ctx, "callHierarchy/outgoingCalls", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func ensureTextDocument(c *protocol.ClientCapabilities) {
	if c.TextDocument == nil {
		c.TextDocument = &protocol.TextDocumentClientCapabilities{}
	}
}

func ensureWorkspace(c *protocol.ClientCapabilities) {
	if c.Workspace == nil {
		c.Workspace = &protocol.WorkspaceClientCapabilities{}
	}
}

func unsupported(feature, method string) error {
	return fmt.Errorf("server did not advertise %s", method)
}
