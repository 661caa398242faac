package features

import (
	"context"

	"github.com/myleshyson/lsprotocol-go/protocol"

	"github.com/observerw/lsp-client/capability"
)

// FoldingRange exposes textDocument/foldingRange.
type FoldingRange struct{}

func (FoldingRange) Name() string                  { return "foldingRange" }
func (FoldingRange) Category() capability.Category { return capability.CategoryTextDocument }
func (FoldingRange) Methods() []string             { return []string{"textDocument/foldingRange"} }
func (FoldingRange) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureTextDocument(c)
	c.TextDocument.FoldingRange = &protocol.FoldingRangeClientCapabilities{}
}
func (FoldingRange) CheckServerCaps(c *protocol.ServerCapabilities) error {
	if c.FoldingRangeProvider == nil {
		return unsupported("foldingRange", "textDocument/foldingRange")
	}
	return nil
}
func (FoldingRange) Bind(*capability.Binder) {}

func RequestFoldingRange(ctx context.Context, r Requester, uri string) ([]protocol.FoldingRange, error) {
	params := protocol.FoldingRangeParams{TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)}}
	var result []protocol.FoldingRange
	if err := r.RequestDocumentScoped(ctx, []string{uri}, "textDocument/foldingRange", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// SelectionRange exposes textDocument/selectionRange.
type SelectionRange struct{}

func (SelectionRange) Name() string                  { return "selectionRange" }
func (SelectionRange) Category() capability.Category { return capability.CategoryTextDocument }
func (SelectionRange) Methods() []string             { return []string{"textDocument/selectionRange"} }
func (SelectionRange) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureTextDocument(c)
	c.TextDocument.SelectionRange = &protocol.SelectionRangeClientCapabilities{}
}
func (SelectionRange) CheckServerCaps(c *protocol.ServerCapabilities) error {
	if c.SelectionRangeProvider == nil {
		return unsupported("selectionRange", "textDocument/selectionRange")
	}
	return nil
}
func (SelectionRange) Bind(*capability.Binder) {}

func RequestSelectionRange(ctx context.Context, r Requester, uri string, positions []protocol.Position) ([]protocol.SelectionRange, error) {
	params := protocol.SelectionRangeParams{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)},
		Positions:    positions,
	}
	var result []protocol.SelectionRange
	if err := r.RequestDocumentScoped(ctx, []string{uri}, "textDocument/selectionRange", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DocumentLink exposes textDocument/documentLink.
type DocumentLink struct{}

func (DocumentLink) Name() string                  { return "documentLink" }
func (DocumentLink) Category() capability.Category { return capability.CategoryTextDocument }
func (DocumentLink) Methods() []string             { return []string{"textDocument/documentLink"} }
func (DocumentLink) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureTextDocument(c)
	c.TextDocument.DocumentLink = &protocol.DocumentLinkClientCapabilities{}
}
func (DocumentLink) CheckServerCaps(c *protocol.ServerCapabilities) error {
	if c.DocumentLinkProvider == nil {
		return unsupported("documentLink", "textDocument/documentLink")
	}
	return nil
}
func (DocumentLink) Bind(*capability.Binder) {}

func RequestDocumentLink(ctx context.Context, r Requester, uri string) ([]protocol.DocumentLink, error) {
	params := protocol.DocumentLinkParams{TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)}}
	var result []protocol.DocumentLink
	if err := r.RequestDocumentScoped(ctx, []string{uri}, "textDocument/documentLink", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DocumentColor exposes textDocument/documentColor and its companion
// textDocument/colorPresentation, grounded on lsp/methods.go's pair.
type DocumentColor struct{}

func (DocumentColor) Name() string                  { return "documentColor" }
func (DocumentColor) Category() capability.Category { return capability.CategoryTextDocument }
func (DocumentColor) Methods() []string {
	return []string{"textDocument/documentColor", "textDocument/colorPresentation"}
}
func (DocumentColor) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureTextDocument(c)
	c.TextDocument.ColorProvider = &protocol.DocumentColorClientCapabilities{}
}
func (DocumentColor) CheckServerCaps(c *protocol.ServerCapabilities) error {
	if c.ColorProvider == nil {
		return unsupported("documentColor", "textDocument/documentColor")
	}
	return nil
}
func (DocumentColor) Bind(*capability.Binder) {}

func RequestDocumentColor(ctx context.Context, r Requester, uri string) ([]protocol.ColorInformation, error) {
	params := protocol.DocumentColorParams{TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)}}
	var result []protocol.ColorInformation
	if err := r.RequestDocumentScoped(ctx, []string{uri}, "textDocument/documentColor", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func RequestColorPresentation(ctx context.Context, r Requester, uri string, color protocol.Color, rng protocol.Range) ([]protocol.ColorPresentation, error) {
	params := protocol.ColorPresentationParams{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)},
		Color:        color,
		Range:        rng,
	}
	var result []protocol.ColorPresentation
	if err := r.RequestDocumentScoped(ctx, []string{uri}, "textDocument/colorPresentation", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
