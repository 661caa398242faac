package features

import (
	"context"
	"encoding/json"

	"github.com/myleshyson/lsprotocol-go/protocol"

	"github.com/observerw/lsp-client/capability"
)

// Formatting exposes textDocument/formatting, grounded on lsp/methods.go's
// Formatting.
type Formatting struct{}

func (Formatting) Name() string                  { return "formatting" }
func (Formatting) Category() capability.Category { return capability.CategoryTextDocument }
func (Formatting) Methods() []string             { return []string{"textDocument/formatting"} }
func (Formatting) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureTextDocument(c)
	c.TextDocument.Formatting = &protocol.DocumentFormattingClientCapabilities{}
}
func (Formatting) CheckServerCaps(c *protocol.ServerCapabilities) error {
	if c.DocumentFormattingProvider == nil {
		return unsupported("formatting", "textDocument/formatting")
	}
	return nil
}
func (Formatting) Bind(*capability.Binder) {}

func RequestFormatting(ctx context.Context, r Requester, uri string, tabSize uint32, insertSpaces bool) ([]protocol.TextEdit, error) {
	params := protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)},
		Options: protocol.FormattingOptions{
			TabSize:      tabSize,
			InsertSpaces: insertSpaces,
		},
	}
	var result []protocol.TextEdit
	if err := r.RequestDocumentScoped(ctx, []string{uri}, "textDocument/formatting", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// RangeFormatting exposes textDocument/rangeFormatting.
type RangeFormatting struct{}

func (RangeFormatting) Name() string                  { return "rangeFormatting" }
func (RangeFormatting) Category() capability.Category { return capability.CategoryTextDocument }
func (RangeFormatting) Methods() []string             { return []string{"textDocument/rangeFormatting"} }
func (RangeFormatting) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureTextDocument(c)
	c.TextDocument.RangeFormatting = &protocol.DocumentRangeFormattingClientCapabilities{}
}
func (RangeFormatting) CheckServerCaps(c *protocol.ServerCapabilities) error {
	if c.DocumentRangeFormattingProvider == nil {
		return unsupported("rangeFormatting", "textDocument/rangeFormatting")
	}
	return nil
}
func (RangeFormatting) Bind(*capability.Binder) {}

func RequestRangeFormatting(ctx context.Context, r Requester, uri string, rng protocol.Range, tabSize uint32, insertSpaces bool) ([]protocol.TextEdit, error) {
	params := protocol.DocumentRangeFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)},
		Range:        rng,
		Options: protocol.FormattingOptions{
			TabSize:      tabSize,
			InsertSpaces: insertSpaces,
		},
	}
	var result []protocol.TextEdit
	if err := r.RequestDocumentScoped(ctx, []string{uri}, "textDocument/rangeFormatting", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Rename exposes textDocument/rename and its optional textDocument/prepareRename
// preflight, grounded on lsp/methods.go's Rename/PrepareRename pair.
type Rename struct {
	prepareSupport bool
}

func (r *Rename) Name() string                  { return "rename" }
func (r *Rename) Category() capability.Category { return capability.CategoryTextDocument }
func (r *Rename) Methods() []string {
	return []string{"textDocument/rename", "textDocument/prepareRename"}
}
func (r *Rename) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureTextDocument(c)
	c.TextDocument.Rename = &protocol.RenameClientCapabilities{PrepareSupport: true}
}
func (r *Rename) CheckServerCaps(c *protocol.ServerCapabilities) error {
	if c.RenameProvider == nil {
		return unsupported("rename", "textDocument/rename")
	}
	if opts, ok := c.RenameProvider.Value.(protocol.RenameOptions); ok {
		r.prepareSupport = opts.PrepareProvider
	}
	return nil
}
func (r *Rename) Bind(*capability.Binder) {}

func RequestRename(ctx context.Context, r Requester, uri string, line, character uint32, newName string) (*protocol.WorkspaceEdit, error) {
	params := protocol.RenameParams{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)},
		Position:     protocol.Position{Line: line, Character: character},
		NewName:      newName,
	}
	var result *protocol.WorkspaceEdit
	if err := r.RequestDocumentScoped(ctx, []string{uri}, "textDocument/rename", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func PrepareRename(ctx context.Context, r Requester, uri string, line, character uint32) (*protocol.PrepareRenameResult, error) {
	params := protocol.PrepareRenameParams{
		TextDocument: protocol.TextDocumentIdentifier{Uri: protocol.DocumentUri(uri)},
		Position:     protocol.Position{Line: line, Character: character},
	}
	var result *protocol.PrepareRenameResult
	if err := r.RequestDocumentScoped(ctx, []string{uri}, "textDocument/prepareRename", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ExecuteCommand exposes workspace/executeCommand, grounded on
// lsp/methods.go's ExecuteCommand (raw json.RawMessage result, since a
// command's return shape is server-defined).
type ExecuteCommand struct{}

func (ExecuteCommand) Name() string                  { return "executeCommand" }
func (ExecuteCommand) Category() capability.Category { return capability.CategoryWorkspace }
func (ExecuteCommand) Methods() []string             { return []string{"workspace/executeCommand"} }
func (ExecuteCommand) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureWorkspace(c)
	c.Workspace.ExecuteCommand = &protocol.ExecuteCommandClientCapabilities{}
}
func (ExecuteCommand) CheckServerCaps(c *protocol.ServerCapabilities) error {
	if c.ExecuteCommandProvider == nil {
		return unsupported("executeCommand", "workspace/executeCommand")
	}
	return nil
}
func (ExecuteCommand) Bind(*capability.Binder) {}

func RequestExecuteCommand(ctx context.Context, r Requester, command string, arguments []any) (json.RawMessage, error) {
	params := protocol.ExecuteCommandParams{
		Command:   command,
		Arguments: arguments,
	}
	var result json.RawMessage
	if err := r.RequestWorkspaceScoped(ctx, "workspace/executeCommand", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}
