// Package mcptools adapts the teacher's mcpserver/tools/*.go pattern (one
// mcp.NewTool + server.ToolHandlerFunc pair per LSP operation, registered
// through a ToolServer) into a single registration loop driven by the
// capability surface a session actually negotiated: an operation only gets
// a tool if the composer validated the feature that owns it, so an agent
// talking to this MCP server never sees a tool it cannot actually call.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/observerw/lsp-client/features"
	"github.com/observerw/lsp-client/session"
)

// ToolServer is the subset of *server.MCPServer this package needs,
// mirroring the teacher's own ToolServer parameter type so tests can supply
// a fake without spinning up a real MCP server.
type ToolServer interface {
	AddTool(tool mcp.Tool, handler server.ToolHandlerFunc)
}

// Register installs one MCP tool per LSP operation whose owning feature
// validated against the connected server(s), reading s.Surface() to decide
// which of the tools below actually get registered.
func Register(mcpServer ToolServer, s *session.Session, progress *features.Progress) {
	registerIfValidated(mcpServer, s, "hover", hoverTool)
	registerIfValidated(mcpServer, s, "definition", definitionTool)
	registerIfValidated(mcpServer, s, "references", referencesTool)
	registerIfValidated(mcpServer, s, "documentSymbols", documentSymbolsTool)
	registerIfValidated(mcpServer, s, "workspaceSymbols", workspaceSymbolsTool)
	registerIfValidated(mcpServer, s, "formatting", formattingTool)
	registerIfValidated(mcpServer, s, "rename", renameTool)
	registerIfValidated(mcpServer, s, "executeCommand", executeCommandTool)
	registerIfValidated(mcpServer, s, "diagnostics", documentDiagnosticsTool)
	registerIfValidated(mcpServer, s, "diagnostics", workspaceDiagnosticsTool)
	registerIfValidated(mcpServer, s, "foldingRange", foldingRangeTool)
	registerIfValidated(mcpServer, s, "callHierarchy", callHierarchyTool)

	if progress != nil {
		mcpServer.AddTool(lspStatusTool(progress))
	}
}

// registerIfValidated adds the tool build returns only if featureName
// survived the composer's capability validation for this session.
func registerIfValidated(mcpServer ToolServer, s *session.Session, featureName string, build func(*session.Session) (mcp.Tool, server.ToolHandlerFunc)) {
	if _, err := s.Surface().Feature(featureName); err != nil {
		return
	}
	mcpServer.AddTool(build(s))
}

func hoverTool(s *session.Session) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("hover",
			mcp.WithDescription("Get hover information (textDocument/hover) for the symbol at a cursor position."),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("uri", mcp.Description("Document URI"), mcp.Required()),
			mcp.WithNumber("line", mcp.Description("Line number (0-based)"), mcp.Required(), mcp.Min(0)),
			mcp.WithNumber("character", mcp.Description("Character offset (0-based)"), mcp.Required(), mcp.Min(0)),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			uri, line, character, err := requirePosition(req)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			result, err := features.RequestHover(ctx, s, uri, line, character)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return textResult("hover", result)
		}
}

func definitionTool(s *session.Session) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("definition",
			mcp.WithDescription("Get definition location(s) for the symbol at a cursor position (textDocument/definition)."),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("uri", mcp.Description("Document URI"), mcp.Required()),
			mcp.WithNumber("line", mcp.Description("Line number (0-based)"), mcp.Required(), mcp.Min(0)),
			mcp.WithNumber("character", mcp.Description("Character offset (0-based)"), mcp.Required(), mcp.Min(0)),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			uri, line, character, err := requirePosition(req)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			result, err := features.RequestDefinition(ctx, s, uri, line, character)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return textResult("definition", result)
		}
}

func referencesTool(s *session.Session) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("references",
			mcp.WithDescription("Find references to the symbol at a cursor position (textDocument/references)."),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("uri", mcp.Description("Document URI"), mcp.Required()),
			mcp.WithNumber("line", mcp.Description("Line number (0-based)"), mcp.Required(), mcp.Min(0)),
			mcp.WithNumber("character", mcp.Description("Character offset (0-based)"), mcp.Required(), mcp.Min(0)),
			mcp.WithBoolean("include_declaration", mcp.Description("Include the declaration itself in the results")),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			uri, line, character, err := requirePosition(req)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			includeDecl := req.GetBool("include_declaration", false)
			result, err := features.RequestReferences(ctx, s, uri, line, character, includeDecl)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return textResult("references", result)
		}
}

func documentSymbolsTool(s *session.Session) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("document_symbols",
			mcp.WithDescription("List symbols declared in a document (textDocument/documentSymbol)."),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("uri", mcp.Description("Document URI"), mcp.Required()),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			uri, err := req.RequireString("uri")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			result, err := features.RequestDocumentSymbols(ctx, s, uri)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return textResult("document_symbols", result)
		}
}

func workspaceSymbolsTool(s *session.Session) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("workspace_symbols",
			mcp.WithDescription("Search workspace-wide symbols by name query (workspace/symbol)."),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("query", mcp.Description("Symbol name query"), mcp.Required()),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			query, err := req.RequireString("query")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			result, err := features.RequestWorkspaceSymbols(ctx, s, query)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return textResult("workspace_symbols", result)
		}
}

func formattingTool(s *session.Session) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("format_document",
			mcp.WithDescription("Format an entire document (textDocument/formatting)."),
			mcp.WithDestructiveHintAnnotation(true),
			mcp.WithString("uri", mcp.Description("Document URI"), mcp.Required()),
			mcp.WithNumber("tab_size", mcp.Description("Tab size"), mcp.DefaultNumber(4)),
			mcp.WithBoolean("insert_spaces", mcp.Description("Use spaces instead of tabs"), mcp.DefaultBool(true)),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			uri, err := req.RequireString("uri")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			tabSize := req.GetInt("tab_size", 4)
			insertSpaces := req.GetBool("insert_spaces", true)
			edits, err := features.RequestFormatting(ctx, s, uri, uint32(tabSize), insertSpaces)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return textResult("format_document", edits)
		}
}

func renameTool(s *session.Session) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("rename",
			mcp.WithDescription("Rename the symbol at a cursor position across the workspace (textDocument/rename)."),
			mcp.WithDestructiveHintAnnotation(true),
			mcp.WithString("uri", mcp.Description("Document URI"), mcp.Required()),
			mcp.WithNumber("line", mcp.Description("Line number (0-based)"), mcp.Required(), mcp.Min(0)),
			mcp.WithNumber("character", mcp.Description("Character offset (0-based)"), mcp.Required(), mcp.Min(0)),
			mcp.WithString("new_name", mcp.Description("Replacement identifier"), mcp.Required()),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			uri, line, character, err := requirePosition(req)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			newName, err := req.RequireString("new_name")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			edit, err := features.RequestRename(ctx, s, uri, line, character, newName)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return textResult("rename", edit)
		}
}

// executeCommandSchema documents the workspace/executeCommand payload the
// tool builds (a command identifier plus the arguments array parsed from
// "arguments_json"), generated once via invopop/jsonschema rather
// than hand-typed, and folded into the tool description so a client sees a
// concrete schema, not just prose.
var executeCommandSchema = mustSchemaJSON(struct {
	Command   string `json:"command" jsonschema_description:"LSP command identifier"`
	Arguments []any  `json:"arguments" jsonschema_description:"Command-specific arguments"`
}{})

func executeCommandTool(s *session.Session) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("execute_command",
			mcp.WithDescription("Execute a workspace command exposed by the language server (workspace/executeCommand). Effective payload shape:\n"+executeCommandSchema),
			mcp.WithDestructiveHintAnnotation(true),
			mcp.WithString("command", mcp.Description("LSP command identifier"), mcp.Required()),
			mcp.WithString("arguments_json", mcp.Description("Optional JSON array of arguments")),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			command, err := req.RequireString("command")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			var args []any
			if raw := req.GetString("arguments_json", ""); raw != "" {
				if err := json.Unmarshal([]byte(raw), &args); err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("invalid arguments_json: %v", err)), nil
				}
			}
			result, err := features.RequestExecuteCommand(ctx, s, command, args)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if len(result) == 0 {
				return mcp.NewToolResultText("null"), nil
			}
			return mcp.NewToolResultText(string(result)), nil
		}
}

func documentDiagnosticsTool(s *session.Session) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("document_diagnostics",
			mcp.WithDescription("Pull diagnostics for a single document (textDocument/diagnostic)."),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("uri", mcp.Description("Document URI"), mcp.Required()),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			uri, err := req.RequireString("uri")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			report, err := features.RequestDocumentDiagnostics(ctx, s, uri, "", "")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return diagnosticsResult("document_diagnostics", uri, report)
		}
}

func workspaceDiagnosticsTool(s *session.Session) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("workspace_diagnostics",
			mcp.WithDescription("Pull diagnostics for the whole workspace (workspace/diagnostic)."),
			mcp.WithDestructiveHintAnnotation(false),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			report, err := features.RequestWorkspaceDiagnostics(ctx, s, "")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return diagnosticsResult("workspace_diagnostics", "", report)
		}
}

func foldingRangeTool(s *session.Session) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("folding_range",
			mcp.WithDescription("List foldable regions in a document (textDocument/foldingRange)."),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("uri", mcp.Description("Document URI"), mcp.Required()),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			uri, err := req.RequireString("uri")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			result, err := features.RequestFoldingRange(ctx, s, uri)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return textResult("folding_range", result)
		}
}

func callHierarchyTool(s *session.Session) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("call_hierarchy",
			mcp.WithDescription("Prepare a call hierarchy item at a cursor position, then list incoming or outgoing calls (textDocument/prepareCallHierarchy + callHierarchy/*Calls)."),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("uri", mcp.Description("Document URI"), mcp.Required()),
			mcp.WithNumber("line", mcp.Description("Line number (0-based)"), mcp.Required(), mcp.Min(0)),
			mcp.WithNumber("character", mcp.Description("Character offset (0-based)"), mcp.Required(), mcp.Min(0)),
			mcp.WithString("direction", mcp.Description("\"incoming\" or \"outgoing\" (default: outgoing)")),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			uri, line, character, err := requirePosition(req)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			items, err := features.PrepareCallHierarchy(ctx, s, uri, line, character)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if len(items) == 0 {
				return mcp.NewToolResultText("no call hierarchy item at this position"), nil
			}
			if req.GetString("direction", "outgoing") == "incoming" {
				calls, err := features.IncomingCalls(ctx, s, items[0])
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return textResult("call_hierarchy", calls)
			}
			calls, err := features.OutgoingCalls(ctx, s, items[0])
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return textResult("call_hierarchy", calls)
		}
}

func lspStatusTool(progress *features.Progress) (mcp.Tool, server.ToolHandlerFunc) {
	return mcp.NewTool("lsp_status",
			mcp.WithDescription("Show in-flight server progress ($/progress). Useful for detecting whether the server is still indexing."),
			mcp.WithDestructiveHintAnnotation(false),
		), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return textResult("lsp_status", progress.Snapshot())
		}
}

func requirePosition(req mcp.CallToolRequest) (uri string, line, character uint32, err error) {
	uri, err = req.RequireString("uri")
	if err != nil {
		return "", 0, 0, err
	}
	l, err := req.RequireInt("line")
	if err != nil {
		return "", 0, 0, err
	}
	c, err := req.RequireInt("character")
	if err != nil {
		return "", 0, 0, err
	}
	if l < 0 || c < 0 {
		return "", 0, 0, fmt.Errorf("line and character must be non-negative")
	}
	return uri, uint32(l), uint32(c), nil
}

func textResult(tool string, payload any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s: failed to encode result: %v", tool, err)), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}

type diagnosticsEnvelope struct {
	Tool   string `json:"tool"`
	URI    string `json:"uri,omitempty"`
	Report any    `json:"report"`
}

func diagnosticsResult(tool, uri string, report any) (*mcp.CallToolResult, error) {
	return textResult(tool, &diagnosticsEnvelope{Tool: tool, URI: uri, Report: report})
}

func mustSchemaJSON(v any) string {
	raw, err := json.MarshalIndent(jsonschema.Reflect(v), "", "  ")
	if err != nil {
		return ""
	}
	return string(raw)
}
