package features

import (
	"context"
	"encoding/json"

	"github.com/myleshyson/lsprotocol-go/protocol"

	"github.com/observerw/lsp-client/capability"
	"github.com/observerw/lsp-client/config"
	"github.com/observerw/lsp-client/rpc"
)

// Configuration answers the server's pull requests for settings
// (workspace/configuration) out of a config.Store, and pushes
// workspace/didChangeConfiguration whenever the store changes (the push
// side is already wired by config.Store.notify via its Broadcaster; this
// feature only needs to own the client-capability fragment and the pull
// responder). Grounded on original_source's server_request/configuration.py
// and server_request/workspace_configuration.py and on lsp/handler.go's
// "workspace/configuration" case, which the teacher answers with an empty
// array — this feature answers it for real out of the store.
type Configuration struct {
	store *config.Store
}

func NewConfiguration(store *config.Store) *Configuration {
	return &Configuration{store: store}
}

func (f *Configuration) Name() string                  { return "configuration" }
func (f *Configuration) Category() capability.Category { return capability.CategoryWorkspace }
func (f *Configuration) Methods() []string {
	return []string{"workspace/configuration", "workspace/didChangeConfiguration"}
}
func (f *Configuration) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureWorkspace(c)
	c.Workspace.Configuration = true
	c.Workspace.DidChangeConfiguration = &protocol.DidChangeConfigurationClientCapabilities{}
}
func (f *Configuration) CheckServerCaps(*protocol.ServerCapabilities) error { return nil }

func (f *Configuration) Bind(b *capability.Binder) {
	_ = b.Registry.OnRequest("workspace/configuration", func(ctx context.Context, raw json.RawMessage) (any, *rpc.RPCError) {
		var params protocol.ConfigurationParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, &rpc.RPCError{Code: rpc.CodeInvalidParams, Message: err.Error()}
		}
		results := make([]any, len(params.Items))
		for i, item := range params.Items {
			scope := ""
			if item.ScopeUri != nil {
				scope = string(*item.ScopeUri)
			}
			section := item.Section
			tree := f.store.Resolve(scope)
			results[i] = config.Section(tree, section)
		}
		return results, nil
	})
}

// NotifyDidChangeConfiguration pushes settings to a server directly,
// bypassing the store's own broadcast when a caller wants to send an
// explicit payload rather than the store's resolved tree.
func NotifyDidChangeConfiguration(r Requester, settings any) error {
	return r.Broadcast("workspace/didChangeConfiguration", protocol.DidChangeConfigurationParams{Settings: settings})
}

// WorkspaceFolders answers the server's workspace/workspaceFolders pull
// request, grounded on original_source's server_request/workspace_folders.py.
type WorkspaceFolders struct {
	folders []protocol.WorkspaceFolder
}

func NewWorkspaceFolders(folders []protocol.WorkspaceFolder) *WorkspaceFolders {
	return &WorkspaceFolders{folders: folders}
}

func (f *WorkspaceFolders) Name() string                  { return "workspaceFolders" }
func (f *WorkspaceFolders) Category() capability.Category { return capability.CategoryWorkspace }
func (f *WorkspaceFolders) Methods() []string             { return []string{"workspace/workspaceFolders"} }
func (f *WorkspaceFolders) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureWorkspace(c)
	c.Workspace.WorkspaceFolders = true
}
func (f *WorkspaceFolders) CheckServerCaps(*protocol.ServerCapabilities) error { return nil }
func (f *WorkspaceFolders) Bind(b *capability.Binder) {
	_ = b.Registry.OnRequest("workspace/workspaceFolders", func(ctx context.Context, raw json.RawMessage) (any, *rpc.RPCError) {
		return f.folders, nil
	})
}

// WatchedFiles pushes workspace/didChangeWatchedFiles notifications,
// grounded on lsp/methods.go's DidChangeWatchedFiles and fed by the
// filesystem watcher.
type WatchedFiles struct{}

func (WatchedFiles) Name() string                  { return "watchedFiles" }
func (WatchedFiles) Category() capability.Category { return capability.CategoryWorkspace }
func (WatchedFiles) Methods() []string             { return []string{"workspace/didChangeWatchedFiles"} }
func (WatchedFiles) FillClientCaps(c *protocol.ClientCapabilities) {
	ensureWorkspace(c)
	c.Workspace.DidChangeWatchedFiles = &protocol.DidChangeWatchedFilesClientCapabilities{
		DynamicRegistration: true,
	}
}
func (WatchedFiles) CheckServerCaps(*protocol.ServerCapabilities) error { return nil }
func (WatchedFiles) Bind(*capability.Binder)                            {}

func NotifyDidChangeWatchedFiles(r Requester, changes []protocol.FileEvent) error {
	return r.Broadcast("workspace/didChangeWatchedFiles", protocol.DidChangeWatchedFilesParams{Changes: changes})
}
