// Package capability implements the Capability Composer (§4.G): feature
// modules contribute client-capability fragments, get validated against
// the server's reported capabilities after initialize, and only validated
// features' operations become reachable on a session's surface.
//
// This replaces original_source's multiple-inheritance mixin composition
// (protocol/capability.py's CapabilityProtocol family, capability/group.py's
// FullFeaturedCapabilityGroup) with explicit registration, per §9 Design
// Notes: "replace this with a list of feature values assembled at
// construction; the composer iterates deterministically."
package capability

import (
	"github.com/myleshyson/lsprotocol-go/protocol"

	"github.com/observerw/lsp-client/client"
)

// Category orders the topological fill sequence of client capabilities,
// mirroring protocol/capability.py's per-namespace Protocol split
// (GeneralCapabilityProtocol, TextDocumentCapabilityProtocol,
// WorkspaceCapabilityProtocol, WindowCapabilityProtocol,
// NotebookCapabilityProtocol).
type Category int

const (
	CategoryGeneral Category = iota
	CategoryTextDocument
	CategoryWorkspace
	CategoryWindow
	CategoryNotebook
)

// Binder is the runtime handle a feature receives to install handlers and
// register the operations it will expose once validated.
type Binder struct {
	Registry *client.Registry
}

// Feature is the contract a capability module implements. Every field is
// optional except Methods/Category/Name — a feature with no FillClientCaps
// simply contributes nothing to the capability tree (e.g. a pure handler
// feature like window/logMessage reception).
type Feature interface {
	// Name identifies the feature for CapabilityUnsupported error messages
	// and for the Tool Exposition layer.
	Name() string

	// Category places this feature's FillClientCaps call in the composer's
	// topological ordering (§4.G step 2).
	Category() Category

	// Methods lists every LSP method this feature owns, for grounding
	// diagnostics and the S6-style rejection error.
	Methods() []string

	// FillClientCaps additively contributes to the outgoing
	// ClientCapabilities. Implementations must not overwrite a field
	// another feature may have already set at the same path.
	FillClientCaps(caps *protocol.ClientCapabilities)

	// CheckServerCaps validates the feature against what the server
	// reported in InitializeResult. Returning a non-nil error fails
	// construction with CapabilityUnsupported (§4.G step 4).
	CheckServerCaps(caps *protocol.ServerCapabilities) error

	// Bind installs this feature's notification/request handlers and
	// operations onto the binder. Called only for features that passed
	// CheckServerCaps.
	Bind(b *Binder)
}
