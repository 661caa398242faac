package features

import (
	"context"
	"encoding/json"

	"github.com/myleshyson/lsprotocol-go/protocol"

	"github.com/observerw/lsp-client/capability"
	"github.com/observerw/lsp-client/logger"
	"github.com/observerw/lsp-client/rpc"
)

// WindowMessages receives window/showMessage and window/logMessage
// notifications and answers window/showMessageRequest, grounded on
// lsp/handler.go's showMessage/logMessage cases and original_source's
// server_notification/{show_message,log_message}.py and
// server_request/show_message_request.py. Unlike the teacher, which only
// logs these, this feature forwards them to caller-supplied callbacks so a
// host application can surface them in its own UI.
type WindowMessages struct {
	onShowMessage  func(protocol.ShowMessageParams)
	onLogMessage   func(protocol.LogMessageParams)
	onShowRequest  func(protocol.ShowMessageRequestParams) protocol.MessageActionItem
}

// NewWindowMessages builds the feature. Any callback may be nil: a nil
// onShowMessage or onLogMessage falls back to logging the message through
// the package logger, and a nil onShowRequest answers every
// showMessageRequest with a null result.
func NewWindowMessages(
	onShowMessage func(protocol.ShowMessageParams),
	onLogMessage func(protocol.LogMessageParams),
	onShowRequest func(protocol.ShowMessageRequestParams) protocol.MessageActionItem,
) *WindowMessages {
	return &WindowMessages{
		onShowMessage: onShowMessage,
		onLogMessage:  onLogMessage,
		onShowRequest: onShowRequest,
	}
}

func (f *WindowMessages) Name() string                  { return "windowMessages" }
func (f *WindowMessages) Category() capability.Category { return capability.CategoryWindow }
func (f *WindowMessages) Methods() []string {
	return []string{"window/showMessage", "window/logMessage", "window/showMessageRequest"}
}
func (f *WindowMessages) FillClientCaps(c *protocol.ClientCapabilities) {
	if c.Window == nil {
		c.Window = &protocol.WindowClientCapabilities{}
	}
	c.Window.ShowMessage = &protocol.ShowMessageRequestClientCapabilities{}
}
func (f *WindowMessages) CheckServerCaps(*protocol.ServerCapabilities) error { return nil }

func (f *WindowMessages) Bind(b *capability.Binder) {
	_ = b.Registry.OnNotification("window/showMessage", func(ctx context.Context, raw json.RawMessage) {
		var params protocol.ShowMessageParams
		if err := json.Unmarshal(raw, &params); err != nil {
			logger.Debug("failed to unmarshal showMessage", "error", err)
			return
		}
		if f.onShowMessage != nil {
			f.onShowMessage(params)
		} else {
			logger.Info("server message", "message", params.Message)
		}
	})

	_ = b.Registry.OnNotification("window/logMessage", func(ctx context.Context, raw json.RawMessage) {
		var params protocol.LogMessageParams
		if err := json.Unmarshal(raw, &params); err != nil {
			logger.Debug("failed to unmarshal logMessage", "error", err)
			return
		}
		if f.onLogMessage != nil {
			f.onLogMessage(params)
		} else {
			logger.Info("server log", "message", params.Message)
		}
	})

	_ = b.Registry.OnRequest("window/showMessageRequest", func(ctx context.Context, raw json.RawMessage) (any, *rpc.RPCError) {
		var params protocol.ShowMessageRequestParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, &rpc.RPCError{Code: rpc.CodeInvalidParams, Message: err.Error()}
		}
		if f.onShowRequest == nil {
			return nil, nil
		}
		return f.onShowRequest(params), nil
	})
}

// ShowDocument answers server-initiated window/showDocument requests,
// grounded on original_source's server_request/show_document_request.py.
type ShowDocument struct {
	handler func(protocol.ShowDocumentParams) bool
}

func NewShowDocument(handler func(protocol.ShowDocumentParams) bool) *ShowDocument {
	return &ShowDocument{handler: handler}
}

func (f *ShowDocument) Name() string                  { return "showDocument" }
func (f *ShowDocument) Category() capability.Category { return capability.CategoryWindow }
func (f *ShowDocument) Methods() []string             { return []string{"window/showDocument"} }
func (f *ShowDocument) FillClientCaps(c *protocol.ClientCapabilities) {
	if c.Window == nil {
		c.Window = &protocol.WindowClientCapabilities{}
	}
	c.Window.ShowDocument = &protocol.ShowDocumentClientCapabilities{Support: true}
}
func (f *ShowDocument) CheckServerCaps(*protocol.ServerCapabilities) error { return nil }
func (f *ShowDocument) Bind(b *capability.Binder) {
	_ = b.Registry.OnRequest("window/showDocument", func(ctx context.Context, raw json.RawMessage) (any, *rpc.RPCError) {
		var params protocol.ShowDocumentParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, &rpc.RPCError{Code: rpc.CodeInvalidParams, Message: err.Error()}
		}
		success := false
		if f.handler != nil {
			success = f.handler(params)
		}
		return protocol.ShowDocumentResult{Success: success}, nil
	})
}
