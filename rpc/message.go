// Package rpc implements the LSP wire format: Content-Length framed JSON-RPC
// 2.0 messages, and the tagged-union message model the rest of the protocol
// engine dispatches on.
package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"

	"github.com/observerw/lsp-client/lsperr"
)

// Kind discriminates the four message shapes the wire can carry.
type Kind int

const (
	KindUnknown Kind = iota
	KindRequest
	KindResponse
	KindNotification
)

// RPCError mirrors the JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes, used both for decoding server errors and
// for synthesizing our own responses to server-initiated requests.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeRequestFailed  = -32803
)

// Message is the decoded envelope for any frame on the wire. Exactly one of
// the payload fields is meaningful depending on Kind.
type Message struct {
	Kind    Kind
	ID      string          // present for KindRequest/KindResponse
	Method  string          // present for KindRequest/KindNotification
	Params  json.RawMessage // present for KindRequest/KindNotification
	Result  json.RawMessage // present for KindResponse on success
	Err     *RPCError       // present for KindResponse on failure
	rawID   json.RawMessage // original id bytes, string or number, for echoing back
}

// wireEnvelope is the on-the-wire shape for both encoding and decoding;
// Decode first uses jsonparser to see which of id/method/result/error are
// present, then unmarshals the whole frame into this envelope once.
type wireEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Decode classifies and parses a raw JSON frame into a Message.
func Decode(raw []byte) (*Message, error) {
	hasID := false
	hasMethod := false
	hasResult := false
	hasError := false

	_, idErr := jsonparser.GetString(raw, "id")
	if idErr != nil {
		if _, _, _, err := jsonparser.Get(raw, "id"); err == nil {
			hasID = true
		}
	} else {
		hasID = true
	}
	if _, _, _, err := jsonparser.Get(raw, "method"); err == nil {
		hasMethod = true
	}
	if _, _, _, err := jsonparser.Get(raw, "result"); err == nil {
		hasResult = true
	}
	if _, _, _, err := jsonparser.Get(raw, "error"); err == nil {
		hasError = true
	}

	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, lsperr.New(lsperr.ProtocolError, "", fmt.Errorf("decode frame: %w", err))
	}

	msg := &Message{rawID: env.ID}
	if len(env.ID) > 0 {
		msg.ID = idString(env.ID)
	}

	switch {
	case hasID && hasMethod:
		msg.Kind = KindRequest
		msg.Method = env.Method
		msg.Params = env.Params
	case hasID && (hasResult || hasError):
		msg.Kind = KindResponse
		msg.Result = env.Result
		msg.Err = env.Error
	case !hasID && hasMethod:
		msg.Kind = KindNotification
		msg.Method = env.Method
		msg.Params = env.Params
	default:
		return nil, lsperr.New(lsperr.ProtocolError, "", fmt.Errorf("unrecognized message shape"))
	}
	return msg, nil
}

// idString normalizes a raw JSON id (string or number) to its string form,
// which is what the Pending Table keys on.
func idString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}

// EncodeRequest builds the wire bytes for a client-issued request.
func EncodeRequest(id string, method string, params any) ([]byte, error) {
	p, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	idBytes, _ := json.Marshal(id)
	return json.Marshal(wireEnvelope{JSONRPC: "2.0", ID: idBytes, Method: method, Params: p})
}

// EncodeNotification builds the wire bytes for a notification.
func EncodeNotification(method string, params any) ([]byte, error) {
	p, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEnvelope{JSONRPC: "2.0", Method: method, Params: p})
}

// EncodeResponse builds the wire bytes for a reply to a server-initiated
// request, using the original raw id bytes so numeric ids round-trip
// exactly as the server sent them.
func EncodeResponse(rawID json.RawMessage, result any, rpcErr *RPCError) ([]byte, error) {
	env := wireEnvelope{JSONRPC: "2.0", ID: rawID, Error: rpcErr}
	if rpcErr == nil {
		r, err := marshalParams(result)
		if err != nil {
			return nil, err
		}
		env.Result = r
	}
	return json.Marshal(env)
}

// RawID exposes the original id bytes of a decoded request, so a handler
// reply can echo them verbatim (see EncodeResponse).
func (m *Message) RawID() json.RawMessage { return m.rawID }

func marshalParams(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, lsperr.New(lsperr.ProtocolError, "", fmt.Errorf("marshal params: %w", err))
	}
	return b, nil
}

// CancelParams is the payload of the $/cancelRequest notification.
type CancelParams struct {
	ID string `json:"id"`
}

const MethodCancelRequest = "$/cancelRequest"
