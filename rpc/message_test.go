package rpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeClassifiesRequest(t *testing.T) {
	raw := []byte(`{"jsonrpc":"2.0","id":"1","method":"textDocument/hover","params":{"foo":1}}`)
	msg, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, KindRequest, msg.Kind)
	assert.Equal(t, "1", msg.ID)
	assert.Equal(t, "textDocument/hover", msg.Method)
}

func TestDecodeClassifiesNotification(t *testing.T) {
	raw := []byte(`{"jsonrpc":"2.0","method":"initialized","params":{}}`)
	msg, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, KindNotification, msg.Kind)
	assert.Empty(t, msg.ID)
}

func TestDecodeClassifiesResponseSuccessAndError(t *testing.T) {
	ok, err := Decode([]byte(`{"jsonrpc":"2.0","id":"7","result":{"ok":true}}`))
	require.NoError(t, err)
	assert.Equal(t, KindResponse, ok.Kind)
	assert.Nil(t, ok.Err)

	failed, err := Decode([]byte(`{"jsonrpc":"2.0","id":"7","error":{"code":-32601,"message":"nope"}}`))
	require.NoError(t, err)
	assert.Equal(t, KindResponse, failed.Kind)
	require.NotNil(t, failed.Err)
	assert.Equal(t, -32601, failed.Err.Code)
}

func TestDecodeRejectsUnknownShape(t *testing.T) {
	_, err := Decode([]byte(`{"jsonrpc":"2.0"}`))
	assert.Error(t, err)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	body, err := EncodeRequest("abc-1", "textDocument/definition", map[string]any{"line": 3})
	require.NoError(t, err)

	msg, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, KindRequest, msg.Kind)
	assert.Equal(t, "abc-1", msg.ID)
	assert.Equal(t, "textDocument/definition", msg.Method)

	var params map[string]any
	require.NoError(t, json.Unmarshal(msg.Params, &params))
	assert.EqualValues(t, 3, params["line"])
}

func TestEncodeResponsePreservesRawNumericID(t *testing.T) {
	raw, err := Decode([]byte(`{"jsonrpc":"2.0","id":42,"method":"workspace/configuration","params":{}}`))
	require.NoError(t, err)

	resp, err := EncodeResponse(raw.RawID(), []string{"basic"}, nil)
	require.NoError(t, err)

	back, err := Decode(resp)
	require.NoError(t, err)
	assert.Equal(t, "42", back.ID)
}
