package client

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/observerw/lsp-client/lsperr"
	"github.com/observerw/lsp-client/lsptest"
	"github.com/observerw/lsp-client/rpc"
)

func TestBindingSendRequestOutOfOrderResponses(t *testing.T) {
	tr, serverConn := lsptest.PipePair()
	serverFramer := rpc.NewFramer(serverConn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := NewBinding(ctx, tr)
	require.NoError(t, err)

	results := make(chan string, 3)
	for i := 0; i < 3; i++ {
		go func() {
			var out string
			sendErr := b.SendRequest(context.Background(), "textDocument/hover", map[string]int{"n": 1}, &out)
			assert.NoError(t, sendErr)
			results <- out
		}()
	}

	// Read the three requests off the wire and reply out of order: 3,1,2.
	ids := make([]string, 3)
	for i := 0; i < 3; i++ {
		raw, err := serverFramer.ReadFrame()
		require.NoError(t, err)
		msg, err := rpc.Decode(raw)
		require.NoError(t, err)
		ids[i] = msg.ID
	}

	order := []int{2, 0, 1}
	for _, idx := range order {
		body, err := rpc.EncodeResponse(json.RawMessage(`"`+ids[idx]+`"`), "hover-"+ids[idx], nil)
		require.NoError(t, err)
		require.NoError(t, serverFramer.WriteFrame(body))
	}

	for i := 0; i < 3; i++ {
		select {
		case <-results:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for result")
		}
	}
}

func TestBindingSendRequestCancellationEmitsCancelRequest(t *testing.T) {
	tr, serverConn := lsptest.PipePair()
	serverFramer := rpc.NewFramer(serverConn)

	ctx := context.Background()
	b, err := NewBinding(ctx, tr)
	require.NoError(t, err)

	reqCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- b.SendRequest(reqCtx, "textDocument/definition", nil, nil)
	}()

	raw, err := serverFramer.ReadFrame()
	require.NoError(t, err)
	msg, err := rpc.Decode(raw)
	require.NoError(t, err)

	cancel()

	err = <-done
	assert.Equal(t, lsperr.Cancelled, lsperr.KindOf(err))

	cancelRaw, err := serverFramer.ReadFrame()
	require.NoError(t, err)
	cancelMsg, err := rpc.Decode(cancelRaw)
	require.NoError(t, err)
	assert.Equal(t, rpc.MethodCancelRequest, cancelMsg.Method)

	var params rpc.CancelParams
	require.NoError(t, json.Unmarshal(cancelMsg.Params, &params))
	assert.Equal(t, msg.ID, params.ID)
}

func TestBindingServerInitiatedRequestIsHandled(t *testing.T) {
	tr, serverConn := lsptest.PipePair()
	serverFramer := rpc.NewFramer(serverConn)

	ctx := context.Background()
	b, err := NewBinding(ctx, tr)
	require.NoError(t, err)

	require.NoError(t, b.Registry().OnRequest("workspace/configuration", func(ctx context.Context, params json.RawMessage) (any, *rpc.RPCError) {
		return []string{"basic"}, nil
	}))
	b.Registry().Freeze()

	body, err := rpc.EncodeRequest("srv-1", "workspace/configuration", map[string]any{})
	require.NoError(t, err)
	require.NoError(t, serverFramer.WriteFrame(body))

	raw, err := serverFramer.ReadFrame()
	require.NoError(t, err)
	msg, err := rpc.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "srv-1", msg.ID)
	assert.JSONEq(t, `["basic"]`, string(msg.Result))
}

func TestBindingUnknownServerRequestGetsMethodNotFound(t *testing.T) {
	tr, serverConn := lsptest.PipePair()
	serverFramer := rpc.NewFramer(serverConn)

	ctx := context.Background()
	_, err := NewBinding(ctx, tr)
	require.NoError(t, err)

	body, err := rpc.EncodeRequest("srv-2", "some/unknownMethod", nil)
	require.NoError(t, err)
	require.NoError(t, serverFramer.WriteFrame(body))

	raw, err := serverFramer.ReadFrame()
	require.NoError(t, err)
	msg, err := rpc.Decode(raw)
	require.NoError(t, err)
	require.NotNil(t, msg.Err)
	assert.Equal(t, rpc.CodeMethodNotFound, msg.Err.Code)
}
