package mcptools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/observerw/lsp-client/capability"
	"github.com/observerw/lsp-client/features"
	"github.com/observerw/lsp-client/lsptest"
	"github.com/observerw/lsp-client/rpc"
	"github.com/observerw/lsp-client/session"
	"github.com/observerw/lsp-client/transport"
)

type fakeToolServer struct {
	names []string
}

func (f *fakeToolServer) AddTool(tool mcp.Tool, _ server.ToolHandlerFunc) {
	f.names = append(f.names, tool.Name)
}

// newSessionWithHoverOnly plays a real initialize handshake advertising only
// hoverProvider against a composer holding only the hover feature, so the
// surface validates hover and nothing else. (A composed feature the server
// rejects would fail session.New outright.)
func newSessionWithHoverOnly(t *testing.T) *session.Session {
	t.Helper()

	tr, serverConn := lsptest.PipePair()
	serverFramer := rpc.NewFramer(serverConn)

	done := make(chan struct{})
	go func() {
		defer close(done)
		raw, err := serverFramer.ReadFrame()
		require.NoError(t, err)
		msg, err := rpc.Decode(raw)
		require.NoError(t, err)
		require.Equal(t, "initialize", msg.Method)

		body, err := rpc.EncodeResponse(json.RawMessage(`"`+msg.ID+`"`), map[string]any{
			"capabilities": map[string]any{"hoverProvider": true},
		}, nil)
		require.NoError(t, err)
		require.NoError(t, serverFramer.WriteFrame(body))

		raw, err = serverFramer.ReadFrame()
		require.NoError(t, err)
		msg, err = rpc.Decode(raw)
		require.NoError(t, err)
		require.Equal(t, "initialized", msg.Method)
	}()

	composer := capability.New(features.Hover{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := session.New(ctx, []transport.Transport{tr}, composer)
	require.NoError(t, err)
	<-done
	return s
}

func TestRegisterOnlyAddsToolsForValidatedFeatures(t *testing.T) {
	s := newSessionWithHoverOnly(t)
	fake := &fakeToolServer{}

	Register(fake, s, nil)

	assert.Contains(t, fake.names, "hover")
	assert.NotContains(t, fake.names, "definition")
	assert.NotContains(t, fake.names, "rename")
}

func TestRegisterAddsLspStatusOnlyWithProgress(t *testing.T) {
	s := newSessionWithHoverOnly(t)

	without := &fakeToolServer{}
	Register(without, s, nil)
	assert.NotContains(t, without.names, "lsp_status")

	with := &fakeToolServer{}
	Register(with, s, features.NewProgress())
	assert.Contains(t, with.names, "lsp_status")
}
