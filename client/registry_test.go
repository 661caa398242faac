package client

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/observerw/lsp-client/rpc"
)

func TestRegistryNotificationFanOutPreservesOrder(t *testing.T) {
	r := NewRegistry()
	var order []int

	require.NoError(t, r.OnNotification("window/logMessage", func(ctx context.Context, params json.RawMessage) {
		order = append(order, 1)
	}))
	require.NoError(t, r.OnNotification("window/logMessage", func(ctx context.Context, params json.RawMessage) {
		order = append(order, 2)
	}))

	handlers := r.Notifications("window/logMessage")
	require.Len(t, handlers, 2)
	for _, h := range handlers {
		h(context.Background(), nil)
	}
	assert.Equal(t, []int{1, 2}, order)
}

func TestRegistrySingleResponderPerRequestMethod(t *testing.T) {
	r := NewRegistry()
	first := func(ctx context.Context, params json.RawMessage) (any, *rpc.RPCError) { return nil, nil }
	require.NoError(t, r.OnRequest("workspace/configuration", first))

	err := r.OnRequest("workspace/configuration", first)
	assert.Error(t, err)
}

func TestRegistryFreezeRejectsFurtherRegistration(t *testing.T) {
	r := NewRegistry()
	r.Freeze()

	err := r.OnNotification("x", func(context.Context, json.RawMessage) {})
	assert.Error(t, err)

	err = r.OnRequest("y", func(context.Context, json.RawMessage) (any, *rpc.RPCError) { return nil, nil })
	assert.Error(t, err)
}

func TestRegistryUnknownMethodLookupMisses(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.Notifications("nope"))
	_, ok := r.Request("nope")
	assert.False(t, ok)
}
