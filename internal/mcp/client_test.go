package mcp

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	RequestHandler
	lists atomic.Int32
}

func (c *countingHandler) Handle(ctx context.Context, req Request) Response {
	if req.Method == "tools/list" {
		c.lists.Add(1)
	}
	return c.RequestHandler.Handle(ctx, req)
}

func TestClient_ListToolsCached(t *testing.T) {
	h := &countingHandler{RequestHandler: newTestServer(t)}
	client := NewClient(h)
	ctx := context.Background()

	ok, err := client.HasTool(ctx, "echo")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.HasTool(ctx, "create_issue")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, int32(1), h.lists.Load())
}

func TestClient_Resources(t *testing.T) {
	client := NewClient(newTestServer(t))
	ctx := context.Background()

	resources, err := client.ListResources(ctx)
	require.NoError(t, err)
	require.Len(t, resources, 1)

	text, err := client.ReadResource(ctx, resources[0].URI)
	require.NoError(t, err)
	assert.JSONEq(t, `{"max_files": 15}`, text)

	_, err = client.ReadResource(ctx, "resource://missing")
	assert.Error(t, err)
}

func TestClient_RequestIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	h := handlerFunc(func(ctx context.Context, req Request) Response {
		seen[req.ID] = true
		return Success(req.ID, map[string]any{"content": []any{map[string]any{"type": "text", "text": "{}"}}})
	})
	client := NewClient(h)

	for i := 0; i < 5; i++ {
		require.NoError(t, client.CallTool(context.Background(), "x", nil, nil))
	}
	assert.Len(t, seen, 5)
}

type handlerFunc func(ctx context.Context, req Request) Response

func (f handlerFunc) Handle(ctx context.Context, req Request) Response { return f(ctx, req) }

func TestClient_Initialize(t *testing.T) {
	client := NewClient(newTestServer(t))
	info, err := client.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ProtocolVersion, info.ProtocolVersion)
	assert.NotEmpty(t, info.ServerInfo.Name)
}
