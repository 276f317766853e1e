package mcp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_ExactlyOneMember(t *testing.T) {
	ok := Success("1", nil)
	result, isResult := ok.Result()
	assert.True(t, isResult)
	assert.NotNil(t, result)
	assert.Nil(t, ok.Err())

	bad := Failure("2", MethodNotFound, "Method not found: x")
	_, isResult = bad.Result()
	assert.False(t, isResult)
	assert.Equal(t, MethodNotFound, bad.Err().Code)
}

func TestResponse_JSON(t *testing.T) {
	data, err := json.Marshal(Failure("7", InvalidParams, "Unknown tool: x"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"7","error":{"code":-32602,"message":"Unknown tool: x"}}`, string(data))

	data, err = json.Marshal(Success("", map[string]any{"ok": true}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"result":{"ok":true}}`, string(data))

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":3,"result":{"n":1}}`), &resp))
	assert.Equal(t, "3", resp.ID())
	result, ok := resp.Result()
	require.True(t, ok)
	assert.Equal(t, float64(1), result["n"])

	assert.Error(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":"1"}`), &resp))
}

func TestRequest_NumericID(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":42,"method":"tools/list"}`), &req))
	assert.Equal(t, "42", req.ID)
	assert.Equal(t, "tools/list", req.Method)

	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`), &req))
	assert.Empty(t, req.ID)
}

func TestRequest_IDTypeSurvivesRoundTrip(t *testing.T) {
	var req Request
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":7,"method":"tools/list"}`), &req))
	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":7,"method":"tools/list"}`, string(data))

	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":"7","method":"tools/list"}`), &req))
	data, err = json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"7","method":"tools/list"}`, string(data))
}
