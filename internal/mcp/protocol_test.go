package mcp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestBuilders(t *testing.T) {
	t.Run("tool call carries name and arguments", func(t *testing.T) {
		req, err := NewToolCallRequest("search_products", map[string]any{"query": "lipstick"})
		require.NoError(t, err)

		assert.Equal(t, JSONRPCVersion, req.JSONRPC)
		assert.Equal(t, "tools/call", req.Method)

		params, ok := req.Params.(ToolCallParams)
		require.True(t, ok)
		assert.Equal(t, "search_products", params.Name)
		assert.Equal(t, "lipstick", params.Arguments["query"])
	})

	t.Run("tool name is required", func(t *testing.T) {
		_, err := NewToolCallRequest("", nil)
		assert.Error(t, err)
	})

	t.Run("initialize declares protocol version", func(t *testing.T) {
		req := NewInitializeRequest(ImplementationInfo{Name: "test", Version: "0.0.1"})
		assert.Equal(t, "initialize", req.Method)

		params, ok := req.Params.(InitializeParams)
		require.True(t, ok)
		assert.Equal(t, ProtocolVersion, params.ProtocolVersion)
		assert.Equal(t, "test", params.ClientInfo.Name)
	})

	t.Run("ids are unique across requests", func(t *testing.T) {
		a := NewToolsListRequest()
		b := NewToolsListRequest()
		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestEnvelopeRoundTrip(t *testing.T) {
	req, err := NewToolCallRequest("get_product_details", map[string]any{"slug": "serum-x"})
	require.NoError(t, err)

	body, err := json.Marshal(req)
	require.NoError(t, err)

	var echoed Request
	require.NoError(t, json.Unmarshal(body, &echoed))
	assert.Equal(t, req.ID, echoed.ID)

	// A response built against the echoed request correlates by id.
	wire, err := json.Marshal(Response{
		JSONRPC: JSONRPCVersion,
		ID:      echoed.ID,
		Result:  json.RawMessage(`{"content":[]}`),
	})
	require.NoError(t, err)

	resp, err := DecodeResponse(wire)
	require.NoError(t, err)
	assert.Equal(t, req.ID, resp.ID)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Result)
}

func TestDecodeResponse(t *testing.T) {
	t.Run("malformed body is a parse fault", func(t *testing.T) {
		_, err := DecodeResponse([]byte("<html>bad gateway</html>"))
		require.Error(t, err)
		assert.Equal(t, FaultParse, KindOf(err))
	})

	t.Run("envelope error decodes as protocol error, not parse fault", func(t *testing.T) {
		resp, err := DecodeResponse([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"No valid session"}}`))
		require.NoError(t, err)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "No valid session", resp.Error.Message)
	})
}
