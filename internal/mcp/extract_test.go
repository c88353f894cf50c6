package mcp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolResult(t *testing.T, text string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(ToolCallResult{Content: []ContentItem{{Type: "text", Text: text}}})
	require.NoError(t, err)
	return raw
}

func TestExtractPayload(t *testing.T) {
	t.Run("markdown prose passes through as text", func(t *testing.T) {
		p := ExtractPayload(toolResult(t, "**1. Lakme Lipstick**\n**Slug:** `lakme-lip-1`\n"))
		assert.Equal(t, PayloadText, p.Kind)
		assert.Contains(t, p.Text, "Lakme Lipstick")
	})

	t.Run("embedded JSON array becomes a list", func(t *testing.T) {
		p := ExtractPayload(toolResult(t, `[{"name":"a"},{"name":"b"}]`))
		assert.Equal(t, PayloadList, p.Kind)
		assert.Len(t, p.List, 2)
	})

	t.Run("embedded JSON object becomes an object", func(t *testing.T) {
		p := ExtractPayload(toolResult(t, `{"products":[]}`))
		assert.Equal(t, PayloadObject, p.Kind)
		assert.JSONEq(t, `{"products":[]}`, string(p.Object))
	})

	t.Run("truncated JSON falls back to text", func(t *testing.T) {
		p := ExtractPayload(toolResult(t, `{"products": [`))
		assert.Equal(t, PayloadText, p.Kind)
	})

	t.Run("result without content blocks passes through raw", func(t *testing.T) {
		raw := json.RawMessage(`{"ok":true,"orderId":"ord_1"}`)
		p := ExtractPayload(raw)
		assert.Equal(t, PayloadObject, p.Kind)
		assert.JSONEq(t, string(raw), string(p.Object))
	})

	t.Run("structured content is honored when no text block exists", func(t *testing.T) {
		raw := json.RawMessage(`{"content":[],"structuredContent":[1,2,3]}`)
		p := ExtractPayload(raw)
		assert.Equal(t, PayloadList, p.Kind)
		assert.Len(t, p.List, 3)
	})

	t.Run("empty result", func(t *testing.T) {
		p := ExtractPayload(nil)
		assert.Equal(t, PayloadObject, p.Kind)
	})
}

func TestResultErrorText(t *testing.T) {
	t.Run("isError result surfaces the remote message", func(t *testing.T) {
		raw, err := json.Marshal(ToolCallResult{
			IsError: true,
			Content: []ContentItem{{Type: "text", Text: "Bid amount below reserve price"}},
		})
		require.NoError(t, err)

		msg, isErr := resultErrorText(raw)
		assert.True(t, isErr)
		assert.Equal(t, "Bid amount below reserve price", msg)
	})

	t.Run("successful result is not an error", func(t *testing.T) {
		_, isErr := resultErrorText(toolResult(t, "all good"))
		assert.False(t, isErr)
	})
}
