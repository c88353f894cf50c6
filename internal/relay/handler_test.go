package relay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukaanlabs/dukaan/internal/catalog"
	"github.com/dukaanlabs/dukaan/internal/mcp"
)

// fakeCaller scripts CallTool responses and counts invocations.
type fakeCaller struct {
	calls atomic.Int64
	fn    func(name string, args map[string]any) (mcp.Payload, error)
}

func (f *fakeCaller) CallTool(_ context.Context, name string, args map[string]any) (mcp.Payload, error) {
	f.calls.Add(1)
	return f.fn(name, args)
}

type fakeSession struct{ id string }

func (f *fakeSession) Current() string { return f.id }

func postTool(t *testing.T, h *Handler, body string) (*httptest.ResponseRecorder, ToolResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/tool", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	var resp ToolResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestCallToolEndpoint(t *testing.T) {
	t.Run("markdown search response is parsed into records", func(t *testing.T) {
		caller := &fakeCaller{fn: func(name string, args map[string]any) (mcp.Payload, error) {
			assert.Equal(t, "search_products", name)
			assert.Equal(t, "lipstick", args["query"])
			return mcp.TextPayload("**1. Lakme Lipstick**\n**Slug:** `lakme-lip-1`\n**Price:** ₹499\n"), nil
		}}
		h := NewHandler(HandlerConfig{Caller: caller})

		rec, resp := postTool(t, h, `{"tool":"search_products","params":{"query":"lipstick"}}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, resp.Success)
		assert.False(t, resp.Mock)

		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		var records []catalog.ProductRecord
		require.NoError(t, json.Unmarshal(raw, &records))
		require.Len(t, records, 1)
		assert.Equal(t, "lakme-lip-1", records[0].Slug)
		assert.Equal(t, 499, records[0].Effective)
	})

	t.Run("business error surfaces the remote message without mock fallback", func(t *testing.T) {
		caller := &fakeCaller{fn: func(string, map[string]any) (mcp.Payload, error) {
			return mcp.Payload{}, &mcp.Error{Kind: mcp.FaultBusiness, Message: "Bid amount below reserve price"}
		}}
		mock, err := NewMockResponder("")
		require.NoError(t, err)
		defer func() { _ = mock.Close() }()

		h := NewHandler(HandlerConfig{Caller: caller, Mock: mock})

		rec, resp := postTool(t, h, `{"tool":"search_products","params":{}}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, resp.Success)
		assert.Equal(t, "Bid amount below reserve price", resp.Error)
		assert.False(t, resp.Mock)
	})

	t.Run("transport failure falls back to mock fixtures", func(t *testing.T) {
		caller := &fakeCaller{fn: func(string, map[string]any) (mcp.Payload, error) {
			return mcp.Payload{}, &mcp.Error{Kind: mcp.FaultTransport, Message: "dial tcp: connection refused"}
		}}
		mock, err := NewMockResponder("")
		require.NoError(t, err)
		defer func() { _ = mock.Close() }()

		h := NewHandler(HandlerConfig{Caller: caller, Mock: mock})

		_, resp := postTool(t, h, `{"tool":"search_products","params":{}}`)
		require.True(t, resp.Success)
		assert.True(t, resp.Mock)
		assert.NotNil(t, resp.Data)
	})

	t.Run("transport failure without a fixture stays an error", func(t *testing.T) {
		caller := &fakeCaller{fn: func(string, map[string]any) (mcp.Payload, error) {
			return mcp.Payload{}, &mcp.Error{Kind: mcp.FaultTransport, Message: "dial tcp: connection refused"}
		}}
		mock, err := NewMockResponder("")
		require.NoError(t, err)
		defer func() { _ = mock.Close() }()

		h := NewHandler(HandlerConfig{Caller: caller, Mock: mock})

		_, resp := postTool(t, h, `{"tool":"verify_otp","params":{}}`)
		assert.False(t, resp.Success)
		assert.Equal(t, "dial tcp: connection refused", resp.Error)
	})

	t.Run("mock-only mode serves fixtures directly", func(t *testing.T) {
		mock, err := NewMockResponder("")
		require.NoError(t, err)
		defer func() { _ = mock.Close() }()

		h := NewHandler(HandlerConfig{Mock: mock})

		_, resp := postTool(t, h, `{"tool":"get_categories"}`)
		require.True(t, resp.Success)
		assert.True(t, resp.Mock)
	})

	t.Run("product details are cached by slug", func(t *testing.T) {
		caller := &fakeCaller{fn: func(string, map[string]any) (mcp.Payload, error) {
			return mcp.TextPayload("**Name:** Serum\n**Price:** ₹1,200\n**Product Slug:** serum-x\n"), nil
		}}
		h := NewHandler(HandlerConfig{Caller: caller, CacheEnabled: true, CacheTTL: time.Minute})

		_, first := postTool(t, h, `{"tool":"get_product_details","params":{"slug":"serum-x"}}`)
		require.True(t, first.Success)
		_, second := postTool(t, h, `{"tool":"get_product_details","params":{"slug":"serum-x"}}`)
		require.True(t, second.Success)

		assert.Equal(t, int64(1), caller.calls.Load())
	})

	t.Run("cache disabled hits the remote every time", func(t *testing.T) {
		caller := &fakeCaller{fn: func(string, map[string]any) (mcp.Payload, error) {
			return mcp.TextPayload("**Name:** Serum\n**Product Slug:** serum-x\n"), nil
		}}
		h := NewHandler(HandlerConfig{Caller: caller, CacheEnabled: false})

		postTool(t, h, `{"tool":"get_product_details","params":{"slug":"serum-x"}}`)
		postTool(t, h, `{"tool":"get_product_details","params":{"slug":"serum-x"}}`)

		assert.Equal(t, int64(2), caller.calls.Load())
	})

	t.Run("missing tool name is rejected", func(t *testing.T) {
		h := NewHandler(HandlerConfig{Caller: &fakeCaller{fn: func(string, map[string]any) (mcp.Payload, error) {
			t.Fatal("caller must not run")
			return mcp.Payload{}, nil
		}}})

		rec, resp := postTool(t, h, `{"params":{}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, resp.Success)
	})

	t.Run("invalid JSON body is rejected", func(t *testing.T) {
		h := NewHandler(HandlerConfig{})
		rec, resp := postTool(t, h, `{"tool":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, resp.Success)
	})

	t.Run("non-catalog tools pass the payload through", func(t *testing.T) {
		caller := &fakeCaller{fn: func(string, map[string]any) (mcp.Payload, error) {
			return mcp.ObjectPayload(json.RawMessage(`{"ok":true,"orderId":"ord_1"}`)), nil
		}}
		h := NewHandler(HandlerConfig{Caller: caller})

		_, resp := postTool(t, h, `{"tool":"place_order","params":{}}`)
		require.True(t, resp.Success)

		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true,"orderId":"ord_1"}`, string(raw))
	})
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("live session", func(t *testing.T) {
		h := NewHandler(HandlerConfig{
			Caller:  &fakeCaller{fn: func(string, map[string]any) (mcp.Payload, error) { return mcp.Payload{}, nil }},
			Session: &fakeSession{id: "sess-1"},
		})

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, req)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.True(t, resp.Session)
		assert.False(t, resp.MockMode)
	})

	t.Run("mock-only mode", func(t *testing.T) {
		h := NewHandler(HandlerConfig{})

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, req)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.MockMode)
		assert.False(t, resp.Session)
	})
}

func TestStreamEvents(t *testing.T) {
	caller := &fakeCaller{fn: func(string, map[string]any) (mcp.Payload, error) {
		return mcp.TextPayload("ok"), nil
	}}
	h := NewHandler(HandlerConfig{Caller: caller})

	ts := httptest.NewServer(h.Routes())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	// Drain the connected event's data and separator lines.
	_, _ = reader.ReadString('\n')
	_, _ = reader.ReadString('\n')

	// A tool call publishes an activity event onto the stream.
	_, toolResp := postTool(t, h, `{"tool":"search_products","params":{}}`)
	require.True(t, toolResp.Success)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: tool_called\n", line)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "))

	var activity Activity
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &activity))
	assert.Equal(t, "search_products", activity.Tool)
	assert.True(t, activity.Success)
	assert.NotEmpty(t, activity.RequestID)
}

func TestServerLifecycle(t *testing.T) {
	h := NewHandler(HandlerConfig{})
	srv, err := NewServer(ServerConfig{Addr: "127.0.0.1:0", Handler: h})
	require.NoError(t, err)
	require.NotZero(t, srv.Port())

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", srv.Port())
	require.Eventually(t, func() bool {
		resp, err := http.Get(baseURL + "/api/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))

	err = <-done
	assert.ErrorIs(t, err, http.ErrServerClosed)
}
