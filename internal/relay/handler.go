// Package relay exposes the local HTTP API served to the shopping
// front-end. It forwards tool invocations to the remote server, shapes
// catalog responses into structured records, and falls back to canned
// responses when the remote is unreachable.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dukaanlabs/dukaan/internal/cachemanager"
	"github.com/dukaanlabs/dukaan/internal/catalog"
	"github.com/dukaanlabs/dukaan/internal/log"
	"github.com/dukaanlabs/dukaan/internal/mcp"
	"github.com/dukaanlabs/dukaan/internal/pubsub"
	"github.com/dukaanlabs/dukaan/internal/tracing"
)

// ToolCaller invokes a named tool against the remote server.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (mcp.Payload, error)
}

// SessionReporter exposes the current session id for health reporting.
type SessionReporter interface {
	Current() string
}

// Activity is the payload of relay events streamed over /api/events.
type Activity struct {
	RequestID  string `json:"requestId"`
	Tool       string `json:"tool"`
	Success    bool   `json:"success"`
	Mock       bool   `json:"mock,omitempty"`
	FaultKind  string `json:"faultKind,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// Handler provides the inbound HTTP endpoints.
type Handler struct {
	caller      ToolCaller
	session     SessionReporter
	mock        *MockResponder
	broker      *pubsub.Broker[Activity]
	tracer      trace.Tracer
	detailCache *cachemanager.ReadThroughCache[string, any, toolInvocation]
	cacheTTL    time.Duration
}

// HandlerConfig configures the relay handler.
type HandlerConfig struct {
	// Caller performs remote tool invocations. When nil the relay runs
	// in mock-only mode and every call is served from fixtures.
	Caller ToolCaller
	// Session reports session state for /api/health (optional).
	Session SessionReporter
	// Mock serves canned responses when the remote is unreachable
	// (optional; when nil, transport failures surface as errors).
	Mock *MockResponder
	// Tracer records a span per inbound request (optional).
	Tracer trace.Tracer
	// CacheEnabled turns on the read-through product-detail cache.
	CacheEnabled bool
	// CacheTTL is how long cached product details stay valid.
	CacheTTL time.Duration
}

// toolInvocation is the input passed through the read-through cache.
type toolInvocation struct {
	tool   string
	params map[string]any
}

// NewHandler creates the relay handler.
func NewHandler(cfg HandlerConfig) *Handler {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("relay")
	}

	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = cachemanager.DefaultExpiration
	}

	h := &Handler{
		caller:   cfg.Caller,
		session:  cfg.Session,
		mock:     cfg.Mock,
		broker:   pubsub.NewBroker[Activity](),
		tracer:   tracer,
		cacheTTL: ttl,
	}

	detailStore := cachemanager.NewInMemoryCacheManager[string, any](
		"product-details", ttl, cachemanager.DefaultCleanupInterval)
	h.detailCache = cachemanager.NewReadThroughCache[string, any, toolInvocation](
		detailStore, h.invoke, !cfg.CacheEnabled)

	return h
}

// Broker exposes the activity broker so other components (e.g. the MCP
// client's retry hook) can publish onto the same stream.
func (h *Handler) Broker() *pubsub.Broker[Activity] {
	return h.broker
}

// Routes returns an http.Handler with all API routes registered.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/tool", h.CallTool)
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /api/events", h.StreamEvents)

	return mux
}

// === Request/Response Types ===

// ToolRequest is the request body for a tool invocation.
type ToolRequest struct {
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params,omitempty"`
}

// ToolResponse is the uniform response envelope.
type ToolResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Mock    bool   `json:"mock,omitempty"`
}

// HealthResponse is the response body for health checks.
type HealthResponse struct {
	Status   string `json:"status"`
	Session  bool   `json:"session"`
	MockMode bool   `json:"mockMode"`
}

// === Handlers ===

// CallTool handles POST /api/tool.
func (h *Handler) CallTool(w http.ResponseWriter, r *http.Request) {
	var req ToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ToolResponse{Success: false, Error: "invalid JSON body"})
		return
	}
	if req.Tool == "" {
		h.writeJSON(w, http.StatusBadRequest, ToolResponse{Success: false, Error: "tool is required"})
		return
	}

	requestID := uuid.NewString()
	start := time.Now()

	ctx, span := h.tracer.Start(r.Context(), tracing.SpanPrefixRelay+"tool",
		trace.WithAttributes(
			attribute.String(tracing.AttrRequestID, requestID),
			attribute.String(tracing.AttrRequestTool, req.Tool),
		))
	defer span.End()

	log.Info(log.CatRelay, "tool requested", "requestId", requestID, "tool", req.Tool)

	resp := h.dispatch(ctx, req)
	span.SetAttributes(attribute.Bool(tracing.AttrMockServed, resp.Mock))
	if resp.Error != "" {
		span.SetAttributes(attribute.String(tracing.AttrErrorMessage, resp.Error))
	}

	activity := Activity{
		RequestID:  requestID,
		Tool:       req.Tool,
		Success:    resp.Success,
		Mock:       resp.Mock,
		Error:      resp.Error,
		DurationMs: time.Since(start).Milliseconds(),
	}
	eventType := pubsub.ToolCalledEvent
	if resp.Mock {
		eventType = pubsub.MockFallbackEvent
	}
	h.broker.Publish(eventType, activity)

	h.writeJSON(w, http.StatusOK, resp)
}

// dispatch runs one invocation end to end: remote call (through the
// detail cache where applicable), response shaping, and the mock
// fallback for unreachable-remote faults.
func (h *Handler) dispatch(ctx context.Context, req ToolRequest) ToolResponse {
	if h.caller == nil {
		return h.serveMock(req.Tool)
	}

	inv := toolInvocation{tool: req.Tool, params: req.Params}

	var data any
	var err error
	if slug, ok := detailCacheKey(req); ok {
		data, err = h.detailCache.Get(ctx, slug, inv, h.cacheTTL)
	} else {
		data, err = h.invoke(ctx, inv)
	}

	if err != nil {
		kind := mcp.KindOf(err)
		log.ErrorErr(log.CatRelay, "tool call failed", err, "tool", req.Tool, "kind", kind.String())

		// Canned responses stand in for an unreachable remote only.
		// Business rejections must reach the caller unchanged.
		if h.mock != nil && (kind == mcp.FaultTransport || kind == mcp.FaultGateway) {
			if resp := h.serveMock(req.Tool); resp.Success {
				return resp
			}
		}
		return ToolResponse{Success: false, Error: errorMessage(err)}
	}

	return ToolResponse{Success: true, Data: data}
}

// invoke performs the remote call and shapes the payload.
func (h *Handler) invoke(ctx context.Context, inv toolInvocation) (any, error) {
	payload, err := h.caller.CallTool(ctx, inv.tool, inv.params)
	if err != nil {
		return nil, err
	}
	return shapePayload(inv.tool, payload), nil
}

func (h *Handler) serveMock(tool string) ToolResponse {
	if h.mock == nil {
		return ToolResponse{Success: false, Error: fmt.Sprintf("tool server unavailable and no mock fixtures for %q", tool)}
	}
	data, ok := h.mock.Lookup(tool)
	if !ok {
		return ToolResponse{Success: false, Error: fmt.Sprintf("no mock fixture for tool %q", tool)}
	}
	log.Info(log.CatMock, "serving mock response", "tool", tool)
	return ToolResponse{Success: true, Data: data, Mock: true}
}

// detailCacheKey reports whether this request is cacheable by product
// slug. Records are safe to cache by their natural key.
func detailCacheKey(req ToolRequest) (string, bool) {
	if req.Tool != "get_product_details" {
		return "", false
	}
	slug, ok := req.Params["slug"].(string)
	if !ok || slug == "" {
		return "", false
	}
	return slug, true
}

// shapePayload turns an extracted payload into the response data. The
// catalog tools get their prose responses parsed into records so the
// front-end always receives structured data.
func shapePayload(tool string, payload mcp.Payload) any {
	switch tool {
	case "search_products":
		switch payload.Kind {
		case mcp.PayloadText:
			if records := catalog.ParseProductList(payload.Text); records != nil {
				return records
			}
			return payload.Text
		case mcp.PayloadList:
			if raw, err := json.Marshal(payload.List); err == nil {
				if records := catalog.ProductsFromJSON(raw); len(records) > 0 {
					return records
				}
			}
		case mcp.PayloadObject:
			if records := catalog.ProductsFromJSON(payload.Object); len(records) > 0 {
				return records
			}
		}
	case "get_product_details":
		if payload.Kind == mcp.PayloadText {
			if detail := catalog.ParseProductDetail(payload.Text); detail != nil {
				return detail
			}
			return payload.Text
		}
	}

	switch payload.Kind {
	case mcp.PayloadText:
		return payload.Text
	case mcp.PayloadList:
		return payload.List
	default:
		return payload.Object
	}
}

// errorMessage strips the internal fault prefix so callers see the
// remote text the way the remote produced it.
func errorMessage(err error) string {
	var me *mcp.Error
	if errors.As(err, &me) {
		return me.Message
	}
	return err.Error()
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		MockMode: h.caller == nil,
	}
	if h.session != nil {
		resp.Session = h.session.Current() != ""
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// StreamEvents handles GET /api/events: an SSE stream of relay
// activity, with heartbeat comments to keep the connection alive.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeJSON(w, http.StatusInternalServerError, ToolResponse{Success: false, Error: "streaming not supported"})
		return
	}

	events := h.broker.Subscribe(r.Context())

	_, _ = fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Payload)
			if err != nil {
				log.ErrorErr(log.CatRelay, "failed to marshal event", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.ErrorErr(log.CatRelay, "failed to encode JSON response", err)
	}
}

// === Server ===

// Server wraps the Handler with an http.Server for lifecycle management.
type Server struct {
	handler  *Handler
	server   *http.Server
	listener net.Listener
	port     int
}

// ServerConfig configures the relay server.
type ServerConfig struct {
	// Addr is the address to listen on (e.g. "127.0.0.1:8457").
	// Port 0 asks the OS for a free port; use Port() to read it back.
	Addr string
	// Handler is the configured relay handler (required).
	Handler *Handler
	// ReadTimeout bounds reading the entire request.
	ReadTimeout time.Duration
}

// NewServer creates the relay server and binds its listener.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	readTimeout := cfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}

	port := 0
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		port = tcpAddr.Port
	}

	return &Server{
		handler:  cfg.Handler,
		listener: listener,
		port:     port,
		server: &http.Server{
			Handler:           cfg.Handler.Routes(),
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			// No write timeout: /api/events is a long-lived stream.
		},
	}, nil
}

// Start serves requests. It blocks until the server stops or fails.
func (s *Server) Start() error {
	log.Info(log.CatRelay, "starting relay server", "addr", s.listener.Addr().String(), "port", s.port)
	return s.server.Serve(s.listener)
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	log.Info(log.CatRelay, "stopping relay server")
	s.handler.broker.Close()
	return s.server.Shutdown(ctx)
}

// Port returns the bound port, useful when Addr requested port 0.
func (s *Server) Port() int {
	return s.port
}
