// Package mcp implements a client for a Model Context Protocol tool
// server reachable over HTTP.
//
// The wire format is JSON-RPC 2.0. A session identifier obtained from
// the initialize handshake is carried in the Mcp-Session-Id header on
// every subsequent call.
package mcp

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

// ProtocolVersion is the MCP protocol version this client declares.
const ProtocolVersion = "2024-11-05"

// JSONRPCVersion is the JSON-RPC 2.0 version string.
const JSONRPCVersion = "2.0"

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// idCounter disambiguates ids minted within the same millisecond.
var idCounter atomic.Int64

// nextID returns a time-based correlation id. The relay never pipelines
// concurrent calls against the same id space, so millisecond resolution
// plus a counter is unique enough.
func nextID() int64 {
	return time.Now().UnixMilli()*1000 + idCounter.Add(1)%1000
}

// InitializeParams contains the client's initialization parameters.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapability   `json:"capabilities"`
	ClientInfo      ImplementationInfo `json:"clientInfo"`
}

// ClientCapability describes what this client supports.
// The relay consumes tool results only, so the struct is empty.
type ClientCapability struct{}

// ImplementationInfo identifies an MCP implementation.
type ImplementationInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Tool describes a callable tool as reported by tools/list.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// ToolsListResult is the response for tools/list.
type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

// ToolCallParams contains the parameters for a tools/call request.
type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolCallResult is the response for tools/call.
type ToolCallResult struct {
	Content           []ContentItem   `json:"content"`
	IsError           bool            `json:"isError,omitempty"`
	StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
}

// ContentItem represents a single content item in a tool result.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// NewInitializeRequest builds the handshake request.
func NewInitializeRequest(info ImplementationInfo) *Request {
	return &Request{
		JSONRPC: JSONRPCVersion,
		ID:      nextID(),
		Method:  "initialize",
		Params: InitializeParams{
			ProtocolVersion: ProtocolVersion,
			ClientInfo:      info,
		},
	}
}

// NewToolsListRequest builds a capability discovery request.
func NewToolsListRequest() *Request {
	return &Request{
		JSONRPC: JSONRPCVersion,
		ID:      nextID(),
		Method:  "tools/list",
	}
}

// NewToolCallRequest builds a tool invocation request.
// name must be non-empty; arguments may be nil.
func NewToolCallRequest(name string, args map[string]any) (*Request, error) {
	if name == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	return &Request{
		JSONRPC: JSONRPCVersion,
		ID:      nextID(),
		Method:  "tools/call",
		Params:  ToolCallParams{Name: name, Arguments: args},
	}, nil
}

// DecodeResponse parses a raw response body into a Response.
// A malformed body is reported as a parse fault, distinct from a
// protocol-level error carried inside a well-formed envelope.
func DecodeResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{
			Kind:    FaultParse,
			Message: fmt.Sprintf("malformed response body: %v", err),
		}
	}
	return &resp, nil
}
