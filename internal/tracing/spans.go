package tracing

// Span attribute keys used across the relay.
const (
	// MCP attributes
	AttrMCPToolName  = "mcp.tool.name"
	AttrMCPAttempts  = "mcp.attempts"
	AttrMCPFaultKind = "mcp.fault.kind"

	// Relay API attributes
	AttrRequestID   = "relay.request.id"
	AttrRequestTool = "relay.request.tool"
	AttrMockServed  = "relay.mock.served"

	// Error attributes
	AttrErrorMessage = "error.message"
)

// Span name prefixes for consistent naming.
const (
	SpanPrefixMCP   = "mcp.tool."
	SpanPrefixRelay = "relay.api."
)
