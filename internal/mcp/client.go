package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dukaanlabs/dukaan/internal/log"
	"github.com/dukaanlabs/dukaan/internal/tracing"
)

// defaultGatewayBackoff separates the gateway retry from the immediate
// session retry: a true outage gets a breather instead of an instant
// second hit.
const defaultGatewayBackoff = 250 * time.Millisecond

// Config configures a Client.
type Config struct {
	// Endpoint is the tool server URL (required).
	Endpoint string
	// Token is sent as a bearer credential when non-empty.
	Token string
	// ClientInfo identifies this client in the handshake.
	ClientInfo ImplementationInfo
	// HTTPClient overrides the default client (30s timeout).
	HTTPClient *http.Client
	// Tracer records a span per tool call. Defaults to a no-op tracer.
	Tracer trace.Tracer
	// GatewayBackoff overrides the pause before a gateway-fault retry.
	GatewayBackoff time.Duration
	// OnRetry, when set, is invoked just before the single retry of a
	// tool call, with the tool name and the fault kind that caused it.
	OnRetry func(tool string, kind FaultKind)
}

// Client performs tool calls against the remote server, transparently
// recovering once from a session-invalid or gateway fault.
//
// For any call the caller observes exactly one success value or one
// error, produced by at most two network attempts (plus the handshakes
// that precede them).
type Client struct {
	tr             *transport
	session        *SessionManager
	tracer         trace.Tracer
	gatewayBackoff time.Duration
	onRetry        func(tool string, kind FaultKind)
}

// NewClient creates a client from the given config.
func NewClient(cfg Config) (*Client, error) {
	tr, err := newTransport(cfg.Endpoint, cfg.Token, cfg.HTTPClient)
	if err != nil {
		return nil, err
	}

	info := cfg.ClientInfo
	if info.Name == "" {
		info = ImplementationInfo{Name: "dukaan-relay", Version: "dev"}
	}

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("mcp")
	}

	backoff := cfg.GatewayBackoff
	if backoff == 0 {
		backoff = defaultGatewayBackoff
	}

	return &Client{
		tr:             tr,
		session:        NewSessionManager(tr, info),
		tracer:         tracer,
		gatewayBackoff: backoff,
		onRetry:        cfg.OnRetry,
	}, nil
}

// Session exposes the session manager, primarily for health reporting.
func (c *Client) Session() *SessionManager {
	return c.session
}

// CallTool invokes the named tool and returns its normalized payload.
//
// A session-invalid or gateway-classified protocol error on the first
// attempt invalidates the session, re-handshakes, and retries exactly
// once. A second failure of the same kind, and any other error, is
// returned as-is with the remote message intact.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (Payload, error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanPrefixMCP+name,
		trace.WithAttributes(attribute.String(tracing.AttrMCPToolName, name)))
	defer span.End()

	payload, attempts, err := c.callWithRetry(ctx, name, args)
	span.SetAttributes(attribute.Int(tracing.AttrMCPAttempts, attempts))
	if err != nil {
		span.SetAttributes(attribute.String(tracing.AttrMCPFaultKind, KindOf(err).String()))
		span.SetStatus(codes.Error, err.Error())
		return Payload{}, err
	}
	span.SetStatus(codes.Ok, "")
	return payload, nil
}

func (c *Client) callWithRetry(ctx context.Context, name string, args map[string]any) (Payload, int, error) {
	payload, err := c.attempt(ctx, name, args)
	if err == nil {
		return payload, 1, nil
	}

	kind := KindOf(err)
	if !kind.retryable() || errors.Is(err, errHandshake) {
		return Payload{}, 1, err
	}

	log.Warn(log.CatMCP, "retrying after fault", "tool", name, "kind", kind.String())
	if c.onRetry != nil {
		c.onRetry(name, kind)
	}
	c.session.Invalidate()

	if kind == FaultGateway {
		select {
		case <-time.After(c.gatewayBackoff):
		case <-ctx.Done():
			return Payload{}, 1, &Error{Kind: FaultTransport, Message: ctx.Err().Error()}
		}
	}

	payload, err = c.attempt(ctx, name, args)
	if err != nil {
		return Payload{}, 2, err
	}
	return payload, 2, nil
}

// errHandshake marks failures from the handshake itself, which are
// fatal for the call rather than retry-eligible.
var errHandshake = errors.New("handshake failed")

type handshakeError struct{ err error }

func (e *handshakeError) Error() string        { return e.err.Error() }
func (e *handshakeError) Unwrap() error        { return e.err }
func (e *handshakeError) Is(target error) bool { return target == errHandshake }

// attempt performs one full call: ensure session, send, classify.
func (c *Client) attempt(ctx context.Context, name string, args map[string]any) (Payload, error) {
	sessionID, err := c.session.Ensure(ctx)
	if err != nil {
		return Payload{}, &handshakeError{err: err}
	}

	req, err := NewToolCallRequest(name, args)
	if err != nil {
		return Payload{}, &Error{Kind: FaultBusiness, Message: err.Error()}
	}

	resp, _, err := c.tr.post(ctx, req, sessionID)
	if err != nil {
		return Payload{}, err
	}
	if resp.Error != nil {
		return Payload{}, classifyEnvelopeError(resp.Error)
	}
	if msg, isErr := resultErrorText(resp.Result); isErr {
		return Payload{}, &Error{Kind: classifyMessage(msg), Message: msg}
	}

	return ExtractPayload(resp.Result), nil
}

// ListTools performs capability discovery against the server.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	sessionID, err := c.session.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	resp, _, err := c.tr.post(ctx, NewToolsListRequest(), sessionID)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, classifyEnvelopeError(resp.Error)
	}

	var result ToolsListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, &Error{Kind: FaultParse, Message: err.Error()}
	}
	return result.Tools, nil
}
