package mcp

import (
	"errors"
	"fmt"
	"strings"
)

// FaultKind classifies a failed call into the retry domains the client
// distinguishes. Callers should branch on Kind rather than matching
// message text; the substring shims live only in this file so they can
// be swapped when the remote protocol grows structured codes.
type FaultKind int

const (
	// FaultBusiness is a remote rejection of the operation itself
	// (e.g. an invalid bid). Never retried; the remote message is
	// preserved verbatim for the caller.
	FaultBusiness FaultKind = iota
	// FaultSession means the server no longer recognizes our session.
	// Eligible for one immediate re-handshake and retry.
	FaultSession
	// FaultGateway is an upstream/gateway failure. Eligible for one
	// retry after a short backoff, since the cause may be a stale
	// session held by an intermediary rather than a true outage.
	FaultGateway
	// FaultTransport is a network-level failure or an unexpected HTTP
	// status. Not retried.
	FaultTransport
	// FaultParse means the response body was not a well-formed
	// envelope. Not retried.
	FaultParse
)

func (k FaultKind) String() string {
	switch k {
	case FaultBusiness:
		return "business"
	case FaultSession:
		return "session"
	case FaultGateway:
		return "gateway"
	case FaultTransport:
		return "transport"
	case FaultParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is the typed failure surfaced by the client. Message always
// carries the underlying remote error text unmodified.
type Error struct {
	Kind    FaultKind
	Code    int
	Message string
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("mcp: %s fault (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("mcp: %s fault: %s", e.Kind, e.Message)
}

// KindOf extracts the fault kind from an error returned by this
// package, defaulting to FaultTransport for foreign errors.
func KindOf(err error) FaultKind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	return FaultTransport
}

// retryable reports whether a fault kind permits the single bounded
// retry after re-handshaking.
func (k FaultKind) retryable() bool {
	return k == FaultSession || k == FaultGateway
}

// sessionSignatures are the message fragments the remote server is
// known to emit when a session id is missing, invalid, or expired.
var sessionSignatures = []string{
	"no valid session",
	"invalid session",
	"session expired",
	"session not found",
	"missing session",
}

// gatewaySignatures identify gateway-level failures that have been
// observed when an intermediary holds a stale session.
var gatewaySignatures = []string{
	"bad gateway",
	"gateway timeout",
	"upstream unavailable",
}

// classifyMessage maps remote error text onto a fault kind.
// This is the compatibility shim for a remote contract that reports
// session expiry only through prose.
func classifyMessage(msg string) FaultKind {
	lower := strings.ToLower(msg)
	for _, sig := range sessionSignatures {
		if strings.Contains(lower, sig) {
			return FaultSession
		}
	}
	for _, sig := range gatewaySignatures {
		if strings.Contains(lower, sig) {
			return FaultGateway
		}
	}
	return FaultBusiness
}

// classifyEnvelopeError converts a protocol error object into a typed
// failure, preserving the remote message.
func classifyEnvelopeError(rpcErr *RPCError) *Error {
	return &Error{
		Kind:    classifyMessage(rpcErr.Message),
		Code:    rpcErr.Code,
		Message: rpcErr.Message,
	}
}

// classifyStatus converts an unexpected HTTP status into a typed
// failure. 502/503/504 are gateway faults; everything else is a plain
// transport failure.
func classifyStatus(status int, body string) *Error {
	kind := FaultTransport
	switch status {
	case 502, 503, 504:
		kind = FaultGateway
	}
	msg := fmt.Sprintf("unexpected status %d", status)
	if body != "" {
		msg += ": " + body
	}
	return &Error{Kind: kind, Message: msg}
}
