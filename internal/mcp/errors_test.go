package mcp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		msg  string
		want FaultKind
	}{
		{"No valid session found", FaultSession},
		{"Invalid session ID", FaultSession},
		{"session expired, please reconnect", FaultSession},
		{"Session not found", FaultSession},
		{"missing session header", FaultSession},
		{"502 Bad Gateway", FaultGateway},
		{"Gateway Timeout", FaultGateway},
		{"upstream unavailable", FaultGateway},
		{"Bid amount below reserve price", FaultBusiness},
		{"OTP verification failed", FaultBusiness},
		{"", FaultBusiness},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, classifyMessage(tc.msg), "message %q", tc.msg)
	}
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, FaultGateway, classifyStatus(502, "").Kind)
	assert.Equal(t, FaultGateway, classifyStatus(503, "").Kind)
	assert.Equal(t, FaultGateway, classifyStatus(504, "").Kind)
	assert.Equal(t, FaultTransport, classifyStatus(500, "").Kind)
	assert.Equal(t, FaultTransport, classifyStatus(401, "unauthorized").Kind)

	err := classifyStatus(500, "internal failure")
	assert.Contains(t, err.Message, "internal failure")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, FaultSession, KindOf(&Error{Kind: FaultSession}))
	assert.Equal(t, FaultTransport, KindOf(errors.New("dial tcp: refused")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, FaultSession.retryable())
	assert.True(t, FaultGateway.retryable())
	assert.False(t, FaultBusiness.retryable())
	assert.False(t, FaultTransport.retryable())
	assert.False(t, FaultParse.retryable())
}

func TestErrorMessagePreservesRemoteText(t *testing.T) {
	err := classifyEnvelopeError(&RPCError{Code: -32000, Message: "Bid amount below reserve price"})
	assert.Equal(t, "Bid amount below reserve price", err.Message)
	assert.Contains(t, err.Error(), "Bid amount below reserve price")
}
