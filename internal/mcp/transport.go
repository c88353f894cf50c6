package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dukaanlabs/dukaan/internal/log"
)

const (
	// SessionHeader carries the session id on both directions.
	SessionHeader = "Mcp-Session-Id"

	defaultTimeout = 30 * time.Second

	// maxBodyBytes bounds how much of a response the relay will read.
	maxBodyBytes = 8 << 20
)

// transport performs a single HTTP round trip with the fixed MCP
// headers. It holds no session state; the caller supplies the id.
type transport struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

func newTransport(endpoint, token string, httpClient *http.Client) (*transport, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("mcp endpoint is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &transport{
		endpoint:   strings.TrimRight(endpoint, "/"),
		token:      token,
		httpClient: httpClient,
	}, nil
}

// post sends one envelope and decodes the reply. The returned header
// is the HTTP response header (the session id travels there, not in
// the JSON body). Network failures and unexpected statuses come back
// as *Error with a transport or gateway kind.
func (t *transport) post(ctx context.Context, req *Request, sessionID string) (*Response, http.Header, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, &Error{Kind: FaultParse, Message: fmt.Sprintf("encode request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, nil, &Error{Kind: FaultTransport, Message: err.Error()}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	if t.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.token)
	}
	if sessionID != "" && sessionID != NoSession {
		httpReq.Header.Set(SessionHeader, sessionID)
	}

	log.Debug(log.CatMCP, "sending envelope", "method", req.Method, "id", req.ID)

	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, &Error{Kind: FaultTransport, Message: err.Error()}
	}
	defer func() { _ = httpResp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, httpResp.Header, &Error{Kind: FaultTransport, Message: err.Error()}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		// A 404 while holding a session id means the server dropped the
		// session, not that the endpoint vanished.
		if httpResp.StatusCode == http.StatusNotFound && sessionID != "" {
			return nil, httpResp.Header, &Error{Kind: FaultSession, Message: "session expired or not found (HTTP 404)"}
		}
		return nil, httpResp.Header, classifyStatus(httpResp.StatusCode, strings.TrimSpace(string(raw)))
	}

	// Streamable HTTP servers may wrap the single response in an SSE
	// frame even for plain request/response calls.
	if strings.HasPrefix(httpResp.Header.Get("Content-Type"), "text/event-stream") {
		raw = firstEventData(raw)
	}

	resp, err := DecodeResponse(raw)
	if err != nil {
		return nil, httpResp.Header, err
	}
	return resp, httpResp.Header, nil
}

// firstEventData extracts the data payload of the first SSE event in
// the body. Multi-line data fields are joined with newlines per the
// SSE framing rules.
func firstEventData(body []byte) []byte {
	var data []string
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), maxBodyBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(data) > 0 {
				break
			}
			continue
		}
		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimPrefix(rest, " "))
		}
	}
	if len(data) == 0 {
		return body
	}
	return []byte(strings.Join(data, "\n"))
}
