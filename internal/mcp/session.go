package mcp

import (
	"context"
	"sync"

	"github.com/dukaanlabs/dukaan/internal/log"
)

// NoSession is the sentinel stored when the server completes the
// handshake without assigning a session id in the response header.
const NoSession = "no-session"

// SessionManager owns the single session id for one server connection.
// It is the only component permitted to mutate the id. The handshake
// runs under the mutex, so concurrent callers wait on one in-flight
// handshake instead of each triggering their own.
type SessionManager struct {
	mu   sync.Mutex
	id   string
	tr   *transport
	info ImplementationInfo
}

// NewSessionManager creates a session manager for the given transport.
func NewSessionManager(tr *transport, info ImplementationInfo) *SessionManager {
	return &SessionManager{tr: tr, info: info}
}

// Ensure returns the current session id, performing the initialize
// handshake first if no session is held. Handshake failures propagate
// to the caller; there is no retry at this layer.
func (s *SessionManager) Ensure(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.id != "" {
		return s.id, nil
	}

	resp, header, err := s.tr.post(ctx, NewInitializeRequest(s.info), "")
	if err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", classifyEnvelopeError(resp.Error)
	}

	id := header.Get(SessionHeader)
	if id == "" {
		id = NoSession
	}
	s.id = id
	log.Info(log.CatSession, "handshake complete", "session", id)
	return id, nil
}

// Invalidate clears the held session id. Idempotent.
func (s *SessionManager) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id != "" {
		log.Debug(log.CatSession, "session invalidated", "session", s.id)
	}
	s.id = ""
}

// Current returns the held session id without triggering a handshake,
// or "" when no session is held.
func (s *SessionManager) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}
