// Package pubsub provides a generic publish/subscribe event system.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// ToolCalledEvent is published when a tool invocation completes.
	ToolCalledEvent EventType = "tool_called"
	// RetryEvent is published when a tool call is retried after a
	// session or gateway fault.
	RetryEvent EventType = "retry"
	// MockFallbackEvent is published when the relay served a canned
	// response because the remote server was unreachable.
	MockFallbackEvent EventType = "mock_fallback"
	// LogEvent is published for every log entry written.
	LogEvent EventType = "log"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
