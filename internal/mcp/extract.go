package mcp

import (
	"bytes"
	"encoding/json"
)

// PayloadKind tags the normalized shape of a tool result.
type PayloadKind int

const (
	// PayloadText is prose (typically markdown) that did not parse as JSON.
	PayloadText PayloadKind = iota
	// PayloadList is a JSON array.
	PayloadList
	// PayloadObject is any other JSON value.
	PayloadObject
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadText:
		return "text"
	case PayloadList:
		return "list"
	case PayloadObject:
		return "object"
	default:
		return "unknown"
	}
}

// Payload is the tagged union every tool result is normalized into.
// Exactly one representation is populated, selected by Kind, so
// downstream consumers branch exhaustively instead of probing shapes.
type Payload struct {
	Kind   PayloadKind
	Text   string            // PayloadText
	List   []json.RawMessage // PayloadList
	Object json.RawMessage   // PayloadObject
}

// TextPayload wraps prose text.
func TextPayload(text string) Payload {
	return Payload{Kind: PayloadText, Text: text}
}

// ObjectPayload wraps a raw JSON value.
func ObjectPayload(raw json.RawMessage) Payload {
	return Payload{Kind: PayloadObject, Object: raw}
}

// ListPayload wraps a JSON array.
func ListPayload(items []json.RawMessage) Payload {
	return Payload{Kind: PayloadList, List: items}
}

// ExtractPayload normalizes the result field of a successful envelope.
//
// If the result carries typed content blocks and one is of kind "text",
// the text is JSON-parsed when possible; text that fails to parse is
// passed through unchanged (markdown prose is valid and expected).
// Results without a text block pass through as a raw object.
func ExtractPayload(result json.RawMessage) Payload {
	if len(result) == 0 {
		return ObjectPayload(nil)
	}

	var tr ToolCallResult
	if err := json.Unmarshal(result, &tr); err == nil {
		for _, item := range tr.Content {
			if item.Type == "text" {
				return classifyText(item.Text)
			}
		}
		if len(tr.StructuredContent) > 0 {
			return fromJSON(tr.StructuredContent)
		}
	}

	return ObjectPayload(result)
}

// classifyText attempts to treat a text block as embedded JSON,
// falling back to prose.
func classifyText(text string) Payload {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return TextPayload(text)
	}
	if !json.Valid(trimmed) {
		return TextPayload(text)
	}
	return fromJSON(trimmed)
}

func fromJSON(raw json.RawMessage) Payload {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err == nil {
			return ListPayload(items)
		}
	}
	return ObjectPayload(trimmed)
}

// resultErrorText pulls the text content out of an isError tool result
// so the remote failure message survives intact.
func resultErrorText(result json.RawMessage) (string, bool) {
	var tr ToolCallResult
	if err := json.Unmarshal(result, &tr); err != nil {
		return "", false
	}
	if !tr.IsError {
		return "", false
	}
	for _, item := range tr.Content {
		if item.Type == "text" && item.Text != "" {
			return item.Text, true
		}
	}
	return "tool call failed", true
}
