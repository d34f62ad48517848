package hica

import (
	"context"
	"encoding/json"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a provider chat request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage creates a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// StructuredRequest asks a provider for a single JSON value conforming to
// Schema. Temperature 0 is used throughout the loop for deterministic
// sampling.
type StructuredRequest struct {
	Messages    []Message
	Schema      *ResponseSchema
	Temperature float64
}

// Provider is an LLM backend capable of schema-constrained output. The
// returned value is the raw JSON document produced by the model; the gateway
// validates it against the request schema before use.
//
// Implementations should return *ErrHTTP for transport-level failures so the
// retry middleware can classify them, and *ErrLLM for everything else.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string
	// CreateStructured sends the messages and returns the model's JSON output.
	CreateStructured(ctx context.Context, req StructuredRequest) (json.RawMessage, error)
}
