package hica

import (
	"context"
	"encoding/json"
)

// RemoteTool describes one tool offered by a remote tool-protocol server.
type RemoteTool struct {
	Name        string
	Description string
	// InputSchema is the server-declared JSON-schema object for arguments.
	InputSchema json.RawMessage
}

// RemoteResult is the opaque result of a remote tool call. A server may
// return structured (machine-readable) content, display text blocks, or both.
type RemoteResult struct {
	Structured any
	Text       []string
	IsError    bool
}

// Connection manages a session with a remote tool-protocol server. A
// connection starts disconnected; Connect and Disconnect are idempotent.
// ListTools and CallTool fail with *ErrNotConnected unless connected.
//
// At most one call should be in flight per connection unless the underlying
// transport documents otherwise.
type Connection interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Connected() bool
	ListTools(ctx context.Context) ([]RemoteTool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (RemoteResult, error)
}

// WithConnection runs fn with conn connected and guarantees Disconnect on
// every exit path. The connect error, fn's error, or the disconnect error is
// returned, in that priority order.
func WithConnection(ctx context.Context, conn Connection, fn func(ctx context.Context) error) error {
	if err := conn.Connect(ctx); err != nil {
		return err
	}
	fnErr := fn(ctx)
	if err := conn.Disconnect(); fnErr == nil && err != nil {
		return err
	}
	return fnErr
}
