// Package mcp implements hica.Connection for Model Context Protocol servers
// spawned as subprocesses over stdio, using mark3labs/mcp-go for the
// protocol handshake and framing.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	mcpproto "github.com/mark3labs/mcp-go/mcp"

	"github.com/nevindra/hica"
)

// protocolVersion is the MCP revision negotiated during initialize.
const protocolVersion = "2024-11-05"

// Config describes how to launch and identify an MCP server subprocess.
type Config struct {
	// Command is the server executable; Args are passed verbatim.
	Command string
	Args    []string
	// Env entries are KEY=VALUE pairs added to the subprocess environment.
	Env []string
	// ClientName and ClientVersion identify this client in the handshake.
	// Defaults: "hica" / "dev".
	ClientName    string
	ClientVersion string
}

// ConnOption configures a Conn.
type ConnOption func(*Conn)

// WithLogger sets a structured logger for connection lifecycle and calls.
func WithLogger(l *slog.Logger) ConnOption {
	return func(c *Conn) { c.logger = l }
}

// Conn is a stdio MCP connection. It starts disconnected; Connect spawns the
// server process and performs the initialize handshake. Connect and
// Disconnect are idempotent, and tool operations on a disconnected Conn fail
// with *hica.ErrNotConnected.
//
// The protocol allows one in-flight request per session; Conn serializes
// calls with a mutex.
type Conn struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	client *client.Client
}

var _ hica.Connection = (*Conn)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a disconnected Conn for the given server config.
func New(cfg Config, opts ...ConnOption) *Conn {
	if cfg.ClientName == "" {
		cfg.ClientName = "hica"
	}
	if cfg.ClientVersion == "" {
		cfg.ClientVersion = "dev"
	}
	c := &Conn{cfg: cfg, logger: nopLogger}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Connect spawns the server and performs the MCP initialize handshake.
// Calling Connect on a connected Conn is a no-op.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return nil
	}

	mcpClient, err := client.NewStdioMCPClient(c.cfg.Command, c.cfg.Env, c.cfg.Args...)
	if err != nil {
		return fmt.Errorf("mcp: create client: %w", err)
	}
	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("mcp: start client: %w", err)
	}

	initReq := mcpproto.InitializeRequest{}
	initReq.Params.ClientInfo = mcpproto.Implementation{
		Name:    c.cfg.ClientName,
		Version: c.cfg.ClientVersion,
	}
	initReq.Params.ProtocolVersion = protocolVersion
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		_ = mcpClient.Close()
		return fmt.Errorf("mcp: initialize: %w", err)
	}

	c.client = mcpClient
	c.logger.Info("mcp: connected", "command", c.cfg.Command)
	return nil
}

// Disconnect closes the session and terminates the server subprocess.
// Calling Disconnect on a disconnected Conn is a no-op.
func (c *Conn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	c.logger.Info("mcp: disconnected", "command", c.cfg.Command)
	return err
}

// Connected reports whether the session is open.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil
}

// ListTools returns the tools offered by the server.
func (c *Conn) ListTools(ctx context.Context) ([]hica.RemoteTool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil, &hica.ErrNotConnected{Op: "list_tools"}
	}

	resp, err := c.client.ListTools(ctx, mcpproto.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp: list tools: %w", err)
	}

	tools := make([]hica.RemoteTool, 0, len(resp.Tools))
	for _, t := range resp.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("mcp: tool %q input schema: %w", t.Name, err)
		}
		tools = append(tools, hica.RemoteTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return tools, nil
}

// CallTool invokes a tool on the server. Text content blocks populate
// RemoteResult.Text; servers that return structured content populate
// RemoteResult.Structured.
func (c *Conn) CallTool(ctx context.Context, name string, args map[string]any) (hica.RemoteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return hica.RemoteResult{}, &hica.ErrNotConnected{Op: "call_tool"}
	}

	req := mcpproto.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := c.client.CallTool(ctx, req)
	if err != nil {
		return hica.RemoteResult{}, fmt.Errorf("mcp: call %q: %w", name, err)
	}

	out := hica.RemoteResult{IsError: resp.IsError}
	for _, content := range resp.Content {
		if text, ok := content.(mcpproto.TextContent); ok {
			out.Text = append(out.Text, text.Text)
		}
	}
	if resp.StructuredContent != nil {
		out.Structured = resp.StructuredContent
	}
	if resp.IsError {
		msg := "tool error"
		if len(out.Text) > 0 {
			msg = out.Text[0]
		}
		return out, &hica.ErrToolExecution{Tool: name, Cause: fmt.Errorf("%s", msg)}
	}
	return out, nil
}
