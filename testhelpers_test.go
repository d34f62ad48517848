package hica

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// scriptedProvider returns canned JSON responses in order and records every
// request it receives.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []string
	requests  []StructuredRequest
	err       error
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) CreateStructured(_ context.Context, req StructuredRequest) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return nil, fmt.Errorf("scripted provider exhausted after %d calls", len(p.requests))
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return json.RawMessage(resp), nil
}

// fakeConn is an in-memory Connection serving a fixed tool list and result.
type fakeConn struct {
	mu        sync.Mutex
	connected bool
	tools     []RemoteTool
	result    RemoteResult
	callErr   error
	calls     []string
}

func (c *fakeConn) Connect(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = true
	return nil
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	return nil
}

func (c *fakeConn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeConn) ListTools(context.Context) ([]RemoteTool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil, &ErrNotConnected{Op: "list_tools"}
	}
	return c.tools, nil
}

func (c *fakeConn) CallTool(_ context.Context, name string, _ map[string]any) (RemoteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return RemoteResult{}, &ErrNotConnected{Op: "call_tool"}
	}
	c.calls = append(c.calls, name)
	if c.callErr != nil {
		return RemoteResult{}, c.callErr
	}
	return c.result, nil
}

// memStore is an in-memory ThreadStore that counts writes.
type memStore struct {
	mu      sync.Mutex
	threads map[string]*Thread
	sets    int
	setErr  error
}

func newMemStore() *memStore {
	return &memStore{threads: map[string]*Thread{}}
}

func (s *memStore) Set(_ context.Context, t *Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.sets++
	s.threads[t.ThreadID] = t.Clone()
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, ErrThreadNotFound
	}
	return t.Clone(), nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, id)
	return nil
}

func (s *memStore) All(_ context.Context) (map[string]*Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*Thread, len(s.threads))
	for k, v := range s.threads {
		out[k] = v.Clone()
	}
	return out, nil
}

// addArgs is the argument struct of the shared add tool.
type addArgs struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

func newAddTool() Tool {
	return NewFuncTool("add", "Add two numbers.", func(_ context.Context, args addArgs) (any, error) {
		return args.A + args.B, nil
	})
}

// errTool always fails.
type errTool struct{}

func (errTool) Definition() ToolDefinition {
	return ToolDefinition{Name: "boom", Description: "Always fails.", Parameters: json.RawMessage(`{"type":"object","properties":{}}`)}
}

func (errTool) Execute(context.Context, map[string]any) (any, error) {
	return nil, fmt.Errorf("kaput")
}

// richTool returns a ready-made ToolResult.
type richTool struct{}

func (richTool) Definition() ToolDefinition {
	return ToolDefinition{Name: "rich", Description: "Returns a full result.", Parameters: json.RawMessage(`{"type":"object","properties":{}}`)}
}

func (richTool) Execute(context.Context, map[string]any) (any, error) {
	return ToolResult{LLMContent: "llm", DisplayContent: "display", Raw: map[string]any{"k": "v"}}, nil
}
