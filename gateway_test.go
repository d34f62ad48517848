package hica

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestBuildMessages(t *testing.T) {
	p := &scriptedProvider{responses: []string{`{}`}}
	r := NewToolRegistry()
	r.Register(newAddTool())
	g := NewGateway(p, r, "SYS")

	thread := NewThreadFromInput("add 2 and 3", nil)
	_, err := g.RunStructured(context.Background(), StructuredCall{
		Instruction:   "INSTR",
		Thread:        thread,
		Context:       "CTX",
		ParameterMode: true,
	})
	if err != nil {
		t.Fatalf("RunStructured: %v", err)
	}

	msgs := p.requests[0].Messages
	if len(msgs) != 3 {
		t.Fatalf("expected system + history + instruction, got %d messages", len(msgs))
	}
	system := msgs[0]
	if system.Role != RoleSystem {
		t.Fatalf("first message role = %q", system.Role)
	}
	wantSystem := "SYS\nAvailable tools:\n<tool> add : Add two numbers. </tool>\nCTX\n" + parameterFocus
	if system.Content != wantSystem {
		t.Fatalf("system message:\n got %q\nwant %q", system.Content, wantSystem)
	}
	if msgs[1].Role != RoleUser || msgs[1].Content != "add 2 and 3" {
		t.Fatalf("history message: %+v", msgs[1])
	}
	if msgs[2].Role != RoleUser || msgs[2].Content != "INSTR" {
		t.Fatalf("instruction message: %+v", msgs[2])
	}
	if p.requests[0].Temperature != 0 {
		t.Fatalf("temperature = %v, want 0", p.requests[0].Temperature)
	}
}

func TestProjectEvents(t *testing.T) {
	events := []Event{
		{Type: EventUserInput, Data: "add 2 and 3"},
		{Type: EventLLMResponse, Step: StepToolSelection, Data: map[string]any{"intent": "add", "reason": "arithmetic"}},
		{Type: EventLLMResponse, Step: StepLLMParameters, Data: map[string]any{"intent": "add", "arguments": map[string]any{"a": float64(2), "b": float64(3)}}},
		{Type: EventToolCall, Data: map[string]any{"intent": "add"}},
		{Type: EventToolResponse, Data: map[string]any{"response": "5"}},
		{Type: EventLLMResponse, Data: map[string]any{"intent": "done", "reason": "answered"}},
		{Type: EventLLMResponse, Data: map[string]any{"intent": "clarification", "reason": "which?"}},
		{Type: EventLLMResponse, Step: StepFinalResponse, Data: map[string]any{"intent": "final_response", "message": "The sum is 5."}},
		{Type: EventContextSummary, Data: "Summary of earlier interactions: arithmetic"},
	}

	want := []Message{
		UserMessage("add 2 and 3"),
		AssistantMessage(`Selected tool 'add' with parameters: {}`),
		AssistantMessage(`Selected tool 'add' with parameters: {"a":2,"b":3}`),
		// tool_call is skipped
		UserMessage(`Tool execution result: {"response":"5"}`),
		AssistantMessage("done"),
		AssistantMessage("clarification"),
		AssistantMessage("The sum is 5."),
		UserMessage("Summary of earlier interactions: arithmetic"),
	}
	got := projectEvents(events)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("projection mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestRunStructuredAddEvent(t *testing.T) {
	p := &scriptedProvider{responses: []string{`{"message":"hi","summary":null}`}}
	g := NewGateway(p, nil, "SYS")

	thread := NewThread()
	_, err := g.RunStructured(context.Background(), StructuredCall{
		Instruction: "go",
		Thread:      thread,
		AddEvent:    true,
		Step:        StepFinalResponse,
	})
	if err != nil {
		t.Fatalf("RunStructured: %v", err)
	}

	last, ok := thread.LastEvent()
	if !ok || last.Type != EventLLMResponse || last.Step != StepFinalResponse {
		t.Fatalf("event not recorded: %+v", last)
	}
	m, _ := last.DataMap()
	if m["message"] != "hi" {
		t.Fatalf("data = %v", m)
	}
	if _, present := m["summary"]; present {
		t.Fatal("null field must be dropped from event data")
	}
}

func TestRunStructuredSchemaViolation(t *testing.T) {
	p := &scriptedProvider{responses: []string{`{"intent":"ghost","reason":"r"}`}}
	g := NewGateway(p, nil, "SYS")

	_, err := g.RunStructured(context.Background(), StructuredCall{
		Instruction: "go",
		Schema:      SelectionSchema([]string{"add"}),
	})
	var llmErr *ErrLLM
	if !errors.As(err, &llmErr) {
		t.Fatalf("expected *ErrLLM, got %v", err)
	}
	if !strings.Contains(llmErr.Message, "schema validation") {
		t.Fatalf("unexpected message: %q", llmErr.Message)
	}
}

func TestRunStructuredProviderError(t *testing.T) {
	typed := &ErrLLM{Provider: "upstream", Message: "quota"}
	p := &scriptedProvider{err: typed}
	g := NewGateway(p, nil, "SYS")
	_, err := g.RunStructured(context.Background(), StructuredCall{Instruction: "go"})
	if !errors.Is(err, error(typed)) {
		t.Fatalf("typed provider error must pass through, got %v", err)
	}

	p2 := &scriptedProvider{err: fmt.Errorf("socket closed")}
	g2 := NewGateway(p2, nil, "SYS")
	_, err = g2.RunStructured(context.Background(), StructuredCall{Instruction: "go"})
	var llmErr *ErrLLM
	if !errors.As(err, &llmErr) || llmErr.Provider != "scripted" {
		t.Fatalf("plain provider error must be wrapped, got %v", err)
	}
}
