package hica

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorUnwrapping(t *testing.T) {
	cause := fmt.Errorf("disk full")
	var storeErr error = &ErrStoreIO{Backend: "file", Op: "set", ID: "t1", Cause: cause}
	if !errors.Is(storeErr, cause) {
		t.Fatal("ErrStoreIO must unwrap its cause")
	}

	var execErr error = fmt.Errorf("dispatch: %w", &ErrToolExecution{Tool: "add", Cause: cause})
	var te *ErrToolExecution
	if !errors.As(execErr, &te) || te.Tool != "add" {
		t.Fatalf("errors.As failed on wrapped ErrToolExecution: %v", execErr)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"0", 0},
		{"-3", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		if got := ParseRetryAfter(tt.in); got != tt.want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&ErrUnknownTool{Name: "nope"}, `unknown tool "nope"`},
		{&ErrNotConnected{Op: "call_tool"}, "call_tool: connection not established"},
		{&ErrLLM{Provider: "openai", Message: "timeout"}, "llm openai: timeout"},
		{&ErrInvalidSelection{Intent: "ghost"}, `invalid selection intent "ghost"`},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}
