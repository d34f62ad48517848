package hica

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestSelectionSchema(t *testing.T) {
	s := SelectionSchema([]string{"add", "search"})

	intent := s.Properties["intent"]
	if intent == nil {
		t.Fatal("missing intent property")
	}
	want := []string{"add", "search", "done", "clarification"}
	if !slices.Equal(intent.Enum, want) {
		t.Fatalf("enum = %v, want %v", intent.Enum, want)
	}

	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"tool intent", `{"intent":"add","reason":"arithmetic"}`, false},
		{"done", `{"intent":"done","reason":"answered"}`, false},
		{"clarification", `{"intent":"clarification","reason":"which file?"}`, false},
		{"unknown intent", `{"intent":"ghost","reason":"x"}`, true},
		{"missing reason", `{"intent":"add"}`, true},
		{"extra field", `{"intent":"add","reason":"x","extra":1}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Validate(json.RawMessage(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate(%s) error = %v, wantErr %v", tt.doc, err, tt.wantErr)
			}
		})
	}
}

func TestFinalResponseSchema(t *testing.T) {
	s := FinalResponseSchema()
	if err := s.Validate(json.RawMessage(`{"message":"done"}`)); err != nil {
		t.Fatalf("message-only doc rejected: %v", err)
	}
	if err := s.Validate(json.RawMessage(`{"message":"done","summary":"s"}`)); err != nil {
		t.Fatalf("doc with summary rejected: %v", err)
	}
	if err := s.Validate(json.RawMessage(`{"summary":"s"}`)); err == nil {
		t.Fatal("doc without message accepted")
	}
}

func TestSummarySchema(t *testing.T) {
	s := SummarySchema()
	if err := s.Validate(json.RawMessage(`{"summary":"earlier steps"}`)); err != nil {
		t.Fatalf("valid doc rejected: %v", err)
	}
	if err := s.Validate(json.RawMessage(`{}`)); err == nil {
		t.Fatal("doc without summary accepted")
	}
}

func TestParameterSchema(t *testing.T) {
	def := ToolDefinition{
		Name: "add",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"a": {"type": "number", "description": "first operand"},
				"b": {"type": "number"},
				"weird": {"type": "custom-opaque"}
			},
			"required": ["a", "b"]
		}`),
	}
	s, err := ParameterSchema(def)
	if err != nil {
		t.Fatalf("ParameterSchema: %v", err)
	}
	if s.Type != "object" {
		t.Fatalf("type = %q, want object", s.Type)
	}
	if got := s.Properties["a"].Description; got != "first operand" {
		t.Fatalf("description not mirrored: %q", got)
	}
	if !slices.Equal(s.Required, []string{"a", "b"}) {
		t.Fatalf("required = %v", s.Required)
	}
	// unknown types become unconstrained values
	if got := s.Properties["weird"].Type; got != "" {
		t.Fatalf("unknown type not cleared: %q", got)
	}

	if err := s.Validate(json.RawMessage(`{"a":2,"b":3}`)); err != nil {
		t.Fatalf("valid args rejected: %v", err)
	}
	if err := s.Validate(json.RawMessage(`{"a":2}`)); err == nil {
		t.Fatal("missing required arg accepted")
	}
	if err := s.Validate(json.RawMessage(`{"a":"two","b":3}`)); err == nil {
		t.Fatal("wrong-typed arg accepted")
	}
}

func TestParameterSchemaEmpty(t *testing.T) {
	s, err := ParameterSchema(ToolDefinition{Name: "noop"})
	if err != nil {
		t.Fatalf("ParameterSchema: %v", err)
	}
	if s.Type != "object" {
		t.Fatalf("type = %q, want object", s.Type)
	}
	if err := s.Validate(json.RawMessage(`{}`)); err != nil {
		t.Fatalf("empty object rejected: %v", err)
	}
}

func TestParameterSchemaMalformed(t *testing.T) {
	_, err := ParameterSchema(ToolDefinition{Name: "bad", Parameters: json.RawMessage(`{nope`)})
	if err == nil {
		t.Fatal("expected error for malformed parameter schema")
	}
}
