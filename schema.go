package hica

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ResponseSchema is the JSON-schema subset used for structured model output
// and tool parameter declarations. It marshals to a standard JSON Schema
// document.
type ResponseSchema struct {
	Type                 string                     `json:"type,omitempty"`
	Description          string                     `json:"description,omitempty"`
	Properties           map[string]*ResponseSchema `json:"properties,omitempty"`
	Required             []string                   `json:"required,omitempty"`
	Items                *ResponseSchema            `json:"items,omitempty"`
	Enum                 []string                   `json:"enum,omitempty"`
	Default              any                        `json:"default,omitempty"`
	AdditionalProperties *bool                      `json:"additionalProperties,omitempty"`
}

// knownSchemaTypes are the JSON-schema types carried through parameter schema
// mirroring; anything else becomes an opaque (unconstrained) value.
var knownSchemaTypes = map[string]bool{
	"string": true, "integer": true, "number": true, "boolean": true,
	"array": true, "object": true, "null": true,
}

// SelectionSchema builds the structured-output schema for the SELECT step:
// an intent restricted to the registered tool names plus the control
// literals, and a free-form reason.
func SelectionSchema(toolNames []string) *ResponseSchema {
	intents := make([]string, 0, len(toolNames)+2)
	intents = append(intents, toolNames...)
	intents = append(intents, IntentDone, IntentClarification)
	no := false
	return &ResponseSchema{
		Type: "object",
		Properties: map[string]*ResponseSchema{
			"intent": {Type: "string", Enum: intents},
			"reason": {Type: "string"},
		},
		Required:             []string{"intent", "reason"},
		AdditionalProperties: &no,
	}
}

// FinalResponseSchema builds the schema for the final synthesis step.
func FinalResponseSchema() *ResponseSchema {
	no := false
	return &ResponseSchema{
		Type: "object",
		Properties: map[string]*ResponseSchema{
			"message": {Type: "string"},
			"summary": {Type: "string"},
		},
		Required:             []string{"message"},
		AdditionalProperties: &no,
	}
}

// SummarySchema builds the schema for context summarization.
func SummarySchema() *ResponseSchema {
	no := false
	return &ResponseSchema{
		Type: "object",
		Properties: map[string]*ResponseSchema{
			"summary": {Type: "string"},
		},
		Required:             []string{"summary"},
		AdditionalProperties: &no,
	}
}

// ParameterSchema derives the structured-output schema for filling a tool's
// arguments. Properties mirror the tool's parameter schema exactly; unknown
// types become opaque values, and the required list is preserved.
func ParameterSchema(def ToolDefinition) (*ResponseSchema, error) {
	s := &ResponseSchema{Type: "object"}
	if len(def.Parameters) > 0 {
		if err := json.Unmarshal(def.Parameters, s); err != nil {
			return nil, fmt.Errorf("tool %q parameter schema: %w", def.Name, err)
		}
	}
	s.Type = "object"
	normalizeSchemaTypes(s)
	return s, nil
}

func normalizeSchemaTypes(s *ResponseSchema) {
	if s == nil {
		return
	}
	if s.Type != "" && !knownSchemaTypes[s.Type] {
		s.Type = ""
	}
	for _, p := range s.Properties {
		normalizeSchemaTypes(p)
	}
	normalizeSchemaTypes(s.Items)
}

// Validate checks a raw JSON document against the schema (draft 2020-12).
func (s *ResponseSchema) Validate(raw json.RawMessage) error {
	schemaJSON, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	return ValidateJSON(schemaJSON, raw)
}

// ValidateJSON validates instance against a JSON Schema document.
func ValidateJSON(schema, instance []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schema))
	if err != nil {
		return fmt.Errorf("parse schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := c.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(instance))
	if err != nil {
		return fmt.Errorf("parse instance: %w", err)
	}
	return compiled.Validate(inst)
}
