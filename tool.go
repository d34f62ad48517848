package hica

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ToolDefinition describes a tool to the model: its name, description, and a
// JSON-schema object declaring its parameters (properties + required).
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolResult is the normalized output of any tool dispatch.
type ToolResult struct {
	// LLMContent is compact text or JSON suitable for the next prompt.
	LLMContent string `json:"llm_content"`
	// DisplayContent is the human-facing rendering.
	DisplayContent string `json:"display_content"`
	// Raw is the original value prior to normalization, opaque to the loop.
	Raw any `json:"raw_result,omitempty"`
}

// eventData renders the result for a tool_response event, with Raw passed
// through result normalization so the event log stays JSON-representable.
func (r ToolResult) eventData() map[string]any {
	data := map[string]any{
		"llm_content":     r.LLMContent,
		"display_content": r.DisplayContent,
	}
	if r.Raw != nil {
		data["raw_result"] = NormalizeResult(r.Raw)
	}
	return data
}

// Tool is a local capability dispatched by the registry. Execute may return
// either a ToolResult or a bare value; bare values are wrapped into a
// ToolResult at dispatch so the event log stays uniform.
type Tool interface {
	Definition() ToolDefinition
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// funcTool adapts a typed Go function into a Tool, deriving the parameter
// schema from the argument struct.
type funcTool struct {
	def  ToolDefinition
	call func(ctx context.Context, args map[string]any) (any, error)
}

func (t *funcTool) Definition() ToolDefinition { return t.def }

func (t *funcTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	return t.call(ctx, args)
}

// NewFuncTool wraps fn as a Tool. The parameter schema is derived by
// reflecting the Args struct: json tags name the properties, jsonschema tags
// add descriptions, and fields without omitempty are required.
//
//	hica.NewFuncTool("add", "Add two numbers.",
//		func(ctx context.Context, args struct {
//			A float64 `json:"a" jsonschema:"description=first operand"`
//			B float64 `json:"b"`
//		}) (any, error) {
//			return args.A + args.B, nil
//		})
func NewFuncTool[Args any](name, description string, fn func(ctx context.Context, args Args) (any, error)) Tool {
	return &funcTool{
		def: ToolDefinition{
			Name:        name,
			Description: description,
			Parameters:  reflectParameters[Args](),
		},
		call: func(ctx context.Context, args map[string]any) (any, error) {
			raw, err := json.Marshal(args)
			if err != nil {
				return nil, &ErrParameterValidation{Tool: name, Cause: err}
			}
			var typed Args
			if err := json.Unmarshal(raw, &typed); err != nil {
				return nil, &ErrParameterValidation{Tool: name, Cause: err}
			}
			return fn(ctx, typed)
		},
	}
}

// reflectParameters generates a JSON-schema object for the Args struct.
func reflectParameters[Args any]() json.RawMessage {
	reflector := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}
	schema := reflector.Reflect(new(Args))

	data, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	// Strip reflection metadata; the definition carries a bare schema object.
	delete(m, "$schema")
	delete(m, "$id")
	out, err := json.Marshal(m)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return out
}
