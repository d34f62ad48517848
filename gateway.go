package hica

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// parameterFocus sharpens the system prompt for the FILL step.
const parameterFocus = "You are an expert at extracting parameters for tools. " +
	"Analyze the user's request and previous tool results to provide the correct parameters. " +
	"Use numbers directly from the request or the most recent tool result if implied."

// Gateway is the single path for structured model interactions. It composes
// the system prompt with the registry's tool catalog, projects the thread's
// events into chat messages, invokes the provider at temperature 0, and
// validates the response against the request schema.
type Gateway struct {
	provider     Provider
	registry     *ToolRegistry
	systemPrompt string
	logger       *slog.Logger
	tracer       Tracer
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGatewayLogger sets the structured logger for gateway calls.
func WithGatewayLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = l }
}

// WithGatewayTracer sets the tracer for gateway spans.
func WithGatewayTracer(t Tracer) GatewayOption {
	return func(g *Gateway) { g.tracer = t }
}

// NewGateway creates a gateway over provider. registry may be nil for
// catalog-free calls (e.g. summarization-only use).
func NewGateway(provider Provider, registry *ToolRegistry, systemPrompt string, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		provider:     provider,
		registry:     registry,
		systemPrompt: systemPrompt,
		logger:       nopLogger,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = nopLogger
	}
	return g
}

// StructuredCall describes one gateway invocation.
type StructuredCall struct {
	// Instruction is the final user message directing this call.
	Instruction string
	// Thread, when set, contributes its events as conversation history.
	Thread *Thread
	// Context is an optional extra block appended to the system message.
	Context string
	// Schema constrains and validates the model output.
	Schema *ResponseSchema
	// AddEvent appends the validated response to Thread as an llm_response
	// event (absent optional fields excluded), labeled with Step.
	AddEvent bool
	Step     string
	// ParameterMode appends the parameter-extraction focus to the system
	// message (used by the FILL step).
	ParameterMode bool
}

// RunStructured performs a structured model call and returns the validated
// raw JSON response. Provider failures and schema violations surface as
// *ErrLLM.
func (g *Gateway) RunStructured(ctx context.Context, call StructuredCall) (json.RawMessage, error) {
	if g.tracer != nil {
		var span Span
		ctx, span = g.tracer.Start(ctx, "llm.structured", StringAttr("step", call.Step))
		defer span.End()
	}

	msgs := g.buildMessages(call)
	g.logger.Debug("llm call", "provider", g.provider.Name(), "messages", len(msgs), "step", call.Step)

	raw, err := g.provider.CreateStructured(ctx, StructuredRequest{
		Messages:    msgs,
		Schema:      call.Schema,
		Temperature: 0,
	})
	if err != nil {
		var llmErr *ErrLLM
		if errors.As(err, &llmErr) {
			return nil, err
		}
		return nil, &ErrLLM{Provider: g.provider.Name(), Message: err.Error()}
	}

	if call.Schema != nil {
		if err := call.Schema.Validate(raw); err != nil {
			g.logger.Error("llm response failed schema validation", "provider", g.provider.Name(), "error", err)
			return nil, &ErrLLM{Provider: g.provider.Name(), Message: fmt.Sprintf("schema validation: %v", err)}
		}
	}

	if call.AddEvent && call.Thread != nil {
		call.Thread.AddStepEvent(EventLLMResponse, decodeResponse(raw), call.Step)
	}
	return raw, nil
}

// buildMessages composes system prompt + catalog + context, the projected
// event history, and the instruction.
func (g *Gateway) buildMessages(call StructuredCall) []Message {
	system := g.systemPrompt
	if g.registry != nil {
		if catalog := g.registry.Catalog(); catalog != "" {
			system += "\nAvailable tools:\n" + catalog
		}
	}
	if call.Context != "" {
		system += "\n" + call.Context
	}
	if call.ParameterMode {
		system += "\n" + parameterFocus
	}

	msgs := []Message{SystemMessage(system)}
	if call.Thread != nil {
		msgs = append(msgs, projectEvents(call.Thread.Events)...)
	}
	msgs = append(msgs, UserMessage(call.Instruction))
	return msgs
}

// projectEvents maps thread events onto chat messages. tool_call events are
// omitted: the llm_parameters event already carries the same intent and
// arguments.
func projectEvents(events []Event) []Message {
	var msgs []Message
	for _, ev := range events {
		switch ev.Type {
		case EventUserInput:
			msgs = append(msgs, UserMessage(stringCoerce(ev.Data)))
		case EventLLMResponse:
			msgs = append(msgs, projectLLMResponse(ev))
		case EventToolResponse:
			msgs = append(msgs, UserMessage("Tool execution result: "+stringCoerce(ev.Data)))
		case EventContextSummary:
			msgs = append(msgs, UserMessage(stringCoerce(ev.Data)))
		}
	}
	return msgs
}

func projectLLMResponse(ev Event) Message {
	m, ok := ev.DataMap()
	if !ok {
		return AssistantMessage(stringCoerce(ev.Data))
	}
	intent, ok := m["intent"].(string)
	if !ok {
		return AssistantMessage(stringCoerce(ev.Data))
	}
	switch intent {
	case IntentDone, IntentClarification:
		return AssistantMessage(intent)
	case IntentFinalResponse:
		if msg, ok := m["message"].(string); ok {
			return AssistantMessage(msg)
		}
		return AssistantMessage(stringCoerce(ev.Data))
	default:
		args := m["arguments"]
		if args == nil {
			args = map[string]any{}
		}
		return AssistantMessage(fmt.Sprintf("Selected tool '%s' with parameters: %s", intent, stringCoerce(args)))
	}
}

// decodeResponse parses a validated response into event data, dropping
// absent optional fields (JSON nulls).
func decodeResponse(raw json.RawMessage) any {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		var v any
		if json.Unmarshal(raw, &v) == nil {
			return v
		}
		return string(raw)
	}
	for k, v := range m {
		if v == nil {
			delete(m, k)
		}
	}
	return m
}
