package hica

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// DefaultSystemPrompt is used when WithSystemPrompt is not set.
const DefaultSystemPrompt = "You are an autonomous agent. Your primary goal is to fulfill the user's request. " +
	"Carefully analyze the user's initial input and the results of any previous tool executions. " +
	"Based on this, select the appropriate tool(s) from the available list. " +
	"If the user's request has been fully addressed, respond with 'done'. " +
	"If you require further input or clarification, respond with 'clarification'."

const selectInstruction = "Based on the conversation and tool results, select the next action. " +
	"Avoid unnecessary tool calls: if the request is already fully addressed or can be answered directly, respond with 'done'. " +
	"Respond with 'clarification' if more information is needed from the user. " +
	"Otherwise choose strictly one of the listed tool intents. " +
	"Respond ONLY with the intent name, 'done', or 'clarification'."

const finalInstruction = "Based on the conversation history and tool execution results, " +
	"provide a clear and concise response to the user's original request. " +
	"Summarize the key findings or results in a user-friendly way."

// summaryKeepLast is the number of trailing events preserved verbatim by
// summarization compaction.
const summaryKeepLast = 5

// Agent drives the control loop: select an intent, synthesize parameters,
// dispatch the tool, record the result; repeat until the model answers
// "done" (final response) or "clarification" (pause for a human).
type Agent struct {
	provider Provider
	registry *ToolRegistry
	gateway  *Gateway
	store    ThreadStore
	logger   *slog.Logger
	tracer   Tracer

	systemPrompt string
	// maxEvents triggers summarization when the event count exceeds it;
	// 0 disables compaction entirely.
	maxEvents int
	keepLast  int
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(prompt string) AgentOption {
	return func(a *Agent) { a.systemPrompt = prompt }
}

// WithStore persists a snapshot of the thread after every state transition.
func WithStore(s ThreadStore) AgentOption {
	return func(a *Agent) { a.store = s }
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) AgentOption {
	return func(a *Agent) { a.logger = l }
}

// WithTracer enables span creation for loop iterations, gateway calls, and
// tool dispatch.
func WithTracer(t Tracer) AgentOption {
	return func(a *Agent) { a.tracer = t }
}

// WithSummarization compacts the event log on loop entry whenever it has
// grown past maxEvents. maxEvents must be positive.
func WithSummarization(maxEvents int) AgentOption {
	return func(a *Agent) { a.maxEvents = maxEvents }
}

// New creates an agent over provider and registry.
func New(provider Provider, registry *ToolRegistry, opts ...AgentOption) *Agent {
	a := &Agent{
		provider:     provider,
		registry:     registry,
		logger:       nopLogger,
		systemPrompt: DefaultSystemPrompt,
		keepLast:     summaryKeepLast,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = nopLogger
	}
	gwOpts := []GatewayOption{WithGatewayLogger(a.logger)}
	if a.tracer != nil {
		gwOpts = append(gwOpts, WithGatewayTracer(a.tracer))
	}
	a.gateway = NewGateway(provider, registry, a.systemPrompt, gwOpts...)
	return a
}

// Execute runs the loop on thread until it terminates with a final response,
// pauses for clarification, or fails with a typed error. Snapshots are
// persisted to the configured store after every transition.
func (a *Agent) Execute(ctx context.Context, thread *Thread) error {
	return a.run(ctx, thread, nil)
}

// ExecuteStream runs the loop like Execute and additionally sends a deep
// copy of the thread to ch after every state transition, starting with the
// initial state. ch is closed before returning. Sends respect ctx
// cancellation, so an abandoned consumer cannot wedge the loop.
func (a *Agent) ExecuteStream(ctx context.Context, thread *Thread, ch chan<- *Thread) error {
	defer close(ch)
	return a.run(ctx, thread, ch)
}

func (a *Agent) run(ctx context.Context, thread *Thread, ch chan<- *Thread) error {
	thread.EnsureID()
	logger := a.logger.With("thread_id", thread.ThreadID)

	if a.tracer != nil {
		var span Span
		ctx, span = a.tracer.Start(ctx, "agent.loop", StringAttr("thread_id", thread.ThreadID))
		defer span.End()
	}

	yield := func() error {
		if a.store != nil {
			if err := a.store.Set(ctx, thread); err != nil {
				return err
			}
		}
		if ch != nil {
			select {
			case ch <- thread.Clone():
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	}

	logger.Info("agent loop started", "events", len(thread.Events))
	if err := yield(); err != nil {
		return err
	}

	if a.maxEvents > 0 && len(thread.Events) > a.maxEvents {
		if err := a.summarize(ctx, thread, logger); err != nil {
			return err
		}
		if err := yield(); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sel, err := a.selectIntent(ctx, thread)
		if err != nil {
			return err
		}
		if err := yield(); err != nil {
			return err
		}

		switch sel.Intent {
		case IntentDone:
			if err := a.finalResponse(ctx, thread); err != nil {
				return err
			}
			logger.Info("agent loop finished", "events", len(thread.Events))
			return yield()
		case IntentClarification:
			logger.Info("agent loop paused for clarification", "reason", sel.Reason)
			return yield()
		}

		def, ok := a.registry.Definition(sel.Intent)
		if !ok {
			// The selection schema's enum should make this unreachable.
			return &ErrInvalidSelection{Intent: sel.Intent}
		}

		args, err := a.fillParameters(ctx, thread, def)
		if err != nil {
			return err
		}
		if err := yield(); err != nil {
			return err
		}

		thread.AddEvent(EventToolCall, map[string]any{
			"intent":    def.Name,
			"arguments": args,
		})
		result, err := a.registry.Execute(ctx, def.Name, args)
		if err != nil {
			// The tool_call event stays on the thread; the caller may
			// persist, repair, and re-enter the loop.
			return err
		}
		thread.AddEvent(EventToolResponse, map[string]any{
			"response": result.eventData(),
			"source":   "ToolRegistry",
		})
		logger.Debug("tool response recorded", "tool", def.Name)
		if err := yield(); err != nil {
			return err
		}
	}
}

// selection is the SELECT step's structured output.
type selection struct {
	Intent string `json:"intent"`
	Reason string `json:"reason"`
}

// selectIntent asks the model for the next intent and appends the selection
// as an llm_response event with step tool_selection.
func (a *Agent) selectIntent(ctx context.Context, thread *Thread) (selection, error) {
	raw, err := a.gateway.RunStructured(ctx, StructuredCall{
		Instruction: selectInstruction,
		Thread:      thread,
		Schema:      SelectionSchema(a.registry.Names()),
		AddEvent:    true,
		Step:        StepToolSelection,
	})
	if err != nil {
		return selection{}, err
	}
	var sel selection
	if err := json.Unmarshal(raw, &sel); err != nil {
		return selection{}, &ErrLLM{Provider: a.provider.Name(), Message: fmt.Sprintf("decode selection: %v", err)}
	}
	a.logger.Info("intent selected", "thread_id", thread.ThreadID, "intent", sel.Intent)
	return sel, nil
}

// fillParameters asks the model for arguments constrained by the tool's
// schema, validates them, and appends an llm_response event with step
// llm_parameters carrying {intent, arguments}.
func (a *Agent) fillParameters(ctx context.Context, thread *Thread, def ToolDefinition) (map[string]any, error) {
	schema, err := ParameterSchema(def)
	if err != nil {
		return nil, &ErrParameterValidation{Tool: def.Name, Cause: err}
	}

	instruction := fmt.Sprintf(
		"You have selected the tool: %s.\nDescription: %s\nParameters schema:\n%s\n"+
			"Considering the full conversation history and the most recent tool execution result, "+
			"provide ONLY the required parameters as per the schema above. "+
			"If the user's request implies using a previous result, use that result as an input.",
		def.Name, def.Description, string(def.Parameters))

	raw, err := a.gateway.RunStructured(ctx, StructuredCall{
		Instruction:   instruction,
		Thread:        thread,
		Schema:        schema,
		ParameterMode: true,
	})
	if err != nil {
		return nil, err
	}

	var filled map[string]any
	if err := json.Unmarshal(raw, &filled); err != nil {
		return nil, &ErrLLM{Provider: a.provider.Name(), Message: fmt.Sprintf("decode parameters: %v", err)}
	}

	// Restrict to declared properties; the model occasionally volunteers
	// extras despite the schema.
	args := map[string]any{}
	for name := range schema.Properties {
		if v, ok := filled[name]; ok {
			args[name] = v
		}
	}
	if err := a.registry.ValidateArguments(def.Name, args); err != nil {
		return nil, err
	}

	thread.AddStepEvent(EventLLMResponse, map[string]any{
		"intent":    def.Name,
		"arguments": args,
	}, StepLLMParameters)
	a.logger.Info("tool parameters filled", "thread_id", thread.ThreadID, "tool", def.Name)
	return args, nil
}

// finalResponse generates the user-facing answer and appends it as an
// llm_response event with step final_response, carrying the raw user_input
// and tool_response data for auditability.
func (a *Agent) finalResponse(ctx context.Context, thread *Thread) error {
	raw, err := a.gateway.RunStructured(ctx, StructuredCall{
		Instruction: finalInstruction,
		Thread:      thread,
		Schema:      FinalResponseSchema(),
	})
	if err != nil {
		return err
	}

	var resp struct {
		Message string  `json:"message"`
		Summary *string `json:"summary"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return &ErrLLM{Provider: a.provider.Name(), Message: fmt.Sprintf("decode final response: %v", err)}
	}

	rawResults := map[string]any{}
	for _, ev := range thread.Events {
		if ev.Type == EventUserInput || ev.Type == EventToolResponse {
			rawResults[string(ev.Type)] = ev.Data
		}
	}

	data := map[string]any{
		"intent":      IntentFinalResponse,
		"message":     resp.Message,
		"raw_results": rawResults,
	}
	if resp.Summary != nil {
		data["summary"] = *resp.Summary
	}
	thread.AddStepEvent(EventLLMResponse, data, StepFinalResponse)
	a.logger.Info("final response generated", "thread_id", thread.ThreadID)
	return nil
}
