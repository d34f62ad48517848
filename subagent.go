package hica

import (
	"context"
	"encoding/json"
	"fmt"
)

// subAgentTool exposes a nested agent as a tool: the executor creates a
// fresh thread from the task argument, drives the inner loop to completion,
// and returns the inner agent's final message. The nested thread id travels
// in the result's raw payload so both logs can be correlated.
type subAgentTool struct {
	name        string
	description string
	agent       *Agent
}

// NewSubAgentTool wraps agent as a Tool named name. The tool takes a single
// required "task" parameter. If the nested agent is constructed with a
// store, its threads are persisted like any other.
func NewSubAgentTool(name, description string, agent *Agent) Tool {
	return &subAgentTool{name: name, description: description, agent: agent}
}

func (t *subAgentTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        t.name,
		Description: t.description,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"task": {"type": "string", "description": "The task to delegate to the sub-agent."}
			},
			"required": ["task"],
			"additionalProperties": false
		}`),
	}
}

func (t *subAgentTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	task, _ := args["task"].(string)
	if task == "" {
		return nil, &ErrParameterValidation{Tool: t.name, Cause: fmt.Errorf("task must be a non-empty string")}
	}

	nested := NewThreadFromInput(task, map[string]any{"delegated_by": t.name})
	if err := t.agent.Execute(ctx, nested); err != nil {
		return nil, err
	}

	message := finalMessage(nested)
	if nested.AwaitingHumanResponse() {
		// The sub-agent cannot reach a human; surface its question as the
		// delegation result so the outer loop can decide what to do.
		message = "Sub-agent requested clarification: " + message
	}
	return ToolResult{
		LLMContent:     message,
		DisplayContent: message,
		Raw: map[string]any{
			"thread_id": nested.ThreadID,
			"message":   message,
			"events":    len(nested.Events),
		},
	}, nil
}

// finalMessage extracts the user-facing text from the last llm_response
// event of a completed thread.
func finalMessage(t *Thread) string {
	for i := len(t.Events) - 1; i >= 0; i-- {
		ev := t.Events[i]
		if ev.Type != EventLLMResponse {
			continue
		}
		m, ok := ev.DataMap()
		if !ok {
			continue
		}
		if msg, ok := m["message"].(string); ok && msg != "" {
			return msg
		}
		if reason, ok := m["reason"].(string); ok && reason != "" {
			return reason
		}
	}
	return ""
}
