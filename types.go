package hica

// EventType classifies a single step in a conversation thread.
type EventType string

// Event types produced by the agent loop and by callers.
const (
	// EventUserInput is a message from the human user.
	EventUserInput EventType = "user_input"
	// EventLLMResponse is a structured model output (selection, parameter
	// fill, or final response).
	EventLLMResponse EventType = "llm_response"
	// EventToolCall records the intent and arguments of a dispatched tool.
	EventToolCall EventType = "tool_call"
	// EventToolResponse records the normalized result of a tool execution.
	EventToolResponse EventType = "tool_response"
	// EventContextSummary replaces compacted history after summarization.
	EventContextSummary EventType = "context_summary"
)

// Step labels attached to llm_response events, identifying which phase of the
// loop produced them.
const (
	StepToolSelection = "tool_selection"
	StepLLMParameters = "llm_parameters"
	StepFinalResponse = "final_response"
)

// Control intents. Any other intent names a registered tool.
const (
	IntentDone          = "done"
	IntentClarification = "clarification"
	IntentFinalResponse = "final_response"
)

// Event is one entry in a thread's append-only log. Data holds any
// JSON-representable value; the shape depends on Type (see the event type
// constants). Step is an optional label set by the agent loop.
type Event struct {
	Type EventType `json:"type"`
	Step string    `json:"step,omitempty"`
	Data any       `json:"data"`
}

// DataMap returns the event data as a string-keyed mapping, if it is one.
// JSON deserialization produces map[string]any for object-shaped data.
func (e Event) DataMap() (map[string]any, bool) {
	m, ok := e.Data.(map[string]any)
	return m, ok
}

// Intent returns the intent field of mapping-shaped event data, if present.
func (e Event) Intent() (string, bool) {
	m, ok := e.DataMap()
	if !ok {
		return "", false
	}
	intent, ok := m["intent"].(string)
	return intent, ok
}
