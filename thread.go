package hica

import (
	"encoding/json"
	"slices"
)

// Thread is the working memory of an agent: an append-only event log plus
// free-form metadata. Events are never removed or reordered except by
// summarization compaction. A Thread is not safe for concurrent mutation;
// callers serialize access per thread.
type Thread struct {
	ThreadID string         `json:"thread_id"`
	Events   []Event        `json:"events"`
	Metadata map[string]any `json:"metadata"`
}

// NewThread creates an empty thread with a fresh UUIDv4 id.
func NewThread() *Thread {
	return &Thread{
		ThreadID: NewID(),
		Events:   []Event{},
		Metadata: map[string]any{},
	}
}

// NewThreadFromInput creates a thread seeded with a single user_input event.
func NewThreadFromInput(input string, metadata map[string]any) *Thread {
	t := NewThread()
	if metadata != nil {
		t.Metadata = metadata
	}
	t.AddEvent(EventUserInput, input)
	return t
}

// EnsureID assigns a fresh id if the thread does not have one yet.
func (t *Thread) EnsureID() {
	if t.ThreadID == "" {
		t.ThreadID = NewID()
	}
}

// AddEvent appends a new event with the given type and data.
func (t *Thread) AddEvent(typ EventType, data any) {
	t.Events = append(t.Events, Event{Type: typ, Data: data})
}

// AddStepEvent appends a new event carrying a step label.
func (t *Thread) AddStepEvent(typ EventType, data any, step string) {
	t.Events = append(t.Events, Event{Type: typ, Step: step, Data: data})
}

// LastEvent returns the most recent event, or false on an empty thread.
func (t *Thread) LastEvent() (Event, bool) {
	if len(t.Events) == 0 {
		return Event{}, false
	}
	return t.Events[len(t.Events)-1], true
}

// AwaitingHumanResponse reports whether the thread is paused for human input:
// true iff the last event is an llm_response whose data intent is
// "clarification". Callers resume by appending a user_input event and
// re-entering the loop.
func (t *Thread) AwaitingHumanResponse() bool {
	last, ok := t.LastEvent()
	if !ok || last.Type != EventLLMResponse {
		return false
	}
	intent, ok := last.Intent()
	return ok && intent == IntentClarification
}

// SetContext stores a value in the thread's metadata.
func (t *Thread) SetContext(key string, value any) {
	if t.Metadata == nil {
		t.Metadata = map[string]any{}
	}
	t.Metadata[key] = value
}

// GetContext retrieves a metadata value, or nil when absent.
func (t *Thread) GetContext(key string) any {
	if t.Metadata == nil {
		return nil
	}
	return t.Metadata[key]
}

// ToJSON serializes the thread to its durable snapshot form. Round-tripping
// through ToJSON/ThreadFromJSON preserves every event's type, step label,
// and data.
func (t *Thread) ToJSON() ([]byte, error) {
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, &ErrSerialization{Cause: err}
	}
	return b, nil
}

// ThreadFromJSON deserializes a thread snapshot.
func ThreadFromJSON(b []byte) (*Thread, error) {
	var t Thread
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, &ErrSerialization{Cause: err}
	}
	if t.Events == nil {
		t.Events = []Event{}
	}
	if t.Metadata == nil {
		t.Metadata = map[string]any{}
	}
	return &t, nil
}

// Clone returns a deep copy of the thread. The agent loop emits clones on its
// snapshot channel so consumers never observe later mutations.
func (t *Thread) Clone() *Thread {
	if b, err := json.Marshal(t); err == nil {
		var c Thread
		if json.Unmarshal(b, &c) == nil {
			if c.Events == nil {
				c.Events = []Event{}
			}
			if c.Metadata == nil {
				c.Metadata = map[string]any{}
			}
			return &c
		}
	}
	// Non-JSON-representable data: fall back to a structural copy. Event data
	// values are shared, which is safe because the loop never mutates them
	// after append.
	c := &Thread{
		ThreadID: t.ThreadID,
		Events:   slices.Clone(t.Events),
		Metadata: map[string]any{},
	}
	for k, v := range t.Metadata {
		c.Metadata[k] = v
	}
	return c
}
