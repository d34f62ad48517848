package hica

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
)

const summaryInstruction = "Produce a concise summary of the conversation so far: " +
	"the key facts, decisions, and tool outcomes. The summary will replace the earlier events, " +
	"so include everything needed to continue the task."

// summarize compacts the event log: the model summarizes the full thread,
// then events becomes [context_summary] + the last keepLast events. This is
// the only operation that removes events; subsequent snapshots persist the
// compacted log.
func (a *Agent) summarize(ctx context.Context, thread *Thread, logger *slog.Logger) error {
	raw, err := a.gateway.RunStructured(ctx, StructuredCall{
		Instruction: summaryInstruction,
		Thread:      thread,
		Schema:      SummarySchema(),
	})
	if err != nil {
		return err
	}
	var out struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return &ErrLLM{Provider: a.provider.Name(), Message: fmt.Sprintf("decode summary: %v", err)}
	}

	keep := a.keepLast
	if keep > len(thread.Events) {
		keep = len(thread.Events)
	}
	tail := slices.Clone(thread.Events[len(thread.Events)-keep:])
	compacted := make([]Event, 0, keep+1)
	compacted = append(compacted, Event{
		Type: EventContextSummary,
		Data: "Summary of earlier interactions: " + out.Summary,
	})
	thread.Events = append(compacted, tail...)

	logger.Info("context summarized", "remaining_events", len(thread.Events))
	return nil
}
