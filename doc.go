// Package hica is the runtime core of an LLM-driven autonomous agent framework.
//
// It provides modular, interface-driven building blocks: a durable append-only
// conversation log (Thread), pluggable snapshot stores, a tool registry with
// local and remote (MCP) dispatch, a structured-output LLM gateway, and the
// agent control loop that ties them together.
//
// # Quick Start
//
// Build a registry, wire a provider, and run the loop:
//
//	registry := hica.NewToolRegistry()
//	registry.Register(hica.NewFuncTool("add", "Add two numbers.",
//		func(ctx context.Context, args struct {
//			A float64 `json:"a"`
//			B float64 `json:"b"`
//		}) (any, error) {
//			return args.A + args.B, nil
//		}))
//
//	provider := openaicompat.NewProvider(apiKey, model, baseURL)
//	store, _ := file.New("context")
//	agent := hica.New(provider, registry, hica.WithStore(store))
//
//	thread := hica.NewThreadFromInput("add 2 and 3", nil)
//	err := agent.Execute(ctx, thread)
//
// The loop repeatedly asks the model to select an intent (a tool name, "done",
// or "clarification"), synthesizes schema-constrained arguments, dispatches the
// tool, and records the normalized result on the thread. On "done" it produces
// a final response; on "clarification" it pauses so a human can answer. Append
// a new user_input event and re-run Execute to resume a paused thread.
//
// # Core Interfaces
//
//   - [Provider] — LLM backend producing schema-constrained JSON
//   - [ThreadStore] — snapshot persistence (store/file, store/sqlite, store/postgres, store/mongo)
//   - [Tool] — pluggable capability dispatched by the registry
//   - [Connection] — remote tool-protocol server (mcp package)
//   - [MemoryStore] — general key-value memory for prompts and context
//
// For incremental observation use [Agent.ExecuteStream], which emits a deep
// copy of the thread after every state transition.
package hica
