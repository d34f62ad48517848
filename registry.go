package hica

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// ToolRegistry holds the tool catalog presented to the model and dispatches
// executions to local functions or remote connections. It keeps local and
// remote tools in separate maps plus a merged catalog for prompting; a later
// registration under an existing name overwrites the earlier one with a
// warning.
//
// All methods are safe for concurrent use.
type ToolRegistry struct {
	logger *slog.Logger
	tracer Tracer

	mu      sync.RWMutex
	local   map[string]Tool
	remote  map[string]remoteEntry
	catalog map[string]ToolDefinition
}

// remoteEntry binds a remote tool descriptor to its owning connection.
type remoteEntry struct {
	def  ToolDefinition
	conn Connection
}

// RegistryOption configures a ToolRegistry.
type RegistryOption func(*ToolRegistry)

// WithRegistryLogger sets the structured logger for registration and
// dispatch events.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *ToolRegistry) { r.logger = l }
}

// WithRegistryTracer sets the tracer for dispatch spans.
func WithRegistryTracer(t Tracer) RegistryOption {
	return func(r *ToolRegistry) { r.tracer = t }
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry(opts ...RegistryOption) *ToolRegistry {
	r := &ToolRegistry{
		logger:  nopLogger,
		local:   map[string]Tool{},
		remote:  map[string]remoteEntry{},
		catalog: map[string]ToolDefinition{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = nopLogger
	}
	return r
}

// Register adds local tools to the registry. A tool whose name is already
// registered (local or remote) replaces the earlier entry.
func (r *ToolRegistry) Register(tools ...Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		def := t.Definition()
		r.warnOverwrite(def.Name)
		delete(r.remote, def.Name)
		r.local[def.Name] = t
		r.catalog[def.Name] = def
		r.logger.Debug("tool registered", "tool", def.Name, "origin", "local")
	}
}

// RegisterRemote lists the tools offered by conn and inserts descriptors
// bound to it. The connection must already be connected; it stays open for
// later dispatch.
func (r *ToolRegistry) RegisterRemote(ctx context.Context, conn Connection) error {
	tools, err := conn.ListTools(ctx)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		def := ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.InputSchema,
		}
		r.warnOverwrite(def.Name)
		delete(r.local, def.Name)
		r.remote[def.Name] = remoteEntry{def: def, conn: conn}
		r.catalog[def.Name] = def
		r.logger.Debug("tool registered", "tool", def.Name, "origin", "remote")
	}
	return nil
}

// warnOverwrite logs when a registration shadows an existing catalog entry.
// Caller holds r.mu.
func (r *ToolRegistry) warnOverwrite(name string) {
	if _, exists := r.catalog[name]; exists {
		r.logger.Warn("tool overwritten by later registration", "tool", name)
	}
}

// Definition returns the catalog entry for name.
func (r *ToolRegistry) Definition(name string) (ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.catalog[name]
	return def, ok
}

// Definitions returns a copy of the merged catalog.
func (r *ToolRegistry) Definitions() map[string]ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ToolDefinition, len(r.catalog))
	for k, v := range r.catalog {
		out[k] = v
	}
	return out
}

// Names returns the catalog's tool names in sorted order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.catalog))
	for name := range r.catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog renders the tool list for the system prompt, one tool per line as
// "<tool> name : description </tool>".
func (r *ToolRegistry) Catalog() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.catalog))
	for name := range r.catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('\n')
		}
		desc := r.catalog[name].Description
		if desc == "" {
			desc = "No description"
		}
		b.WriteString("<tool> ")
		b.WriteString(name)
		b.WriteString(" : ")
		b.WriteString(desc)
		b.WriteString(" </tool>")
	}
	return b.String()
}

// ValidateArguments checks args against the tool's parameter schema.
// Tools without a declared schema accept anything.
func (r *ToolRegistry) ValidateArguments(name string, args map[string]any) error {
	def, ok := r.Definition(name)
	if !ok {
		return &ErrUnknownTool{Name: name}
	}
	if len(def.Parameters) == 0 {
		return nil
	}
	instance, err := json.Marshal(args)
	if err != nil {
		return &ErrParameterValidation{Tool: name, Cause: err}
	}
	if err := ValidateJSON(def.Parameters, instance); err != nil {
		return &ErrParameterValidation{Tool: name, Cause: err}
	}
	return nil
}

// Execute dispatches a tool call by name. Local executors may return a bare
// value, which is wrapped into a ToolResult here so the event log shape stays
// uniform. Remote results are normalized from their structured and text
// content. Unregistered names fail with *ErrUnknownTool.
func (r *ToolRegistry) Execute(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
	if r.tracer != nil {
		var span Span
		ctx, span = r.tracer.Start(ctx, "tool.execute", StringAttr("tool", name))
		defer span.End()
	}

	r.mu.RLock()
	local, isLocal := r.local[name]
	remote, isRemote := r.remote[name]
	r.mu.RUnlock()

	switch {
	case isLocal:
		out, err := local.Execute(ctx, args)
		if err != nil {
			return ToolResult{}, r.wrapDispatchErr(name, err)
		}
		r.logger.Debug("tool executed", "tool", name, "origin", "local")
		return wrapResult(out), nil
	case isRemote:
		res, err := remote.conn.CallTool(ctx, name, args)
		if err != nil {
			return ToolResult{}, r.wrapDispatchErr(name, err)
		}
		r.logger.Debug("tool executed", "tool", name, "origin", "remote")
		return normalizeRemote(res), nil
	default:
		return ToolResult{}, &ErrUnknownTool{Name: name}
	}
}

// wrapDispatchErr wraps executor failures, passing through errors that
// already carry a kind from this package.
func (r *ToolRegistry) wrapDispatchErr(name string, err error) error {
	r.logger.Error("tool execution failed", "tool", name, "error", err)
	switch err.(type) {
	case *ErrNotConnected, *ErrParameterValidation, *ErrToolExecution:
		return err
	}
	return &ErrToolExecution{Tool: name, Cause: err}
}

// normalizeRemote maps a remote result onto the ToolResult shape: structured
// content becomes compact JSON for the model, text blocks become display
// content, and a result with neither falls back to string coercion of the
// whole value for both fields.
func normalizeRemote(res RemoteResult) ToolResult {
	out := ToolResult{Raw: res}
	if res.Structured != nil {
		out.LLMContent = stringCoerce(NormalizeResult(res.Structured))
	}
	if len(res.Text) > 0 {
		out.DisplayContent = strings.Join(res.Text, "\n")
	}
	if res.Structured == nil && len(res.Text) == 0 {
		s := stringCoerce(NormalizeResult(res))
		out.LLMContent = s
		out.DisplayContent = s
	}
	return out
}
