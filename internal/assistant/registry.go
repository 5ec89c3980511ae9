package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"lectern/internal/models"
)

// Tool is a capability the model can invoke: a schema for the model to read
// and an execute step returning a human-readable text block.
type Tool interface {
	Definition() ToolDefinition
	Execute(ctx context.Context, args string) (string, error)
}

// SourceTracker is implemented by tools that record citations while
// executing. The registry drains and clears them between queries.
type SourceTracker interface {
	LastSources() []models.Source
	ResetSources()
}

// ToolRegistry tracks the available tools by name. Citation state is a
// per-query resource: one query owns the registry until LastSources has been
// drained and ResetSources called.
type ToolRegistry struct {
	tools map[string]Tool
	order []string
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds a tool, keyed by the name in its definition. Registering a
// duplicate name overwrites the earlier tool.
func (r *ToolRegistry) Register(t Tool) {
	name := t.Definition().Name
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Definitions returns the tool schemas in registration order.
func (r *ToolRegistry) Definitions() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Invoke executes the named tool. An unknown name is not an error: the
// returned text is shown to the model as the tool result, so it reads as a
// plain "not found" message the model can react to.
func (r *ToolRegistry) Invoke(ctx context.Context, name, args string) (string, error) {
	tool, ok := r.tools[name]
	if !ok {
		return fmt.Sprintf("Tool '%s' not found", name), nil
	}
	return tool.Execute(ctx, args)
}

// LastSources returns the most recently recorded citation list from whichever
// tool produced one.
func (r *ToolRegistry) LastSources() []models.Source {
	for _, name := range r.order {
		if tracker, ok := r.tools[name].(SourceTracker); ok {
			if sources := tracker.LastSources(); len(sources) > 0 {
				return sources
			}
		}
	}
	return nil
}

// ResetSources clears citation state on every tracking tool. Called once per
// completed query so stale citations never leak into the next answer.
func (r *ToolRegistry) ResetSources() {
	for _, name := range r.order {
		if tracker, ok := r.tools[name].(SourceTracker); ok {
			tracker.ResetSources()
		}
	}
}

// parseArgs decodes a tool-call argument payload into v.
func parseArgs(args string, v any) error {
	if args == "" {
		args = "{}"
	}
	return json.Unmarshal([]byte(args), v)
}
