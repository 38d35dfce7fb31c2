// Package tools defines the capability adapter interface and the registry
// the dispatch loop draws from. Each tool wraps one external action; a tool
// call never raises across the boundary. Failures come back as textual
// observations the model can react to.
package tools

import (
	"context"
	"fmt"
	"sync"
)

// Tool is a single callable capability. Name identifies the tool in the
// function-calling API, Parameters is a JSON Schema object describing the
// expected arguments, Execute receives the arguments as a JSON string.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args string) (string, error)
}

// ToolDefinition is a tool declaration in function-calling format.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a tool call requested by the model.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Arguments is a JSON string containing the tool's input parameters.
	Arguments string `json:"arguments"`
}

// ToolResult is the observation produced by executing one tool call.
// Exactly one of Content and Error is meaningful.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	Error      string `json:"error,omitempty"`
}

// Observation returns the result as text for the model transcript.
func (r ToolResult) Observation() string {
	if r.Error != "" {
		return fmt.Sprintf("Error: %s", r.Error)
	}
	return r.Content
}

// Registry holds the collection of available tools. It is loaded once at
// process start and treated as immutable by the dispatch loop.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry, replacing any tool of the same name.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("cannot register nil tool")
	}
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = tool
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// ToSchema exports the registered tools as function declarations for the
// model request.
func (r *Registry) ToSchema() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		schemas = append(schemas, ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}
	return schemas
}

// Execute runs one tool call and folds any failure into the result. An
// unknown tool name and an adapter error are both ordinary observations,
// never errors to the caller.
func (r *Registry) Execute(ctx context.Context, tc ToolCall) ToolResult {
	tool, ok := r.Get(tc.Name)
	if !ok {
		return ToolResult{
			ToolCallID: tc.ID,
			Error:      fmt.Sprintf("tool not found: %s", tc.Name),
		}
	}

	content, err := tool.Execute(ctx, tc.Arguments)
	if err != nil {
		return ToolResult{ToolCallID: tc.ID, Error: err.Error()}
	}
	return ToolResult{ToolCallID: tc.ID, Content: content}
}
