package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTool is a minimal tool for registry tests.
type fakeTool struct {
	name   string
	result string
	err    error
}

func (f *fakeTool) Name() string               { return f.name }
func (f *fakeTool) Description() string        { return "fake tool" }
func (f *fakeTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (f *fakeTool) Execute(_ context.Context, _ string) (string, error) {
	return f.result, f.err
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	require.NoError(t, registry.Register(&fakeTool{name: "alpha"}))
	require.NoError(t, registry.Register(&fakeTool{name: "beta"}))
	assert.Equal(t, 2, registry.Len())

	tool, ok := registry.Get("alpha")
	assert.True(t, ok)
	assert.Equal(t, "alpha", tool.Name())

	_, ok = registry.Get("gamma")
	assert.False(t, ok)
}

func TestRegistry_RegisterRejectsInvalid(t *testing.T) {
	registry := NewRegistry()

	assert.Error(t, registry.Register(nil))
	assert.Error(t, registry.Register(&fakeTool{name: ""}))
}

func TestRegistry_ToSchema(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeTool{name: "alpha"}))

	schemas := registry.ToSchema()
	require.Len(t, schemas, 1)
	assert.Equal(t, "alpha", schemas[0].Name)
	assert.Equal(t, "fake tool", schemas[0].Description)
	assert.NotNil(t, schemas[0].Parameters)
}

func TestRegistry_ExecuteSuccess(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeTool{name: "alpha", result: "it worked"}))

	result := registry.Execute(context.Background(), ToolCall{ID: "c1", Name: "alpha"})
	assert.Equal(t, "c1", result.ToolCallID)
	assert.Equal(t, "it worked", result.Content)
	assert.Empty(t, result.Error)
	assert.Equal(t, "it worked", result.Observation())
}

func TestRegistry_ExecuteFoldsErrors(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&fakeTool{name: "broken", err: errors.New("backend offline")}))

	result := registry.Execute(context.Background(), ToolCall{ID: "c1", Name: "broken"})
	assert.Equal(t, "backend offline", result.Error)
	assert.Equal(t, "Error: backend offline", result.Observation())
}

func TestRegistry_ExecuteUnknownTool(t *testing.T) {
	registry := NewRegistry()

	result := registry.Execute(context.Background(), ToolCall{ID: "c1", Name: "missing"})
	assert.Contains(t, result.Error, "tool not found")
	assert.Contains(t, result.Observation(), "Error:")
}
