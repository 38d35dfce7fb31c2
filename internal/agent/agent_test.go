package agent

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udaysagarm/GentAI/internal/llm"
	"github.com/udaysagarm/GentAI/internal/logger"
	"github.com/udaysagarm/GentAI/internal/memory"
	"github.com/udaysagarm/GentAI/internal/retry"
	"github.com/udaysagarm/GentAI/internal/router"
	"github.com/udaysagarm/GentAI/internal/tools"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func testMemory(t *testing.T) *memory.Store {
	t.Helper()
	store, err := memory.Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// echoTool replies with a fixed observation.
type echoTool struct {
	name   string
	result string
	err    error
	calls  int
}

func (e *echoTool) Name() string               { return e.name }
func (e *echoTool) Description() string        { return "test tool" }
func (e *echoTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (e *echoTool) Execute(_ context.Context, _ string) (string, error) {
	e.calls++
	return e.result, e.err
}

type quotaErr struct{}

func (quotaErr) Error() string   { return "quota exhausted" }
func (quotaErr) StatusCode() int { return 429 }

func newTestAgent(t *testing.T, provider llm.Provider, registry *tools.Registry) (*Agent, *memory.Store) {
	t.Helper()
	store := testMemory(t)
	if registry == nil {
		registry = tools.NewRegistry()
	}
	models := router.Models{Fast: "fast-model", Capable: "capable-model", CapableSearch: "search-model"}
	a := New(provider, registry, store, models, testLogger(t), nil, Config{
		MaxToolIterations: 4,
		ContextTurns:      10,
		Retry: retry.Policy{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
		},
	})
	return a, store
}

func TestHandle_PlainAnswer(t *testing.T) {
	provider := llm.NewScriptedProvider(llm.TextStep("Hi! How can I help?"))
	a, store := newTestAgent(t, provider, nil)

	reply, err := a.Handle(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi! How can I help?", reply)

	// Both turns persisted, oldest first.
	turns, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, memory.RoleUser, turns[0].Role)
	assert.Equal(t, "hello", turns[0].Content)
	assert.Equal(t, memory.RoleAssistant, turns[1].Role)
	assert.Equal(t, "Hi! How can I help?", turns[1].Content)
}

func TestHandle_RoutesModelByTier(t *testing.T) {
	provider := llm.NewScriptedProvider(llm.TextStep("ok"))
	a, _ := newTestAgent(t, provider, nil)

	_, err := a.Handle(context.Background(), "hello")
	require.NoError(t, err)

	requests := provider.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "fast-model", requests[0].Model)
}

func TestHandle_SearchTierModel(t *testing.T) {
	provider := llm.NewScriptedProvider(llm.TextStep("fresh news"))
	a, _ := newTestAgent(t, provider, nil)

	_, err := a.Handle(context.Background(), "search for today's news")
	require.NoError(t, err)

	requests := provider.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "search-model", requests[0].Model)
}

func TestHandle_ToolCallCycle(t *testing.T) {
	provider := llm.NewScriptedProvider(
		llm.ToolCallStep("current_datetime", "{}"),
		llm.TextStep("It is Tuesday."),
	)
	registry := tools.NewRegistry()
	clock := &echoTool{name: "current_datetime", result: "Tuesday, 2026-09-01 15:00:00 UTC"}
	require.NoError(t, registry.Register(clock))

	a, _ := newTestAgent(t, provider, registry)

	reply, err := a.Handle(context.Background(), "what day is it over there in london")
	require.NoError(t, err)
	assert.Equal(t, "It is Tuesday.", reply)
	assert.Equal(t, 1, clock.calls)

	// The observation went back to the model as a tool message.
	requests := provider.Requests()
	require.Len(t, requests, 2)
	second := requests[1].Messages
	last := second[len(second)-1]
	assert.Equal(t, llm.RoleTool, last.Role)
	assert.Equal(t, clock.result, last.Content)
}

func TestHandle_ToolErrorBecomesObservation(t *testing.T) {
	provider := llm.NewScriptedProvider(
		llm.ToolCallStep("flaky", "{}"),
		llm.TextStep("The tool failed: backend offline. Want me to retry?"),
	)
	registry := tools.NewRegistry()
	flaky := &echoTool{name: "flaky", err: errors.New("backend offline")}
	require.NoError(t, registry.Register(flaky))

	a, _ := newTestAgent(t, provider, registry)

	reply, err := a.Handle(context.Background(), "please try the flaky thing")
	require.NoError(t, err)
	assert.NotEmpty(t, reply)

	requests := provider.Requests()
	require.Len(t, requests, 2)
	messages := requests[1].Messages
	last := messages[len(messages)-1]
	assert.Equal(t, llm.RoleTool, last.Role)
	assert.Contains(t, last.Content, "Error: backend offline")
}

func TestHandle_StepBoundFallback(t *testing.T) {
	// The model keeps calling tools and never produces a final answer.
	provider := llm.NewScriptedProvider(
		llm.ToolCallStep("noisy", "{}"),
	)
	registry := tools.NewRegistry()
	noisy := &echoTool{name: "noisy", result: "observation payload"}
	require.NoError(t, registry.Register(noisy))

	a, store := newTestAgent(t, provider, registry)

	reply, err := a.Handle(context.Background(), "loop forever please")
	require.NoError(t, err)
	assert.Contains(t, reply, "could not summarize")
	assert.Contains(t, reply, "observation payload")
	assert.Equal(t, 4, noisy.calls)

	// The fallback reply is persisted like any other.
	turns, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	last := turns[len(turns)-1]
	assert.Equal(t, memory.RoleAssistant, last.Role)
	assert.NotEmpty(t, last.Content)
}

func TestHandle_RetriesQuotaThenSucceeds(t *testing.T) {
	provider := llm.NewScriptedProvider(
		llm.ErrStep(quotaErr{}),
		llm.TextStep("recovered"),
	)
	a, _ := newTestAgent(t, provider, nil)

	reply, err := a.Handle(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "recovered", reply)
	assert.Equal(t, 2, provider.CallCount())
}

func TestHandle_ApologyOnExhaustedRetries(t *testing.T) {
	provider := llm.NewScriptedProvider(llm.ErrStep(quotaErr{}))
	a, store := newTestAgent(t, provider, nil)

	reply, err := a.Handle(context.Background(), "hello")
	require.NoError(t, err)
	assert.Contains(t, reply, "sorry")

	turns, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	last := turns[len(turns)-1]
	assert.Equal(t, memory.RoleAssistant, last.Role)
	assert.Contains(t, last.Content, "sorry")
}

func TestHandle_TerminalModelErrorNotRetried(t *testing.T) {
	provider := llm.NewScriptedProvider(llm.ErrStep(errors.New("invalid request payload")))
	a, _ := newTestAgent(t, provider, nil)

	reply, err := a.Handle(context.Background(), "hello")
	require.NoError(t, err)
	assert.Contains(t, reply, "sorry")
	assert.Equal(t, 1, provider.CallCount())
}

func TestHandle_EmptyRequestRejected(t *testing.T) {
	provider := llm.NewScriptedProvider()
	a, store := newTestAgent(t, provider, nil)

	_, err := a.Handle(context.Background(), "   ")
	require.Error(t, err)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, provider.CallCount())
}

func TestHandle_SystemPromptEmbedsClock(t *testing.T) {
	provider := llm.NewScriptedProvider(llm.TextStep("ok"))
	a, _ := newTestAgent(t, provider, nil)
	a.now = func() time.Time {
		return time.Date(2026, 9, 1, 9, 30, 0, 0, time.UTC)
	}

	_, err := a.Handle(context.Background(), "hello")
	require.NoError(t, err)

	requests := provider.Requests()
	require.Len(t, requests, 1)
	system := requests[0].Messages[0]
	assert.Equal(t, llm.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "2026-09-01 09:30:00")
	assert.Contains(t, system.Content, "draft")
}

func TestHandle_ContextWindowReplayed(t *testing.T) {
	provider := llm.NewScriptedProvider(llm.TextStep("reply"))
	a, store := newTestAgent(t, provider, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, memory.RoleUser, fmt.Sprintf("earlier question %d", i)))
		require.NoError(t, store.Append(ctx, memory.RoleAssistant, fmt.Sprintf("earlier answer %d", i)))
	}

	_, err := a.Handle(ctx, "and one more thing")
	require.NoError(t, err)

	requests := provider.Requests()
	require.Len(t, requests, 1)
	messages := requests[0].Messages

	// System prompt, six history turns, the new user turn.
	require.Len(t, messages, 8)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, "earlier question 0", messages[1].Content)
	assert.Equal(t, llm.RoleAssistant, messages[2].Role)
	assert.Equal(t, "and one more thing", messages[7].Content)
	assert.Equal(t, llm.RoleUser, messages[7].Role)
}

func TestDispatch_RunsOnFreshContext(t *testing.T) {
	provider := llm.NewScriptedProvider(llm.TextStep("task handled"))
	a, store := newTestAgent(t, provider, nil)
	ctx := context.Background()

	// An ongoing interactive conversation that must not leak into the fire.
	require.NoError(t, store.Append(ctx, memory.RoleUser, "email carol about the offsite"))
	require.NoError(t, store.Append(ctx, memory.RoleAssistant, "Drafted an email to carol."))

	reply, err := a.Dispatch(ctx, "check the inbox for urgent emails")
	require.NoError(t, err)
	assert.Equal(t, "task handled", reply)

	// The model sees only the system prompt and the task description.
	requests := provider.Requests()
	require.Len(t, requests, 1)
	messages := requests[0].Messages
	require.Len(t, messages, 2)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, llm.RoleUser, messages[1].Role)
	assert.Equal(t, "check the inbox for urgent emails", messages[1].Content)

	// The fire is still recorded in conversation memory like any turn.
	turns, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, "check the inbox for urgent emails", turns[2].Content)
	assert.Equal(t, "task handled", turns[3].Content)
}

func TestHandle_EmptyModelReplyExplained(t *testing.T) {
	// The model answers successfully but with no text and no tool call.
	provider := llm.NewScriptedProvider(llm.TextStep(""))
	a, store := newTestAgent(t, provider, nil)

	reply, err := a.Handle(context.Background(), "hello")
	require.NoError(t, err)
	assert.Contains(t, reply, "could not come up with an answer")
	assert.NotContains(t, reply, "unavailable")

	turns, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	last := turns[len(turns)-1]
	assert.Equal(t, memory.RoleAssistant, last.Role)
	assert.Equal(t, reply, last.Content)
}
