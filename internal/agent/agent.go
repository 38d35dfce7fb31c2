// Package agent implements the dispatch loop: one user request in, one
// final text reply out, with a bounded number of tool-calling cycles in
// between. Every request and reply is persisted to conversation memory.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/udaysagarm/GentAI/internal/llm"
	"github.com/udaysagarm/GentAI/internal/logger"
	"github.com/udaysagarm/GentAI/internal/memory"
	"github.com/udaysagarm/GentAI/internal/metrics"
	"github.com/udaysagarm/GentAI/internal/retry"
	"github.com/udaysagarm/GentAI/internal/router"
	"github.com/udaysagarm/GentAI/internal/tools"
)

const (
	// fallbackReply is returned when the tool budget runs out before the
	// model produces a final answer.
	fallbackReply = "I could not summarize the result, but the last action completed as follows:"

	// apologyReply is returned when the model service stays unavailable
	// through every retry attempt.
	apologyReply = "I'm sorry, the model service is currently unavailable. Please try again in a moment."

	// noAnswerReply is returned when the model finished without producing
	// any text or tool call. The service was reachable, so the apology
	// about availability would be a lie.
	noAnswerReply = "I'm sorry, I could not come up with an answer to that. Please try rephrasing the request."
)

// Config tunes the dispatch loop.
type Config struct {
	// MaxToolIterations bounds the number of tool-calling cycles per request.
	MaxToolIterations int
	// ContextTurns is how many persisted turns are replayed as context.
	ContextTurns int
	// MaxTokens and Temperature are passed through to the model.
	MaxTokens   int
	Temperature float64
	// Retry governs model-call retries.
	Retry retry.Policy
}

// Agent dispatches user requests through the model and tool registry.
type Agent struct {
	provider llm.Provider
	registry *tools.Registry
	memory   *memory.Store
	models   router.Models
	logger   *logger.Logger
	metrics  *metrics.Metrics
	cfg      Config

	// now is replaceable in tests; the system prompt embeds the wall clock.
	now func() time.Time
}

// New creates an agent.
func New(provider llm.Provider, registry *tools.Registry, store *memory.Store, models router.Models, log *logger.Logger, m *metrics.Metrics, cfg Config) *Agent {
	if cfg.MaxToolIterations <= 0 {
		cfg.MaxToolIterations = 10
	}
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = 10
	}
	return &Agent{
		provider: provider,
		registry: registry,
		memory:   store,
		models:   models,
		logger:   log,
		metrics:  m,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Handle processes one interactive user request end to end and returns the
// final reply. The user turn is persisted before any model work so a crash
// mid-request never loses what the user said. The reply is persisted before
// returning.
func (a *Agent) Handle(ctx context.Context, userText string) (string, error) {
	return a.respond(ctx, userText, true)
}

// Dispatch runs a scheduled task description through the dispatch loop on a
// fresh context: only the system prompt and the description reach the model.
// A fired task must not be steered by whatever the interactive conversation
// happens to contain. It satisfies the scheduler's dispatcher contract.
func (a *Agent) Dispatch(ctx context.Context, description string) (string, error) {
	return a.respond(ctx, description, false)
}

func (a *Agent) respond(ctx context.Context, userText string, withHistory bool) (string, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return "", fmt.Errorf("empty request")
	}

	if err := a.memory.Append(ctx, memory.RoleUser, userText); err != nil {
		return "", fmt.Errorf("failed to persist user turn: %w", err)
	}

	tier := router.Select(userText)
	model := a.models.ModelFor(tier)
	a.metrics.IncDispatch(string(tier))
	a.logger.InfoCtx(ctx, "Dispatching request",
		logger.Field{Key: "tier", Value: string(tier)},
		logger.Field{Key: "model", Value: model})

	var messages []llm.Message
	if withHistory {
		var err error
		messages, err = a.buildContext(ctx)
		if err != nil {
			return "", err
		}
	} else {
		messages = []llm.Message{
			{Role: llm.RoleSystem, Content: a.systemPrompt()},
			{Role: llm.RoleUser, Content: userText},
		}
	}

	reply := a.runLoop(ctx, model, tier, messages)

	if err := a.memory.Append(ctx, memory.RoleAssistant, reply); err != nil {
		a.logger.ErrorCtx(ctx, "Failed to persist assistant turn", err)
	}
	return reply, nil
}

// buildContext assembles the system prompt plus the recent conversation.
// The just-persisted user turn arrives as the last context entry.
func (a *Agent) buildContext(ctx context.Context) ([]llm.Message, error) {
	turns, err := a.memory.Recent(ctx, a.cfg.ContextTurns)
	if err != nil {
		return nil, fmt.Errorf("failed to load context: %w", err)
	}

	messages := make([]llm.Message, 0, len(turns)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: a.systemPrompt()})
	for _, turn := range turns {
		role := llm.RoleUser
		if turn.Role == memory.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	return messages, nil
}

// systemPrompt embeds the current wall clock so relative dates resolve
// correctly, and states the non-negotiable behavior rules.
func (a *Agent) systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a personal assistant with access to the user's Google account through tools.\n")
	fmt.Fprintf(&b, "The current date and time is %s.\n\n", a.now().Format("Monday, 2006-01-02 15:04:05 MST"))
	b.WriteString("Rules:\n")
	b.WriteString("- Never send an email unless the user explicitly asks you to send it. When in doubt, create a draft instead.\n")
	b.WriteString("- After completing any action with tools, always reply with a short summary of what was done. Never end with an empty reply.\n")
	b.WriteString("- Use the scheduling tools for anything the user wants done later or repeatedly.\n")
	b.WriteString("- If a tool reports an error, tell the user what failed instead of pretending it succeeded.")
	return b.String()
}

// runLoop drives the bounded tool-calling cycle. Each cycle makes one model
// call; if the model requests tools, exactly one call is executed and its
// observation folded back before the next cycle.
func (a *Agent) runLoop(ctx context.Context, model string, tier router.Tier, messages []llm.Message) string {
	var lastObservation string

	// Function declarations and native search grounding are mutually
	// exclusive on the wire; search-tier requests with a populated registry
	// reach the web through the google_search tool instead.
	schema := a.toolSchema()

	for iteration := 0; iteration < a.cfg.MaxToolIterations; iteration++ {
		resp, err := a.chat(ctx, llm.ChatRequest{
			Model:        model,
			Messages:     messages,
			Temperature:  a.cfg.Temperature,
			MaxTokens:    a.cfg.MaxTokens,
			Tools:        schema,
			EnableSearch: tier == router.TierCapableSearch && len(schema) == 0,
		})
		if err != nil {
			a.logger.ErrorCtx(ctx, "Model call failed after retries", err,
				logger.Field{Key: "model", Value: model})
			return apologyReply
		}

		if len(resp.ToolCalls) == 0 {
			if resp.Content != "" {
				return resp.Content
			}
			// An empty final reply would be dropped by the memory layer.
			break
		}

		// One tool call per cycle. Extra calls in the same response are
		// discarded; the model re-requests them on the next cycle if it
		// still wants them.
		call := resp.ToolCalls[0]
		result := a.registry.Execute(ctx, tools.ToolCall{
			ID:        call.ID,
			Name:      call.Name,
			Arguments: call.Arguments,
		})

		status := "ok"
		if result.Error != "" {
			status = "error"
		}
		a.metrics.IncToolInvocation(call.Name, status)
		a.logger.InfoCtx(ctx, "Tool executed",
			logger.Field{Key: "tool", Value: call.Name},
			logger.Field{Key: "status", Value: status})

		lastObservation = result.Observation()
		messages = append(messages,
			llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: []llm.ToolCall{call}},
			llm.Message{Role: llm.RoleTool, Content: lastObservation, ToolCallID: call.ID},
		)
	}

	if lastObservation != "" {
		return fmt.Sprintf("%s\n%s", fallbackReply, lastObservation)
	}
	return noAnswerReply
}

// chat issues one model call under the retry policy.
func (a *Agent) chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	var resp *llm.ChatResponse
	attempt := 0
	err := a.cfg.Retry.Do(ctx, func() error {
		if attempt > 0 {
			a.metrics.IncModelRetry()
		}
		attempt++

		var err error
		resp, err = a.provider.Chat(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// toolSchema exports the registry once per call site.
func (a *Agent) toolSchema() []llm.ToolDefinition {
	if !a.provider.SupportsToolCalling() {
		return nil
	}

	defs := a.registry.ToSchema()
	out := make([]llm.ToolDefinition, len(defs))
	for i, def := range defs {
		out[i] = llm.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		}
	}
	return out
}
