package llm

import (
	"context"
	"sync"
)

// ScriptedProvider is a Provider for tests. It replays a fixed sequence of
// responses and errors, one per Chat call, and records every request it saw.
type ScriptedProvider struct {
	mu       sync.Mutex
	steps    []ScriptStep
	index    int
	requests []ChatRequest
}

// ScriptStep is a single canned Chat outcome.
type ScriptStep struct {
	Response *ChatResponse
	Err      error
}

// NewScriptedProvider creates a provider that replays the given steps in
// order. Once the script is exhausted the last step repeats.
func NewScriptedProvider(steps ...ScriptStep) *ScriptedProvider {
	return &ScriptedProvider{steps: steps}
}

// TextStep returns a step producing a plain-text final answer.
func TextStep(text string) ScriptStep {
	return ScriptStep{Response: &ChatResponse{
		Content:      text,
		FinishReason: FinishReasonStop,
	}}
}

// ToolCallStep returns a step requesting a single tool call.
func ToolCallStep(name, arguments string) ScriptStep {
	return ScriptStep{Response: &ChatResponse{
		FinishReason: FinishReasonToolCalls,
		ToolCalls:    []ToolCall{{ID: name, Name: name, Arguments: arguments}},
	}}
}

// ErrStep returns a step failing with err.
func ErrStep(err error) ScriptStep {
	return ScriptStep{Err: err}
}

// Chat implements the Provider interface.
func (p *ScriptedProvider) Chat(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)

	if len(p.steps) == 0 {
		return &ChatResponse{Content: "ok", FinishReason: FinishReasonStop}, nil
	}

	step := p.steps[p.index]
	if p.index < len(p.steps)-1 {
		p.index++
	}
	if step.Err != nil {
		return nil, step.Err
	}
	resp := *step.Response
	return &resp, nil
}

// SupportsToolCalling implements the Provider interface.
func (p *ScriptedProvider) SupportsToolCalling() bool {
	return true
}

// GetDefaultModel implements the Provider interface.
func (p *ScriptedProvider) GetDefaultModel() string {
	return "scripted-model"
}

// CallCount returns how many Chat calls were made.
func (p *ScriptedProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// Requests returns a copy of every ChatRequest seen.
func (p *ScriptedProvider) Requests() []ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ChatRequest, len(p.requests))
	copy(out, p.requests)
	return out
}
