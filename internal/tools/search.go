package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/udaysagarm/GentAI/internal/llm"
)

// GoogleSearchTool answers a query with live web results by issuing a
// one-shot, search-grounded model call. The model used must support native
// search grounding.
type GoogleSearchTool struct {
	provider llm.Provider
	model    string
}

// NewGoogleSearchTool creates the google_search tool. model is the
// search-capable model to ground against.
func NewGoogleSearchTool(provider llm.Provider, model string) *GoogleSearchTool {
	return &GoogleSearchTool{provider: provider, model: model}
}

func (t *GoogleSearchTool) Name() string {
	return "google_search"
}

func (t *GoogleSearchTool) Description() string {
	return "Performs a live Google web search and returns a synthesized answer with current information. Use this for anything the model cannot know, such as news, prices, or recent events."
}

func (t *GoogleSearchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query.",
			},
		},
		"required": []string{"query"},
	}
}

func (t *GoogleSearchTool) Execute(ctx context.Context, args string) (string, error) {
	var params struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if params.Query == "" {
		return "", fmt.Errorf("query is required")
	}

	resp, err := t.provider.Chat(ctx, llm.ChatRequest{
		Model: t.model,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: params.Query},
		},
		EnableSearch: true,
	})
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	if resp.Content == "" {
		return "The search returned no answer.", nil
	}
	return resp.Content, nil
}
