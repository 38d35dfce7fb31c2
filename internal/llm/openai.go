package llm

import (
	stdcontext "context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/udaysagarm/GentAI/internal/logger"
)

// OpenAIConfig contains configuration for an OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"` // optional, for compatible endpoints
	Model   string `json:"model"`
}

// OpenAIProvider implements the Provider interface on top of the
// sashabaranov/go-openai client. It serves any OpenAI-compatible endpoint.
type OpenAIProvider struct {
	client *openai.Client
	config OpenAIConfig
	logger *logger.Logger
}

// openaiHTTPError adapts an API error so the retry policy can classify it
// by status code.
type openaiHTTPError struct {
	apiErr *openai.APIError
}

func (e *openaiHTTPError) Error() string   { return e.apiErr.Error() }
func (e *openaiHTTPError) Unwrap() error   { return e.apiErr }
func (e *openaiHTTPError) StatusCode() int { return e.apiErr.HTTPStatusCode }

// NewOpenAIProvider creates a new OpenAIProvider instance.
func NewOpenAIProvider(cfg OpenAIConfig, log *logger.Logger) *OpenAIProvider {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		config: cfg,
		logger: log,
	}
}

// Chat sends a chat completion request.
func (p *OpenAIProvider) Chat(ctx stdcontext.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	oaReq := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
		Messages:    mapOpenAIMessages(req.Messages),
	}

	for _, tool := range req.Tools {
		params, err := json.Marshal(tool.Parameters)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tool parameters for %s: %w", tool.Name, err)
		}
		oaReq.Tools = append(oaReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  json.RawMessage(params),
			},
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, oaReq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, &openaiHTTPError{apiErr: apiErr}
		}
		return nil, err
	}

	return mapOpenAIResponse(&resp), nil
}

func mapOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		oaMsg := openai.ChatCompletionMessage{
			Role:       string(msg.Role),
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			oaMsg.ToolCalls = append(oaMsg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out[i] = oaMsg
	}
	return out
}

func mapOpenAIResponse(resp *openai.ChatCompletionResponse) *ChatResponse {
	out := &ChatResponse{
		FinishReason: FinishReasonError,
		ToolCalls:    []ToolCall{},
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Model: resp.Model,
	}

	if len(resp.Choices) == 0 {
		return out
	}

	choice := resp.Choices[0]
	out.Content = choice.Message.Content
	out.FinishReason = FinishReason(choice.FinishReason)
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	if len(out.ToolCalls) > 0 {
		out.FinishReason = FinishReasonToolCalls
	}

	return out
}

// SupportsToolCalling returns true, tool calling is part of the chat API.
func (p *OpenAIProvider) SupportsToolCalling() bool {
	return true
}

// GetDefaultModel returns the configured default model.
func (p *OpenAIProvider) GetDefaultModel() string {
	return p.config.Model
}
