package llm

import (
	"bytes"
	stdcontext "context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/udaysagarm/GentAI/internal/logger"
)

const (
	// GeminiEndpoint is the base URL for the Gemini generateContent API
	GeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	// GeminiRequestTimeout is the default timeout for API requests
	GeminiRequestTimeout = 60 * time.Second
	// GeminiDefaultModel is used when no model is requested
	GeminiDefaultModel = "gemini-2.0-flash"
)

// GeminiConfig contains configuration for the Gemini provider.
type GeminiConfig struct {
	APIKey         string `json:"api_key"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// GeminiProvider implements the Provider interface for the Gemini API.
type GeminiProvider struct {
	client *http.Client
	config GeminiConfig
	apiURL string
	logger *logger.Logger
}

// geminiRequest represents the request format for the generateContent API.
type geminiRequest struct {
	SystemInstruction *geminiContent   `json:"system_instruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	Tools             []geminiTool     `json:"tools,omitempty"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"` // "user" or "model"
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDecl `json:"functionDeclarations,omitempty"`
	GoogleSearch         *struct{}            `json:"google_search,omitempty"`
}

type geminiFunctionDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

// geminiResponse represents the response format from the generateContent API.
type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Usage      geminiUsage       `json:"usageMetadata"`
	Error      *geminiAPIError   `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// geminiHTTPError represents an HTTP-level error from the API. It carries
// the status code so the retry policy can classify it without parsing text.
type geminiHTTPError struct {
	Status int
	Body   string
}

func (e *geminiHTTPError) Error() string {
	return fmt.Sprintf("gemini API error: status=%d, body=%s", e.Status, e.Body)
}

// StatusCode satisfies retry.StatusCoder.
func (e *geminiHTTPError) StatusCode() int {
	return e.Status
}

// NewGeminiProvider creates a new GeminiProvider instance.
func NewGeminiProvider(cfg GeminiConfig, log *logger.Logger) *GeminiProvider {
	if cfg.Model == "" {
		cfg.Model = GeminiDefaultModel
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = GeminiRequestTimeout
	}

	return &GeminiProvider{
		client: &http.Client{Timeout: timeout},
		config: cfg,
		apiURL: GeminiEndpoint,
		logger: log,
	}
}

// Chat sends a chat completion request to the Gemini API.
func (p *GeminiProvider) Chat(ctx stdcontext.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	p.logger.DebugCtx(ctx, "Sending chat request to Gemini API",
		logger.Field{Key: "model", Value: model},
		logger.Field{Key: "messages_count", Value: len(req.Messages)},
		logger.Field{Key: "search_grounding", Value: req.EnableSearch})

	body, err := json.Marshal(p.mapChatRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := p.doRequest(ctx, model, body)
	if err != nil {
		return nil, err
	}

	return p.mapChatResponse(resp, model), nil
}

// doRequest executes a single HTTP request to the generateContent endpoint.
func (p *GeminiProvider) doRequest(ctx stdcontext.Context, model string, reqBody []byte) (*geminiResponse, error) {
	url := fmt.Sprintf("%s/%s:generateContent", p.apiURL, model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.config.APIKey)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		p.logger.ErrorCtx(ctx, "Failed to execute request to Gemini API", err)
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		p.logger.ErrorCtx(ctx, "Gemini API returned error status", nil,
			logger.Field{Key: "status_code", Value: httpResp.StatusCode},
			logger.Field{Key: "response_body", Value: string(respBody)})
		return nil, &geminiHTTPError{Status: httpResp.StatusCode, Body: string(respBody)}
	}

	var gr geminiResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if gr.Error != nil {
		p.logger.ErrorCtx(ctx, "Gemini API returned error", nil,
			logger.Field{Key: "error_status", Value: gr.Error.Status},
			logger.Field{Key: "error_message", Value: gr.Error.Message})
		return nil, fmt.Errorf("API error: %s (code %d): %s", gr.Error.Status, gr.Error.Code, gr.Error.Message)
	}

	return &gr, nil
}

// mapChatRequest maps the internal ChatRequest to Gemini API format.
// System messages become the system instruction, assistant messages map to
// role "model", and tool observations map to functionResponse parts (the
// ToolCallID carries the function name, since Gemini has no call IDs).
func (p *GeminiProvider) mapChatRequest(req ChatRequest) geminiRequest {
	out := geminiRequest{}

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			out.SystemInstruction = &geminiContent{
				Parts: []geminiPart{{Text: msg.Content}},
			}
		case RoleAssistant:
			var parts []geminiPart
			if msg.Content != "" {
				parts = append(parts, geminiPart{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				parts = append(parts, geminiPart{
					FunctionCall: &geminiFunctionCall{
						Name: tc.Name,
						Args: json.RawMessage(tc.Arguments),
					},
				})
			}
			if len(parts) == 0 {
				parts = []geminiPart{{Text: ""}}
			}
			out.Contents = append(out.Contents, geminiContent{
				Role:  "model",
				Parts: parts,
			})
		case RoleTool:
			out.Contents = append(out.Contents, geminiContent{
				Role: "user",
				Parts: []geminiPart{{
					FunctionResponse: &geminiFunctionResponse{
						Name:     msg.ToolCallID,
						Response: map[string]any{"result": msg.Content},
					},
				}},
			})
		default:
			out.Contents = append(out.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: msg.Content}},
			})
		}
	}

	if len(req.Tools) > 0 {
		decls := make([]geminiFunctionDecl, len(req.Tools))
		for i, tool := range req.Tools {
			decls[i] = geminiFunctionDecl{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			}
		}
		out.Tools = append(out.Tools, geminiTool{FunctionDeclarations: decls})
	}
	if req.EnableSearch {
		out.Tools = append(out.Tools, geminiTool{GoogleSearch: &struct{}{}})
	}

	if req.Temperature != 0 || req.MaxTokens != 0 {
		out.GenerationConfig = &geminiGenConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}

	return out
}

// mapChatResponse maps a Gemini API response to the internal ChatResponse.
func (p *GeminiProvider) mapChatResponse(gr *geminiResponse, model string) *ChatResponse {
	usage := Usage{
		PromptTokens:     gr.Usage.PromptTokenCount,
		CompletionTokens: gr.Usage.CandidatesTokenCount,
		TotalTokens:      gr.Usage.TotalTokenCount,
	}

	if len(gr.Candidates) == 0 {
		return &ChatResponse{
			FinishReason: FinishReasonError,
			ToolCalls:    []ToolCall{},
			Usage:        usage,
			Model:        model,
		}
	}

	candidate := gr.Candidates[0]

	var content string
	var toolCalls []ToolCall
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			content += part.Text
		}
		if part.FunctionCall != nil {
			args := "{}"
			if len(part.FunctionCall.Args) > 0 {
				args = string(part.FunctionCall.Args)
			}
			toolCalls = append(toolCalls, ToolCall{
				ID:        part.FunctionCall.Name,
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
		}
	}

	finish := FinishReasonStop
	switch {
	case len(toolCalls) > 0:
		finish = FinishReasonToolCalls
	case candidate.FinishReason == "MAX_TOKENS":
		finish = FinishReasonLength
	}

	return &ChatResponse{
		Content:      content,
		FinishReason: finish,
		ToolCalls:    toolCalls,
		Usage:        usage,
		Model:        model,
	}
}

// SupportsToolCalling returns true as Gemini supports function calling.
func (p *GeminiProvider) SupportsToolCalling() bool {
	return true
}

// GetDefaultModel returns the configured default model.
func (p *GeminiProvider) GetDefaultModel() string {
	return p.config.Model
}
