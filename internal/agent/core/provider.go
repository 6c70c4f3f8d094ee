package core

import (
	"context"
	"fmt"
	"net/http"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/menufest/menufest/config"
)

// NewLLMProvider builds the provider the routing config points at. Only
// OpenAI-compatible endpoints are supported; BaseURL redirects to
// compatible gateways.
func NewLLMProvider(cfg config.LLMConfig) (LLMProvider, error) {
	for name, provider := range cfg.Providers {
		switch provider.Type {
		case "", "openai":
			return NewOpenAIProvider(provider), nil
		default:
			return nil, fmt.Errorf("unsupported LLM provider type %q for %q", provider.Type, name)
		}
	}
	return nil, fmt.Errorf("no LLM providers configured")
}

// OpenAIProvider implements LLMProvider over the OpenAI chat API.
type OpenAIProvider struct {
	config config.LLMProvider
	client *openai.Client
	models map[string]config.LLMModel
}

// NewOpenAIProvider creates a provider for one configured endpoint.
func NewOpenAIProvider(cfg config.LLMProvider) *OpenAIProvider {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &OpenAIProvider{
		config: cfg,
		client: openai.NewClientWithConfig(clientConfig),
		models: cfg.Models,
	}
}

// ChatWithTools performs one exchange against the configured model.
func (p *OpenAIProvider) ChatWithTools(ctx context.Context, model string, messages []Message, tools []ToolSpec) (ChatResponse, error) {
	m, ok := p.models[model]
	if !ok {
		return ChatResponse{}, fmt.Errorf("model %s not configured", model)
	}
	apiModel := m.APIName
	if apiModel == "" {
		apiModel = m.Name
	}

	req := openai.ChatCompletionRequest{
		Model:       apiModel,
		Messages:    toOpenAIMessages(messages),
		Temperature: float32(m.Temperature),
		MaxTokens:   m.MaxTokens,
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ChatResponse{}, fmt.Errorf("chat completion returned no choices")
	}

	choice := resp.Choices[0].Message
	out := ChatResponse{
		Content:          choice.Content,
		PromptTokens:     int64(resp.Usage.PromptTokens),
		CompletionTokens: int64(resp.Usage.CompletionTokens),
	}
	for _, tc := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

// CalculateCost estimates spend from the per-1K token rates in config.
func (p *OpenAIProvider) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	m, ok := p.models[model]
	if !ok {
		return 0.0
	}
	inputCost := float64(inputTokens) / 1000.0 * m.CostPer1K
	outputCost := float64(outputTokens) / 1000.0 * m.CostPer1KOutput
	return inputCost + outputCost
}

func toOpenAIMessages(in []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(in))
	for _, msg := range in {
		converted := openai.ChatCompletionMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, tc := range msg.ToolCalls {
			converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, converted)
	}
	return out
}
