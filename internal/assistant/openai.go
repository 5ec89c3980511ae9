package assistant

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements LLMProvider using the OpenAI chat completions
// API. It also serves Ollama, which speaks the same protocol.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider instance.
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	if model == "" {
		model = openai.GPT4oMini
	}

	httpClient := &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	config := openai.DefaultConfig(apiKey)
	config.HTTPClient = httpClient

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// NewOllamaProvider creates an OpenAI provider pointed at a local Ollama
// server's OpenAI-compatible endpoint.
func NewOllamaProvider(host string, model string) *OpenAIProvider {
	if host == "" {
		host = "http://localhost:11434/v1"
	}
	if model == "" {
		model = "llama3"
	}

	config := openai.DefaultConfig("ollama") // API key is ignored by Ollama
	config.BaseURL = host

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (p *OpenAIProvider) Chat(ctx context.Context, system string, messages []Message, tools []ToolDefinition) (*Message, error) {
	apiMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		apiMessages = append(apiMessages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		if len(msg.ToolResults) > 0 {
			// OpenAI wants one tool-role message per result.
			for _, tr := range msg.ToolResults {
				content := tr.Content
				if content == "" {
					content = "{}"
				}
				apiMessages = append(apiMessages, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    content,
					ToolCallID: tr.ToolUseID,
				})
			}
			continue
		}

		role := openai.ChatMessageRoleUser
		if msg.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		var toolCalls []openai.ToolCall
		for _, tc := range msg.ToolCalls {
			toolCalls = append(toolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		apiMessages = append(apiMessages, openai.ChatCompletionMessage{
			Role:      role,
			Content:   msg.Content,
			ToolCalls: toolCalls,
		})
	}

	var apiTools []openai.Tool
	for _, t := range tools {
		apiTools = append(apiTools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}

	req := openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: apiMessages,
		Tools:    apiTools,
		// The library drops a literal 0 via omitempty; the smallest non-zero
		// float is the documented way to pin deterministic sampling.
		Temperature: math.SmallestNonzeroFloat32,
		MaxTokens:   maxResponseTokens,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty choice list in completion", ErrAPI)
	}

	choice := resp.Choices[0]
	result := &Message{
		Role:       RoleAssistant,
		Content:    choice.Message.Content,
		StopReason: StopReasonEndTurn,
	}
	if choice.FinishReason == openai.FinishReasonToolCalls || len(choice.Message.ToolCalls) > 0 {
		result.StopReason = StopReasonToolUse
	}
	for _, tc := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return result, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrAuthentication, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		default:
			return fmt.Errorf("%w: %v", ErrAPI, err)
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: %v", ErrAPI, err)
	}
	return err
}
