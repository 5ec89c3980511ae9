package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
)

// AnthropicProvider implements LLMProvider using the Anthropic Messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider creates a new Anthropic provider instance.
func NewAnthropicProvider(apiKey string, model string) *AnthropicProvider {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	httpClient := &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(apiKey, anthropic.WithHTTPClient(httpClient)),
		model:  model,
	}
}

func (p *AnthropicProvider) Chat(ctx context.Context, system string, messages []Message, tools []ToolDefinition) (*Message, error) {
	apiMessages := make([]anthropic.Message, 0, len(messages))
	for _, msg := range messages {
		role := anthropic.RoleUser
		if msg.Role == RoleAssistant {
			role = anthropic.RoleAssistant
		}

		var content []anthropic.MessageContent
		switch {
		case len(msg.ToolResults) > 0:
			// All results of one round travel in a single user message.
			for _, tr := range msg.ToolResults {
				content = append(content, anthropic.NewToolResultMessageContent(tr.ToolUseID, tr.Content, tr.IsError))
			}
		default:
			if msg.Content != "" || len(msg.ToolCalls) == 0 {
				content = append(content, anthropic.NewTextMessageContent(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				content = append(content, anthropic.NewToolUseMessageContent(tc.ID, tc.Name, json.RawMessage(tc.Arguments)))
			}
		}

		apiMessages = append(apiMessages, anthropic.Message{
			Role:    role,
			Content: content,
		})
	}

	var apiTools []anthropic.ToolDefinition
	for _, t := range tools {
		var schema map[string]interface{}
		if err := json.Unmarshal(t.InputSchema, &schema); err != nil {
			return nil, fmt.Errorf("tool %q has invalid input schema: %w", t.Name, err)
		}
		apiTools = append(apiTools, anthropic.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}

	// Deterministic sampling: answers about course material should not vary
	// between identical queries.
	temperature := float32(0)

	req := anthropic.MessagesRequest{
		Model:       anthropic.Model(p.model),
		Messages:    apiMessages,
		MaxTokens:   maxResponseTokens,
		System:      system,
		Temperature: &temperature,
	}
	if len(apiTools) > 0 {
		req.Tools = apiTools
		req.ToolChoice = &anthropic.ToolChoice{Type: "auto"}
	}

	resp, err := p.client.CreateMessages(ctx, req)
	if err != nil {
		return nil, classifyAnthropicError(err)
	}

	result := &Message{
		Role:       RoleAssistant,
		StopReason: StopReason(resp.StopReason),
	}
	for _, content := range resp.Content {
		if content.Type == anthropic.MessagesContentTypeText {
			result.Content += *content.Text
		} else if content.Type == anthropic.MessagesContentTypeToolUse {
			argsBytes, _ := json.Marshal(content.Input)
			result.ToolCalls = append(result.ToolCalls, ToolCall{
				ID:        content.ID,
				Name:      content.Name,
				Arguments: string(argsBytes),
			})
		}
	}

	return result, nil
}

// classifyAnthropicError tags API failures with the category the generator
// turns into user-facing text.
func classifyAnthropicError(err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsAuthenticationErr():
			return fmt.Errorf("%w: %v", ErrAuthentication, err)
		case apiErr.IsRateLimitErr():
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		default:
			return fmt.Errorf("%w: %v", ErrAPI, err)
		}
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: %v", ErrAPI, err)
	}
	return err
}
