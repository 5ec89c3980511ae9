package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// User-facing failure messages. One fixed sentence per category; failed model
// calls are never retried automatically.
const (
	msgEmptyResponse = "I apologize, but I received an empty response. Please try your query again."
	msgAuthFailed    = "Authentication failed. Please check the API key configuration."
	msgRateLimited   = "Rate limit exceeded. Please try again in a moment."
	msgAPIErrorFmt   = "API error occurred: %v. Please try again."
	msgUnexpectedFmt = "An unexpected error occurred: %v. Please try again."
	defaultMaxRounds = 2
)

// Generator drives the conversation between the user's query, the model, and
// the registered tools. Each query runs a bounded number of model exchanges;
// a reply that requests tool use gets its tools executed and the results fed
// back, a reply without tool use is the answer.
//
// Generate never returns an error: every failure ends in human-readable text
// handed back to the caller, so the surrounding layers (HTTP handler, TUI)
// can treat the result uniformly as the assistant's answer.
type Generator struct {
	provider  LLMProvider
	maxRounds int
	logger    *zap.Logger
}

// NewGenerator creates a generator with the given round budget. A budget of
// zero or less falls back to the default of two rounds.
func NewGenerator(provider LLMProvider, maxRounds int, logger *zap.Logger) *Generator {
	if maxRounds <= 0 {
		maxRounds = defaultMaxRounds
	}
	return &Generator{provider: provider, maxRounds: maxRounds, logger: logger}
}

// Generate answers a query, optionally augmented with formatted conversation
// history and a tool registry. With no registry (or an empty one) it performs
// exactly one exchange without tool schemas.
func (g *Generator) Generate(ctx context.Context, query, history string, registry *ToolRegistry) string {
	system := systemPrompt
	if history != "" {
		system = systemPrompt + "\n\nPrevious conversation:\n" + history
	}

	messages := []Message{{Role: RoleUser, Content: query}}

	var tools []ToolDefinition
	if registry != nil {
		tools = registry.Definitions()
	}
	if len(tools) == 0 {
		resp, err := g.provider.Chat(ctx, system, messages, nil)
		if err != nil {
			return g.failureMessage(err)
		}
		return textOrFallback(resp)
	}

	// Each exchange with the model consumes one unit of the round budget.
	for round := 1; round <= g.maxRounds; round++ {
		resp, err := g.provider.Chat(ctx, system, messages, tools)
		if err != nil {
			return g.failureMessage(err)
		}
		messages = append(messages, *resp)

		if !wantsTools(resp) {
			// Natural termination: the reply is the answer, whichever round
			// it arrived in.
			return textOrFallback(resp)
		}

		g.logger.Debug("executing tool calls",
			zap.Int("round", round), zap.Int("calls", len(resp.ToolCalls)))
		messages = append(messages, g.executeToolCalls(ctx, registry, resp.ToolCalls))
	}

	// Budget exhausted with a tool interaction still pending: one graceful
	// final exchange, tools still offered, so the pending results are not
	// left dangling. If this reply asks for yet more tools, we stop anyway
	// and return its text content as-is.
	resp, err := g.provider.Chat(ctx, system, messages, tools)
	if err != nil {
		return g.failureMessage(err)
	}
	return textOrFallback(resp)
}

// wantsTools reports whether a reply requests tool execution.
func wantsTools(m *Message) bool {
	return m.StopReason == StopReasonToolUse && len(m.ToolCalls) > 0
}

// executeToolCalls runs every requested tool sequentially and collects the
// results into the single user message sent back to the model. A failing tool
// becomes an error-text result so the model can react; it never aborts the
// other calls.
func (g *Generator) executeToolCalls(ctx context.Context, registry *ToolRegistry, calls []ToolCall) Message {
	results := make([]ToolResult, 0, len(calls))
	for _, tc := range calls {
		output, err := registry.Invoke(ctx, tc.Name, tc.Arguments)
		if err != nil {
			g.logger.Error("tool execution failed",
				zap.String("tool", tc.Name), zap.Error(err))
			output = fmt.Sprintf("Tool execution failed: %v", err)
		}
		results = append(results, ToolResult{
			ToolUseID: tc.ID,
			Content:   output,
			IsError:   err != nil,
		})
	}
	return Message{Role: RoleUser, ToolResults: results}
}

func (g *Generator) failureMessage(err error) string {
	g.logger.Error("model call failed", zap.Error(err))
	switch {
	case errors.Is(err, ErrAuthentication):
		return msgAuthFailed
	case errors.Is(err, ErrRateLimited):
		return msgRateLimited
	case errors.Is(err, ErrAPI):
		return fmt.Sprintf(msgAPIErrorFmt, err)
	default:
		return fmt.Sprintf(msgUnexpectedFmt, err)
	}
}

func textOrFallback(m *Message) string {
	if strings.TrimSpace(m.Content) == "" {
		return msgEmptyResponse
	}
	return m.Content
}
