package assistant

import (
	"context"
	"encoding/json"
	"errors"
)

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// StopReason distinguishes an ordinary completion from a reply that requests
// tool use. Values mirror the Anthropic Messages API.
type StopReason string

const (
	StopReasonEndTurn StopReason = "end_turn"
	StopReasonToolUse StopReason = "tool_use"
)

// maxResponseTokens bounds the length of every model reply.
const maxResponseTokens = 800

// Message is a single turn in a conversation. Content carries the plain text;
// ToolCalls is set on assistant messages that request tool use, ToolResults on
// user messages that feed tool output back. Providers translate this neutral
// shape to their own block formats.
type Message struct {
	Role        Role
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
	StopReason  StopReason
}

// ToolCall is a request from the model to execute a tool. Immutable once
// received.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON object of arguments
}

// ToolResult correlates to a ToolCall by ID and carries the tool's text
// output, or a failure description when IsError is set.
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// ToolDefinition is the schema handed to the model so it can decide when and
// how to call a tool.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema json.RawMessage // JSON Schema of the parameters
}

// LLMProvider is the interface to a model backend. The returned message has
// Role assistant and a StopReason set by the provider.
type LLMProvider interface {
	Chat(ctx context.Context, system string, messages []Message, tools []ToolDefinition) (*Message, error)
}

// Failure categories surfaced by providers. The generator translates each
// into a fixed user-facing sentence; nothing else inspects them.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrAPI            = errors.New("api error")
)
