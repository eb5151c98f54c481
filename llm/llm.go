// Package llm defines the minimal chat-completion surface the support agent
// depends on. Providers live under providers/.
package llm

import (
	"context"
	"time"
)

// Message is one entry of a conversation. Role follows the chat-completions
// convention: system, user, assistant, or tool. Tool observations carry the
// ToolCallID of the call they answer; assistant messages that request tools
// carry the calls themselves.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// Tool describes one callable tool offered to the model. ParametersJSON is
// the raw JSON-schema string for its arguments.
type Tool struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	ParametersJSON string `json:"parameters_json,omitempty"`
}

// ToolCall is a tool invocation the model asked for, with its arguments
// already decoded.
type ToolCall struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Usage reports token counts as the provider accounted them. The runtime
// does not act on these; they are carried for logging and cost tracking.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Result is one model reply: free text, tool calls, or both.
type Result struct {
	Text      string
	ToolCalls []ToolCall
	Usage     Usage
	Duration  time.Duration
}

type Request struct {
	Model    string
	Messages []Message
	Tools    []Tool
}

type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}
