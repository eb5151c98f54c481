// Package openai implements llm.Client against any OpenAI-compatible
// chat-completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/halfmoonlab/supportdesk/internal/jsonutil"
	"github.com/halfmoonlab/supportdesk/llm"
)

const (
	defaultMaxResponseBytes = 4 * 1024 * 1024
	defaultAttempts         = 3
	defaultInitialDelay     = time.Second
)

type Client struct {
	Endpoint string
	APIKey   string

	HTTP             *http.Client
	MaxResponseBytes int64

	// Transient failures (429, 5xx, transport errors) are retried up to
	// Attempts times with exponential backoff starting at InitialDelay.
	Attempts     int
	InitialDelay time.Duration
}

func New(endpoint, apiKey string) *Client {
	return &Client{
		Endpoint:         strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		APIKey:           strings.TrimSpace(apiKey),
		HTTP:             &http.Client{Timeout: 60 * time.Second},
		MaxResponseBytes: defaultMaxResponseBytes,
		Attempts:         defaultAttempts,
		InitialDelay:     defaultInitialDelay,
	}
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

type wireTool struct {
	Type     string      `json:"type"`
	Function wireToolDef `json:"function"`
}

type wireToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string         `json:"content"`
			ToolCalls []wireToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	if c == nil {
		return llm.Result{}, fmt.Errorf("nil openai client")
	}
	if strings.TrimSpace(req.Model) == "" {
		return llm.Result{}, fmt.Errorf("missing model")
	}
	if len(req.Messages) == 0 {
		return llm.Result{}, fmt.Errorf("empty messages")
	}

	body, err := c.encodeRequest(req)
	if err != nil {
		return llm.Result{}, err
	}

	start := time.Now()
	attempts := c.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := c.InitialDelay
	if delay <= 0 {
		delay = defaultInitialDelay
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return llm.Result{}, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		res, retryable, err := c.doOnce(ctx, body)
		if err == nil {
			res.Duration = time.Since(start)
			return res, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return llm.Result{}, fmt.Errorf("chat request failed: %w", lastErr)
}

func (c *Client) doOnce(ctx context.Context, body []byte) (llm.Result, bool, error) {
	url := c.Endpoint + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return llm.Result{}, false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return llm.Result{}, true, err
	}
	defer resp.Body.Close()

	limit := c.MaxResponseBytes
	if limit <= 0 {
		limit = defaultMaxResponseBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return llm.Result{}, true, err
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return llm.Result{}, true, fmt.Errorf("status %d: %s", resp.StatusCode, truncateForError(data))
	}
	if resp.StatusCode != http.StatusOK {
		return llm.Result{}, false, fmt.Errorf("status %d: %s", resp.StatusCode, truncateForError(data))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return llm.Result{}, false, fmt.Errorf("unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return llm.Result{}, false, fmt.Errorf("api error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return llm.Result{}, false, fmt.Errorf("no choices in response")
	}

	choice := parsed.Choices[0].Message
	out := llm.Result{
		Text: choice.Content,
		Usage: llm.Usage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
			TotalTokens:  parsed.Usage.TotalTokens,
		},
	}
	for _, tc := range choice.ToolCalls {
		call := llm.ToolCall{ID: tc.ID, Name: tc.Function.Name}
		if raw := strings.TrimSpace(tc.Function.Arguments); raw != "" {
			var args map[string]any
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				// Models occasionally emit slightly broken argument JSON.
				if ferr := jsonutil.DecodeWithFallback(raw, &args); ferr != nil {
					args = nil
				}
			}
			call.Arguments = args
		}
		out.ToolCalls = append(out.ToolCalls, call)
	}
	return out, false, nil
}

func (c *Client) encodeRequest(req llm.Request) ([]byte, error) {
	wire := map[string]any{
		"model": req.Model,
	}

	msgs := make([]wireMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		wm := wireMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			args := "{}"
			if tc.Arguments != nil {
				if b, err := json.Marshal(tc.Arguments); err == nil {
					args = string(b)
				}
			}
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: wireFunction{
					Name:      tc.Name,
					Arguments: args,
				},
			})
		}
		msgs = append(msgs, wm)
	}
	wire["messages"] = msgs

	if len(req.Tools) > 0 {
		tools := make([]wireTool, 0, len(req.Tools))
		for _, t := range req.Tools {
			def := wireToolDef{Name: t.Name, Description: t.Description}
			if s := strings.TrimSpace(t.ParametersJSON); s != "" {
				def.Parameters = json.RawMessage(s)
			}
			tools = append(tools, wireTool{Type: "function", Function: def})
		}
		wire["tools"] = tools
	}

	return json.Marshal(wire)
}

func truncateForError(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}
