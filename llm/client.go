// Package llm wraps an OpenAI-compatible chat completions endpoint (DashScope
// compatible-mode in production) behind the small completion capability the
// rest of the system consumes.
package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Config holds the endpoint and the two model roles: a chat model for replies
// and a cheaper summary model for memory consolidation.
type Config struct {
	APIKey             string
	BaseURL            string
	ChatModel          string
	SummaryModel       string
	ChatTemperature    float64
	ChatMaxTokens      int
	SummaryTemperature float64
	SummaryMaxTokens   int
}

// Client is safe for concurrent use.
type Client struct {
	api *openai.Client
	cfg Config
}

// NewClient validates the config and builds the client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key is required")
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{api: openai.NewClientWithConfig(apiCfg), cfg: cfg}, nil
}

// Complete sends a single-turn prompt to the summary model. One request, one
// response; callers own retry policy (the consolidator deliberately has none).
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.SummaryModel,
		Temperature: float32(c.cfg.SummaryTemperature),
		MaxTokens:   c.cfg.SummaryMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("summary completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("summary completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Chat sends a system prompt plus a user message to the chat model.
func (c *Client) Chat(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.ChatModel,
		Temperature: float32(c.cfg.ChatTemperature),
		MaxTokens:   c.cfg.ChatMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
