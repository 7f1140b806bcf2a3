// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm calls the Groq chat-completions API and builds the prompts
// for draft generation, keyword derivation, and revision suggestions.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/paperbot/internal/httputil"
	"github.com/pdiddy/paperbot/pkg/types"
)

// groqAPIBase is the Groq chat-completions endpoint. Declared as a var so
// tests can substitute an httptest server.
var groqAPIBase = "https://api.groq.com/openai/v1/chat/completions"

// Completer produces a completion for a system/user prompt pair. The
// concrete Client implements it; tests supply a mock.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Client talks to the Groq chat-completions API.
type Client struct {
	http *http.Client
	cfg  types.LLMConfig
}

// NewClient builds a Groq client from config.
func NewClient(cfg types.LLMConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 150 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		cfg:  cfg,
	}
}

// Complete sends one system/user prompt pair and returns the assistant text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	body := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	if c.cfg.MaxTokens > 0 {
		body.MaxTokens = c.cfg.MaxTokens
	}

	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	var out chatResponse
	if err := httputil.PostJSON(ctx, c.http, "Groq", groqAPIBase, headers, body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("Groq returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// Groq chat-completions JSON structures (OpenAI-compatible).
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
