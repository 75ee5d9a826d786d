// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package chat talks to the completion providers. Model selection is by
// name prefix: gpt-* goes to the OpenAI endpoint, deepseek-* to the
// DeepSeek-compatible one. Without any API key the client degrades to
// canned responses so the rest of the stack stays usable offline.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

const (
	deepSeekBaseURL = "https://api.deepseek.com/v1"

	// historyWindow bounds how many prior turns accompany a request.
	historyWindow = 10

	defaultMaxTokens = 2048
)

// Turn is one prior conversation message passed as context.
type Turn struct {
	Role    string
	Content string
}

// Usage reports provider token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens"`
}

// Options configures a chat client.
type Options struct {
	APIKey         string
	APIURL         string
	DeepSeekAPIKey string
	Temperature    float32
	MaxTokens      int
}

// Client issues chat completions. Safe for concurrent use.
type Client struct {
	openaiAPI   *openai.Client
	deepseekAPI *openai.Client
	temperature float32
	maxTokens   int
	log         zerolog.Logger
}

// NewClient builds a client from options. Missing keys leave the
// corresponding provider nil; Complete falls back to mock output when no
// provider can serve the requested model.
func NewClient(opts Options, log zerolog.Logger) *Client {
	c := &Client{
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		log:         log,
	}
	if c.temperature == 0 {
		c.temperature = 0.7
	}
	if c.maxTokens <= 0 {
		c.maxTokens = defaultMaxTokens
	}

	if opts.APIKey != "" {
		cfg := openai.DefaultConfig(opts.APIKey)
		if opts.APIURL != "" {
			cfg.BaseURL = opts.APIURL
		}
		c.openaiAPI = openai.NewClientWithConfig(cfg)
	}
	if opts.DeepSeekAPIKey != "" {
		cfg := openai.DefaultConfig(opts.DeepSeekAPIKey)
		cfg.BaseURL = deepSeekBaseURL
		c.deepseekAPI = openai.NewClientWithConfig(cfg)
	}

	return c
}

// Complete requests a completion for userMessage with up to the last
// historyWindow turns of context. An empty systemPrompt uses the
// built-in one. When no provider serves the model, a canned response is
// returned with approximate token accounting, never an error.
func (c *Client) Complete(ctx context.Context, model, systemPrompt string, history []Turn, userMessage string) (string, Usage, error) {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt()
	}

	api := c.providerFor(model)
	if api == nil {
		c.log.Warn().Str("model", model).Msg("No provider for model, using mock response")
		response := MockResponse(userMessage)
		return response, approximateUsage(userMessage, response), nil
	}

	messages := make([]openai.ChatCompletionMessage, 0, historyWindow+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})
	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}
	for _, turn := range history[start:] {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	resp, err := api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("chat completion returned no choices")
	}

	usage := Usage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	return resp.Choices[0].Message.Content, usage, nil
}

// providerFor picks the API client serving a model name, or nil.
func (c *Client) providerFor(model string) *openai.Client {
	switch {
	case strings.HasPrefix(model, "deepseek-") && c.deepseekAPI != nil:
		return c.deepseekAPI
	case strings.HasPrefix(model, "gpt-") && c.openaiAPI != nil:
		return c.openaiAPI
	case c.openaiAPI != nil:
		return c.openaiAPI
	}
	return nil
}

// HasProvider reports whether any real provider is configured.
func (c *Client) HasProvider() bool {
	return c.openaiAPI != nil || c.deepseekAPI != nil
}

// MockResponse generates a canned assistant reply, used when no API key
// is configured.
func MockResponse(message string) string {
	lowered := strings.ToLower(message)

	switch {
	case containsAny(lowered, "code", "function", "programming", "implement"):
		return "Here's a simple Python function example:\n\n```python\ndef greet(name):\n    return f'Hello, {name}! Welcome to programming.'\n\n# Example usage\nresult = greet('Developer')\nprint(result)  # Outputs: Hello, Developer! Welcome to programming.\n```\n\nThis function takes a name parameter and returns a greeting message. Is there a specific type of function you'd like help with?"
	case containsAny(lowered, "explain", "how", "what is", "concept"):
		return "I'd be happy to explain that concept. What specific aspect would you like me to elaborate on? I can provide code examples, step-by-step explanations, or best practices depending on your needs."
	case containsAny(lowered, "debug", "error", "fix", "issue", "problem"):
		return "I can help you debug that issue. To provide the most effective assistance, could you share:\n\n1. The relevant code snippet\n2. Any error messages you're seeing\n3. What you've already tried\n\nWith this information, I can help identify the root cause and suggest solutions."
	}
	return "I'm ALI, your AI coding assistant. I can help you with programming tasks, explain concepts, debug code, or suggest improvements. How can I assist you with your development work today?"
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func approximateUsage(message, response string) Usage {
	total := len(strings.Fields(message)) + len(strings.Fields(response))
	return Usage{TotalTokens: total}
}
