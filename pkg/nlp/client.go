// Package nlp provides language model clients used for answer generation,
// plus the retry and circuit-breaker wrappers that implement the
// degrade-not-fail policy toward this collaborator.
package nlp

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the language model cannot be reached and
// no degraded path applies.
var ErrUnavailable = errors.New("language model unavailable")

// GenerateRequest is a single text generation request.
type GenerateRequest struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Temperature  float32 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
}

// Usage reports token consumption for a generation.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the result of a generation request.
type Response struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// Client defines the interface for text generation.
type Client interface {
	// Generate produces a completion for the given request.
	Generate(ctx context.Context, req *GenerateRequest) (*Response, error)

	// Close cleans up any resources.
	Close() error
}

// Config holds configuration for generation clients.
type Config struct {
	Model       string  `json:"model"`
	APIKey      string  `json:"api_key,omitempty"`
	BaseURL     string  `json:"base_url,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}
