// Package llm provides chat-completion clients for the providers gitpress
// talks to. All providers here speak the OpenAI-compatible wire format;
// provider selection only changes the endpoint and default model.
package llm

import (
	"context"
	"time"
)

const defaultSystemPrompt = "You are an expert software analyst. Ground answers only in provided text. Your response must be logically rigorous, semantically smooth, and factually accurate. Maintain a professional perspective, do not exaggerate."

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the model's reply. Reasoning carries the optional
// thinking trace some providers attach; it is "" when absent.
type Completion struct {
	Text      string
	Reasoning string
}

// ChatClient is the chat-completion primitive the pipeline depends on.
// Implementations return an error on failure; they never substitute
// sentinel content.
type ChatClient interface {
	Complete(ctx context.Context, systemPrompt string, messages []Message, maxTokens int) (*Completion, error)
	Model() string
}

// ClientConfig holds configuration for a chat client.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// chatRequest is the OpenAI-compatible request body.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// chatResponse is the OpenAI-compatible response body. ReasoningContent and
// Thinking cover the auxiliary keys providers use for reasoning traces.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role             string `json:"role"`
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content,omitempty"`
			Thinking         string `json:"thinking,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}
