package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gitpress/internal/logging"
)

// Client implements ChatClient against any OpenAI-compatible endpoint.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	maxRetries  int
	httpClient  *http.Client
	mu          sync.Mutex
	lastRequest time.Time
}

// DefaultClientConfig returns sensible defaults for an OpenAI-compatible endpoint.
func DefaultClientConfig(apiKey string) ClientConfig {
	return ClientConfig{
		APIKey:     apiKey,
		BaseURL:    "https://api.openai.com/v1",
		Model:      "gpt-4o-mini",
		Timeout:    10 * time.Minute, // generation calls carry large contexts
		MaxRetries: 3,
	}
}

// NewClient creates a chat client with custom config.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Model returns the current model identifier.
func (c *Client) Model() string {
	return c.model
}

// Complete sends a message list and returns text plus any reasoning trace.
func (c *Client) Complete(ctx context.Context, systemPrompt string, messages []Message, maxTokens int) (*Completion, error) {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.APIDebug("[llm] Complete: model=%s system_len=%d messages=%d", c.model, len(systemPrompt), len(messages))

	if c.apiKey == "" {
		logging.APIError("[llm] Complete: API key not configured")
		return nil, fmt.Errorf("API key not configured")
	}

	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}

	// Rate limiting
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	all := make([]Message, 0, len(messages)+1)
	all = append(all, Message{Role: "system", Content: systemPrompt})
	all = append(all, messages...)

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    all,
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	}

	// Retry loop for rate limits and transient transport failures
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(time.Duration(1<<uint(i-1)) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var chat chatResponse
		if err := json.Unmarshal(body, &chat); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if chat.Error != nil {
			return nil, fmt.Errorf("API error: %s", chat.Error.Message)
		}
		if len(chat.Choices) == 0 {
			logging.APIError("[llm] Complete: no completion returned")
			return nil, fmt.Errorf("no completion returned")
		}

		choice := chat.Choices[0].Message
		reasoning := choice.ReasoningContent
		if reasoning == "" {
			reasoning = choice.Thinking
		}

		logging.API("[llm] Complete: completed in %v response_len=%d", time.Since(startTime), len(choice.Content))
		return &Completion{
			Text:      strings.TrimSpace(choice.Content),
			Reasoning: reasoning,
		}, nil
	}

	logging.APIError("[llm] Complete: max retries exceeded after %v: %v", time.Since(startTime), lastErr)
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
