package llm

import (
	"fmt"

	"gitpress/internal/config"
)

// Provider defaults. All three speak the OpenAI-compatible chat protocol;
// only the endpoint and default model differ.
var providerDefaults = map[string]struct {
	baseURL string
	model   string
}{
	"openai":   {"https://api.openai.com/v1", "gpt-4o-mini"},
	"deepseek": {"https://api.deepseek.com", "deepseek-chat"},
	"qwen":     {"https://dashscope.aliyuncs.com/compatible-mode/v1", "qwen-plus"},
}

// NewFromConfig builds a chat client from resolved configuration.
// Explicit base URL and model win over the provider defaults.
func NewFromConfig(cfg config.Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured")
	}

	defaults, ok := providerDefaults[cfg.Provider]
	if !ok {
		defaults = providerDefaults["openai"]
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaults.baseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaults.model
	}

	cc := DefaultClientConfig(cfg.APIKey)
	cc.BaseURL = baseURL
	cc.Model = model
	return NewClient(cc), nil
}
