package generate

import (
	"context"
	"fmt"
	"strings"

	"gitpress/internal/config"
	"gitpress/internal/llm"
	"gitpress/internal/logging"
)

// DirectEngine writes the article in a single budgeted call.
type DirectEngine struct {
	client llm.ChatClient
}

func (e *DirectEngine) Version() string { return config.EngineDirect }

func (e *DirectEngine) Generate(ctx context.Context, req Request) (*Result, error) {
	logging.Generate("direct generation for %s (limit %d words)", req.RepoName, req.WordLimit)
	comp, err := e.client.Complete(ctx, articleSystemPrompt, []llm.Message{
		{Role: "user", Content: directPrompt(req)},
	}, 0)
	if err != nil {
		return nil, fmt.Errorf("article generation: %w", err)
	}
	final := strings.TrimSpace(comp.Text)
	if final == "" {
		return nil, fmt.Errorf("model returned empty article for %s", req.RepoName)
	}
	return &Result{
		FinalContent:    final,
		ThinkingContent: comp.Reasoning,
	}, nil
}
