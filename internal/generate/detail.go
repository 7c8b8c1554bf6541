package generate

import (
	"context"
	"fmt"
	"strings"

	"gitpress/internal/config"
	"gitpress/internal/llm"
	"gitpress/internal/logging"
)

// DetailCondenseEngine writes an unbounded detailed walkthrough first,
// then condenses it to the word budget. The detailed pass is kept in the
// result so reviewers can consult the long form.
type DetailCondenseEngine struct {
	client llm.ChatClient
}

func (e *DetailCondenseEngine) Version() string { return config.EngineDetailCondense }

func (e *DetailCondenseEngine) Generate(ctx context.Context, req Request) (*Result, error) {
	logging.Generate("detail pass for %s", req.RepoName)
	detail, err := e.client.Complete(ctx, articleSystemPrompt, []llm.Message{
		{Role: "user", Content: detailPrompt(req)},
	}, 0)
	if err != nil {
		return nil, fmt.Errorf("detail pass: %w", err)
	}
	detailed := strings.TrimSpace(detail.Text)
	if detailed == "" {
		return nil, fmt.Errorf("model returned empty walkthrough for %s", req.RepoName)
	}

	logging.Generate("condense pass for %s (%d chars detailed, limit %d words)",
		req.RepoName, len(detailed), req.WordLimit)
	condensed, err := e.client.Complete(ctx, articleSystemPrompt, []llm.Message{
		{Role: "user", Content: condensePrompt(detailed, req.WordLimit)},
	}, 0)
	if err != nil {
		return nil, fmt.Errorf("condense pass: %w", err)
	}
	final := strings.TrimSpace(condensed.Text)
	if final == "" {
		return nil, fmt.Errorf("model returned empty condensed article for %s", req.RepoName)
	}

	thinking := condensed.Reasoning
	if thinking == "" {
		thinking = detail.Reasoning
	}
	return &Result{
		FinalContent:    final,
		DetailedContent: detailed,
		ThinkingContent: thinking,
	}, nil
}
